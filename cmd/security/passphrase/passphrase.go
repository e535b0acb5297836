// Package passphrase gates every server-to-server call behind the
// deployment-wide shared passphrase.
//
// This is coarse service authorization, not per-user authentication: the
// passphrase proves the caller is the trusted chat frontend, nothing more.
package passphrase

import (
	"crypto/subtle"
	"log/slog"
)

// InsecureDefault is the out-of-the-box passphrase shipped by legacy chat
// deployments. Seeing it on the wire means the deployment was never secured.
const InsecureDefault = "chat"

// Gate validates the shared passphrase supplied with every call.
type Gate struct {
	log    *slog.Logger
	secret string
}

// NewGate constructs a Gate for the configured passphrase.
func NewGate(log *slog.Logger, secret string) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{log: log, secret: secret}
}

// Authorize reports whether the supplied passphrase matches the configured
// one. An empty or well-known default value additionally logs a warning that
// the deployment is unsecured; the warning is informational and never
// changes the result.
func (g *Gate) Authorize(supplied string) bool {
	if supplied == "" || supplied == InsecureDefault {
		g.log.Warn("passphrase.insecure",
			"hint", "change the PULSE_PASSPHRASE property, the server is not secured")
	}
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(g.secret)) == 1
}
