package app

import (
	"errors"
	"fmt"

	"pulse/cmd/security/passphrase"
	"pulse/cmd/security/token"
)

// ValidateSecurityConfig enforces the deployment security policy at startup.
//
// Fail-fast is intentional: a presence server reachable with an empty or
// default passphrase is effectively unauthenticated, and silently running
// that way in production is unacceptable.
func ValidateSecurityConfig(cfg Config) error {
	if err := token.ValidateHMACKey([]byte(cfg.TokenHMACKey)); err != nil {
		return fmt.Errorf("security policy: PULSE_TOKEN_HMAC_KEY: %w", err)
	}

	if !cfg.RequirePassphrase {
		return nil
	}

	if cfg.Passphrase == "" {
		return errors.New("security policy: PULSE_REQUIRE_PASSPHRASE=true but PULSE_PASSPHRASE is empty")
	}
	if cfg.Passphrase == passphrase.InsecureDefault {
		return errors.New("security policy: PULSE_REQUIRE_PASSPHRASE=true but PULSE_PASSPHRASE is the well-known default")
	}

	return nil
}
