// Package token derives opaque session tokens from a user identifier and
// the deployment passphrase.
//
// Tokens are deterministic: no randomness and no server-side state are
// involved, which lets any node of the chat backend recompute and verify a
// presented token. The digest is SHA-256 by default and can be upgraded to
// HMAC-SHA256 by configuring a key (PULSE_TOKEN_HMAC_KEY).
package token
