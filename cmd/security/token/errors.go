package token

import "errors"

// ErrHMACKeyTooShort is returned when a configured HMAC key does not meet
// MinHMACKeyBytes.
var ErrHMACKeyTooShort = errors.New("token hmac key too short")
