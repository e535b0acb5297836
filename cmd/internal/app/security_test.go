package app

import (
	"testing"

	"pulse/cmd/security/passphrase"
)

func TestValidateSecurityConfig(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"policy off, empty secret", Config{}, false},
		{"policy off, default secret", Config{Passphrase: passphrase.InsecureDefault}, false},
		{"policy on, empty secret", Config{RequirePassphrase: true}, true},
		{"policy on, default secret", Config{RequirePassphrase: true, Passphrase: passphrase.InsecureDefault}, true},
		{"policy on, strong secret", Config{RequirePassphrase: true, Passphrase: "0f1e2d3c4b5a"}, false},
		{"short hmac key", Config{TokenHMACKey: "short"}, true},
		{"hmac key ok", Config{TokenHMACKey: "0123456789abcdef0123456789abcdef"}, false},
		{"short hmac key, policy on", Config{RequirePassphrase: true, Passphrase: "0f1e2d3c4b5a", TokenHMACKey: "short"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSecurityConfig(tc.cfg)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
