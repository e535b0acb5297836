package passphrase

import "testing"

func TestGateAuthorize(t *testing.T) {
	g := NewGate(nil, "s3cr3t")

	cases := []struct {
		name     string
		supplied string
		want     bool
	}{
		{"exact match", "s3cr3t", true},
		{"wrong value", "nope", false},
		{"empty supplied", "", false},
		{"insecure default supplied", InsecureDefault, false},
		{"prefix only", "s3cr3", false},
		{"case sensitive", "S3CR3T", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := g.Authorize(tc.supplied); got != tc.want {
				t.Fatalf("Authorize(%q) = %v, want %v", tc.supplied, got, tc.want)
			}
		})
	}
}

func TestGateAuthorize_DefaultSecretStillExactMatch(t *testing.T) {
	// A deployment left on the default passphrase is warned about but the
	// comparison itself keeps working.
	g := NewGate(nil, InsecureDefault)

	if !g.Authorize(InsecureDefault) {
		t.Fatalf("expected exact match to authorize")
	}
	if g.Authorize("other") {
		t.Fatalf("expected mismatch to be rejected")
	}
}
