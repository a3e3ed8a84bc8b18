package authz

import (
	"net/http/httptest"
	"testing"
)

func TestSecureCompare(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want bool
	}{
		{"equal", "secret-token-123", "secret-token-123", true},
		{"mismatch at first position", "Xecret-token-123", "secret-token-123", false},
		{"mismatch at last position", "secret-token-12X", "secret-token-123", false},
		{"mismatch in the middle", "secret-XXXXX-123", "secret-token-123", false},
		{"length mismatch", "secret", "secret-token-123", false},
		{"both empty", "", "", true},
	}

	for _, tc := range cases {
		if got := SecureCompare(tc.a, tc.b); got != tc.want {
			t.Errorf("%s: SecureCompare(%q, %q) = %v, want %v", tc.name, tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSecureCompare_AcceptsIffEqual(t *testing.T) {
	// Flip every single position of an otherwise matching token; each flip
	// must be rejected no matter where it sits.
	secret := "0123456789abcdef"
	for i := 0; i < len(secret); i++ {
		mutated := []byte(secret)
		mutated[i] ^= 0x01
		if SecureCompare(string(mutated), secret) {
			t.Errorf("accepted token differing at position %d", i)
		}
	}
	if !SecureCompare(secret, secret) {
		t.Error("rejected identical token")
	}
}

func TestIsAuthorized(t *testing.T) {
	const secret = "edge-secret"

	cases := []struct {
		name   string
		header string
		secret string
		want   bool
	}{
		{"valid bearer", "Bearer edge-secret", secret, true},
		{"missing header", "", secret, false},
		{"wrong scheme", "Basic edge-secret", secret, false},
		{"wrong token", "Bearer other-secret", secret, false},
		{"no secret configured", "Bearer edge-secret", "", false},
		{"bare token without scheme", "edge-secret", secret, false},
	}

	for _, tc := range cases {
		r := httptest.NewRequest("GET", "/mcp/tools", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		if got := IsAuthorized(r, tc.secret); got != tc.want {
			t.Errorf("%s: IsAuthorized = %v, want %v", tc.name, got, tc.want)
		}
	}
}
