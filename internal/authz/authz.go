package authz

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const bearerScheme = "Bearer "

// IsAuthorized reports whether the request carries a bearer token matching
// the configured secret. An empty secret means nothing is authorized.
func IsAuthorized(r *http.Request, secret string) bool {
	if secret == "" {
		return false
	}

	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, bearerScheme) {
		return false
	}
	token := strings.TrimPrefix(authHeader, bearerScheme)

	return SecureCompare(token, secret)
}

// SecureCompare checks two strings for equality without leaking, through
// timing, the position of the first mismatching character. Length mismatch
// rejects immediately; bearer tokens are fixed-format strings, so length is
// not treated as secret.
func SecureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
