package cors

import (
	"net/http"
	"regexp"
	"strings"
)

// Wildcard in the allow-list admits every origin.
const Wildcard = "*"

var loopbackOrigin = regexp.MustCompile(`^http://(localhost|127\.0\.0\.1)(:\d+)?$`)

// ParseAllowList splits a comma-separated origin list into trimmed tokens.
func ParseAllowList(csv string) []string {
	var origins []string
	for _, tok := range strings.Split(csv, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			origins = append(origins, tok)
		}
	}
	return origins
}

// Resolve maps a request origin and the configured allow-list to the CORS
// response headers. A rejected origin yields an empty header set, never an
// explicit deny. Loopback origins are allowed on any port regardless of the
// allow-list. The exact origin is echoed back instead of a wildcard so
// credentialed requests keep working.
func Resolve(origin string, allowList []string) http.Header {
	if origin == "" || !allowed(origin, allowList) {
		return http.Header{}
	}

	h := http.Header{}
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	h.Set("Access-Control-Max-Age", "86400")
	return h
}

func allowed(origin string, allowList []string) bool {
	if loopbackOrigin.MatchString(origin) {
		return true
	}
	for _, o := range allowList {
		if o == Wildcard || o == origin {
			return true
		}
	}
	return false
}

// Apply copies resolved CORS headers onto a response header map. Existing
// values under the same key are replaced.
func Apply(dst http.Header, src http.Header) {
	for k, vv := range src {
		dst[k] = append([]string(nil), vv...)
	}
}
