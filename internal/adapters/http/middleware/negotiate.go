package middleware

import (
	"net/http"
	"strings"
)

// IsJSONBody reports whether the request body is JSON.
func IsJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// WantsJSON reports whether the response should be JSON: JSON bodies and
// JSON Accept headers both qualify, browsers never do.
func WantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "text/html") || strings.Contains(accept, "application/xhtml+xml") {
		return false
	}
	return IsJSONBody(r) || strings.Contains(accept, "application/json")
}
