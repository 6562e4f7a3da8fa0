package middleware

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyAuth returns middleware that validates the X-API-Key header. An
// empty apiKey disables the protected routes entirely.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				writeError(w, http.StatusNotFound, "not_found", "admin API disabled")
				return
			}
			key := r.Header.Get("X-API-Key")
			if key == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing API key")
				return
			}
			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
				writeError(w, http.StatusForbidden, "forbidden", "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
