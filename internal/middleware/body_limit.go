package middleware

import "net/http"

// MaxBodySize returns middleware that limits request body size.
// Reading past maxBytes fails with *http.MaxBytesError, which handlers
// report as 413 Request Entity Too Large. A non-positive limit disables
// the check.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
