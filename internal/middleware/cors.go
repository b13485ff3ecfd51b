package middleware

import (
	"net/http"
	"strings"
)

// CORS allows browser clients from any origin. Preflight requests are
// answered with 204 without reaching the router.
func CORS(methods ...string) func(http.Handler) http.Handler {
	allowMethods := strings.Join(append(append([]string{}, methods...), http.MethodOptions), ",")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", "*")
			h.Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
			h.Set("Access-Control-Allow-Methods", allowMethods)
			h.Set("Access-Control-Expose-Headers", RequestIDHeader)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
