package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pumpfoilmap/pfm-api/internal/metrics"
)

// Middleware returns Chi-compatible middleware that rejects requests the gate
// does not authorize. Missing credentials get 400, wrong ones 401, so clients
// can tell a forgotten header from a bad password.
func (g *Gate) Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := g.Authorize(r)
			switch res.Decision {
			case Authorized:
				next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), true)))
				return
			case MissingCredential:
				metrics.RecordAuthFailure(res.Decision.String())
				writeJSONError(w, http.StatusBadRequest, "missing_credential", "Missing md5")
			default:
				metrics.RecordAuthFailure(res.Decision.String())
				logger.Warn("invalid admin credential",
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
					"admin_configured", g.Configured(),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			}
		})
	}
}

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
	if err != nil {
		// Encoding errors are not critical for error responses
		_ = err
	}
}
