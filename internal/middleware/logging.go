package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/pumpfoilmap/pfm-api/internal/logging"
)

// HTTPLogging logs every request and response at DEBUG level.
// It is a pass-through when the logger is above DEBUG, so it can stay in
// the chain and be switched on through /admin/loglevel.
//
// Headers go through logging.MaskHeader and JSON bodies have the
// sensitive keys redacted.
func HTTPLogging(logger *slog.Logger, sensitive []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !logger.Enabled(r.Context(), slog.LevelDebug) {
				next.ServeHTTP(w, r)
				return
			}

			log := Logger(r.Context(), logger)
			logRequest(log, r, sensitive)

			rec := &responseRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				body:           new(bytes.Buffer),
			}

			start := time.Now()
			next.ServeHTTP(rec, r)

			log.Debug("HTTP Response",
				"method", r.Method,
				"url", r.URL.Path,
				"status_code", rec.statusCode,
				"headers", maskHeaders(rec.Header()),
				"body", maskBody(rec.body.Bytes(), sensitive),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func logRequest(log *slog.Logger, r *http.Request, sensitive []string) {
	var reqBody []byte
	if r.Body != nil {
		var err error
		reqBody, err = io.ReadAll(r.Body)
		if err != nil {
			// Typically the body limit; the handler will see the same error.
			log.Debug("Failed to read request body", "error", err)
		}
		var rest io.Reader = bytes.NewReader(reqBody)
		if err != nil {
			// Replay the error so the handler still sees the body limit.
			rest = io.MultiReader(rest, errReader{err})
		}
		r.Body = io.NopCloser(rest)
	}

	// The md5 query parameter of check-md5 is a credential.
	query := r.URL.Query()
	if query.Has("md5") {
		query.Set("md5", "[REDACTED]")
	}

	log.Debug("HTTP Request",
		"method", r.Method,
		"url", r.URL.Path,
		"query_params", query.Encode(),
		"headers", maskHeaders(r.Header),
		"body", maskBody(reqBody, sensitive),
	)
}

func maskHeaders(headers http.Header) map[string]string {
	result := make(map[string]string, len(headers))
	for k, v := range headers {
		if len(v) > 0 {
			result[k] = logging.MaskHeader(k, v[0])
		}
	}
	return result
}

func maskBody(body []byte, sensitive []string) string {
	if len(body) == 0 {
		return ""
	}
	if !utf8.Valid(body) {
		return logging.FormatBinaryData(body)
	}
	return string(logging.MaskJSONBody(body, sensitive))
}

// responseRecorder captures response details for logging.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

// WriteHeader captures the status code and writes it to the response.
func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Write captures the response body and writes it to the response.
func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }
