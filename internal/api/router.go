package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pumpfoilmap/pfm-api/internal/logging"
	"github.com/pumpfoilmap/pfm-api/internal/metrics"
	"github.com/pumpfoilmap/pfm-api/internal/middleware"
)

// NewRouter creates the router with all routes. Request bodies are capped
// at maxBodyBytes; a non-positive value disables the cap.
func (h *Handler) NewRouter(maxBodyBytes int64) chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(metrics.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(middleware.MaxBodySize(maxBodyBytes))
	r.Use(middleware.HTTPLogging(h.logger, logging.SensitiveFields))

	// Probes
	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)

	// Public map and submissions
	r.Route("/spots", func(r chi.Router) {
		r.Use(middleware.CORS(http.MethodGet, http.MethodPost))
		r.Get("/", h.HandleListPublic)
		r.Post("/submit", h.HandleSubmit)
	})

	// Captcha
	r.Route("/captcha", func(r chi.Router) {
		r.Use(middleware.CORS(http.MethodGet, http.MethodPost))
		r.Get("/", h.HandleCaptcha)
		r.Post("/", h.HandleCaptcha)
		r.Post("/verify", h.HandleCaptchaVerify)
	})

	// Moderation
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.CORS(http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete))

		// Lets the admin UI check a password before storing it.
		r.Get("/check-md5", h.HandleCheckMD5)
		r.Post("/check-md5", h.HandleCheckMD5)

		r.Group(func(r chi.Router) {
			r.Use(h.gate.Middleware(h.logger))

			r.Get("/spots", h.HandleAdminList)
			r.Get("/spots/pending", h.HandleAdminPending)
			r.Patch("/spots/{id}", h.HandleAdminUpdate)
			r.Delete("/spots/{id}", h.HandleAdminDelete)
			r.Post("/spots/{id}/approve", h.HandleApprove)
			r.Post("/spots/{id}/reject", h.HandleReject)
			r.Post("/send-mail", h.HandleSendMail)
			r.Post("/loglevel", h.HandleSetLogLevel)
		})
	})

	return r
}
