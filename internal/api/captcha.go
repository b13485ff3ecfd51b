package api

import (
	"errors"
	"net/http"

	"github.com/pumpfoilmap/pfm-api/internal/captcha"
	"github.com/pumpfoilmap/pfm-api/internal/metrics"
	"github.com/pumpfoilmap/pfm-api/internal/middleware"
)

// CaptchaResponse carries a rendered challenge and its opaque token.
type CaptchaResponse struct {
	Data   string `json:"data"`
	Secret string `json:"secret"`
}

// VerifyRequest is the body of POST /captcha/verify.
type VerifyRequest struct {
	Secret string `json:"secret"`
	Answer string `json:"answer"`
}

// HandleCaptcha issues a new challenge.
// GET|POST /captcha
func (h *Handler) HandleCaptcha(w http.ResponseWriter, r *http.Request) {
	if h.captcha == nil {
		WriteError(w, http.StatusInternalServerError, ErrCodeNotConfigured, "CAPTCHA_PRIVATE_KEY not configured")
		return
	}

	ch, err := h.captcha.Generate()
	if err != nil {
		middleware.Logger(r.Context(), h.logger).Error("captcha generation failed", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal server error")
		return
	}
	metrics.RecordCaptcha("generated")

	writeJSON(w, http.StatusOK, CaptchaResponse{Data: ch.Data, Secret: ch.Token})
}

// HandleCaptchaVerify checks an answer against a token.
// POST /captcha/verify
// Body: {"secret": "...", "answer": "..."}
func (h *Handler) HandleCaptchaVerify(w http.ResponseWriter, r *http.Request) {
	if h.captcha == nil {
		WriteError(w, http.StatusInternalServerError, ErrCodeNotConfigured, "CAPTCHA_PRIVATE_KEY not configured")
		return
	}

	var req VerifyRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	ok, err := h.captcha.Verify(req.Secret, req.Answer)
	switch {
	case errors.Is(err, captcha.ErrMissingInput):
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Missing secret or answer")
		return
	case errors.Is(err, captcha.ErrInvalidToken):
		metrics.RecordCaptcha("invalid")
		middleware.Logger(r.Context(), h.logger).Warn("captcha token rejected",
			"error", err,
			"secret_length", len(req.Secret),
		)
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidSecret, "Invalid secret")
		return
	case errors.Is(err, captcha.ErrExpiredToken):
		metrics.RecordCaptcha("expired")
	case errors.Is(err, captcha.ErrTokenUsed):
		metrics.RecordCaptcha("replayed")
	case err != nil:
		middleware.Logger(r.Context(), h.logger).Error("captcha verification failed", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal server error")
		return
	case ok:
		metrics.RecordCaptcha("solved")
	default:
		metrics.RecordCaptcha("failed")
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": ok})
}
