// Package api exposes the public submission, captcha and moderation routes.
package api

import (
	"log/slog"

	"github.com/pumpfoilmap/pfm-api/internal/auth"
	"github.com/pumpfoilmap/pfm-api/internal/captcha"
	"github.com/pumpfoilmap/pfm-api/internal/moderation"
)

// Handler serves every HTTP route of the service.
type Handler struct {
	spots    *moderation.Service
	captcha  *captcha.Service
	gate     *auth.Gate
	logger   *slog.Logger
	logLevel *slog.LevelVar
}

// NewHandler creates a handler. A nil captcha service makes the captcha
// routes answer 500 not_configured while every other route keeps working.
func NewHandler(spots *moderation.Service, captchaSvc *captcha.Service, gate *auth.Gate, logLevel *slog.LevelVar, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if logLevel == nil {
		logLevel = new(slog.LevelVar)
	}
	if gate == nil {
		gate = &auth.Gate{}
	}

	return &Handler{
		spots:    spots,
		captcha:  captchaSvc,
		gate:     gate,
		logger:   logger,
		logLevel: logLevel,
	}
}
