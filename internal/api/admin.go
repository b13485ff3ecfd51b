package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pumpfoilmap/pfm-api/internal/logging"
	"github.com/pumpfoilmap/pfm-api/internal/middleware"
	"github.com/pumpfoilmap/pfm-api/internal/spot"
)

// CheckMD5Request is the body of POST /admin/check-md5.
type CheckMD5Request struct {
	MD5 string `json:"md5"`
}

// CheckMD5Response reports whether a digest matches the admin secret.
type CheckMD5Response struct {
	Match   bool   `json:"match"`
	Message string `json:"message,omitempty"`
}

// HandleCheckMD5 compares a digest with the admin secret without
// requiring authentication.
// GET|POST /admin/check-md5?md5=
// Body: {"md5": "..."}
func (h *Handler) HandleCheckMD5(w http.ResponseWriter, r *http.Request) {
	var req CheckMD5Request
	if r.Method == http.MethodPost && !decodeJSON(w, r, &req, true) {
		return
	}
	digest := strings.TrimSpace(req.MD5)
	if digest == "" {
		digest = strings.TrimSpace(r.URL.Query().Get("md5"))
	}
	if digest == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Missing md5")
		return
	}

	if !h.gate.Configured() {
		writeJSON(w, http.StatusOK, CheckMD5Response{Match: false, Message: "ADMIN_TOKEN not configured"})
		return
	}
	writeJSON(w, http.StatusOK, CheckMD5Response{Match: h.gate.Match(digest)})
}

// HandleAdminList lists spots for moderation, newest first.
// GET /admin/spots?status=pending|approved|rejected|all&size=
func (h *Handler) HandleAdminList(w http.ResponseWriter, r *http.Request) {
	items, err := h.spots.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("status")), queryInt(r, "size"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Items: items, Count: len(items)})
}

// HandleAdminPending returns the moderation queue, oldest first.
// GET /admin/spots/pending?size=
func (h *Handler) HandleAdminPending(w http.ResponseWriter, r *http.Request) {
	items, err := h.spots.ListPending(r.Context(), queryInt(r, "size"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Items: items, Count: len(items)})
}

// HandleAdminUpdate applies an allow-listed patch. Unknown keys are ignored.
// PATCH /admin/spots/{id}
func (h *Handler) HandleAdminUpdate(w http.ResponseWriter, r *http.Request) {
	var p spot.Patch
	if !decodeJSON(w, r, &p, true) {
		return
	}

	updated, err := h.spots.Update(r.Context(), chi.URLParam(r, "id"), &p)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// HandleAdminDelete removes a spot.
// DELETE /admin/spots/{id}
func (h *Handler) HandleAdminDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.spots.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StatusResponse is returned by approve and reject.
type StatusResponse struct {
	SpotID string      `json:"spotId"`
	Status spot.Status `json:"status"`
}

// HandleApprove marks a spot approved.
// POST /admin/spots/{id}/approve
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, spot.StatusApproved)
}

// HandleReject marks a spot rejected.
// POST /admin/spots/{id}/reject
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, spot.StatusRejected)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, status spot.Status) {
	sp, err := h.spots.SetStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{SpotID: sp.ID, Status: sp.Status})
}

// SendMailRequest is the body of POST /admin/send-mail. Empty fields get
// default texts.
type SendMailRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// HandleSendMail sends a message to the admin mailbox and waits for the result.
// POST /admin/send-mail
func (h *Handler) HandleSendMail(w http.ResponseWriter, r *http.Request) {
	var req SendMailRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	res, err := h.spots.SendAdminMail(r.Context(), req.Subject, req.Message)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "messageId": res.MessageID})
}

// SetLogLevelRequest is the request body for POST /admin/loglevel
type SetLogLevelRequest struct {
	Level string `json:"level"`
}

// HandleSetLogLevel changes runtime log level
// POST /admin/loglevel
// Body: {"level": "debug|info|warn|error"}
func (h *Handler) HandleSetLogLevel(w http.ResponseWriter, r *http.Request) {
	var req SetLogLevelRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	level, err := logging.ParseLevel(req.Level)
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid level (must be: debug, info, warn, error)")
		return
	}

	h.logLevel.Set(level)
	middleware.Logger(r.Context(), h.logger).Info("log level changed", "new_level", level.String())

	writeJSON(w, http.StatusOK, map[string]string{"level": strings.ToLower(level.String())})
}
