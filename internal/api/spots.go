package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/pumpfoilmap/pfm-api/internal/spot"
)

// ListResponse wraps a page of spots.
type ListResponse struct {
	Items []*spot.Spot `json:"items"`
	Count int          `json:"count"`
}

// HandleListPublic returns approved spots for the map.
// GET /spots?bbox=minLng,minLat,maxLng,maxLat&limit=
func (h *Handler) HandleListPublic(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var bbox *spot.BBox
	if raw := strings.TrimSpace(q.Get("bbox")); raw != "" {
		b, err := spot.ParseBBox(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
			return
		}
		bbox = &b
	}

	items, err := h.spots.ListPublic(r.Context(), bbox, queryInt(r, "limit"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Items: items, Count: len(items)})
}

// HandleSubmit accepts a public submission. The spot is always stored as
// pending, whatever status the client sent.
// POST /spots/submit
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var in spot.CreateInput
	if !decodeJSON(w, r, &in, false) {
		return
	}

	receipt, err := h.spots.Submit(r.Context(), &in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, receipt)
}

// queryInt parses a numeric query parameter. Missing or malformed values
// yield 0, which the service treats as "use the default".
func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(name)))
	if err != nil {
		return 0
	}
	return n
}
