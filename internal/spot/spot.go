// Package spot defines the crowdsourced points of interest and their
// moderation attributes.
package spot

import (
	"strings"
	"time"
)

// Status is the moderation state of a spot.
type Status string

const (
	// StatusPending is the state of every newly submitted spot.
	StatusPending Status = "pending"
	// StatusApproved spots are shown on the public map.
	StatusApproved Status = "approved"
	// StatusRejected spots are kept but hidden.
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ParseStatus parses a status name case-insensitively.
func ParseStatus(v string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	return s, s.Valid()
}

// Kind discriminates the spot variants.
type Kind string

const (
	// KindPonton is a physical pontoon or dock.
	KindPonton Kind = "ponton"
	// KindAssociation is a club or organisation.
	KindAssociation Kind = "association"
)

// Access classifies whether launching from a ponton is allowed.
type Access string

const (
	// AccessAllowed means launching is explicitly authorised.
	AccessAllowed Access = "autorise"
	// AccessTolerated means launching is tolerated.
	AccessTolerated Access = "tolere"
)

// TimeFormat is the layout of CreatedAt in storage. It sorts lexically.
const TimeFormat = "2006-01-02T15:04:05.000Z"

// Spot is a submitted point of interest.
type Spot struct {
	ID             string    `json:"spotId"`
	Type           Kind      `json:"type"`
	Name           string    `json:"name"`
	Lat            float64   `json:"lat"`
	Lng            float64   `json:"lng"`
	Description    string    `json:"description,omitempty"`
	SubmittedBy    string    `json:"submittedBy"`
	ContactEmail   string    `json:"contactEmail,omitempty"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	Status         Status    `json:"status"`
	ModerationNote string    `json:"moderationNote,omitempty"`

	// Ponton attributes.
	HeightCm float64 `json:"heightCm,omitempty"`
	LengthM  float64 `json:"lengthM,omitempty"`
	Access   Access  `json:"access,omitempty"`
	Address  string  `json:"address,omitempty"`

	// Association attributes.
	URL     string `json:"url,omitempty"`
	Website string `json:"website,omitempty"`
}

// New builds a pending spot from a validated submission.
// Fields that do not belong to the submitted variant are dropped.
func New(in *CreateInput, id string, now time.Time) *Spot {
	s := &Spot{
		ID:           id,
		Type:         in.Type,
		Name:         in.Name,
		Lat:          deref(in.Lat),
		Lng:          deref(in.Lng),
		Description:  in.Description,
		SubmittedBy:  in.SubmittedBy,
		ContactEmail: in.ContactEmail,
		ImageURL:     in.ImageURL,
		CreatedAt:    now.UTC().Truncate(time.Millisecond),
		Status:       StatusPending,
	}

	switch in.Type {
	case KindPonton:
		s.HeightCm = deref(in.HeightCm)
		s.LengthM = deref(in.LengthM)
		s.Access = in.Access
		s.Address = in.Address
	case KindAssociation:
		s.URL = in.URL
		s.Website = in.Website
	}
	return s
}

// InBox reports whether the spot lies inside b.
func (s *Spot) InBox(b BBox) bool {
	return s.Lng >= b.MinLng && s.Lng <= b.MaxLng && s.Lat >= b.MinLat && s.Lat <= b.MaxLat
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
