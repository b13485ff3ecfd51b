// Package storage persists spots in SQLite.
package storage

import (
	"context"

	"github.com/pumpfoilmap/pfm-api/internal/spot"
)

// Storage defines the persistence operations the moderation workflow needs.
type Storage interface {
	CreateSpot(ctx context.Context, s *spot.Spot) error
	GetSpot(ctx context.Context, id string) (*spot.Spot, error)
	ListSpots(ctx context.Context, f ListFilter) ([]*spot.Spot, error)
	UpdateSpot(ctx context.Context, id string, mutate func(*spot.Spot)) (*spot.Spot, error)
	DeleteSpot(ctx context.Context, id string) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

// ListFilter narrows a listing. Zero values mean no restriction.
type ListFilter struct {
	// Status restricts to one moderation state; empty lists every state.
	Status spot.Status
	// BBox restricts to spots inside the box.
	BBox *spot.BBox
	// Limit caps the number of rows returned; 0 means unlimited.
	Limit int
	// OldestFirst sorts by ascending creation time instead of newest first.
	OldestFirst bool
}

// UpdateFields merges an admin patch into the stored spot.
func UpdateFields(ctx context.Context, s Storage, id string, p *spot.Patch) (*spot.Spot, error) {
	return s.UpdateSpot(ctx, id, p.Apply)
}

// UpdateStatus sets the moderation status of a stored spot.
func UpdateStatus(ctx context.Context, s Storage, id string, status spot.Status) (*spot.Spot, error) {
	return s.UpdateSpot(ctx, id, func(sp *spot.Spot) { sp.Status = status })
}
