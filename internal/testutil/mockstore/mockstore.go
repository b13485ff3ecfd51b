// Package mockstore provides a configurable mock implementation of storage.Storage for testing.
//
// The MockStorage type uses function fields for each method, allowing tests to customize behavior
// as needed while providing sensible defaults for methods that aren't customized.
package mockstore

import (
	"context"

	"github.com/pumpfoilmap/pfm-api/internal/spot"
	"github.com/pumpfoilmap/pfm-api/internal/storage"
)

// MockStorage is a configurable mock implementation of storage.Storage.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a sensible default value.
type MockStorage struct {
	CreateSpotFunc func(ctx context.Context, s *spot.Spot) error
	GetSpotFunc    func(ctx context.Context, id string) (*spot.Spot, error)
	ListSpotsFunc  func(ctx context.Context, f storage.ListFilter) ([]*spot.Spot, error)
	UpdateSpotFunc func(ctx context.Context, id string, mutate func(*spot.Spot)) (*spot.Spot, error)
	DeleteSpotFunc func(ctx context.Context, id string) error

	// Lifecycle
	PingFunc  func(ctx context.Context) error
	CloseFunc func() error
}

var _ storage.Storage = (*MockStorage)(nil)

// CreateSpot stores a new spot.
func (m *MockStorage) CreateSpot(ctx context.Context, s *spot.Spot) error {
	if m.CreateSpotFunc != nil {
		return m.CreateSpotFunc(ctx, s)
	}
	return nil
}

// GetSpot retrieves a spot by ID.
func (m *MockStorage) GetSpot(ctx context.Context, id string) (*spot.Spot, error) {
	if m.GetSpotFunc != nil {
		return m.GetSpotFunc(ctx, id)
	}
	return nil, storage.ErrNotFound
}

// ListSpots lists spots matching a filter.
func (m *MockStorage) ListSpots(ctx context.Context, f storage.ListFilter) ([]*spot.Spot, error) {
	if m.ListSpotsFunc != nil {
		return m.ListSpotsFunc(ctx, f)
	}
	return []*spot.Spot{}, nil
}

// UpdateSpot applies mutate to a stored spot.
func (m *MockStorage) UpdateSpot(ctx context.Context, id string, mutate func(*spot.Spot)) (*spot.Spot, error) {
	if m.UpdateSpotFunc != nil {
		return m.UpdateSpotFunc(ctx, id, mutate)
	}
	return nil, storage.ErrNotFound
}

// DeleteSpot deletes a spot by ID.
func (m *MockStorage) DeleteSpot(ctx context.Context, id string) error {
	if m.DeleteSpotFunc != nil {
		return m.DeleteSpotFunc(ctx, id)
	}
	return nil
}

// Ping checks storage connectivity.
func (m *MockStorage) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// Close releases storage resources.
func (m *MockStorage) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
