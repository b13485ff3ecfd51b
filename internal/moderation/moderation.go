// Package moderation implements the spot lifecycle: public submission,
// admin approval, rejection, correction and deletion, and the listings
// built on top of them.
//
// Every state change is written through the repository first. Author and
// admin notifications are dispatched afterwards and can never change the
// outcome of the operation.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pumpfoilmap/pfm-api/internal/metrics"
	"github.com/pumpfoilmap/pfm-api/internal/notify"
	"github.com/pumpfoilmap/pfm-api/internal/spot"
	"github.com/pumpfoilmap/pfm-api/internal/storage"
)

var (
	// ErrNotFound is returned when the target spot does not exist.
	ErrNotFound = errors.New("spot not found")
	// ErrMissingID is returned when an operation is called without a spot ID.
	ErrMissingID = errors.New("missing spot id")
	// ErrEmptyPatch is returned when an update carries no allow-listed field.
	ErrEmptyPatch = errors.New("patch contains no updatable field")
	// ErrInvalidStatus is returned for an unknown status filter.
	ErrInvalidStatus = errors.New("status must be one of pending, approved, rejected, all")
)

// Listing limits.
const (
	DefaultListSize    = 1000
	MaxListSize        = 1000
	DefaultPendingSize = 20
	MaxPendingSize     = 100
	DefaultPublicLimit = 500
	MaxPublicLimit     = 1000
)

// Notifier delivers notifications. Dispatch is fire-and-forget; Send is
// used only when the caller explicitly asked for an email.
type Notifier interface {
	Dispatch(msg notify.Message)
	Send(ctx context.Context, msg notify.Message) (notify.Result, error)
}

// Receipt acknowledges a submission.
type Receipt struct {
	SpotID    string      `json:"spotId"`
	Status    spot.Status `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Service runs moderation operations against a repository.
type Service struct {
	store     storage.Storage
	notifier  Notifier
	templates notify.Templates
	logger    *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewService creates a Service. templates.AdminMail may be empty, in which
// case admin notifications are skipped and SendAdminMail fails.
func NewService(store storage.Storage, notifier Notifier, templates notify.Templates, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		notifier:  notifier,
		templates: templates,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Submit validates a public submission and stores it as pending.
// Any status the client sent is ignored.
func (s *Service) Submit(ctx context.Context, in *spot.CreateInput) (*Receipt, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	sp := spot.New(in, s.newID(), s.now())
	if err := s.store.CreateSpot(ctx, sp); err != nil {
		return nil, fmt.Errorf("failed to store submission: %w", err)
	}
	metrics.RecordTransition(string(spot.StatusPending))

	s.logger.Info("Spot submitted",
		"spot_id", sp.ID,
		"type", sp.Type,
		"has_contact", sp.ContactEmail != "",
	)

	if s.templates.AdminMail != "" {
		s.notifier.Dispatch(s.templates.AdminNewSubmission(sp))
	}
	if sp.ContactEmail != "" {
		s.notifier.Dispatch(s.templates.AuthorReceived(sp))
	}

	return &Receipt{SpotID: sp.ID, Status: sp.Status, CreatedAt: sp.CreatedAt}, nil
}

// Approve sets the spot status to approved.
func (s *Service) Approve(ctx context.Context, id string) (*spot.Spot, error) {
	return s.SetStatus(ctx, id, spot.StatusApproved)
}

// Reject sets the spot status to rejected.
func (s *Service) Reject(ctx context.Context, id string) (*spot.Spot, error) {
	return s.SetStatus(ctx, id, spot.StatusRejected)
}

// SetStatus writes any valid status. There is no terminal state: the last
// write wins.
func (s *Service) SetStatus(ctx context.Context, id string, status spot.Status) (*spot.Spot, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	sp, err := storage.UpdateStatus(ctx, s.store, id, status)
	if err != nil {
		return nil, s.mapStoreErr(err)
	}
	metrics.RecordTransition(string(status))

	s.logger.Info("Spot status changed", "spot_id", id, "status", status)

	if sp.ContactEmail != "" {
		s.notifier.Dispatch(s.templates.AuthorStatus(sp))
	}
	return sp, nil
}

// Update merges an allow-listed patch into the spot. A patch that sets
// status is also counted as a transition.
func (s *Service) Update(ctx context.Context, id string, p *spot.Patch) (*spot.Spot, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if p == nil || p.Empty() {
		return nil, ErrEmptyPatch
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	sp, err := storage.UpdateFields(ctx, s.store, id, p)
	if err != nil {
		return nil, s.mapStoreErr(err)
	}
	if p.Status != nil {
		metrics.RecordTransition(string(*p.Status))
	}

	s.logger.Info("Spot updated", "spot_id", id, "fields", p.Fields())

	if sp.ContactEmail != "" {
		s.notifier.Dispatch(s.templates.AuthorUpdated(sp, p))
	}
	return sp, nil
}

// Delete removes the spot permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}

	// Load first so the author can still be told once the record is gone.
	sp, err := s.store.GetSpot(ctx, id)
	if err != nil {
		return s.mapStoreErr(err)
	}
	if err := s.store.DeleteSpot(ctx, id); err != nil {
		return s.mapStoreErr(err)
	}

	s.logger.Info("Spot deleted", "spot_id", id)

	if sp.ContactEmail != "" {
		s.notifier.Dispatch(s.templates.AuthorDeleted(sp))
	}
	return nil
}

// List returns spots newest first, filtered by status ("", "all" or a
// status name). size is clamped to [1, MaxListSize], defaulting to
// DefaultListSize.
func (s *Service) List(ctx context.Context, status string, size int) ([]*spot.Spot, error) {
	f := storage.ListFilter{Limit: clamp(size, DefaultListSize, MaxListSize)}
	if status != "" && status != "all" {
		st, ok := spot.ParseStatus(status)
		if !ok {
			return nil, ErrInvalidStatus
		}
		f.Status = st
	}
	return s.list(ctx, f)
}

// ListPending returns the moderation queue, oldest first.
func (s *Service) ListPending(ctx context.Context, size int) ([]*spot.Spot, error) {
	return s.list(ctx, storage.ListFilter{
		Status:      spot.StatusPending,
		Limit:       clamp(size, DefaultPendingSize, MaxPendingSize),
		OldestFirst: true,
	})
}

// ListPublic returns approved spots for the map, optionally inside bbox.
func (s *Service) ListPublic(ctx context.Context, bbox *spot.BBox, limit int) ([]*spot.Spot, error) {
	return s.list(ctx, storage.ListFilter{
		Status: spot.StatusApproved,
		BBox:   bbox,
		Limit:  clamp(limit, DefaultPublicLimit, MaxPublicLimit),
	})
}

func (s *Service) list(ctx context.Context, f storage.ListFilter) ([]*spot.Spot, error) {
	spots, err := s.store.ListSpots(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list spots: %w", err)
	}
	return spots, nil
}

// SendAdminMail sends a message to the admin mailbox and waits for the
// result. Empty subject or message get default texts.
func (s *Service) SendAdminMail(ctx context.Context, subject, message string) (notify.Result, error) {
	if s.templates.AdminMail == "" {
		return notify.Result{}, notify.ErrNotConfigured
	}
	return s.notifier.Send(ctx, s.templates.AdminCustom(subject, message))
}

// Ping reports whether the repository is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) mapStoreErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func clamp(n, def, limit int) int {
	if n <= 0 {
		return def
	}
	if n > limit {
		return limit
	}
	return n
}
