package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/pumpfoilmap/pfm-api/internal/spot"
)

// CreateSpot inserts a new spot.
// Returns ErrDuplicate if a spot with the same ID already exists.
func (s *SQLiteStorage) CreateSpot(ctx context.Context, sp *spot.Spot) error {
	data, err := json.Marshal(sp)
	if err != nil {
		return fmt.Errorf("failed to encode spot: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO spots (id, status, created_at, lat, lng, data) VALUES (?, ?, ?, ?, ?, ?)",
		sp.ID, string(sp.Status), sp.CreatedAt.UTC().Format(spot.TimeFormat), sp.Lat, sp.Lng, string(data))
	if err != nil {
		if isConstraintError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create spot: %w", err)
	}

	return nil
}

// GetSpot retrieves a spot by ID.
// Returns ErrNotFound if the spot doesn't exist.
func (s *SQLiteStorage) GetSpot(ctx context.Context, id string) (*spot.Spot, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM spots WHERE id = ?", id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get spot: %w", err)
	}
	return decodeSpot(data)
}

// ListSpots returns the spots matching f, newest first unless f.OldestFirst.
// Returns an empty slice if nothing matches.
func (s *SQLiteStorage) ListSpots(ctx context.Context, f ListFilter) ([]*spot.Spot, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.BBox != nil {
		where = append(where, "lng BETWEEN ? AND ?", "lat BETWEEN ? AND ?")
		args = append(args, f.BBox.MinLng, f.BBox.MaxLng, f.BBox.MinLat, f.BBox.MaxLat)
	}

	var q strings.Builder
	q.WriteString("SELECT data FROM spots")
	if len(where) > 0 {
		q.WriteString(" WHERE ")
		q.WriteString(strings.Join(where, " AND "))
	}
	if f.OldestFirst {
		q.WriteString(" ORDER BY created_at ASC, id ASC")
	} else {
		q.WriteString(" ORDER BY created_at DESC, id ASC")
	}
	if f.Limit > 0 {
		q.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list spots: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	spots := make([]*spot.Spot, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan spot: %w", err)
		}
		sp, err := decodeSpot(data)
		if err != nil {
			return nil, err
		}
		spots = append(spots, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating spot rows: %w", err)
	}

	return spots, nil
}

// UpdateSpot loads a spot, applies mutate and writes it back in one
// transaction, so concurrent updates to the same spot never interleave.
// The ID and creation time cannot be changed by mutate.
// Returns ErrNotFound if the spot doesn't exist.
func (s *SQLiteStorage) UpdateSpot(ctx context.Context, id string, mutate func(*spot.Spot)) (*spot.Spot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var data string
	err = tx.QueryRowContext(ctx, "SELECT data FROM spots WHERE id = ?", id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load spot: %w", err)
	}

	sp, err := decodeSpot(data)
	if err != nil {
		return nil, err
	}
	createdAt := sp.CreatedAt
	mutate(sp)
	sp.ID = id
	sp.CreatedAt = createdAt

	encoded, err := json.Marshal(sp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode spot: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE spots SET status = ?, lat = ?, lng = ?, data = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		string(sp.Status), sp.Lat, sp.Lng, string(encoded), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update spot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit spot update: %w", err)
	}

	return sp, nil
}

// DeleteSpot removes a spot.
// Returns ErrNotFound if the spot doesn't exist.
func (s *SQLiteStorage) DeleteSpot(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM spots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete spot: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func decodeSpot(data string) (*spot.Spot, error) {
	var sp spot.Spot
	if err := json.Unmarshal([]byte(data), &sp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return &sp, nil
}

// isConstraintError reports a UNIQUE or PRIMARY KEY violation.
func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		// Extended codes 2067 (UNIQUE) and 1555 (PRIMARY KEY) share base code 19
		return (sqliteErr.Code() & 0xFF) == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
