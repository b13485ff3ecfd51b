package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/pumpfoilmap/pfm-api/internal/spot"
)

// seedRecord is the loose format of seed files. Legacy exports use
// "title" for the name and "lon" for the longitude.
type seedRecord struct {
	SpotID       string   `json:"spotId"`
	Type         string   `json:"type"`
	Name         string   `json:"name"`
	Title        string   `json:"title"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	Lon          *float64 `json:"lon"`
	Description  string   `json:"description"`
	SubmittedBy  string   `json:"submittedBy"`
	ContactEmail string   `json:"contactEmail"`
	ImageURL     string   `json:"imageUrl"`
	CreatedAt    string   `json:"createdAt"`
	Status       string   `json:"status"`
	HeightCm     *float64 `json:"heightCm"`
	LengthM      *float64 `json:"lengthM"`
	Access       string   `json:"access"`
	Address      string   `json:"address"`
	URL          string   `json:"url"`
	Website      string   `json:"website"`
}

// ImportSeedFile loads spots from a JSON file holding either an array or an
// object with a "points" array. Records without usable coordinates are
// skipped, and records whose ID already exists are left untouched, so the
// import can run on every start. Records without an ID get one derived from
// their type, name and coordinates. Returns the number of spots inserted.
func (s *SQLiteStorage) ImportSeedFile(ctx context.Context, path string, now time.Time) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed file: %w", err)
	}

	records, err := parseSeed(raw)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for i := range records {
		sp, ok := records[i].toSpot(now)
		if !ok {
			continue
		}
		data, err := json.Marshal(sp)
		if err != nil {
			return inserted, fmt.Errorf("failed to encode seed spot: %w", err)
		}
		result, err := s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO spots (id, status, created_at, lat, lng, data) VALUES (?, ?, ?, ?, ?, ?)",
			sp.ID, string(sp.Status), sp.CreatedAt.Format(spot.TimeFormat), sp.Lat, sp.Lng, string(data))
		if err != nil {
			return inserted, fmt.Errorf("failed to insert seed spot %s: %w", sp.ID, err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			inserted++
		}
	}

	return inserted, nil
}

func parseSeed(raw []byte) ([]seedRecord, error) {
	var list []seedRecord
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Points []seedRecord `json:"points"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return wrapped.Points, nil
}

func (r *seedRecord) toSpot(now time.Time) (*spot.Spot, bool) {
	lng := r.Lng
	if lng == nil {
		lng = r.Lon
	}
	if r.Lat == nil || lng == nil || math.Abs(*r.Lat) > 90 || math.Abs(*lng) > 180 {
		return nil, false
	}

	sp := &spot.Spot{
		ID:           r.SpotID,
		Name:         firstNonEmpty(r.Name, r.Title, "Spot"),
		Lat:          *r.Lat,
		Lng:          *lng,
		Description:  r.Description,
		SubmittedBy:  firstNonEmpty(r.SubmittedBy, "seed"),
		ContactEmail: r.ContactEmail,
		ImageURL:     r.ImageURL,
		Status:       spot.StatusApproved,
		CreatedAt:    now.UTC().Truncate(time.Millisecond),
	}
	if sp.ID == "" {
		// Same record, same ID: re-imports are ignored instead of duplicated.
		key := fmt.Sprintf("pfm-seed:%s:%s:%s:%g:%g", r.Type, r.Name, r.Title, sp.Lat, sp.Lng)
		sp.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
	}
	if st, ok := spot.ParseStatus(r.Status); ok {
		sp.Status = st
	}
	if t, err := time.Parse(time.RFC3339Nano, r.CreatedAt); err == nil {
		sp.CreatedAt = t.UTC().Truncate(time.Millisecond)
	}

	if r.Type == string(spot.KindAssociation) {
		sp.Type = spot.KindAssociation
		sp.URL = firstNonEmpty(r.URL, r.Website)
	} else {
		sp.Type = spot.KindPonton
		sp.HeightCm = valueOr(r.HeightCm, 100)
		sp.LengthM = valueOr(r.LengthM, 1)
		sp.Access = spot.AccessAllowed
		if r.Access == string(spot.AccessTolerated) {
			sp.Access = spot.AccessTolerated
		}
		sp.Address = r.Address
	}

	return sp, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func valueOr(f *float64, def float64) float64 {
	if f == nil {
		return def
	}
	return *f
}
