package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pumpfoilmap/pfm-api/internal/spot"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var baseTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func testSpot(id string, status spot.Status, offset time.Duration) *spot.Spot {
	return &spot.Spot{
		ID:          id,
		Type:        spot.KindPonton,
		Name:        "Spot " + id,
		Lat:         48.85,
		Lng:         2.35,
		SubmittedBy: "tester",
		CreatedAt:   baseTime.Add(offset),
		Status:      status,
		HeightCm:    120,
		LengthM:     6,
		Access:      spot.AccessAllowed,
		Address:     "Quai",
	}
}

func TestNew(t *testing.T) {
	s := newTestStorage(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestNew_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spots.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	if err := s.CreateSpot(ctx, testSpot("a", spot.StatusPending, 0)); err != nil {
		t.Fatalf("CreateSpot failed: %v", err)
	}
	_ = s.Close()

	// Reopen and read back.
	s, err = New(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = s.Close() }()
	if _, err := s.GetSpot(ctx, "a"); err != nil {
		t.Fatalf("GetSpot after reopen failed: %v", err)
	}
}

func TestCreateAndGetSpot(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	in := testSpot("abc", spot.StatusPending, 0)
	in.ContactEmail = "a@example.org"
	if err := s.CreateSpot(ctx, in); err != nil {
		t.Fatalf("CreateSpot failed: %v", err)
	}

	got, err := s.GetSpot(ctx, "abc")
	if err != nil {
		t.Fatalf("GetSpot failed: %v", err)
	}
	if !got.CreatedAt.Equal(in.CreatedAt) {
		t.Errorf("createdAt = %v, want %v", got.CreatedAt, in.CreatedAt)
	}
	got.CreatedAt = in.CreatedAt
	if *got != *in {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", *got, *in)
	}
}

func TestCreateSpot_Duplicate(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.CreateSpot(ctx, testSpot("dup", spot.StatusPending, 0)); err != nil {
		t.Fatalf("CreateSpot failed: %v", err)
	}
	err := s.CreateSpot(ctx, testSpot("dup", spot.StatusPending, time.Second))
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestGetSpot_NotFound(t *testing.T) {
	s := newTestStorage(t)
	if _, err := s.GetSpot(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListSpots(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	fixtures := []*spot.Spot{
		testSpot("p1", spot.StatusPending, 1*time.Minute),
		testSpot("a1", spot.StatusApproved, 2*time.Minute),
		testSpot("p2", spot.StatusPending, 3*time.Minute),
		testSpot("r1", spot.StatusRejected, 4*time.Minute),
	}
	far := testSpot("a2", spot.StatusApproved, 5*time.Minute)
	far.Lat, far.Lng = -33.9, 151.2
	fixtures = append(fixtures, far)

	for _, sp := range fixtures {
		if err := s.CreateSpot(ctx, sp); err != nil {
			t.Fatalf("CreateSpot(%s) failed: %v", sp.ID, err)
		}
	}

	paris := &spot.BBox{MinLng: 2, MinLat: 48, MaxLng: 3, MaxLat: 49}

	tests := []struct {
		name   string
		filter ListFilter
		want   []string
	}{
		{"all newest first", ListFilter{}, []string{"a2", "r1", "p2", "a1", "p1"}},
		{"limit", ListFilter{Limit: 2}, []string{"a2", "r1"}},
		{"pending", ListFilter{Status: spot.StatusPending}, []string{"p2", "p1"}},
		{"pending oldest first", ListFilter{Status: spot.StatusPending, OldestFirst: true}, []string{"p1", "p2"}},
		{"approved", ListFilter{Status: spot.StatusApproved}, []string{"a2", "a1"}},
		{"approved in bbox", ListFilter{Status: spot.StatusApproved, BBox: paris}, []string{"a1"}},
		{"rejected", ListFilter{Status: spot.StatusRejected}, []string{"r1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListSpots(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListSpots failed: %v", err)
			}
			ids := make([]string, len(got))
			for i, sp := range got {
				ids[i] = sp.ID
			}
			if fmt.Sprint(ids) != fmt.Sprint(tt.want) {
				t.Errorf("got %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestListSpots_Empty(t *testing.T) {
	s := newTestStorage(t)
	got, err := s.ListSpots(context.Background(), ListFilter{})
	if err != nil {
		t.Fatalf("ListSpots failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestUpdateSpot(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.CreateSpot(ctx, testSpot("u", spot.StatusPending, 0)); err != nil {
		t.Fatalf("CreateSpot failed: %v", err)
	}

	updated, err := s.UpdateSpot(ctx, "u", func(sp *spot.Spot) {
		sp.Status = spot.StatusApproved
		sp.Description = "checked"
		sp.ID = "hijack"
		sp.CreatedAt = time.Time{}
	})
	if err != nil {
		t.Fatalf("UpdateSpot failed: %v", err)
	}
	if updated.ID != "u" || !updated.CreatedAt.Equal(baseTime) {
		t.Errorf("identity changed: %+v", updated)
	}

	got, err := s.GetSpot(ctx, "u")
	if err != nil {
		t.Fatalf("GetSpot failed: %v", err)
	}
	if got.Status != spot.StatusApproved || got.Description != "checked" {
		t.Errorf("update not persisted: %+v", got)
	}

	approved, _ := s.ListSpots(ctx, ListFilter{Status: spot.StatusApproved})
	if len(approved) != 1 {
		t.Errorf("status column not updated, approved=%d", len(approved))
	}
}

func TestUpdateSpot_NotFound(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.UpdateSpot(context.Background(), "missing", func(*spot.Spot) {})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateSpot_InvalidStatusRollsBack(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	if err := s.CreateSpot(ctx, testSpot("x", spot.StatusPending, 0)); err != nil {
		t.Fatalf("CreateSpot failed: %v", err)
	}

	_, err := s.UpdateSpot(ctx, "x", func(sp *spot.Spot) { sp.Status = "archived" })
	if err == nil {
		t.Fatal("expected CHECK constraint failure")
	}

	got, _ := s.GetSpot(ctx, "x")
	if got.Status != spot.StatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
}

func TestUpdateSpot_Concurrent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	if err := s.CreateSpot(ctx, testSpot("c", spot.StatusPending, 0)); err != nil {
		t.Fatalf("CreateSpot failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateSpot(ctx, "c", func(sp *spot.Spot) { sp.HeightCm++ })
			if err != nil {
				t.Errorf("UpdateSpot failed: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := s.GetSpot(ctx, "c")
	if got.HeightCm != 140 {
		t.Errorf("HeightCm = %v, want 140 (lost update)", got.HeightCm)
	}
}

func TestDeleteSpot(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	if err := s.CreateSpot(ctx, testSpot("d", spot.StatusApproved, 0)); err != nil {
		t.Fatalf("CreateSpot failed: %v", err)
	}

	if err := s.DeleteSpot(ctx, "d"); err != nil {
		t.Fatalf("DeleteSpot failed: %v", err)
	}
	if _, err := s.GetSpot(ctx, "d"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteSpot(ctx, "d"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestGetSpot_CorruptRecord(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO spots (id, status, created_at, lat, lng, data) VALUES ('bad', 'pending', '2026', 0, 0, '{not json')")
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := s.GetSpot(ctx, "bad"); !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("expected ErrCorruptRecord, got %v", err)
	}
}

func TestPing_Closed(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_ = s.Close()
	if err := s.Ping(context.Background()); err == nil {
		t.Error("expected error on closed database")
	}
}

func TestImportSeedFile(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "spots.json")
	content := `{"points":[
		{"spotId":"s1","title":"Legacy","lat":45.1,"lon":5.7},
		{"spotId":"s2","type":"association","name":"Club","lat":43.3,"lng":5.4,"website":"https://club.example","status":"pending","createdAt":"2025-06-01T10:00:00Z"},
		{"name":"No coords"},
		{"name":"Off the globe","lat":95,"lng":0}
	]}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write seed failed: %v", err)
	}

	n, err := s.ImportSeedFile(ctx, path, baseTime)
	if err != nil {
		t.Fatalf("ImportSeedFile failed: %v", err)
	}
	if n != 2 {
		t.Errorf("inserted %d, want 2", n)
	}

	legacy, err := s.GetSpot(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSpot(s1) failed: %v", err)
	}
	if legacy.Name != "Legacy" || legacy.Lng != 5.7 || legacy.Status != spot.StatusApproved ||
		legacy.Type != spot.KindPonton || legacy.HeightCm != 100 || legacy.LengthM != 1 ||
		legacy.Access != spot.AccessAllowed || legacy.SubmittedBy != "seed" || !legacy.CreatedAt.Equal(baseTime) {
		t.Errorf("unexpected legacy seed: %+v", legacy)
	}

	club, err := s.GetSpot(ctx, "s2")
	if err != nil {
		t.Fatalf("GetSpot(s2) failed: %v", err)
	}
	if club.URL != "https://club.example" || club.Status != spot.StatusPending ||
		!club.CreatedAt.Equal(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected association seed: %+v", club)
	}

	// A second import leaves existing rows alone.
	n, err = s.ImportSeedFile(ctx, path, baseTime)
	if err != nil {
		t.Fatalf("second ImportSeedFile failed: %v", err)
	}
	if n != 0 {
		t.Errorf("second import inserted %d, want 0", n)
	}
}

func TestImportSeedFile_Array(t *testing.T) {
	s := newTestStorage(t)
	path := filepath.Join(t.TempDir(), "spots.json")
	if err := os.WriteFile(path, []byte(`[{"lat":1,"lng":2},{"lat":3,"lng":4}]`), 0o600); err != nil {
		t.Fatalf("write seed failed: %v", err)
	}
	n, err := s.ImportSeedFile(context.Background(), path, baseTime)
	if err != nil || n != 2 {
		t.Fatalf("ImportSeedFile = %d, %v; want 2, nil", n, err)
	}
}

func TestImportSeedFile_WithoutIDIsIdempotent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "spots.json")
	content := `{"points":[{"title":"No id","lat":45.1,"lon":5.7},{"title":"Other","lat":45.2,"lon":5.8}]}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write seed failed: %v", err)
	}

	first, err := s.ImportSeedFile(ctx, path, baseTime)
	if err != nil {
		t.Fatalf("ImportSeedFile failed: %v", err)
	}
	second, err := s.ImportSeedFile(ctx, path, baseTime.Add(time.Hour))
	if err != nil {
		t.Fatalf("second ImportSeedFile failed: %v", err)
	}
	if first != 2 || second != 0 {
		t.Errorf("imports inserted %d then %d, want 2 then 0", first, second)
	}

	all, err := s.ListSpots(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("ListSpots failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("got %d rows after two imports, want 2", len(all))
	}
}

func TestImportSeedFile_Errors(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if _, err := s.ImportSeedFile(ctx, filepath.Join(t.TempDir(), "missing.json"), baseTime); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	_ = os.WriteFile(path, []byte("not json"), 0o600)
	if _, err := s.ImportSeedFile(ctx, path, baseTime); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestUpdateHelpers(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	if err := s.CreateSpot(ctx, testSpot("h", spot.StatusPending, 0)); err != nil {
		t.Fatalf("CreateSpot failed: %v", err)
	}

	sp, err := UpdateStatus(ctx, s, "h", spot.StatusRejected)
	if err != nil || sp.Status != spot.StatusRejected {
		t.Fatalf("UpdateStatus = %+v, %v", sp, err)
	}

	desc := "new"
	sp, err = UpdateFields(ctx, s, "h", &spot.Patch{Description: &desc})
	if err != nil {
		t.Fatalf("UpdateFields failed: %v", err)
	}
	if sp.Description != "new" || sp.Status != spot.StatusRejected || sp.HeightCm != 120 || sp.Access != spot.AccessAllowed {
		t.Errorf("patch changed other fields: %+v", sp)
	}

	if _, err := UpdateStatus(ctx, s, "missing", spot.StatusApproved); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
