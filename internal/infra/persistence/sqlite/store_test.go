package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"dutyroster/pkg/domain"
)

func testConfig() domain.Config {
	return domain.Config{
		RoomOrder:      []domain.RoomID{301, 303, 305},
		ReferenceStart: time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC),
		Location:       time.UTC,
	}
}

func testSnapshot() domain.Snapshot {
	state := domain.NewSystemState(time.Date(2025, time.November, 5, 8, 0, 0, 0, time.UTC))
	state.SkippedRooms.Add(305)
	state.AppendCleaning(domain.CleaningRecord{ID: "r1", Room: 301, Date: state.CurrentDate, EvidenceKey: "photos/abc"})
	state.CurrentRoomIndex = 1
	return domain.SnapshotOf(state)
}

func TestLoadEmptyDatabase(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "roster.db"), testConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = store.Close() }()

	_, ok, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatal("expected no snapshot in a fresh database")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "roster.db")
	store, err := New(path, testConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = store.Close() }()

	want := testSnapshot()
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatal("expected a snapshot")
	}
	if got.CurrentRoomIndex != want.CurrentRoomIndex {
		t.Fatalf("index: got %d want %d", got.CurrentRoomIndex, want.CurrentRoomIndex)
	}
	if len(got.SkippedRooms) != 1 || got.SkippedRooms[0] != 305 {
		t.Fatalf("skipped rooms: %v", got.SkippedRooms)
	}
	if len(got.CleaningHistory) != 1 || got.CleaningHistory[0].EvidenceKey != "photos/abc" {
		t.Fatalf("history: %+v", got.CleaningHistory)
	}
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	store, err := New(filepath.Join(t.TempDir(), "roster.db"), testConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = store.Close() }()

	first := testSnapshot()
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	second := first
	second.CurrentRoomIndex = 2
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	got, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.CurrentRoomIndex != 2 {
		t.Fatalf("expected replacement, got index %d", got.CurrentRoomIndex)
	}
}

func TestCorruptPayloadFailsClosed(t *testing.T) {
	ctx := context.Background()
	store, err := New(filepath.Join(t.TempDir(), "roster.db"), testConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = store.Close() }()

	if _, err := store.DB().ExecContext(ctx,
		`INSERT INTO roster_state(id, payload, saved_at) VALUES(1, ?, ?)`,
		[]byte("{broken"), "2025-11-05T00:00:00Z"); err != nil {
		t.Fatalf("seed corrupt row: %v", err)
	}

	_, _, err = store.Load(ctx)
	if !errors.Is(err, domain.ErrMalformedSnapshot) {
		t.Fatalf("expected ErrMalformedSnapshot, got %v", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "roster.db")

	store, err := New(path, testConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := store.Save(ctx, testSnapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := New(path, testConfig())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	_, ok, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if !ok {
		t.Fatal("snapshot did not survive reopen")
	}
}
