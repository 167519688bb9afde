package domain

import (
	"errors"
	"testing"
	"time"
)

func day(offset int) time.Time {
	base := time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func testConfig(rooms ...RoomID) Config {
	return Config{RoomOrder: rooms, ReferenceStart: day(0), Location: time.UTC}
}

func TestActiveRoomsPreservesOrder(t *testing.T) {
	order := []RoomID{301, 303, 305, 307, 309}
	skipped := NewRoomSet(303, 309)

	active := ActiveRooms(order, skipped)

	want := []RoomID{301, 305, 307}
	if len(active) != len(want) {
		t.Fatalf("expected %d active rooms, got %d", len(want), len(active))
	}
	for i, room := range want {
		if active[i] != room {
			t.Fatalf("active[%d] = %d, want %d", i, active[i], room)
		}
	}
	for _, room := range active {
		if skipped.Has(room) {
			t.Fatalf("skipped room %d leaked into active list", room)
		}
	}
}

func TestActiveRoomsFullOrderWhenNothingSkipped(t *testing.T) {
	active := ActiveRooms(DefaultRoomOrder, NewRoomSet())
	if len(active) != 27 {
		t.Fatalf("expected 27 active rooms, got %d", len(active))
	}
}

func TestComputeRoomIndexConcrete(t *testing.T) {
	// roomOrder [301 303 305], day0 + 4 days -> 4 mod 3 = 1 -> 303.
	idx, err := ComputeRoomIndex(day(0), day(4), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 1 {
		t.Fatalf("expected index 1, got %d", idx)
	}
	room, ok := CurrentRoom([]RoomID{301, 303, 305}, idx)
	if !ok || room != 303 {
		t.Fatalf("expected room 303, got %d (ok=%v)", room, ok)
	}
}

func TestComputeRoomIndexPeriodic(t *testing.T) {
	const k = 27
	for offset := 0; offset < 5; offset++ {
		before, err := ComputeRoomIndex(day(0), day(offset), k)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		after, err := ComputeRoomIndex(day(0), day(offset+k), k)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if before != after {
			t.Fatalf("index not periodic: day %d -> %d, day %d -> %d", offset, before, offset+k, after)
		}
	}
}

func TestComputeRoomIndexBeforeStart(t *testing.T) {
	idx, err := ComputeRoomIndex(day(0), day(-1), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx < 0 || idx >= 3 {
		t.Fatalf("index %d outside [0,3)", idx)
	}
}

func TestComputeRoomIndexIgnoresTimeOfDay(t *testing.T) {
	noon := day(4).Add(12 * time.Hour)
	idx, err := ComputeRoomIndex(day(0), noon, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 1 {
		t.Fatalf("expected index 1 at noon of day 4, got %d", idx)
	}
}

func TestComputeRoomIndexDegenerate(t *testing.T) {
	_, err := ComputeRoomIndex(day(0), day(10), 0)
	if !errors.Is(err, ErrDegenerateRotation) {
		t.Fatalf("expected ErrDegenerateRotation, got %v", err)
	}
}

func TestCurrentRoomFallbacks(t *testing.T) {
	active := []RoomID{301, 305}

	if room, ok := CurrentRoom(active, 5); !ok || room != 301 {
		t.Fatalf("out-of-range index should fall back to head, got %d (ok=%v)", room, ok)
	}
	if room, ok := CurrentRoom(active, -1); !ok || room != 301 {
		t.Fatalf("negative index should fall back to head, got %d (ok=%v)", room, ok)
	}
	if _, ok := CurrentRoom(nil, 0); ok {
		t.Fatal("empty active list must report no current room")
	}
}

func TestSkipAllRoomsIsDegenerateNotPanic(t *testing.T) {
	cfg := testConfig(301, 303, 305)
	skipped := NewRoomSet(301, 303, 305)

	active := cfg.ActiveRooms(skipped)
	if len(active) != 0 {
		t.Fatalf("expected empty active list, got %v", active)
	}
	if _, err := ComputeRoomIndex(cfg.ReferenceStart, day(9), len(active)); !errors.Is(err, ErrDegenerateRotation) {
		t.Fatalf("expected ErrDegenerateRotation, got %v", err)
	}
	if _, ok := CurrentRoom(active, 0); ok {
		t.Fatal("expected the NONE sentinel for an empty rotation")
	}
}

func TestSkipCurrentRoomShiftsIndexIntoRange(t *testing.T) {
	cfg := testConfig(301, 303, 305)
	state := NewSystemState(day(4))
	if err := state.Recompute(cfg, day(4)); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	room, _ := CurrentRoom(cfg.ActiveRooms(state.SkippedRooms), state.CurrentRoomIndex)
	if room != 303 {
		t.Fatalf("expected 303 before skip, got %d", room)
	}

	state.SkippedRooms.Add(303)
	if err := state.Recompute(cfg, day(4)); err != nil {
		t.Fatalf("recompute after skip: %v", err)
	}
	active := cfg.ActiveRooms(state.SkippedRooms)
	if state.CurrentRoomIndex < 0 || state.CurrentRoomIndex >= len(active) {
		t.Fatalf("index %d outside [0,%d)", state.CurrentRoomIndex, len(active))
	}
	room, ok := CurrentRoom(active, state.CurrentRoomIndex)
	if !ok {
		t.Fatal("expected a current room")
	}
	if room == 303 {
		t.Fatal("skipped room is still current")
	}
	if room != 301 && room != 305 {
		t.Fatalf("current room %d is not a member of the active list", room)
	}
}

func TestRoomSetJSONSortedRoundTrip(t *testing.T) {
	set := NewRoomSet(342, 301, 310)
	data, err := set.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "[301,310,342]" {
		t.Fatalf("expected sorted array, got %s", data)
	}
	var decoded RoomSet
	if err := decoded.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, room := range []RoomID{301, 310, 342} {
		if !decoded.Has(room) {
			t.Fatalf("decoded set missing %d", room)
		}
	}
}
