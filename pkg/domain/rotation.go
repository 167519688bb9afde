// Package domain defines the rotation engine, cleaning ledger, system state,
// and snapshot codec for the dormitory kitchen-cleaning duty roster.
package domain

import (
	"encoding/json"
	"math"
	"sort"
	"time"
)

// RoomID identifies a dormitory room participating in the rotation.
type RoomID int

// DefaultRoomOrder is the deployment's fixed rotation order. It is not
// user-editable; skip and rejoin only change membership, never order.
var DefaultRoomOrder = []RoomID{
	301, 303, 305, 307, 309, 311,
	302, 304, 306, 308, 310, 312, 314, 316, 318, 320,
	322, 324, 326, 328, 330, 332, 334, 336, 338, 340, 342,
}

// DefaultReferenceStart anchors the date-driven rotation. Day zero of the
// rotation is this calendar date; every following day advances the index by one.
var DefaultReferenceStart = time.Date(2025, time.November, 1, 0, 0, 0, 0, time.Local)

// Config carries the deployment constants the rotation engine computes against.
type Config struct {
	RoomOrder      []RoomID
	ReferenceStart time.Time
	Location       *time.Location
}

// DefaultConfig returns the production deployment configuration.
func DefaultConfig() Config {
	return Config{
		RoomOrder:      append([]RoomID(nil), DefaultRoomOrder...),
		ReferenceStart: DefaultReferenceStart,
		Location:       time.Local,
	}
}

// KnownRoom reports whether id is part of the configured room order.
func (c Config) KnownRoom(id RoomID) bool {
	for _, room := range c.RoomOrder {
		if room == id {
			return true
		}
	}
	return false
}

// ActiveRooms filters the configured order, preserving relative order and
// excluding skipped members.
func (c Config) ActiveRooms(skipped RoomSet) []RoomID {
	return ActiveRooms(c.RoomOrder, skipped)
}

// loc returns the configured time zone, defaulting to the process-local one.
func (c Config) loc() *time.Location {
	if c.Location != nil {
		return c.Location
	}
	return time.Local
}

// ActiveRooms returns order with every member of skipped removed. The input
// slice is never mutated and relative order is preserved.
func ActiveRooms(order []RoomID, skipped RoomSet) []RoomID {
	active := make([]RoomID, 0, len(order))
	for _, room := range order {
		if !skipped.Has(room) {
			active = append(active, room)
		}
	}
	return active
}

// ComputeRoomIndex derives the rotation index from the number of whole days
// elapsed between start and now, modulo the active room count. A now before
// start floors toward negative infinity, matching calendar intuition, and the
// result is normalized into [0, activeLen). An empty active list is the
// degenerate rotation: no division is attempted and ErrDegenerateRotation is
// returned with index zero.
func ComputeRoomIndex(start, now time.Time, activeLen int) (int, error) {
	if activeLen <= 0 {
		return 0, ErrDegenerateRotation
	}
	days := int(math.Floor(now.Sub(start).Hours() / 24))
	idx := ((days % activeLen) + activeLen) % activeLen
	return idx, nil
}

// CurrentRoom resolves the room designated by idx within active. An
// out-of-range index falls back to the head of the list (the index may lag a
// shrinking skip set between recomputations). The second return is false only
// when active is empty.
func CurrentRoom(active []RoomID, idx int) (RoomID, bool) {
	if len(active) == 0 {
		return 0, false
	}
	if idx < 0 || idx >= len(active) {
		return active[0], true
	}
	return active[idx], true
}

// RoomSet is the permanently-skipped membership set. Only membership matters;
// the JSON form is a sorted array for deterministic snapshots.
type RoomSet map[RoomID]struct{}

// NewRoomSet builds a set from the given members.
func NewRoomSet(rooms ...RoomID) RoomSet {
	s := make(RoomSet, len(rooms))
	for _, r := range rooms {
		s[r] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s RoomSet) Has(id RoomID) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id, reporting whether the set changed.
func (s RoomSet) Add(id RoomID) bool {
	if s.Has(id) {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Remove deletes id, reporting whether the set changed.
func (s RoomSet) Remove(id RoomID) bool {
	if !s.Has(id) {
		return false
	}
	delete(s, id)
	return true
}

// Sorted returns the members in ascending order.
func (s RoomSet) Sorted() []RoomID {
	out := make([]RoomID, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns an independent copy.
func (s RoomSet) Clone() RoomSet {
	out := make(RoomSet, len(s))
	for r := range s {
		out[r] = struct{}{}
	}
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s RoomSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array of room ids.
func (s *RoomSet) UnmarshalJSON(data []byte) error {
	var rooms []RoomID
	if err := json.Unmarshal(data, &rooms); err != nil {
		return err
	}
	*s = NewRoomSet(rooms...)
	return nil
}
