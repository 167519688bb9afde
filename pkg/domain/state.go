package domain

import "time"

// CleaningRecord evidences (or manually asserts) completion of duty by a room
// on a date. Records are immutable once appended.
type CleaningRecord struct {
	ID   string    `json:"id,omitempty"`
	Date time.Time `json:"date"`
	Room RoomID    `json:"room"`
	// EvidenceKey addresses the photo in the evidence store. Empty for
	// manual records.
	EvidenceKey string `json:"evidenceKey,omitempty"`
	Manual      bool   `json:"manual,omitempty"`
}

// SystemState is the single mutable aggregate of the deployment. It is
// mutated exclusively through the command layer and persisted as a whole.
type SystemState struct {
	// CurrentDate is the moment state was last observed. Recomputed to
	// "now" on every load; the persisted value is informational only.
	CurrentDate time.Time
	// CurrentRoomIndex indexes into the active room list, not the full
	// order, so it must be recomputed whenever SkippedRooms changes.
	CurrentRoomIndex int
	SkippedRooms     RoomSet
	// CleaningHistory is newest first. Only prepended in normal operation;
	// wholesale replaced by reset or import.
	CleaningHistory  []CleaningRecord
	LastCleaningDate *time.Time
}

// NewSystemState seeds a fresh deployment: index zero, nothing skipped, empty
// history.
func NewSystemState(now time.Time) SystemState {
	return SystemState{
		CurrentDate:  now,
		SkippedRooms: NewRoomSet(),
	}
}

// Clone returns a deep copy safe to hand to observers and stores.
func (s SystemState) Clone() SystemState {
	out := s
	out.SkippedRooms = s.SkippedRooms.Clone()
	out.CleaningHistory = append([]CleaningRecord(nil), s.CleaningHistory...)
	if s.LastCleaningDate != nil {
		t := *s.LastCleaningDate
		out.LastCleaningDate = &t
	}
	return out
}

// AppendCleaning prepends record to the history and bumps LastCleaningDate.
// Deduplication is the caller's responsibility (HasCompletedToday).
func (s *SystemState) AppendCleaning(record CleaningRecord) {
	s.CleaningHistory = append([]CleaningRecord{record}, s.CleaningHistory...)
	t := record.Date
	s.LastCleaningDate = &t
}

// Recompute re-derives CurrentRoomIndex from the reference date and the skip
// set. Called at load and after every skip/rejoin style mutation; the index is
// deliberately left alone on plain day-boundary crossings so that manual
// overrides persist until the next membership change.
func (s *SystemState) Recompute(cfg Config, now time.Time) error {
	active := cfg.ActiveRooms(s.SkippedRooms)
	idx, err := ComputeRoomIndex(cfg.ReferenceStart, now, len(active))
	if err != nil {
		s.CurrentRoomIndex = 0
		return err
	}
	s.CurrentRoomIndex = idx
	return nil
}
