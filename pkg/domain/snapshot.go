package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Snapshot is the full-state wire form persisted locally and replicated
// remotely. Updates are whole-document replacements, never field patches.
type Snapshot struct {
	CurrentDate      time.Time    `json:"currentDate"`
	CurrentRoomIndex int          `json:"currentRoomIndex"`
	SkippedRooms     []RoomID     `json:"skippedRooms"`
	CleaningHistory  []WireRecord `json:"cleaningHistory"`
	LastCleaningDate *time.Time   `json:"lastCleaningDate"`
}

// WireRecord is the serialized cleaning record. Image carries a legacy inline
// base64 data URI; current writers populate EvidenceKey instead and importers
// migrate Image payloads into the evidence store.
type WireRecord struct {
	ID          string    `json:"id,omitempty"`
	Date        time.Time `json:"date"`
	Room        RoomID    `json:"room"`
	EvidenceKey string    `json:"evidenceKey,omitempty"`
	Image       string    `json:"image,omitempty"`
	Manual      bool      `json:"manual,omitempty"`
}

// RemoteDocument is the shared remote form of a snapshot. Origin and Revision
// let subscribers tell their own write echo apart from a concurrent writer;
// LastUpdated orders last-writer-wins replacements.
type RemoteDocument struct {
	Snapshot
	LastUpdated time.Time `json:"lastUpdated"`
	Origin      string    `json:"origin,omitempty"`
	Revision    int64     `json:"revision,omitempty"`
}

// ExportDocument is the downloadable backup file shape.
type ExportDocument struct {
	State      Snapshot  `json:"state"`
	RoomOrder  []RoomID  `json:"roomOrder"`
	ExportDate time.Time `json:"exportDate"`
}

// ExportFilename names a backup file after its export date.
func (d ExportDocument) ExportFilename() string {
	return fmt.Sprintf("kitchen-cleaning-backup-%s.json", d.ExportDate.Format("2006-01-02"))
}

// SnapshotOf captures state in wire form.
func SnapshotOf(state SystemState) Snapshot {
	history := make([]WireRecord, len(state.CleaningHistory))
	for i, record := range state.CleaningHistory {
		history[i] = WireRecord{
			ID:          record.ID,
			Date:        record.Date,
			Room:        record.Room,
			EvidenceKey: record.EvidenceKey,
			Manual:      record.Manual,
		}
	}
	snap := Snapshot{
		CurrentDate:      state.CurrentDate,
		CurrentRoomIndex: state.CurrentRoomIndex,
		SkippedRooms:     state.SkippedRooms.Sorted(),
		CleaningHistory:  history,
	}
	if state.LastCleaningDate != nil {
		t := *state.LastCleaningDate
		snap.LastCleaningDate = &t
	}
	return snap
}

// State rebuilds the mutable aggregate from the wire form. Inline legacy
// images are carried over on EvidenceKey-less records only by the command
// layer's import migration; here they are ignored.
func (s Snapshot) State() SystemState {
	history := make([]CleaningRecord, len(s.CleaningHistory))
	for i, record := range s.CleaningHistory {
		history[i] = CleaningRecord{
			ID:          record.ID,
			Date:        record.Date,
			Room:        record.Room,
			EvidenceKey: record.EvidenceKey,
			Manual:      record.Manual,
		}
	}
	state := SystemState{
		CurrentDate:      s.CurrentDate,
		CurrentRoomIndex: s.CurrentRoomIndex,
		SkippedRooms:     NewRoomSet(s.SkippedRooms...),
		CleaningHistory:  history,
	}
	if s.LastCleaningDate != nil {
		t := *s.LastCleaningDate
		state.LastCleaningDate = &t
	}
	return state
}

// Validate checks structural soundness against the deployment configuration.
// Any failure wraps ErrMalformedSnapshot so store boundaries fail closed
// instead of adopting partially-shaped data.
func (s Snapshot) Validate(cfg Config) error {
	if s.CurrentRoomIndex < 0 {
		return fmt.Errorf("%w: negative room index %d", ErrMalformedSnapshot, s.CurrentRoomIndex)
	}
	for _, room := range s.SkippedRooms {
		if !cfg.KnownRoom(room) {
			return fmt.Errorf("%w: skipped room %d is not in the room order", ErrMalformedSnapshot, room)
		}
	}
	for i, record := range s.CleaningHistory {
		if !cfg.KnownRoom(record.Room) {
			return fmt.Errorf("%w: history[%d] references unknown room %d", ErrMalformedSnapshot, i, record.Room)
		}
		if record.Date.IsZero() {
			return fmt.Errorf("%w: history[%d] has no date", ErrMalformedSnapshot, i)
		}
		if record.Image != "" && !strings.HasPrefix(record.Image, "data:") {
			return fmt.Errorf("%w: history[%d] image is not a data URI", ErrMalformedSnapshot, i)
		}
	}
	return nil
}

// EncodeSnapshot serializes a snapshot for storage.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSnapshot parses and validates a stored snapshot payload.
func DecodeSnapshot(data []byte, cfg Config) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if err := snap.Validate(cfg); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// EncodeRemoteDocument serializes the shared remote document.
func EncodeRemoteDocument(doc RemoteDocument) ([]byte, error) {
	return json.Marshal(doc)
}

// DecodeRemoteDocument parses and validates a remote document payload.
func DecodeRemoteDocument(data []byte, cfg Config) (RemoteDocument, error) {
	var doc RemoteDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return RemoteDocument{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if err := doc.Snapshot.Validate(cfg); err != nil {
		return RemoteDocument{}, err
	}
	return doc, nil
}

// EncodeExportDocument serializes a backup file.
func EncodeExportDocument(doc ExportDocument) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// DecodeExportDocument parses and validates a backup file.
func DecodeExportDocument(data []byte, cfg Config) (ExportDocument, error) {
	var doc ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return ExportDocument{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if err := doc.State.Validate(cfg); err != nil {
		return ExportDocument{}, err
	}
	return doc, nil
}
