package core

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dutyroster/internal/evidence"
	"dutyroster/pkg/domain"
)

// SetCurrentRoom overrides today's assignment. The room must be active; the
// override holds until the next membership change recomputes the index.
func (s *Service) SetCurrentRoom(ctx context.Context, room RoomID) error {
	return s.mutate(ctx, "set_current_room", func(state *domain.SystemState) error {
		active := s.cfg.ActiveRooms(state.SkippedRooms)
		for i, candidate := range active {
			if candidate == room {
				state.CurrentRoomIndex = i
				return nil
			}
		}
		return fmt.Errorf("%w: room %d is not in the active rotation", domain.ErrInvalidRoom, room)
	})
}

// SkipRoom removes a room from the rotation. Skipping the last active room is
// allowed and leaves the rotation degenerate until something rejoins.
func (s *Service) SkipRoom(ctx context.Context, room RoomID) error {
	return s.mutate(ctx, "skip_room", func(state *domain.SystemState) error {
		if !s.cfg.KnownRoom(room) {
			return fmt.Errorf("%w: room %d is not in the room order", domain.ErrInvalidRoom, room)
		}
		if state.SkippedRooms.Has(room) {
			return errNoChange
		}
		state.SkippedRooms.Add(room)
		s.recomputeLocked(state)
		return nil
	})
}

// RejoinRoom returns a skipped room to the rotation.
func (s *Service) RejoinRoom(ctx context.Context, room RoomID) error {
	return s.mutate(ctx, "rejoin_room", func(state *domain.SystemState) error {
		if !s.cfg.KnownRoom(room) {
			return fmt.Errorf("%w: room %d is not in the room order", domain.ErrInvalidRoom, room)
		}
		if !state.SkippedRooms.Has(room) {
			return errNoChange
		}
		state.SkippedRooms.Remove(room)
		s.recomputeLocked(state)
		return nil
	})
}

// ForceRejoinAll clears the skip set in one stroke.
func (s *Service) ForceRejoinAll(ctx context.Context) error {
	return s.mutate(ctx, "force_rejoin_all", func(state *domain.SystemState) error {
		if len(state.SkippedRooms) == 0 {
			return errNoChange
		}
		state.SkippedRooms = domain.NewRoomSet()
		s.recomputeLocked(state)
		return nil
	})
}

// recomputeLocked re-derives the rotation index after a membership change. A
// degenerate rotation (all rooms skipped) is a valid state, not an error.
func (s *Service) recomputeLocked(state *domain.SystemState) {
	if err := state.Recompute(s.cfg, s.now()); err != nil && !errors.Is(err, domain.ErrDegenerateRotation) {
		s.logger.Warn("rotation index recompute failed", zap.Error(err))
	}
}

// RecordCleaning appends a photo-evidenced completion for room. The photo is
// content-addressed into the evidence store; a room may record at most one
// completion per calendar day, and a refused recording stores nothing.
func (s *Service) RecordCleaning(ctx context.Context, room RoomID, photo []byte, contentType string) error {
	if !s.cfg.KnownRoom(room) {
		return fmt.Errorf("%w: room %d is not in the room order", domain.ErrInvalidRoom, room)
	}
	return s.mutate(ctx, "record_cleaning", func(state *domain.SystemState) error {
		now := s.now()
		if domain.HasCompletedToday(state.CleaningHistory, room, now, s.cfg.Location) {
			return fmt.Errorf("%w: room %d already recorded today", domain.ErrAlreadyCompleted, room)
		}
		// The store write happens after the same-day check so a refused
		// recording cannot leave an unreferenced blob behind.
		key, err := evidence.StorePhoto(ctx, s.evidence, photo, contentType)
		if err != nil {
			return err
		}
		state.AppendCleaning(domain.CleaningRecord{
			ID:          uuid.NewString(),
			Date:        now,
			Room:        room,
			EvidenceKey: key,
		})
		return nil
	})
}

// MarkCleaned appends a manual completion with no photo evidence.
func (s *Service) MarkCleaned(ctx context.Context, room RoomID) error {
	if !s.cfg.KnownRoom(room) {
		return fmt.Errorf("%w: room %d is not in the room order", domain.ErrInvalidRoom, room)
	}
	return s.mutate(ctx, "mark_cleaned", func(state *domain.SystemState) error {
		now := s.now()
		if domain.HasCompletedToday(state.CleaningHistory, room, now, s.cfg.Location) {
			return fmt.Errorf("%w: room %d already recorded today", domain.ErrAlreadyCompleted, room)
		}
		state.AppendCleaning(domain.CleaningRecord{
			ID:     uuid.NewString(),
			Date:   now,
			Room:   room,
			Manual: true,
		})
		return nil
	})
}

// PendingReset is an armed reset awaiting confirmation. Nothing changes until
// Confirm; Cancel discards it.
type PendingReset struct {
	svc  *Service
	done bool
}

// RequestReset arms a full reset. The destructive step happens only on
// Confirm.
func (s *Service) RequestReset() *PendingReset {
	return &PendingReset{svc: s}
}

// Confirm wipes history, skips and overrides back to the seeded rotation.
func (p *PendingReset) Confirm(ctx context.Context) error {
	if p.done {
		return nil
	}
	p.done = true
	return p.svc.mutate(ctx, "reset_all", func(state *domain.SystemState) error {
		*state = domain.NewSystemState(p.svc.now())
		// The fresh state's index is recomputed for today rather than left at
		// zero; the next load would recompute it to the same value anyway.
		p.svc.recomputeLocked(state)
		return nil
	})
}

// Cancel discards the armed reset.
func (p *PendingReset) Cancel() { p.done = true }

// PendingImport is a decoded, validated backup awaiting confirmation.
type PendingImport struct {
	svc  *Service
	snap domain.Snapshot
	done bool
}

// RequestImport decodes and validates a backup payload without applying it.
// Both the full export file shape and a bare snapshot are accepted; anything
// structurally unsound fails with ErrMalformedSnapshot and the current state
// is untouched.
func (s *Service) RequestImport(data []byte) (*PendingImport, error) {
	// The shape is decided by the envelope, not by which decode happens to
	// succeed: an export file wraps its snapshot under "state", a bare
	// snapshot has no such key. A corrupt export must fail closed here, never
	// fall through and decode as an empty snapshot.
	var envelope struct {
		State json.RawMessage `json:"state"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedSnapshot, err)
	}
	if len(envelope.State) > 0 {
		doc, err := domain.DecodeExportDocument(data, s.cfg)
		if err != nil {
			return nil, err
		}
		return &PendingImport{svc: s, snap: doc.State}, nil
	}
	snap, err := domain.DecodeSnapshot(data, s.cfg)
	if err != nil {
		return nil, err
	}
	return &PendingImport{svc: s, snap: snap}, nil
}

// Confirm replaces the whole state with the imported snapshot. Legacy records
// carrying inline data-URI images are migrated into the evidence store on the
// way in.
func (p *PendingImport) Confirm(ctx context.Context) error {
	if p.done {
		return nil
	}
	p.done = true
	s := p.svc

	snap := p.snap
	for i, record := range snap.CleaningHistory {
		if record.Image == "" || record.EvidenceKey != "" {
			continue
		}
		payload, contentType, err := parseDataURI(record.Image)
		if err != nil {
			return fmt.Errorf("%w: history[%d]: %v", domain.ErrMalformedSnapshot, i, err)
		}
		key, err := evidence.StorePhoto(ctx, s.evidence, payload, contentType)
		if err != nil {
			return err
		}
		snap.CleaningHistory[i].EvidenceKey = key
		snap.CleaningHistory[i].Image = ""
	}

	return s.mutate(ctx, "import_snapshot", func(state *domain.SystemState) error {
		*state = snap.State()
		state.CurrentDate = s.now()
		return nil
	})
}

// Cancel discards the armed import.
func (p *PendingImport) Cancel() { p.done = true }

// ExportSnapshot captures the current state as a dated backup document.
func (s *Service) ExportSnapshot() ExportDocument {
	s.mu.Lock()
	snap := domain.SnapshotOf(s.state)
	s.mu.Unlock()
	return domain.ExportDocument{
		State:      snap,
		RoomOrder:  append([]RoomID(nil), s.cfg.RoomOrder...),
		ExportDate: s.now(),
	}
}

// parseDataURI splits a base64 data URI into payload bytes and content type.
func parseDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", fmt.Errorf("not a data URI")
	}
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("data URI has no payload")
	}
	contentType, _ := strings.CutSuffix(meta, ";base64")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("decode data URI payload: %v", err)
	}
	return payload, contentType, nil
}
