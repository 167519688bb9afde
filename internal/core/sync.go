package core

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dutyroster/pkg/domain"
)

// Syncer reconciles the durable local snapshot with the optional shared
// remote document. The remote is authoritative at startup; afterwards every
// write goes local-first with the remote replicated best effort (availability
// over consistency, last writer wins).
type Syncer struct {
	cfg    domain.Config
	local  domain.LocalStore
	remote domain.RemoteStore
	logger *zap.Logger
	now    func() time.Time

	// origin tags this client's remote writes so its own echo can be told
	// apart from a concurrent writer; revision is monotonic per client.
	origin   string
	revision atomic.Int64
	// syncing is set while a local write is replicating; remote
	// notifications arriving in that window are dropped so an echo cannot
	// race a second local command.
	syncing   atomic.Bool
	connected atomic.Bool
}

// NewSyncer wires a local store and an optional remote store (nil means the
// deployment is local-only by configuration).
func NewSyncer(cfg domain.Config, local domain.LocalStore, remote domain.RemoteStore, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		cfg:    cfg,
		local:  local,
		remote: remote,
		logger: logger,
		now:    time.Now,
		origin: uuid.NewString(),
	}
}

// Origin returns this client's identity as stamped on remote writes.
func (s *Syncer) Origin() string { return s.origin }

// Connected reports whether the remote attached successfully.
func (s *Syncer) Connected() bool { return s.connected.Load() }

// Connect probes the remote once at startup. An unreachable remote returns
// ErrRemoteUnavailable and leaves the syncer in local-only mode; it is a
// degraded state, not a failure.
func (s *Syncer) Connect(ctx context.Context) error {
	if s.remote == nil {
		return domain.ErrRemoteUnavailable
	}
	if err := s.remote.Ping(ctx); err != nil {
		s.logger.Warn("remote unreachable, running local-only", zap.Error(err))
		return domain.ErrRemoteUnavailable
	}
	s.connected.Store(true)
	s.logger.Info("remote store connected", zap.String("origin", s.origin))
	return nil
}

// Load resolves the startup snapshot. A reachable remote replaces local state
// unconditionally and is mirrored into the local cache; otherwise the local
// snapshot is used as-is.
func (s *Syncer) Load(ctx context.Context) (domain.Snapshot, bool, error) {
	if s.Connected() {
		doc, ok, err := s.remote.Load(ctx)
		if err != nil {
			s.logger.Warn("remote load failed, falling back to local", zap.Error(err))
		} else if ok {
			if err := s.local.Save(ctx, doc.Snapshot); err != nil {
				s.logger.Warn("mirroring remote snapshot to local cache failed", zap.Error(err))
			}
			return doc.Snapshot, true, nil
		}
	}
	return s.local.Load(ctx)
}

// Save persists the snapshot: local always, remote best effort. A remote
// write failure is logged and absorbed; only a local failure is returned.
func (s *Syncer) Save(ctx context.Context, snap domain.Snapshot) error {
	if err := s.local.Save(ctx, snap); err != nil {
		return err
	}
	if !s.Connected() {
		return nil
	}
	s.syncing.Store(true)
	defer s.syncing.Store(false)
	doc := domain.RemoteDocument{
		Snapshot:    snap,
		LastUpdated: s.now().UTC(),
		Origin:      s.origin,
		Revision:    s.revision.Add(1),
	}
	if err := s.remote.Save(ctx, doc); err != nil {
		s.logger.Warn("remote save failed, snapshot kept locally", zap.Error(err))
	}
	return nil
}

// Subscribe attaches to the remote change feed. Documents originating from
// this client, and any notification arriving while a local write is in
// flight, are dropped before onChange fires.
func (s *Syncer) Subscribe(ctx context.Context, onChange func(domain.Snapshot)) (func(), error) {
	if !s.Connected() {
		return func() {}, domain.ErrRemoteUnavailable
	}
	return s.remote.Subscribe(ctx, func(doc domain.RemoteDocument) {
		if doc.Origin == s.origin {
			return
		}
		if s.syncing.Load() {
			return
		}
		s.logger.Info("remote change received",
			zap.String("from", doc.Origin), zap.Int64("revision", doc.Revision))
		onChange(doc.Snapshot)
	})
}
