package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"dutyroster/internal/evidence"
	"dutyroster/pkg/domain"
)

// historyViewSize bounds the recent-history slice handed to observers.
const historyViewSize = 10

// Observer receives the derived view after every state change. Implemented by
// the excluded UI layer.
type Observer func(View)

// RoomStatus is the per-room slice of the derived view.
type RoomStatus struct {
	Room         RoomID
	Skipped      bool
	Current      bool
	CleanedToday bool
}

// View is the render-ready projection of the system state.
type View struct {
	Now            time.Time
	CurrentRoom    RoomID
	HasCurrentRoom bool
	CleanedToday   bool
	ActiveCount    int
	SkippedCount   int
	Rooms          []RoomStatus
	Recent         []CleaningRecord
	RemoteAttached bool
}

// Service is the command layer: the single mutation entry point for the
// system state. Commands apply fully or not at all, then persist through the
// syncer and notify observers.
type Service struct {
	cfg      domain.Config
	syncer   *Syncer
	evidence evidence.Store
	logger   *zap.Logger
	metrics  MetricsRecorder
	now      func() time.Time
	refresh  time.Duration

	mu        sync.Mutex
	state     domain.SystemState
	observers []Observer

	unsubscribe func()
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(rec MetricsRecorder) Option {
	return func(s *Service) { s.metrics = rec }
}

// WithClock overrides the wall clock (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRefreshInterval overrides the autonomous re-render period.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refresh = d
		}
	}
}

// NewService constructs the command layer over a syncer and evidence store.
func NewService(cfg domain.Config, syncer *Syncer, ev evidence.Store, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		syncer:   syncer,
		evidence: ev,
		logger:   zap.NewNop(),
		now:      time.Now,
		refresh:  time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init connects the remote, hydrates state (remote replaces local when
// reachable, fresh defaults when neither exists), recomputes the rotation
// index for today, and attaches the remote change feed.
func (s *Service) Init(ctx context.Context) error {
	// An unreachable remote degrades to local-only mode; the syncer logs it.
	_ = s.syncer.Connect(ctx)

	snap, ok, err := s.syncer.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	now := s.now()
	if ok {
		s.state = snap.State()
	} else {
		s.state = domain.NewSystemState(now)
	}
	s.state.CurrentDate = now
	if err := s.state.Recompute(s.cfg, now); err != nil {
		s.logger.Warn("rotation is degenerate at startup", zap.Error(err))
	}
	persisted := domain.SnapshotOf(s.state)
	s.mu.Unlock()

	if err := s.syncer.Save(ctx, persisted); err != nil {
		return err
	}
	if unsub, err := s.syncer.Subscribe(ctx, s.applyRemote); err == nil {
		s.unsubscribe = unsub
	} else if !errors.Is(err, domain.ErrRemoteUnavailable) {
		s.logger.Warn("remote subscription failed", zap.Error(err))
	}
	s.notify()
	return nil
}

// Close detaches the remote change feed.
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Run drives the autonomous once-per-minute refresh: the displayed date is
// re-evaluated and observers re-render. It blocks until ctx is done. The
// rotation index is deliberately not advanced here; recomputation happens
// only at startup and on skip/rejoin style mutations.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RefreshDate()
		}
	}
}

// RefreshDate re-stamps the observed date and re-renders.
func (s *Service) RefreshDate() {
	s.mu.Lock()
	s.state.CurrentDate = s.now()
	s.mu.Unlock()
	s.notify()
}

// OnChange registers a render observer.
func (s *Service) OnChange(fn Observer) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// applyRemote adopts a state pushed by another client.
func (s *Service) applyRemote(snap domain.Snapshot) {
	s.mu.Lock()
	s.state = snap.State()
	s.state.CurrentDate = s.now()
	s.mu.Unlock()
	s.logger.Info("adopted remote state update")
	s.notify()
}

// State returns a deep copy of the current aggregate.
func (s *Service) State() SystemState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// CurrentRoom resolves today's assigned room; ok is false when every room is
// skipped (the degenerate rotation).
func (s *Service) CurrentRoom() (RoomID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CurrentRoom(s.cfg.ActiveRooms(s.state.SkippedRooms), s.state.CurrentRoomIndex)
}

// ActiveRooms returns the rooms currently in rotation, in rotation order.
func (s *Service) ActiveRooms() []RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.ActiveRooms(s.state.SkippedRooms)
}

// HasCompletedToday reports whether room already completed today's duty.
func (s *Service) HasCompletedToday(room RoomID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.HasCompletedToday(s.state.CleaningHistory, room, s.now(), s.cfg.Location)
}

// RecentHistory returns the newest n ledger records.
func (s *Service) RecentHistory(n int) []CleaningRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Recent(s.state.CleaningHistory, n)
}

// View builds the render projection.
func (s *Service) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildViewLocked()
}

func (s *Service) buildViewLocked() View {
	now := s.state.CurrentDate
	active := s.cfg.ActiveRooms(s.state.SkippedRooms)
	current, hasCurrent := domain.CurrentRoom(active, s.state.CurrentRoomIndex)

	view := View{
		Now:            now,
		CurrentRoom:    current,
		HasCurrentRoom: hasCurrent,
		ActiveCount:    len(active),
		SkippedCount:   len(s.state.SkippedRooms),
		Recent:         domain.Recent(s.state.CleaningHistory, historyViewSize),
		RemoteAttached: s.syncer.Connected(),
	}
	if hasCurrent {
		view.CleanedToday = domain.HasCompletedToday(s.state.CleaningHistory, current, now, s.cfg.Location)
	}
	view.Rooms = make([]RoomStatus, 0, len(s.cfg.RoomOrder))
	for _, room := range s.cfg.RoomOrder {
		view.Rooms = append(view.Rooms, RoomStatus{
			Room:         room,
			Skipped:      s.state.SkippedRooms.Has(room),
			Current:      hasCurrent && room == current,
			CleanedToday: domain.HasCompletedToday(s.state.CleaningHistory, room, now, s.cfg.Location),
		})
	}
	return view
}

// notify renders the view and fans it out to observers outside the lock.
func (s *Service) notify() {
	s.mu.Lock()
	view := s.buildViewLocked()
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(view)
	}
}

// errNoChange marks a command that turned out to be a no-op; mutate treats it
// as success without persisting or re-rendering.
var errNoChange = errors.New("no change")

// mutate is the single mutation path: apply fn atomically, stamp the observed
// date, persist through the syncer, notify observers, record metrics.
func (s *Service) mutate(ctx context.Context, op string, fn func(*domain.SystemState) error) error {
	start := time.Now()
	s.mu.Lock()
	err := fn(&s.state)
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, errNoChange) {
			return nil
		}
		s.observe(ctx, op, start, err)
		return err
	}
	s.state.CurrentDate = s.now()
	snap := domain.SnapshotOf(s.state)
	s.mu.Unlock()

	if err := s.syncer.Save(ctx, snap); err != nil {
		s.observe(ctx, op, start, err)
		return err
	}
	s.notify()
	s.observe(ctx, op, start, nil)
	return nil
}

func (s *Service) observe(ctx context.Context, op string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	}
	if err != nil {
		s.logger.Warn("command failed", zap.String("op", op), zap.Error(err))
		return
	}
	s.logger.Debug("command applied", zap.String("op", op))
}
