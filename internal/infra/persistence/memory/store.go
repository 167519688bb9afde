// Package memory implements the snapshot stores in process memory for tests
// and ephemeral deployments.
package memory

import (
	"context"
	"sync"

	"dutyroster/pkg/domain"
)

// Compile-time contract assertions.
var (
	_ domain.LocalStore  = (*Store)(nil)
	_ domain.RemoteStore = (*RemoteStore)(nil)
)

// Store is an in-memory LocalStore.
type Store struct {
	mu   sync.Mutex
	snap *domain.Snapshot
}

// NewStore returns an empty in-memory local store.
func NewStore() *Store { return &Store{} }

// Load returns the held snapshot, if any.
func (s *Store) Load(context.Context) (domain.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return domain.Snapshot{}, false, nil
	}
	return *s.snap, true, nil
}

// Save replaces the held snapshot.
func (s *Store) Save(_ context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = &snap
	return nil
}

// RemoteStore is an in-memory RemoteStore that fans notifications out to
// every subscriber, including the writer. Used by the sync tests to stand in
// for the shared document.
type RemoteStore struct {
	mu          sync.Mutex
	doc         *domain.RemoteDocument
	subscribers map[int]func(domain.RemoteDocument)
	nextSub     int
	// PingErr, when set, makes the store unreachable.
	PingErr error
	// SaveErr, when set, fails every save.
	SaveErr error
}

// NewRemoteStore returns an empty in-memory remote store.
func NewRemoteStore() *RemoteStore {
	return &RemoteStore{subscribers: make(map[int]func(domain.RemoteDocument))}
}

// Ping reports the configured reachability.
func (s *RemoteStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.PingErr
}

// Load returns the shared document, if any.
func (s *RemoteStore) Load(context.Context) (domain.RemoteDocument, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return domain.RemoteDocument{}, false, nil
	}
	return *s.doc, true, nil
}

// Save replaces the shared document and notifies every subscriber.
func (s *RemoteStore) Save(_ context.Context, doc domain.RemoteDocument) error {
	s.mu.Lock()
	if s.SaveErr != nil {
		err := s.SaveErr
		s.mu.Unlock()
		return err
	}
	s.doc = &doc
	listeners := make([]func(domain.RemoteDocument), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(doc)
	}
	return nil
}

// Subscribe registers a listener; the returned function removes it.
func (s *RemoteStore) Subscribe(_ context.Context, onChange func(domain.RemoteDocument)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = onChange
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}, nil
}
