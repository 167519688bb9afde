package domain

import "context"

// LocalStore is the durable on-device snapshot cache. Saves are full
// replacements, never incremental.
type LocalStore interface {
	// Load returns the last persisted snapshot, or ok=false when none exists.
	Load(ctx context.Context) (snap Snapshot, ok bool, err error)
	// Save replaces the persisted snapshot.
	Save(ctx context.Context, snap Snapshot) error
}

// RemoteStore is the shared replicated document plus its push-notification
// channel. The remote document is authoritative at startup; afterwards the
// last writer wins.
type RemoteStore interface {
	// Ping probes reachability; failure puts the client into local-only mode.
	Ping(ctx context.Context) error
	// Load returns the shared document, or ok=false when none exists yet.
	Load(ctx context.Context) (doc RemoteDocument, ok bool, err error)
	// Save replaces the shared document wholesale.
	Save(ctx context.Context, doc RemoteDocument) error
	// Subscribe registers a change listener and returns an unsubscribe
	// function. The listener also fires for this client's own writes;
	// callers filter echoes by Origin.
	Subscribe(ctx context.Context, onChange func(RemoteDocument)) (func(), error)
}
