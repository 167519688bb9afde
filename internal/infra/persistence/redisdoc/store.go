// Package redisdoc implements the shared remote document store on Redis. The
// document lives under a single key; pub/sub delivers push notifications.
package redisdoc

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"dutyroster/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.RemoteStore = (*Store)(nil)

const (
	defaultKey     = "dutyroster:state"
	defaultChannel = "dutyroster:state:changed"
)

// Store holds the shared roster document in a Redis string value and
// publishes the full document on every save.
type Store struct {
	client  *redis.Client
	cfg     domain.Config
	key     string
	channel string
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// New connects to Redis with the given options.
func New(opts Options, cfg domain.Config) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &Store{client: client, cfg: cfg, key: defaultKey, channel: defaultChannel}
}

// NewWithClient wraps an existing client (tests use miniature servers).
func NewWithClient(client *redis.Client, cfg domain.Config) *Store {
	return &Store{client: client, cfg: cfg, key: defaultKey, channel: defaultChannel}
}

// Ping probes the server.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	return nil
}

// Load reads and validates the shared document.
func (s *Store) Load(ctx context.Context) (domain.RemoteDocument, bool, error) {
	payload, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return domain.RemoteDocument{}, false, nil
	}
	if err != nil {
		return domain.RemoteDocument{}, false, fmt.Errorf("get document: %w", err)
	}
	doc, err := domain.DecodeRemoteDocument(payload, s.cfg)
	if err != nil {
		return domain.RemoteDocument{}, false, err
	}
	return doc, true, nil
}

// Save replaces the shared document and publishes it to subscribers.
func (s *Store) Save(ctx context.Context, doc domain.RemoteDocument) error {
	payload, err := domain.EncodeRemoteDocument(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := s.client.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("set document: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Subscribe listens on the change channel, decoding each published document.
// The listener stops when ctx is cancelled or the returned function is called.
func (s *Store) Subscribe(ctx context.Context, onChange func(domain.RemoteDocument)) (func(), error) {
	sub := s.client.Subscribe(ctx, s.channel)
	// Force the subscription to be established before returning.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() { _ = sub.Close() }()
		s.consume(subCtx, sub.Channel(), onChange)
	}()
	return func() {
		cancel()
		<-done
	}, nil
}

// consume drains published documents until ctx is cancelled or the channel
// closes.
func (s *Store) consume(ctx context.Context, ch <-chan *redis.Message, onChange func(domain.RemoteDocument)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			doc, err := domain.DecodeRemoteDocument([]byte(msg.Payload), s.cfg)
			if err != nil {
				continue
			}
			onChange(doc)
		}
	}
}

// Close releases the client.
func (s *Store) Close() error { return s.client.Close() }
