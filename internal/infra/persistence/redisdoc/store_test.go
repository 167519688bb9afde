package redisdoc

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"dutyroster/pkg/domain"
)

func TestNewWithClientDefaults(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer func() { _ = client.Close() }()

	store := NewWithClient(client, domain.DefaultConfig())
	if store.key != defaultKey {
		t.Fatalf("key: got %q want %q", store.key, defaultKey)
	}
	if store.channel != defaultChannel {
		t.Fatalf("channel: got %q want %q", store.channel, defaultChannel)
	}
}

func TestConsumeDeliversDocumentsAndStopsOnCancel(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer func() { _ = client.Close() }()
	store := NewWithClient(client, domain.DefaultConfig())

	doc := domain.RemoteDocument{
		Snapshot:    domain.SnapshotOf(domain.NewSystemState(time.Date(2025, time.November, 5, 8, 0, 0, 0, time.UTC))),
		LastUpdated: time.Date(2025, time.November, 5, 8, 0, 0, 0, time.UTC),
		Origin:      "client-a",
		Revision:    1,
	}
	payload, err := domain.EncodeRemoteDocument(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	ch := make(chan *redis.Message, 2)
	ch <- &redis.Message{Channel: defaultChannel, Payload: string(payload)}
	ch <- &redis.Message{Channel: defaultChannel, Payload: "{not a document"}

	ctx, cancel := context.WithCancel(context.Background())
	var received []domain.RemoteDocument
	done := make(chan struct{})
	go func() {
		defer close(done)
		store.consume(ctx, ch, func(d domain.RemoteDocument) { received = append(received, d) })
	}()

	// Cancellation must unpark the loop even though the channel stays open.
	for len(ch) > 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consume did not stop on context cancellation")
	}

	if len(received) != 1 || received[0].Origin != "client-a" {
		t.Fatalf("received: %+v", received)
	}
}

func TestConsumeStopsWhenChannelCloses(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer func() { _ = client.Close() }()
	store := NewWithClient(client, domain.DefaultConfig())

	ch := make(chan *redis.Message)
	close(ch)
	done := make(chan struct{})
	go func() {
		defer close(done)
		store.consume(context.Background(), ch, func(domain.RemoteDocument) {})
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consume did not stop on channel close")
	}
}

func TestPublishedPayloadRoundTripsThroughCodec(t *testing.T) {
	// Save publishes the exact bytes a subscriber decodes; the codec pair
	// must agree without a live server in the middle.
	cfg := domain.DefaultConfig()
	state := domain.NewSystemState(time.Date(2025, time.November, 5, 8, 0, 0, 0, time.UTC))
	doc := domain.RemoteDocument{
		Snapshot:    domain.SnapshotOf(state),
		LastUpdated: state.CurrentDate,
		Origin:      "client-b",
		Revision:    3,
	}

	payload, err := domain.EncodeRemoteDocument(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := domain.DecodeRemoteDocument(payload, cfg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Origin != "client-b" || decoded.Revision != 3 {
		t.Fatalf("origin/revision: %+v", decoded)
	}
}
