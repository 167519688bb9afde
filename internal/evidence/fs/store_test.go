package fs

import (
	"bytes"
	"context"
	"io"
	"testing"
)

func TestPutGetHeadDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	payload := []byte("photo contents")
	info, err := store.Put(ctx, "photos/abc", bytes.NewReader(payload), "image/jpeg")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len(payload)) {
		t.Fatalf("size: got %d want %d", info.Size, len(payload))
	}

	head, err := store.Head(ctx, "photos/abc")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.ContentType != "image/jpeg" {
		t.Fatalf("content type: %q", head.ContentType)
	}

	_, rc, err := store.Get(ctx, "photos/abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("payload corrupted")
	}

	existed, err := store.Delete(ctx, "photos/abc")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	if existed, _ := store.Delete(ctx, "photos/abc"); existed {
		t.Fatal("second delete should report not found")
	}
}

func TestPutExistingKeyIsNoOp(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := store.Put(ctx, "photos/k", bytes.NewReader([]byte("one")), "image/png"); err != nil {
		t.Fatalf("first put: %v", err)
	}
	info, err := store.Put(ctx, "photos/k", bytes.NewReader([]byte("one")), "image/png")
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	if info.Size != 3 {
		t.Fatalf("expected original object info, got size %d", info.Size)
	}
}

func TestListFiltersByPrefix(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"photos/b", "photos/a", "other/x"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte(key)), ""); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "photos/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(infos))
	}
	if infos[0].Key != "photos/a" || infos[1].Key != "photos/b" {
		t.Fatalf("keys not sorted: %v", infos)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"", "../escape", "/abs", "a/../../b"} {
		if _, err := store.Put(context.Background(), key, bytes.NewReader([]byte("x")), ""); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}
