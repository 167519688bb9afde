package evidence

import (
	"context"
	"strings"
	"testing"

	"dutyroster/internal/evidence/memory"
)

func TestKeyForIsStableAndPrefixed(t *testing.T) {
	a := KeyFor([]byte("photo-bytes"))
	b := KeyFor([]byte("photo-bytes"))
	c := KeyFor([]byte("other-bytes"))

	if a != b {
		t.Fatalf("same content produced different keys: %s vs %s", a, b)
	}
	if a == c {
		t.Fatal("different content produced the same key")
	}
	if !strings.HasPrefix(a, "photos/") {
		t.Fatalf("key %q missing photos/ prefix", a)
	}
}

func TestStorePhotoIdempotentOnSameContent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	payload := []byte("jpeg-ish bytes")

	key1, err := StorePhoto(ctx, store, payload, "image/jpeg")
	if err != nil {
		t.Fatalf("first store: %v", err)
	}
	key2, err := StorePhoto(ctx, store, payload, "image/jpeg")
	if err != nil {
		t.Fatalf("second store: %v", err)
	}
	if key1 != key2 {
		t.Fatalf("keys differ: %s vs %s", key1, key2)
	}

	data, info, err := LoadPhoto(ctx, store, key1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatal("payload corrupted on round trip")
	}
	if info.ContentType != "image/jpeg" {
		t.Fatalf("content type lost: %q", info.ContentType)
	}
}

func TestStorePhotoRejectsEmptyPayload(t *testing.T) {
	if _, err := StorePhoto(context.Background(), memory.New(), nil, "image/jpeg"); err == nil {
		t.Fatal("expected an error for empty payload")
	}
}

func TestOpenMemoryDriver(t *testing.T) {
	t.Setenv("DUTYROSTER_EVIDENCE_DRIVER", "memory")
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("expected memory driver, got %s", store.Driver())
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Setenv("DUTYROSTER_EVIDENCE_DRIVER", "tape")
	if _, err := Open(context.Background()); err == nil {
		t.Fatal("expected an error for unknown driver")
	}
}

func TestOpenDefaultsToFilesystem(t *testing.T) {
	t.Setenv("DUTYROSTER_EVIDENCE_DRIVER", "")
	t.Setenv("DUTYROSTER_EVIDENCE_FS_ROOT", t.TempDir())
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("expected fs driver, got %s", store.Driver())
	}
}
