package respcache

import (
	"context"
	"path/filepath"
	"testing"
)

func openCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := Open(filepath.Join(t.TempDir(), "responses.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestGetMissReturnsFalse(t *testing.T) {
	cache := openCache(t)
	_, ok, err := cache.Get(context.Background(), "r", "s", "q", "m")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected miss")
	}
}

func TestPutThenGet(t *testing.T) {
	cache := openCache(t)
	ctx := context.Background()

	if err := cache.Put(ctx, "r.png", "L. annulata", "q.jpg", "gemini-2.5-flash", "NO MATCH."); err != nil {
		t.Fatalf("Put: %v", err)
	}
	raw, ok, err := cache.Get(ctx, "r.png", "L. annulata", "q.jpg", "gemini-2.5-flash")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || raw != "NO MATCH." {
		t.Fatalf("Get = (%q, %v)", raw, ok)
	}

	// A different model must not hit the same entry.
	if _, ok, _ := cache.Get(ctx, "r.png", "L. annulata", "q.jpg", "other-model"); ok {
		t.Fatal("unexpected cross-model hit")
	}
}

func TestPutReplacesExisting(t *testing.T) {
	cache := openCache(t)
	ctx := context.Background()

	if err := cache.Put(ctx, "r", "s", "q", "m", "first"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := cache.Put(ctx, "r", "s", "q", "m", "second"); err != nil {
		t.Fatalf("Put replace: %v", err)
	}
	raw, ok, err := cache.Get(ctx, "r", "s", "q", "m")
	if err != nil || !ok {
		t.Fatalf("Get = (%q, %v, %v)", raw, ok, err)
	}
	if raw != "second" {
		t.Fatalf("expected replacement, got %q", raw)
	}
}

func TestCacheSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "responses.db")
	cache, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := cache.Put(context.Background(), "r", "s", "q", "m", "persisted"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	raw, ok, err := reopened.Get(context.Background(), "r", "s", "q", "m")
	if err != nil || !ok || raw != "persisted" {
		t.Fatalf("Get after reopen = (%q, %v, %v)", raw, ok, err)
	}
}
