package kasa_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mohitagr18/mcp-home-automation/internal/infra/kasa"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCacheReusesHandleWhileRefreshSucceeds(t *testing.T) {
	fake := newFakePlug(t, "Outdoor plug", true)

	client := kasa.NewClient(2 * time.Second)
	cache := kasa.NewCache(client, fake.addr(), discardLogger())
	ctx := context.Background()

	first, err := cache.Resolve(ctx)
	if err != nil {
		t.Fatalf("first Resolve error: %v", err)
	}
	second, err := cache.Resolve(ctx)
	if err != nil {
		t.Fatalf("second Resolve error: %v", err)
	}

	if first != second {
		t.Error("expected the cached handle to be reused")
	}
	if got := cache.Connects(); got != 1 {
		t.Errorf("connects: got %d, want 1", got)
	}
}

func TestCacheRecreatesHandleAfterFailedRefresh(t *testing.T) {
	fake := newFakePlug(t, "Outdoor plug", true)

	client := kasa.NewClient(2 * time.Second)
	cache := kasa.NewCache(client, fake.addr(), discardLogger())
	ctx := context.Background()

	if _, err := cache.Resolve(ctx); err != nil {
		t.Fatalf("initial Resolve error: %v", err)
	}

	// The cached handle's refresh fails once; the device is reachable again
	// for the fallback connection. The caller must see overall success.
	fake.setFailNext(1)

	plug, err := cache.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve after failed refresh: %v", err)
	}
	if plug.Device().Alias != "Outdoor plug" {
		t.Errorf("alias: got %q", plug.Device().Alias)
	}
	if got := cache.Connects(); got != 2 {
		t.Errorf("connects: got %d, want 2", got)
	}
}

func TestCacheFailureLeavesSlotEmpty(t *testing.T) {
	client := kasa.NewClient(500 * time.Millisecond)
	cache := kasa.NewCache(client, "127.0.0.1:1", discardLogger())
	ctx := context.Background()

	if _, err := cache.Resolve(ctx); err == nil {
		t.Fatal("expected Resolve to fail for unreachable device")
	}
	if got := cache.Connects(); got != 1 {
		t.Errorf("connects: got %d, want 1", got)
	}

	// A second call must start from a fresh connection attempt, proving the
	// failed handle was not cached.
	if _, err := cache.Resolve(ctx); err == nil {
		t.Fatal("expected Resolve to fail again")
	}
	if got := cache.Connects(); got != 2 {
		t.Errorf("connects: got %d, want 2", got)
	}
}

func TestCacheInvalidate(t *testing.T) {
	fake := newFakePlug(t, "Outdoor plug", false)

	client := kasa.NewClient(2 * time.Second)
	cache := kasa.NewCache(client, fake.addr(), discardLogger())
	ctx := context.Background()

	if _, err := cache.Resolve(ctx); err != nil {
		t.Fatalf("Resolve error: %v", err)
	}

	cache.Invalidate()

	if _, err := cache.Resolve(ctx); err != nil {
		t.Fatalf("Resolve after Invalidate: %v", err)
	}
	if got := cache.Connects(); got != 2 {
		t.Errorf("connects: got %d, want 2", got)
	}
}
