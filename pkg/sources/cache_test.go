package sources

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/pixelgate/pixelgate/pkg/config"
)

func newTestCache(t *testing.T, cfg config.CacheSourceConfig) *CacheSource {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = t.TempDir()
	}
	cache := NewCacheSource(cfg, nil)
	if err := cache.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() {
		_ = cache.Shutdown(context.Background())
	})
	return cache
}

func TestCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t, config.CacheSourceConfig{
		Enabled: true,
		TTL:     time.Hour,
	})
	ctx := context.Background()

	if err := cache.Put(ctx, "img/logo.png", []byte("png-bytes"), "image/png", `"abc"`); err != nil {
		t.Fatalf("Put: %v", err)
	}

	res, err := cache.Fetch(ctx, "img/logo.png")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res == nil {
		t.Fatal("Fetch returned not-present for stored key")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "png-bytes" {
		t.Errorf("body = %q, want png-bytes", body)
	}
	if res.SourceID != CacheSourceID {
		t.Errorf("SourceID = %q, want %q", res.SourceID, CacheSourceID)
	}
	if res.ContentType != "image/png" {
		t.Errorf("ContentType = %q, want image/png", res.ContentType)
	}
	if res.Size != int64(len("png-bytes")) {
		t.Errorf("Size = %d, want %d", res.Size, len("png-bytes"))
	}
}

func TestCacheMissReturnsNotPresent(t *testing.T) {
	cache := newTestCache(t, config.CacheSourceConfig{Enabled: true})

	res, err := cache.Fetch(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res != nil {
		t.Fatal("expected not-present for missing key")
	}
}

func TestCacheDelete(t *testing.T) {
	cache := newTestCache(t, config.CacheSourceConfig{Enabled: true})
	ctx := context.Background()

	if err := cache.Put(ctx, "k", []byte("v"), "", ""); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := cache.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	res, err := cache.Fetch(ctx, "k")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res != nil {
		t.Fatal("expected not-present after delete")
	}
}

func TestCacheEntryCapSkipsLargeBodies(t *testing.T) {
	cache := newTestCache(t, config.CacheSourceConfig{
		Enabled:       true,
		MaxEntryBytes: 4,
	})
	ctx := context.Background()

	if err := cache.Put(ctx, "big", []byte("too large"), "", ""); err != nil {
		t.Fatalf("Put: %v", err)
	}

	res, err := cache.Fetch(ctx, "big")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res != nil {
		t.Fatal("oversized body should not have been cached")
	}
}

func TestCacheIneligibleBeforeInit(t *testing.T) {
	cache := NewCacheSource(config.CacheSourceConfig{
		Enabled: true,
		Path:    t.TempDir(),
	}, nil)

	if cache.Eligible() {
		t.Error("cache should be ineligible before Init")
	}

	res, err := cache.Fetch(context.Background(), "k")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res != nil {
		t.Fatal("unopened cache should report not-present")
	}
}

func TestCacheEligibilityToggle(t *testing.T) {
	cache := newTestCache(t, config.CacheSourceConfig{Enabled: true})

	if !cache.Eligible() {
		t.Fatal("cache should be eligible after Init")
	}
	cache.SetEligible(false)
	if cache.Eligible() {
		t.Error("cache should be ineligible after SetEligible(false)")
	}
}
