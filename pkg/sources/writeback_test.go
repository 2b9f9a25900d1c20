package sources

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/pixelgate/pixelgate/pkg/config"
	"github.com/pixelgate/pixelgate/pkg/resolve"
)

func TestWriteBackPopulatesCache(t *testing.T) {
	cache := newTestCache(t, config.CacheSourceConfig{
		Enabled:   true,
		WriteBack: true,
	})
	ctx := context.Background()

	remote := &resolve.Result{
		SourceID:    OriginSourceID,
		Body:        io.NopCloser(bytes.NewReader([]byte("asset-body"))),
		ContentType: "text/css",
		ETag:        `"e1"`,
	}

	res, err := WriteBack(ctx, cache, "style.css", remote, nil)
	if err != nil {
		t.Fatalf("WriteBack: %v", err)
	}

	// The returned result still serves the caller.
	body, _ := io.ReadAll(res.Body)
	if string(body) != "asset-body" {
		t.Errorf("body = %q, want asset-body", body)
	}
	if res.SourceID != OriginSourceID {
		t.Errorf("SourceID = %q, want origin attribution preserved", res.SourceID)
	}

	// And a later fetch hits the cache.
	cached, err := cache.Fetch(ctx, "style.css")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if cached == nil {
		t.Fatal("asset should be cached after write-back")
	}
	defer cached.Body.Close()
	cachedBody, _ := io.ReadAll(cached.Body)
	if string(cachedBody) != "asset-body" {
		t.Errorf("cached body = %q", cachedBody)
	}
	if cached.ContentType != "text/css" {
		t.Errorf("cached ContentType = %q", cached.ContentType)
	}
}

func TestWriteBackSkipsCacheHits(t *testing.T) {
	cache := newTestCache(t, config.CacheSourceConfig{
		Enabled:   true,
		WriteBack: true,
	})

	hit := &resolve.Result{
		SourceID: CacheSourceID,
		Body:     io.NopCloser(bytes.NewReader([]byte("already cached"))),
	}

	res, err := WriteBack(context.Background(), cache, "k", hit, nil)
	if err != nil {
		t.Fatalf("WriteBack: %v", err)
	}
	if res != hit {
		t.Error("cache hits should pass through untouched")
	}
}

func TestWriteBackDisabledPassesThrough(t *testing.T) {
	cache := newTestCache(t, config.CacheSourceConfig{
		Enabled:   true,
		WriteBack: false,
	})

	remote := &resolve.Result{
		SourceID: R2SourceID,
		Body:     io.NopCloser(bytes.NewReader([]byte("x"))),
	}

	res, err := WriteBack(context.Background(), cache, "k", remote, nil)
	if err != nil {
		t.Fatalf("WriteBack: %v", err)
	}
	if res != remote {
		t.Error("write-back disabled should pass result through")
	}
}
