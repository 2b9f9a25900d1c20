package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/pixelgate/pixelgate/pkg/config"
	"github.com/pixelgate/pixelgate/pkg/resolve"
)

// OriginSourceID identifies the HTTP origin source.
const OriginSourceID = "origin"

// OriginSource fetches assets from an upstream HTTP origin. It is the
// fallback of last resort and is expected to be slower than the cache
// and the R2 bucket.
type OriginSource struct {
	client   *http.Client
	baseURL  string
	headers  map[string]string
	eligible atomic.Bool
}

// NewOriginSource creates an origin source. A nil client uses
// http.DefaultClient; per-fetch deadlines come from the caller's context.
func NewOriginSource(client *http.Client, cfg config.OriginSourceConfig) *OriginSource {
	if client == nil {
		client = http.DefaultClient
	}
	s := &OriginSource{
		client:  client,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		headers: cfg.Headers,
	}
	s.eligible.Store(cfg.Enabled)
	return s
}

// ID implements resolve.Source.
func (s *OriginSource) ID() string { return OriginSourceID }

// Eligible implements resolve.Source.
func (s *OriginSource) Eligible() bool { return s.eligible.Load() }

// SetEligible flips the source in or out of resolution rotation.
func (s *OriginSource) SetEligible(v bool) { s.eligible.Store(v) }

// Fetch implements resolve.Source. A 404 from the origin is reported as
// (nil, nil); any other non-2xx status is an error.
func (s *OriginSource) Fetch(ctx context.Context, key string) (*resolve.Result, error) {
	assetURL := s.baseURL + "/" + strings.TrimPrefix(key, "/")
	if _, err := url.Parse(assetURL); err != nil {
		return nil, fmt.Errorf("invalid asset URL %q: %w", assetURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build origin request: %w", err)
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("origin request failed: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("origin returned status %d for %q", resp.StatusCode, key)
	}

	return &resolve.Result{
		SourceID:    OriginSourceID,
		Body:        resp.Body,
		Size:        resp.ContentLength,
		ContentType: resp.Header.Get("Content-Type"),
		ETag:        resp.Header.Get("ETag"),
	}, nil
}
