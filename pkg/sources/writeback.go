package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/pixelgate/pixelgate/pkg/resolve"
	"github.com/pixelgate/pixelgate/pkg/telemetry"
)

// WriteBack populates the cache from a winning remote fetch. The
// result body is consumed, stored, and handed back as an equivalent
// in-memory result; results that already came from the cache pass
// through untouched. A failed cache write is logged, never surfaced:
// the asset was still resolved.
func WriteBack(ctx context.Context, cache *CacheSource, key string, res *resolve.Result, log *telemetry.Logger) (*resolve.Result, error) {
	if cache == nil || !cache.WriteBackEnabled() || res.SourceID == CacheSourceID {
		return res, nil
	}
	if log == nil {
		log = telemetry.NopLogger()
	}

	body, err := io.ReadAll(res.Body)
	closeErr := res.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read %q from %s: %w", key, res.SourceID, err)
	}
	if closeErr != nil {
		log.WithKey(key).WithError(closeErr).Debug("Failed to close source body")
	}

	if err := cache.Put(ctx, key, body, res.ContentType, res.ETag); err != nil {
		log.WithKey(key).WithSource(res.SourceID).WithError(err).Warn("Cache write-back failed")
	}

	return &resolve.Result{
		SourceID:    res.SourceID,
		Body:        io.NopCloser(bytes.NewReader(body)),
		Size:        int64(len(body)),
		ContentType: res.ContentType,
		ETag:        res.ETag,
	}, nil
}
