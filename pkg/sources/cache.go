package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/pixelgate/pixelgate/pkg/config"
	"github.com/pixelgate/pixelgate/pkg/resolve"
	"github.com/pixelgate/pixelgate/pkg/telemetry"
)

// CacheSourceID identifies the local cache source.
const CacheSourceID = "cache"

// Key prefixes. Asset bodies and their metadata live under separate
// keys written in the same transaction.
var (
	cacheBodyPrefix = []byte("b:")
	cacheMetaPrefix = []byte("m:")
)

// cacheMeta is the metadata envelope stored alongside each cached body.
type cacheMeta struct {
	ContentType string `json:"content_type,omitempty"`
	ETag        string `json:"etag,omitempty"`
	Size        int64  `json:"size"`
}

// CacheSource serves assets from a local Badger database. It is both a
// resolver source and a lifecycle component: the database opens during
// initialization and closes during shutdown. Entries expire after the
// configured TTL.
type CacheSource struct {
	path          string
	ttl           time.Duration
	writeBack     bool
	maxEntryBytes int64
	db            *badger.DB
	opened        atomic.Bool
	eligible      atomic.Bool
	log           *telemetry.Logger
}

// NewCacheSource creates a cache source; the database is not opened
// until Init runs.
func NewCacheSource(cfg config.CacheSourceConfig, log *telemetry.Logger) *CacheSource {
	if log == nil {
		log = telemetry.NopLogger()
	}
	s := &CacheSource{
		path:          cfg.Path,
		ttl:           cfg.TTL,
		writeBack:     cfg.WriteBack,
		maxEntryBytes: cfg.MaxEntryBytes,
		log:           log.NewComponentLogger("source-cache"),
	}
	s.eligible.Store(cfg.Enabled)
	return s
}

// ID implements resolve.Source.
func (s *CacheSource) ID() string { return CacheSourceID }

// Name implements engine.Component.
func (s *CacheSource) Name() string { return "source-cache" }

// Eligible implements resolve.Source. The cache only participates once
// the database has been opened.
func (s *CacheSource) Eligible() bool {
	return s.eligible.Load() && s.opened.Load()
}

// SetEligible flips the source in or out of resolution rotation.
func (s *CacheSource) SetEligible(v bool) { s.eligible.Store(v) }

// WriteBackEnabled reports whether winning remote fetches should be
// written back into the cache.
func (s *CacheSource) WriteBackEnabled() bool { return s.writeBack }

// Init opens the Badger database.
func (s *CacheSource) Init(ctx context.Context) error {
	opts := badger.DefaultOptions(s.path).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open cache database at %s: %w", s.path, err)
	}

	s.db = db
	s.opened.Store(true)
	s.log.WithField("path", s.path).Info("Cache database opened")
	return nil
}

// Shutdown closes the Badger database.
func (s *CacheSource) Shutdown(ctx context.Context) error {
	if !s.opened.Swap(false) {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close cache database: %w", err)
	}
	s.log.Info("Cache database closed")
	return nil
}

// Fetch implements resolve.Source. An absent or expired entry is
// reported as (nil, nil).
func (s *CacheSource) Fetch(ctx context.Context, key string) (*resolve.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.opened.Load() {
		return nil, nil
	}

	var body []byte
	var meta cacheMeta

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(bodyKey(key))
		if err != nil {
			return err
		}
		body, err = item.ValueCopy(nil)
		if err != nil {
			return err
		}

		metaItem, err := txn.Get(metaKey(key))
		if err == badger.ErrKeyNotFound {
			// Body without metadata still serves; size is recomputed.
			meta = cacheMeta{Size: int64(len(body))}
			return nil
		}
		if err != nil {
			return err
		}
		return metaItem.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache read for %q: %w", key, err)
	}

	return &resolve.Result{
		SourceID:    CacheSourceID,
		Body:        io.NopCloser(bytes.NewReader(body)),
		Size:        int64(len(body)),
		ContentType: meta.ContentType,
		ETag:        meta.ETag,
	}, nil
}

// Put stores an asset body and its metadata with the configured TTL.
// Bodies larger than the per-entry cap are silently skipped.
func (s *CacheSource) Put(ctx context.Context, key string, body []byte, contentType, etag string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.opened.Load() {
		return fmt.Errorf("cache is not open")
	}
	if s.maxEntryBytes > 0 && int64(len(body)) > s.maxEntryBytes {
		s.log.WithKey(key).
			WithField("size", len(body)).
			Debug("Asset exceeds cache entry cap, not cached")
		return nil
	}

	metaBytes, err := json.Marshal(cacheMeta{
		ContentType: contentType,
		ETag:        etag,
		Size:        int64(len(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache metadata: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		bodyEntry := badger.NewEntry(bodyKey(key), body)
		metaEntry := badger.NewEntry(metaKey(key), metaBytes)
		if s.ttl > 0 {
			bodyEntry = bodyEntry.WithTTL(s.ttl)
			metaEntry = metaEntry.WithTTL(s.ttl)
		}
		if err := txn.SetEntry(bodyEntry); err != nil {
			return err
		}
		return txn.SetEntry(metaEntry)
	})
	if err != nil {
		return fmt.Errorf("cache write for %q: %w", key, err)
	}

	return nil
}

// Delete removes an asset from the cache.
func (s *CacheSource) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.opened.Load() {
		return fmt.Errorf("cache is not open")
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(bodyKey(key)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Delete(metaKey(key)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return nil
	})
}

func bodyKey(key string) []byte {
	return append(append([]byte{}, cacheBodyPrefix...), key...)
}

func metaKey(key string) []byte {
	return append(append([]byte{}, cacheMetaPrefix...), key...)
}
