// Package cache persists merged datasets under range-derived keys with a
// fixed time-to-live. Three backends are supported: in-process memory, flat
// files, and redis. Entry payloads are JSON with an epoch-millis write
// timestamp, so the file and redis forms stay inspectable.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hodlflow/config"
	"hodlflow/logger"
	"hodlflow/models"
)

// ErrMiss is returned by a Store when the key has no value.
var ErrMiss = errors.New("cache miss")

// Store is a minimal byte-level key-value backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// entry is the persisted envelope. Timestamp is epoch milliseconds of the
// write.
type entry struct {
	Timestamp int64                 `json:"timestamp"`
	Data      *models.CachedDataset `json:"data"`
}

// Manager wraps a Store with TTL bookkeeping.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
	log   *logger.Log
}

// NewManager builds a cache manager for the configured backend.
func NewManager(cfg *config.Config) (*Manager, error) {
	var store Store
	switch cfg.Cache.Backend {
	case "", "memory":
		store = NewMemoryStore()
	case "file":
		s, err := NewFileStore(cfg.Cache.Dir)
		if err != nil {
			return nil, err
		}
		store = s
	case "redis":
		store = NewRedisStore(cfg.Cache.Redis)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}

	ttl := cfg.Cache.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &Manager{
		store: store,
		ttl:   ttl,
		now:   time.Now,
		log:   logger.GetLogger(),
	}, nil
}

// newManagerWithStore is the test seam: it takes a prebuilt store and clock.
func newManagerWithStore(store Store, ttl time.Duration, now func() time.Time) *Manager {
	return &Manager{store: store, ttl: ttl, now: now, log: logger.GetLogger()}
}

// Get returns the cached dataset for key, or nil when the key is absent,
// expired, or unreadable. An entry written at t is valid strictly while
// now - t < TTL.
func (m *Manager) Get(ctx context.Context, key string) *models.CachedDataset {
	log := m.log.WithComponent("cache").WithFields(logger.Fields{"key": key})

	raw, err := m.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			log.WithError(err).Warn("cache read failed")
		}
		logger.IncrementCacheMiss()
		return nil
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		log.WithError(err).Warn("dropping undecodable cache entry")
		m.deleteQuietly(ctx, key)
		logger.IncrementCacheMiss()
		return nil
	}

	age := m.now().UnixMilli() - e.Timestamp
	if age >= m.ttl.Milliseconds() {
		log.WithFields(logger.Fields{"age_ms": age}).Debug("cache entry expired")
		m.deleteQuietly(ctx, key)
		logger.IncrementCacheMiss()
		return nil
	}

	logger.IncrementCacheHit()
	return e.Data
}

// Put stores the dataset under key. A failed write is tolerated: the entry is
// discarded, a warning is logged, and the caller's in-memory result stays
// usable.
func (m *Manager) Put(ctx context.Context, key string, ds *models.CachedDataset) {
	log := m.log.WithComponent("cache").WithFields(logger.Fields{"key": key})

	raw, err := json.Marshal(entry{Timestamp: m.now().UnixMilli(), Data: ds})
	if err != nil {
		log.WithError(err).Warn("failed to encode cache entry")
		logger.IncrementCacheWriteError()
		return
	}

	if err := m.store.Set(ctx, key, raw); err != nil {
		log.WithError(err).Warn("cache write failed, discarding entry")
		m.deleteQuietly(ctx, key)
		logger.IncrementCacheWriteError()
		return
	}
	log.WithFields(logger.Fields{"bytes": len(raw)}).Debug("cache entry written")
}

// Invalidate removes a key, used by forced refreshes.
func (m *Manager) Invalidate(ctx context.Context, key string) {
	m.deleteQuietly(ctx, key)
}

func (m *Manager) deleteQuietly(ctx context.Context, key string) {
	if err := m.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrMiss) {
		m.log.WithComponent("cache").WithError(err).WithFields(logger.Fields{"key": key}).Debug("cache delete failed")
	}
}
