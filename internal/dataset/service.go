// Package dataset ties the pipeline together: range resolution, cache lookup,
// day-by-day fetch and merge, and the derived queries served to consumers.
package dataset

import (
	"context"
	"sync"
	"time"

	"hodlflow/config"
	"hodlflow/internal/cache"
	"hodlflow/internal/daterange"
	"hodlflow/internal/merge"
	"hodlflow/logger"
	"hodlflow/models"
)

// LPFetcher retrieves the address metadata document.
type LPFetcher interface {
	FetchLPMetadata(ctx context.Context) (models.LPMetadata, error)
}

// Archiver receives each freshly merged dataset for long-term storage.
type Archiver interface {
	ArchiveDataset(ctx context.Context, ds *models.CachedDataset) error
}

// inflight is one in-progress merge for a range key. Waiters block on done
// and then read ds/err.
type inflight struct {
	done chan struct{}
	ds   *models.CachedDataset
	err  error
}

// Service answers dataset queries, going to the network only when the cache
// has no valid entry. Overlapping requests for the same range key share one
// merge; a forced refresh bumps the key's generation so a slower stale merge
// cannot overwrite the cache behind it.
type Service struct {
	cfg      *config.Config
	cache    *cache.Manager
	merger   *merge.Orchestrator
	lp       LPFetcher
	archiver Archiver
	log      *logger.Log

	nowFn func() time.Time

	mu       sync.Mutex
	inflight map[string]*inflight
	gen      map[string]uint64

	lpMu   sync.RWMutex
	lpMeta models.LPMetadata

	onRefresh func(*models.CachedDataset)
}

// NewService wires the pipeline. archiver may be nil when archival is
// disabled.
func NewService(cfg *config.Config, cacheMgr *cache.Manager, merger *merge.Orchestrator, lp LPFetcher, archiver Archiver) *Service {
	return &Service{
		cfg:      cfg,
		cache:    cacheMgr,
		merger:   merger,
		lp:       lp,
		archiver: archiver,
		log:      logger.GetLogger(),
		nowFn:    time.Now,
		inflight: make(map[string]*inflight),
		gen:      make(map[string]uint64),
	}
}

// SetOnRefresh registers a callback invoked after every successful merge,
// used to push updates to live subscribers. Must be called before the service
// handles requests.
func (s *Service) SetOnRefresh(fn func(*models.CachedDataset)) {
	s.onRefresh = fn
}

// DefaultRange returns the configured trailing-days preset.
func (s *Service) DefaultRange() models.DataRange {
	return models.Preset(s.cfg.Fetch.DefaultPresetDays)
}

// Dataset returns the merged dataset for the range, served from cache while
// the entry is fresh. Concurrent callers for the same range key share one
// underlying merge.
func (s *Service) Dataset(ctx context.Context, r models.DataRange) (*models.CachedDataset, error) {
	now := s.nowFn()
	key := daterange.Key(r, now)

	if ds := s.cache.Get(ctx, key); ds != nil {
		return ds, nil
	}
	return s.fetchShared(ctx, r, key, now)
}

// Refresh bypasses and invalidates the cache for the range, then fetches
// fresh data. Any merge already in flight under the old generation completes
// but its result is discarded instead of written back.
func (s *Service) Refresh(ctx context.Context, r models.DataRange) (*models.CachedDataset, error) {
	now := s.nowFn()
	key := daterange.Key(r, now)

	s.mu.Lock()
	s.gen[key]++
	delete(s.inflight, key)
	s.mu.Unlock()

	s.cache.Invalidate(ctx, key)
	return s.fetchShared(ctx, r, key, now)
}

// fetchShared joins an in-flight merge for key or starts one.
func (s *Service) fetchShared(ctx context.Context, r models.DataRange, key string, now time.Time) (*models.CachedDataset, error) {
	s.mu.Lock()
	if fl, ok := s.inflight[key]; ok {
		s.mu.Unlock()
		select {
		case <-fl.done:
			return fl.ds, fl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	fl := &inflight{done: make(chan struct{})}
	s.inflight[key] = fl
	startGen := s.gen[key]
	s.mu.Unlock()

	ds, err := s.merger.Run(ctx, r.String(), daterange.Resolve(r, now))

	s.mu.Lock()
	current := s.gen[key] == startGen
	if s.inflight[key] == fl {
		delete(s.inflight, key)
	}
	s.mu.Unlock()

	fl.ds, fl.err = ds, err
	close(fl.done)

	if err != nil {
		return nil, err
	}
	if !current {
		// A refresh superseded this merge while it ran; its result may
		// predate the newer fetch and must not land in the cache.
		s.log.WithComponent("dataset").WithFields(logger.Fields{"key": key}).Debug("discarding stale merge result")
		return ds, nil
	}

	s.cache.Put(ctx, key, ds)
	if s.onRefresh != nil {
		s.onRefresh(ds)
	}
	if s.archiver != nil {
		if aerr := s.archiver.ArchiveDataset(ctx, ds); aerr != nil {
			s.log.WithComponent("dataset").WithError(aerr).Warn("failed to archive dataset")
		}
	}
	return ds, nil
}

// LPMetadata returns the address metadata document, fetched once and kept for
// the process lifetime. The file changes rarely enough that restarts are an
// acceptable refresh mechanism.
func (s *Service) LPMetadata(ctx context.Context) (models.LPMetadata, error) {
	s.lpMu.RLock()
	meta := s.lpMeta
	s.lpMu.RUnlock()
	if meta != nil {
		return meta, nil
	}

	meta, err := s.lp.FetchLPMetadata(ctx)
	if err != nil {
		return nil, err
	}

	s.lpMu.Lock()
	s.lpMeta = meta
	s.lpMu.Unlock()
	return meta, nil
}
