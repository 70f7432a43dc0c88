package dataset

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hodlflow/logger"
)

// Refresher re-fetches the default range on a fixed interval so cached data
// never goes stale between user requests.
type Refresher struct {
	svc      *Service
	interval time.Duration
	log      *logger.Entry

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewRefresher builds a refresher. Intervals below one minute are clamped to
// one minute to keep the file host traffic polite.
func NewRefresher(svc *Service, interval time.Duration) *Refresher {
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Refresher{
		svc:      svc,
		interval: interval,
		log:      logger.GetLogger().WithComponent("refresher"),
	}
}

// Start launches the refresh loop. An immediate refresh primes the cache
// before the first tick.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("refresher already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go r.loop(ctx)
	r.log.WithFields(logger.Fields{"interval": r.interval.String()}).Info("refresher started")
	return nil
}

// Stop halts the loop and waits for the current cycle to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	<-done
	r.log.Info("refresher stopped")
}

func (r *Refresher) loop(ctx context.Context) {
	defer close(r.done)

	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	start := time.Now()
	ds, err := r.svc.Refresh(ctx, r.svc.DefaultRange())
	if err != nil {
		if ctx.Err() == nil {
			r.log.WithError(err).Warn("scheduled refresh failed")
		}
		return
	}
	r.log.WithFields(logger.Fields{
		"snapshots":   len(ds.Snapshots),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("scheduled refresh complete")
}
