// Package merge walks a descending day-key list, fetches each day's bundle
// and accumulates the categories into one dataset. The walk stops early after
// a run of consecutive missing days, on the assumption that a gap while
// walking backward means history has run out.
package merge

import (
	"context"
	"errors"
	"sort"
	"time"

	"hodlflow/logger"
	"hodlflow/models"
)

// ErrNoData is returned when the whole walk yields zero records.
var ErrNoData = errors.New("no data found for the requested range")

// DayFetcher resolves one day key into a bundle. A nil bundle with a nil
// error means the day has no published data.
type DayFetcher interface {
	FetchDay(ctx context.Context, day string) (*models.DayBundle, error)
}

// Orchestrator accumulates per-day bundles into a CachedDataset.
type Orchestrator struct {
	fetcher       DayFetcher
	missingCutoff int
	log           *logger.Log
}

// New builds an Orchestrator. missingCutoff is the number of consecutive
// missing days that aborts the walk; values below 1 fall back to 3.
func New(fetcher DayFetcher, missingCutoff int) *Orchestrator {
	if missingCutoff < 1 {
		missingCutoff = 3
	}
	return &Orchestrator{
		fetcher:       fetcher,
		missingCutoff: missingCutoff,
		log:           logger.GetLogger(),
	}
}

// Run fetches the given days in order. Days must be sorted descending; the
// consecutive-missing cutoff is only meaningful walking backward from the
// present. Fetching is sequential because the abort decision for an older day
// depends on whether its newer neighbours were missing.
func (o *Orchestrator) Run(ctx context.Context, rangeKey string, days []string) (*models.CachedDataset, error) {
	log := o.log.WithComponent("merge").WithFields(logger.Fields{"range_key": rangeKey})
	start := time.Now()

	ds := &models.CachedDataset{RangeKey: rangeKey, FetchedAt: start}
	consecutiveMissing := 0
	fetched := 0

	for _, day := range days {
		bundle, err := o.fetcher.FetchDay(ctx, day)
		if err != nil {
			return nil, err
		}
		fetched++

		if !bundle.HasData() {
			consecutiveMissing++
			if consecutiveMissing >= o.missingCutoff {
				log.WithFields(logger.Fields{
					"day":                 day,
					"consecutive_missing": consecutiveMissing,
				}).Info("aborting walk, history appears to end here")
				break
			}
			continue
		}

		consecutiveMissing = 0
		ds.Snapshots = append(ds.Snapshots, bundle.Snapshots...)
		ds.ChangeEvents = append(ds.ChangeEvents, bundle.ChangeEvents...)
		ds.RemovalEvents = append(ds.RemovalEvents, bundle.RemovalEvents...)
		// The walk is newest-first, so the first non-empty ranking is the
		// current leaderboard; older rankings are stale and skipped.
		if len(ds.Ranking) == 0 && len(bundle.Ranking) > 0 {
			ds.Ranking = bundle.Ranking
		}
	}

	if ds.Empty() {
		return nil, ErrNoData
	}

	sortDataset(ds)
	logger.IncrementMergeCycle()
	log.WithFields(logger.Fields{
		"days_requested": len(days),
		"days_fetched":   fetched,
		"snapshots":      len(ds.Snapshots),
		"change_events":  len(ds.ChangeEvents),
		"removal_events": len(ds.RemovalEvents),
		"ranking_rows":   len(ds.Ranking),
		"duration_ms":    time.Since(start).Milliseconds(),
	}).Info("merge cycle complete")

	return ds, nil
}

// sortDataset puts snapshots and events newest-first and the ranking in
// leaderboard order. Fetch arrival order is not chronological.
func sortDataset(ds *models.CachedDataset) {
	sort.SliceStable(ds.Snapshots, func(i, j int) bool {
		return ds.Snapshots[i].CreatedAt.Time.After(ds.Snapshots[j].CreatedAt.Time)
	})
	sort.SliceStable(ds.ChangeEvents, func(i, j int) bool {
		return ds.ChangeEvents[i].ChangedAt.Time.After(ds.ChangeEvents[j].ChangedAt.Time)
	})
	sort.SliceStable(ds.RemovalEvents, func(i, j int) bool {
		return ds.RemovalEvents[i].RemovedAt.Time.After(ds.RemovalEvents[j].RemovedAt.Time)
	})
	sort.SliceStable(ds.Ranking, func(i, j int) bool {
		return ds.Ranking[i].HoldRank < ds.Ranking[j].HoldRank
	})
}
