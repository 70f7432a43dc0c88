// Package fetcher retrieves the per-day JSON documents from the static file
// host. Each day has up to four category files; a failure on one category
// never blocks the others.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"hodlflow/config"
	"hodlflow/logger"
	"hodlflow/models"
)

const (
	snapshotsFile = "hodl_snapshots.json"
	rankingFile   = "solana_addresses.json"
	changesFile   = "solana_address_details.json"
	removalsFile  = "solana_addresses_removed.json"
)

// Fetcher pulls daily category files over plain HTTP GET. It is safe for
// concurrent use.
type Fetcher struct {
	cfg     *config.Config
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Log
}

// New builds a Fetcher from the source configuration.
func New(cfg *config.Config) *Fetcher {
	rl := cfg.Source.RateLimit
	rps := rl.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := rl.BurstSize
	if burst <= 0 {
		burst = 1
	}

	timeout := cfg.Source.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Fetcher{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     logger.GetLogger(),
	}
}

// FetchDay retrieves the four category files for one calendar day. All four
// requests are issued concurrently and joined; a per-category failure simply
// yields an empty list for that category. The returned bundle is nil when all
// four categories came back empty or failed, which callers treat as "no data
// published for this day". An error is returned only when the context is
// cancelled.
func (f *Fetcher) FetchDay(ctx context.Context, day string) (*models.DayBundle, error) {
	log := f.log.WithComponent("fetcher").WithFields(logger.Fields{"day": day})

	bundle := &models.DayBundle{Day: day}
	var totalBytes int

	var wg sync.WaitGroup
	var mu sync.Mutex

	fetchInto := func(filename string, decode func([]byte) (int, error)) {
		defer wg.Done()

		body, err := f.getFile(ctx, day, filename)
		if err != nil {
			// Missing category files are routine: the host publishes only
			// the categories that changed that day.
			log.WithError(err).WithFields(logger.Fields{"file": filename}).Debug("category file unavailable")
			return
		}

		mu.Lock()
		defer mu.Unlock()
		count, err := decode(body)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"file": filename}).Warn("failed to decode category file")
			return
		}
		totalBytes += len(body)
		log.WithFields(logger.Fields{"file": filename, "records": count}).Debug("fetched category file")
	}

	wg.Add(4)
	go fetchInto(snapshotsFile, func(b []byte) (int, error) {
		if err := json.Unmarshal(b, &bundle.Snapshots); err != nil {
			return 0, err
		}
		return len(bundle.Snapshots), nil
	})
	go fetchInto(rankingFile, func(b []byte) (int, error) {
		if err := json.Unmarshal(b, &bundle.Ranking); err != nil {
			return 0, err
		}
		return len(bundle.Ranking), nil
	})
	go fetchInto(changesFile, func(b []byte) (int, error) {
		if err := json.Unmarshal(b, &bundle.ChangeEvents); err != nil {
			return 0, err
		}
		return len(bundle.ChangeEvents), nil
	})
	go fetchInto(removalsFile, func(b []byte) (int, error) {
		if err := json.Unmarshal(b, &bundle.RemovalEvents); err != nil {
			return 0, err
		}
		return len(bundle.RemovalEvents), nil
	})
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !bundle.HasData() {
		logger.IncrementMissingDay()
		return nil, nil
	}

	logger.IncrementFetchedDay(totalBytes)
	return bundle, nil
}

// FetchLPMetadata retrieves the lp.json address metadata document. The file is
// small and changes rarely; callers cache the result without expiry.
func (f *Fetcher) FetchLPMetadata(ctx context.Context) (models.LPMetadata, error) {
	if f.cfg.Source.LPURL == "" {
		return nil, fmt.Errorf("lp metadata url not configured")
	}

	body, err := f.httpGet(ctx, f.cfg.Source.LPURL)
	if err != nil {
		return nil, err
	}

	meta := models.LPMetadata{}
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode lp metadata: %w", err)
	}
	return meta, nil
}

func (f *Fetcher) getFile(ctx context.Context, day, filename string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/%s", f.cfg.Source.BaseURL, day, filename)
	return f.httpGet(ctx, url)
}

// httpGet performs a rate-limited HTTP GET against the file host.
func (f *Fetcher) httpGet(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Hodlflow/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}
