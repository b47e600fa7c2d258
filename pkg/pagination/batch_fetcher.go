package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// FetchConfig holds batch fetcher configuration.
type FetchConfig struct {
	// MaxConcurrency is the maximum number of parallel page requests.
	MaxConcurrency int

	// Timeout bounds a single page fetch.
	Timeout time.Duration
}

// DefaultFetchConfig returns a conservative configuration for public
// market-data APIs, which throttle aggressively.
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		MaxConcurrency: 2,
		Timeout:        30 * time.Second,
	}
}

// PageFetcher fetches one page (1-based) of an upstream listing.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) ([]byte, error)
}

// PageResult is the outcome of fetching a single page.
type PageResult struct {
	PageNumber int
	Data       []byte
	Error      error
}

// BatchFetcher fetches multiple pages in parallel.
type BatchFetcher struct {
	fetcher PageFetcher
	config  FetchConfig
}

// NewBatchFetcher creates a new batch fetcher.
func NewBatchFetcher(fetcher PageFetcher, config FetchConfig) *BatchFetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultFetchConfig().MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultFetchConfig().Timeout
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchPages fetches pages 1..totalPages and returns their bodies keyed by
// page number. Page 1 is fetched first so an unreachable upstream fails before
// the worker pool starts. On a worker failure the pages fetched so far are
// returned together with the error.
func (bf *BatchFetcher) FetchPages(ctx context.Context, totalPages int) (map[int][]byte, error) {
	if totalPages < 1 {
		return map[int][]byte{}, nil
	}
	start := time.Now()

	first, err := bf.fetchOne(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("fetch first page: %w", err)
	}

	results := map[int][]byte{1: first}
	if totalPages == 1 {
		log.Debug().Int("pages", 1).Dur("duration", time.Since(start)).Msg("Fetch complete (single page)")
		return results, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pageQueue := make(chan int, totalPages-1)
	for page := 2; page <= totalPages; page++ {
		pageQueue <- page
	}
	close(pageQueue)

	pageResults := make(chan PageResult, totalPages-1)

	var wg sync.WaitGroup
	workers := min(bf.config.MaxConcurrency, totalPages-1)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go bf.worker(ctx, pageQueue, pageResults, &wg, i)
	}

	go func() {
		wg.Wait()
		close(pageResults)
	}()

	var firstErr error
	for result := range pageResults {
		if result.Error != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("fetch page %d: %w", result.PageNumber, result.Error)
				cancel()
			}
			continue
		}
		results[result.PageNumber] = result.Data
	}

	if firstErr != nil {
		log.Warn().
			Err(firstErr).
			Int("fetched_pages", len(results)).
			Int("total_pages", totalPages).
			Msg("Page fetch failed - returning partial results")
		return results, firstErr
	}

	log.Debug().
		Int("pages", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return results, nil
}

func (bf *BatchFetcher) fetchOne(ctx context.Context, page int) ([]byte, error) {
	pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()
	return bf.fetcher.FetchPage(pageCtx, page)
}

// worker processes pages from the queue until it is drained or ctx is done.
func (bf *BatchFetcher) worker(ctx context.Context, pageQueue <-chan int, results chan<- PageResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for page := range pageQueue {
		if ctx.Err() != nil {
			log.Debug().Int("worker_id", workerID).Int("pages_processed", processed).Msg("Worker stopping (context cancelled)")
			return
		}

		data, err := bf.fetchOne(ctx, page)
		results <- PageResult{PageNumber: page, Data: data, Error: err}
		if err != nil {
			return
		}
		processed++
	}
}
