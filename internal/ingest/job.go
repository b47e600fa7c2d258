// Package ingest refreshes the coins table from the market-data source.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/cryptomark/internal/store"
	"github.com/Sternrassler/cryptomark/pkg/logging"
	"github.com/Sternrassler/cryptomark/pkg/marketdata"
)

var (
	syncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptomark_sync_runs_total",
		Help: "Total number of coin sync runs by result",
	}, []string{"result"})

	syncCoinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptomark_sync_coins_total",
		Help: "Total number of coins processed by sync runs by result",
	}, []string{"result"})

	syncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cryptomark_sync_duration_seconds",
		Help:    "Duration of coin sync runs",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	})
)

// MarketSource fetches coin listings. *marketdata.Source satisfies it.
type MarketSource interface {
	FetchMarkets(ctx context.Context, pages int) ([]marketdata.Coin, error)
}

// CoinStore persists coins. *store.Store satisfies it.
type CoinStore interface {
	UpsertCoin(ctx context.Context, coin *store.Coin) error
}

// Invalidator clears a cache namespace. *cache.Manager satisfies it.
type Invalidator interface {
	Invalidate(ctx context.Context, namespace string) (int, error)
}

// Result summarises a run.
type Result struct {
	Processed int       `json:"processed"`
	Failed    int       `json:"failed"`
	Timestamp time.Time `json:"timestamp"`
}

// Job fetches the market listing and upserts every coin.
type Job struct {
	source MarketSource
	store  CoinStore
	cache  Invalidator
	pages  int
	logger zerolog.Logger
	now    func() time.Time
}

// NewJob creates a job fetching pages listing pages per run.
func NewJob(source MarketSource, coins CoinStore, pages int) *Job {
	if pages < 1 {
		pages = 1
	}
	return &Job{
		source: source,
		store:  coins,
		pages:  pages,
		logger: logging.NewLogger("ingest"),
		now:    time.Now,
	}
}

// WithInvalidator clears the coin list cache after successful runs.
func (j *Job) WithInvalidator(inv Invalidator) *Job {
	j.cache = inv
	return j
}

// Run performs one refresh. A coin that fails to store is logged and
// counted without aborting the run. If the listing could only be fetched
// partially, the fetched coins are still stored and the fetch error is
// returned with the result.
func (j *Job) Run(ctx context.Context) (Result, error) {
	start := j.now()
	timer := prometheus.NewTimer(syncDuration)
	defer timer.ObserveDuration()

	coins, fetchErr := j.source.FetchMarkets(ctx, j.pages)
	if fetchErr != nil && len(coins) == 0 {
		syncRunsTotal.WithLabelValues("error").Inc()
		j.logger.Error().Err(fetchErr).Msg("Failed to fetch market data")
		return Result{Timestamp: start}, fmt.Errorf("fetch markets: %w", fetchErr)
	}
	if fetchErr != nil {
		j.logger.Warn().Err(fetchErr).Int("coins", len(coins)).Msg("Market data fetched partially")
	}

	result := Result{Timestamp: start}
	for _, c := range coins {
		if err := ctx.Err(); err != nil {
			syncRunsTotal.WithLabelValues("error").Inc()
			return result, err
		}

		row := ToStoreCoin(c)
		if err := j.store.UpsertCoin(ctx, &row); err != nil {
			result.Failed++
			syncCoinsTotal.WithLabelValues("failed").Inc()
			j.logger.Warn().Err(err).Str("coin_id", c.ID).Msg("Failed to upsert coin")
			continue
		}
		result.Processed++
		syncCoinsTotal.WithLabelValues("processed").Inc()
	}

	if j.cache != nil && result.Processed > 0 {
		if n, err := j.cache.Invalidate(ctx, store.CoinsCacheNamespace); err != nil {
			j.logger.Warn().Err(err).Msg("Failed to invalidate coin cache")
		} else {
			j.logger.Debug().Int("keys", n).Msg("Coin cache invalidated")
		}
	}

	j.logger.Info().
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Dur("duration", j.now().Sub(start)).
		Msg("Coin sync finished")

	if fetchErr != nil {
		syncRunsTotal.WithLabelValues("partial").Inc()
		return result, fmt.Errorf("fetch markets: %w", fetchErr)
	}
	syncRunsTotal.WithLabelValues("success").Inc()
	return result, nil
}

// IsPartial reports whether err came from a run that still stored coins.
func IsPartial(result Result, err error) bool {
	return err != nil && !errors.Is(err, context.Canceled) && result.Processed > 0
}
