package client

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/cryptomark/pkg/logging"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptomark_retries_total",
		Help: "Total number of retry attempts by error kind",
	}, []string{"kind"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cryptomark_retry_backoff_seconds",
		Help:    "Backoff duration before a retry by error kind",
		Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"kind"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptomark_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error kind",
	}, []string{"kind"})
)

// RetryConfig controls how a call is retried.
type RetryConfig struct {
	// Retries is the number of retries after the first attempt. Zero means
	// a single attempt.
	Retries int

	// RetryDelay is the base delay. The wait before retry n (0-based) is
	// RetryDelay * 2^n.
	RetryDelay time.Duration

	// RetryCondition decides whether a failed attempt is retried.
	// Defaults to DefaultRetryCondition.
	RetryCondition func(err error) bool
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Retries:        3,
		RetryDelay:     1 * time.Second,
		RetryCondition: DefaultRetryCondition,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.RetryCondition == nil {
		c.RetryCondition = DefaultRetryCondition
	}
	return c
}

// Backoff returns the wait before retry number attempt (0-based). The result
// saturates at the maximum duration instead of overflowing.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	if attempt < 0 || c.RetryDelay <= 0 {
		return 0
	}
	if attempt >= 62 {
		return time.Duration(math.MaxInt64)
	}
	factor := int64(1) << attempt
	if int64(c.RetryDelay) > math.MaxInt64/factor {
		return time.Duration(math.MaxInt64)
	}
	return c.RetryDelay * time.Duration(factor)
}

// Budget returns how long a call can take when every attempt runs for
// attemptTimeout: all attempts plus every backoff wait. It saturates like
// Backoff.
func (c RetryConfig) Budget(attemptTimeout time.Duration) time.Duration {
	c = c.withDefaults()
	total := time.Duration(0)
	add := func(d time.Duration) {
		if d < 0 {
			return
		}
		if total > time.Duration(math.MaxInt64)-d {
			total = time.Duration(math.MaxInt64)
			return
		}
		total += d
	}
	for attempt := 0; attempt <= c.Retries; attempt++ {
		add(attemptTimeout)
		if attempt < c.Retries {
			add(c.Backoff(attempt))
		}
	}
	return total
}

// StatusSource reports the current connectivity state. *network.Monitor
// satisfies it.
type StatusSource interface {
	Status() bool
}

// Retrier executes calls with exponential backoff, skipping the call
// entirely while the status source reports offline.
type Retrier struct {
	monitor StatusSource
	sleep   func(ctx context.Context, d time.Duration) error
	logger  zerolog.Logger
}

// NewRetrier creates a retrier. A nil monitor is treated as always online.
func NewRetrier(monitor StatusSource) *Retrier {
	return &Retrier{
		monitor: monitor,
		sleep:   sleepContext,
		logger:  logging.NewLogger("retry"),
	}
}

func (r *Retrier) online() bool {
	return r.monitor == nil || r.monitor.Status()
}

// Do runs fn until it succeeds, the retry condition rejects the error, or
// cfg.Retries retries have been spent.
//
// An attempt made while offline does not call fn and fails with an offline
// RequestError, which the default condition retries. When every attempt
// fails the result is an *ExhaustedError wrapping the last error, except
// with Retries == 0 where the single error is returned unchanged.
func Do[T any](ctx context.Context, r *Retrier, fn func(ctx context.Context) (T, error), cfg RetryConfig) (T, error) {
	var zero T
	if r == nil {
		r = NewRetrier(nil)
	}
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 0; attempt <= cfg.Retries; attempt++ {
		var (
			result T
			err    error
		)

		if r.online() {
			start := time.Now()
			result, err = fn(ctx)
			r.logger.Debug().
				Int("attempt", attempt+1).
				Dur("duration", time.Since(start)).
				Bool("ok", err == nil).
				Msg("Attempt finished")
		} else {
			err = offlineError()
		}

		if err == nil {
			if attempt > 0 {
				r.logger.Info().Int("attempt", attempt+1).Msg("Request succeeded after retry")
			}
			return result, nil
		}
		lastErr = err

		if attempt == cfg.Retries {
			break
		}
		if !cfg.RetryCondition(err) {
			return zero, err
		}

		kind := string(KindOf(err))
		wait := cfg.Backoff(attempt)
		retriesTotal.WithLabelValues(kind).Inc()
		retryBackoffSeconds.WithLabelValues(kind).Observe(wait.Seconds())

		r.logger.Warn().
			Err(err).
			Str("kind", kind).
			Int("attempt", attempt+1).
			Int("retries", cfg.Retries).
			Dur("backoff", wait).
			Msg("Retrying after backoff")

		if err := r.sleep(ctx, wait); err != nil {
			r.logger.Warn().Int("attempt", attempt+1).Msg("Context cancelled during retry backoff")
			return zero, fmt.Errorf("%w: %w", ErrContextCancelled, err)
		}
	}

	if cfg.Retries == 0 {
		return zero, lastErr
	}

	retryExhaustedTotal.WithLabelValues(string(KindOf(lastErr))).Inc()
	r.logger.Warn().
		Err(lastErr).
		Int("attempts", cfg.Retries+1).
		Msg("Retry attempts exhausted")

	return zero, &ExhaustedError{Attempts: cfg.Retries + 1, Last: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
