package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitCooldownSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cryptomark_rate_limit_cooldown_seconds",
		Help: "Length of the most recently recorded upstream cooldown",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cryptomark_rate_limit_blocks_total",
		Help: "Total number of requests blocked by an upstream cooldown",
	})

	rateLimit429Total = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cryptomark_rate_limit_429_total",
		Help: "Total number of 429 responses received from upstream",
	})
)

// Tracker records upstream cooldowns in Redis and paces requests locally.
type Tracker struct {
	redis   *redis.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
	now     func() time.Time
}

// NewTracker creates a tracker. ratePerSecond <= 0 disables local pacing.
func NewTracker(redisClient *redis.Client, ratePerSecond float64, logger zerolog.Logger) *Tracker {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	return &Tracker{
		redis:   redisClient,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		now:     time.Now,
	}
}

// GetState loads the current state. Missing keys yield a zero state, which
// is not blocked.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	values, err := t.redis.MGet(ctx, RedisKeyBlockedUntil, RedisKeyLastStatus, RedisKeyLastUpdate).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	state := &State{}
	if v, ok := values[0].(string); ok {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse blocked until: %w", err)
		}
		state.BlockedUntil = time.UnixMilli(ms)
	}
	if v, ok := values[1].(string); ok {
		if state.LastStatus, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("parse last status: %w", err)
		}
	}
	if v, ok := values[2].(string); ok {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
		state.LastUpdate = time.UnixMilli(ms)
	}
	return state, nil
}

// UpdateFromResponse records the outcome of an upstream response. A 429
// starts a cooldown of Retry-After (seconds or HTTP date), or
// DefaultCooldown when the header is absent or invalid.
func (t *Tracker) UpdateFromResponse(ctx context.Context, statusCode int, headers http.Header) error {
	now := t.now()

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyLastStatus, statusCode, 0)
	pipe.Set(ctx, RedisKeyLastUpdate, now.UnixMilli(), 0)

	if statusCode == http.StatusTooManyRequests {
		cooldown := ParseRetryAfter(headers.Get("Retry-After"), now)
		until := now.Add(cooldown)
		pipe.Set(ctx, RedisKeyBlockedUntil, until.UnixMilli(), 0)

		rateLimit429Total.Inc()
		rateLimitCooldownSeconds.Set(cooldown.Seconds())
		t.logger.Warn().
			Dur("cooldown", cooldown).
			Time("blocked_until", until).
			Msg("Upstream rate limit hit - requests paused")
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

// ShouldAllowRequest returns false while a cooldown is active. Otherwise it
// waits for the local pacer and returns true.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, err
	}

	if state.IsBlocked(t.now()) {
		rateLimitBlocksTotal.Inc()
		t.logger.Debug().
			Time("blocked_until", state.BlockedUntil).
			Msg("Upstream cooldown active - blocking request")
		return false, nil
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("wait for rate limiter: %w", err)
	}
	return true, nil
}

// WaitForReset blocks until the current cooldown (if any) has passed.
func (t *Tracker) WaitForReset(ctx context.Context) error {
	state, err := t.GetState(ctx)
	if err != nil {
		return err
	}
	wait := state.BlockedUntil.Sub(t.now())
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ParseRetryAfter parses a Retry-After value as delay-seconds or an HTTP
// date relative to now.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultCooldown
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return DefaultCooldown
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return DefaultCooldown
}

// IsRateLimited reports whether err carries a 429 status.
func IsRateLimited(err error) bool {
	var sc interface{ HTTPStatus() int }
	return errors.As(err, &sc) && sc.HTTPStatus() == http.StatusTooManyRequests
}
