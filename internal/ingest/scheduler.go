package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/cryptomark/pkg/logging"
)

// DefaultCron refreshes every five minutes.
const DefaultCron = "*/5 * * * *"

// Runner is a unit of scheduled work. *Job satisfies it.
type Runner interface {
	Run(ctx context.Context) (Result, error)
}

// Scheduler runs a Runner on a cron schedule. Runs never overlap.
type Scheduler struct {
	runner   Runner
	cron     string
	logger   zerolog.Logger
	now      func() time.Time
	nextTick func(expr string, ref time.Time) (time.Time, error)
	retry    time.Duration
}

// NewScheduler validates cronExpr and returns a scheduler. An empty
// expression means DefaultCron.
func NewScheduler(runner Runner, cronExpr string) (*Scheduler, error) {
	if cronExpr == "" {
		cronExpr = DefaultCron
	}
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid cron expression: %q", cronExpr)
	}
	return &Scheduler{
		runner: runner,
		cron:   cronExpr,
		logger: logging.NewLogger("scheduler"),
		now:    time.Now,
		nextTick: func(expr string, ref time.Time) (time.Time, error) {
			return gronx.NextTickAfter(expr, ref, false)
		},
		retry: 30 * time.Second,
	}, nil
}

// Cron returns the schedule expression.
func (s *Scheduler) Cron() string {
	return s.cron
}

// Next returns the first tick strictly after ref.
func (s *Scheduler) Next(ref time.Time) (time.Time, error) {
	return s.nextTick(s.cron, ref)
}

// Run waits for each tick and runs the job until ctx is cancelled. Failed
// runs are logged; the schedule continues.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().Str("cron", s.cron).Msg("Scheduler started")
	defer s.logger.Info().Msg("Scheduler stopped")

	for {
		next, err := s.Next(s.now().UTC())
		if err != nil {
			s.logger.Error().Err(err).Str("cron", s.cron).Msg("Failed to compute next tick")
			if !s.wait(ctx, s.retry) {
				return ctx.Err()
			}
			continue
		}

		if !s.wait(ctx, next.Sub(s.now())) {
			return ctx.Err()
		}

		result, err := s.runner.Run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error().Err(err).Int("processed", result.Processed).Msg("Scheduled sync failed")
		}
	}
}

func (s *Scheduler) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
