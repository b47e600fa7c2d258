package ingest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runnerFunc func(ctx context.Context) (Result, error)

func (f runnerFunc) Run(ctx context.Context) (Result, error) { return f(ctx) }

func TestNewScheduler(t *testing.T) {
	s, err := NewScheduler(runnerFunc(nil), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultCron, s.Cron())

	_, err = NewScheduler(runnerFunc(nil), "not a cron")
	assert.Error(t, err)
}

func TestScheduler_Next(t *testing.T) {
	s, err := NewScheduler(runnerFunc(nil), "0 * * * *")
	require.NoError(t, err)

	ref := time.Date(2026, 5, 4, 10, 15, 0, 0, time.UTC)
	next, err := s.Next(ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 4, 11, 0, 0, 0, time.UTC), next)

	s, err = NewScheduler(runnerFunc(nil), "*/5 * * * *")
	require.NoError(t, err)
	next, err = s.Next(ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 4, 10, 20, 0, 0, time.UTC), next)
}

func TestScheduler_RunKeepsGoingAfterFailures(t *testing.T) {
	var runs atomic.Int32
	runner := runnerFunc(func(context.Context) (Result, error) {
		if runs.Add(1)%2 == 0 {
			return Result{}, errors.New("boom")
		}
		return Result{Processed: 1}, nil
	})

	s, err := NewScheduler(runner, DefaultCron)
	require.NoError(t, err)
	s.nextTick = func(_ string, ref time.Time) (time.Time, error) {
		return ref.Add(10 * time.Millisecond), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err = s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, runs.Load(), int32(3))
}

func TestScheduler_RunRetriesTickErrors(t *testing.T) {
	var calls atomic.Int32
	s, err := NewScheduler(runnerFunc(func(context.Context) (Result, error) {
		return Result{}, nil
	}), DefaultCron)
	require.NoError(t, err)
	s.retry = 5 * time.Millisecond
	s.nextTick = func(string, time.Time) (time.Time, error) {
		calls.Add(1)
		return time.Time{}, errors.New("bad expression")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	err = s.Run(ctx)
	assert.Error(t, err)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}
