package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/cryptomark/internal/ingest"
)

func TestSyncOutcome(t *testing.T) {
	fetchErr := errors.New("page 2: status 500")

	tests := []struct {
		name        string
		result      ingest.Result
		err         error
		wantErr     bool
		wantPartial bool
	}{
		{name: "success", result: ingest.Result{Processed: 10}},
		{name: "partial fetch", result: ingest.Result{Processed: 5}, err: fetchErr, wantErr: true, wantPartial: true},
		{name: "some upserts failed", result: ingest.Result{Processed: 8, Failed: 2}, wantErr: true, wantPartial: true},
		{name: "fetch failed", err: fetchErr, wantErr: true},
		{name: "all upserts failed", result: ingest.Result{Failed: 3}, wantErr: true},
		{name: "cancelled", result: ingest.Result{Processed: 1}, err: context.Canceled, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := syncOutcome(tt.result, tt.err)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantPartial, errors.Is(err, errPartialSync))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, printResult(&buf, ingest.Result{Processed: 7, Failed: 1, Timestamp: ts}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, float64(7), got["processed"])
	assert.Equal(t, float64(1), got["failed"])
	assert.Equal(t, "2026-03-01T12:00:00Z", got["timestamp"])
}

func TestIgnoreCanceled(t *testing.T) {
	assert.NoError(t, ignoreCanceled(context.Canceled))
	assert.NoError(t, ignoreCanceled(nil))
	assert.Error(t, ignoreCanceled(context.DeadlineExceeded))
}

func TestCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["schedule"])
	assert.NotNil(t, scheduleCmd.Flags().Lookup("now"))
}

func TestSetup_InvalidConfig(t *testing.T) {
	t.Setenv("CRYPTOMARK_DATABASE_DSN", "")
	t.Setenv("CRYPTOMARK_SYNC_CRON", "not a cron")
	configPath = ""

	_, err := setup(context.Background())
	assert.Error(t, err)
}
