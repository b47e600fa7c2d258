package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/cryptomark/internal/ingest"
)

// errPartialSync is returned when some coins were stored but the listing
// or some upserts failed.
var errPartialSync = errors.New("sync completed partially")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Refresh coins once and print the result",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := setup(ctx)
		if err != nil {
			return err
		}
		defer rt.close()

		result, runErr := rt.job.Run(ctx)
		if err := printResult(cmd.OutOrStdout(), result); err != nil {
			return err
		}
		return syncOutcome(result, runErr)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func printResult(w io.Writer, result ingest.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// syncOutcome maps a run to the command error: nil on full success,
// errPartialSync when something was stored despite failures.
func syncOutcome(result ingest.Result, err error) error {
	switch {
	case ingest.IsPartial(result, err):
		return fmt.Errorf("%w: %w", errPartialSync, err)
	case err != nil:
		return err
	case result.Failed > 0 && result.Processed > 0:
		return fmt.Errorf("%w: %d coins failed", errPartialSync, result.Failed)
	case result.Failed > 0:
		return fmt.Errorf("sync failed for all %d coins", result.Failed)
	}
	return nil
}
