package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/cryptomark/internal/ingest"
)

var runImmediately bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Refresh coins on the configured cron schedule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := setup(ctx)
		if err != nil {
			return err
		}
		defer rt.close()

		scheduler, err := ingest.NewScheduler(rt.job, rt.cfg.Sync.Cron)
		if err != nil {
			return err
		}

		if runImmediately {
			if _, err := rt.job.Run(ctx); err != nil {
				rt.logger.Warn().Err(err).Msg("Initial sync failed")
			}
		}

		next, err := scheduler.Next(time.Now().UTC())
		if err == nil {
			rt.logger.Info().Time("next_run", next).Msg("Waiting for first scheduled sync")
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return ignoreCanceled(rt.prober.Run(gctx)) })
		g.Go(func() error { return ignoreCanceled(scheduler.Run(gctx)) })
		return g.Wait()
	},
}

func init() {
	scheduleCmd.Flags().BoolVar(&runImmediately, "now", false, "run one sync before waiting for the first tick")
	rootCmd.AddCommand(scheduleCmd)
}
