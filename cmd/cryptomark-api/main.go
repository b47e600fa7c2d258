// Command cryptomark-api serves the bookmark and paper-trading HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/cryptomark/internal/api"
	"github.com/Sternrassler/cryptomark/internal/app"
	"github.com/Sternrassler/cryptomark/internal/auth"
	"github.com/Sternrassler/cryptomark/internal/config"
	"github.com/Sternrassler/cryptomark/internal/ingest"
	"github.com/Sternrassler/cryptomark/internal/store"
	"github.com/Sternrassler/cryptomark/pkg/cache"
)

var (
	configPath string
	withSync   bool
)

var rootCmd = &cobra.Command{
	Use:          "cryptomark-api",
	Short:        "Crypto bookmark and paper-trading API",
	SilenceUsage: true,
	Long: `cryptomark-api serves the coin listing, bookmark and paper-trading
endpoints under /api and Prometheus metrics under /metrics.

Configuration is read from config.yaml, .env and CRYPTOMARK_* variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.Flags().BoolVar(&withSync, "with-sync", false, "also run the scheduled coin sync in this process")
}

func main() {
	Execute()
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if withSync {
		if err := cfg.ValidateSync(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}

func serve(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := app.SetupLogging(cfg.Log, "cryptomark-api")

	db, err := store.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	rdb, err := app.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	monitor, prober := app.NewNetwork(ctx, cfg.Network)
	logger.Info().Bool("online", monitor.Status()).Str("probe", cfg.Network.ProbeAddress).Msg("Upstream connectivity checked")

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, rdb)
	server := api.NewServer(api.Config{
		Addr:        cfg.Server.Addr(),
		CoinListTTL: cfg.Server.CoinListTTL,
		AuthRate:    cfg.Server.AuthRate,
		AuthBurst:   cfg.Server.AuthBurst,
	}, api.Deps{
		Store:   db,
		Auth:    auth.NewService(db, tokens),
		Cache:   cache.NewManager(rdb),
		Network: monitor,
	})

	var scheduler *ingest.Scheduler
	if withSync {
		source, err := app.NewMarketSource(cfg.Market, rdb, monitor)
		if err != nil {
			return err
		}
		scheduler, err = ingest.NewScheduler(app.NewSyncJob(cfg.Market, source, db, rdb), cfg.Sync.Cron)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return ignoreCanceled(prober.Run(gctx)) })
	if scheduler != nil {
		g.Go(func() error { return ignoreCanceled(scheduler.Run(gctx)) })
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("API stopped with error")
		return err
	}
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
