// Command coin-sync refreshes the coin table from the upstream market
// listing, once or on a cron schedule.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/cryptomark/internal/app"
	"github.com/Sternrassler/cryptomark/internal/config"
	"github.com/Sternrassler/cryptomark/internal/ingest"
	"github.com/Sternrassler/cryptomark/internal/store"
	"github.com/Sternrassler/cryptomark/pkg/network"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "coin-sync",
	Short:        "Refresh coin market data",
	SilenceUsage: true,
	Long: `coin-sync fetches the coin market listing and upserts every coin.

Use "run" for a single refresh or "schedule" to refresh on the
configured cron expression (sync.cron).`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
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

// syncEnv holds the components shared by the subcommands.
type syncEnv struct {
	cfg     *config.Config
	logger  zerolog.Logger
	db      *store.Store
	redis   *redis.Client
	monitor *network.Monitor
	prober  *network.Prober
	job     *ingest.Job
}

func setup(ctx context.Context) (*syncEnv, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateSync(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	rt := &syncEnv{cfg: cfg, logger: app.SetupLogging(cfg.Log, "coin-sync")}

	if rt.db, err = store.Open(cfg.Database.DSN); err != nil {
		return nil, err
	}
	if err := rt.db.Migrate(ctx); err != nil {
		rt.close()
		return nil, err
	}

	if rt.redis, err = app.OpenRedis(ctx, cfg.Redis); err != nil {
		rt.close()
		return nil, err
	}

	rt.monitor, rt.prober = app.NewNetwork(ctx, cfg.Network)

	source, err := app.NewMarketSource(cfg.Market, rt.redis, rt.monitor)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.job = app.NewSyncJob(cfg.Market, source, rt.db, rt.redis)
	return rt, nil
}

func (rt *syncEnv) close() {
	if rt.redis != nil {
		rt.redis.Close()
	}
	if rt.db != nil {
		rt.db.Close()
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
