// Package app wires configuration into the shared runtime components used
// by the binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/cryptomark/internal/config"
	"github.com/Sternrassler/cryptomark/internal/ingest"
	"github.com/Sternrassler/cryptomark/pkg/cache"
	"github.com/Sternrassler/cryptomark/pkg/client"
	"github.com/Sternrassler/cryptomark/pkg/logging"
	"github.com/Sternrassler/cryptomark/pkg/marketdata"
	"github.com/Sternrassler/cryptomark/pkg/network"
	"github.com/Sternrassler/cryptomark/pkg/pagination"
	"github.com/Sternrassler/cryptomark/pkg/ratelimit"
)

// SetupLogging configures the global logger for service.
func SetupLogging(cfg config.LogConfig, service string) zerolog.Logger {
	return logging.Setup(logging.Config{
		Level:   logging.LogLevel(cfg.Level),
		Pretty:  cfg.Pretty,
		Service: service,
	})
}

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// NewNetwork seeds a monitor with one probe of cfg.ProbeAddress and returns
// it with the prober that keeps it current.
func NewNetwork(ctx context.Context, cfg config.NetworkConfig) (*network.Monitor, *network.Prober) {
	checker := network.DialChecker{Address: cfg.ProbeAddress}
	monitor := network.NewMonitor(network.InitialStatus(ctx, checker))
	return monitor, network.NewProber(monitor, checker, cfg.ProbeInterval)
}

// NewMarketSource builds the market-data source on top of the resilient
// client with the Redis response cache and upstream rate-limit tracking.
func NewMarketSource(cfg config.MarketConfig, rdb *redis.Client, monitor client.StatusSource) (*marketdata.Source, error) {
	clientCfg := client.DefaultConfig(cfg.BaseURL, cfg.UserAgent)
	clientCfg.Timeout = cfg.Timeout
	clientCfg.Monitor = monitor
	clientCfg.HealthPath = "/ping"
	if rdb != nil {
		clientCfg.Cache = cache.NewManager(rdb)
		clientCfg.Limiter = ratelimit.NewTracker(rdb, cfg.RatePerSecond, logging.NewLogger("ratelimit"))
	}

	c, err := client.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create market client: %w", err)
	}

	sourceCfg := marketdata.DefaultConfig()
	sourceCfg.PerPage = cfg.PerPage
	sourceCfg.Fetch = pagination.FetchConfig{
		MaxConcurrency: cfg.Concurrency,
		Timeout:        cfg.Timeout,
	}
	return marketdata.NewSource(c, sourceCfg), nil
}

// NewSyncJob builds the coin refresh job. Coin list pages cached by the
// API are invalidated after each run.
func NewSyncJob(cfg config.MarketConfig, source ingest.MarketSource, coins ingest.CoinStore, rdb *redis.Client) *ingest.Job {
	job := ingest.NewJob(source, coins, cfg.Pages)
	if rdb != nil {
		job.WithInvalidator(cache.NewManager(rdb))
	}
	return job
}
