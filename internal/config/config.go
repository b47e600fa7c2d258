// Package config loads service configuration from an optional YAML file,
// a .env file, and CRYPTOMARK_* environment variables (highest precedence).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CRYPTOMARK_SERVER_PORT.
const EnvPrefix = "CRYPTOMARK"

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Market   MarketConfig   `mapstructure:"market"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Network  NetworkConfig  `mapstructure:"network"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// CoinListTTL is how long rendered coin list pages stay cached.
	CoinListTTL time.Duration `mapstructure:"coin_list_ttl"`

	// AuthRate limits auth requests per client IP (requests per second).
	AuthRate  float64 `mapstructure:"auth_rate"`
	AuthBurst int     `mapstructure:"auth_burst"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret    string        `mapstructure:"secret"`
	AccessTTL time.Duration `mapstructure:"access_ttl"`
}

type MarketConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	UserAgent     string        `mapstructure:"user_agent"`
	PerPage       int           `mapstructure:"per_page"`
	Pages         int           `mapstructure:"pages"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Concurrency   int           `mapstructure:"concurrency"`
}

type SyncConfig struct {
	Cron string `mapstructure:"cron"`
}

type NetworkConfig struct {
	ProbeAddress  string        `mapstructure:"probe_address"`
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// SetDefaults registers default values on v. Every key must have a default
// so environment overrides are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.coin_list_ttl", 30*time.Second)
	v.SetDefault("server.auth_rate", 5.0)
	v.SetDefault("server.auth_burst", 10)

	v.SetDefault("database.dsn", "")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_ttl", 24*time.Hour)

	v.SetDefault("market.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("market.user_agent", "cryptomark/1.0")
	v.SetDefault("market.per_page", 100)
	v.SetDefault("market.pages", 1)
	v.SetDefault("market.timeout", 30*time.Second)
	v.SetDefault("market.rate_per_second", 0.5)
	v.SetDefault("market.concurrency", 2)

	v.SetDefault("sync.cron", "*/5 * * * *")

	v.SetDefault("network.probe_address", "api.coingecko.com:443")
	v.SetDefault("network.probe_interval", 15*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Load reads configuration. path may be empty, in which case config.yaml is
// looked up in ./config and the working directory and is optional.
func Load(path string) (*Config, error) {
	// .env is optional; variables already set in the environment win.
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks settings required by the API server.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.JWT.AccessTTL <= 0 {
		errs = append(errs, errors.New("jwt.access_ttl must be positive"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	errs = append(errs, c.validateMarket()...)

	return errors.Join(errs...)
}

// ValidateSync checks settings required by the coin sync job.
func (c *Config) ValidateSync() error {
	var errs []error

	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if !gronx.IsValid(c.Sync.Cron) {
		errs = append(errs, fmt.Errorf("sync.cron %q is not a valid cron expression", c.Sync.Cron))
	}
	errs = append(errs, c.validateMarket()...)

	return errors.Join(errs...)
}

func (c *Config) validateMarket() []error {
	var errs []error
	if c.Market.BaseURL == "" {
		errs = append(errs, errors.New("market.base_url is required"))
	}
	if c.Market.UserAgent == "" {
		errs = append(errs, errors.New("market.user_agent is required"))
	}
	if c.Market.PerPage <= 0 || c.Market.PerPage > 250 {
		errs = append(errs, fmt.Errorf("market.per_page %d must be within 1..250", c.Market.PerPage))
	}
	if c.Market.Pages <= 0 {
		errs = append(errs, fmt.Errorf("market.pages %d must be positive", c.Market.Pages))
	}
	return errs
}
