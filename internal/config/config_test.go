package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8000 || cfg.Server.Addr() != "0.0.0.0:8000" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.JWT.AccessTTL != 24*time.Hour {
		t.Errorf("AccessTTL = %v", cfg.JWT.AccessTTL)
	}
	if cfg.Market.PerPage != 100 || cfg.Market.Timeout != 30*time.Second {
		t.Errorf("market = %+v", cfg.Market)
	}
	if cfg.Sync.Cron != "*/5 * * * *" {
		t.Errorf("Cron = %q", cfg.Sync.Cron)
	}
	if cfg.Network.ProbeInterval != 15*time.Second {
		t.Errorf("ProbeInterval = %v", cfg.Network.ProbeInterval)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "cryptomark.yaml")
	content := `
server:
  port: 9090
database:
  dsn: postgres://file
jwt:
  secret: from-file
  access_ttl: 2h
market:
  per_page: 250
  pages: 4
sync:
  cron: "0 * * * *"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CRYPTOMARK_JWT_SECRET", "from-env")
	t.Setenv("CRYPTOMARK_REDIS_ADDR", "redis:6380")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090 from file", cfg.Server.Port)
	}
	if cfg.JWT.Secret != "from-env" {
		t.Errorf("Secret = %q, env should override file", cfg.JWT.Secret)
	}
	if cfg.JWT.AccessTTL != 2*time.Hour {
		t.Errorf("AccessTTL = %v", cfg.JWT.AccessTTL)
	}
	if cfg.Redis.Addr != "redis:6380" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
	if cfg.Market.Pages != 4 || cfg.Sync.Cron != "0 * * * *" {
		t.Errorf("market=%+v sync=%+v", cfg.Market, cfg.Sync)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := cfg.ValidateSync(); err != nil {
		t.Errorf("ValidateSync() error = %v", err)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() with a missing explicit file should fail")
	}
}

func TestValidate(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	err = cfg.Validate()
	if err == nil {
		t.Fatal("Validate() should fail without dsn and secret")
	}
	for _, want := range []string{"database.dsn", "jwt.secret"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error %q should mention %s", err, want)
		}
	}

	cfg.Database.DSN = "postgres://x"
	cfg.Sync.Cron = "every minute"
	cfg.Market.PerPage = 500
	err = cfg.ValidateSync()
	if err == nil {
		t.Fatal("ValidateSync() should fail")
	}
	for _, want := range []string{"sync.cron", "market.per_page"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("ValidateSync() error %q should mention %s", err, want)
		}
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir(%q) error = %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore Chdir(%q) error = %v", old, err)
		}
	})
}
