package main

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIgnoreCanceled(t *testing.T) {
	if err := ignoreCanceled(context.Canceled); err != nil {
		t.Errorf("ignoreCanceled(Canceled) = %v, want nil", err)
	}
	if err := ignoreCanceled(fmt.Errorf("wrapped: %w", context.Canceled)); err != nil {
		t.Errorf("ignoreCanceled(wrapped) = %v, want nil", err)
	}
	other := errors.New("boom")
	if err := ignoreCanceled(other); err != other {
		t.Errorf("ignoreCanceled(other) = %v, want %v", err, other)
	}
	if err := ignoreCanceled(nil); err != nil {
		t.Errorf("ignoreCanceled(nil) = %v", err)
	}
}

func TestLoadConfig_RequiresSecrets(t *testing.T) {
	t.Setenv("CRYPTOMARK_DATABASE_DSN", "")
	t.Setenv("CRYPTOMARK_JWT_SECRET", "")
	configPath = ""

	if _, err := loadConfig(); err == nil {
		t.Error("loadConfig should fail without database dsn and jwt secret")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("CRYPTOMARK_DATABASE_DSN", "postgres://localhost/cryptomark")
	t.Setenv("CRYPTOMARK_JWT_SECRET", "test-secret")
	t.Setenv("CRYPTOMARK_SERVER_PORT", "9090")
	configPath = ""

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Addr() != "0.0.0.0:9090" {
		t.Errorf("Addr = %q", cfg.Server.Addr())
	}
}

func TestRootCommandFlags(t *testing.T) {
	if rootCmd.PersistentFlags().Lookup("config") == nil {
		t.Error("missing --config flag")
	}
	if rootCmd.Flags().Lookup("with-sync") == nil {
		t.Error("missing --with-sync flag")
	}
}
