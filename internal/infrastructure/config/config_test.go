package config_test

import (
	"testing"
	"time"

	"github.com/finbooks/journal/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.DispatchMaxAttempts != 5 {
		t.Fatalf("expected default dispatch max attempts 5, got %d", cfg.DispatchMaxAttempts)
	}

	if cfg.DispatchStagedGrace != time.Minute {
		t.Fatalf("expected default staged grace 1m, got %s", cfg.DispatchStagedGrace)
	}

	if cfg.HTTPRateLimit != 0 {
		t.Fatalf("expected rate limiting disabled by default, got %v", cfg.HTTPRateLimit)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("DISPATCH_INTERVAL", "2s")
	t.Setenv("SAGA_STEP_TIMEOUT", "30s")
	t.Setenv("ENTRY_LOCK_TTL", "1m")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	if cfg.DispatchInterval != 2*time.Second {
		t.Fatalf("expected dispatch interval override, got %s", cfg.DispatchInterval)
	}

	if cfg.SagaStepTimeout != 30*time.Second {
		t.Fatalf("expected saga step timeout override, got %s", cfg.SagaStepTimeout)
	}

	if cfg.EntryLockTTL != time.Minute {
		t.Fatalf("expected entry lock TTL override, got %s", cfg.EntryLockTTL)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}
