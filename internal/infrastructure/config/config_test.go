package config_test

import (
	"testing"
	"time"

	"github.com/iho/numrent/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")

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

	if cfg.RentalTTL != 20*time.Minute {
		t.Fatalf("expected default rental ttl of 20m, got %s", cfg.RentalTTL)
	}

	if !cfg.AuthEnabled || cfg.IssuerOperator != "any" || cfg.PollerInterval != 5*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("JWT_SECRET", "top-secret")
	t.Setenv("ISSUER_API_KEY", "issuer-key")
	t.Setenv("POLLER_REQUEST_DELAY", "1s")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

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

	if cfg.IssuerAPIKey != "issuer-key" || cfg.PollerRequestDelay != time.Second {
		t.Fatalf("expected issuer and poller overrides, got %+v", cfg)
	}

	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit override, got %v", cfg.RateLimitRPS)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestLoadRequiresSecretWhenAuthEnabled(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("AUTH_ENABLED", "true")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error without JWT secret")
	}

	t.Setenv("AUTH_ENABLED", "false")
	if _, err := config.Load(); err != nil {
		t.Fatalf("expected auth-disabled config to load, got %v", err)
	}
}

func TestLoadRejectsInvertedPoolSizes(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_MIN_CONNS", "30")
	t.Setenv("DATABASE_MAX_CONNS", "10")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for min conns above max conns")
	}
}
