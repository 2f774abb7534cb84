package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("BACKFILL_WORKERS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.HTTPAddr != ":7000" {
		t.Errorf("expected default http addr, got %s", cfg.Server.HTTPAddr)
	}
	if cfg.Backfill.Workers != 4 {
		t.Errorf("expected 4 backfill workers, got %d", cfg.Backfill.Workers)
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("expected 5s shutdown timeout, got %v", cfg.Server.ShutdownTimeout)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("BACKFILL_QUEUE_SIZE", "5")
	t.Setenv("HTTP_READ_TIMEOUT", "250ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.HTTPAddr != ":9000" {
		t.Errorf("expected :9000, got %s", cfg.Server.HTTPAddr)
	}
	if cfg.Backfill.QueueSize != 5 {
		t.Errorf("expected queue size 5, got %d", cfg.Backfill.QueueSize)
	}
	if cfg.Server.ReadTimeout != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", cfg.Server.ReadTimeout)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "REDIS_DB") || !strings.Contains(err.Error(), "SHUTDOWN_TIMEOUT") {
		t.Errorf("expected both keys in error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("FRONTEND_URL", "")
	t.Setenv("STRIPE_API_KEY", "")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected missing secrets to fail validation")
	}

	cfg.Server.FrontendURL = "http://localhost:5173"
	cfg.Stripe.APIKey = "sk_test"
	cfg.Stripe.WebhookSecret = "whsec_test"
	cfg.Auth.JWTSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}
