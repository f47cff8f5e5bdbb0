package app

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddr=%q", cfg.HTTPAddr)
	}
	if cfg.RateLimit != 60 || cfg.RateWindow != time.Minute {
		t.Fatalf("rate limit defaults = %d/%v", cfg.RateLimit, cfg.RateWindow)
	}
	if cfg.BreakerFailures != 5 || cfg.BreakerHalfOpenAfter != 30*time.Second || cfg.BreakerCooldown != time.Minute {
		t.Fatalf("breaker defaults = %d/%v/%v", cfg.BreakerFailures, cfg.BreakerHalfOpenAfter, cfg.BreakerCooldown)
	}
	if cfg.RetryAttempts != 3 {
		t.Fatalf("RetryAttempts=%d", cfg.RetryAttempts)
	}
	if cfg.TrustProxy {
		t.Fatal("TrustProxy must default to false")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DALKAK_HTTP_ADDR", "127.0.0.1:9999")
	t.Setenv("DALKAK_RATE_LIMIT", "10")
	t.Setenv("DALKAK_RATE_WINDOW", "30s")
	t.Setenv("DALKAK_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := LoadConfig()

	if cfg.HTTPAddr != "127.0.0.1:9999" {
		t.Fatalf("HTTPAddr=%q", cfg.HTTPAddr)
	}
	if cfg.RateLimit != 10 || cfg.RateWindow != 30*time.Second {
		t.Fatalf("rate limit = %d/%v", cfg.RateLimit, cfg.RateWindow)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("CORSAllowedOrigins=%v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigRejectsGarbage(t *testing.T) {
	t.Setenv("DALKAK_RATE_LIMIT", "-5")
	t.Setenv("DALKAK_RATE_WINDOW", "soon")

	cfg := LoadConfig()

	if cfg.RateLimit != 60 || cfg.RateWindow != time.Minute {
		t.Fatalf("invalid env must fall back to defaults, got %d/%v", cfg.RateLimit, cfg.RateWindow)
	}
}
