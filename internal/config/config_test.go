package config

import (
	"testing"
	"time"

	"github.com/skysight/aurora-forecast/internal/forecast"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.GeoTimeout != 5*time.Second {
		t.Fatalf("unexpected geo timeout %v", cfg.GeoTimeout)
	}
	if cfg.SWPCTimeout != 10*time.Second {
		t.Fatalf("unexpected swpc timeout %v", cfg.SWPCTimeout)
	}
	if cfg.KpTTL != 3*time.Minute {
		t.Fatalf("unexpected kp ttl %v", cfg.KpTTL)
	}
	if cfg.ForecastTTL != time.Hour {
		t.Fatalf("unexpected forecast ttl %v", cfg.ForecastTTL)
	}
	if cfg.Thresholds != forecast.DefaultThresholds {
		t.Fatalf("unexpected thresholds %+v", cfg.Thresholds)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.HTTPAddr)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KP_TTL", "45s")
	t.Setenv("AURORA_THRESHOLD_HIGH", "0.75")
	t.Setenv("HTTP_ADDR", ":9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.KpTTL != 45*time.Second {
		t.Fatalf("unexpected kp ttl %v", cfg.KpTTL)
	}
	if cfg.Thresholds.High != 0.75 {
		t.Fatalf("unexpected high threshold %v", cfg.Thresholds.High)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("unexpected addr %q", cfg.HTTPAddr)
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("KP_TTL", "sometimes")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed duration")
	}
}
