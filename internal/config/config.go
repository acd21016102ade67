package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/skysight/aurora-forecast/internal/forecast"
)

// AppConfig is the configuration surface consumed by the core. Everything here
// is supplied externally at startup; nothing is hardcoded inside the core logic.
type AppConfig struct {
	// Geolocation provider chain.
	IPAPIBaseURL   string
	IPWhoIsBaseURL string
	GeoTimeout     time.Duration

	// NOAA SWPC feed.
	SWPCBaseURL string
	SWPCTimeout time.Duration

	// Cache TTLs: current Kp short-lived, forecast window longer.
	KpTTL       time.Duration
	ForecastTTL time.Duration

	// RefreshInterval controls the background warm-refresh of the current-Kp
	// entry. Zero disables the refresh job.
	RefreshInterval time.Duration

	// Probability heuristic tuning. Documented defaults; see DESIGN.md.
	PoleOffsetDeg float64
	Thresholds    forecast.Thresholds

	HTTPAddr string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.IPAPIBaseURL = os.Getenv("IPAPI_BASE_URL")
	cfg.IPWhoIsBaseURL = os.Getenv("IPWHOIS_BASE_URL")
	cfg.SWPCBaseURL = os.Getenv("SWPC_BASE_URL")

	var err error
	if cfg.GeoTimeout, err = getenvDuration("GEO_TIMEOUT", "5s"); err != nil {
		return nil, err
	}
	if cfg.SWPCTimeout, err = getenvDuration("SWPC_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.KpTTL, err = getenvDuration("KP_TTL", "3m"); err != nil {
		return nil, err
	}
	if cfg.ForecastTTL, err = getenvDuration("FORECAST_TTL", "1h"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "5m"); err != nil {
		return nil, err
	}

	cfg.PoleOffsetDeg = getenvFloat("AURORA_POLE_OFFSET_DEG", 3.0)
	cfg.Thresholds = forecast.Thresholds{
		Low:      getenvFloat("AURORA_THRESHOLD_LOW", forecast.DefaultThresholds.Low),
		Moderate: getenvFloat("AURORA_THRESHOLD_MODERATE", forecast.DefaultThresholds.Moderate),
		High:     getenvFloat("AURORA_THRESHOLD_HIGH", forecast.DefaultThresholds.High),
	}

	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", ":8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}
