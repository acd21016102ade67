package forecast

import (
	"time"

	"github.com/skysight/aurora-forecast/internal/geo"
)

// VisibilityLabel buckets a probability into a viewing recommendation.
type VisibilityLabel string

const (
	VisibilityNone     VisibilityLabel = "none"
	VisibilityLow      VisibilityLabel = "low"
	VisibilityModerate VisibilityLabel = "moderate"
	VisibilityHigh     VisibilityLabel = "high"
)

// ForecastResponse is the current-conditions answer for one location.
// Constructed fresh per call; never mutated after construction.
type ForecastResponse struct {
	Coordinates  geo.Coordinates `json:"coordinates"`
	Source       geo.Source      `json:"source"`
	LocationName string          `json:"location_name"`
	KpIndex      float64         `json:"kp_index"`
	KpCategory   string          `json:"kp_category"`
	Probability  float64         `json:"probability"` // [0,1]
	Visibility   VisibilityLabel `json:"visibility"`
	AsOf         time.Time       `json:"as_of"`
}

// PredictionPoint is one hourly step of a prediction window.
type PredictionPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	Probability float64   `json:"probability"`
}

// PredictionResponse is the windowed forecast answer. The points are derived
// from the same current-Kp snapshot when no richer upstream series exists; the
// contract is about shape, not predictive accuracy.
type PredictionResponse struct {
	Coordinates  geo.Coordinates   `json:"coordinates"`
	Source       geo.Source        `json:"source"`
	LocationName string            `json:"location_name"`
	HoursAhead   int               `json:"hours_ahead"`
	Points       []PredictionPoint `json:"points"`
	AsOf         time.Time         `json:"as_of"`
}

// ClearResult reports how many cache entries a clear removed.
type ClearResult struct {
	Removed int `json:"removed"`
}
