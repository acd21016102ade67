// Package swpc fetches planetary Kp index data from the NOAA Space Weather
// Prediction Center.
package swpc

import "time"

// KpReading is a single planetary Kp index observation. One canonical current
// reading exists at a time, replaced on each successful refresh.
type KpReading struct {
	Value      float64   `json:"value"`       // 0-9 scale
	ObservedAt time.Time `json:"observed_at"` // upstream time tag, UTC
	FetchedAt  time.Time `json:"fetched_at"`
	Category   string    `json:"category"`
}

// Category maps a Kp value to the NOAA activity/storm scale.
func Category(kp float64) string {
	switch {
	case kp < 3:
		return "Quiet"
	case kp < 5:
		return "Unsettled"
	case kp < 6:
		return "Minor storm (G1)"
	case kp < 7:
		return "Moderate storm (G2)"
	case kp < 8:
		return "Strong storm (G3)"
	case kp < 9:
		return "Severe storm (G4)"
	default:
		return "Extreme storm (G5)"
	}
}
