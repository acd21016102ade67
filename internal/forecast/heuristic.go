package forecast

import (
	"math"

	"github.com/skysight/aurora-forecast/internal/geo"
)

// Heuristic converts a Kp value and a location into an aurora visibility
// probability in [0,1]. It is a replaceable strategy: the engine only depends
// on this interface, so the simplified model below can be swapped for a real
// forecasting model without touching resolver, cache, or transport code.
type Heuristic interface {
	Probability(kp float64, coords geo.Coordinates) float64
}

// KpLatitudeHeuristic is the default simplified model. The equatorward
// boundary of the auroral oval moves to lower latitudes as Kp rises; the
// probability grows with the distance between the observer's geomagnetic
// latitude and that boundary. Monotonic in both Kp and |latitude|.
//
// This is a provisional heuristic, not a scientific model. The constants are
// configuration; see DESIGN.md for the chosen defaults.
type KpLatitudeHeuristic struct {
	// PoleOffsetDeg approximates the geomagnetic-latitude correction: the
	// offset between Earth's rotational and magnetic poles, added to the
	// absolute geographic latitude.
	PoleOffsetDeg float64
}

const (
	// quietBoundaryDeg is the approximate equatorward edge of the auroral
	// oval, in geomagnetic degrees, at Kp 0.
	quietBoundaryDeg = 66.0
	// boundaryPerKpDeg is how far the oval edge moves equatorward per Kp step.
	boundaryPerKpDeg = 2.0
	// rampWidthDeg spreads the probability ramp over this many degrees.
	rampWidthDeg = 25.0
)

func (h KpLatitudeHeuristic) Probability(kp float64, coords geo.Coordinates) float64 {
	magLat := math.Abs(coords.Latitude) + h.PoleOffsetDeg
	boundary := quietBoundaryDeg - boundaryPerKpDeg*kp
	return clamp01((magLat - boundary) / rampWidthDeg)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Thresholds maps probability bands to visibility labels. Exact values are
// configuration, not constants baked into logic.
type Thresholds struct {
	Low      float64 // probability at or above which visibility is "low"
	Moderate float64
	High     float64
}

// DefaultThresholds are the banding used when none are configured.
var DefaultThresholds = Thresholds{Low: 0.15, Moderate: 0.35, High: 0.60}

// Label buckets a probability into a visibility label.
func (t Thresholds) Label(p float64) VisibilityLabel {
	switch {
	case p >= t.High:
		return VisibilityHigh
	case p >= t.Moderate:
		return VisibilityModerate
	case p >= t.Low:
		return VisibilityLow
	default:
		return VisibilityNone
	}
}
