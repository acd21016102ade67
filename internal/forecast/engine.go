// Package forecast composes location resolution and space weather data into
// the externally visible forecast operations.
package forecast

import (
	"context"
	"errors"
	"fmt"

	"github.com/skysight/aurora-forecast/internal/cache"
	"github.com/skysight/aurora-forecast/internal/geo"
	"github.com/skysight/aurora-forecast/internal/swpc"
)

const (
	MinHoursAhead     = 1
	MaxHoursAhead     = 72
	DefaultHoursAhead = 24
)

// ErrInvalidHours is returned for hours_ahead outside the supported range.
// Out-of-range values fail fast rather than silently clamping, to keep caller
// expectations explicit.
var ErrInvalidHours = errors.New("hours_ahead must be between 1 and 72")

// LocationResolver yields coordinates for a request.
type LocationResolver interface {
	Resolve(ctx context.Context, lat, lon *float64) (geo.GeoResult, error)
	FromIP(ctx context.Context) (geo.GeoResult, error)
}

// KpSource yields planetary Kp data.
type KpSource interface {
	CurrentKp(ctx context.Context) (swpc.KpReading, error)
	ForecastWindow(ctx context.Context, hoursAhead int) ([]swpc.KpReading, error)
}

// CacheControl is the slice of the cache the engine passes through to callers.
type CacheControl interface {
	Stats() cache.Stats
	Clear() int
}

// Engine orchestrates resolver, Kp source, and cache. It is stateless per
// call; the shared cache is the only mutable state and lives behind KpSource
// and CacheControl.
type Engine struct {
	resolver   LocationResolver
	kp         KpSource
	cache      CacheControl
	heuristic  Heuristic
	thresholds Thresholds
}

// NewEngine creates an Engine. A nil heuristic defaults to KpLatitudeHeuristic
// and zero thresholds default to DefaultThresholds.
func NewEngine(resolver LocationResolver, kp KpSource, cc CacheControl, heuristic Heuristic, thresholds Thresholds) *Engine {
	if heuristic == nil {
		heuristic = KpLatitudeHeuristic{}
	}
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds
	}
	return &Engine{
		resolver:   resolver,
		kp:         kp,
		cache:      cc,
		heuristic:  heuristic,
		thresholds: thresholds,
	}
}

// Forecast resolves the location, fetches the current Kp index, and combines
// them into a ForecastResponse.
func (e *Engine) Forecast(ctx context.Context, lat, lon *float64) (ForecastResponse, error) {
	loc, err := e.resolver.Resolve(ctx, lat, lon)
	if err != nil {
		return ForecastResponse{}, err
	}

	reading, err := e.kp.CurrentKp(ctx)
	if err != nil {
		return ForecastResponse{}, err
	}

	p := e.heuristic.Probability(reading.Value, loc.Coordinates)

	return ForecastResponse{
		Coordinates:  loc.Coordinates,
		Source:       loc.Source,
		LocationName: loc.DisplayName(),
		KpIndex:      reading.Value,
		KpCategory:   reading.Category,
		Probability:  p,
		Visibility:   e.thresholds.Label(p),
		AsOf:         reading.FetchedAt,
	}, nil
}

// ForecastAuto is Forecast with no arguments: a pure alias, not a separate
// code path.
func (e *Engine) ForecastAuto(ctx context.Context) (ForecastResponse, error) {
	return e.Forecast(ctx, nil, nil)
}

// Prediction resolves the location and derives an hourly probability series
// for the next hoursAhead hours.
func (e *Engine) Prediction(ctx context.Context, lat, lon *float64, hoursAhead int) (PredictionResponse, error) {
	if hoursAhead < MinHoursAhead || hoursAhead > MaxHoursAhead {
		return PredictionResponse{}, fmt.Errorf("%w: got %d", ErrInvalidHours, hoursAhead)
	}

	loc, err := e.resolver.Resolve(ctx, lat, lon)
	if err != nil {
		return PredictionResponse{}, err
	}

	window, err := e.kp.ForecastWindow(ctx, hoursAhead)
	if err != nil {
		return PredictionResponse{}, err
	}

	resp := PredictionResponse{
		Coordinates:  loc.Coordinates,
		Source:       loc.Source,
		LocationName: loc.DisplayName(),
		HoursAhead:   hoursAhead,
		Points:       make([]PredictionPoint, 0, len(window)),
	}
	for _, r := range window {
		resp.Points = append(resp.Points, PredictionPoint{
			Timestamp:   r.ObservedAt,
			Probability: e.heuristic.Probability(r.Value, loc.Coordinates),
		})
		resp.AsOf = r.FetchedAt
	}
	return resp, nil
}

// VerifyLocation forces the IP resolution path and returns the result,
// including the provider source for transparency.
func (e *Engine) VerifyLocation(ctx context.Context) (geo.GeoResult, error) {
	return e.resolver.FromIP(ctx)
}

// CurrentKp is a thin pass-through to the space weather client.
func (e *Engine) CurrentKp(ctx context.Context) (swpc.KpReading, error) {
	return e.kp.CurrentKp(ctx)
}

// CacheStats is a pass-through to the shared cache.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// ClearCache evicts all cache entries and reports how many were removed.
func (e *Engine) ClearCache() ClearResult {
	return ClearResult{Removed: e.cache.Clear()}
}
