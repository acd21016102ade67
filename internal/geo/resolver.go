package geo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// ErrInvalidCoordinates is returned when caller-supplied coordinates are out of range.
var ErrInvalidCoordinates = errors.New("coordinates out of range")

// Provider resolves the caller's public IP to coordinates.
type Provider interface {
	Name() string
	Lookup(ctx context.Context) (GeoResult, error)
}

// ResolutionError reports that every provider in the chain failed.
type ResolutionError struct {
	Reasons []string // one entry per provider, in chain order
}

func (e *ResolutionError) Error() string {
	if len(e.Reasons) == 0 {
		return "could not determine location from IP: no providers available"
	}
	return "could not determine location from IP: " + strings.Join(e.Reasons, "; ")
}

// Resolver resolves a location either from caller-supplied coordinates or by
// querying IP-geolocation providers in priority order. It performs no caching of
// its own; a process serving multiple users may legitimately resolve different
// coordinates per request.
type Resolver struct {
	providers []Provider
}

// NewResolver creates a Resolver over an ordered provider chain.
func NewResolver(providers ...Provider) *Resolver {
	return &Resolver{providers: providers}
}

// Resolve returns caller-supplied coordinates when both are present and valid,
// performing no network calls. If either coordinate is absent the partial value
// is discarded and resolution falls back to the IP provider chain.
func (r *Resolver) Resolve(ctx context.Context, lat, lon *float64) (GeoResult, error) {
	if lat != nil && lon != nil {
		coords := Coordinates{Latitude: *lat, Longitude: *lon}
		if !coords.Valid() {
			return GeoResult{}, fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoordinates, *lat, *lon)
		}
		return GeoResult{Coordinates: coords, Source: SourceUser}, nil
	}

	return r.FromIP(ctx)
}

// FromIP tries each provider in order and returns the first successful result.
// If all providers fail the returned error is a *ResolutionError carrying every
// provider's failure reason.
func (r *Resolver) FromIP(ctx context.Context) (GeoResult, error) {
	resErr := &ResolutionError{}

	for _, p := range r.providers {
		result, err := p.Lookup(ctx)
		if err != nil {
			log.Printf("geo: provider %s failed: %v", p.Name(), err)
			resErr.Reasons = append(resErr.Reasons, fmt.Sprintf("%s: %v", p.Name(), err))
			continue
		}
		return result, nil
	}

	return GeoResult{}, resErr
}
