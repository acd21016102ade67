package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/skysight/aurora-forecast/internal/geo"
	"github.com/skysight/aurora-forecast/internal/upstream"
)

// DefaultIPAPIBaseURL is the production ipapi.co endpoint.
const DefaultIPAPIBaseURL = "https://ipapi.co/json/"

// IPAPIProvider implements the geo.Provider interface for ipapi.co.
// ipapi.co is first in the chain but can rate-limit anonymous callers.
type IPAPIProvider struct {
	name    string
	baseURL string
	httpCfg upstream.Config
	circuit *gobreaker.CircuitBreaker
}

// NewIPAPI creates the ipapi.co provider. Geolocation calls are cheap and
// idempotent, so no retries are configured; a failure falls through to the next
// provider in the chain instead.
func NewIPAPI(client *http.Client, baseURL string) *IPAPIProvider {
	if baseURL == "" {
		baseURL = DefaultIPAPIBaseURL
	}
	return &IPAPIProvider{
		name:    string(geo.SourceIPAPI),
		baseURL: baseURL,
		httpCfg: upstream.Config{
			Client:  client,
			Backoff: noRetryBackoff,
		},
		circuit: upstream.NewBreaker("ipapi"),
	}
}

func (p *IPAPIProvider) Name() string {
	return p.name
}

func (p *IPAPIProvider) Lookup(ctx context.Context) (geo.GeoResult, error) {
	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, p.baseURL, nil)
	}

	resp, err := upstream.Do(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return geo.GeoResult{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Error     bool     `json:"error"`
		Reason    string   `json:"reason"`
		Message   string   `json:"message"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		City      string   `json:"city"`
		Region    string   `json:"region"`
		Country   string   `json:"country_name"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return geo.GeoResult{}, fmt.Errorf("malformed payload: %w", err)
	}

	// ipapi.co reports rate limits and similar failures in-band with a 2xx status.
	if payload.Error {
		return geo.GeoResult{}, fmt.Errorf("%s (%s)", orUnknown(payload.Reason), orUnknown(payload.Message))
	}

	// A response without both coordinate fields is a failure, not a partial success.
	if payload.Latitude == nil || payload.Longitude == nil {
		return geo.GeoResult{}, errMissingCoordinates
	}

	return geo.GeoResult{
		Coordinates: geo.Coordinates{Latitude: *payload.Latitude, Longitude: *payload.Longitude},
		Source:      geo.SourceIPAPI,
		Place: geo.Place{
			City:    payload.City,
			Region:  payload.Region,
			Country: payload.Country,
		},
	}, nil
}
