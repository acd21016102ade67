package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/skysight/aurora-forecast/internal/geo"
	"github.com/skysight/aurora-forecast/internal/upstream"
)

// DefaultIPWhoIsBaseURL is the production ipwho.is endpoint, requesting only the
// fields this service consumes.
const DefaultIPWhoIsBaseURL = "https://ipwho.is/?fields=success,message,latitude,longitude,city,region,country"

var errMissingCoordinates = errors.New("response missing coordinate fields")

// noRetryBackoff keeps the shared resilience helper from retrying a provider:
// fail-over to the next provider in the chain is preferred over repeated
// attempts on one.
var noRetryBackoff = upstream.BackoffConfig{
	MaxRetries:      0,
	InitialInterval: 1, // unused with zero retries; must be positive
}

// IPWhoIsProvider implements the geo.Provider interface for ipwho.is, the
// fallback geolocation provider (free, no API key).
type IPWhoIsProvider struct {
	name    string
	baseURL string
	httpCfg upstream.Config
	circuit *gobreaker.CircuitBreaker
}

func NewIPWhoIs(client *http.Client, baseURL string) *IPWhoIsProvider {
	if baseURL == "" {
		baseURL = DefaultIPWhoIsBaseURL
	}
	return &IPWhoIsProvider{
		name:    string(geo.SourceIPWhoIs),
		baseURL: baseURL,
		httpCfg: upstream.Config{
			Client:  client,
			Backoff: noRetryBackoff,
		},
		circuit: upstream.NewBreaker("ipwhois"),
	}
}

func (p *IPWhoIsProvider) Name() string {
	return p.name
}

func (p *IPWhoIsProvider) Lookup(ctx context.Context) (geo.GeoResult, error) {
	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, p.baseURL, nil)
	}

	resp, err := upstream.Do(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return geo.GeoResult{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Success   *bool    `json:"success"`
		Message   string   `json:"message"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		City      string   `json:"city"`
		Region    string   `json:"region"`
		Country   string   `json:"country"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return geo.GeoResult{}, fmt.Errorf("malformed payload: %w", err)
	}

	// ipwho.is always answers 200 and signals failure via the success flag.
	if payload.Success != nil && !*payload.Success {
		return geo.GeoResult{}, fmt.Errorf("%s", orUnknown(payload.Message))
	}

	if payload.Latitude == nil || payload.Longitude == nil {
		return geo.GeoResult{}, errMissingCoordinates
	}

	return geo.GeoResult{
		Coordinates: geo.Coordinates{Latitude: *payload.Latitude, Longitude: *payload.Longitude},
		Source:      geo.SourceIPWhoIs,
		Place: geo.Place{
			City:    payload.City,
			Region:  payload.Region,
			Country: payload.Country,
		},
	}, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
