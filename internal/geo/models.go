package geo

import "fmt"

// Source identifies where a resolved location came from.
type Source string

const (
	SourceUser    Source = "user"
	SourceIPAPI   Source = "ipapi.co"
	SourceIPWhoIs Source = "ipwho.is"
)

// Coordinates is an immutable latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether both components are within range.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Place holds the optional human-readable fields IP providers return.
type Place struct {
	City    string `json:"city,omitempty"`
	Region  string `json:"region,omitempty"`
	Country string `json:"country,omitempty"`
}

// GeoResult is a resolved location. Created per request, never persisted.
type GeoResult struct {
	Coordinates Coordinates `json:"coordinates"`
	Source      Source      `json:"source"`
	Place       Place       `json:"place"`
}

// DisplayName returns "City, Region, Country" when the provider supplied those
// fields, or formatted coordinates otherwise.
func (r GeoResult) DisplayName() string {
	if r.Place.City != "" && r.Place.Country != "" {
		if r.Place.Region != "" {
			return fmt.Sprintf("%s, %s, %s", r.Place.City, r.Place.Region, r.Place.Country)
		}
		return fmt.Sprintf("%s, %s", r.Place.City, r.Place.Country)
	}
	return fmt.Sprintf("%.2f°, %.2f°", r.Coordinates.Latitude, r.Coordinates.Longitude)
}
