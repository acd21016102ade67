package mcptools

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/skysight/aurora-forecast/internal/forecast"
	"github.com/skysight/aurora-forecast/internal/geo"
	"github.com/skysight/aurora-forecast/internal/swpc"
)

// optFloat returns a pointer to the named numeric argument, or nil when the
// caller omitted it. Absence matters here: a missing coordinate triggers the
// IP fallback path, which a default value would mask.
func optFloat(request mcp.CallToolRequest, name string) *float64 {
	args := request.GetArguments()
	v, ok := args[name]
	if !ok || v == nil {
		return nil
	}
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return &f
}

// errorKind maps an engine error to the structured error taxonomy callers see.
func errorKind(err error) string {
	var resErr *geo.ResolutionError
	switch {
	case errors.Is(err, forecast.ErrInvalidHours), errors.Is(err, geo.ErrInvalidCoordinates):
		return "invalid_argument"
	case errors.As(err, &resErr):
		return "location_resolution"
	case errors.Is(err, swpc.ErrUpstreamParse):
		return "upstream_parse"
	case errors.Is(err, swpc.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	default:
		return "internal"
	}
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", errorKind(err), err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("internal: failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func forecastText(resp forecast.ForecastResponse) string {
	text := fmt.Sprintf("Aurora Forecast for %s\n"+
		"Location: %.2f°, %.2f° (source: %s)\n\n"+
		"Current Aurora Probability: %.0f%%\n"+
		"Current Kp Index: %.2f (%s)\n\n"+
		"Viewing Recommendation: %s",
		resp.LocationName,
		resp.Coordinates.Latitude, resp.Coordinates.Longitude, resp.Source,
		resp.Probability*100,
		resp.KpIndex, resp.KpCategory,
		recommendation(resp.Visibility))

	// The auroral oval rarely reaches the mid-latitudes on quiet days.
	if lat := resp.Coordinates.Latitude; lat > 0 && lat < 55 {
		text += "\n\nNote: Your latitude is quite far south. Aurora is typically visible above 60°N."
	}
	return text
}

func recommendation(v forecast.VisibilityLabel) string {
	switch v {
	case forecast.VisibilityHigh:
		return "HIGH - Excellent aurora viewing conditions!"
	case forecast.VisibilityModerate:
		return "MODERATE - Aurora may be visible with clear skies"
	case forecast.VisibilityLow:
		return "LOW - Aurora unlikely to be visible"
	default:
		return "NONE - Aurora not expected at this location"
	}
}

func predictionText(resp forecast.PredictionResponse) string {
	text := fmt.Sprintf("Aurora Prediction for %s\n"+
		"Location: %.2f°, %.2f° (source: %s)\n\n"+
		"Forecast Period: Next %d hours\n\n",
		resp.LocationName,
		resp.Coordinates.Latitude, resp.Coordinates.Longitude, resp.Source,
		resp.HoursAhead)

	for _, p := range resp.Points {
		text += fmt.Sprintf("  %s  %.0f%%\n", p.Timestamp.Format(time.RFC3339), p.Probability*100)
	}

	text += "\nNote: predictions are extrapolated from the current Kp snapshot."
	return text
}

func kpText(reading swpc.KpReading) string {
	return fmt.Sprintf("Current Geomagnetic Activity (Kp Index)\n\n"+
		"Kp: %.2f (%s)\n"+
		"Observed: %s\n\n"+
		"Scale:\n"+
		"0-2: Quiet\n"+
		"3-4: Unsettled\n"+
		"5: Minor storm (G1)\n"+
		"6: Moderate storm (G2)\n"+
		"7: Strong storm (G3)\n"+
		"8: Severe storm (G4)\n"+
		"9: Extreme storm (G5)\n\n"+
		"Higher Kp values mean better aurora visibility at lower latitudes.",
		reading.Value, reading.Category,
		reading.ObservedAt.Format(time.RFC3339))
}
