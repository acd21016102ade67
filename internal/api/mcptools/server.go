// Package mcptools exposes the forecast operations as Model Context Protocol
// tools. It is a thin dispatcher: every handler parses arguments, calls the
// engine, and renders the result; no forecast logic lives here.
package mcptools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/skysight/aurora-forecast/internal/forecast"
)

// Server handles Model Context Protocol requests.
type Server struct {
	engine    *forecast.Engine
	mcpServer *server.MCPServer
}

// New creates an MCP server instance wrapping the engine.
func New(engine *forecast.Engine, version string) *Server {
	s := &Server{engine: engine}

	s.mcpServer = server.NewMCPServer(
		"Aurora Forecast",
		version,
		server.WithToolCapabilities(true),
	)

	s.registerTools()
	return s
}

// ServeStdio serves the MCP protocol over stdin/stdout and blocks until the
// stream closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// StreamableHTTPServer returns the HTTP transport wrapper for mounting under a
// web server.
func (s *Server) StreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("get_aurora_forecast",
			mcp.WithDescription("Get the current aurora visibility forecast using provided coordinates, or IP-based location fallback. Latitude and longitude must be provided together; a single coordinate is ignored."),
			mcp.WithNumber("latitude",
				mcp.Description("Latitude in degrees (-90 to 90). Must be provided with longitude."),
			),
			mcp.WithNumber("longitude",
				mcp.Description("Longitude in degrees (-180 to 180). Must be provided with latitude."),
			),
			mcp.WithString("format",
				mcp.Description("Output format: 'json' for structured data or 'text' for human-readable summary"),
				mcp.DefaultString("json"),
			),
		),
		s.handleForecast,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_aurora_forecast_auto",
			mcp.WithDescription("Get the aurora forecast for your current location (detected from IP). Identical to get_aurora_forecast with no coordinates."),
			mcp.WithString("format",
				mcp.Description("Output format: 'json' for structured data or 'text' for human-readable summary"),
				mcp.DefaultString("json"),
			),
		),
		s.handleForecastAuto,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_aurora_prediction",
			mcp.WithDescription("Get hourly aurora visibility predictions for the next 1-72 hours. Derived from the current Kp snapshot; a simplified model, not a genuine forecast series."),
			mcp.WithNumber("latitude",
				mcp.Description("Latitude in degrees (-90 to 90). Must be provided with longitude."),
			),
			mcp.WithNumber("longitude",
				mcp.Description("Longitude in degrees (-180 to 180). Must be provided with latitude."),
			),
			mcp.WithNumber("hours_ahead",
				mcp.Description("How many hours ahead to predict (1-72, default 24)"),
				mcp.DefaultNumber(float64(forecast.DefaultHoursAhead)),
			),
			mcp.WithString("format",
				mcp.Description("Output format: 'json' for structured data or 'text' for human-readable summary"),
				mcp.DefaultString("json"),
			),
		),
		s.handlePrediction,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_current_kp_index",
			mcp.WithDescription("Get the current planetary K-index (geomagnetic activity level, 0-9). Higher Kp values mean better aurora visibility at lower latitudes."),
			mcp.WithString("format",
				mcp.Description("Output format: 'json' for structured data or 'text' for human-readable summary"),
				mcp.DefaultString("json"),
			),
		),
		s.handleCurrentKp,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("verify_my_location",
			mcp.WithDescription("Check what location was detected from your IP address, including which geolocation provider supplied it."),
			mcp.WithString("format",
				mcp.Description("Output format: 'json' for structured data or 'text' for human-readable summary"),
				mcp.DefaultString("json"),
			),
		),
		s.handleVerifyLocation,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_cache_stats",
			mcp.WithDescription("Show cache statistics including lifetime hit/miss counters and current entries."),
			mcp.WithString("format",
				mcp.Description("Output format: 'json' for structured data or 'text' for human-readable summary"),
				mcp.DefaultString("json"),
			),
		),
		s.handleCacheStats,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("clear_cache",
			mcp.WithDescription("Clear all cached data to force fresh fetches from NOAA and the geolocation providers."),
		),
		s.handleClearCache,
	)
}

func (s *Server) handleForecast(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lat := optFloat(request, "latitude")
	lon := optFloat(request, "longitude")

	resp, err := s.engine.Forecast(ctx, lat, lon)
	if err != nil {
		return toolError(err), nil
	}

	if request.GetString("format", "json") == "text" {
		return mcp.NewToolResultText(forecastText(resp)), nil
	}
	return jsonResult(resp)
}

func (s *Server) handleForecastAuto(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.engine.ForecastAuto(ctx)
	if err != nil {
		return toolError(err), nil
	}

	if request.GetString("format", "json") == "text" {
		return mcp.NewToolResultText(forecastText(resp)), nil
	}
	return jsonResult(resp)
}

func (s *Server) handlePrediction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lat := optFloat(request, "latitude")
	lon := optFloat(request, "longitude")
	hours := int(request.GetFloat("hours_ahead", float64(forecast.DefaultHoursAhead)))

	resp, err := s.engine.Prediction(ctx, lat, lon, hours)
	if err != nil {
		return toolError(err), nil
	}

	if request.GetString("format", "json") == "text" {
		return mcp.NewToolResultText(predictionText(resp)), nil
	}
	return jsonResult(resp)
}

func (s *Server) handleCurrentKp(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reading, err := s.engine.CurrentKp(ctx)
	if err != nil {
		return toolError(err), nil
	}

	if request.GetString("format", "json") == "text" {
		return mcp.NewToolResultText(kpText(reading)), nil
	}
	return jsonResult(reading)
}

func (s *Server) handleVerifyLocation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.engine.VerifyLocation(ctx)
	if err != nil {
		return toolError(err), nil
	}

	if request.GetString("format", "json") == "text" {
		text := fmt.Sprintf("Detected location from IP address:\n\n"+
			"Location: %s\n"+
			"Coordinates: %.2f°, %.2f°\n"+
			"Provider: %s\n\n"+
			"Note: IP geolocation is approximate (city-level accuracy).\n"+
			"If this is incorrect, use get_aurora_forecast with exact coordinates.",
			result.DisplayName(),
			result.Coordinates.Latitude, result.Coordinates.Longitude,
			result.Source)
		return mcp.NewToolResultText(text), nil
	}
	return jsonResult(result)
}

func (s *Server) handleCacheStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := s.engine.CacheStats()

	if request.GetString("format", "json") == "text" {
		text := fmt.Sprintf("Cache statistics:\n\nEntries: %d\nHits: %d\nMisses: %d\n\nCached keys:\n",
			stats.Size, stats.Hits, stats.Misses)
		for key, info := range stats.Entries {
			text += fmt.Sprintf("  - %s (age %.0fs, ttl %.0fs)\n", key, info.AgeSeconds, info.TTLSeconds)
		}
		return mcp.NewToolResultText(text), nil
	}
	return jsonResult(stats)
}

func (s *Server) handleClearCache(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.engine.ClearCache())
}
