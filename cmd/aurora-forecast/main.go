package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	httpapi "github.com/skysight/aurora-forecast/internal/api/http"
	"github.com/skysight/aurora-forecast/internal/api/mcptools"
	"github.com/skysight/aurora-forecast/internal/cache"
	"github.com/skysight/aurora-forecast/internal/config"
	"github.com/skysight/aurora-forecast/internal/forecast"
	"github.com/skysight/aurora-forecast/internal/geo"
	geoproviders "github.com/skysight/aurora-forecast/internal/geo/providers"
	"github.com/skysight/aurora-forecast/internal/metrics"
	"github.com/skysight/aurora-forecast/internal/scheduler"
	"github.com/skysight/aurora-forecast/internal/swpc"
)

const version = "1.0.0"

func main() {
	transport := flag.String("transport", "stdio", "MCP transport: 'stdio' or 'http'")
	listen := flag.String("listen", "", "listen address for http transport (overrides HTTP_ADDR)")
	flag.Parse()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *listen != "" {
		cfg.HTTPAddr = *listen
	}

	// Metrics are only scraped over HTTP; the stdio transport runs without a
	// registry (nil metrics are no-ops throughout).
	var m *metrics.Metrics
	if *transport == "http" {
		m = metrics.New()
	}

	// The shared cache owns all cached entries and their stats.
	forecastCache := cache.New(m)

	// Outbound HTTP clients: geolocation calls get a tighter timeout than the
	// NOAA feed.
	geoClient := &http.Client{Timeout: cfg.GeoTimeout}
	swpcClient := &http.Client{Timeout: cfg.SWPCTimeout}

	// Geolocation provider chain, in priority order.
	resolver := geo.NewResolver(
		geoproviders.NewIPAPI(geoClient, cfg.IPAPIBaseURL),
		geoproviders.NewIPWhoIs(geoClient, cfg.IPWhoIsBaseURL),
	)

	kpSource := swpc.NewClient(swpcClient, cfg.SWPCBaseURL, forecastCache, cfg.KpTTL, cfg.ForecastTTL, m)

	engine := forecast.NewEngine(
		resolver,
		kpSource,
		forecastCache,
		forecast.KpLatitudeHeuristic{PoleOffsetDeg: cfg.PoleOffsetDeg},
		cfg.Thresholds,
	)

	// Background warm refresh of the current-Kp entry.
	sched := scheduler.New(cfg.RefreshInterval, engine)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	mcpSrv := mcptools.New(engine, version)

	switch *transport {
	case "stdio":
		// log output goes to stderr, keeping stdout clean for the protocol.
		if err := mcpSrv.ServeStdio(); err != nil {
			log.Fatalf("stdio server stopped: %v", err)
		}
	case "http":
		serveHTTP(cfg.HTTPAddr, engine, mcpSrv)
	default:
		log.Fatalf("unknown transport %q (use 'stdio' or 'http')", *transport)
	}
}

func serveHTTP(addr string, engine *forecast.Engine, mcpSrv *mcptools.Server) {
	app := fiber.New(fiber.Config{
		AppName:               "aurora-forecast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "aurora-forecast",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// MCP over streamable HTTP, alongside the plain JSON API.
	app.All("/mcp", adaptor.HTTPHandler(mcpSrv.StreamableHTTPServer()))

	// API routes.
	httpapi.RegisterRoutes(app, engine)

	go func() {
		if err := app.Listen(addr); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
