package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/skysight/aurora-forecast/internal/forecast"
	"github.com/skysight/aurora-forecast/internal/geo"
	"github.com/skysight/aurora-forecast/internal/swpc"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app. The routes mirror
// the MCP tool surface one-to-one.
func RegisterRoutes(app *fiber.App, engine *forecast.Engine) {
	v1 := app.Group("/api/v1")

	v1.Get("/aurora/forecast", func(c *fiber.Ctx) error {
		lat, lon, err := parseCoordinateQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		resp, err := engine.Forecast(c.Context(), lat, lon)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(resp)
	})

	v1.Get("/aurora/prediction", func(c *fiber.Ctx) error {
		lat, lon, err := parseCoordinateQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var req predictionQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		resp, err := engine.Prediction(c.Context(), lat, lon, req.HoursAhead)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(resp)
	})

	v1.Get("/aurora/kp", func(c *fiber.Ctx) error {
		reading, err := engine.CurrentKp(c.Context())
		if err != nil {
			return mapError(err)
		}
		return c.JSON(reading)
	})

	v1.Get("/location", func(c *fiber.Ctx) error {
		result, err := engine.VerifyLocation(c.Context())
		if err != nil {
			return mapError(err)
		}
		return c.JSON(result)
	})

	v1.Get("/cache/stats", func(c *fiber.Ctx) error {
		return c.JSON(engine.CacheStats())
	})

	v1.Delete("/cache", func(c *fiber.Ctx) error {
		return c.JSON(engine.ClearCache())
	})
}

// parseCoordinateQuery returns pointers so absence survives into the engine:
// a missing coordinate must trigger the IP fallback path, not default to zero.
func parseCoordinateQuery(c *fiber.Ctx) (lat, lon *float64, err error) {
	if lat, err = queryFloat(c, "lat"); err != nil {
		return nil, nil, err
	}
	if lon, err = queryFloat(c, "lon"); err != nil {
		return nil, nil, err
	}
	return lat, lon, nil
}

func queryFloat(c *fiber.Ctx, key string) (*float64, error) {
	s := c.Query(key)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.New("invalid " + key + ": must be a number")
	}
	return &f, nil
}

// predictionQuery holds the windowed-forecast parameters.
type predictionQuery struct {
	HoursAhead int `validate:"min=1,max=72"`
}

func (q *predictionQuery) bind(c *fiber.Ctx) error {
	q.HoursAhead = forecast.DefaultHoursAhead

	if s := c.Query("hours_ahead"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return errors.New("invalid hours_ahead: must be an integer")
		}
		q.HoursAhead = n
	}
	return nil
}

// mapError converts engine errors into HTTP status codes. The centralized
// error handler in main renders the body.
func mapError(err error) error {
	var resErr *geo.ResolutionError
	switch {
	case errors.Is(err, forecast.ErrInvalidHours), errors.Is(err, geo.ErrInvalidCoordinates):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.As(err, &resErr),
		errors.Is(err, swpc.ErrUpstreamUnavailable),
		errors.Is(err, swpc.ErrUpstreamParse):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
}
