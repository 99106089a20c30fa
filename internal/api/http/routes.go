package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/metno-forecast/norwegianweather/internal/common"
	"github.com/metno-forecast/norwegianweather/internal/weather"
)

var validate = validator.New()

// Options tune the read endpoints.
type Options struct {
	// SeriesMax is used when the series endpoint gets no max parameter.
	SeriesMax int
	Clock     common.Clock
	// RefreshTimeout bounds a manual refresh.
	RefreshTimeout time.Duration
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, opts Options) {
	if opts.Clock == nil {
		opts.Clock = common.RealClock{}
	}
	if opts.SeriesMax <= 0 {
		opts.SeriesMax = 6
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 30 * time.Second
	}

	v1 := app.Group("/api/v1/forecast")

	v1.Get("/location", func(c *fiber.Ctx) error {
		loc := service.Location()
		var first, last *time.Time
		if n := len(loc.TimeSeries); n > 0 {
			first, last = &loc.TimeSeries[0].Time, &loc.TimeSeries[n-1].Time
		}
		return c.JSON(fiber.Map{
			"name":       loc.Name,
			"latitude":   loc.Latitude,
			"longitude":  loc.Longitude,
			"altitude":   loc.Altitude,
			"units":      loc.Units,
			"updatedAt":  loc.UpdatedAt,
			"timeseries": len(loc.TimeSeries),
			"from":       first,
			"to":         last,
		})
	})

	v1.Get("/current", func(c *fiber.Ctx) error {
		at := opts.Clock.Now()
		if s := c.Query("at"); s != "" {
			ts, err := parseTime(s)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			at = ts
		}

		snapshot, ok := service.CurrentSnapshot(at)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no forecast covers the requested time")
		}
		return c.JSON(fiber.Map{
			"at":    at.UTC(),
			"data":  snapshot,
			"units": service.Location().Units,
		})
	})

	v1.Get("/series", func(c *fiber.Ctx) error {
		var req seriesQuery
		if err := req.bind(c, opts.SeriesMax); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(fiber.Map{
			"series": service.ForecastSeries(req.Max),
			"units":  service.Location().Units,
		})
	})

	v1.Get("/intervals", func(c *fiber.Ctx) error {
		var req intervalsQuery
		if err := req.bind(c, opts.SeriesMax); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		h := weather.Horizon(req.Horizon)
		return c.JSON(fiber.Map{
			"horizon":   h,
			"intervals": service.Intervals(h, req.Max),
			"units":     service.Location().Units,
		})
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), opts.RefreshTimeout)
		defer cancel()

		err := service.Update(ctx)
		switch {
		case errors.Is(err, weather.ErrUpdateInProgress):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		case errors.Is(err, weather.ErrEmptyForecast):
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, "failed to refresh forecast")
		}
		return c.JSON(fiber.Map{
			"timeseries": len(service.Location().TimeSeries),
		})
	})
}

// seriesQuery holds query parameters for the series endpoint.
type seriesQuery struct {
	Max int `validate:"gte=1,lte=240"`
}

func (q *seriesQuery) bind(c *fiber.Ctx, def int) error {
	n, err := parseMax(c, def)
	if err != nil {
		return err
	}
	q.Max = n
	return nil
}

// intervalsQuery holds query parameters for the intervals endpoint.
type intervalsQuery struct {
	Horizon string `validate:"required,oneof=instant next_1_hours next_6_hours next_12_hours"`
	Max     int    `validate:"gte=1,lte=240"`
}

func (q *intervalsQuery) bind(c *fiber.Ctx, def int) error {
	n, err := parseMax(c, def)
	if err != nil {
		return err
	}
	q.Horizon = c.Query("horizon", string(weather.HorizonNext1Hour))
	q.Max = n
	return nil
}

func parseMax(c *fiber.Ctx, def int) (int, error) {
	s := c.Query("max")
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("max must be an integer")
	}
	return n, nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
