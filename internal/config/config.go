package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/metno-forecast/norwegianweather/internal/weather"
)

var validate = validator.New()

type AppConfig struct {
	Place     string   `validate:"required"`
	Latitude  float64  `validate:"gte=-90,lte=90"`
	Longitude float64  `validate:"gte=-180,lte=180"`
	Altitude  *float64 `validate:"omitempty,gte=-500,lte=9000"`

	// UserAgent identifies this deployment to met.no.
	UserAgent string `validate:"required"`
	BaseURL   string `validate:"required,url"`

	// FetchInterval controls how often the update cycle runs.
	FetchInterval time.Duration `validate:"gt=0"`
	HTTPTimeout   time.Duration `validate:"gt=0"`
	RatePerSecond float64       `validate:"gte=0"`

	StoreBackend string `validate:"oneof=file memory postgres"`
	StoreDir     string `validate:"required_if=StoreBackend file"`
	DatabaseURL  string `validate:"required_if=StoreBackend postgres"`

	// SeriesMax is the default length of the forecast series endpoint.
	SeriesMax int `validate:"gte=1,lte=240"`

	Port      string `validate:"required,numeric"`
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=text json"`
}

// Location returns the configured point as a weather.Location identity.
func (c *AppConfig) Location() weather.Location {
	return weather.NewLocation(c.Place, c.Latitude, c.Longitude, c.Altitude)
}

// Load reads configuration from environment with sensible defaults. A .env
// file in the working directory is loaded first when present.
func Load() (*AppConfig, error) {
	// Missing .env is fine; the environment alone is enough.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &AppConfig{
		Place:        getenvDefault("FORECAST_PLACE", "Syrevågen"),
		UserAgent:    os.Getenv("FORECAST_USER_AGENT"),
		BaseURL:      getenvDefault("FORECAST_BASE_URL", "https://api.met.no/weatherapi/locationforecast/2.0/complete"),
		StoreBackend: getenvDefault("STORE_BACKEND", "file"),
		StoreDir:     getenvDefault("STORE_DIR", "tmp"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		SeriesMax:    getenvInt("SERIES_MAX", 6),
		Port:         getenvDefault("PORT", "8080"),
		LogLevel:     getenvDefault("LOG_LEVEL", "info"),
		LogFormat:    getenvDefault("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.Latitude, err = getenvFloat("FORECAST_LATITUDE", 59.1511); err != nil {
		return nil, err
	}
	if cfg.Longitude, err = getenvFloat("FORECAST_LONGITUDE", 5.2252); err != nil {
		return nil, err
	}
	if v := os.Getenv("FORECAST_ALTITUDE"); v != "" {
		alt, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid FORECAST_ALTITUDE: %w", err)
		}
		cfg.Altitude = &alt
	}
	if cfg.RatePerSecond, err = getenvFloat("RATE_LIMIT_RPS", 1); err != nil {
		return nil, err
	}

	// Update cycle interval: default 10 minutes.
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "10m"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "20s"); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
