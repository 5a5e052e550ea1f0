// Package config provides configuration management for the swathpoint service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds the complete application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig    `envPrefix:"SERVER_"`
	CMR       CMRConfig       `envPrefix:"CMR_"`
	Earthdata EarthdataConfig `envPrefix:"EARTHDATA_"`
	Query     QueryConfig     `envPrefix:"QUERY_"`
	Coords    CoordsConfig    `envPrefix:"COORDS_"`
	CORS      CORSConfig      `envPrefix:"CORS_"`
	Weather   WeatherConfig   `envPrefix:"WEATHER_"`
	Logging   LoggingConfig   `envPrefix:"LOG_"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8000"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"5m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// BaseURL is the public URL used in item links.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8000"`
}

// CMRConfig contains CMR granule search configuration.
type CMRConfig struct {
	BaseURL  string        `env:"BASE_URL" envDefault:"https://cmr.earthdata.nasa.gov/search"`
	Provider string        `env:"PROVIDER" envDefault:"LARC_CLOUD"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"30s"`
	PageSize int           `env:"PAGE_SIZE" envDefault:"200"`
}

// EarthdataConfig contains granule download configuration.
type EarthdataConfig struct {
	// Token is an Earthdata Login bearer token. Downloads are anonymous when empty.
	Token      string        `env:"TOKEN" envDefault:""`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"5m"`
	MaxRetries int           `env:"MAX_RETRIES" envDefault:"3"`
}

// QueryConfig contains time series query defaults.
type QueryConfig struct {
	// Product selects the product definition used for searches and reports.
	Product string `env:"PRODUCT" envDefault:"tempo-uvai"`
	// ProductsDir optionally points at a directory of product JSON files.
	// The built-in products are used when empty.
	ProductsDir string `env:"PRODUCTS_DIR" envDefault:""`
	// GranuleDir holds pre-parsed granule documents read by /timeseries.
	GranuleDir   string  `env:"GRANULE_DIR" envDefault:"./granules"`
	NoData       float64 `env:"NO_DATA" envDefault:"-99"`
	SearchMargin float64 `env:"SEARCH_MARGIN" envDefault:"0.5"`
	MaxGranules  int     `env:"MAX_GRANULES" envDefault:"500"`
	SortByTime   bool    `env:"SORT_BY_TIME" envDefault:"false"`
}

// CoordsConfig bounds the coordinates accepted from clients.
type CoordsConfig struct {
	MinLon     float64 `env:"MIN_LON" envDefault:"-130"`
	MaxLon     float64 `env:"MAX_LON" envDefault:"-60"`
	MinLat     float64 `env:"MIN_LAT" envDefault:"15"`
	MaxLat     float64 `env:"MAX_LAT" envDefault:"60"`
	BBoxMargin float64 `env:"BBOX_MARGIN" envDefault:"0.01"`
}

// CORSConfig contains cross-origin settings for browser clients.
type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:8081"`
}

// WeatherConfig contains Open-Meteo client configuration.
type WeatherConfig struct {
	ForecastURL     string        `env:"FORECAST_URL" envDefault:"https://api.open-meteo.com/v1/forecast"`
	AirQualityURL   string        `env:"AIR_QUALITY_URL" envDefault:"https://air-quality-api.open-meteo.com/v1/air-quality"`
	Timeout         time.Duration `env:"TIMEOUT" envDefault:"10s"`
	MaxRetries      int           `env:"MAX_RETRIES" envDefault:"3"`
	BreakerFailures uint32        `env:"BREAKER_FAILURES" envDefault:"5"`
	BreakerTimeout  time.Duration `env:"BREAKER_TIMEOUT" envDefault:"30s"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Load parses configuration from environment variables.
// It returns an error if required fields are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}

	opts := env.Options{
		RequiredIfNoDef: true,
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDotenv loads the given .env files into the environment and then
// calls Load. Missing files are ignored and variables already set in the
// environment win over file values.
func LoadWithDotenv(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
	}
	return Load()
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive, got %s", c.Server.ReadTimeout)
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive, got %s", c.Server.WriteTimeout)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}

	if c.CMR.BaseURL == "" {
		return fmt.Errorf("CMR base URL is required")
	}

	if c.CMR.Timeout <= 0 {
		return fmt.Errorf("CMR timeout must be positive, got %s", c.CMR.Timeout)
	}

	if c.CMR.PageSize < 1 || c.CMR.PageSize > 2000 {
		return fmt.Errorf("CMR page size must be between 1 and 2000, got %d", c.CMR.PageSize)
	}

	if c.Earthdata.Timeout <= 0 {
		return fmt.Errorf("earthdata timeout must be positive, got %s", c.Earthdata.Timeout)
	}

	if c.Earthdata.MaxRetries < 0 {
		return fmt.Errorf("earthdata max retries must not be negative, got %d", c.Earthdata.MaxRetries)
	}

	if c.Query.Product == "" {
		return fmt.Errorf("query product is required")
	}

	if c.Query.SearchMargin < 0 {
		return fmt.Errorf("search margin must not be negative, got %g", c.Query.SearchMargin)
	}

	if c.Query.MaxGranules < 1 {
		return fmt.Errorf("max granules must be at least 1, got %d", c.Query.MaxGranules)
	}

	if c.Coords.MinLon >= c.Coords.MaxLon {
		return fmt.Errorf("coordinate longitude range is empty: [%g, %g]", c.Coords.MinLon, c.Coords.MaxLon)
	}

	if c.Coords.MinLat >= c.Coords.MaxLat {
		return fmt.Errorf("coordinate latitude range is empty: [%g, %g]", c.Coords.MinLat, c.Coords.MaxLat)
	}

	if c.Coords.MinLon < -180 || c.Coords.MaxLon > 180 || c.Coords.MinLat < -90 || c.Coords.MaxLat > 90 {
		return fmt.Errorf("coordinate bounds exceed the globe")
	}

	if c.Coords.BBoxMargin < 0 {
		return fmt.Errorf("bbox margin must not be negative, got %g", c.Coords.BBoxMargin)
	}

	if c.Weather.ForecastURL == "" || c.Weather.AirQualityURL == "" {
		return fmt.Errorf("weather forecast and air quality URLs are required")
	}

	if c.Weather.Timeout <= 0 {
		return fmt.Errorf("weather timeout must be positive, got %s", c.Weather.Timeout)
	}

	if c.Weather.MaxRetries < 0 {
		return fmt.Errorf("weather max retries must not be negative, got %d", c.Weather.MaxRetries)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format %q, must be one of: json, text", c.Logging.Format)
	}

	return nil
}

// Address returns the server listen address in the format "host:port".
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
