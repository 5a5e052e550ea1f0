package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected default host 0.0.0.0, got %s", cfg.Server.Host)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Server.Port)
	}

	if cfg.CMR.BaseURL != "https://cmr.earthdata.nasa.gov/search" {
		t.Errorf("expected default CMR base URL, got %s", cfg.CMR.BaseURL)
	}

	if cfg.Query.Product != "tempo-uvai" {
		t.Errorf("expected default product tempo-uvai, got %s", cfg.Query.Product)
	}

	if cfg.Query.NoData != -99 {
		t.Errorf("expected default no-data sentinel -99, got %g", cfg.Query.NoData)
	}

	if cfg.Coords.MinLon != -130 || cfg.Coords.MaxLon != -60 || cfg.Coords.MinLat != 15 || cfg.Coords.MaxLat != 60 {
		t.Errorf("unexpected default coordinate bounds: %+v", cfg.Coords)
	}

	if cfg.Coords.BBoxMargin != 0.01 {
		t.Errorf("expected default bbox margin 0.01, got %g", cfg.Coords.BBoxMargin)
	}

	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"http://localhost:8081"}) {
		t.Errorf("expected default CORS origin, got %v", cfg.CORS.AllowedOrigins)
	}

	if cfg.Earthdata.Token != "" {
		t.Errorf("expected empty earthdata token, got %q", cfg.Earthdata.Token)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Logging.Level)
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_READ_TIMEOUT", "60s")
	t.Setenv("CMR_PAGE_SIZE", "50")
	t.Setenv("EARTHDATA_TOKEN", "secret")
	t.Setenv("QUERY_PRODUCT", "tempo-no2")
	t.Setenv("QUERY_SORT_BY_TIME", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:8081,https://maps.example.com")
	t.Setenv("WEATHER_TIMEOUT", "3s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}

	if cfg.Server.ReadTimeout != 60*time.Second {
		t.Errorf("expected read timeout 60s, got %s", cfg.Server.ReadTimeout)
	}

	if cfg.CMR.PageSize != 50 {
		t.Errorf("expected page size 50, got %d", cfg.CMR.PageSize)
	}

	if cfg.Earthdata.Token != "secret" {
		t.Errorf("expected earthdata token to be read")
	}

	if cfg.Query.Product != "tempo-no2" || !cfg.Query.SortByTime {
		t.Errorf("unexpected query config: %+v", cfg.Query)
	}

	want := []string{"http://localhost:8081", "https://maps.example.com"}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, want) {
		t.Errorf("expected origins %v, got %v", want, cfg.CORS.AllowedOrigins)
	}

	if cfg.Weather.Timeout != 3*time.Second {
		t.Errorf("expected weather timeout 3s, got %s", cfg.Weather.Timeout)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}

	if cfg.Logging.Format != "text" {
		t.Errorf("expected log format text, got %s", cfg.Logging.Format)
	}
}

func TestLoadInvalidValue(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")

	if _, err := Load(); err == nil {
		t.Error("expected error for unparsable port")
	}
}

func TestLoadWithDotenv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "SERVER_PORT=7070\nLOG_FORMAT=text\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	// variables already in the environment win over the file
	t.Setenv("LOG_FORMAT", "json")
	// register SERVER_PORT for cleanup, then clear it so the file applies
	t.Setenv("SERVER_PORT", "")
	os.Unsetenv("SERVER_PORT")

	cfg, err := LoadWithDotenv(filepath.Join(dir, "missing.env"), envFile)
	if err != nil {
		t.Fatalf("LoadWithDotenv() failed: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("expected port from .env file, got %d", cfg.Server.Port)
	}

	if cfg.Logging.Format != "json" {
		t.Errorf("expected environment to override .env, got %s", cfg.Logging.Format)
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		CMR: CMRConfig{
			BaseURL:  "https://cmr.earthdata.nasa.gov/search",
			Provider: "LARC_CLOUD",
			Timeout:  30 * time.Second,
			PageSize: 200,
		},
		Earthdata: EarthdataConfig{
			Timeout:    5 * time.Minute,
			MaxRetries: 3,
		},
		Query: QueryConfig{
			Product:      "tempo-uvai",
			NoData:       -99,
			SearchMargin: 0.5,
			MaxGranules:  500,
		},
		Coords: CoordsConfig{
			MinLon: -130, MaxLon: -60,
			MinLat: 15, MaxLat: 60,
			BBoxMargin: 0.01,
		},
		Weather: WeatherConfig{
			ForecastURL:   "https://api.open-meteo.com/v1/forecast",
			AirQualityURL: "https://air-quality-api.open-meteo.com/v1/air-quality",
			Timeout:       10 * time.Second,
			MaxRetries:    3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError bool
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "invalid port", mutate: func(c *Config) { c.Server.Port = 0 }, wantError: true},
		{name: "zero read timeout", mutate: func(c *Config) { c.Server.ReadTimeout = 0 }, wantError: true},
		{name: "missing CMR base URL", mutate: func(c *Config) { c.CMR.BaseURL = "" }, wantError: true},
		{name: "page size too large", mutate: func(c *Config) { c.CMR.PageSize = 5000 }, wantError: true},
		{name: "negative retries", mutate: func(c *Config) { c.Earthdata.MaxRetries = -1 }, wantError: true},
		{name: "missing product", mutate: func(c *Config) { c.Query.Product = "" }, wantError: true},
		{name: "no granules allowed", mutate: func(c *Config) { c.Query.MaxGranules = 0 }, wantError: true},
		{name: "empty longitude range", mutate: func(c *Config) { c.Coords.MinLon = -60 }, wantError: true},
		{name: "latitude beyond pole", mutate: func(c *Config) { c.Coords.MaxLat = 95 }, wantError: true},
		{name: "negative bbox margin", mutate: func(c *Config) { c.Coords.BBoxMargin = -0.1 }, wantError: true},
		{name: "missing weather URL", mutate: func(c *Config) { c.Weather.AirQualityURL = "" }, wantError: true},
		{name: "invalid log level", mutate: func(c *Config) { c.Logging.Level = "invalid" }, wantError: true},
		{name: "invalid log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestServerConfigAddress(t *testing.T) {
	cfg := ServerConfig{
		Host: "localhost",
		Port: 3000,
	}

	addr := cfg.Address()
	expected := "localhost:3000"
	if addr != expected {
		t.Errorf("Address() = %s, expected %s", addr, expected)
	}
}
