// Package server provides a public API for embedding the swathpoint service.
package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rkm/swathpoint/internal/api"
	"github.com/rkm/swathpoint/internal/cmr"
	"github.com/rkm/swathpoint/internal/config"
	"github.com/rkm/swathpoint/internal/granule"
	"github.com/rkm/swathpoint/internal/weather"
)

// Options configures an embedded swathpoint server. Zero values take the
// defaults noted on each field.
type Options struct {
	// BaseURL is the public-facing URL used in granule links.
	// Example: "https://api.example.com/swathpoint" or "http://localhost:8080"
	BaseURL string

	// CMRBaseURL is the NASA CMR search URL.
	// Default: "https://cmr.earthdata.nasa.gov/search"
	CMRBaseURL string

	// CMRProvider is the CMR provider ID.
	// Default: "LARC_CLOUD"
	CMRProvider string

	// Timeout is the upstream request timeout.
	// Default: 30s
	Timeout time.Duration

	// Product is the default product ID.
	// Default: "tempo-uvai"
	Product string

	// ProductsDir is a directory of product definition JSON files.
	// Default: "" (built-in products)
	ProductsDir string

	// GranuleDir holds granule documents and downloaded granules.
	// Default: "./granules"
	GranuleDir string

	// EarthdataToken authorizes granule downloads. Downloads are disabled
	// when empty.
	EarthdataToken string

	// AllowedOrigins lists the CORS origins.
	// Default: none
	AllowedOrigins []string

	// DisableWeather turns off /get_data and /surprise.
	DisableWeather bool

	// Logger is the slog logger to use.
	// Default: slog.Default()
	Logger *slog.Logger
}

// Server is a swathpoint server that can be embedded in another application.
type Server struct {
	router chi.Router
}

// New creates a new server with the given options.
func New(opts Options) (*Server, error) {
	if opts.CMRBaseURL == "" {
		opts.CMRBaseURL = "https://cmr.earthdata.nasa.gov/search"
	}
	if opts.CMRProvider == "" {
		opts.CMRProvider = cmr.DefaultProvider
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Product == "" {
		opts.Product = "tempo-uvai"
	}
	if opts.GranuleDir == "" {
		opts.GranuleDir = "./granules"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cfg := &config.Config{
		Server: config.ServerConfig{BaseURL: opts.BaseURL},
		CMR: config.CMRConfig{
			BaseURL:  opts.CMRBaseURL,
			Provider: opts.CMRProvider,
			Timeout:  opts.Timeout,
			PageSize: cmr.DefaultPageSize,
		},
		Earthdata: config.EarthdataConfig{
			Token:      opts.EarthdataToken,
			Timeout:    5 * time.Minute,
			MaxRetries: 3,
		},
		Query: config.QueryConfig{
			Product:     opts.Product,
			ProductsDir: opts.ProductsDir,
			GranuleDir:  opts.GranuleDir,
			NoData:      -99,
			MaxGranules: 500,
		},
		Coords: config.CoordsConfig{MinLon: -130, MaxLon: -60, MinLat: 15, MaxLat: 60, BBoxMargin: 0.01},
		Weather: config.WeatherConfig{
			ForecastURL:     "https://api.open-meteo.com/v1/forecast",
			AirQualityURL:   "https://air-quality-api.open-meteo.com/v1/air-quality",
			Timeout:         opts.Timeout,
			MaxRetries:      3,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
	}

	products, err := config.ResolveProducts(opts.ProductsDir)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	if !products.Has(opts.Product) {
		return nil, fmt.Errorf("default product %q is not defined", opts.Product)
	}

	cmrClient := cmr.NewClient(cfg.CMR.BaseURL, cfg.CMR.Provider, cfg.CMR.Timeout).WithLogger(opts.Logger)
	catalog := cmr.NewCatalog(cmrClient, products, opts.BaseURL, cfg.Query.MaxGranules, opts.Logger)

	var fetcher granule.Fetcher
	if opts.EarthdataToken != "" {
		fetcher = cmr.NewDownloader(cfg.Earthdata).WithLogger(opts.Logger)
	}

	handlers := api.NewHandlers(cfg, products, opts.Logger).
		WithCatalog(catalog).
		WithLoader(granule.NewLoader(cfg.Query.GranuleDir, fetcher, false))
	if !opts.DisableWeather {
		handlers.WithWeather(weather.NewOpenMeteo(cfg.Weather).WithLogger(opts.Logger))
	}

	return &Server{
		router: api.NewRouter(handlers, opts.Logger, api.RouterOptions{AllowedOrigins: opts.AllowedOrigins}),
	}, nil
}

// Router returns the chi.Router for mounting in another application.
func (s *Server) Router() chi.Router {
	return s.router
}
