// swathpoint server entry point
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rkm/swathpoint/internal/api"
	"github.com/rkm/swathpoint/internal/cmr"
	"github.com/rkm/swathpoint/internal/config"
	"github.com/rkm/swathpoint/internal/granule"
	"github.com/rkm/swathpoint/internal/observability"
	"github.com/rkm/swathpoint/internal/weather"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithDotenv(".env")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	logger.Info("starting swathpoint",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"product", cfg.Query.Product,
	)

	products, err := config.ResolveProducts(cfg.Query.ProductsDir)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}
	if !products.Has(cfg.Query.Product) {
		return fmt.Errorf("default product %q is not defined", cfg.Query.Product)
	}
	logger.Info("loaded products", "count", products.Count(), "ids", products.IDs())

	metrics := observability.NewMetrics()

	cmrClient := cmr.NewClient(cfg.CMR.BaseURL, cfg.CMR.Provider, cfg.CMR.Timeout).
		WithLogger(logger).
		WithMetrics(metrics)
	catalog := cmr.NewCatalog(cmrClient, products, cfg.Server.BaseURL, cfg.Query.MaxGranules, logger)
	logger.Info("using CMR catalog", "base_url", cfg.CMR.BaseURL, "provider", cfg.CMR.Provider)

	downloader := cmr.NewDownloader(cfg.Earthdata).WithLogger(logger).WithMetrics(metrics)
	loader := granule.NewLoader(cfg.Query.GranuleDir, downloader, false)

	openMeteo := weather.NewOpenMeteo(cfg.Weather).WithLogger(logger).WithMetrics(metrics)

	handlers := api.NewHandlers(cfg, products, logger).
		WithCatalog(catalog).
		WithLoader(loader).
		WithWeather(openMeteo).
		WithMetrics(metrics)

	router := api.NewRouter(handlers, logger, api.RouterOptions{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Metrics:        true,
	})

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down server", "timeout", cfg.Server.ShutdownTimeout)
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
