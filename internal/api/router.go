package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// AllowedOrigins lists the browser origins allowed by CORS.
	AllowedOrigins []string

	// Metrics serves the default Prometheus registry on /metrics when set.
	Metrics bool
}

// NewRouter creates and configures the HTTP router with all routes and middleware.
func NewRouter(h *Handlers, logger *slog.Logger, opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDResponse)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(Recovery(logger))
	r.Use(middleware.Compress(5))
	r.Use(MaxBodySize(maxBodyBytes))
	r.Use(ContentTypeJSON)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	if opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Post("/get_data", h.GetData)
	r.Get("/surprise", h.Surprise)

	r.Get("/granules", h.Granules)
	r.Get("/granules/{granuleId}", h.Granule)

	r.Route("/timeseries", func(r chi.Router) {
		r.Post("/", h.Timeseries)
		r.Get("/chart", h.TimeseriesChart)
		r.Get("/chart.png", h.TimeseriesPNG)
		r.Get("/report", h.TimeseriesReport)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "endpoint not found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
	})

	return r
}
