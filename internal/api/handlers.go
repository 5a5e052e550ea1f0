package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rkm/swathpoint/internal/backend"
	"github.com/rkm/swathpoint/internal/config"
	"github.com/rkm/swathpoint/internal/geo"
	"github.com/rkm/swathpoint/internal/granule"
	"github.com/rkm/swathpoint/internal/observability"
	"github.com/rkm/swathpoint/internal/weather"
)

// WeatherService is the subset of the Open-Meteo client the handlers use.
type WeatherService interface {
	Current(ctx context.Context, lat, lon float64) (weather.Conditions, error)
	AirQuality(ctx context.Context, lat, lon float64, day time.Time) (*weather.AirQuality, error)
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	cfg      *config.Config
	products *config.ProductRegistry
	bounds   geo.Bounds
	catalog  backend.Catalog
	loader   *granule.Loader
	weather  WeatherService
	metrics  *observability.Metrics
	clock    clockwork.Clock
	logger   *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewHandlers creates Handlers. The catalog, loader and weather service are
// optional; endpoints that need a missing one answer 503.
func NewHandlers(cfg *config.Config, products *config.ProductRegistry, logger *slog.Logger) *Handlers {
	return &Handlers{
		cfg:      cfg,
		products: products,
		bounds:   geo.BoundsFromConfig(cfg.Coords),
		clock:    clockwork.NewRealClock(),
		logger:   logger,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithCatalog sets the granule catalog used by /granules and catalog-backed
// time series.
func (h *Handlers) WithCatalog(c backend.Catalog) *Handlers {
	h.catalog = c
	return h
}

// WithLoader sets the loader that turns granule references into grids.
// Without one, documents are read from the configured granule directory.
func (h *Handlers) WithLoader(l *granule.Loader) *Handlers {
	h.loader = l
	return h
}

// WithWeather sets the weather and air quality service.
func (h *Handlers) WithWeather(w WeatherService) *Handlers {
	h.weather = w
	return h
}

// WithMetrics records query metrics on m.
func (h *Handlers) WithMetrics(m *observability.Metrics) *Handlers {
	h.metrics = m
	return h
}

// WithClock replaces the wall clock, for tests.
func (h *Handlers) WithClock(c clockwork.Clock) *Handlers {
	h.clock = c
	return h
}

// WithRand replaces the source used by /surprise.
func (h *Handlers) WithRand(r *rand.Rand) *Handlers {
	h.rng = r
	return h
}

// Health returns the health status of the service.
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":   "ok",
		"products": h.products.IDs(),
		"catalog":  h.catalog != nil,
		"weather":  h.weather != nil,
	}
	WriteJSON(w, http.StatusOK, response)
}

// CoordsRequest is the body of POST /get_data.
type CoordsRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// AQIResponse is the air quality part of a point report.
type AQIResponse struct {
	Value    float64          `json:"value"`
	Category weather.Category `json:"category"`
	DailyMax float64          `json:"daily_max"`
}

// PointDataResponse is the body returned by POST /get_data.
type PointDataResponse struct {
	Coords         geo.Coords         `json:"coords"`
	BBox           []float64          `json:"bbox"`
	AQI            AQIResponse        `json:"aqi"`
	CurrentWeather weather.Conditions `json:"current_weather"`
}

// GetData returns the air quality and current weather at a point.
// POST /get_data
func (h *Handlers) GetData(w http.ResponseWriter, r *http.Request) {
	if h.weather == nil {
		WriteUnavailable(w, "weather service is not configured")
		return
	}

	var req CoordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		WriteInvalidParameter(w, "latitude and longitude are required")
		return
	}

	coords, err := h.bounds.ValidCoords(*req.Longitude, *req.Latitude)
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}

	bbox := geo.BBox(coords, h.cfg.Coords.BBoxMargin)
	center := geo.Center(bbox)
	ctx := r.Context()

	aq, err := h.weather.AirQuality(ctx, center.Lat, center.Lon, h.clock.Now())
	if err != nil {
		h.upstreamFailure(ctx, w, "air quality", err)
		return
	}
	current, err := h.weather.Current(ctx, center.Lat, center.Lon)
	if err != nil {
		h.upstreamFailure(ctx, w, "weather", err)
		return
	}

	WriteJSON(w, http.StatusOK, PointDataResponse{
		Coords:         coords,
		BBox:           bbox,
		AQI:            AQIResponse{Value: aq.Value, Category: aq.Category, DailyMax: aq.DailyMax},
		CurrentWeather: current,
	})
}

// SurpriseResponse is the body returned by GET /surprise.
type SurpriseResponse struct {
	City           string             `json:"city"`
	Coords         geo.Coords         `json:"coords"`
	CurrentWeather weather.Conditions `json:"current_weather"`
}

// Surprise returns the current weather of a random city inside the served region.
// GET /surprise
func (h *Handlers) Surprise(w http.ResponseWriter, r *http.Request) {
	if h.weather == nil {
		WriteUnavailable(w, "weather service is not configured")
		return
	}

	h.rngMu.Lock()
	city, err := h.bounds.Surprise(h.rng)
	h.rngMu.Unlock()
	if err != nil {
		WriteNotFound(w, err.Error())
		return
	}

	current, err := h.weather.Current(r.Context(), city.Lat, city.Lon)
	if err != nil {
		h.upstreamFailure(r.Context(), w, "weather", err)
		return
	}

	WriteJSON(w, http.StatusOK, SurpriseResponse{
		City:           city.Name,
		Coords:         city.Coords,
		CurrentWeather: current,
	})
}

func (h *Handlers) upstreamFailure(ctx context.Context, w http.ResponseWriter, what string, err error) {
	h.logger.ErrorContext(ctx, what+" request failed",
		slog.String("request_id", GetRequestID(ctx)),
		slog.String("error", err.Error()),
	)
	if errors.Is(err, context.DeadlineExceeded) {
		WriteError(w, http.StatusGatewayTimeout, ErrCodeUpstreamError, what+" service timed out")
		return
	}
	WriteUpstreamError(w, what+" service error")
}
