package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/rkm/swathpoint/internal/config"
	"github.com/rkm/swathpoint/internal/observability"
	"github.com/rkm/swathpoint/internal/resilience"
)

const (
	service = "openmeteo"

	// MaxForecastDays is the longest forecast Open-Meteo serves.
	MaxForecastDays = 16

	timeLayout = "2006-01-02T15:04"
)

var (
	currentVars = []string{
		"temperature_2m",
		"relative_humidity_2m",
		"precipitation",
		"surface_pressure",
		"cloud_cover",
		"wind_speed_10m",
		"wind_direction_10m",
	}
	hourlyVars = append([]string{"dew_point_2m", "wind_gusts_10m"}, currentVars...)
)

// OpenMeteo is a client for the Open-Meteo forecast and air quality APIs.
type OpenMeteo struct {
	forecastURL   string
	airQualityURL string
	httpClient    *http.Client
	backoff       resilience.Backoff
	forecastCB    *gobreaker.CircuitBreaker
	airQualityCB  *gobreaker.CircuitBreaker
	logger        *slog.Logger
	metrics       *observability.Metrics
}

// NewOpenMeteo creates a client from the weather configuration.
func NewOpenMeteo(cfg config.WeatherConfig) *OpenMeteo {
	backoff := resilience.DefaultBackoff
	backoff.MaxRetries = cfg.MaxRetries

	return &OpenMeteo{
		forecastURL:   cfg.ForecastURL,
		airQualityURL: cfg.AirQualityURL,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		backoff:       backoff,
		forecastCB:    resilience.NewBreaker(service+"-forecast", cfg.BreakerFailures, cfg.BreakerTimeout),
		airQualityCB:  resilience.NewBreaker(service+"-air-quality", cfg.BreakerFailures, cfg.BreakerTimeout),
		logger:        slog.Default(),
	}
}

// WithLogger sets a custom logger for the client.
func (c *OpenMeteo) WithLogger(logger *slog.Logger) *OpenMeteo {
	c.logger = logger
	return c
}

// WithMetrics records upstream request counts and latency on m.
func (c *OpenMeteo) WithMetrics(m *observability.Metrics) *OpenMeteo {
	c.metrics = m
	return c
}

// WithBackoff overrides the retry policy.
func (c *OpenMeteo) WithBackoff(b resilience.Backoff) *OpenMeteo {
	c.backoff = b
	return c
}

type forecastResponse struct {
	UTCOffsetSeconds int `json:"utc_offset_seconds"`
	Current          struct {
		Time          string  `json:"time"`
		Temperature   float64 `json:"temperature_2m"`
		Humidity      float64 `json:"relative_humidity_2m"`
		Precipitation float64 `json:"precipitation"`
		Pressure      float64 `json:"surface_pressure"`
		CloudCover    float64 `json:"cloud_cover"`
		WindSpeed     float64 `json:"wind_speed_10m"`
		WindDirection float64 `json:"wind_direction_10m"`
	} `json:"current"`
	Hourly struct {
		Time          []string  `json:"time"`
		Temperature   []float64 `json:"temperature_2m"`
		Humidity      []float64 `json:"relative_humidity_2m"`
		Precipitation []float64 `json:"precipitation"`
		Pressure      []float64 `json:"surface_pressure"`
		CloudCover    []float64 `json:"cloud_cover"`
		WindSpeed     []float64 `json:"wind_speed_10m"`
		WindDirection []float64 `json:"wind_direction_10m"`
	} `json:"hourly"`
}

type airQualityResponse struct {
	UTCOffsetSeconds int `json:"utc_offset_seconds"`
	Current          struct {
		Time  string   `json:"time"`
		USAQI *float64 `json:"us_aqi"`
	} `json:"current"`
	Hourly struct {
		Time  []string   `json:"time"`
		USAQI []*float64 `json:"us_aqi"`
	} `json:"hourly"`
}

// Current returns the current conditions at lat, lon.
func (c *OpenMeteo) Current(ctx context.Context, lat, lon float64) (Conditions, error) {
	r, err := c.Forecast(ctx, lat, lon, 0)
	if err != nil {
		return Conditions{}, err
	}
	return r.Current, nil
}

// Forecast returns current conditions and up to hours hourly forecast entries.
func (c *OpenMeteo) Forecast(ctx context.Context, lat, lon float64, hours int) (*Report, error) {
	days := hours/24 + 1
	if days > MaxForecastDays {
		days = MaxForecastDays
	}

	values := coordValues(lat, lon)
	values.Set("current", strings.Join(currentVars, ","))
	values.Set("hourly", strings.Join(hourlyVars, ","))
	values.Set("temperature_unit", "celsius")
	values.Set("wind_speed_unit", "ms")
	values.Set("precipitation_unit", "mm")
	values.Set("timezone", "auto")
	values.Set("forecast_days", strconv.Itoa(days))

	var payload forecastResponse
	if err := c.getJSON(ctx, c.forecastCB, c.forecastURL, values, &payload); err != nil {
		return nil, err
	}

	loc := time.FixedZone("", payload.UTCOffsetSeconds)
	cur := payload.Current
	ts, err := time.ParseInLocation(timeLayout, cur.Time, loc)
	if err != nil {
		return nil, fmt.Errorf("parse current time %q: %w", cur.Time, err)
	}

	report := &Report{
		Current: Conditions{
			Time:          ts,
			Temp:          cur.Temperature,
			Humidity:      cur.Humidity,
			Pressure:      cur.Pressure,
			WindSpeed:     cur.WindSpeed,
			WindDirection: cur.WindDirection,
			Precipitation: cur.Precipitation,
			CloudCover:    cur.CloudCover,
		},
		Forecast: []Conditions{},
	}

	h := payload.Hourly
	n := min(hours, len(h.Time), len(h.Temperature), len(h.Humidity), len(h.Precipitation),
		len(h.Pressure), len(h.CloudCover), len(h.WindSpeed), len(h.WindDirection))
	for i := 0; i < n; i++ {
		ts, err := time.ParseInLocation(timeLayout, h.Time[i], loc)
		if err != nil {
			return nil, fmt.Errorf("parse forecast time %q: %w", h.Time[i], err)
		}
		report.Forecast = append(report.Forecast, Conditions{
			Time:          ts,
			Temp:          h.Temperature[i],
			Humidity:      h.Humidity[i],
			Pressure:      h.Pressure[i],
			WindSpeed:     h.WindSpeed[i],
			WindDirection: h.WindDirection[i],
			Precipitation: h.Precipitation[i],
			CloudCover:    h.CloudCover[i],
		})
	}

	return report, nil
}

// AirQuality returns the current US AQI at lat, lon and the highest hourly
// value of day.
func (c *OpenMeteo) AirQuality(ctx context.Context, lat, lon float64, day time.Time) (*AirQuality, error) {
	date := day.Format(time.DateOnly)

	values := coordValues(lat, lon)
	values.Set("current", "us_aqi")
	values.Set("hourly", "us_aqi")
	values.Set("start_date", date)
	values.Set("end_date", date)
	values.Set("timezone", "auto")

	var payload airQualityResponse
	if err := c.getJSON(ctx, c.airQualityCB, c.airQualityURL, values, &payload); err != nil {
		return nil, err
	}
	if payload.Current.USAQI == nil {
		return nil, fmt.Errorf("open-meteo returned no current us_aqi")
	}

	loc := time.FixedZone("", payload.UTCOffsetSeconds)
	ts, err := time.ParseInLocation(timeLayout, payload.Current.Time, loc)
	if err != nil {
		return nil, fmt.Errorf("parse air quality time %q: %w", payload.Current.Time, err)
	}

	aq := &AirQuality{
		Time:     ts,
		Value:    *payload.Current.USAQI,
		Category: RateAQI(*payload.Current.USAQI),
		DailyMax: *payload.Current.USAQI,
	}
	for _, v := range payload.Hourly.USAQI {
		if v != nil && *v > aq.DailyMax {
			aq.DailyMax = *v
		}
	}
	return aq, nil
}

func coordValues(lat, lon float64) url.Values {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	values.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	return values
}

func (c *OpenMeteo) getJSON(ctx context.Context, cb *gobreaker.CircuitBreaker, base string, values url.Values, out any) (err error) {
	started := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.UpstreamRequests.WithLabelValues(service, resilience.Outcome(err)).Inc()
			c.metrics.UpstreamDuration.WithLabelValues(service).Observe(time.Since(started).Seconds())
		}
	}()

	u := base + "?" + values.Encode()
	resp, err := resilience.Do(ctx, c.httpClient, cb, c.backoff, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
	if err != nil {
		c.logger.WarnContext(ctx, "open-meteo request failed",
			slog.String("url", base),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("open-meteo request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode open-meteo response: %w", err)
	}
	return nil
}
