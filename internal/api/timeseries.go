package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rkm/swathpoint/internal/backend"
	"github.com/rkm/swathpoint/internal/config"
	"github.com/rkm/swathpoint/internal/granule"
	"github.com/rkm/swathpoint/internal/observability"
	"github.com/rkm/swathpoint/internal/report"
	intstac "github.com/rkm/swathpoint/internal/stac"
	"github.com/rkm/swathpoint/internal/swath"
	"github.com/rkm/swathpoint/pkg/geojson"
)

// Granule sources for a time series.
const (
	SourceLocal   = "local"
	SourceCatalog = "catalog"
)

const defaultSite = "POI"

// TimeseriesRequest is the body of POST /timeseries. The chart and report
// endpoints take the same fields as query parameters.
type TimeseriesRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Site      string   `json:"site"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Product   string   `json:"product"`

	// Source is "local" (the granule directory) or "catalog" (CMR search).
	Source string `json:"source"`

	// Granules names granule documents relative to the granule directory.
	// It overrides Source.
	Granules []string `json:"granules"`

	// Footprints adds each granule's swath boundary to the response.
	Footprints bool `json:"footprints"`
}

// TimeseriesResponse is the body returned by POST /timeseries.
type TimeseriesResponse struct {
	Product  string    `json:"product"`
	Label    string    `json:"label"`
	End      time.Time `json:"end"`
	Granules int       `json:"granules"`
	*swath.Series
	Footprints *geojson.FeatureCollection `json:"footprints,omitempty"`
}

// timeseriesQuery is a validated TimeseriesRequest.
type timeseriesQuery struct {
	product    *config.ProductConfig
	query      swath.Query
	end        time.Time
	source     string
	granules   []string
	footprints bool
}

// errBadRequest marks errors caused by the client's input.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// Timeseries extracts a point time series from the granules of a window.
// POST /timeseries
func (h *Handlers) Timeseries(w http.ResponseWriter, r *http.Request) {
	var req TimeseriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	tq, series, refs, fc, ok := h.serveTimeseries(w, r, req)
	if !ok {
		return
	}

	WriteJSON(w, http.StatusOK, TimeseriesResponse{
		Product:    tq.product.ID,
		Label:      tq.product.ValueLabel,
		End:        tq.end,
		Granules:   refs,
		Series:     series,
		Footprints: fc,
	})
}

// TimeseriesChart renders the time series as an interactive HTML chart.
// GET /timeseries/chart
func (h *Handlers) TimeseriesChart(w http.ResponseWriter, r *http.Request) {
	h.renderTimeseries(w, r, "text/html; charset=utf-8", func(buf *bytes.Buffer, tq *timeseriesQuery, s *swath.Series) error {
		return report.RenderHTML(buf, s, chartOptions(tq))
	})
}

// TimeseriesPNG renders the time series as a PNG scatter plot.
// GET /timeseries/chart.png
func (h *Handlers) TimeseriesPNG(w http.ResponseWriter, r *http.Request) {
	h.renderTimeseries(w, r, "image/png", func(buf *bytes.Buffer, tq *timeseriesQuery, s *swath.Series) error {
		return report.WritePNG(buf, s, chartOptions(tq))
	})
}

// TimeseriesReport returns the time series as a text table download.
// GET /timeseries/report
func (h *Handlers) TimeseriesReport(w http.ResponseWriter, r *http.Request) {
	h.renderTimeseries(w, r, "text/plain; charset=utf-8", func(buf *bytes.Buffer, tq *timeseriesQuery, s *swath.Series) error {
		name := report.FileName(tq.product.ValueLabel, tq.query.Start, tq.end, s.Site, s.POI)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		return report.WriteText(buf, tq.product.ValueLabel, s)
	})
}

type renderFunc func(buf *bytes.Buffer, tq *timeseriesQuery, s *swath.Series) error

func (h *Handlers) renderTimeseries(w http.ResponseWriter, r *http.Request, mediaType string, render renderFunc) {
	req, err := timeseriesRequestFromQuery(r.URL.Query())
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}

	tq, series, _, _, ok := h.serveTimeseries(w, r, req)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := render(&buf, tq, series); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render time series",
			slog.String("request_id", GetRequestID(r.Context())),
			slog.String("error", err.Error()),
		)
		WriteInternalError(w, "failed to render time series")
		return
	}

	w.Header().Set("Content-Type", mediaType)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// serveTimeseries validates and runs req, writing the error response and
// returning ok=false on failure.
func (h *Handlers) serveTimeseries(w http.ResponseWriter, r *http.Request, req TimeseriesRequest) (*timeseriesQuery, *swath.Series, int, *geojson.FeatureCollection, bool) {
	tq, err := h.parseTimeseries(req)
	if err != nil {
		h.writeTimeseriesError(r.Context(), w, err)
		return nil, nil, 0, nil, false
	}

	series, refs, fc, err := h.runTimeseries(r.Context(), tq)
	if err != nil {
		h.writeTimeseriesError(r.Context(), w, err)
		return nil, nil, 0, nil, false
	}
	return tq, series, refs, fc, true
}

func (h *Handlers) writeTimeseriesError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, swath.ErrInvalidPoint):
		WriteInvalidParameter(w, err.Error())
	case errors.Is(err, backend.ErrUnknownProduct):
		WriteNotFound(w, err.Error())
	case errors.Is(err, errNoCatalog):
		WriteUnavailable(w, err.Error())
	case errors.Is(err, granule.ErrUnsupportedFormat):
		WriteBadRequest(w, err.Error())
	default:
		h.logger.ErrorContext(ctx, "time series query failed",
			slog.String("request_id", GetRequestID(ctx)),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, errCatalogSearch) {
			WriteUpstreamError(w, "upstream search service error")
			return
		}
		WriteInternalError(w, "time series query failed")
	}
}

var (
	errNoCatalog     = errors.New("granule catalog is not configured")
	errCatalogSearch = errors.New("granule search failed")
)

func timeseriesRequestFromQuery(q url.Values) (TimeseriesRequest, error) {
	req := TimeseriesRequest{
		Site:    q.Get("site"),
		Start:   q.Get("start"),
		End:     q.Get("end"),
		Product: q.Get("product"),
		Source:  q.Get("source"),
	}
	if s := q.Get("lat"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return req, fmt.Errorf("invalid lat: %q", s)
		}
		req.Latitude = &v
	}
	if s := q.Get("lon"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return req, fmt.Errorf("invalid lon: %q", s)
		}
		req.Longitude = &v
	}
	for _, g := range q["granule"] {
		req.Granules = append(req.Granules, strings.Split(g, ",")...)
	}
	return req, nil
}

func (h *Handlers) parseTimeseries(req TimeseriesRequest) (*timeseriesQuery, error) {
	if req.Latitude == nil || req.Longitude == nil {
		return nil, badRequest("latitude and longitude are required")
	}
	coords, err := h.bounds.ValidCoords(*req.Longitude, *req.Latitude)
	if err != nil {
		return nil, badRequest("%v", err)
	}

	productID := h.productID(req.Product)
	product := h.products.Get(productID)
	if product == nil {
		return nil, fmt.Errorf("%w: %q", backend.ErrUnknownProduct, productID)
	}

	start, end, err := intstac.DayWindow(req.Start, req.End, h.clock.Now())
	if err != nil {
		return nil, badRequest("%v", err)
	}

	source := req.Source
	switch source {
	case "":
		source = SourceLocal
	case SourceLocal, SourceCatalog:
	default:
		return nil, badRequest("source must be %q or %q", SourceLocal, SourceCatalog)
	}

	for _, g := range req.Granules {
		if !filepath.IsLocal(g) {
			return nil, badRequest("granule path %q must be relative to the granule directory", g)
		}
	}

	site := req.Site
	if site == "" {
		site = defaultSite
	}

	q := swath.Query{
		POI:        swath.Point{Lon: coords.Lon, Lat: coords.Lat},
		Site:       site,
		Start:      start,
		NoData:     h.cfg.Query.NoData,
		SortByTime: h.cfg.Query.SortByTime,
	}
	if product.MaxQuality != nil {
		q.Quality = swath.MaxQuality(*product.MaxQuality)
	}

	return &timeseriesQuery{
		product:    product,
		query:      q,
		end:        end,
		source:     source,
		granules:   req.Granules,
		footprints: req.Footprints,
	}, nil
}

// granuleRefs lists the granules of a query. Catalog granules the loader
// cannot parse fail the whole request before anything is downloaded.
func (h *Handlers) granuleRefs(ctx context.Context, tq *timeseriesQuery, loader *granule.Loader) ([]swath.GranuleRef, error) {
	dir := h.cfg.Query.GranuleDir
	if len(tq.granules) > 0 {
		paths := make([]string, len(tq.granules))
		for i, g := range tq.granules {
			paths[i] = filepath.Join(dir, g)
		}
		return granule.PathRefs(paths), nil
	}

	if tq.source == SourceCatalog {
		if h.catalog == nil {
			return nil, errNoCatalog
		}
		poi := tq.query.POI
		start := tq.query.Start
		result, err := h.catalog.Search(ctx, &backend.SearchParams{
			Product: tq.product.ID,
			Point:   &poi,
			Start:   &start,
			End:     &tq.end,
			Limit:   h.cfg.Query.MaxGranules,
		})
		if err != nil {
			if errors.Is(err, backend.ErrUnknownProduct) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", errCatalogSearch, err)
		}
		for _, ref := range result.Refs {
			if !loader.Supports(ref.Link) {
				return nil, fmt.Errorf("%w %q: catalog granules of %s cannot be read by this server; use source %q with extracted documents",
					granule.ErrUnsupportedFormat, granule.Format(ref.Link), tq.product.ID, SourceLocal)
			}
		}
		return result.Refs, nil
	}

	refs, err := granule.DirRefs(dir)
	if err != nil {
		return nil, err
	}
	return granule.InWindow(refs, tq.query.Start, tq.end), nil
}

func (h *Handlers) runTimeseries(ctx context.Context, tq *timeseriesQuery) (*swath.Series, int, *geojson.FeatureCollection, error) {
	productLoader := h.loaderFor(tq.product)
	refs, err := h.granuleRefs(ctx, tq, productLoader)
	if err != nil {
		return nil, 0, nil, err
	}

	var loader swath.Loader = productLoader
	var footprints *footprintLoader
	if tq.footprints {
		footprints = &footprintLoader{next: loader, fc: geojson.NewFeatureCollection()}
		loader = footprints
	}

	started := h.clock.Now()
	acc := swath.NewAccumulator().WithObserver(observability.NewGranuleObserver(h.logger, h.metrics))
	series, err := acc.Stream(ctx, refs, loader, tq.query)
	if h.metrics != nil {
		h.metrics.QueryDuration.Observe(h.clock.Since(started).Seconds())
		h.metrics.QueryGranules.Observe(float64(len(refs)))
	}
	if err != nil {
		return nil, 0, nil, err
	}

	h.logger.InfoContext(ctx, "time series extracted",
		slog.String("request_id", GetRequestID(ctx)),
		slog.String("product", tq.product.ID),
		slog.String("site", series.Site),
		slog.Int("granules", len(refs)),
		slog.Int("samples", len(series.Samples)),
	)

	var fc *geojson.FeatureCollection
	if footprints != nil {
		fc = footprints.fc
	}
	return series, len(refs), fc, nil
}

// loaderFor returns the configured loader, reading documents with the
// product's variables and geolocation fill handling.
func (h *Handlers) loaderFor(p *config.ProductConfig) *granule.Loader {
	var l granule.Loader
	if h.loader == nil {
		l = *granule.NewLoader(h.cfg.Query.GranuleDir, nil, false)
	} else {
		l = *h.loader
	}
	if _, ok := l.Reader.(granule.JSONReader); ok {
		l.Reader = productReader(p)
	}
	return &l
}

func productReader(p *config.ProductConfig) granule.JSONReader {
	return granule.JSONReader{
		GeoFillOverride: p.GeoFillOverride,
		ValueVariable:   p.ValueVariable,
		QualityVariable: p.QualityVariable,
	}
}

func chartOptions(tq *timeseriesQuery) report.ChartOptions {
	return report.ChartOptions{
		Label:     tq.product.ValueLabel,
		AxisLabel: tq.product.Plot.Label,
		Start:     tq.query.Start,
		End:       tq.end,
		YMin:      tq.product.Plot.YMin,
		YMax:      tq.product.Plot.YMax,
	}
}

// footprintLoader records the swath boundary of every granule it loads.
type footprintLoader struct {
	next swath.Loader
	fc   *geojson.FeatureCollection
}

func (f *footprintLoader) Load(ctx context.Context, ref swath.GranuleRef) (*swath.Granule, error) {
	g, err := f.next.Load(ctx, ref)
	if err != nil {
		return nil, err
	}

	poly := swath.Boundary(g.Grid)
	if poly.Empty() {
		return g, nil
	}
	geom, err := geojson.NewPolygon(poly.Ring())
	if err != nil {
		return g, nil
	}
	f.fc.Add(geojson.NewFeature(geom, map[string]any{
		"granule_id": g.ID,
		"start":      g.Base.UTC(),
	}))
	return g, nil
}
