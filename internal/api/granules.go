package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rkm/swathpoint/internal/backend"
	intstac "github.com/rkm/swathpoint/internal/stac"
	"github.com/rkm/swathpoint/internal/swath"
)

// Granules lists the catalog granules of a product that cover a point or box.
// GET /granules?product=&lat=&lon=&bbox=&datetime=&start=&end=&limit=
func (h *Handlers) Granules(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		WriteUnavailable(w, "granule catalog is not configured")
		return
	}

	q := r.URL.Query()
	params, err := h.granuleSearchParams(q)
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}

	ctx := r.Context()
	result, err := h.catalog.Search(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "granule search failed",
			slog.String("request_id", GetRequestID(ctx)),
			slog.String("product", params.Product),
			slog.String("catalog", h.catalog.Name()),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, backend.ErrUnknownProduct) {
			WriteNotFound(w, fmt.Sprintf("product %q not found", params.Product))
			return
		}
		WriteUpstreamError(w, "upstream search service error")
		return
	}

	collection := intstac.NewItemCollection(result.Items)
	collection.NumberMatched = result.TotalCount
	baseURL := h.cfg.Server.BaseURL
	self := baseURL + "/granules"
	if enc := q.Encode(); enc != "" {
		self += "?" + enc
	}
	collection.AddLink("self", self, "application/geo+json")
	collection.AddLink("root", baseURL+"/", "application/json")

	WriteGeoJSON(w, http.StatusOK, collection)
}

// Granule returns a single granule as a STAC item.
// GET /granules/{granuleId}?product=
func (h *Handlers) Granule(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		WriteUnavailable(w, "granule catalog is not configured")
		return
	}

	id := chi.URLParam(r, "granuleId")
	if id == "" {
		WriteBadRequest(w, "granule ID is required")
		return
	}
	product := h.productID(r.URL.Query().Get("product"))

	ctx := r.Context()
	item, err := h.catalog.GetItem(ctx, product, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to fetch granule",
			slog.String("request_id", GetRequestID(ctx)),
			slog.String("product", product),
			slog.String("granule_id", id),
			slog.String("error", err.Error()),
		)
		switch {
		case errors.Is(err, backend.ErrUnknownProduct):
			WriteNotFound(w, fmt.Sprintf("product %q not found", product))
		case errors.Is(err, backend.ErrItemNotFound):
			WriteNotFound(w, fmt.Sprintf("granule %q not found", id))
		default:
			WriteUpstreamError(w, "upstream service error")
		}
		return
	}

	WriteGeoJSON(w, http.StatusOK, item)
}

func (h *Handlers) productID(id string) string {
	if id == "" {
		return h.cfg.Query.Product
	}
	return id
}

func (h *Handlers) granuleSearchParams(q url.Values) (*backend.SearchParams, error) {
	params := &backend.SearchParams{
		Product: h.productID(q.Get("product")),
		Limit:   h.cfg.Query.MaxGranules,
	}

	switch {
	case q.Get("lat") != "" || q.Get("lon") != "":
		lat, err := strconv.ParseFloat(q.Get("lat"), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid lat: %q", q.Get("lat"))
		}
		lon, err := strconv.ParseFloat(q.Get("lon"), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid lon: %q", q.Get("lon"))
		}
		c, err := h.bounds.ValidCoords(lon, lat)
		if err != nil {
			return nil, err
		}
		params.Point = &swath.Point{Lon: c.Lon, Lat: c.Lat}
	case q.Get("bbox") != "":
		bbox, err := parseBBox(q.Get("bbox"))
		if err != nil {
			return nil, err
		}
		params.BBox = bbox
	default:
		return nil, errors.New("lat and lon or bbox is required")
	}

	if dt := q.Get("datetime"); dt != "" {
		start, end, err := intstac.ParseDatetimeInterval(dt)
		if err != nil {
			return nil, err
		}
		params.Start, params.End = start, end
	} else if q.Get("start") != "" {
		start, end, err := intstac.DayWindow(q.Get("start"), q.Get("end"), h.clock.Now())
		if err != nil {
			return nil, err
		}
		params.Start, params.End = &start, &end
	}

	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 {
			return nil, fmt.Errorf("invalid limit: %q", s)
		}
		params.Limit = min(limit, h.cfg.Query.MaxGranules)
	}

	return params, nil
}

func parseBBox(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values, got %d", len(parts))
	}
	bbox := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox value %q", p)
		}
		bbox[i] = v
	}
	if bbox[0] > bbox[2] || bbox[1] > bbox[3] {
		return nil, fmt.Errorf("bbox must be [west, south, east, north]")
	}
	return bbox, nil
}
