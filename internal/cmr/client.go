// Package cmr provides a client for NASA's Common Metadata Repository (CMR) API,
// used to discover the satellite granules covering a point of interest.
package cmr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rkm/swathpoint/internal/observability"
)

const (
	// DefaultBaseURL is the default CMR API base URL.
	DefaultBaseURL = "https://cmr.earthdata.nasa.gov/search"

	// DefaultProvider is the CMR provider hosting TEMPO products.
	DefaultProvider = "LARC_CLOUD"

	// DefaultPageSize is the default number of results per page.
	DefaultPageSize = 200

	// MaxPageSize is the maximum page size supported by CMR.
	MaxPageSize = 2000

	// CMRSearchAfterHeader is the header used for cursor-based pagination.
	CMRSearchAfterHeader = "CMR-Search-After"

	service = "cmr"
)

// Client handles communication with the CMR API.
type Client struct {
	baseURL    string
	provider   string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a new CMR API client.
func NewClient(baseURL, provider string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if provider == "" {
		provider = DefaultProvider
	}

	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		provider: provider,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger for the client.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// WithMetrics records upstream request counts and latency on m.
func (c *Client) WithMetrics(m *observability.Metrics) *Client {
	c.metrics = m
	return c
}

// SearchResult contains the results of a CMR search.
type SearchResult struct {
	Granules    []UMMGranule
	Hits        int
	SearchAfter string // cursor for the next page
	TookMs      int
}

// Search performs a granule search against CMR.
func (c *Client) Search(ctx context.Context, params *SearchParams) (result *SearchResult, err error) {
	started := time.Now()
	defer func() { c.observe(started, err) }()

	searchURL := c.baseURL + "/granules.umm_json"

	queryParams := params.ToURLValues()
	if params.Provider != "" {
		queryParams.Set("provider", params.Provider)
	} else {
		queryParams.Set("provider", c.provider)
	}

	c.logger.DebugContext(ctx, "executing CMR search",
		slog.String("url", searchURL),
		slog.String("params", queryParams.Encode()),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL+"?"+queryParams.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.nasa.cmr.umm_results+json")
	req.Header.Set("User-Agent", "swathpoint/1.0")
	if params.SearchAfter != "" {
		req.Header.Set(CMRSearchAfterHeader, params.SearchAfter)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "CMR API request failed",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("CMR API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		c.logger.ErrorContext(ctx, "CMR API returned non-200 status",
			slog.Int("status_code", resp.StatusCode),
			slog.String("response_body", string(body)),
		)
		return nil, fmt.Errorf("CMR API returned status %d: %s", resp.StatusCode, string(body))
	}

	var cmrResp UMMSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&cmrResp); err != nil {
		return nil, fmt.Errorf("failed to decode CMR response: %w", err)
	}

	granules := make([]UMMGranule, 0, len(cmrResp.Items))
	for _, item := range cmrResp.Items {
		granules = append(granules, item.UMM)
	}

	searchAfter := resp.Header.Get(CMRSearchAfterHeader)
	if len(granules) == 0 {
		searchAfter = ""
	}

	c.logger.DebugContext(ctx, "CMR search completed",
		slog.Int("hits", cmrResp.Hits),
		slog.Int("returned", len(granules)),
		slog.Bool("has_next", searchAfter != ""),
	)

	return &SearchResult{
		Granules:    granules,
		Hits:        cmrResp.Hits,
		SearchAfter: searchAfter,
		TookMs:      cmrResp.Took,
	}, nil
}

// SearchAll follows CMR-Search-After pages until the result set is exhausted
// or limit granules have been collected. A limit of zero means no cap.
func (c *Client) SearchAll(ctx context.Context, params *SearchParams, limit int) ([]UMMGranule, int, error) {
	page := *params
	var (
		all  []UMMGranule
		hits int
	)
	for {
		result, err := c.Search(ctx, &page)
		if err != nil {
			return nil, 0, err
		}
		hits = result.Hits
		all = append(all, result.Granules...)

		if limit > 0 && len(all) >= limit {
			c.logger.WarnContext(ctx, "granule search truncated",
				slog.Int("hits", hits),
				slog.Int("limit", limit),
			)
			return all[:limit], hits, nil
		}
		if result.SearchAfter == "" || len(all) >= hits {
			return all, hits, nil
		}
		page.SearchAfter = result.SearchAfter
	}
}

// GetGranule retrieves a single granule by its granule UR (unique reference).
func (c *Client) GetGranule(ctx context.Context, granuleUR string) (*UMMGranule, error) {
	c.logger.DebugContext(ctx, "fetching granule",
		slog.String("granule_ur", granuleUR),
	)

	result, err := c.Search(ctx, &SearchParams{
		GranuleUR: []string{granuleUR},
		PageSize:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search for granule: %w", err)
	}

	if len(result.Granules) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrGranuleNotFound, granuleUR)
	}

	return &result.Granules[0], nil
}

func (c *Client) observe(started time.Time, err error) {
	if c.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.metrics.UpstreamRequests.WithLabelValues(service, outcome).Inc()
	c.metrics.UpstreamDuration.WithLabelValues(service).Observe(time.Since(started).Seconds())
}

// SearchParams represents parameters for CMR granule searches.
type SearchParams struct {
	// Collection identification
	ShortName []string
	Version   string
	Provider  string // overrides the client's provider when set

	// Granule identification
	GranuleUR []string

	// Spatial filters
	BoundingBox string // west,south,east,north
	Point       string // lon,lat

	// Temporal filter, start,end in ISO 8601
	Temporal string

	// Pagination
	PageSize    int
	SearchAfter string

	// SortKey defaults to start_date ascending, the order granules are processed in.
	SortKey string
}

// ToURLValues converts SearchParams to URL query parameters.
func (p *SearchParams) ToURLValues() url.Values {
	values := url.Values{}

	for _, sn := range p.ShortName {
		values.Add("short_name", sn)
	}
	if p.Version != "" {
		values.Set("version", p.Version)
	}
	for _, gur := range p.GranuleUR {
		values.Add("granule_ur", gur)
	}

	if p.BoundingBox != "" {
		values.Set("bounding_box", p.BoundingBox)
	}
	if p.Point != "" {
		values.Set("point", p.Point)
	}
	if p.Temporal != "" {
		values.Set("temporal", p.Temporal)
	}

	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	values.Set("page_size", strconv.Itoa(pageSize))

	if p.SortKey != "" {
		values.Set("sort_key", p.SortKey)
	} else {
		values.Set("sort_key", "start_date")
	}

	return values
}

// FormatPoint renders a lon,lat pair the way CMR expects it.
func FormatPoint(lon, lat float64) string {
	return strconv.FormatFloat(lon, 'f', -1, 64) + "," + strconv.FormatFloat(lat, 'f', -1, 64)
}

// FormatBBox renders west,south,east,north.
func FormatBBox(bbox []float64) string {
	parts := make([]string, len(bbox))
	for i, v := range bbox {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}
