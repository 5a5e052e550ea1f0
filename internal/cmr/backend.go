package cmr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rkm/swathpoint/internal/backend"
	"github.com/rkm/swathpoint/internal/config"
	"github.com/rkm/swathpoint/internal/stac"
)

// Catalog implements backend.Catalog on top of CMR granule search.
type Catalog struct {
	client      *Client
	products    *config.ProductRegistry
	baseURL     string
	maxGranules int
	logger      *slog.Logger
}

// NewCatalog creates a CMR catalog serving the products in the registry.
// maxGranules caps a search when the request sets no limit.
func NewCatalog(client *Client, products *config.ProductRegistry, baseURL string, maxGranules int, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		client:      client,
		products:    products,
		baseURL:     baseURL,
		maxGranules: maxGranules,
		logger:      logger,
	}
}

// Name returns the catalog name.
func (c *Catalog) Name() string {
	return "cmr"
}

// Search finds the product's granules covering the requested point or area.
func (c *Catalog) Search(ctx context.Context, params *backend.SearchParams) (*backend.SearchResult, error) {
	product := c.products.Get(params.Product)
	if product == nil {
		return nil, fmt.Errorf("%w: %q", backend.ErrUnknownProduct, params.Product)
	}

	cmrParams := toCMRParams(product, params)
	limit := params.Limit
	if limit <= 0 {
		limit = c.maxGranules
	}

	granules, hits, err := c.client.SearchAll(ctx, cmrParams, limit)
	if err != nil {
		return nil, fmt.Errorf("CMR search failed: %w", err)
	}

	items := make([]*stac.Item, 0, len(granules))
	for i := range granules {
		item, err := TranslateGranuleToItem(&granules[i], product.ID, c.baseURL)
		if err != nil {
			c.logger.WarnContext(ctx, "failed to translate CMR granule",
				slog.String("granule_ur", granules[i].GranuleUR),
				slog.String("error", err.Error()),
			)
			continue
		}
		items = append(items, item)
	}

	c.logger.InfoContext(ctx, "granule search completed",
		slog.String("product", product.ID),
		slog.Int("hits", hits),
		slog.Int("items", len(items)),
	)

	return &backend.SearchResult{
		Items:      items,
		Refs:       GranuleRefs(granules),
		TotalCount: &hits,
	}, nil
}

// GetItem retrieves a single granule from CMR.
func (c *Catalog) GetItem(ctx context.Context, product, itemID string) (*stac.Item, error) {
	p := c.products.Get(product)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", backend.ErrUnknownProduct, product)
	}

	granule, err := c.client.GetGranule(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch granule: %w", err)
	}

	return TranslateGranuleToItem(granule, p.ID, c.baseURL)
}

// toCMRParams converts catalog-agnostic params to a CMR query for product.
func toCMRParams(product *config.ProductConfig, params *backend.SearchParams) *SearchParams {
	cmrParams := &SearchParams{
		ShortName: []string{product.ShortName},
		Version:   product.Version,
		Provider:  product.Provider,
	}

	switch {
	case params.Point != nil:
		cmrParams.Point = FormatPoint(params.Point.Lon, params.Point.Lat)
	case len(params.BBox) >= 4:
		cmrParams.BoundingBox = FormatBBox(params.BBox[:4])
	}

	if params.Start != nil || params.End != nil {
		cmrParams.Temporal = stac.FormatInterval(params.Start, params.End)
	}

	if params.Limit > 0 && params.Limit < MaxPageSize {
		cmrParams.PageSize = params.Limit
	}

	return cmrParams
}
