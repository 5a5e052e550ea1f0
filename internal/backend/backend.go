// Package backend defines the granule catalog the web surface and the CLI
// search through.
package backend

import (
	"context"
	"errors"
	"time"

	"github.com/rkm/swathpoint/internal/stac"
	"github.com/rkm/swathpoint/internal/swath"
)

var (
	// ErrUnknownProduct is returned for a product ID the catalog does not serve.
	ErrUnknownProduct = errors.New("unknown product")

	// ErrItemNotFound is returned by GetItem when no granule has the ID.
	ErrItemNotFound = errors.New("item not found")
)

// Catalog finds the granules of a product that cover a point or area.
type Catalog interface {
	// Search returns the matching granules as STAC items together with the
	// references a swath.Loader needs to fetch them.
	Search(ctx context.Context, params *SearchParams) (*SearchResult, error)

	// GetItem retrieves a single granule by ID.
	GetItem(ctx context.Context, product, itemID string) (*stac.Item, error)

	// Name returns the catalog name (e.g., "cmr").
	Name() string
}

// SearchParams contains catalog-agnostic search parameters.
type SearchParams struct {
	// Product is the configured product ID.
	Product string

	// Spatial filters. Point wins when both are set.
	Point *swath.Point
	BBox  []float64 // [west, south, east, north]

	// Temporal filters
	Start *time.Time
	End   *time.Time

	// Limit caps the number of granules returned; zero means the catalog default.
	Limit int
}

// SearchResult contains the results of a search query.
type SearchResult struct {
	Items []*stac.Item

	// Refs are sorted ascending by link.
	Refs []swath.GranuleRef

	// TotalCount is the number of matches upstream, which may exceed len(Items).
	TotalCount *int
}
