package cmr

import (
	"fmt"
	"strings"
	"time"

	"github.com/rkm/swathpoint/internal/backend"
	"github.com/rkm/swathpoint/internal/swath"
)

// ErrGranuleNotFound is returned when a granule UR matches nothing.
// It matches backend.ErrItemNotFound.
var ErrGranuleNotFound = fmt.Errorf("granule %w", backend.ErrItemNotFound)

// UMMSearchResponse represents a CMR UMM-G search response.
type UMMSearchResponse struct {
	Hits  int             `json:"hits"`
	Took  int             `json:"took"`
	Items []UMMResultItem `json:"items"`
}

// UMMResultItem wraps a UMM granule with metadata.
type UMMResultItem struct {
	Meta UMMMeta    `json:"meta"`
	UMM  UMMGranule `json:"umm"`
}

// UMMMeta contains metadata about a CMR result item.
type UMMMeta struct {
	ConceptID  string `json:"concept-id"`
	RevisionID int    `json:"revision-id"`
	NativeID   string `json:"native-id"`
	ProviderID string `json:"provider-id"`
}

// UMMGranule represents a UMM-G (Unified Metadata Model for Granules) record.
type UMMGranule struct {
	GranuleUR           string              `json:"GranuleUR"`
	CollectionReference CollectionReference `json:"CollectionReference"`
	RelatedUrls         []RelatedURL        `json:"RelatedUrls,omitempty"`
	DataGranule         *DataGranule        `json:"DataGranule,omitempty"`
	TemporalExtent      *TemporalExtent     `json:"TemporalExtent,omitempty"`
	SpatialExtent       *SpatialExtent      `json:"SpatialExtent,omitempty"`
	Platforms           []Platform          `json:"Platforms,omitempty"`
}

// CollectionReference identifies the parent collection.
type CollectionReference struct {
	ShortName string `json:"ShortName"`
	Version   string `json:"Version"`
}

// RelatedURL represents a URL related to the granule.
type RelatedURL struct {
	URL         string `json:"URL"`
	Type        string `json:"Type"` // e.g., "GET DATA", "GET RELATED VISUALIZATION"
	Subtype     string `json:"Subtype,omitempty"`
	Description string `json:"Description,omitempty"`
	MimeType    string `json:"MimeType,omitempty"`
}

// DataGranule contains data granule information.
type DataGranule struct {
	DayNightFlag       string `json:"DayNightFlag,omitempty"`
	ProductionDateTime string `json:"ProductionDateTime,omitempty"`
}

// TemporalExtent contains temporal information.
type TemporalExtent struct {
	RangeDateTime  *RangeDateTime `json:"RangeDateTime,omitempty"`
	SingleDateTime string         `json:"SingleDateTime,omitempty"`
}

// RangeDateTime represents a time range.
type RangeDateTime struct {
	BeginningDateTime string `json:"BeginningDateTime"`
	EndingDateTime    string `json:"EndingDateTime"`
}

// SpatialExtent contains spatial information.
type SpatialExtent struct {
	HorizontalSpatialDomain *HorizontalSpatialDomain `json:"HorizontalSpatialDomain,omitempty"`
}

// HorizontalSpatialDomain contains horizontal spatial domain information.
type HorizontalSpatialDomain struct {
	Geometry *Geometry `json:"Geometry,omitempty"`
}

// Geometry contains geometry information.
type Geometry struct {
	GPolygons          []GPolygon          `json:"GPolygons,omitempty"`
	BoundingRectangles []BoundingRectangle `json:"BoundingRectangles,omitempty"`
}

// GPolygon represents a polygon geometry.
type GPolygon struct {
	Boundary Boundary `json:"Boundary"`
}

// Boundary contains boundary points.
type Boundary struct {
	Points []Point `json:"Points"`
}

// Point represents a geographic point.
type Point struct {
	Longitude float64 `json:"Longitude"`
	Latitude  float64 `json:"Latitude"`
}

// BoundingRectangle represents a bounding box.
type BoundingRectangle struct {
	WestBoundingCoordinate  float64 `json:"WestBoundingCoordinate"`
	NorthBoundingCoordinate float64 `json:"NorthBoundingCoordinate"`
	EastBoundingCoordinate  float64 `json:"EastBoundingCoordinate"`
	SouthBoundingCoordinate float64 `json:"SouthBoundingCoordinate"`
}

// Platform contains platform/instrument information.
type Platform struct {
	ShortName   string       `json:"ShortName"`
	Instruments []Instrument `json:"Instruments,omitempty"`
}

// Instrument contains instrument information.
type Instrument struct {
	ShortName string `json:"ShortName"`
}

// GetStartTime returns the start time of the granule.
func (g *UMMGranule) GetStartTime() (time.Time, error) {
	if g.TemporalExtent == nil {
		return time.Time{}, nil
	}
	if r := g.TemporalExtent.RangeDateTime; r != nil && r.BeginningDateTime != "" {
		return parseTime(r.BeginningDateTime)
	}
	if g.TemporalExtent.SingleDateTime != "" {
		return parseTime(g.TemporalExtent.SingleDateTime)
	}
	return time.Time{}, nil
}

// GetEndTime returns the end time of the granule.
func (g *UMMGranule) GetEndTime() (time.Time, error) {
	if g.TemporalExtent == nil {
		return time.Time{}, nil
	}
	if r := g.TemporalExtent.RangeDateTime; r != nil && r.EndingDateTime != "" {
		return parseTime(r.EndingDateTime)
	}
	if g.TemporalExtent.SingleDateTime != "" {
		return parseTime(g.TemporalExtent.SingleDateTime)
	}
	return time.Time{}, nil
}

// GetDataURL returns the primary data download URL. Granules that carry no
// "GET DATA" link fall back to their first related URL.
func (g *UMMGranule) GetDataURL() string {
	for _, u := range g.RelatedUrls {
		if u.Type == "GET DATA" && strings.HasPrefix(u.URL, "http") {
			return u.URL
		}
	}
	if len(g.RelatedUrls) > 0 {
		return g.RelatedUrls[0].URL
	}
	return ""
}

// GetBrowseURL returns the browse/thumbnail URL.
func (g *UMMGranule) GetBrowseURL() string {
	for _, u := range g.RelatedUrls {
		if u.Type == "GET RELATED VISUALIZATION" {
			return u.URL
		}
	}
	return ""
}

// Ring returns the granule footprint as an open lon/lat ring, from its
// first GPolygon or else its first bounding rectangle.
func (g *UMMGranule) Ring() [][]float64 {
	if g.SpatialExtent == nil || g.SpatialExtent.HorizontalSpatialDomain == nil {
		return nil
	}
	geom := g.SpatialExtent.HorizontalSpatialDomain.Geometry
	if geom == nil {
		return nil
	}

	if len(geom.GPolygons) > 0 {
		pts := geom.GPolygons[0].Boundary.Points
		ring := make([][]float64, len(pts))
		for i, pt := range pts {
			ring[i] = []float64{pt.Longitude, pt.Latitude}
		}
		return ring
	}

	if len(geom.BoundingRectangles) > 0 {
		r := geom.BoundingRectangles[0]
		return [][]float64{
			{r.WestBoundingCoordinate, r.SouthBoundingCoordinate},
			{r.EastBoundingCoordinate, r.SouthBoundingCoordinate},
			{r.EastBoundingCoordinate, r.NorthBoundingCoordinate},
			{r.WestBoundingCoordinate, r.NorthBoundingCoordinate},
		}
	}
	return nil
}

// GranuleRefs returns one reference per granule with a data link, sorted
// ascending by link. Granules are processed in this order.
func GranuleRefs(granules []UMMGranule) []swath.GranuleRef {
	refs := make([]swath.GranuleRef, 0, len(granules))
	for i := range granules {
		link := granules[i].GetDataURL()
		if link == "" {
			continue
		}
		refs = append(refs, swath.GranuleRef{ID: granules[i].GranuleUR, Link: link})
	}
	swath.SortRefs(refs)
	return refs
}

// GranuleLinks returns the sorted data links of granules.
func GranuleLinks(granules []UMMGranule) []string {
	refs := GranuleRefs(granules)
	links := make([]string, len(refs))
	for i, r := range refs {
		links[i] = r.Link
	}
	return links
}

// parseTime parses a CMR timestamp string.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05.000Z",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time: %s", s)
}
