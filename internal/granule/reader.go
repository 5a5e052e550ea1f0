package granule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rkm/swathpoint/internal/swath"
)

// Reader parses a granule file.
type Reader interface {
	Read(ctx context.Context, path string) (*swath.Granule, error)
}

// Document is the JSON form of a pre-extracted granule. Arrays are indexed
// [scanline][pixel]; Time holds one offset in seconds per scanline.
//
// Variables holds product arrays keyed by their path in the source file,
// e.g. "product/uv_aerosol_index", so one document can serve several
// products. Select copies the chosen ones into Value and QualityFlag.
type Document struct {
	Name            string                 `json:"name"`
	Latitude        [][]float64            `json:"latitude"`
	Longitude       [][]float64            `json:"longitude"`
	Value           [][]float64            `json:"value,omitempty"`
	QualityFlag     [][]float64            `json:"quality_flag,omitempty"`
	Variables       map[string][][]float64 `json:"variables,omitempty"`
	Time            []float64              `json:"time"`
	Fill            swath.FillValues       `json:"fill"`
	GeoFillOverride bool                   `json:"geo_fill_override,omitempty"`
}

// ErrMissingVariable is returned when a document lacks a requested variable.
var ErrMissingVariable = errors.New("granule variable not found")

// Select sets Value and QualityFlag from the named Variables. An empty name
// keeps the document's own array. A named value variable is required; a named
// quality variable that is absent leaves the grid without flags.
func (d *Document) Select(value, quality string) error {
	if value != "" {
		v, ok := d.Variables[value]
		switch {
		case ok:
			d.Value = v
		case d.Value == nil:
			return fmt.Errorf("%w: %s", ErrMissingVariable, value)
		}
	}
	if quality != "" {
		if q, ok := d.Variables[quality]; ok {
			d.QualityFlag = q
		}
	}
	return nil
}

// Granule validates the document and converts it. name is used when the
// document carries none.
func (d *Document) Granule(name string) (*swath.Granule, error) {
	if d.Name != "" {
		name = d.Name
	}
	base, err := ParseTimestamp(name)
	if err != nil {
		return nil, err
	}

	fill := d.Fill
	if d.GeoFillOverride {
		fill = fill.WithGeoOverride()
	}

	grid, err := swath.NewGrid(d.Latitude, d.Longitude, d.Value, d.QualityFlag, fill)
	if err != nil {
		return nil, fmt.Errorf("granule %s: %w", name, err)
	}

	g := &swath.Granule{ID: name, Grid: grid, Times: d.Time, Base: base}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("granule %s: %w", name, err)
	}
	return g, nil
}

// JSONReader reads granules stored as Document JSON files.
type JSONReader struct {
	// GeoFillOverride forces the TEMPO geolocation fill on every document.
	GeoFillOverride bool

	// ValueVariable and QualityVariable pick arrays out of Document.Variables.
	ValueVariable   string
	QualityVariable string
}

// Read implements Reader.
func (r JSONReader) Read(ctx context.Context, path string) (*swath.Granule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var doc Document
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if r.GeoFillOverride {
		doc.GeoFillOverride = true
	}
	if err := doc.Select(r.ValueVariable, r.QualityVariable); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc.Granule(NameFromLink(path))
}
