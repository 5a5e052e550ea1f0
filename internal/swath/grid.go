// Package swath locates a point of interest inside curvilinear satellite swath
// grids and estimates a measured quantity there.
//
// A swath granule is a [scanline][pixel] grid of geolocated samples. The
// package traces the swath perimeter, finds the quadrilateral cell that
// contains a point, interpolates the cell's corner values at that point and
// resolves the cell's observation time. Nothing here performs I/O; granules
// arrive already parsed.
package swath

import (
	"fmt"
)

// GeoFillOverride is the magnitude TEMPO L2 files actually store in
// out-of-swath latitude/longitude pixels. The declared _FillValue of those
// variables (-1.2676506002282294e30) never appears in the data.
const GeoFillOverride = 9.969209968386869e36

// FillValues holds the fill sentinel of each array of a granule. Quality is
// nil when the quality flag variable declares no fill, in which case every
// flag is a real flag and only the quality filter can reject it.
type FillValues struct {
	Geo     float64  `json:"geo"`
	Value   float64  `json:"value"`
	Quality *float64 `json:"quality,omitempty"`
}

// WithQualityFill returns a copy whose quality flags equal to v are treated as fill.
func (f FillValues) WithQualityFill(v float64) FillValues {
	f.Quality = &v
	return f
}

// IsQualityFill reports whether flag is the declared quality fill.
func (f FillValues) IsQualityFill(flag float64) bool {
	return f.Quality != nil && flag == *f.Quality
}

// WithGeoOverride returns a copy with the geolocation fill replaced by GeoFillOverride.
func (f FillValues) WithGeoOverride() FillValues {
	f.Geo = GeoFillOverride
	return f
}

// Grid is one granule's set of co-located 2D arrays.
// All arrays are indexed [scanline][pixel] and share one shape.
type Grid struct {
	Lat     [][]float64
	Lon     [][]float64
	Value   [][]float64
	Quality [][]float64 // optional, nil when the product carries no flag
	Fill    FillValues

	rows int
	cols int
}

// NewGrid builds a Grid and verifies that every array has the same
// rectangular shape. quality may be nil.
func NewGrid(lat, lon, value, quality [][]float64, fill FillValues) (*Grid, error) {
	rows, cols, err := shapeOf("latitude", lat)
	if err != nil {
		return nil, err
	}
	if rows == 0 || cols == 0 {
		return nil, ErrEmptyGrid
	}

	arrays := []struct {
		name string
		data [][]float64
	}{
		{"longitude", lon},
		{"value", value},
	}
	if quality != nil {
		arrays = append(arrays, struct {
			name string
			data [][]float64
		}{"quality", quality})
	}

	for _, a := range arrays {
		r, c, err := shapeOf(a.name, a.data)
		if err != nil {
			return nil, err
		}
		if r != rows || c != cols {
			return nil, fmt.Errorf("%w: %s is %dx%d, latitude is %dx%d", ErrShapeMismatch, a.name, r, c, rows, cols)
		}
	}

	return &Grid{
		Lat:     lat,
		Lon:     lon,
		Value:   value,
		Quality: quality,
		Fill:    fill,
		rows:    rows,
		cols:    cols,
	}, nil
}

// shapeOf returns the dimensions of a rectangular 2D array.
func shapeOf(name string, a [][]float64) (int, int, error) {
	if len(a) == 0 {
		return 0, 0, nil
	}
	cols := len(a[0])
	for i, row := range a {
		if len(row) != cols {
			return 0, 0, fmt.Errorf("%w: %s row %d has %d pixels, row 0 has %d", ErrShapeMismatch, name, i, len(row), cols)
		}
	}
	return len(a), cols, nil
}

// Scanlines returns the number of rows of the grid.
func (g *Grid) Scanlines() int { return g.rows }

// Pixels returns the number of columns of the grid.
func (g *Grid) Pixels() int { return g.cols }

// GeoValid reports whether both coordinates of a grid vertex differ from the geolocation fill.
func (g *Grid) GeoValid(row, col int) bool {
	return g.Lat[row][col] != g.Fill.Geo && g.Lon[row][col] != g.Fill.Geo
}

// PointAt returns the coordinate of a grid vertex.
func (g *Grid) PointAt(row, col int) Point {
	return Point{Lon: g.Lon[row][col], Lat: g.Lat[row][col]}
}
