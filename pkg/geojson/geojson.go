// Package geojson provides the GeoJSON geometry and feature types used to
// publish granule footprints, swath boundaries and points of interest.
package geojson

import (
	"encoding/json"
	"fmt"
	"math"
)

// Geometry represents a GeoJSON geometry object.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// NewPoint creates a Point geometry.
func NewPoint(lon, lat float64) (*Geometry, error) {
	return newGeometry("Point", []float64{lon, lat})
}

// NewPolygon creates a single-ring Polygon geometry from [lon, lat] pairs.
// The ring is closed if its last vertex differs from its first.
func NewPolygon(ring [][]float64) (*Geometry, error) {
	if len(ring) < 3 {
		return nil, fmt.Errorf("polygon ring needs at least 3 positions, got %d", len(ring))
	}
	for i, pos := range ring {
		if len(pos) < 2 {
			return nil, fmt.Errorf("position %d has %d values, expected 2", i, len(pos))
		}
	}

	closed := make([][]float64, len(ring), len(ring)+1)
	copy(closed, ring)
	first, last := ring[0], ring[len(ring)-1]
	if first[0] != last[0] || first[1] != last[1] {
		closed = append(closed, first)
	}
	return newGeometry("Polygon", [][][]float64{closed})
}

// NewPolygonFromBBox creates a polygon geometry from a bounding box.
// bbox should be [west, south, east, north].
func NewPolygonFromBBox(bbox []float64) (*Geometry, error) {
	if len(bbox) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values [west, south, east, north], got %d", len(bbox))
	}

	west, south, east, north := bbox[0], bbox[1], bbox[2], bbox[3]
	return NewPolygon([][]float64{
		{west, south},
		{east, south},
		{east, north},
		{west, north},
	})
}

func newGeometry(typ string, coords any) (*Geometry, error) {
	raw, err := json.Marshal(coords)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s coordinates: %w", typ, err)
	}
	return &Geometry{Type: typ, Coordinates: raw}, nil
}

// Point returns the coordinates as a Point [lon, lat].
// Returns error if geometry is not a Point.
func (g *Geometry) Point() ([]float64, error) {
	if g.Type != "Point" {
		return nil, fmt.Errorf("geometry is not a Point, got %s", g.Type)
	}
	var coords []float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Point coordinates: %w", err)
	}
	if len(coords) < 2 {
		return nil, fmt.Errorf("invalid Point coordinates: expected at least 2 values, got %d", len(coords))
	}
	return coords, nil
}

// Polygon returns the coordinates as a Polygon [][][lon, lat].
// Returns error if geometry is not a Polygon.
func (g *Geometry) Polygon() ([][][]float64, error) {
	if g.Type != "Polygon" {
		return nil, fmt.Errorf("geometry is not a Polygon, got %s", g.Type)
	}
	var coords [][][]float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Polygon coordinates: %w", err)
	}
	return coords, nil
}

// BBox computes the bounding box of the geometry as [west, south, east, north].
func (g *Geometry) BBox() ([]float64, error) {
	return ComputeBBox(g)
}

// ComputeBBox computes the bounding box of a Point or Polygon geometry.
// Returns [west, south, east, north].
func ComputeBBox(g *Geometry) ([]float64, error) {
	if g == nil {
		return nil, fmt.Errorf("geometry is nil")
	}

	switch g.Type {
	case "Point":
		coords, err := g.Point()
		if err != nil {
			return nil, err
		}
		return []float64{coords[0], coords[1], coords[0], coords[1]}, nil

	case "Polygon":
		coords, err := g.Polygon()
		if err != nil {
			return nil, err
		}
		minLon, minLat := math.Inf(1), math.Inf(1)
		maxLon, maxLat := math.Inf(-1), math.Inf(-1)
		for _, ring := range coords {
			for _, point := range ring {
				if len(point) < 2 {
					continue
				}
				minLon = math.Min(minLon, point[0])
				maxLon = math.Max(maxLon, point[0])
				minLat = math.Min(minLat, point[1])
				maxLat = math.Max(maxLat, point[1])
			}
		}
		if math.IsInf(minLon, 0) || math.IsInf(minLat, 0) {
			return nil, fmt.Errorf("failed to compute bounding box: no valid coordinates found")
		}
		return []float64{minLon, minLat, maxLon, maxLat}, nil

	default:
		return nil, fmt.Errorf("unsupported geometry type: %s", g.Type)
	}
}

// Feature is a GeoJSON Feature.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   *Geometry      `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// NewFeature creates a Feature with the given geometry and properties.
func NewFeature(g *Geometry, properties map[string]any) *Feature {
	if properties == nil {
		properties = map[string]any{}
	}
	return &Feature{Type: "Feature", Geometry: g, Properties: properties}
}

// FeatureCollection is a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string     `json:"type"`
	Features []*Feature `json:"features"`
}

// NewFeatureCollection creates a FeatureCollection.
func NewFeatureCollection(features ...*Feature) *FeatureCollection {
	if features == nil {
		features = []*Feature{}
	}
	return &FeatureCollection{Type: "FeatureCollection", Features: features}
}

// Add appends a feature to the collection.
func (fc *FeatureCollection) Add(f *Feature) {
	fc.Features = append(fc.Features, f)
}
