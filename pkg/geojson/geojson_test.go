package geojson

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNewPoint(t *testing.T) {
	g, err := NewPoint(-122.4, 37.8)
	if err != nil {
		t.Fatalf("NewPoint() error: %v", err)
	}

	result, err := g.Point()
	if err != nil {
		t.Fatalf("Point() error: %v", err)
	}

	if len(result) != 2 || result[0] != -122.4 || result[1] != 37.8 {
		t.Errorf("Point() = %v, want [-122.4, 37.8]", result)
	}
}

func TestPoint_WrongType(t *testing.T) {
	g, err := NewPolygonFromBBox([]float64{0, 0, 1, 1})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := g.Point(); err == nil {
		t.Error("Point() should return error for non-Point geometry")
	}
}

func TestNewPolygon(t *testing.T) {
	tests := []struct {
		name    string
		ring    [][]float64
		want    [][][]float64
		wantErr bool
	}{
		{
			name: "open ring is closed",
			ring: [][]float64{{0, 0}, {1, 0}, {1, 1}},
			want: [][][]float64{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
		},
		{
			name: "closed ring is unchanged",
			ring: [][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 0}},
			want: [][][]float64{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
		},
		{
			name:    "too few positions",
			ring:    [][]float64{{0, 0}, {1, 0}},
			wantErr: true,
		},
		{
			name:    "short position",
			ring:    [][]float64{{0, 0}, {1}, {1, 1}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewPolygon(tt.ring)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewPolygon() error: %v", err)
			}

			got, err := g.Polygon()
			if err != nil {
				t.Fatalf("Polygon() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Polygon() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewPolygon_DoesNotAliasInput(t *testing.T) {
	ring := [][]float64{{0, 0}, {1, 0}, {1, 1}}
	if _, err := NewPolygon(ring); err != nil {
		t.Fatal(err)
	}
	if len(ring) != 3 {
		t.Errorf("input ring modified: %v", ring)
	}
}

func TestNewPolygonFromBBox(t *testing.T) {
	g, err := NewPolygonFromBBox([]float64{-100, 30, -90, 40})
	if err != nil {
		t.Fatalf("NewPolygonFromBBox() error: %v", err)
	}

	coords, err := g.Polygon()
	if err != nil {
		t.Fatalf("Polygon() error: %v", err)
	}

	want := [][]float64{{-100, 30}, {-90, 30}, {-90, 40}, {-100, 40}, {-100, 30}}
	if !reflect.DeepEqual(coords[0], want) {
		t.Errorf("ring = %v, want %v", coords[0], want)
	}

	if _, err := NewPolygonFromBBox([]float64{1, 2, 3}); err == nil {
		t.Error("expected error for 3-value bbox")
	}
}

func TestComputeBBox(t *testing.T) {
	point, _ := NewPoint(-74.1, 40.7)
	poly, _ := NewPolygon([][]float64{{-101, 39}, {-100, 40.5}, {-99.5, 38.25}})

	tests := []struct {
		name    string
		g       *Geometry
		want    []float64
		wantErr bool
	}{
		{name: "point", g: point, want: []float64{-74.1, 40.7, -74.1, 40.7}},
		{name: "polygon", g: poly, want: []float64{-101, 38.25, -99.5, 40.5}},
		{name: "nil", g: nil, wantErr: true},
		{name: "unsupported", g: &Geometry{Type: "LineString", Coordinates: json.RawMessage(`[[0,0],[1,1]]`)}, wantErr: true},
		{name: "empty polygon", g: &Geometry{Type: "Polygon", Coordinates: json.RawMessage(`[[]]`)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeBBox(tt.g)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ComputeBBox() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ComputeBBox() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFeatureCollection_JSON(t *testing.T) {
	pt, _ := NewPoint(1, 2)
	fc := NewFeatureCollection()
	fc.Add(NewFeature(pt, map[string]any{"site": "A"}))
	fc.Add(NewFeature(pt, nil))

	data, err := json.Marshal(fc)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	want := `{"type":"FeatureCollection","features":[` +
		`{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"site":"A"}},` +
		`{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{}}]}`
	if string(data) != want {
		t.Errorf("Marshal() = %s\nwant %s", data, want)
	}

	empty, _ := json.Marshal(NewFeatureCollection())
	if string(empty) != `{"type":"FeatureCollection","features":[]}` {
		t.Errorf("empty collection = %s", empty)
	}
}
