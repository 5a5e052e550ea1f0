package swath

import "math"

// Point is a (longitude, latitude) coordinate in degrees.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Valid reports whether both coordinates are finite numbers.
func (p Point) Valid() bool {
	return !math.IsNaN(p.Lon) && !math.IsNaN(p.Lat) && !math.IsInf(p.Lon, 0) && !math.IsInf(p.Lat, 0)
}

// Polygon is an implicitly closed ring of vertices; the last vertex connects back to the first.
type Polygon []Point

// Empty reports whether the polygon has no vertices.
func (p Polygon) Empty() bool { return len(p) == 0 }

// SignedArea returns the shoelace area of the ring in square degrees.
// Counterclockwise rings are positive.
func (p Polygon) SignedArea() float64 {
	area, _ := p.shoelace()
	return area
}

// shoelace returns the signed area and the sum of the magnitudes of its terms,
// which bounds the rounding error of the area.
func (p Polygon) shoelace() (area, magnitude float64) {
	n := len(p)
	if n < 3 {
		return 0, 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		a, b := p[i], p[(i+1)%n]
		t := a.Lon*b.Lat - b.Lon*a.Lat
		sum += t
		magnitude += math.Abs(t)
	}
	return sum / 2, magnitude / 2
}

// degenerate reports whether the ring encloses no area, such as a single
// scanline traced out and back.
func (p Polygon) degenerate() bool {
	area, magnitude := p.shoelace()
	return math.Abs(area) <= degenerateTolerance*magnitude
}

const degenerateTolerance = 1e-12

// Ring returns the vertices as [lon, lat] pairs with the first vertex repeated
// at the end, the layout GeoJSON polygons use.
func (p Polygon) Ring() [][]float64 {
	if len(p) == 0 {
		return nil
	}
	ring := make([][]float64, 0, len(p)+1)
	for _, v := range p {
		ring = append(ring, []float64{v.Lon, v.Lat})
	}
	return append(ring, []float64{p[0].Lon, p[0].Lat})
}

// Contains reports whether pt lies inside poly or on its boundary.
//
// Interior points are decided by even-odd ray casting. Points exactly on an
// edge or vertex count as contained. A zero-area polygon (fewer than three
// vertices, or all vertices collinear) contains only its own vertices.
func Contains(poly Polygon, pt Point) bool {
	n := len(poly)
	if n == 0 {
		return false
	}

	if poly.degenerate() {
		for _, v := range poly {
			if v == pt {
				return true
			}
		}
		return false
	}

	for i := 0; i < n; i++ {
		if onSegment(poly[i], poly[(i+1)%n], pt) {
			return true
		}
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := poly[i], poly[j]
		if (pi.Lat > pt.Lat) != (pj.Lat > pt.Lat) {
			x := (pj.Lon-pi.Lon)*(pt.Lat-pi.Lat)/(pj.Lat-pi.Lat) + pi.Lon
			if pt.Lon < x {
				inside = !inside
			}
		}
	}
	return inside
}

// onSegment reports whether p lies exactly on the closed segment ab.
func onSegment(a, b, p Point) bool {
	if cross(a, b, p) != 0 {
		return false
	}
	return p.Lon >= math.Min(a.Lon, b.Lon) && p.Lon <= math.Max(a.Lon, b.Lon) &&
		p.Lat >= math.Min(a.Lat, b.Lat) && p.Lat <= math.Max(a.Lat, b.Lat)
}

// cross returns the z component of (b-a) x (p-a).
func cross(a, b, p Point) float64 {
	return (b.Lon-a.Lon)*(p.Lat-a.Lat) - (b.Lat-a.Lat)*(p.Lon-a.Lon)
}
