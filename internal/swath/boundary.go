package swath

// Boundary traces the perimeter of the valid part of a swath.
//
// The first valid scanline forms the right edge and the last valid scanline
// the left edge. Every scanline in between contributes its lowest valid pixel
// to the top edge and its highest valid pixel to the bottom edge. The ring is
// assembled as right edge reversed, top, left, bottom reversed, which walks
// the swath counterclockwise.
//
// An all-fill grid yields an empty polygon. A grid with a single valid
// scanline yields a zero-area polygon.
func Boundary(g *Grid) Polygon {
	first, last := -1, -1
	for r := 0; r < g.rows; r++ {
		if _, _, ok := g.validSpan(r); ok {
			if first < 0 {
				first = r
			}
			last = r
		}
	}
	if first < 0 {
		return nil
	}

	right := g.validVertices(first)
	left := g.validVertices(last)

	var top, bottom []Point
	for r := first + 1; r < last; r++ {
		lo, hi, ok := g.validSpan(r)
		if !ok {
			// fully masked scanline inside the swath, nothing to contribute
			continue
		}
		top = append(top, g.PointAt(r, lo))
		bottom = append(bottom, g.PointAt(r, hi))
	}

	poly := make(Polygon, 0, len(right)+len(top)+len(left)+len(bottom))
	for i := len(right) - 1; i >= 0; i-- {
		poly = append(poly, right[i])
	}
	poly = append(poly, top...)
	poly = append(poly, left...)
	for i := len(bottom) - 1; i >= 0; i-- {
		poly = append(poly, bottom[i])
	}
	return poly
}

// validVertices returns the geolocated vertices of a scanline in increasing pixel order.
func (g *Grid) validVertices(row int) []Point {
	var pts []Point
	for c := 0; c < g.cols; c++ {
		if g.GeoValid(row, c) {
			pts = append(pts, g.PointAt(row, c))
		}
	}
	return pts
}

// validSpan returns the lowest and highest geolocated pixel of a scanline.
func (g *Grid) validSpan(row int) (lo, hi int, ok bool) {
	lo, hi = -1, -1
	for c := 0; c < g.cols; c++ {
		if !g.GeoValid(row, c) {
			continue
		}
		if lo < 0 {
			lo = c
		}
		hi = c
	}
	return lo, hi, lo >= 0
}
