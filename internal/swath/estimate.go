package swath

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Method records how an estimate was produced.
type Method string

const (
	MethodNone         Method = "none"
	MethodMean         Method = "mean"
	MethodLinear       Method = "linear"
	MethodMeanFallback Method = "mean-fallback"
)

// Corner is one vertex of a located cell together with its measured value.
type Corner struct {
	Point
	Value float64 `json:"value"`
}

// QualityFilter accepts or rejects a pixel by its quality flag.
// A nil filter accepts every pixel.
type QualityFilter func(flag float64) bool

// MaxQuality returns a filter accepting flags at or below limit.
func MaxQuality(limit float64) QualityFilter {
	return func(flag float64) bool { return flag <= limit }
}

// CellCorners collects the four corners of c. Pixels whose quality flag is
// rejected by accept, or equals a declared quality fill, are reported with the
// value fill so the estimator ignores them.
func (g *Grid) CellCorners(c Cell, accept QualityFilter) [4]Corner {
	var out [4]Corner
	for i, rc := range c.Corners() {
		r, col := rc[0], rc[1]
		v := g.Value[r][col]
		if accept != nil && g.Quality != nil {
			q := g.Quality[r][col]
			if g.Fill.IsQualityFill(q) || !accept(q) {
				v = g.Fill.Value
			}
		}
		out[i] = Corner{Point: g.PointAt(r, col), Value: v}
	}
	return out
}

// Estimate returns the value at poi from a cell's corners, or noData.
// See EstimateMethod for the policy.
func Estimate(corners [4]Corner, fill, noData float64, poi Point) float64 {
	v, _ := EstimateMethod(corners, fill, noData, poi)
	return v
}

// EstimateMethod estimates the value at poi from a cell's corners.
//
// Corners equal to fill are ignored. With no valid corner the result is
// noData. With one to three valid corners the result is their unweighted
// mean. With four, the corners are triangulated and the value is linearly
// interpolated at poi; if that fails or yields noData, the mean of the four is
// used. The returned value is always either noData or a finite number.
func EstimateMethod(corners [4]Corner, fill, noData float64, poi Point) (float64, Method) {
	valid := make([]Corner, 0, 4)
	for _, c := range corners {
		if c.Value != fill {
			valid = append(valid, c)
		}
	}

	if len(valid) == 0 {
		return noData, MethodNone
	}

	values := make([]float64, len(valid))
	for i, c := range valid {
		values[i] = c.Value
	}
	mean := stat.Mean(values, nil)

	if len(valid) < 4 {
		if !usable(mean, noData) {
			return noData, MethodNone
		}
		return mean, MethodMean
	}

	if v, err := interpolateLinear(corners, poi); err == nil && usable(v, noData) {
		return v, MethodLinear
	}
	if usable(mean, noData) {
		return mean, MethodMeanFallback
	}
	return noData, MethodNone
}

func usable(v, noData float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v != noData
}

var errOutsideHull = errors.New("point outside interpolation hull")

// barycentricTolerance admits points a rounding error outside a triangle,
// such as a point on the shared diagonal.
const barycentricTolerance = 1e-9

// interpolateLinear performs piecewise-linear interpolation over the Delaunay
// triangulation of four scattered points.
func interpolateLinear(corners [4]Corner, poi Point) (float64, error) {
	var pts [4]Point
	for i, c := range corners {
		pts[i] = c.Point
	}

	tri, w, err := enclosingTriangle(pts, poi)
	if err != nil {
		return 0, err
	}

	v0, v1, v2 := corners[tri[0]].Value, corners[tri[1]].Value, corners[tri[2]].Value
	if v0 == v1 && v1 == v2 {
		// a constant field interpolates to itself without rounding
		return v0, nil
	}
	return w[0]*v0 + w[1]*v1 + w[2]*v2, nil
}

// enclosingTriangle returns the triangle of the triangulation of pts that
// contains poi, with poi's barycentric weights in it.
func enclosingTriangle(pts [4]Point, poi Point) ([3]int, [3]float64, error) {
	sawTriangle := false
	for _, tri := range delaunay4(pts) {
		a, b, c := pts[tri[0]], pts[tri[1]], pts[tri[2]]
		if cross(a, b, c) == 0 {
			continue
		}
		w, err := barycentric(a, b, c, poi)
		if err != nil {
			continue
		}
		sawTriangle = true
		if w[0] < -barycentricTolerance || w[1] < -barycentricTolerance || w[2] < -barycentricTolerance {
			continue
		}
		return tri, w, nil
	}

	if !sawTriangle {
		return [3]int{}, [3]float64{}, ErrDegenerateGeometry
	}
	return [3]int{}, [3]float64{}, errOutsideHull
}

// barycentric solves for the weights of p with respect to triangle abc.
func barycentric(a, b, c, p Point) ([3]float64, error) {
	m := mat.NewDense(3, 3, []float64{
		a.Lon, b.Lon, c.Lon,
		a.Lat, b.Lat, c.Lat,
		1, 1, 1,
	})
	rhs := mat.NewVecDense(3, []float64{p.Lon, p.Lat, 1})

	var w mat.VecDense
	if err := w.SolveVec(m, rhs); err != nil {
		return [3]float64{}, err
	}
	return [3]float64{w.AtVec(0), w.AtVec(1), w.AtVec(2)}, nil
}

// delaunay4 triangulates four points, returning index triples.
// A point inside the triangle of the other three yields a three-triangle fan;
// otherwise the hull quadrilateral is split along its Delaunay diagonal.
func delaunay4(pts [4]Point) [][3]int {
	for i := 0; i < 4; i++ {
		o := others(i)
		if strictlyInside(pts[o[0]], pts[o[1]], pts[o[2]], pts[i]) {
			return [][3]int{
				{o[0], o[1], i},
				{o[1], o[2], i},
				{o[2], o[0], i},
			}
		}
	}

	order := counterclockwise(pts)
	a, b, c, d := order[0], order[1], order[2], order[3]
	if inCircle(pts[a], pts[b], pts[c], pts[d]) > 0 {
		return [][3]int{{a, b, d}, {b, c, d}}
	}
	return [][3]int{{a, b, c}, {a, c, d}}
}

func others(i int) [3]int {
	var o [3]int
	k := 0
	for j := 0; j < 4; j++ {
		if j != i {
			o[k] = j
			k++
		}
	}
	return o
}

// counterclockwise orders point indices by angle around their centroid.
func counterclockwise(pts [4]Point) [4]int {
	var cx, cy float64
	for _, p := range pts {
		cx += p.Lon / 4
		cy += p.Lat / 4
	}
	idx := [4]int{0, 1, 2, 3}
	s := idx[:]
	sort.SliceStable(s, func(i, j int) bool {
		pi, pj := pts[s[i]], pts[s[j]]
		return math.Atan2(pi.Lat-cy, pi.Lon-cx) < math.Atan2(pj.Lat-cy, pj.Lon-cx)
	})
	return idx
}

// strictlyInside reports whether p is inside triangle abc and not on its boundary.
func strictlyInside(a, b, c, p Point) bool {
	d1, d2, d3 := cross(a, b, p), cross(b, c, p), cross(c, a, p)
	return (d1 > 0 && d2 > 0 && d3 > 0) || (d1 < 0 && d2 < 0 && d3 < 0)
}

// inCircle is positive when d lies inside the circumcircle of the
// counterclockwise triangle abc.
func inCircle(a, b, c, d Point) float64 {
	adx, ady := a.Lon-d.Lon, a.Lat-d.Lat
	bdx, bdy := b.Lon-d.Lon, b.Lat-d.Lat
	cdx, cdy := c.Lon-d.Lon, c.Lat-d.Lat
	ad := adx*adx + ady*ady
	bd := bdx*bdx + bdy*bdy
	cd := cdx*cdx + cdy*cdy
	return adx*(bdy*cd-bd*cdy) - ady*(bdx*cd-bd*cdx) + ad*(bdx*cdy-bdy*cdx)
}
