package swath

// Cell identifies the quadrilateral whose lowest corner is (Row, Col).
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Corners returns the grid indices of the cell's vertices in ring order:
// (r,c), (r,c+1), (r+1,c+1), (r+1,c).
func (c Cell) Corners() [4][2]int {
	return [4][2]int{
		{c.Row, c.Col},
		{c.Row, c.Col + 1},
		{c.Row + 1, c.Col + 1},
		{c.Row + 1, c.Col},
	}
}

// Quad returns the cell's vertices as a polygon.
func (g *Grid) Quad(c Cell) Polygon {
	corners := c.Corners()
	quad := make(Polygon, 4)
	for i, rc := range corners {
		quad[i] = g.PointAt(rc[0], rc[1])
	}
	return quad
}

// cellGeoValid reports whether all four corners of a cell are geolocated.
func (g *Grid) cellGeoValid(c Cell) bool {
	for _, rc := range c.Corners() {
		if !g.GeoValid(rc[0], rc[1]) {
			return false
		}
	}
	return true
}

// Locate finds the grid cell containing poi.
//
// The swath boundary poly is tested first so that granules which miss the
// point cost a single ring test. Otherwise cells are scanned row-major and the
// first cell whose quadrilateral contains the point wins, so a point on an
// edge or vertex shared by several cells resolves to the lowest (row, col).
// Cells with any fill corner are skipped. The second result is false when no
// cell contains the point.
func Locate(g *Grid, poly Polygon, poi Point) (Cell, bool) {
	if !Contains(poly, poi) {
		return Cell{}, false
	}
	return scanCells(g, poi)
}

func scanCells(g *Grid, poi Point) (Cell, bool) {
	for r := 0; r < g.rows-1; r++ {
		for c := 0; c < g.cols-1; c++ {
			cell := Cell{Row: r, Col: c}
			if !g.cellGeoValid(cell) {
				continue
			}
			if Contains(g.Quad(cell), poi) {
				return cell, true
			}
		}
	}
	return Cell{}, false
}
