package geojson_test

import (
	"fmt"

	"github.com/rkm/swathpoint/pkg/geojson"
)

func ExampleNewPolygonFromBBox() {
	g, err := geojson.NewPolygonFromBBox([]float64{-74.2, 40.6, -74.0, 40.8})
	if err != nil {
		fmt.Println(err)
		return
	}
	bbox, _ := g.BBox()
	fmt.Println(g.Type, bbox)
	// Output: Polygon [-74.2 40.6 -74 40.8]
}

func ExampleNewFeature() {
	pt, _ := geojson.NewPoint(-74.1, 40.67)
	f := geojson.NewFeature(pt, map[string]any{"site": "Bayonne"})
	fmt.Println(f.Type, f.Geometry.Type, f.Properties["site"])
	// Output: Feature Point Bayonne
}
