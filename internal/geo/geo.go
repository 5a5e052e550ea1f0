// Package geo validates request coordinates and provides the sample city list.
package geo

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/rkm/swathpoint/internal/config"
)

// ErrOutOfBounds is returned for coordinates outside the served region.
var ErrOutOfBounds = errors.New("coordinates out of bounds")

// Bounds is the served lon/lat rectangle.
type Bounds struct {
	MinLon, MaxLon float64
	MinLat, MaxLat float64
}

// NorthAmerica is the default served region.
var NorthAmerica = Bounds{MinLon: -130, MaxLon: -60, MinLat: 15, MaxLat: 60}

// BoundsFromConfig builds Bounds from the coordinate configuration.
func BoundsFromConfig(c config.CoordsConfig) Bounds {
	return Bounds{MinLon: c.MinLon, MaxLon: c.MaxLon, MinLat: c.MinLat, MaxLat: c.MaxLat}
}

// Coords is a validated coordinate pair.
type Coords struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// ValidCoords checks lon and lat against b, inclusive at the edges.
func (b Bounds) ValidCoords(lon, lat float64) (Coords, error) {
	switch {
	case lon < b.MinLon:
		return Coords{}, fmt.Errorf("%w: longitude must be >= %g deg", ErrOutOfBounds, b.MinLon)
	case lon > b.MaxLon:
		return Coords{}, fmt.Errorf("%w: longitude must be <= %g deg", ErrOutOfBounds, b.MaxLon)
	case lat < b.MinLat:
		return Coords{}, fmt.Errorf("%w: latitude must be >= %g deg", ErrOutOfBounds, b.MinLat)
	case lat > b.MaxLat:
		return Coords{}, fmt.Errorf("%w: latitude must be <= %g deg", ErrOutOfBounds, b.MaxLat)
	}
	return Coords{Lat: lat, Lon: lon}, nil
}

// Contains reports whether c lies inside b.
func (b Bounds) Contains(c Coords) bool {
	_, err := b.ValidCoords(c.Lon, c.Lat)
	return err == nil
}

// BBox returns [west, south, east, north] around c, margin degrees on each side.
func BBox(c Coords, margin float64) []float64 {
	return []float64{c.Lon - margin, c.Lat - margin, c.Lon + margin, c.Lat + margin}
}

// Center returns the midpoint of a [west, south, east, north] box.
func Center(bbox []float64) Coords {
	return Coords{Lat: (bbox[1] + bbox[3]) / 2, Lon: (bbox[0] + bbox[2]) / 2}
}

// City is a named sample location.
type City struct {
	Name string `json:"name"`
	Coords
}

// Cities are the sample locations offered by the surprise endpoint.
var Cities = []City{
	{"New York, USA", Coords{40.7128, -74.0060}},
	{"Los Angeles, USA", Coords{34.0522, -118.2437}},
	{"Chicago, USA", Coords{41.8781, -87.6298}},
	{"Houston, USA", Coords{29.7604, -95.3698}},
	{"Phoenix, USA", Coords{33.4484, -112.0740}},
	{"Philadelphia, USA", Coords{39.9526, -75.1652}},
	{"San Antonio, USA", Coords{29.4241, -98.4936}},
	{"San Diego, USA", Coords{32.7157, -117.1611}},
	{"Dallas, USA", Coords{32.7767, -96.7970}},
	{"San Jose, USA", Coords{37.3382, -121.8863}},
	{"Toronto, Canada", Coords{43.6532, -79.3832}},
	{"Montreal, Canada", Coords{45.5017, -73.5673}},
	{"Vancouver, Canada", Coords{49.2827, -123.1207}},
	{"Ottawa, Canada", Coords{45.4215, -75.6972}},
	{"Mexico City, Mexico", Coords{19.4326, -99.1332}},
	{"Guadalajara, Mexico", Coords{20.6597, -103.3496}},
	{"Monterrey, Mexico", Coords{25.6866, -100.3161}},
	{"Tijuana, Mexico", Coords{32.5149, -117.0382}},
	{"Cancun, Mexico", Coords{21.1619, -86.8515}},
	{"Miami, USA", Coords{25.7617, -80.1918}},
	{"Atlanta, USA", Coords{33.7490, -84.3880}},
	{"Seattle, USA", Coords{47.6062, -122.3321}},
	{"Boston, USA", Coords{42.3601, -71.0589}},
	{"Denver, USA", Coords{39.7392, -104.9903}},
	{"Minneapolis, USA", Coords{44.9778, -93.2650}},
	{"Quebec City, Canada", Coords{46.8139, -71.2080}},
	{"Calgary, Canada", Coords{51.0447, -114.0719}},
	{"Winnipeg, Canada", Coords{49.8951, -97.1384}},
	{"Edmonton, Canada", Coords{53.55, -113.49}},
	{"Havana, Cuba", Coords{23.13, -82.36}},
	{"Santo Domingo, Dominican Republic", Coords{18.46, -69.94}},
	{"Panama City, Panama", Coords{8.98, -79.52}},
	{"San Juan, Puerto Rico", Coords{18.42, -66.06}},
}

// ErrNoCity is returned when no city lies inside the bounds.
var ErrNoCity = errors.New("no sample city inside bounds")

// Surprise picks a random city inside b.
func (b Bounds) Surprise(rng *rand.Rand) (City, error) {
	candidates := make([]City, 0, len(Cities))
	for _, c := range Cities {
		if b.Contains(c.Coords) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return City{}, ErrNoCity
	}
	return candidates[rng.Intn(len(candidates))], nil
}
