package geo_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkm/swathpoint/internal/config"
	"github.com/rkm/swathpoint/internal/geo"
)

func TestValidCoords(t *testing.T) {
	tests := []struct {
		name     string
		lon, lat float64
		wantErr  string
	}{
		{"washington", -77.0369, 38.9072, ""},
		{"west edge inclusive", -130, 30, ""},
		{"north edge inclusive", -100, 60, ""},
		{"too far west", -131, 30, "longitude must be >= -130 deg"},
		{"too far east", -59.9, 30, "longitude must be <= -60 deg"},
		{"too far south", -100, 14, "latitude must be >= 15 deg"},
		{"too far north", -100, 61, "latitude must be <= 60 deg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := geo.NorthAmerica.ValidCoords(tt.lon, tt.lat)
			if tt.wantErr != "" {
				require.ErrorIs(t, err, geo.ErrOutOfBounds)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, geo.Coords{Lat: tt.lat, Lon: tt.lon}, c)
		})
	}
}

func TestBoundsFromConfig(t *testing.T) {
	b := geo.BoundsFromConfig(config.CoordsConfig{MinLon: -10, MaxLon: 10, MinLat: -5, MaxLat: 5})
	assert.True(t, b.Contains(geo.Coords{Lat: 0, Lon: 0}))
	assert.False(t, b.Contains(geo.Coords{Lat: 6, Lon: 0}))
}

func TestBBoxAndCenter(t *testing.T) {
	c := geo.Coords{Lat: 40, Lon: -100}
	bbox := geo.BBox(c, 0.5)
	assert.Equal(t, []float64{-100.5, 39.5, -99.5, 40.5}, bbox)
	assert.Equal(t, c, geo.Center(bbox))
}

func TestSurprise(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		city, err := geo.NorthAmerica.Surprise(rng)
		require.NoError(t, err)
		assert.True(t, geo.NorthAmerica.Contains(city.Coords), city.Name)
		assert.NotEqual(t, "Panama City, Panama", city.Name)
	}

	_, err := geo.Bounds{MinLon: 0, MaxLon: 1, MinLat: 0, MaxLat: 1}.Surprise(rng)
	assert.ErrorIs(t, err, geo.ErrNoCity)
}
