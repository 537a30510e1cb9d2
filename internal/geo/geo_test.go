package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance_KnownPairs(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Point
		wantKM    float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         Point{Latitude: 12.9716, Longitude: 77.5946},
			b:         Point{Latitude: 12.9716, Longitude: 77.5946},
			wantKM:    0,
			tolerance: 0.001,
		},
		{
			name:      "one hundredth degree of latitude",
			a:         Point{Latitude: 0, Longitude: 0},
			b:         Point{Latitude: 0.01, Longitude: 0},
			wantKM:    1.11,
			tolerance: 0.02,
		},
		{
			name:      "London to Paris",
			a:         Point{Latitude: 51.5074, Longitude: -0.1278},
			b:         Point{Latitude: 48.8566, Longitude: 2.3522},
			wantKM:    343.5,
			tolerance: 2.0,
		},
		{
			name:      "across the antimeridian",
			a:         Point{Latitude: 0, Longitude: 179.5},
			b:         Point{Latitude: 0, Longitude: -179.5},
			wantKM:    111.2,
			tolerance: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			assert.InDelta(t, tt.wantKM, got, tt.tolerance)
		})
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := Point{Latitude: 40.7128, Longitude: -74.0060}
	b := Point{Latitude: 34.0522, Longitude: -118.2437}

	assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
}

func TestPoint_Valid(t *testing.T) {
	assert.True(t, Point{Latitude: 45, Longitude: 90}.Valid())
	assert.False(t, Point{Latitude: 91, Longitude: 0}.Valid())
	assert.False(t, Point{Latitude: 0, Longitude: -181}.Valid())
}
