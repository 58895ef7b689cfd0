package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		tolerance              float64
	}{
		{"identical points", -6.2, 106.816666, -6.2, 106.816666, 0, 1e-9},
		{"one degree of latitude", 0, 0, 1, 0, 111195, 111195 * 0.01},
		{"one degree of longitude at equator", 0, 0, 0, 1, 111195, 111195 * 0.01},
		{"jakarta to bandung", -6.2088, 106.8456, -6.9175, 107.6191, 116000, 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.want, got, tt.tolerance)
		})
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := Distance(-6.2, 106.8, -6.3, 106.9)
	b := Distance(-6.3, 106.9, -6.2, 106.8)
	assert.InDelta(t, a, b, 1e-6)
}

func TestFence_Check(t *testing.T) {
	fence := Fence{Latitude: -6.2, Longitude: 106.8}

	d, inside := fence.Check(-6.2, 106.8)
	assert.Zero(t, d)
	assert.True(t, inside)

	// ~55 m north
	d, inside = fence.Check(-6.1995, 106.8)
	assert.InDelta(t, 55.6, d, 1)
	assert.True(t, inside)

	// ~222 m north, outside the default 100 m
	d, inside = fence.Check(-6.198, 106.8)
	assert.Greater(t, d, 200.0)
	assert.False(t, inside)

	wide := Fence{Latitude: -6.2, Longitude: 106.8, RadiusMeters: 500}
	_, inside = wide.Check(-6.198, 106.8)
	assert.True(t, inside)
}

func TestFence_Radius(t *testing.T) {
	assert.Equal(t, float64(DefaultRadiusMeters), Fence{}.Radius())
	assert.Equal(t, float64(DefaultRadiusMeters), Fence{RadiusMeters: -5}.Radius())
	assert.Equal(t, 250.0, Fence{RadiusMeters: 250}.Radius())
}

func TestValidCoordinate(t *testing.T) {
	assert.True(t, ValidCoordinate(0, 0))
	assert.True(t, ValidCoordinate(-90, 180))
	assert.False(t, ValidCoordinate(91, 0))
	assert.False(t, ValidCoordinate(0, -181))
}
