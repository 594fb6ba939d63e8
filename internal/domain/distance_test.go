package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceKm(t *testing.T) {
	t.Run("same point is zero", func(t *testing.T) {
		for _, p := range []Point{DefaultReference, {0, 0}, {-33.86, 151.21}, {89.9, -179.9}} {
			assert.Zero(t, DistanceKm(p.Lat, p.Lng, p.Lat, p.Lng))
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		a := DefaultReference
		b := Point{Lat: 31.5204, Lng: 74.3587} // Lahore
		assert.Equal(t, DistanceKm(a.Lat, a.Lng, b.Lat, b.Lng), DistanceKm(b.Lat, b.Lng, a.Lat, a.Lng))
	})

	t.Run("known distance", func(t *testing.T) {
		// Karachi to Lahore is roughly 1030 km great-circle.
		d := DistanceKm(24.8607, 67.0011, 31.5204, 74.3587)
		assert.InDelta(t, 1030, d, 15)
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		assert.InDelta(t, 111.19, DistanceKm(0, 0, 1, 0), 0.01)
	})

	t.Run("antipodes stay finite", func(t *testing.T) {
		d := DistanceKm(0, 0, 0, 180)
		assert.InDelta(t, 20015.09, d, 0.1)
	})
}

func TestRoundKm(t *testing.T) {
	assert.Equal(t, 1.23, RoundKm(1.2345))
	assert.Equal(t, 1.24, RoundKm(1.2351))
	assert.Equal(t, 0.0, RoundKm(0.001))
}

func TestAnnotateDistances(t *testing.T) {
	records := []ServiceRecord{
		{Name: "a", Latitude: DefaultReference.Lat, Longitude: DefaultReference.Lng},
		{Name: "b", Latitude: 24.9, Longitude: 67.1},
	}
	stale := 999.0
	records[1].DistanceKm = &stale

	AnnotateDistances(records, DefaultReference)

	require.NotNil(t, records[0].DistanceKm)
	assert.Zero(t, *records[0].DistanceKm)
	require.NotNil(t, records[1].DistanceKm)
	assert.Less(t, *records[1].DistanceKm, 20.0)
	assert.Greater(t, *records[1].DistanceKm, 0.0)
}
