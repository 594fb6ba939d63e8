//go:build overpass

package overpass

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/pukaar-service/internal/domain"
	"github.com/couchcryptid/pukaar-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the public Overpass API.
// Run with: go test -tags=overpass ./internal/adapter/overpass/ -v -count=1

func smokeClient() *Client {
	return NewClient(Options{Timeout: 35 * time.Second, RadiusM: 2000, Rate: 1},
		observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_FetchNearby_Karachi(t *testing.T) {
	c := smokeClient()

	got, err := c.FetchNearby(context.Background(), domain.DefaultReference)
	require.NoError(t, err)
	require.NotEmpty(t, got, "central Karachi should have services within 2 km")

	records := domain.NormalizeAll(got)
	assert.NotEmpty(t, records)
	for _, r := range records {
		assert.NotEmpty(t, r.IdentityKey)
		assert.Less(t, domain.DistanceKm(domain.DefaultReference.Lat, domain.DefaultReference.Lng, r.Latitude, r.Longitude), 5.0)
	}
}

func TestSmoke_FetchNearby_OpenOcean(t *testing.T) {
	c := smokeClient()

	got, err := c.FetchNearby(context.Background(), domain.Point{Lat: -30, Lng: -120})
	require.NoError(t, err)
	assert.Empty(t, got)
}
