package overpass

import (
	"strings"
	"testing"

	"github.com/couchcryptid/pukaar-service/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestBuildQuery(t *testing.T) {
	q := BuildQuery(domain.Point{Lat: 24.8607, Lng: 67.0011}, 7000)

	assert.True(t, strings.HasPrefix(q, "[out:json][timeout:25];("))
	assert.True(t, strings.HasSuffix(q, ");out center;"))

	for _, want := range []string{
		`node["amenity"="hospital"](around:7000,24.8607,67.0011);`,
		`way["amenity"="clinic"](around:7000,24.8607,67.0011);`,
		`relation["healthcare"="clinic"](around:7000,24.8607,67.0011);`,
		`node["amenity"="pharmacy"](around:7000,24.8607,67.0011);`,
		`way["social_facility"="food_bank"](around:7000,24.8607,67.0011);`,
		`relation["amenity"="doctors"](around:7000,24.8607,67.0011);`,
	} {
		assert.Contains(t, q, want)
	}
	assert.Equal(t, 3*len(tagFilters), strings.Count(q, "(around:"))
}
