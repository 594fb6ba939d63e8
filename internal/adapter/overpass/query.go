package overpass

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/pukaar-service/internal/domain"
)

// serverTimeoutSeconds is the [timeout:N] hint sent to Overpass. The client
// timeout must be larger so the server can report its own timeout.
const serverTimeoutSeconds = 25

// tagFilters are the Overpass tag selectors for the service categories.
var tagFilters = []string{
	`["amenity"="hospital"]`,
	`["amenity"="clinic"]`,
	`["healthcare"="clinic"]`,
	`["amenity"="doctors"]`,
	`["amenity"="pharmacy"]`,
	`["social_facility"="food_bank"]`,
}

// BuildQuery renders the Overpass QL query for every service category within
// radiusM metres of p. Areas are requested with "out center" so ways and
// relations come back with a centroid.
func BuildQuery(p domain.Point, radiusM int) string {
	around := fmt.Sprintf("(around:%d,%g,%g)", radiusM, p.Lat, p.Lng)

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];(", serverTimeoutSeconds)
	for _, kind := range []string{"node", "way", "relation"} {
		for _, f := range tagFilters {
			b.WriteString(kind)
			b.WriteString(f)
			b.WriteString(around)
			b.WriteString(";")
		}
	}
	b.WriteString(");out center;")
	return b.String()
}
