package domain

import "math"

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points given in
// degrees, in kilometres, at full precision.
func DistanceKm(refLat, refLng, lat, lng float64) float64 {
	dLat := toRadians(lat - refLat)
	dLng := toRadians(lng - refLng)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(refLat))*math.Cos(toRadians(lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	// Rounding can push a a hair above 1 for antipodal points.
	a = math.Min(math.Max(a, 0), 1)

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// RoundKm rounds a distance to two decimals for display.
func RoundKm(km float64) float64 {
	return math.Round(km*100) / 100
}

// AnnotateDistances sets DistanceKm on every record relative to ref. It
// overwrites any distance from a previous reference point.
func AnnotateDistances(records []ServiceRecord, ref Point) {
	for i := range records {
		d := DistanceKm(ref.Lat, ref.Lng, records[i].Latitude, records[i].Longitude)
		records[i].DistanceKm = &d
	}
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
