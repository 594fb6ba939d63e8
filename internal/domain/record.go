package domain

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// Category is the closed set of service kinds a record can belong to.
type Category string

const (
	CategoryHospital Category = "hospital"
	CategoryClinic   Category = "clinic"
	CategoryPharmacy Category = "pharmacy"
	CategoryFoodbank Category = "foodbank"
	CategoryOther    Category = "other"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryHospital, CategoryClinic, CategoryPharmacy, CategoryFoodbank, CategoryOther}

// ParseCategory validates a user-supplied category. The empty string is
// accepted and means "no restriction".
func ParseCategory(s string) (Category, error) {
	if s == "" {
		return "", nil
	}
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// EmergencyNumber is dialled by call-to-action surfaces when a record has no phone.
const EmergencyNumber = "1122"

// Point is a WGS-84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DefaultReference is the home-city reference point (Karachi) used when the
// device location cannot be resolved.
var DefaultReference = Point{Lat: 24.8607, Lng: 67.0011}

// Bounds is an axis-aligned bounding box as reported by Overpass for areas.
type Bounds struct {
	MinLat float64 `json:"minlat"`
	MinLon float64 `json:"minlon"`
	MaxLat float64 `json:"maxlat"`
	MaxLon float64 `json:"maxlon"`
}

// RawElement is one loosely-typed source element before normalization. Both
// the Overpass adapter and the static fallback adapter produce this shape.
type RawElement struct {
	ID     string
	Kind   string // node, way, relation, or static
	Lat    *float64
	Lon    *float64
	Center *Point
	Bounds *Bounds
	Tags   map[string]string
	Rating *float64
}

// ServiceRecord is the canonical, normalized representation of one place.
type ServiceRecord struct {
	ID                string   `json:"id"`
	IdentityKey       string   `json:"identity_key"`
	Name              string   `json:"name"`
	Category          Category `json:"category"`
	Address           string   `json:"address"`
	Phone             string   `json:"phone,omitempty"`
	Latitude          float64  `json:"latitude"`
	Longitude         float64  `json:"longitude"`
	DistanceKm        *float64 `json:"distance_km,omitempty"`
	Rating            *float64 `json:"rating,omitempty"`
	RatingPlaceholder bool     `json:"rating_placeholder,omitempty"`
}

// Mappable reports whether the record can be placed on a map. Records with
// missing or zero coordinates stay in lists but get no marker.
func (r ServiceRecord) Mappable() bool {
	return r.Latitude != 0 && r.Longitude != 0
}

// CallNumber returns the record's phone, or the emergency number when absent.
func (r ServiceRecord) CallNumber() string {
	if r.Phone != "" {
		return r.Phone
	}
	return EmergencyNumber
}

// MapURL returns a directions link for the record's coordinates.
func (r ServiceRecord) MapURL() string {
	return fmt.Sprintf("https://www.google.com/maps?q=%g,%g", r.Latitude, r.Longitude)
}

// Favorite snapshots the persisted subset of the record.
func (r ServiceRecord) Favorite() FavoriteEntry {
	return FavoriteEntry{
		IdentityKey: r.IdentityKey,
		Name:        r.Name,
		Address:     r.Address,
		Phone:       r.Phone,
		Category:    r.Category,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		SavedAt:     clock.Now().UTC(),
	}
}

// FavoriteEntry is a durable record snapshot owned by the favorites store.
type FavoriteEntry struct {
	IdentityKey string    `json:"identity_key"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Phone       string    `json:"phone,omitempty"`
	Category    Category  `json:"category"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	SavedAt     time.Time `json:"saved_at"`
}

// CallNumber mirrors ServiceRecord.CallNumber for saved entries.
func (f FavoriteEntry) CallNumber() string {
	if f.Phone != "" {
		return f.Phone
	}
	return EmergencyNumber
}

// clock stamps favorites and fetch cycles. Tests freeze it with SetClock.
var clock = clockwork.NewRealClock()

// SetClock replaces the package time source; nil restores the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clock = c
}

// Now returns the current time from the package clock.
func Now() time.Time {
	return clock.Now()
}
