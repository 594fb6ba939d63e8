package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UnknownAddress is the address of a record whose source carries no address fragments.
const UnknownAddress = "Unknown address"

// recordNamespace scopes the name-based UUIDs synthesized for id-less records.
var recordNamespace = uuid.MustParse("6f1c2a3e-2b0d-5c4e-9a57-2d1f0b7c8e41")

// categoryRule is one row of the ordered category table; the first match wins.
type categoryRule struct {
	category Category
	match    func(tags map[string]string) bool
}

var categoryRules = []categoryRule{
	{CategoryHospital, func(t map[string]string) bool { return kindIs(t, "hospital") }},
	{CategoryClinic, func(t map[string]string) bool { return kindIs(t, "clinic", "doctors") }},
	{CategoryPharmacy, func(t map[string]string) bool { return kindIs(t, "pharmacy") }},
	{CategoryFoodbank, func(t map[string]string) bool {
		return t["social_facility"] == "food_bank" || kindIs(t, "food_bank", "foodbank") ||
			(isSocialFacility(t) && mentionsFood(t))
	}},
	// Generic social facilities and charities are listed as food banks, not "other".
	{CategoryFoodbank, isSocialFacility},
}

// kindTags are the tag keys that name what a place is. "type" is the flat
// field of the static dataset.
var kindTags = []string{"amenity", "healthcare", "type"}

func kindIs(tags map[string]string, values ...string) bool {
	for _, key := range kindTags {
		v := strings.ToLower(strings.TrimSpace(tags[key]))
		if v == "" {
			continue
		}
		for _, want := range values {
			if v == want {
				return true
			}
		}
	}
	return false
}

func isSocialFacility(tags map[string]string) bool {
	if _, ok := tags["social_facility"]; ok {
		return true
	}
	return kindIs(tags, "social_facility", "charity") || tags["shop"] == "charity"
}

func mentionsFood(tags map[string]string) bool {
	for _, key := range []string{"social_facility", "social_facility:for", "description", "name"} {
		if strings.Contains(strings.ToLower(tags[key]), "food") {
			return true
		}
	}
	return false
}

// DetectCategory evaluates the category table top to bottom against the tags.
func DetectCategory(tags map[string]string) Category {
	for _, rule := range categoryRules {
		if rule.match(tags) {
			return rule.category
		}
	}
	return CategoryOther
}

// composeAddress joins street, house number and city. When none of them are
// present it falls back to the place, vicinity and full-address tags.
func composeAddress(tags map[string]string) string {
	var parts []string
	for _, key := range []string{"addr:street", "addr:housenumber", "addr:city"} {
		if v := strings.TrimSpace(tags[key]); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	for _, key := range []string{"addr:place", "vicinity", "addr:full"} {
		if v := strings.TrimSpace(tags[key]); v != "" {
			return v
		}
	}
	return UnknownAddress
}

func extractPhone(tags map[string]string) string {
	for _, key := range []string{"phone", "contact:phone", "contact:mobile", "mobile"} {
		if v := strings.TrimSpace(tags[key]); v != "" {
			return v
		}
	}
	return ""
}

// extractPoint prefers direct coordinates, then the area centroid, then the
// bounding box's minimum corner. The last is an approximation: it can sit
// hundreds of metres from the real entrance of a large site.
func extractPoint(el RawElement) (Point, bool) {
	switch {
	case el.Lat != nil && el.Lon != nil:
		return Point{Lat: *el.Lat, Lng: *el.Lon}, true
	case el.Center != nil:
		return *el.Center, true
	case el.Bounds != nil:
		return Point{Lat: el.Bounds.MinLat, Lng: el.Bounds.MinLon}, true
	default:
		return Point{}, false
	}
}

func displayName(tags map[string]string, category Category) string {
	if name := strings.TrimSpace(tags["name"]); name != "" {
		return name
	}
	return cases.Title(language.English).String(string(category))
}

// synthesizeID derives a stable id for a source element that carries none, so
// refetching the same place yields the same identity key.
func synthesizeID(name string, p Point) string {
	seed := fmt.Sprintf("%s|%.5f|%.5f", strings.ToLower(name), p.Lat, p.Lng)
	return uuid.NewSHA1(recordNamespace, []byte(seed)).String()
}

// IdentityKey combines category, id and rounded coordinates. Two records with
// the same key are the same physical place.
func IdentityKey(category Category, id string, lat, lng float64) string {
	return fmt.Sprintf("%s_%s_%.5f_%.5f", category, id, lat, lng)
}

// Normalize converts one raw element into a ServiceRecord. It returns false
// when the element has no usable coordinates.
func Normalize(el RawElement) (ServiceRecord, bool) {
	p, ok := extractPoint(el)
	if !ok {
		return ServiceRecord{}, false
	}

	tags := el.Tags
	if tags == nil {
		tags = map[string]string{}
	}

	category := DetectCategory(tags)
	name := displayName(tags, category)

	id := strings.TrimSpace(el.ID)
	if id == "" {
		id = synthesizeID(name, p)
	}

	rec := ServiceRecord{
		ID:          id,
		IdentityKey: IdentityKey(category, id, p.Lat, p.Lng),
		Name:        name,
		Category:    category,
		Address:     composeAddress(tags),
		Phone:       extractPhone(tags),
		Latitude:    p.Lat,
		Longitude:   p.Lng,
	}
	if el.Rating != nil && *el.Rating > 0 {
		r := *el.Rating
		rec.Rating = &r
	}
	return rec, true
}

// NormalizeAll normalizes a batch, dropping elements without coordinates and
// duplicates of places already seen.
func NormalizeAll(elements []RawElement) []ServiceRecord {
	records := make([]ServiceRecord, 0, len(elements))
	for _, el := range elements {
		rec, ok := Normalize(el)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return Dedupe(records)
}

// Dedupe keeps the first record per (name, truncated lat, truncated lng).
func Dedupe(records []ServiceRecord) []ServiceRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]ServiceRecord, 0, len(records))
	for _, r := range records {
		key := dedupeKey(r)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func dedupeKey(r ServiceRecord) string {
	return fmt.Sprintf("%s|%.4f|%.4f",
		strings.ToLower(strings.TrimSpace(r.Name)),
		truncate4(r.Latitude), truncate4(r.Longitude))
}

func truncate4(v float64) float64 {
	return math.Trunc(v*1e4) / 1e4
}
