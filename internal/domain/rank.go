package domain

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// ErrUnknownSortMode is returned by ParseSortMode for unsupported values.
var ErrUnknownSortMode = errors.New("unknown sort mode")

// SortMode selects the single active sort criterion.
type SortMode string

const (
	SortByDistance SortMode = "distance"
	SortByRating   SortMode = "rating"
)

// ParseSortMode accepts "distance", "rating" or the empty string (distance).
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortByDistance:
		return SortByDistance, nil
	case SortByRating:
		return SortByRating, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSortMode, s)
	}
}

// Query holds the user's view options for a batch. Filters compose with AND
// and are applied before sorting.
type Query struct {
	Category Category
	Text     string
	Sort     SortMode
}

// Filter returns the records matching the category and the case-insensitive
// name/address substring. Empty criteria do not restrict.
func Filter(records []ServiceRecord, category Category, text string) []ServiceRecord {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(text))

	out := make([]ServiceRecord, 0, len(records))
	for _, r := range records {
		if category != "" && r.Category != category {
			continue
		}
		if needle != "" &&
			!strings.Contains(fold.String(r.Name), needle) &&
			!strings.Contains(fold.String(r.Address), needle) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SortRecords stable-sorts in place: ascending distance with unknown distances
// last, or descending rating with unknown ratings counted as zero.
func SortRecords(records []ServiceRecord, mode SortMode) {
	switch mode {
	case SortByRating:
		slices.SortStableFunc(records, func(a, b ServiceRecord) int {
			return compareFloat(ratingOf(b), ratingOf(a))
		})
	default:
		slices.SortStableFunc(records, func(a, b ServiceRecord) int {
			return compareFloat(distanceOf(a), distanceOf(b))
		})
	}
}

// Rank filters and sorts a copy of records; the input is left untouched.
func Rank(records []ServiceRecord, q Query) []ServiceRecord {
	out := Filter(records, q.Category, q.Text)
	SortRecords(out, q.Sort)
	return out
}

func distanceOf(r ServiceRecord) float64 {
	if r.DistanceKm == nil {
		return math.Inf(1)
	}
	return *r.DistanceKm
}

func ratingOf(r ServiceRecord) float64 {
	if r.Rating == nil {
		return 0
	}
	return *r.Rating
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
