package domain

import (
	"fmt"
	"hash/fnv"
	"math"
)

// RatingMode controls what happens to records whose source has no rating.
type RatingMode string

const (
	// RatingNone leaves missing ratings nil; clients render a placeholder glyph.
	RatingNone RatingMode = "none"
	// RatingPlaceholder synthesizes a cosmetic 3.0–5.0 value for card layout.
	// The value is not real data and the record is flagged RatingPlaceholder.
	RatingPlaceholder RatingMode = "placeholder"
)

// ParseRatingMode validates a configured rating mode.
func ParseRatingMode(s string) (RatingMode, error) {
	switch RatingMode(s) {
	case "", RatingNone:
		return RatingNone, nil
	case RatingPlaceholder:
		return RatingPlaceholder, nil
	default:
		return "", fmt.Errorf("unknown rating mode %q", s)
	}
}

// FillRatings applies mode to records lacking a rating. Placeholders are
// seeded from the identity key so a place keeps its value across refetches.
func FillRatings(records []ServiceRecord, mode RatingMode) {
	if mode != RatingPlaceholder {
		return
	}
	for i := range records {
		if records[i].Rating != nil {
			continue
		}
		v := placeholderRating(records[i].IdentityKey)
		records[i].Rating = &v
		records[i].RatingPlaceholder = true
	}
}

func placeholderRating(key string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	// 21 steps of 0.1 between 3.0 and 5.0 inclusive.
	step := float64(h.Sum32() % 21)
	return math.Round((3.0+step/10)*10) / 10
}
