package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCityHospital = "City Hospital"
	testLat          = 24.86
	testLon          = 67.00
)

func ptr(v float64) *float64 { return &v }

func TestNormalize(t *testing.T) {
	t.Run("hospital node without address", func(t *testing.T) {
		el := RawElement{
			ID:   "node/1",
			Lat:  ptr(testLat),
			Lon:  ptr(testLon),
			Tags: map[string]string{"amenity": "hospital", "name": testCityHospital},
		}
		rec, ok := Normalize(el)

		require.True(t, ok)
		assert.Equal(t, CategoryHospital, rec.Category)
		assert.Equal(t, testCityHospital, rec.Name)
		assert.Equal(t, UnknownAddress, rec.Address)
		assert.Equal(t, testLat, rec.Latitude)
		assert.Equal(t, testLon, rec.Longitude)
		assert.Equal(t, "node/1", rec.ID)
		assert.Equal(t, "hospital_node/1_24.86000_67.00000", rec.IdentityKey)
		assert.Empty(t, rec.Phone)
		assert.Nil(t, rec.Rating)
	})

	t.Run("way uses center", func(t *testing.T) {
		el := RawElement{
			ID:     "way/7",
			Kind:   "way",
			Center: &Point{Lat: 24.9, Lng: 67.1},
			Tags:   map[string]string{"amenity": "pharmacy"},
		}
		rec, ok := Normalize(el)

		require.True(t, ok)
		assert.Equal(t, 24.9, rec.Latitude)
		assert.Equal(t, 67.1, rec.Longitude)
		assert.Equal(t, "Pharmacy", rec.Name)
	})

	t.Run("relation falls back to bounds min corner", func(t *testing.T) {
		el := RawElement{
			ID:     "relation/3",
			Bounds: &Bounds{MinLat: 24.1, MinLon: 67.2, MaxLat: 24.3, MaxLon: 67.4},
			Tags:   map[string]string{"amenity": "clinic"},
		}
		rec, ok := Normalize(el)

		require.True(t, ok)
		assert.Equal(t, 24.1, rec.Latitude)
		assert.Equal(t, 67.2, rec.Longitude)
	})

	t.Run("no coordinates", func(t *testing.T) {
		_, ok := Normalize(RawElement{ID: "node/9", Tags: map[string]string{"amenity": "hospital"}})
		assert.False(t, ok)
	})

	t.Run("only one direct coordinate", func(t *testing.T) {
		_, ok := Normalize(RawElement{ID: "node/9", Lat: ptr(1), Tags: map[string]string{"amenity": "hospital"}})
		assert.False(t, ok)
	})

	t.Run("composed address", func(t *testing.T) {
		el := RawElement{
			Lat: ptr(1), Lon: ptr(2),
			Tags: map[string]string{
				"amenity":          "pharmacy",
				"addr:street":      "Tariq Road",
				"addr:housenumber": "12",
				"addr:city":        "Karachi",
			},
		}
		rec, ok := Normalize(el)

		require.True(t, ok)
		assert.Equal(t, "Tariq Road, 12, Karachi", rec.Address)
	})

	t.Run("address fallback order", func(t *testing.T) {
		rec, _ := Normalize(RawElement{Lat: ptr(1), Lon: ptr(2), Tags: map[string]string{
			"vicinity": "Near Empress Market", "addr:full": "Saddar, Karachi",
		}})
		assert.Equal(t, "Near Empress Market", rec.Address)

		rec, _ = Normalize(RawElement{Lat: ptr(1), Lon: ptr(2), Tags: map[string]string{
			"addr:place": "Clifton", "vicinity": "Near Empress Market",
		}})
		assert.Equal(t, "Clifton", rec.Address)

		rec, _ = Normalize(RawElement{Lat: ptr(1), Lon: ptr(2), Tags: map[string]string{"addr:full": "Saddar, Karachi"}})
		assert.Equal(t, "Saddar, Karachi", rec.Address)
	})

	t.Run("phone precedence", func(t *testing.T) {
		rec, _ := Normalize(RawElement{Lat: ptr(1), Lon: ptr(2), Tags: map[string]string{
			"contact:phone": "222", "contact:mobile": "333",
		}})
		assert.Equal(t, "222", rec.Phone)

		rec, _ = Normalize(RawElement{Lat: ptr(1), Lon: ptr(2), Tags: map[string]string{"contact:mobile": "333"}})
		assert.Equal(t, "333", rec.Phone)
	})

	t.Run("synthesized id is stable", func(t *testing.T) {
		el := RawElement{Lat: ptr(testLat), Lon: ptr(testLon), Tags: map[string]string{"name": "Edhi Centre", "amenity": "social_facility"}}
		a, _ := Normalize(el)
		b, _ := Normalize(el)

		assert.NotEmpty(t, a.ID)
		assert.Equal(t, a.ID, b.ID)
		assert.Equal(t, a.IdentityKey, b.IdentityKey)
		assert.True(t, strings.HasPrefix(a.IdentityKey, "foodbank_"))
	})

	t.Run("source rating is kept", func(t *testing.T) {
		rec, _ := Normalize(RawElement{Lat: ptr(1), Lon: ptr(2), Rating: ptr(4.2)})
		require.NotNil(t, rec.Rating)
		assert.Equal(t, 4.2, *rec.Rating)
		assert.False(t, rec.RatingPlaceholder)
	})
}

func TestDetectCategory(t *testing.T) {
	tests := []struct {
		name string
		tags map[string]string
		want Category
	}{
		{"amenity hospital", map[string]string{"amenity": "hospital"}, CategoryHospital},
		{"healthcare hospital", map[string]string{"healthcare": "hospital"}, CategoryHospital},
		{"static type hospital", map[string]string{"type": "hospital"}, CategoryHospital},
		{"amenity clinic", map[string]string{"amenity": "clinic"}, CategoryClinic},
		{"healthcare clinic", map[string]string{"healthcare": "clinic"}, CategoryClinic},
		{"doctors", map[string]string{"amenity": "doctors"}, CategoryClinic},
		{"pharmacy", map[string]string{"amenity": "pharmacy"}, CategoryPharmacy},
		{"food bank facility", map[string]string{"amenity": "social_facility", "social_facility": "food_bank"}, CategoryFoodbank},
		{"static foodbank", map[string]string{"type": "foodbank"}, CategoryFoodbank},
		{"charity mentioning food", map[string]string{"amenity": "charity", "description": "Free food distribution"}, CategoryFoodbank},
		{"generic social facility", map[string]string{"amenity": "social_facility", "social_facility": "shelter"}, CategoryFoodbank},
		{"generic charity", map[string]string{"amenity": "charity"}, CategoryFoodbank},
		{"hospital wins over pharmacy", map[string]string{"amenity": "hospital", "healthcare": "pharmacy"}, CategoryHospital},
		{"unrelated", map[string]string{"amenity": "school"}, CategoryOther},
		{"no tags", nil, CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectCategory(tt.tags))
		})
	}
}

func TestNormalizeAll(t *testing.T) {
	t.Run("drops elements without coordinates", func(t *testing.T) {
		got := NormalizeAll([]RawElement{
			{ID: "node/1", Tags: map[string]string{"amenity": "hospital"}},
			{ID: "node/2", Lat: ptr(1), Lon: ptr(2), Tags: map[string]string{"amenity": "hospital"}},
		})
		require.Len(t, got, 1)
		assert.Equal(t, "node/2", got[0].ID)
	})

	t.Run("keeps first of duplicates", func(t *testing.T) {
		got := NormalizeAll([]RawElement{
			{ID: "node/1", Lat: ptr(24.860001), Lon: ptr(67.000001), Tags: map[string]string{"name": testCityHospital, "amenity": "hospital"}},
			{ID: "way/2", Center: &Point{Lat: 24.860004, Lng: 67.000002}, Tags: map[string]string{"name": "city hospital", "amenity": "hospital"}},
			{ID: "node/3", Lat: ptr(24.87), Lon: ptr(67.0), Tags: map[string]string{"name": testCityHospital, "amenity": "hospital"}},
		})
		require.Len(t, got, 2)
		assert.Equal(t, "node/1", got[0].ID)
		assert.Equal(t, "node/3", got[1].ID)
	})

	t.Run("every record is complete", func(t *testing.T) {
		got := NormalizeAll([]RawElement{
			{Lat: ptr(1), Lon: ptr(2)},
			{Center: &Point{Lat: 3, Lng: 4}, Tags: map[string]string{"amenity": "pharmacy"}},
		})
		for _, r := range got {
			assert.NotEmpty(t, r.Category)
			assert.NotEmpty(t, r.Address)
			assert.NotEmpty(t, r.IdentityKey)
			assert.NotEmpty(t, r.Name)
		}
	})
}

func TestServiceRecordHelpers(t *testing.T) {
	r := ServiceRecord{Latitude: 24.86, Longitude: 67}
	assert.Equal(t, EmergencyNumber, r.CallNumber())
	assert.Equal(t, "https://www.google.com/maps?q=24.86,67", r.MapURL())
	assert.True(t, r.Mappable())

	r.Phone = "021-111"
	assert.Equal(t, "021-111", r.CallNumber())

	assert.False(t, ServiceRecord{Latitude: 0, Longitude: 67}.Mappable())
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("pharmacy")
	require.NoError(t, err)
	assert.Equal(t, CategoryPharmacy, c)

	c, err = ParseCategory("")
	require.NoError(t, err)
	assert.Empty(t, c)

	_, err = ParseCategory("bakery")
	assert.Error(t, err)
}
