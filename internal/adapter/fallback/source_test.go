package fallback

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/pukaar-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDataset = `[
  {"id": 1, "name": "Civil Hospital", "type": "hospital", "address": "Baba-e-Urdu Rd, Karachi",
   "phone": "021-99215740", "lat": 24.8589, "lng": 67.0104, "rating": 4.2},
  {"id": "fb-7", "name": "Edhi Food Centre", "type": "foodbank", "lat": 24.8615, "lng": 67.0099},
  {"name": "No Coords Clinic", "type": "clinic"}
]`

func TestParse(t *testing.T) {
	got, err := Parse([]byte(testDataset))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "static", got[0].Kind)
	assert.Equal(t, "hospital", got[0].Tags["type"])
	assert.Equal(t, "Baba-e-Urdu Rd, Karachi", got[0].Tags["addr:full"])
	assert.Equal(t, "021-99215740", got[0].Tags["phone"])
	require.NotNil(t, got[0].Rating)
	assert.Equal(t, 4.2, *got[0].Rating)

	assert.Equal(t, "fb-7", got[1].ID)
	assert.Nil(t, got[1].Rating)

	assert.Empty(t, got[2].ID)
	assert.Nil(t, got[2].Lat)
}

func TestParse_NormalizesToRecords(t *testing.T) {
	raw, err := Parse([]byte(testDataset))
	require.NoError(t, err)

	records := domain.NormalizeAll(raw)
	require.Len(t, records, 2)
	assert.Equal(t, domain.CategoryHospital, records[0].Category)
	assert.Equal(t, "Baba-e-Urdu Rd, Karachi", records[0].Address)
	assert.Equal(t, "hospital_1_24.85890_67.01040", records[0].IdentityKey)
	assert.Equal(t, domain.CategoryFoodbank, records[1].Category)
	assert.Equal(t, domain.UnknownAddress, records[1].Address)
}

func TestParse_CategoryField(t *testing.T) {
	got, err := Parse([]byte(`[{"id":2,"name":"X","category":"pharmacy","lat":1,"lng":2}]`))
	require.NoError(t, err)
	assert.Equal(t, "pharmacy", got[0].Tags["type"])
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte(`{"not":"an array"}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`[{"id": true}]`))
	assert.Error(t, err)
}

func TestSource_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(testDataset), 0o600))

	got, err := NewSource(path, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSource_LoadMissingFile(t *testing.T) {
	_, err := NewSource(filepath.Join(t.TempDir(), "absent.json"), nil).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent.json")
}

func TestSource_LoadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/data.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testDataset))
	}))
	defer srv.Close()

	got, err := NewSource(srv.URL+"/json/data.json", srv.Client()).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSource_LoadURLError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewSource(srv.URL+"/json/data.json", srv.Client()).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestEncode_KeepsIdentity(t *testing.T) {
	rating, placeholder := 4.5, 3.7
	records := []domain.ServiceRecord{
		{ID: "node/1", IdentityKey: "hospital_node/1_24.86000_67.00000", Name: "City Hospital",
			Category: domain.CategoryHospital, Address: domain.UnknownAddress, Latitude: 24.86, Longitude: 67, Rating: &rating},
		{ID: "way/7", IdentityKey: "pharmacy_way/7_24.90000_67.10000", Name: "Tariq Pharmacy",
			Category: domain.CategoryPharmacy, Address: "Tariq Road", Phone: "021-3453",
			Latitude: 24.9, Longitude: 67.1, Rating: &placeholder, RatingPlaceholder: true},
	}

	data, err := Encode(records)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "3.7")

	elements, err := Parse(data)
	require.NoError(t, err)
	got := domain.NormalizeAll(elements)
	require.Len(t, got, 2)
	for i := range got {
		assert.Equal(t, records[i].IdentityKey, got[i].IdentityKey)
		assert.Equal(t, records[i].Phone, got[i].Phone)
	}
	require.NotNil(t, got[0].Rating)
	assert.Equal(t, 4.5, *got[0].Rating)
	assert.Nil(t, got[1].Rating)
}
