package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/pukaar-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func freezeClock(t *testing.T, at time.Time) *clockwork.FakeClock {
	t.Helper()
	fc := clockwork.NewFakeClockAt(at)
	domain.SetClock(fc)
	t.Cleanup(func() { domain.SetClock(nil) })
	return fc
}

func cityHospital() domain.ServiceRecord {
	return domain.ServiceRecord{
		ID:          "node/1",
		IdentityKey: "hospital_node/1_24.86000_67.00000",
		Name:        "City Hospital",
		Category:    domain.CategoryHospital,
		Address:     domain.UnknownAddress,
		Latitude:    24.86,
		Longitude:   67.0,
	}
}

// --- favorites ---

func TestToggle_AddsThenRemoves(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	saved := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	freezeClock(t, saved)
	rec := cityHospital()

	res, err := st.Toggle(ctx, rec.IdentityKey, rec)
	require.NoError(t, err)
	assert.True(t, res.Added)

	ok, err := st.Contains(ctx, rec.IdentityKey)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := st.Get(ctx, rec.IdentityKey)
	require.NoError(t, err)
	assert.Equal(t, "City Hospital", got.Name)
	assert.Equal(t, domain.CategoryHospital, got.Category)
	assert.Equal(t, saved, got.SavedAt)

	res, err = st.Toggle(ctx, rec.IdentityKey, rec)
	require.NoError(t, err)
	assert.False(t, res.Added)

	ok, err = st.Contains(ctx, rec.IdentityKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestToggle_KeyIsAuthoritative(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	rec := cityHospital()

	_, err := st.Toggle(ctx, "custom-key", rec)
	require.NoError(t, err)

	got, err := st.Get(ctx, "custom-key")
	require.NoError(t, err)
	assert.Equal(t, "custom-key", got.IdentityKey)
}

func TestList_OrderedBySavedAt(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	fc := freezeClock(t, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))

	first := cityHospital()
	second := cityHospital()
	second.IdentityKey = "pharmacy_way/2_24.90000_67.10000"
	second.Name = "Tariq Pharmacy"
	second.Category = domain.CategoryPharmacy
	second.Phone = "021-111"

	_, err := st.Toggle(ctx, second.IdentityKey, second)
	require.NoError(t, err)
	fc.Advance(time.Minute)
	_, err = st.Toggle(ctx, first.IdentityKey, first)
	require.NoError(t, err)

	got, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Tariq Pharmacy", got[0].Name)
	assert.Equal(t, "021-111", got[0].Phone)
	assert.Equal(t, "City Hospital", got[1].Name)
	assert.Equal(t, domain.EmergencyNumber, got[1].CallNumber())
}

func TestList_Empty(t *testing.T) {
	st := newTestStore(t)
	got, err := st.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRemove(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	rec := cityHospital()

	_, err := st.Toggle(ctx, rec.IdentityKey, rec)
	require.NoError(t, err)
	require.NoError(t, st.Remove(ctx, rec.IdentityKey))

	err = st.Remove(ctx, rec.IdentityKey)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = st.Get(ctx, rec.IdentityKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFavorites_PersistAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "durable.db")
	ctx := context.Background()
	rec := cityHospital()

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	_, err = st.Toggle(ctx, rec.IdentityKey, rec)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(ctx))

	ok, err := st.Contains(ctx, rec.IdentityKey)
	require.NoError(t, err)
	assert.True(t, ok)
}

// --- preferences ---

func TestPreferences_SetAndGet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetPreference(ctx, PrefDefaultCity, json.RawMessage(`"Lahore"`)))
	require.NoError(t, st.SetPreference(ctx, PrefTheme, json.RawMessage(`"dark"`)))
	require.NoError(t, st.SetPreference(ctx, PrefTheme, json.RawMessage(`"light"`)))

	got, err := st.GetPreference(ctx, PrefDefaultCity)
	require.NoError(t, err)
	assert.JSONEq(t, `"Lahore"`, string(got))

	got, err = st.GetPreference(ctx, PrefTheme)
	require.NoError(t, err)
	assert.JSONEq(t, `"light"`, string(got))
}

func TestPreferences_Missing(t *testing.T) {
	st := newTestStore(t)
	_, err := st.GetPreference(context.Background(), PrefBannerShown)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPreferences_UnknownKey(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	err := st.SetPreference(ctx, "favorites", json.RawMessage(`[]`))
	assert.ErrorIs(t, err, ErrUnknownPreference)

	_, err = st.GetPreference(ctx, "favorites")
	assert.ErrorIs(t, err, ErrUnknownPreference)
}

func TestPreferences_InvalidJSON(t *testing.T) {
	st := newTestStore(t)
	err := st.SetPreference(context.Background(), PrefTheme, json.RawMessage(`{`))
	assert.ErrorIs(t, err, ErrInvalidPreference)
}

func TestPreferences_PreferredCategoriesValidated(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetPreference(ctx, PrefPreferredCategories, json.RawMessage(`["hospital","pharmacy"]`)))
	got, err := st.GetPreference(ctx, PrefPreferredCategories)
	require.NoError(t, err)
	assert.JSONEq(t, `["hospital","pharmacy"]`, string(got))

	err = st.SetPreference(ctx, PrefPreferredCategories, json.RawMessage(`["bakery"]`))
	require.ErrorIs(t, err, ErrInvalidPreference)
	assert.Contains(t, err.Error(), "bakery")
}
