package storage

import (
	"path/filepath"
	"testing"

	"dynamic-sky/internal/astro"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "nested", "astro.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAstroCache_Empty(t *testing.T) {
	entry, err := openTestDB(t).AstroCache().Load()
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestAstroCache_SaveLoadLatest(t *testing.T) {
	cache := openTestDB(t).AstroCache()
	phase := 0.25

	require.NoError(t, cache.Save(&astro.CacheEntry{
		Forecast: astro.Forecast{Daily: []astro.DailyEntry{{Sunrise: 10, Sunset: 20}}},
		TS:       100,
		Source:   "openweather",
	}))
	require.NoError(t, cache.Save(&astro.CacheEntry{
		Forecast: astro.Forecast{Daily: []astro.DailyEntry{{Sunrise: 30, Sunset: 40, MoonPhase: &phase}}},
		TS:       200,
		Source:   "offline",
	}))

	got, err := cache.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(200), got.TS)
	assert.Equal(t, "offline", got.Source)
	require.Len(t, got.Daily, 1)
	assert.Equal(t, int64(30), got.Daily[0].Sunrise)
	require.NotNil(t, got.Daily[0].MoonPhase)
	assert.InDelta(t, 0.25, *got.Daily[0].MoonPhase, 1e-9)
}

func TestAstroCache_Prunes(t *testing.T) {
	db := openTestDB(t)
	cache := db.AstroCache()
	for i := 0; i < keepEntries+5; i++ {
		require.NoError(t, cache.Save(&astro.CacheEntry{TS: int64(i + 1)}))
	}

	n, err := db.CountEntries()
	require.NoError(t, err)
	assert.Equal(t, int64(keepEntries), n)

	latest, err := cache.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(keepEntries+5), latest.TS)
}
