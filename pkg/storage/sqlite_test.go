package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "scans.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SaveRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i := range 3 {
		rec := Record{
			At:          base.Add(time.Duration(i) * time.Minute),
			Intensities: []float64{float64(i), 1.5, 2, 3, 4, 5},
			Window:      i,
		}
		require.NoError(t, store.Save(ctx, rec))
	}

	recent, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	assert.Equal(t, 2, recent[0].Window)
	assert.Equal(t, 1, recent[1].Window)
	assert.True(t, recent[0].At.Equal(base.Add(2*time.Minute)))
	assert.Equal(t, []float64{2, 1.5, 2, 3, 4, 5}, recent[0].Intensities)

	_, err = uuid.Parse(recent[0].ID)
	assert.NoError(t, err, "generated ids are uuids")
	assert.NotEqual(t, recent[0].ID, recent[1].ID)
}

func TestSQLiteStore_KeepsGivenID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Record{ID: "run-1", Intensities: make([]float64, 6), Window: -1}))

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "run-1", recent[0].ID)
	assert.Equal(t, -1, recent[0].Window)
	assert.False(t, recent[0].At.IsZero())
}

func TestSQLiteStore_RejectsWrongLength(t *testing.T) {
	store := openTestStore(t)

	err := store.Save(context.Background(), Record{Intensities: []float64{1, 2}})
	assert.ErrorIs(t, err, ErrBlobSize)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scans.db")
	ctx := context.Background()

	store, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, Record{Intensities: []float64{1, 2, 3, 4, 5, 6}}))
	require.NoError(t, store.Close())

	store, err = OpenSQLite(path)
	require.NoError(t, err)
	defer store.Close()

	recent, err := store.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}
