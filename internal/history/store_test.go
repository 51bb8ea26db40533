package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SaveAndLatest(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	_, err := store.Save(ctx, Snapshot{DocumentID: "doc1", PeriodLabel: "week 1", Content: "old", CreatedAt: base})
	require.NoError(t, err)
	id, err := store.Save(ctx, Snapshot{DocumentID: "doc1", PeriodLabel: "week 2", Content: "newer", CreatedAt: base.Add(time.Hour)})
	require.NoError(t, err)
	_, err = store.Save(ctx, Snapshot{DocumentID: "doc2", PeriodLabel: "week 2", Content: "other", CreatedAt: base.Add(2 * time.Hour)})
	require.NoError(t, err)

	latest, err := store.Latest(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, id, latest.ID)
	assert.Equal(t, "newer", latest.Content)
	assert.Equal(t, "week 2", latest.PeriodLabel)
	assert.True(t, latest.CreatedAt.Equal(base.Add(time.Hour)))
}

func TestStore_Latest_NoSnapshot(t *testing.T) {
	_, err := openTestStore(t).Latest(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestStore_Save_DefaultsCreatedAt(t *testing.T) {
	store := openTestStore(t)
	fixed := time.Date(2026, 10, 23, 17, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	_, err := store.Save(context.Background(), Snapshot{DocumentID: "doc1", Content: "x"})
	require.NoError(t, err)

	latest, err := store.Latest(context.Background(), "doc1")
	require.NoError(t, err)
	assert.True(t, latest.CreatedAt.Equal(fixed))
}

func TestStore_Save_RequiresDocumentID(t *testing.T) {
	_, err := openTestStore(t).Save(context.Background(), Snapshot{Content: "x"})
	assert.Error(t, err)
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	for i, doc := range []string{"a", "b", "c"} {
		_, err := store.Save(ctx, Snapshot{DocumentID: doc, Content: doc, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}

	testCases := []struct {
		name     string
		limit    int
		expected []string
	}{
		{name: "limited", limit: 2, expected: []string{"c", "b"}},
		{name: "no limit", limit: 0, expected: []string{"c", "b", "a"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			snaps, err := store.List(ctx, tc.limit)
			require.NoError(t, err)
			var docs []string
			for _, s := range snaps {
				docs = append(docs, s.DocumentID)
			}
			assert.Equal(t, tc.expected, docs)
		})
	}
}

func TestOpen_ReopensExistingArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	store, err := Open(path)
	require.NoError(t, err)
	_, err = store.Save(context.Background(), Snapshot{DocumentID: "doc1", Content: "kept"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	latest, err := reopened.Latest(context.Background(), "doc1")
	require.NoError(t, err)
	assert.Equal(t, "kept", latest.Content)
}
