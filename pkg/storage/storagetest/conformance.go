// Package storagetest holds the behaviour every storage.DocumentStore backend
// must share, as a reusable test suite.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireflow/careermem-go/pkg/storage"
)

// Run exercises store against the DocumentStore contract. The store must be
// empty for the kinds used here ("test_a", "test_b").
func Run(t *testing.T, store storage.DocumentStore) {
	t.Run("GetMissing", func(t *testing.T) {
		_, err := store.Get(context.Background(), "test_a", "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("InsertAndGet", func(t *testing.T) {
		ctx := context.Background()
		doc := &storage.Document{Kind: "test_a", Key: "k1", Owner: "u1", Data: []byte(`{"n":1}`)}
		require.NoError(t, store.Put(ctx, doc))
		assert.Equal(t, int64(1), doc.Version)
		assert.False(t, doc.CreatedAt.IsZero())

		got, err := store.Get(ctx, "test_a", "k1")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.Owner)
		assert.Equal(t, []byte(`{"n":1}`), got.Data)
		assert.Equal(t, int64(1), got.Version)
	})

	t.Run("DuplicateInsertConflicts", func(t *testing.T) {
		doc := &storage.Document{Kind: "test_a", Key: "k1", Owner: "u1", Data: []byte(`{}`)}
		assert.ErrorIs(t, store.Put(context.Background(), doc), storage.ErrConflict)
	})

	t.Run("CompareAndSwap", func(t *testing.T) {
		ctx := context.Background()
		cur, err := store.Get(ctx, "test_a", "k1")
		require.NoError(t, err)

		stale := cur.Clone()

		cur.Data = []byte(`{"n":2}`)
		require.NoError(t, store.Put(ctx, cur))
		assert.Equal(t, int64(2), cur.Version)

		stale.Data = []byte(`{"n":99}`)
		assert.ErrorIs(t, store.Put(ctx, stale), storage.ErrConflict)

		got, err := store.Get(ctx, "test_a", "k1")
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"n":2}`), got.Data)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("UpdateMissingConflicts", func(t *testing.T) {
		doc := &storage.Document{Kind: "test_a", Key: "ghost", Data: []byte(`{}`), Version: 3}
		assert.ErrorIs(t, store.Put(context.Background(), doc), storage.ErrConflict)
	})

	t.Run("List", func(t *testing.T) {
		ctx := context.Background()
		for _, d := range []struct{ key, owner string }{{"b", "u2"}, {"a", "u1"}, {"c", "u2"}} {
			require.NoError(t, store.Put(ctx, &storage.Document{Kind: "test_b", Key: d.key, Owner: d.owner, Data: []byte(`{}`)}))
		}

		all, err := store.List(ctx, "test_b", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, keys(all))

		owned, err := store.List(ctx, "test_b", &storage.ListOptions{Owner: "u2"})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c"}, keys(owned))

		page, err := store.List(ctx, "test_b", &storage.ListOptions{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, keys(page))

		tail, err := store.List(ctx, "test_b", &storage.ListOptions{Offset: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, keys(tail))
	})

	t.Run("Delete", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, store.Delete(ctx, "test_b", "a"))
		_, err := store.Get(ctx, "test_b", "a")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, "test_b", "a"), storage.ErrNotFound)
	})
}

func keys(docs []*storage.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Key
	}
	return out
}
