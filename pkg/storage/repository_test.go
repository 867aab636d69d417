package storage_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireflow/careermem-go/pkg/storage"
	"github.com/hireflow/careermem-go/pkg/storage/memstore"
)

type counter struct {
	Owner string `json:"owner"`
	N     int    `json:"n"`
}

// flakyStore fails the next conflicts Put calls with ErrConflict.
type flakyStore struct {
	storage.DocumentStore
	conflicts atomic.Int32
	puts      atomic.Int32
}

func (f *flakyStore) Put(ctx context.Context, doc *storage.Document) error {
	f.puts.Add(1)
	if f.conflicts.Load() > 0 {
		f.conflicts.Add(-1)
		return storage.ErrConflict
	}
	return f.DocumentStore.Put(ctx, doc)
}

func increment(c *counter, _ bool) error {
	c.N++
	return nil
}

func TestRepositoryMutateCreatesAndUpdates(t *testing.T) {
	repo := storage.NewRepository[counter](memstore.New(), "counter")
	ctx := context.Background()

	var sawExists []bool
	fn := func(c *counter, exists bool) error {
		sawExists = append(sawExists, exists)
		c.Owner = "u1"
		c.N++
		return nil
	}

	got, err := repo.Mutate(ctx, "k", "u1", fn)
	require.NoError(t, err)
	assert.Equal(t, 1, got.N)

	got, err = repo.Mutate(ctx, "k", "u1", fn)
	require.NoError(t, err)
	assert.Equal(t, 2, got.N)
	assert.Equal(t, []bool{false, true}, sawExists)

	loaded, err := repo.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.N)
}

func TestRepositoryLoadMissing(t *testing.T) {
	repo := storage.NewRepository[counter](memstore.New(), "counter")
	_, err := repo.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRepositorySkipWrite(t *testing.T) {
	store := &flakyStore{DocumentStore: memstore.New()}
	repo := storage.NewRepository[counter](store, "counter")

	got, err := repo.Mutate(context.Background(), "k", "u1", func(c *counter, exists bool) error {
		c.N = 7
		return storage.ErrSkipWrite
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got.N)
	assert.Zero(t, store.puts.Load())
}

func TestRepositoryCallbackError(t *testing.T) {
	repo := storage.NewRepository[counter](memstore.New(), "counter")
	boom := errors.New("boom")

	_, err := repo.Mutate(context.Background(), "k", "u1", func(*counter, bool) error { return boom })
	assert.ErrorIs(t, err, boom)

	_, err = repo.Load(context.Background(), "k")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRepositoryRetriesConflicts(t *testing.T) {
	store := &flakyStore{DocumentStore: memstore.New()}
	store.conflicts.Store(2)
	repo := storage.NewRepository[counter](store, "counter")

	calls := 0
	got, err := repo.Mutate(context.Background(), "k", "u1", func(c *counter, exists bool) error {
		calls++
		c.N++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got.N)
	assert.Equal(t, 3, calls)
}

func TestRepositoryGivesUpAfterMaxRetries(t *testing.T) {
	store := &flakyStore{DocumentStore: memstore.New()}
	store.conflicts.Store(10)
	repo := storage.NewRepository[counter](store, "counter", storage.WithMaxRetries(2))

	_, err := repo.Mutate(context.Background(), "k", "u1", increment)
	assert.ErrorIs(t, err, storage.ErrConflict)
	assert.Equal(t, int32(3), store.puts.Load())
}

func TestRepositoryReloadsAfterExternalWrite(t *testing.T) {
	store := memstore.New()
	cache, err := storage.NewCache(1 << 20)
	require.NoError(t, err)
	defer cache.Close()

	repo := storage.NewRepository[counter](store, "counter", storage.WithCache(cache, time.Minute))
	ctx := context.Background()

	_, err = repo.Mutate(ctx, "k", "u1", increment)
	require.NoError(t, err)
	cache.Wait()

	// another process bumps the document behind the cache's back
	other := storage.NewRepository[counter](store, "counter")
	_, err = other.Mutate(ctx, "k", "u1", increment)
	require.NoError(t, err)

	got, err := repo.Mutate(ctx, "k", "u1", increment)
	require.NoError(t, err)
	assert.Equal(t, 3, got.N)
}

func TestRepositorySerializesPerKey(t *testing.T) {
	repo := storage.NewRepository[counter](memstore.New(), "counter", storage.WithMaxRetries(0))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Mutate(ctx, "shared", "u1", increment)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.Load(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, 50, got.N)
}

func TestRepositoryListAndDelete(t *testing.T) {
	repo := storage.NewRepository[counter](memstore.New(), "counter")
	ctx := context.Background()

	for _, k := range []string{"a", "b"} {
		_, err := repo.Mutate(ctx, k, "u1", increment)
		require.NoError(t, err)
	}

	keys, err := repo.Keys(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, repo.Delete(ctx, "a"))
	all, err := repo.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.ErrorIs(t, repo.Delete(ctx, "a"), storage.ErrNotFound)
}

func TestKeyedMutexReleasesKeys(t *testing.T) {
	km := storage.NewKeyedMutex()
	unlock := km.Lock("a")
	assert.Equal(t, 1, km.Len())
	unlock()
	assert.Equal(t, 0, km.Len())
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4}
	assert.Equal(t, []int{2, 3}, storage.Page(items, &storage.ListOptions{Offset: 1, Limit: 2}))
	assert.Empty(t, storage.Page(items, &storage.ListOptions{Offset: 9}))
	assert.Equal(t, items, storage.Page(items, nil))
}
