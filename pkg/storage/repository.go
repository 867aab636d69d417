package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/hireflow/careermem-go/pkg/logging"
)

// DefaultMaxRetries is the number of times a mutation is retried after a
// version conflict.
const DefaultMaxRetries = 3

// ErrSkipWrite can be returned by a Mutate callback to finish without
// writing. Mutate then returns the callback's value unsaved and a nil error.
var ErrSkipWrite = errors.New("skip write")

// Repository provides typed access to documents of one kind.
//
// Every mutation of a key runs under a per-key lock, on a freshly decoded copy
// of the document, and lands with a compare-and-swap write. A lost race (for
// example against another process) reloads the document and reruns the
// callback, up to MaxRetries times.
//
// Example usage:
//
//	repo := NewRepository[memory.UserStore](store, "memory_store")
//	updated, err := repo.Mutate(ctx, userID, userID, func(s *memory.UserStore, exists bool) error {
//	    s.Entries = append(s.Entries, entry)
//	    return nil
//	})
type Repository[T any] struct {
	store DocumentStore
	kind  string
	locks *KeyedMutex
	opts  *RepositoryOptions
}

// RepositoryOptions contains optional repository settings.
type RepositoryOptions struct {
	// Cache holds recently read documents. Nil disables caching.
	Cache *ristretto.Cache

	// CacheTTL bounds how long a cached document is served. Default: 5m
	CacheTTL time.Duration

	// MaxRetries is the number of reruns after a conflict. Default: 3
	MaxRetries int

	// Logger receives conflict and cache diagnostics.
	Logger logging.Logger
}

// RepositoryOption is a function type for configuring a Repository.
type RepositoryOption func(*RepositoryOptions)

// WithCache enables the read cache.
func WithCache(cache *ristretto.Cache, ttl time.Duration) RepositoryOption {
	return func(o *RepositoryOptions) {
		o.Cache = cache
		o.CacheTTL = ttl
	}
}

// WithMaxRetries sets the number of reruns after a version conflict.
func WithMaxRetries(n int) RepositoryOption {
	return func(o *RepositoryOptions) {
		o.MaxRetries = n
	}
}

// WithRepositoryLogger sets the repository logger.
func WithRepositoryLogger(l logging.Logger) RepositoryOption {
	return func(o *RepositoryOptions) {
		o.Logger = l
	}
}

// NewCache creates a read cache sized for maxBytes of encoded documents.
func NewCache(maxBytes int64) (*ristretto.Cache, error) {
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	return ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
}

// NewRepository creates a repository for documents of kind in store.
func NewRepository[T any](store DocumentStore, kind string, opts ...RepositoryOption) *Repository[T] {
	options := &RepositoryOptions{
		CacheTTL:   5 * time.Minute,
		MaxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.MaxRetries < 0 {
		options.MaxRetries = 0
	}
	if options.Logger == nil {
		options.Logger = logging.NoOpLogger{}
	}
	return &Repository[T]{
		store: store,
		kind:  kind,
		locks: NewKeyedMutex(),
		opts:  options,
	}
}

// Kind returns the document kind managed by the repository.
func (r *Repository[T]) Kind() string {
	return r.kind
}

// Load returns a freshly decoded copy of the document at key. Returns
// ErrNotFound if it does not exist.
//
// Cache hits are lock-free. A miss takes the key's lock so that filling the
// cache can never overwrite a newer version written concurrently.
func (r *Repository[T]) Load(ctx context.Context, key string) (*T, error) {
	if doc, ok := r.cached(key); ok {
		return r.decode(doc)
	}
	unlock := r.locks.Lock(key)
	defer unlock()
	doc, err := r.get(ctx, key, true)
	if err != nil {
		return nil, err
	}
	return r.decode(doc)
}

// Mutate applies fn to the document at key and writes the result.
//
// fn receives a fresh copy of the stored value, or a zero value with exists
// false when there is none. Returning ErrSkipWrite ends the mutation without
// a write; any other error aborts it and is returned as is.
//
// Parameters:
//   - ctx: Context for cancellation
//   - key: Document key
//   - owner: Owning user, recorded for listing; empty keeps the stored owner
//   - fn: The mutation; it may run more than once on conflicts
//
// Returns the value as written, or ErrConflict wrapped with the key when
// every attempt lost a race.
func (r *Repository[T]) Mutate(ctx context.Context, key, owner string, fn func(cur *T, exists bool) error) (*T, error) {
	unlock := r.locks.Lock(key)
	defer unlock()

	for attempt := 0; attempt <= r.opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// the cache may be stale across processes; retries go to the store
		doc, err := r.get(ctx, key, attempt == 0)
		exists := err == nil
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}

		var value *T
		if exists {
			if value, err = r.decode(doc); err != nil {
				return nil, err
			}
		} else {
			value = new(T)
			doc = &Document{Kind: r.kind, Key: key}
		}

		if err := fn(value, exists); err != nil {
			if errors.Is(err, ErrSkipWrite) {
				return value, nil
			}
			return nil, err
		}

		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("Mutate: encode %s/%s: %w", r.kind, key, err)
		}
		if owner == "" {
			owner = doc.Owner
		}
		next := &Document{
			Kind:      r.kind,
			Key:       key,
			Owner:     owner,
			Data:      data,
			Version:   doc.Version,
			CreatedAt: doc.CreatedAt,
		}
		err = r.store.Put(ctx, next)
		if errors.Is(err, ErrConflict) {
			r.evict(key)
			r.opts.Logger.Warn("document version conflict",
				"kind", r.kind, "key", key, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, err
		}

		r.remember(next)
		return value, nil
	}
	return nil, fmt.Errorf("Mutate %s/%s: %w after %d retries", r.kind, key, ErrConflict, r.opts.MaxRetries)
}

// Delete removes the document at key.
func (r *Repository[T]) Delete(ctx context.Context, key string) error {
	unlock := r.locks.Lock(key)
	defer unlock()

	r.evict(key)
	return r.store.Delete(ctx, r.kind, key)
}

// List decodes documents of the repository's kind.
func (r *Repository[T]) List(ctx context.Context, opts *ListOptions) ([]*T, error) {
	docs, err := r.store.List(ctx, r.kind, opts)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		value, err := r.decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

// Keys returns the keys of documents of the repository's kind.
func (r *Repository[T]) Keys(ctx context.Context, opts *ListOptions) ([]string, error) {
	docs, err := r.store.List(ctx, r.kind, opts)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(docs))
	for i, doc := range docs {
		keys[i] = doc.Key
	}
	return keys, nil
}

func (r *Repository[T]) cached(key string) (*Document, bool) {
	if r.opts.Cache == nil {
		return nil, false
	}
	v, ok := r.opts.Cache.Get(r.cacheKey(key))
	if !ok {
		return nil, false
	}
	doc, ok := v.(*Document)
	return doc, ok
}

// get must be called with the key's lock held.
func (r *Repository[T]) get(ctx context.Context, key string, useCache bool) (*Document, error) {
	if useCache {
		if doc, ok := r.cached(key); ok {
			return doc, nil
		}
	}
	doc, err := r.store.Get(ctx, r.kind, key)
	if err != nil {
		return nil, err
	}
	r.remember(doc)
	return doc, nil
}

func (r *Repository[T]) decode(doc *Document) (*T, error) {
	value := new(T)
	if err := json.Unmarshal(doc.Data, value); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", doc.Kind, doc.Key, err)
	}
	return value, nil
}

func (r *Repository[T]) remember(doc *Document) {
	if r.opts.Cache == nil {
		return
	}
	r.opts.Cache.SetWithTTL(r.cacheKey(doc.Key), doc.Clone(), int64(len(doc.Data))+1, r.opts.CacheTTL)
	// new keys are buffered; make the write visible before the lock is released
	r.opts.Cache.Wait()
}

func (r *Repository[T]) evict(key string) {
	if r.opts.Cache != nil {
		r.opts.Cache.Del(r.cacheKey(key))
		r.opts.Cache.Wait()
	}
}

func (r *Repository[T]) cacheKey(key string) string {
	return r.kind + "/" + key
}
