// Package memstore provides an in-process DocumentStore.
//
// It is the default backend for tests and single-process tools. Data does not
// survive a restart.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hireflow/careermem-go/pkg/storage"
)

// Store implements storage.DocumentStore with maps guarded by a RWMutex.
type Store struct {
	mu   sync.RWMutex
	docs map[string]map[string]*storage.Document
	now  func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		docs: make(map[string]map[string]*storage.Document),
		now:  time.Now,
	}
}

// Get retrieves a copy of a document.
func (s *Store) Get(_ context.Context, kind, key string) (*storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[kind][key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return doc.Clone(), nil
}

// Put writes a document with compare-and-swap on Version.
func (s *Store) Put(_ context.Context, doc *storage.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byKey, ok := s.docs[doc.Kind]
	if !ok {
		byKey = make(map[string]*storage.Document)
		s.docs[doc.Kind] = byKey
	}
	now := s.now().UTC()
	cur, exists := byKey[doc.Key]
	switch {
	case doc.Version == 0 && exists:
		return storage.ErrConflict
	case doc.Version != 0 && (!exists || cur.Version != doc.Version):
		return storage.ErrConflict
	}

	if exists {
		doc.CreatedAt = cur.CreatedAt
	} else {
		doc.CreatedAt = now
	}
	doc.Version++
	doc.UpdatedAt = now
	byKey[doc.Key] = doc.Clone()
	return nil
}

// Delete removes a document.
func (s *Store) Delete(_ context.Context, kind, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[kind][key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.docs[kind], key)
	return nil
}

// List returns copies of documents of kind ordered by key.
func (s *Store) List(_ context.Context, kind string, opts *storage.ListOptions) ([]*storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*storage.Document, 0, len(s.docs[kind]))
	for _, doc := range s.docs[kind] {
		if opts != nil && opts.Owner != "" && doc.Owner != opts.Owner {
			continue
		}
		out = append(out, doc.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return storage.Page(out, opts), nil
}

// Close releases the store's data.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]map[string]*storage.Document)
	return nil
}
