// Package storage provides interfaces and types for document storage backends.
//
// It defines the DocumentStore interface that all storage implementations must
// satisfy, and a generic Repository that layers typed access, per-key
// serialization, optimistic retries and a read cache on top of it.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrConflict is returned when a compare-and-swap write loses a race:
	// the stored version no longer matches the version the caller read.
	ErrConflict = errors.New("document version conflict")
)

// Document is one stored aggregate (a user's memory store, a conversation).
//
// Documents are addressed by (Kind, Key). Data is the encoded aggregate and is
// opaque to the store. Version starts at 1 on insert and increases by one on
// every successful update.
type Document struct {
	// Kind groups documents of one type, e.g. "memory_store".
	Kind string

	// Key is the unique key within Kind.
	Key string

	// Owner is the user that owns the document, used for listing.
	Owner string

	// Data is the encoded aggregate.
	Data []byte

	// Version is the optimistic concurrency token.
	Version int64

	// CreatedAt is when the document was first inserted.
	CreatedAt time.Time

	// UpdatedAt is when the document was last written.
	UpdatedAt time.Time
}

// Clone returns a copy of d that shares no memory with it.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Data = append([]byte(nil), d.Data...)
	return &out
}

// DocumentStore defines the interface for document storage backends.
//
// All storage implementations (memory, SQLite, PostgreSQL, MySQL, Badger) must
// implement this interface.
type DocumentStore interface {
	// Get retrieves a document. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, kind, key string) (*Document, error)

	// Put writes a document with compare-and-swap semantics.
	//
	// If doc.Version is 0 the document is inserted and Put fails with
	// ErrConflict when it already exists. Otherwise the stored version must
	// equal doc.Version or Put fails with ErrConflict.
	//
	// On success doc.Version, doc.CreatedAt and doc.UpdatedAt are set to the
	// stored values.
	Put(ctx context.Context, doc *Document) error

	// Delete removes a document. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, kind, key string) error

	// List returns documents of a kind ordered by key.
	List(ctx context.Context, kind string, opts *ListOptions) ([]*Document, error)

	// Close closes the store and releases resources.
	Close() error
}

// ListOptions contains options for List operations.
type ListOptions struct {
	// Owner filters results to a specific user.
	Owner string

	// Limit sets the maximum number of results to return (0 = no limit).
	Limit int

	// Offset sets the number of results to skip (for pagination).
	Offset int
}

// Page applies opts.Offset and opts.Limit to an already filtered and sorted
// slice. Backends that cannot paginate natively use it.
func Page[T any](items []T, opts *ListOptions) []T {
	if opts == nil {
		return items
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(items) {
			return items[:0]
		}
		items = items[opts.Offset:]
	}
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return items
}
