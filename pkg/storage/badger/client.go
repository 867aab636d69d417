// Package badger provides an embedded BadgerDB implementation for document
// storage.
//
// Each document is one key ("doc/<kind>/<key>") whose value is a msgpack
// record holding the owner, data, version and timestamps. Compare-and-swap
// runs inside a Badger read-write transaction, so concurrent writers from the
// same process are also caught by Badger's own conflict detection.
package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/hireflow/careermem-go/pkg/logging"
	"github.com/hireflow/careermem-go/pkg/storage"
)

const keyPrefix = "doc/"

// Client implements DocumentStore using BadgerDB.
type Client struct {
	db  *badger.DB
	now func() time.Time
}

// Config contains Badger configuration.
type Config struct {
	// Dir is the directory for BadgerDB data files. Required unless InMemory.
	Dir string

	// InMemory runs BadgerDB without disk persistence.
	InMemory bool

	// Logger receives Badger warnings and errors. Nil silences Badger.
	Logger logging.Logger
}

// record is the stored value of a document.
type record struct {
	Owner     string    `msgpack:"owner"`
	Data      []byte    `msgpack:"data"`
	Version   int64     `msgpack:"version"`
	CreatedAt time.Time `msgpack:"created_at"`
	UpdatedAt time.Time `msgpack:"updated_at"`
}

// NewClient opens a Badger database.
func NewClient(cfg *Config) (*Client, error) {
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, errors.New("NewBadgerClient: Dir is required for on-disk mode")
	}
	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	if cfg.Logger != nil {
		opts = opts.WithLogger(badgerLogger{cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("NewBadgerClient: %w", err)
	}
	return &Client{db: db, now: time.Now}, nil
}

func docKey(kind, key string) []byte {
	return []byte(keyPrefix + kind + "/" + key)
}

// Get retrieves a document.
func (c *Client) Get(_ context.Context, kind, key string) (*storage.Document, error) {
	var rec record
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(docKey(kind, key))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return msgpack.Unmarshal(val, &rec)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return rec.document(kind, key), nil
}

// Put writes a document with compare-and-swap on Version.
func (c *Client) Put(_ context.Context, doc *storage.Document) error {
	now := c.now().UTC()
	var stored record
	err := c.db.Update(func(txn *badger.Txn) error {
		k := docKey(doc.Kind, doc.Key)
		var cur record
		item, err := txn.Get(k)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			if doc.Version != 0 {
				return storage.ErrConflict
			}
			cur.CreatedAt = now
		case err != nil:
			return err
		default:
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := msgpack.Unmarshal(val, &cur); err != nil {
				return err
			}
			if doc.Version == 0 || cur.Version != doc.Version {
				return storage.ErrConflict
			}
		}

		stored = record{
			Owner:     doc.Owner,
			Data:      doc.Data,
			Version:   doc.Version + 1,
			CreatedAt: cur.CreatedAt,
			UpdatedAt: now,
		}
		val, err := msgpack.Marshal(&stored)
		if err != nil {
			return err
		}
		return txn.Set(k, val)
	})
	if errors.Is(err, storage.ErrConflict) || errors.Is(err, badger.ErrConflict) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("Put: %w", err)
	}

	doc.Version = stored.Version
	doc.CreatedAt = stored.CreatedAt
	doc.UpdatedAt = stored.UpdatedAt
	return nil
}

// Delete removes a document.
func (c *Client) Delete(_ context.Context, kind, key string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		k := docKey(kind, key)
		if _, err := txn.Get(k); err != nil {
			return err
		}
		return txn.Delete(k)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

// List returns documents of kind in key order.
func (c *Client) List(ctx context.Context, kind string, opts *storage.ListOptions) ([]*storage.Document, error) {
	prefix := []byte(keyPrefix + kind + "/")
	var docs []*storage.Document

	err := c.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			var rec record
			if err := msgpack.Unmarshal(val, &rec); err != nil {
				return err
			}
			if opts != nil && opts.Owner != "" && rec.Owner != opts.Owner {
				continue
			}
			key := strings.TrimPrefix(string(item.Key()), string(prefix))
			docs = append(docs, rec.document(kind, key))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return storage.Page(docs, opts), nil
}

// Close closes the database.
func (c *Client) Close() error {
	return c.db.Close()
}

func (r record) document(kind, key string) *storage.Document {
	return &storage.Document{
		Kind:      kind,
		Key:       key,
		Owner:     r.Owner,
		Data:      r.Data,
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// badgerLogger routes Badger warnings and errors to a logging.Logger and
// drops its info and debug chatter.
type badgerLogger struct {
	l logging.Logger
}

func (b badgerLogger) Errorf(f string, v ...interface{}) {
	b.l.Error(strings.TrimSpace(fmt.Sprintf(f, v...)), "component", "badger")
}

func (b badgerLogger) Warningf(f string, v ...interface{}) {
	b.l.Warn(strings.TrimSpace(fmt.Sprintf(f, v...)), "component", "badger")
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
