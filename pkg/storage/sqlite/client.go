// Package sqlite provides SQLite implementation for document storage.
//
// SQLite is a lightweight, file-based database suitable for local development
// and single-node deployments. Documents are stored as BLOBs next to their
// version, which makes conditional updates a single UPDATE statement.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"

	"github.com/hireflow/careermem-go/pkg/storage/sqldoc"
)

// Client implements DocumentStore using SQLite as the backend.
type Client struct {
	*sqldoc.Store
}

// Config contains configuration for creating a SQLite DocumentStore.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// CollectionName is the name of the table to use.
	CollectionName string
}

// Dialect is the SQLite dialect.
var Dialect = sqldoc.Dialect{
	Name:        "sqlite",
	Placeholder: sqldoc.QuestionMark,
	CreateTable: func(table string) []string {
		return []string{
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					kind TEXT NOT NULL,
					doc_key TEXT NOT NULL,
					owner TEXT NOT NULL DEFAULT '',
					data BLOB NOT NULL,
					version INTEGER NOT NULL,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL,
					PRIMARY KEY (kind, doc_key)
				)
			`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_owner ON %s(kind, owner)`, table, table),
		}
	},
	IsUniqueViolation: func(err error) bool {
		var sqliteErr sqlite3.Error
		return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
	},
}

// NewClient creates a new SQLite DocumentStore client.
//
// Parameters:
//   - cfg: Configuration containing database path and table name
//
// Returns:
//   - *Client: The SQLite client instance
//   - error: Error if database connection or table creation fails
func NewClient(cfg *Config) (*Client, error) {
	// Create parent directory if it doesn't exist
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	store, err := sqldoc.New(context.Background(), db, cfg.CollectionName, Dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Client{Store: store}, nil
}
