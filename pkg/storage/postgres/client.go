// Package postgres provides PostgreSQL implementation for document storage.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hireflow/careermem-go/pkg/storage/sqldoc"
)

// uniqueViolation is the SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// Client is a PostgreSQL document store client.
type Client struct {
	*sqldoc.Store
}

// Config contains PostgreSQL configuration.
type Config struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	CollectionName string
	SSLMode        string
}

// Dialect is the PostgreSQL dialect.
var Dialect = sqldoc.Dialect{
	Name:        "postgres",
	Placeholder: sqldoc.Dollar,
	CreateTable: func(table string) []string {
		return []string{
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					kind VARCHAR(64) NOT NULL,
					doc_key VARCHAR(255) NOT NULL,
					owner VARCHAR(255) NOT NULL DEFAULT '',
					data BYTEA NOT NULL,
					version BIGINT NOT NULL,
					created_at TIMESTAMPTZ NOT NULL,
					updated_at TIMESTAMPTZ NOT NULL,
					PRIMARY KEY (kind, doc_key)
				)
			`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_owner ON %s(kind, owner)`, table, table),
		}
	},
	IsUniqueViolation: func(err error) bool {
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
	},
}

// NewClient creates a new PostgreSQL client.
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	store, err := sqldoc.New(context.Background(), db, cfg.CollectionName, Dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Client{Store: store}, nil
}
