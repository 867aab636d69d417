// Package mysql provides a MySQL implementation of storage.DocumentStore.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/hireflow/careermem-go/pkg/storage/sqldoc"
)

// duplicateEntry is the server error number for duplicate keys.
const duplicateEntry = 1062

// Client is a MySQL document store client.
type Client struct {
	*sqldoc.Store
}

// Config contains MySQL configuration.
type Config struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	CollectionName string
}

// Dialect is the MySQL dialect. Keys are limited to 191 characters so the
// composite primary key fits the utf8mb4 index size limit.
var Dialect = sqldoc.Dialect{
	Name:        "mysql",
	Placeholder: sqldoc.QuestionMark,
	CreateTable: func(table string) []string {
		return []string{
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					kind VARCHAR(64) NOT NULL,
					doc_key VARCHAR(191) NOT NULL,
					owner VARCHAR(191) NOT NULL DEFAULT '',
					data LONGBLOB NOT NULL,
					version BIGINT NOT NULL,
					created_at DATETIME(6) NOT NULL,
					updated_at DATETIME(6) NOT NULL,
					PRIMARY KEY (kind, doc_key),
					INDEX idx_kind_owner (kind, owner)
				)
			`, table),
		}
	},
	IsUniqueViolation: func(err error) bool {
		var mysqlErr *mysql.MySQLError
		return errors.As(err, &mysqlErr) && mysqlErr.Number == duplicateEntry
	},
}

// NewClient creates a new MySQL client.
func NewClient(cfg *Config) (*Client, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
	}

	store, err := sqldoc.New(context.Background(), db, cfg.CollectionName, Dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Client{Store: store}, nil
}
