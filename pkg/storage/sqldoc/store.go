// Package sqldoc implements storage.DocumentStore over database/sql.
//
// The SQL backends (sqlite, postgres, mysql) share this implementation and
// differ only in their Dialect: DDL, placeholder style and how a unique-key
// violation is reported by the driver.
package sqldoc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hireflow/careermem-go/pkg/storage"
)

// DefaultTableName is the table used when none is configured.
const DefaultTableName = "careermem_documents"

// Dialect captures what differs between SQL engines.
type Dialect struct {
	// Name identifies the engine in error messages.
	Name string

	// Placeholder returns the bind parameter for the n-th argument (1-based).
	Placeholder func(n int) string

	// CreateTable returns the DDL statements that create the table and its
	// indexes if missing.
	CreateTable func(table string) []string

	// IsUniqueViolation reports whether err is a duplicate primary key error.
	IsUniqueViolation func(err error) bool
}

// QuestionMark is the placeholder style of SQLite and MySQL.
func QuestionMark(int) string { return "?" }

// Dollar is the placeholder style of PostgreSQL.
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// Store implements storage.DocumentStore over a *sql.DB.
type Store struct {
	db      *sql.DB
	table   string
	dialect Dialect
	now     func() time.Time
}

// New wraps db and creates the document table if it does not exist.
func New(ctx context.Context, db *sql.DB, table string, dialect Dialect) (*Store, error) {
	if table == "" {
		table = DefaultTableName
	}
	s := &Store{db: db, table: table, dialect: dialect, now: time.Now}
	if err := s.initTables(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) initTables(ctx context.Context) error {
	for _, stmt := range s.dialect.CreateTable(s.table) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initTables: %w", err)
		}
	}
	return nil
}

// bind rewrites ? markers in query into the dialect's placeholders.
func (s *Store) bind(query string) string {
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString(s.dialect.Placeholder(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Get retrieves a document by kind and key.
func (s *Store) Get(ctx context.Context, kind, key string) (*storage.Document, error) {
	query := s.bind(fmt.Sprintf(`
		SELECT owner, data, version, created_at, updated_at
		FROM %s
		WHERE kind = ? AND doc_key = ?
	`, s.table))

	doc := &storage.Document{Kind: kind, Key: key}
	err := s.db.QueryRowContext(ctx, query, kind, key).
		Scan(&doc.Owner, &doc.Data, &doc.Version, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return doc, nil
}

// Put inserts (Version 0) or conditionally updates a document.
func (s *Store) Put(ctx context.Context, doc *storage.Document) error {
	now := s.now().UTC()
	if doc.Version == 0 {
		return s.insert(ctx, doc, now)
	}

	query := s.bind(fmt.Sprintf(`
		UPDATE %s
		SET owner = ?, data = ?, version = version + 1, updated_at = ?
		WHERE kind = ? AND doc_key = ? AND version = ?
	`, s.table))

	result, err := s.db.ExecContext(ctx, query, doc.Owner, doc.Data, now, doc.Kind, doc.Key, doc.Version)
	if err != nil {
		return fmt.Errorf("Put: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("Put: %w", err)
	}
	if rows == 0 {
		return storage.ErrConflict
	}

	doc.Version++
	doc.UpdatedAt = now
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	return nil
}

func (s *Store) insert(ctx context.Context, doc *storage.Document, now time.Time) error {
	query := s.bind(fmt.Sprintf(`
		INSERT INTO %s
		(kind, doc_key, owner, data, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
	`, s.table))

	_, err := s.db.ExecContext(ctx, query, doc.Kind, doc.Key, doc.Owner, doc.Data, now, now)
	if err != nil {
		if s.dialect.IsUniqueViolation != nil && s.dialect.IsUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("Put: %w", err)
	}
	doc.Version = 1
	doc.CreatedAt = now
	doc.UpdatedAt = now
	return nil
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, kind, key string) error {
	query := s.bind(fmt.Sprintf(`DELETE FROM %s WHERE kind = ? AND doc_key = ?`, s.table))

	result, err := s.db.ExecContext(ctx, query, kind, key)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// List returns documents of kind ordered by key, optionally filtered by owner.
func (s *Store) List(ctx context.Context, kind string, opts *storage.ListOptions) ([]*storage.Document, error) {
	if opts == nil {
		opts = &storage.ListOptions{}
	}
	whereClause, args := buildWhereClause(kind, opts.Owner)

	query := fmt.Sprintf(`
		SELECT doc_key, owner, data, version, created_at, updated_at
		FROM %s
		%s
		ORDER BY doc_key
	`, s.table, whereClause)

	limit := opts.Limit
	if limit <= 0 && opts.Offset > 0 {
		limit = math.MaxInt32
	}
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, s.bind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []*storage.Document
	for rows.Next() {
		doc := &storage.Document{Kind: kind}
		if err := rows.Scan(&doc.Key, &doc.Owner, &doc.Data, &doc.Version, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return docs, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// buildWhereClause builds the WHERE clause for List.
func buildWhereClause(kind, owner string) (string, []interface{}) {
	conditions := []string{"kind = ?"}
	args := []interface{}{kind}

	if owner != "" {
		conditions = append(conditions, "owner = ?")
		args = append(args, owner)
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}
