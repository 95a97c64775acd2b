// Package sqlite is the embedded ledger store. It uses modernc.org/sqlite
// (pure Go, no CGO) in WAL mode. Every write unit of work starts with
// BEGIN IMMEDIATE, so concurrent writers queue on the database lock
// instead of failing part way through.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sokohub/soko/internal/domain"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements domain.Queries over either the pool or a transaction.
type queries struct {
	c execer
}

// DB wraps a SQLite connection pool.
type DB struct {
	queries
	db   *sql.DB
	path string
}

var _ domain.Store = (*DB)(nil)

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := "file:" + path +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(10000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(8)

	db := &DB{queries: queries{c: sqlDB}, db: sqlDB, path: path}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

// Close closes the connection pool.
func (db *DB) Close() error { return db.db.Close() }

// WithTx runs fn inside one IMMEDIATE transaction.
func (db *DB) WithTx(ctx context.Context, fn func(q domain.Queries) error) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(queries{c: tx}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Snapshot runs fn inside one read transaction. A read-only BEGIN is deferred,
// so under WAL it sees a fixed snapshot without blocking writers.
func (db *DB) Snapshot(ctx context.Context, fn func(q domain.Queries) error) error {
	tx, err := db.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	return fn(queries{c: tx})
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// mapErr converts driver errors into domain error kinds.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return domain.Wrap(domain.ErrConflict, op, err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, sqlite3.SQLITE_CONSTRAINT_CHECK:
			return domain.Wrap(domain.ErrValidation, op, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func notFound(op, what string, key any) error {
	return domain.Errorf(domain.ErrNotFound, op, "%s %v not found", what, key)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// tsLayout is fixed width so that text comparison orders timestamps correctly.
// RFC3339Nano trims trailing zeros and would sort "05Z" after "05.5Z".
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

func ts(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseTS(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
