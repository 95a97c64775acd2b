// Package postgres is the server ledger store, built on pgx and pgxpool.
// Order rows are locked with SELECT ... FOR UPDATE inside a unit of work;
// multi-balance reads run in REPEATABLE READ so they share one snapshot.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sokohub/soko/internal/domain"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type queries struct {
	c querier
}

// Store is a Postgres-backed domain.Store.
type Store struct {
	queries
	pool *pgxpool.Pool
}

var _ domain.Store = (*Store)(nil)

// Options tunes the connection pool.
type Options struct {
	MaxConns int32
}

// Open connects to url, pings the server and applies the schema.
func Open(ctx context.Context, url string, opts Options) (*Store, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is not set")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	cfg.MinConns = 0
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	s := &Store{queries: queries{c: pool}, pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range Migrations() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases every pooled connection.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// WithTx runs fn in one READ COMMITTED transaction. Order rows read with
// lock=true stay locked until commit.
func (s *Store) WithTx(ctx context.Context, fn func(q domain.Queries) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(queries{c: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapErr("commit", err)
	}
	return nil
}

// Snapshot runs fn in a read-only REPEATABLE READ transaction.
func (s *Store) Snapshot(ctx context.Context, fn func(q domain.Queries) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)
	return fn(queries{c: tx})
}

// ─── Helpers ────────────────────────────────────────────────────────────────

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return domain.Wrap(domain.ErrConflict, op, err)
		case codeForeignKeyViolation, codeCheckViolation:
			return domain.Wrap(domain.ErrValidation, op, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func notFound(op, what string, key any) error {
	return domain.Errorf(domain.ErrNotFound, op, "%s %v not found", what, key)
}
