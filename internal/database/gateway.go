// Package database provides the PostgreSQL persistence gateway.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/R3E-Network/submission_review/internal/logging"
	"github.com/R3E-Network/submission_review/internal/storage"
)

// SQLSTATE codes mapped onto storage sentinels.
const (
	uniqueViolation           = "23505"
	foreignKeyViolation       = "23503"
	invalidTextRepresentation = "22P02"
)

// Config holds database configuration.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Querier is the statement surface shared by the gateway and a transaction.
type Querier interface {
	// Execute runs a statement and returns the number of affected rows.
	Execute(ctx context.Context, query string, args ...any) (int64, error)
	// QueryOne scans exactly one row into dest; storage.ErrNotFound when empty.
	QueryOne(ctx context.Context, dest any, query string, args ...any) error
	// QueryMany scans all rows into the slice pointed to by dest.
	QueryMany(ctx context.Context, dest any, query string, args ...any) error
}

// Gateway wraps a sqlx pool.
type Gateway struct {
	db  *sqlx.DB
	log *logging.Logger
	q   runner
}

var _ Querier = (*Gateway)(nil)

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, cfg Config, log *logging.Logger) (*Gateway, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(db, log), nil
}

// New wraps an existing handle.
func New(db *sqlx.DB, log *logging.Logger) *Gateway {
	if log == nil {
		log = logging.NewDefault("database")
	}
	return &Gateway{db: db, log: log, q: runner{ext: db}}
}

// DB exposes the underlying *sql.DB for migrations.
func (g *Gateway) DB() *sql.DB { return g.db.DB }

func (g *Gateway) Ping(ctx context.Context) error { return g.db.PingContext(ctx) }

func (g *Gateway) Close() error { return g.db.Close() }

func (g *Gateway) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	return g.q.Execute(ctx, query, args...)
}

func (g *Gateway) QueryOne(ctx context.Context, dest any, query string, args ...any) error {
	return g.q.QueryOne(ctx, dest, query, args...)
}

func (g *Gateway) QueryMany(ctx context.Context, dest any, query string, args ...any) error {
	return g.q.QueryMany(ctx, dest, query, args...)
}

// Transaction runs fn inside a transaction bound to ctx. It commits when fn
// returns nil and rolls back on error or panic; cancelling ctx aborts it.
func (g *Gateway) Transaction(ctx context.Context, fn func(q Querier) error) (err error) {
	tx, err := g.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(runner{ext: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			g.log.WithError(rbErr).Warn("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", translate(err))
	}
	return nil
}

type runner struct {
	ext sqlx.ExtContext
}

func (r runner) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r runner) QueryOne(ctx context.Context, dest any, query string, args ...any) error {
	if err := sqlx.GetContext(ctx, r.ext, dest, query, args...); err != nil {
		return translate(err)
	}
	return nil
}

func (r runner) QueryMany(ctx context.Context, dest any, query string, args ...any) error {
	if err := sqlx.SelectContext(ctx, r.ext, dest, query, args...); err != nil {
		return translate(err)
	}
	return nil
}

// translate maps driver errors onto storage sentinels.
func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", storage.ErrDuplicate, pqErr.Constraint)
		case foreignKeyViolation:
			return fmt.Errorf("%w: %s", storage.ErrNotFound, pqErr.Constraint)
		case invalidTextRepresentation:
			// A malformed UUID key cannot match any row.
			return fmt.Errorf("%w: %s", storage.ErrNotFound, pqErr.Message)
		}
	}
	return err
}
