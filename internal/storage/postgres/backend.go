// Package postgres implements storage.Backend on pgx. Units run at
// REPEATABLE READ; rows are locked with SELECT ... FOR UPDATE and
// serialization failures surface as shared.ErrConflict.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-books/internal/platform/db"
	"github.com/odyssey-erp/odyssey-books/internal/storage"
)

// Backend persists books data in PostgreSQL.
type Backend struct {
	pool *pgxpool.Pool
}

// New constructs Backend over an open pool.
func New(pool *pgxpool.Pool) *Backend {
	return &Backend{pool: pool}
}

// Pool exposes the underlying pool for the audit and idempotency stores.
func (b *Backend) Pool() *pgxpool.Pool {
	return b.pool
}

// WithTx executes the callback inside repeatable-read transaction.
func (b *Backend) WithTx(ctx context.Context, fn func(context.Context, storage.Tx) error) error {
	return db.WithTx(ctx, b.pool, func(pgTx pgx.Tx) error {
		return fn(ctx, &tx{q: pgTx})
	})
}

// ReadTx executes the callback inside a read-only snapshot.
func (b *Backend) ReadTx(ctx context.Context, fn func(context.Context, storage.Tx) error) error {
	return db.ReadTx(ctx, b.pool, func(pgTx pgx.Tx) error {
		return fn(ctx, &tx{q: pgTx})
	})
}

// Close releases the pool.
func (b *Backend) Close() {
	b.pool.Close()
}

type tx struct {
	q pgx.Tx
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return err
}

func nullID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

var _ storage.Backend = (*Backend)(nil)
var _ storage.Tx = (*tx)(nil)
