// Package storage defines the transactional contract every persistence
// backend implements. Backends are chosen once at start-up.
package storage

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/odyssey-books/internal/documents"
	"github.com/odyssey-erp/odyssey-books/internal/inventory"
	"github.com/odyssey-erp/odyssey-books/internal/ledger"
	"github.com/odyssey-erp/odyssey-books/internal/masterdata"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// Tx is one atomic, isolated unit of work over every table the engine touches.
type Tx interface {
	ledger.TxRepository
	inventory.TxRepository
	documents.TxRepository
	masterdata.TxRepository
}

// Backend runs units of work. WithTx commits when fn returns nil and rolls
// back otherwise. ReadTx runs fn against a read-only snapshot.
type Backend interface {
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
	ReadTx(ctx context.Context, fn func(context.Context, Tx) error) error
	Close()
}

// ErrReadOnly is returned by writes attempted inside ReadTx.
var ErrReadOnly = fmt.Errorf("storage: write attempted in read-only unit: %w", shared.ErrPersistence)

// ForMasterdata adapts a Backend to the masterdata service port.
func ForMasterdata(b Backend) masterdata.RepositoryPort {
	return masterdataPort{backend: b}
}

type masterdataPort struct {
	backend Backend
}

func (p masterdataPort) WithTx(ctx context.Context, fn func(context.Context, masterdata.Tx) error) error {
	return p.backend.WithTx(ctx, func(ctx context.Context, tx Tx) error { return fn(ctx, tx) })
}

func (p masterdataPort) ReadTx(ctx context.Context, fn func(context.Context, masterdata.Tx) error) error {
	return p.backend.ReadTx(ctx, func(ctx context.Context, tx Tx) error { return fn(ctx, tx) })
}
