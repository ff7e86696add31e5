// Package memory implements storage.Backend in process. Writers are
// serialized; each unit works on a copy of the state that replaces the live
// state only on commit.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/odyssey-erp/odyssey-books/internal/documents"
	"github.com/odyssey-erp/odyssey-books/internal/inventory"
	"github.com/odyssey-erp/odyssey-books/internal/ledger"
	"github.com/odyssey-erp/odyssey-books/internal/masterdata"
	"github.com/odyssey-erp/odyssey-books/internal/storage"
)

type sequences struct {
	account     int64
	transaction int64
	movement    int64
	document    int64
	line        int64
	product     int64
	warehouse   int64
}

type state struct {
	accounts     map[int64]ledger.Account
	transactions map[int64]ledger.Transaction
	levels       map[inventory.LevelKey]inventory.Level
	movements    map[int64]inventory.Movement
	documents    map[int64]documents.Document
	lines        map[int64][]documents.LineItem
	products     map[int64]masterdata.Product
	warehouses   map[int64]masterdata.Warehouse
	seq          sequences
}

func newState() *state {
	return &state{
		accounts:     make(map[int64]ledger.Account),
		transactions: make(map[int64]ledger.Transaction),
		levels:       make(map[inventory.LevelKey]inventory.Level),
		movements:    make(map[int64]inventory.Movement),
		documents:    make(map[int64]documents.Document),
		lines:        make(map[int64][]documents.LineItem),
		products:     make(map[int64]masterdata.Product),
		warehouses:   make(map[int64]masterdata.Warehouse),
	}
}

func (s *state) clone() *state {
	lines := make(map[int64][]documents.LineItem, len(s.lines))
	for id, ls := range s.lines {
		lines[id] = slices.Clone(ls)
	}
	return &state{
		accounts:     maps.Clone(s.accounts),
		transactions: maps.Clone(s.transactions),
		levels:       maps.Clone(s.levels),
		movements:    maps.Clone(s.movements),
		documents:    maps.Clone(s.documents),
		lines:        lines,
		products:     maps.Clone(s.products),
		warehouses:   maps.Clone(s.warehouses),
		seq:          s.seq,
	}
}

// Backend is the in-memory storage backend.
type Backend struct {
	mu    sync.RWMutex
	state *state
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{state: newState()}
}

// WithTx runs fn on a private copy of the state and publishes it when fn
// succeeds. Only one writer runs at a time.
func (b *Backend) WithTx(ctx context.Context, fn func(context.Context, storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	working := b.state.clone()
	if err := fn(ctx, &tx{state: working}); err != nil {
		return err
	}
	b.state = working
	return nil
}

// ReadTx runs fn against the committed state under a read lock.
func (b *Backend) ReadTx(ctx context.Context, fn func(context.Context, storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return fn(ctx, &tx{state: b.state, readOnly: true})
}

// Close is a no-op.
func (b *Backend) Close() {}

type tx struct {
	state    *state
	readOnly bool
}

func (t *tx) writable() error {
	if t.readOnly {
		return storage.ErrReadOnly
	}
	return nil
}

var _ storage.Backend = (*Backend)(nil)
var _ storage.Tx = (*tx)(nil)
