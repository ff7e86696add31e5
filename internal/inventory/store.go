package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// TxRepository exposes transactional operations used by the store.
type TxRepository interface {
	GetLevel(ctx context.Context, key LevelKey) (Level, error)
	GetLevelForUpdate(ctx context.Context, key LevelKey) (Level, error)
	UpsertLevel(ctx context.Context, level Level) error
	ListLevels(ctx context.Context) ([]Level, error)
	InsertMovement(ctx context.Context, movement Movement) (Movement, error)
	ListMovementsByDocument(ctx context.Context, documentID int64) ([]Movement, error)
	DeleteMovement(ctx context.Context, id int64) error
	MovementTotals(ctx context.Context) (map[LevelKey]decimal.Decimal, error)
}

// Store keeps levels equal to the signed sum of their movements.
type Store struct {
	now func() time.Time
}

// NewStore builds Store.
func NewStore() *Store {
	return &Store{now: func() time.Time { return time.Now().UTC() }}
}

// WithNow overrides the clock for testing.
func (s *Store) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// GetLevel returns the on-hand quantity, zero when no row exists.
func (s *Store) GetLevel(ctx context.Context, tx TxRepository, productID, warehouseID int64) (decimal.Decimal, error) {
	level, err := tx.GetLevel(ctx, LevelKey{WarehouseID: warehouseID, ProductID: productID})
	if errors.Is(err, ErrLevelNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return level.Quantity, nil
}

// Lock takes row locks on every key in warehouse, product order. Missing rows
// are skipped; they are created by the first Adjust.
func (s *Store) Lock(ctx context.Context, tx TxRepository, keys []LevelKey) error {
	sorted := make([]LevelKey, 0, len(keys))
	seen := make(map[LevelKey]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		sorted = append(sorted, key)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
	for _, key := range sorted {
		if _, err := tx.GetLevelForUpdate(ctx, key); err != nil && !errors.Is(err, ErrLevelNotFound) {
			return err
		}
	}
	return nil
}

// Adjust applies a signed delta and appends the matching movement. A negative
// delta that would leave the level below zero fails with ErrNegativeStock.
func (s *Store) Adjust(ctx context.Context, tx TxRepository, adj Adjustment) (Level, error) {
	if adj.ProductID == 0 || adj.WarehouseID == 0 {
		return Level{}, fmt.Errorf("%w: inventory: warehouse and product required", shared.ErrValidation)
	}
	adj.Delta = RoundQuantity(adj.Delta)
	if adj.Delta.IsZero() {
		return Level{}, ErrInvalidQuantity
	}
	if !adj.Type.Valid() {
		return Level{}, fmt.Errorf("%w: inventory: unknown movement type %q", shared.ErrValidation, adj.Type)
	}
	level, err := s.lockedLevel(ctx, tx, LevelKey{WarehouseID: adj.WarehouseID, ProductID: adj.ProductID})
	if err != nil {
		return Level{}, err
	}
	newQty := level.Quantity.Add(adj.Delta)
	if adj.Delta.IsNegative() && newQty.IsNegative() {
		return Level{}, fmt.Errorf("%w (product %d, warehouse %d: have %s, need %s)",
			ErrNegativeStock, adj.ProductID, adj.WarehouseID, level.Quantity, adj.Delta.Neg())
	}
	now := s.now()
	date := adj.Date
	if date.IsZero() {
		date = now
	}
	level.Quantity = newQty
	level.UpdatedAt = now
	if err := tx.UpsertLevel(ctx, level); err != nil {
		return Level{}, err
	}
	movement := Movement{
		ProductID:   adj.ProductID,
		WarehouseID: adj.WarehouseID,
		Quantity:    adj.Delta,
		Type:        adj.Type,
		DocumentID:  adj.DocumentID,
		Date:        date,
		Notes:       adj.Notes,
		CreatedAt:   now,
	}
	if _, err := tx.InsertMovement(ctx, movement); err != nil {
		return Level{}, err
	}
	return level, nil
}

// Revert undoes a movement and deletes it. Reverting an inbound movement
// whose stock has since been consumed fails with shared.ErrConflict.
func (s *Store) Revert(ctx context.Context, tx TxRepository, movement Movement) (Level, error) {
	level, err := s.lockedLevel(ctx, tx, LevelKey{WarehouseID: movement.WarehouseID, ProductID: movement.ProductID})
	if err != nil {
		return Level{}, err
	}
	newQty := level.Quantity.Sub(movement.Quantity)
	if newQty.IsNegative() {
		return Level{}, fmt.Errorf("%w: inventory: reverting movement %d leaves product %d in warehouse %d at %s",
			shared.ErrConflict, movement.ID, movement.ProductID, movement.WarehouseID, newQty)
	}
	level.Quantity = newQty
	level.UpdatedAt = s.now()
	if err := tx.UpsertLevel(ctx, level); err != nil {
		return Level{}, err
	}
	if err := tx.DeleteMovement(ctx, movement.ID); err != nil {
		return Level{}, err
	}
	return level, nil
}

// Movements returns the movements recorded for a document.
func (s *Store) Movements(ctx context.Context, tx TxRepository, documentID int64) ([]Movement, error) {
	return tx.ListMovementsByDocument(ctx, documentID)
}

// Verify compares every level with the signed sum of its movements.
func (s *Store) Verify(ctx context.Context, tx TxRepository) ([]Drift, error) {
	levels, err := tx.ListLevels(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := tx.MovementTotals(ctx)
	if err != nil {
		return nil, err
	}
	var drifts []Drift
	for _, level := range levels {
		expected := totals[level.Key()]
		delete(totals, level.Key())
		if !expected.Equal(level.Quantity) {
			drifts = append(drifts, Drift{Key: level.Key(), Stored: level.Quantity, Expected: expected})
		}
	}
	for key, expected := range totals {
		if !expected.IsZero() {
			drifts = append(drifts, Drift{Key: key, Stored: decimal.Zero, Expected: expected})
		}
	}
	sort.Slice(drifts, func(i, j int) bool { return drifts[i].Key.Less(drifts[j].Key) })
	return drifts, nil
}

func (s *Store) lockedLevel(ctx context.Context, tx TxRepository, key LevelKey) (Level, error) {
	level, err := tx.GetLevelForUpdate(ctx, key)
	if errors.Is(err, ErrLevelNotFound) {
		return Level{ProductID: key.ProductID, WarehouseID: key.WarehouseID, Quantity: decimal.Zero}, nil
	}
	return level, err
}
