package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// MovementType enumerates supported inventory movements.
type MovementType string

const (
	// MovementTypeSale is the outbound leg of a posted sale.
	MovementTypeSale MovementType = "sale"
	// MovementTypePurchase is the inbound leg of a posted purchase.
	MovementTypePurchase MovementType = "purchase"
	// MovementTypeAdjustment indicates manual corrections.
	MovementTypeAdjustment MovementType = "adjustment"
	// MovementTypeTransfer is one leg of a warehouse transfer.
	MovementTypeTransfer MovementType = "transfer"
)

// Valid reports whether the movement type is known.
func (t MovementType) Valid() bool {
	switch t {
	case MovementTypeSale, MovementTypePurchase, MovementTypeAdjustment, MovementTypeTransfer:
		return true
	}
	return false
}

// QuantityScale is the number of decimal places quantity columns store.
const QuantityScale int32 = 4

// RoundQuantity rounds a quantity to QuantityScale places, half away from zero.
func RoundQuantity(d decimal.Decimal) decimal.Decimal {
	return d.Round(QuantityScale)
}

// Level is the on-hand quantity of one product in one warehouse.
type Level struct {
	ProductID   int64
	WarehouseID int64
	Quantity    decimal.Decimal
	UpdatedAt   time.Time
}

// Key returns the level's lock key.
func (l Level) Key() LevelKey {
	return LevelKey{WarehouseID: l.WarehouseID, ProductID: l.ProductID}
}

// Movement is an append-only signed quantity change. DocumentID is zero for
// manual adjustments and transfers.
type Movement struct {
	ID          int64
	ProductID   int64
	WarehouseID int64
	Quantity    decimal.Decimal
	Type        MovementType
	DocumentID  int64
	Date        time.Time
	Notes       string
	CreatedAt   time.Time
}

// LevelKey identifies a level row.
type LevelKey struct {
	WarehouseID int64
	ProductID   int64
}

// Less orders keys by warehouse, then product.
func (k LevelKey) Less(other LevelKey) bool {
	if k.WarehouseID != other.WarehouseID {
		return k.WarehouseID < other.WarehouseID
	}
	return k.ProductID < other.ProductID
}

// Adjustment describes one signed stock change.
type Adjustment struct {
	ProductID   int64
	WarehouseID int64
	Delta       decimal.Decimal
	Type        MovementType
	DocumentID  int64
	Date        time.Time
	Notes       string
}

// Drift describes a level whose quantity disagrees with its movements.
type Drift struct {
	Key      LevelKey
	Stored   decimal.Decimal
	Expected decimal.Decimal
}

var (
	// ErrNegativeStock triggered when movement would result negative qty.
	ErrNegativeStock = fmt.Errorf("inventory: negative stock not allowed: %w", shared.ErrInsufficientStock)
	// ErrInvalidQuantity indicates invalid qty.
	ErrInvalidQuantity = fmt.Errorf("inventory: quantity must be non zero: %w", shared.ErrValidation)
	// ErrLevelNotFound indicates missing level row.
	ErrLevelNotFound = fmt.Errorf("inventory: level %w", shared.ErrNotFound)
	// ErrMovementNotFound indicates missing movement row.
	ErrMovementNotFound = fmt.Errorf("inventory: movement %w", shared.ErrNotFound)
)
