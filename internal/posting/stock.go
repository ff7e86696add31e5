package posting

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/inventory"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
	"github.com/odyssey-erp/odyssey-books/internal/storage"
)

// AdjustInput describes a manual stock correction. With Absolute set,
// Quantity is the target level rather than a delta.
type AdjustInput struct {
	ProductID   int64
	WarehouseID int64
	Quantity    decimal.Decimal
	Absolute    bool
	Date        time.Time
	Notes       string
}

// TransferInput moves stock between two warehouses.
type TransferInput struct {
	ProductID       int64
	FromWarehouseID int64
	ToWarehouseID   int64
	Quantity        decimal.Decimal
	Date            time.Time
	Notes           string
}

// AdjustInventory corrects one level and records an adjustment movement. An
// absolute correction that matches the current level changes nothing.
func (e *Engine) AdjustInventory(ctx context.Context, in AdjustInput) (inventory.Level, error) {
	if in.ProductID == 0 || in.WarehouseID == 0 {
		return inventory.Level{}, fmt.Errorf("%w: inventory: warehouse and product required", shared.ErrValidation)
	}
	in.Quantity = inventory.RoundQuantity(in.Quantity)
	if in.Absolute && in.Quantity.IsNegative() {
		return inventory.Level{}, fmt.Errorf("%w: inventory: target quantity must be >= 0", shared.ErrValidation)
	}
	if !in.Absolute && in.Quantity.IsZero() {
		return inventory.Level{}, inventory.ErrInvalidQuantity
	}
	key := inventory.LevelKey{WarehouseID: in.WarehouseID, ProductID: in.ProductID}
	var level inventory.Level
	var delta decimal.Decimal
	err := e.write(ctx, "adjust_inventory", func(ctx context.Context, tx storage.Tx) error {
		if err := e.checkStockRefs(ctx, tx, in.ProductID, in.WarehouseID); err != nil {
			return err
		}
		if err := e.inventory.Lock(ctx, tx, []inventory.LevelKey{key}); err != nil {
			return err
		}
		current, err := e.inventory.GetLevel(ctx, tx, in.ProductID, in.WarehouseID)
		if err != nil {
			return err
		}
		delta = in.Quantity
		if in.Absolute {
			delta = in.Quantity.Sub(current)
		}
		if delta.IsZero() {
			level = inventory.Level{ProductID: in.ProductID, WarehouseID: in.WarehouseID, Quantity: current}
			return nil
		}
		level, err = e.inventory.Adjust(ctx, tx, inventory.Adjustment{
			ProductID:   in.ProductID,
			WarehouseID: in.WarehouseID,
			Delta:       delta,
			Type:        inventory.MovementTypeAdjustment,
			Date:        in.Date,
			Notes:       in.Notes,
		})
		return err
	})
	if err != nil {
		return inventory.Level{}, err
	}
	if !delta.IsZero() {
		e.record(ctx, "inventory:adjust", "inventory_level", in.ProductID, map[string]any{
			"warehouse_id": in.WarehouseID,
			"delta":        delta.String(),
			"absolute":     in.Absolute,
		})
	}
	return level, nil
}

// TransferStock writes an outbound movement at the source and an inbound one
// at the destination in a single unit.
func (e *Engine) TransferStock(ctx context.Context, in TransferInput) (from, to inventory.Level, err error) {
	if in.ProductID == 0 || in.FromWarehouseID == 0 || in.ToWarehouseID == 0 {
		return from, to, fmt.Errorf("%w: inventory: warehouse and product required", shared.ErrValidation)
	}
	if in.FromWarehouseID == in.ToWarehouseID {
		return from, to, fmt.Errorf("%w: inventory: source and destination warehouse must differ", shared.ErrValidation)
	}
	in.Quantity = inventory.RoundQuantity(in.Quantity)
	if !in.Quantity.IsPositive() {
		return from, to, fmt.Errorf("%w: inventory: transfer quantity must be positive", shared.ErrValidation)
	}
	err = e.write(ctx, "transfer_stock", func(ctx context.Context, tx storage.Tx) error {
		if err := e.checkStockRefs(ctx, tx, in.ProductID, in.FromWarehouseID, in.ToWarehouseID); err != nil {
			return err
		}
		keys := []inventory.LevelKey{
			{WarehouseID: in.FromWarehouseID, ProductID: in.ProductID},
			{WarehouseID: in.ToWarehouseID, ProductID: in.ProductID},
		}
		if err := e.inventory.Lock(ctx, tx, keys); err != nil {
			return err
		}
		var err error
		from, err = e.inventory.Adjust(ctx, tx, inventory.Adjustment{
			ProductID:   in.ProductID,
			WarehouseID: in.FromWarehouseID,
			Delta:       in.Quantity.Neg(),
			Type:        inventory.MovementTypeTransfer,
			Date:        in.Date,
			Notes:       fmt.Sprintf("Transfer to %d: %s", in.ToWarehouseID, in.Notes),
		})
		if err != nil {
			return err
		}
		to, err = e.inventory.Adjust(ctx, tx, inventory.Adjustment{
			ProductID:   in.ProductID,
			WarehouseID: in.ToWarehouseID,
			Delta:       in.Quantity,
			Type:        inventory.MovementTypeTransfer,
			Date:        in.Date,
			Notes:       fmt.Sprintf("Transfer from %d: %s", in.FromWarehouseID, in.Notes),
		})
		return err
	})
	if err != nil {
		return inventory.Level{}, inventory.Level{}, err
	}
	e.record(ctx, "inventory:transfer", "inventory_level", in.ProductID, map[string]any{
		"from":     in.FromWarehouseID,
		"to":       in.ToWarehouseID,
		"quantity": in.Quantity.String(),
	})
	return from, to, nil
}

// GetLevel returns the on-hand quantity, zero when nothing was ever recorded.
func (e *Engine) GetLevel(ctx context.Context, productID, warehouseID int64) (decimal.Decimal, error) {
	var qty decimal.Decimal
	err := e.read(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		qty, err = e.inventory.GetLevel(ctx, tx, productID, warehouseID)
		return err
	})
	return qty, err
}

func (e *Engine) checkStockRefs(ctx context.Context, tx storage.Tx, productID int64, warehouseIDs ...int64) error {
	if _, err := tx.GetProduct(ctx, productID); err != nil {
		return err
	}
	for _, id := range warehouseIDs {
		if _, err := tx.GetWarehouse(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
