package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/inventory"
)

func (t *tx) GetLevel(ctx context.Context, key inventory.LevelKey) (inventory.Level, error) {
	level, ok := t.state.levels[key]
	if !ok {
		return inventory.Level{}, inventory.ErrLevelNotFound
	}
	return level, nil
}

func (t *tx) GetLevelForUpdate(ctx context.Context, key inventory.LevelKey) (inventory.Level, error) {
	return t.GetLevel(ctx, key)
}

func (t *tx) UpsertLevel(ctx context.Context, level inventory.Level) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.state.levels[level.Key()] = level
	return nil
}

func (t *tx) ListLevels(ctx context.Context) ([]inventory.Level, error) {
	out := make([]inventory.Level, 0, len(t.state.levels))
	for _, level := range t.state.levels {
		out = append(out, level)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().Less(out[j].Key()) })
	return out, nil
}

func (t *tx) InsertMovement(ctx context.Context, movement inventory.Movement) (inventory.Movement, error) {
	if err := t.writable(); err != nil {
		return inventory.Movement{}, err
	}
	t.state.seq.movement++
	movement.ID = t.state.seq.movement
	t.state.movements[movement.ID] = movement
	return movement, nil
}

func (t *tx) ListMovementsByDocument(ctx context.Context, documentID int64) ([]inventory.Movement, error) {
	var out []inventory.Movement
	for _, movement := range t.state.movements {
		if movement.DocumentID == documentID {
			out = append(out, movement)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) DeleteMovement(ctx context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.state.movements[id]; !ok {
		return inventory.ErrMovementNotFound
	}
	delete(t.state.movements, id)
	return nil
}

func (t *tx) MovementTotals(ctx context.Context) (map[inventory.LevelKey]decimal.Decimal, error) {
	totals := make(map[inventory.LevelKey]decimal.Decimal)
	for _, m := range t.state.movements {
		key := inventory.LevelKey{WarehouseID: m.WarehouseID, ProductID: m.ProductID}
		totals[key] = totals[key].Add(m.Quantity)
	}
	return totals, nil
}
