package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/inventory"
)

func scanLevel(row pgx.Row) (inventory.Level, error) {
	var l inventory.Level
	err := row.Scan(&l.WarehouseID, &l.ProductID, &l.Quantity, &l.UpdatedAt)
	return l, err
}

func (t *tx) GetLevel(ctx context.Context, key inventory.LevelKey) (inventory.Level, error) {
	level, err := scanLevel(t.q.QueryRow(ctx, `SELECT warehouse_id, product_id, quantity, updated_at FROM inventory_levels
WHERE warehouse_id=$1 AND product_id=$2`, key.WarehouseID, key.ProductID))
	return level, notFound(err, inventory.ErrLevelNotFound)
}

func (t *tx) GetLevelForUpdate(ctx context.Context, key inventory.LevelKey) (inventory.Level, error) {
	level, err := scanLevel(t.q.QueryRow(ctx, `SELECT warehouse_id, product_id, quantity, updated_at FROM inventory_levels
WHERE warehouse_id=$1 AND product_id=$2 FOR UPDATE`, key.WarehouseID, key.ProductID))
	return level, notFound(err, inventory.ErrLevelNotFound)
}

func (t *tx) UpsertLevel(ctx context.Context, level inventory.Level) error {
	_, err := t.q.Exec(ctx, `INSERT INTO inventory_levels (warehouse_id, product_id, quantity, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (warehouse_id, product_id) DO UPDATE SET quantity=EXCLUDED.quantity, updated_at=EXCLUDED.updated_at`,
		level.WarehouseID, level.ProductID, level.Quantity, level.UpdatedAt)
	return err
}

func (t *tx) ListLevels(ctx context.Context) ([]inventory.Level, error) {
	rows, err := t.q.Query(ctx, `SELECT warehouse_id, product_id, quantity, updated_at FROM inventory_levels ORDER BY warehouse_id, product_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []inventory.Level
	for rows.Next() {
		level, err := scanLevel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, level)
	}
	return out, rows.Err()
}

func (t *tx) InsertMovement(ctx context.Context, movement inventory.Movement) (inventory.Movement, error) {
	row := t.q.QueryRow(ctx, `INSERT INTO inventory_movements (product_id, warehouse_id, quantity, type, document_id, date, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		movement.ProductID, movement.WarehouseID, movement.Quantity, string(movement.Type), nullID(movement.DocumentID), movement.Date, movement.Notes, movement.CreatedAt)
	if err := row.Scan(&movement.ID); err != nil {
		return inventory.Movement{}, err
	}
	return movement, nil
}

func (t *tx) ListMovementsByDocument(ctx context.Context, documentID int64) ([]inventory.Movement, error) {
	rows, err := t.q.Query(ctx, `SELECT id, product_id, warehouse_id, quantity, type, document_id, date, notes, created_at
FROM inventory_movements WHERE document_id=$1 ORDER BY id`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []inventory.Movement
	for rows.Next() {
		var m inventory.Movement
		var typ string
		var docID *int64
		if err := rows.Scan(&m.ID, &m.ProductID, &m.WarehouseID, &m.Quantity, &typ, &docID, &m.Date, &m.Notes, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Type = inventory.MovementType(typ)
		m.DocumentID = derefID(docID)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (t *tx) DeleteMovement(ctx context.Context, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM inventory_movements WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrMovementNotFound
	}
	return nil
}

func (t *tx) MovementTotals(ctx context.Context) (map[inventory.LevelKey]decimal.Decimal, error) {
	rows, err := t.q.Query(ctx, `SELECT warehouse_id, product_id, SUM(quantity) FROM inventory_movements GROUP BY warehouse_id, product_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	totals := make(map[inventory.LevelKey]decimal.Decimal)
	for rows.Next() {
		var key inventory.LevelKey
		var sum decimal.Decimal
		if err := rows.Scan(&key.WarehouseID, &key.ProductID, &sum); err != nil {
			return nil, err
		}
		totals[key] = sum
	}
	return totals, rows.Err()
}
