package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-books/internal/masterdata"
)

func (t *tx) InsertProduct(ctx context.Context, product masterdata.Product) (masterdata.Product, error) {
	row := t.q.QueryRow(ctx, `INSERT INTO products (sku, name, is_active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		product.SKU, product.Name, product.IsActive, product.CreatedAt, product.UpdatedAt)
	if err := row.Scan(&product.ID); err != nil {
		return masterdata.Product{}, err
	}
	return product, nil
}

func scanProduct(row pgx.Row) (masterdata.Product, error) {
	var p masterdata.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (t *tx) GetProduct(ctx context.Context, id int64) (masterdata.Product, error) {
	product, err := scanProduct(t.q.QueryRow(ctx, `SELECT id, sku, name, is_active, created_at, updated_at FROM products WHERE id=$1`, id))
	return product, notFound(err, masterdata.ErrProductNotFound)
}

func (t *tx) ListProducts(ctx context.Context) ([]masterdata.Product, error) {
	rows, err := t.q.Query(ctx, `SELECT id, sku, name, is_active, created_at, updated_at FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []masterdata.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, product)
	}
	return out, rows.Err()
}

func (t *tx) InsertWarehouse(ctx context.Context, warehouse masterdata.Warehouse) (masterdata.Warehouse, error) {
	row := t.q.QueryRow(ctx, `INSERT INTO warehouses (code, name, is_active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		warehouse.Code, warehouse.Name, warehouse.IsActive, warehouse.CreatedAt, warehouse.UpdatedAt)
	if err := row.Scan(&warehouse.ID); err != nil {
		return masterdata.Warehouse{}, err
	}
	return warehouse, nil
}

func scanWarehouse(row pgx.Row) (masterdata.Warehouse, error) {
	var w masterdata.Warehouse
	err := row.Scan(&w.ID, &w.Code, &w.Name, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

func (t *tx) GetWarehouse(ctx context.Context, id int64) (masterdata.Warehouse, error) {
	warehouse, err := scanWarehouse(t.q.QueryRow(ctx, `SELECT id, code, name, is_active, created_at, updated_at FROM warehouses WHERE id=$1`, id))
	return warehouse, notFound(err, masterdata.ErrWarehouseNotFound)
}

func (t *tx) ListWarehouses(ctx context.Context) ([]masterdata.Warehouse, error) {
	rows, err := t.q.Query(ctx, `SELECT id, code, name, is_active, created_at, updated_at FROM warehouses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []masterdata.Warehouse
	for rows.Next() {
		warehouse, err := scanWarehouse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, warehouse)
	}
	return out, rows.Err()
}
