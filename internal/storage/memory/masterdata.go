package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/odyssey-erp/odyssey-books/internal/masterdata"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

func (t *tx) InsertProduct(ctx context.Context, product masterdata.Product) (masterdata.Product, error) {
	if err := t.writable(); err != nil {
		return masterdata.Product{}, err
	}
	for _, existing := range t.state.products {
		if existing.SKU == product.SKU {
			return masterdata.Product{}, fmt.Errorf("%w: masterdata: sku %q already exists", shared.ErrConflict, product.SKU)
		}
	}
	t.state.seq.product++
	product.ID = t.state.seq.product
	t.state.products[product.ID] = product
	return product, nil
}

func (t *tx) GetProduct(ctx context.Context, id int64) (masterdata.Product, error) {
	product, ok := t.state.products[id]
	if !ok {
		return masterdata.Product{}, masterdata.ErrProductNotFound
	}
	return product, nil
}

func (t *tx) ListProducts(ctx context.Context) ([]masterdata.Product, error) {
	out := make([]masterdata.Product, 0, len(t.state.products))
	for _, product := range t.state.products {
		out = append(out, product)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) InsertWarehouse(ctx context.Context, warehouse masterdata.Warehouse) (masterdata.Warehouse, error) {
	if err := t.writable(); err != nil {
		return masterdata.Warehouse{}, err
	}
	for _, existing := range t.state.warehouses {
		if existing.Code == warehouse.Code {
			return masterdata.Warehouse{}, fmt.Errorf("%w: masterdata: warehouse code %q already exists", shared.ErrConflict, warehouse.Code)
		}
	}
	t.state.seq.warehouse++
	warehouse.ID = t.state.seq.warehouse
	t.state.warehouses[warehouse.ID] = warehouse
	return warehouse, nil
}

func (t *tx) GetWarehouse(ctx context.Context, id int64) (masterdata.Warehouse, error) {
	warehouse, ok := t.state.warehouses[id]
	if !ok {
		return masterdata.Warehouse{}, masterdata.ErrWarehouseNotFound
	}
	return warehouse, nil
}

func (t *tx) ListWarehouses(ctx context.Context) ([]masterdata.Warehouse, error) {
	out := make([]masterdata.Warehouse, 0, len(t.state.warehouses))
	for _, warehouse := range t.state.warehouses {
		out = append(out, warehouse)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
