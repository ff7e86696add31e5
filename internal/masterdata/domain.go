package masterdata

import (
	"context"
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// Warehouse represents a warehouse entity
type Warehouse struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product represents a product entity
type Product struct {
	ID        int64     `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TxRepository exposes product and warehouse rows inside one storage transaction.
type TxRepository interface {
	InsertProduct(ctx context.Context, product Product) (Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	InsertWarehouse(ctx context.Context, warehouse Warehouse) (Warehouse, error)
	GetWarehouse(ctx context.Context, id int64) (Warehouse, error)
	ListWarehouses(ctx context.Context) ([]Warehouse, error)
}

var (
	// ErrProductNotFound indicates a missing product row.
	ErrProductNotFound = fmt.Errorf("masterdata: product %w", shared.ErrNotFound)
	// ErrWarehouseNotFound indicates a missing warehouse row.
	ErrWarehouseNotFound = fmt.Errorf("masterdata: warehouse %w", shared.ErrNotFound)
)
