package masterdata

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-books/internal/ledger"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// Tx is the transactional view the service needs: its own rows plus the
// ledger rows for account creation.
type Tx interface {
	TxRepository
	ledger.TxRepository
}

// RepositoryPort abstracts the storage backend.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
	ReadTx(ctx context.Context, fn func(context.Context, Tx) error) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages the reference data documents point at.
type Service struct {
	repo   RepositoryPort
	ledger *ledger.Store
	audit  AuditPort
	now    func() time.Time
}

// NewService creates a new master data service.
func NewService(repo RepositoryPort, ledgerStore *ledger.Store, audit AuditPort) *Service {
	if ledgerStore == nil {
		ledgerStore = ledger.NewStore()
	}
	return &Service{repo: repo, ledger: ledgerStore, audit: audit, now: func() time.Time { return time.Now().UTC() }}
}

// CreateAccount opens a customer, supplier or money account.
func (s *Service) CreateAccount(ctx context.Context, account ledger.Account) (ledger.Account, error) {
	account.Name = strings.TrimSpace(account.Name)
	account.Code = strings.TrimSpace(account.Code)
	var created ledger.Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		created, err = s.ledger.CreateAccount(ctx, tx, account)
		return err
	})
	if err != nil {
		return ledger.Account{}, err
	}
	s.record(ctx, "account:create", "account", created.ID, map[string]any{"type": created.Type, "opening_balance": created.OpeningBalance.String()})
	return created, nil
}

// GetAccount returns one account.
func (s *Service) GetAccount(ctx context.Context, id int64) (ledger.Account, error) {
	if id <= 0 {
		return ledger.Account{}, fmt.Errorf("%w: invalid account ID", shared.ErrValidation)
	}
	var account ledger.Account
	err := s.repo.ReadTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		account, err = tx.GetAccount(ctx, id)
		return err
	})
	return account, err
}

// ListAccounts returns every account.
func (s *Service) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	var accounts []ledger.Account
	err := s.repo.ReadTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		accounts, err = tx.ListAccounts(ctx)
		return err
	})
	return accounts, err
}

// CreateProduct registers a product.
func (s *Service) CreateProduct(ctx context.Context, product Product) (Product, error) {
	product.SKU = strings.TrimSpace(product.SKU)
	product.Name = strings.TrimSpace(product.Name)
	if err := validateProduct(product); err != nil {
		return Product{}, err
	}
	now := s.now()
	product.CreatedAt = now
	product.UpdatedAt = now
	var created Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		created, err = tx.InsertProduct(ctx, product)
		return err
	})
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, "product:create", "product", created.ID, map[string]any{"sku": created.SKU})
	return created, nil
}

// GetProduct returns one product.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("%w: invalid product ID", shared.ErrValidation)
	}
	var product Product
	err := s.repo.ReadTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		product, err = tx.GetProduct(ctx, id)
		return err
	})
	return product, err
}

// ListProducts returns every product.
func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	err := s.repo.ReadTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		products, err = tx.ListProducts(ctx)
		return err
	})
	return products, err
}

// CreateWarehouse registers a warehouse.
func (s *Service) CreateWarehouse(ctx context.Context, warehouse Warehouse) (Warehouse, error) {
	warehouse.Code = strings.TrimSpace(warehouse.Code)
	warehouse.Name = strings.TrimSpace(warehouse.Name)
	if err := validateWarehouse(warehouse); err != nil {
		return Warehouse{}, err
	}
	now := s.now()
	warehouse.CreatedAt = now
	warehouse.UpdatedAt = now
	var created Warehouse
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		created, err = tx.InsertWarehouse(ctx, warehouse)
		return err
	})
	if err != nil {
		return Warehouse{}, err
	}
	s.record(ctx, "warehouse:create", "warehouse", created.ID, map[string]any{"code": created.Code})
	return created, nil
}

// GetWarehouse returns one warehouse.
func (s *Service) GetWarehouse(ctx context.Context, id int64) (Warehouse, error) {
	if id <= 0 {
		return Warehouse{}, fmt.Errorf("%w: invalid warehouse ID", shared.ErrValidation)
	}
	var warehouse Warehouse
	err := s.repo.ReadTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		warehouse, err = tx.GetWarehouse(ctx, id)
		return err
	})
	return warehouse, err
}

// ListWarehouses returns every warehouse.
func (s *Service) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	var warehouses []Warehouse
	err := s.repo.ReadTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		warehouses, err = tx.ListWarehouses(ctx)
		return err
	})
	return warehouses, err
}

func (s *Service) record(ctx context.Context, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.now(),
	})
}

func validateProduct(product Product) error {
	if product.SKU == "" {
		return fmt.Errorf("%w: product SKU is required", shared.ErrValidation)
	}
	if product.Name == "" {
		return fmt.Errorf("%w: product name is required", shared.ErrValidation)
	}
	return nil
}

func validateWarehouse(warehouse Warehouse) error {
	if warehouse.Code == "" {
		return fmt.Errorf("%w: warehouse code is required", shared.ErrValidation)
	}
	if warehouse.Name == "" {
		return fmt.Errorf("%w: warehouse name is required", shared.ErrValidation)
	}
	return nil
}
