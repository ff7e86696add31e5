package posting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-books/internal/documents"
	"github.com/odyssey-erp/odyssey-books/internal/ledger"
	"github.com/odyssey-erp/odyssey-books/internal/masterdata"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
	"github.com/odyssey-erp/odyssey-books/internal/storage"
	"github.com/odyssey-erp/odyssey-books/internal/storage/memory"
)

type fixture struct {
	engine    *Engine
	backend   *memory.Backend
	customer  ledger.Account
	supplier  ledger.Account
	product   masterdata.Product
	warehouse masterdata.Warehouse
	other     masterdata.Warehouse
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	b := memory.New()
	md := masterdata.NewService(storage.ForMasterdata(b), nil, nil)

	customer, err := md.CreateAccount(ctx, ledger.Account{Code: "C-1", Name: "Customer A", Type: ledger.AccountTypeCustomer, IsActive: true})
	require.NoError(t, err)
	supplier, err := md.CreateAccount(ctx, ledger.Account{Code: "S-1", Name: "Supplier B", Type: ledger.AccountTypeSupplier, IsActive: true})
	require.NoError(t, err)
	product, err := md.CreateProduct(ctx, masterdata.Product{SKU: "P-1", Name: "Widget", IsActive: true})
	require.NoError(t, err)
	warehouse, err := md.CreateWarehouse(ctx, masterdata.Warehouse{Code: "W", Name: "Main", IsActive: true})
	require.NoError(t, err)
	other, err := md.CreateWarehouse(ctx, masterdata.Warehouse{Code: "W2", Name: "Overflow", IsActive: true})
	require.NoError(t, err)

	return fixture{
		engine:    NewEngine(b, Deps{}),
		backend:   b,
		customer:  customer,
		supplier:  supplier,
		product:   product,
		warehouse: warehouse,
		other:     other,
	}
}

func (f fixture) stock(t *testing.T, qty string) {
	t.Helper()
	_, err := f.engine.AdjustInventory(context.Background(), AdjustInput{
		ProductID:   f.product.ID,
		WarehouseID: f.warehouse.ID,
		Quantity:    dec(qty),
		Absolute:    true,
		Date:        day(1),
	})
	require.NoError(t, err)
}

func (f fixture) sale(qty, price string, status documents.Status) documents.Document {
	return documents.Document{
		Kind:        documents.KindSale,
		AccountID:   f.customer.ID,
		WarehouseID: f.warehouse.ID,
		Date:        day(5),
		Status:      status,
		Lines:       []documents.LineItem{{ProductID: f.product.ID, Quantity: dec(qty), UnitPrice: dec(price)}},
	}
}

func (f fixture) purchase(qty, price string) documents.Document {
	return documents.Document{
		Kind:        documents.KindPurchase,
		AccountID:   f.supplier.ID,
		WarehouseID: f.warehouse.ID,
		Date:        day(3),
		Status:      documents.StatusPosted,
		Lines:       []documents.LineItem{{ProductID: f.product.ID, Quantity: dec(qty), UnitPrice: dec(price)}},
	}
}

func (f fixture) balance(t *testing.T, accountID int64) decimal.Decimal {
	t.Helper()
	b, err := f.engine.GetAccountBalance(context.Background(), accountID)
	require.NoError(t, err)
	return b
}

func (f fixture) level(t *testing.T, warehouseID int64) decimal.Decimal {
	t.Helper()
	q, err := f.engine.GetLevel(context.Background(), f.product.ID, warehouseID)
	require.NoError(t, err)
	return q
}

func (f fixture) requireClean(t *testing.T) {
	t.Helper()
	report, err := f.engine.VerifyIntegrity(context.Background())
	require.NoError(t, err)
	require.True(t, report.Clean(), "drift: %+v", report)
}

func requireDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestInvoicePaymentThenDeleteInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "10")

	invoice, err := f.engine.CreateDocument(ctx, f.sale("1", "100", documents.StatusPosted))
	require.NoError(t, err)
	requireDec(t, "100", invoice.Total)
	requireDec(t, "100", f.balance(t, f.customer.ID))

	_, err = f.engine.RecordTransaction(ctx, TransactionInput{
		AccountID: f.customer.ID,
		Kind:      ledger.KindCredit,
		Amount:    dec("40"),
		Date:      day(6),
		Reference: "RCPT-1",
	})
	require.NoError(t, err)
	requireDec(t, "60", f.balance(t, f.customer.ID))

	require.NoError(t, f.engine.DeleteDocument(ctx, invoice.ID))
	requireDec(t, "-40", f.balance(t, f.customer.ID))
	requireDec(t, "10", f.level(t, f.warehouse.ID))

	recomputed, err := f.engine.RecomputeBalance(ctx, f.customer.ID)
	require.NoError(t, err)
	requireDec(t, "-40", recomputed)
	f.requireClean(t)

	_, err = f.engine.GetDocument(ctx, invoice.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

// The rejected sale carries a second line so the unit fails after its first
// line already deducted stock.
func TestOversellRollsBackEveryLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "10")

	_, err := f.engine.CreateDocument(ctx, f.purchase("5", "2"))
	require.NoError(t, err)
	requireDec(t, "15", f.level(t, f.warehouse.ID))
	supplierBefore := f.balance(t, f.supplier.ID)
	customerBefore := f.balance(t, f.customer.ID)

	doc := f.sale("12", "3", documents.StatusPosted)
	doc.Lines = append(doc.Lines, documents.LineItem{ProductID: f.product.ID, Quantity: dec("4"), UnitPrice: dec("3")})
	_, err = f.engine.CreateDocument(ctx, doc)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Equal(t, "insufficient_stock", shared.Kind(err))

	requireDec(t, "15", f.level(t, f.warehouse.ID))
	require.True(t, customerBefore.Equal(f.balance(t, f.customer.ID)))
	require.True(t, supplierBefore.Equal(f.balance(t, f.supplier.ID)))

	sales, err := f.engine.ListDocuments(ctx, documents.Filter{Kind: documents.KindSale})
	require.NoError(t, err)
	require.Empty(t, sales)

	err = f.backend.ReadTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		txs, err := tx.ListTransactions(ctx, ledger.TransactionFilter{AccountID: f.customer.ID})
		require.Empty(t, txs)
		return err
	})
	require.NoError(t, err)
	f.requireClean(t)
}

func TestPostThenReverseRestoresState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "20")

	doc := f.sale("3", "12.50", documents.StatusPosted)
	doc.Lines[0].Discount = dec("2.50")
	doc.Lines[0].Tax = dec("3.50")
	posted, err := f.engine.CreateDocument(ctx, doc)
	require.NoError(t, err)
	requireDec(t, "38.50", posted.Total)
	requireDec(t, "17", f.level(t, f.warehouse.ID))
	requireDec(t, "38.50", f.balance(t, f.customer.ID))

	cancelled, err := f.engine.CancelDocument(ctx, posted.ID)
	require.NoError(t, err)
	require.Equal(t, documents.StatusCancelled, cancelled.Status)
	requireDec(t, "20", f.level(t, f.warehouse.ID))
	requireDec(t, "0", f.balance(t, f.customer.ID))
	f.requireClean(t)

	_, err = f.engine.CancelDocument(ctx, posted.ID)
	require.ErrorIs(t, err, documents.ErrInvalidStatus)

	// A cancelled document is removed without a second reversal.
	require.NoError(t, f.engine.DeleteDocument(ctx, posted.ID))
	requireDec(t, "20", f.level(t, f.warehouse.ID))
	requireDec(t, "0", f.balance(t, f.customer.ID))
}

func TestDraftHasNoEffectsUntilPosted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "5")

	draft := f.sale("2", "10", "")
	draft.AccountID = 0
	created, err := f.engine.CreateDocument(ctx, draft)
	require.NoError(t, err)
	require.Equal(t, documents.StatusDraft, created.Status)
	require.Contains(t, created.Number, "INV-")
	requireDec(t, "5", f.level(t, f.warehouse.ID))

	_, err = f.engine.PostDocument(ctx, created.ID)
	require.ErrorIs(t, err, shared.ErrValidation)

	draft = f.sale("2", "10", documents.StatusDraft)
	created, err = f.engine.CreateDocument(ctx, draft)
	require.NoError(t, err)

	posted, err := f.engine.PostDocument(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, documents.StatusPosted, posted.Status)
	requireDec(t, "3", f.level(t, f.warehouse.ID))
	requireDec(t, "20", f.balance(t, f.customer.ID))

	_, err = f.engine.PostDocument(ctx, created.ID)
	require.ErrorIs(t, err, documents.ErrInvalidStatus)
	f.requireClean(t)
}

func TestPostingRejectsBadReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "5")

	mismatch := f.sale("1", "10", documents.StatusPosted)
	mismatch.AccountID = f.supplier.ID
	_, err := f.engine.CreateDocument(ctx, mismatch)
	require.ErrorIs(t, err, ErrAccountMismatch)
	require.ErrorIs(t, err, shared.ErrValidation)

	fromCustomer := f.purchase("1", "10")
	fromCustomer.AccountID = f.customer.ID
	_, err = f.engine.CreateDocument(ctx, fromCustomer)
	require.ErrorIs(t, err, ErrAccountMismatch)

	missingProduct := f.sale("1", "10", documents.StatusPosted)
	missingProduct.Lines[0].ProductID = 999
	_, err = f.engine.CreateDocument(ctx, missingProduct)
	require.ErrorIs(t, err, shared.ErrNotFound)

	missingAccount := f.sale("1", "10", documents.StatusPosted)
	missingAccount.AccountID = 999
	_, err = f.engine.CreateDocument(ctx, missingAccount)
	require.ErrorIs(t, err, shared.ErrNotFound)

	noWarehouse := f.sale("1", "10", documents.StatusPosted)
	noWarehouse.WarehouseID = 0
	_, err = f.engine.CreateDocument(ctx, noWarehouse)
	require.ErrorIs(t, err, shared.ErrValidation)

	docs, err := f.engine.ListDocuments(ctx, documents.Filter{})
	require.NoError(t, err)
	require.Empty(t, docs)
	requireDec(t, "5", f.level(t, f.warehouse.ID))
}

func TestReversingConsumedPurchaseConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	purchase, err := f.engine.CreateDocument(ctx, f.purchase("5", "2"))
	require.NoError(t, err)
	requireDec(t, "10", f.balance(t, f.supplier.ID))

	_, err = f.engine.CreateDocument(ctx, f.sale("4", "3", documents.StatusPosted))
	require.NoError(t, err)

	err = f.engine.DeleteDocument(ctx, purchase.ID)
	require.ErrorIs(t, err, shared.ErrConflict)
	requireDec(t, "1", f.level(t, f.warehouse.ID))
	requireDec(t, "10", f.balance(t, f.supplier.ID))

	_, err = f.engine.GetDocument(ctx, purchase.ID)
	require.NoError(t, err)
	f.requireClean(t)
}

func TestDeleteTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "5")

	invoice, err := f.engine.CreateDocument(ctx, f.sale("1", "50", documents.StatusPosted))
	require.NoError(t, err)

	var linked ledger.Transaction
	err = f.backend.ReadTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		linked, err = tx.FindTransactionByDocument(ctx, ledger.DocumentTypeInvoice, invoice.ID)
		return err
	})
	require.NoError(t, err)
	require.ErrorIs(t, f.engine.DeleteTransaction(ctx, linked.ID), shared.ErrValidation)

	payment, err := f.engine.RecordTransaction(ctx, TransactionInput{AccountID: f.customer.ID, Kind: ledger.KindCredit, Amount: dec("20")})
	require.NoError(t, err)
	requireDec(t, "30", f.balance(t, f.customer.ID))

	require.NoError(t, f.engine.DeleteTransaction(ctx, payment.ID))
	requireDec(t, "50", f.balance(t, f.customer.ID))
	require.ErrorIs(t, f.engine.DeleteTransaction(ctx, payment.ID), shared.ErrNotFound)

	_, err = f.engine.RecordTransaction(ctx, TransactionInput{AccountID: f.customer.ID, Kind: ledger.KindCredit, Amount: dec("0")})
	require.ErrorIs(t, err, shared.ErrValidation)
	f.requireClean(t)
}

func TestAdjustAndTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "8")

	level, err := f.engine.AdjustInventory(ctx, AdjustInput{ProductID: f.product.ID, WarehouseID: f.warehouse.ID, Quantity: dec("8"), Absolute: true})
	require.NoError(t, err)
	requireDec(t, "8", level.Quantity)

	_, err = f.engine.AdjustInventory(ctx, AdjustInput{ProductID: f.product.ID, WarehouseID: f.warehouse.ID, Quantity: dec("-9")})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	_, err = f.engine.AdjustInventory(ctx, AdjustInput{ProductID: f.product.ID, WarehouseID: f.warehouse.ID, Quantity: dec("0")})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.engine.AdjustInventory(ctx, AdjustInput{ProductID: f.product.ID, WarehouseID: f.warehouse.ID, Quantity: dec("-1"), Absolute: true})
	require.ErrorIs(t, err, shared.ErrValidation)

	from, to, err := f.engine.TransferStock(ctx, TransferInput{
		ProductID:       f.product.ID,
		FromWarehouseID: f.warehouse.ID,
		ToWarehouseID:   f.other.ID,
		Quantity:        dec("3"),
	})
	require.NoError(t, err)
	requireDec(t, "5", from.Quantity)
	requireDec(t, "3", to.Quantity)

	_, _, err = f.engine.TransferStock(ctx, TransferInput{
		ProductID:       f.product.ID,
		FromWarehouseID: f.other.ID,
		ToWarehouseID:   f.warehouse.ID,
		Quantity:        dec("4"),
	})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	requireDec(t, "3", f.level(t, f.other.ID))

	_, _, err = f.engine.TransferStock(ctx, TransferInput{ProductID: f.product.ID, FromWarehouseID: f.other.ID, ToWarehouseID: f.other.ID, Quantity: dec("1")})
	require.ErrorIs(t, err, shared.ErrValidation)
	f.requireClean(t)
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "10")

	var g errgroup.Group
	results := make([]error, 2)
	for i := range results {
		g.Go(func() error {
			_, results[i] = f.engine.CreateDocument(ctx, f.sale("7", "1", documents.StatusPosted))
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var succeeded, rejected int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, shared.ErrInsufficientStock), errors.Is(err, shared.ErrConflict):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, rejected)
	requireDec(t, "3", f.level(t, f.warehouse.ID))
	requireDec(t, "7", f.balance(t, f.customer.ID))
	f.requireClean(t)
}

func TestAuditAndCacheBumpOnCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	audit := &recordingAudit{}
	cache := &countingCache{}
	f.engine = NewEngine(f.backend, Deps{Audit: audit, Cache: cache})
	f.stock(t, "2")

	_, err := f.engine.CreateDocument(ctx, f.sale("5", "1", documents.StatusPosted))
	require.Error(t, err)
	doc, err := f.engine.CreateDocument(ctx, f.sale("1", "1", documents.StatusPosted))
	require.NoError(t, err)

	require.Equal(t, []string{"inventory:adjust", "document:create"}, audit.actions)
	require.Equal(t, 2, cache.bumps)

	last := audit.logs[len(audit.logs)-1]
	require.Equal(t, "document", last.Entity)
	require.Equal(t, SourceID("document", doc.ID).String(), last.Meta["source_id"])
	require.NotEqual(t, SourceID("document", doc.ID), SourceID("transaction", doc.ID))
}

type recordingAudit struct {
	actions []string
	logs    []shared.AuditLog
}

func (r *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	r.actions = append(r.actions, log.Action)
	r.logs = append(r.logs, log)
	return nil
}

type countingCache struct {
	bumps int
}

func (c *countingCache) Bump(context.Context) error {
	c.bumps++
	return nil
}

func TestCashSalePostsAgainstMoneyAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "10")
	md := masterdata.NewService(storage.ForMasterdata(f.backend), nil, nil)
	till, err := md.CreateAccount(ctx, ledger.Account{Code: "CASH", Name: "Till", Type: ledger.AccountTypeCash, IsActive: true})
	require.NoError(t, err)

	doc := f.sale("2", "15", documents.StatusPosted)
	doc.AccountID = till.ID
	sale, err := f.engine.CreateDocument(ctx, doc)
	require.NoError(t, err)
	requireDec(t, "30", f.balance(t, till.ID))
	requireDec(t, "8", f.level(t, f.warehouse.ID))

	require.NoError(t, f.engine.DeleteDocument(ctx, sale.ID))
	requireDec(t, "0", f.balance(t, till.ID))
	requireDec(t, "10", f.level(t, f.warehouse.ID))
	f.requireClean(t)
}

func TestAmountsAndQuantitiesRoundToStoredScale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	debit, err := f.engine.RecordTransaction(ctx, TransactionInput{AccountID: f.customer.ID, Kind: ledger.KindDebit, Amount: dec("0.005"), Date: day(2)})
	require.NoError(t, err)
	requireDec(t, "0.01", debit.Amount)
	_, err = f.engine.RecordTransaction(ctx, TransactionInput{AccountID: f.customer.ID, Kind: ledger.KindCredit, Amount: dec("0.005"), Date: day(3)})
	require.NoError(t, err)
	requireDec(t, "0", f.balance(t, f.customer.ID))
	recomputed, err := f.engine.RecomputeBalance(ctx, f.customer.ID)
	require.NoError(t, err)
	requireDec(t, "0", recomputed)

	_, err = f.engine.RecordTransaction(ctx, TransactionInput{AccountID: f.customer.ID, Kind: ledger.KindDebit, Amount: dec("0.004")})
	require.ErrorIs(t, err, shared.ErrValidation)

	level, err := f.engine.AdjustInventory(ctx, AdjustInput{ProductID: f.product.ID, WarehouseID: f.warehouse.ID, Quantity: dec("5.00005"), Date: day(1)})
	require.NoError(t, err)
	requireDec(t, "5.0001", level.Quantity)
	_, err = f.engine.AdjustInventory(ctx, AdjustInput{ProductID: f.product.ID, WarehouseID: f.warehouse.ID, Quantity: dec("0.00001")})
	require.ErrorIs(t, err, shared.ErrValidation)

	sale, err := f.engine.CreateDocument(ctx, f.sale("1.00004", "9.999", documents.StatusPosted))
	require.NoError(t, err)
	requireDec(t, "1", sale.Lines[0].Quantity)
	requireDec(t, "10.00", sale.Total)
	requireDec(t, "4.0001", f.level(t, f.warehouse.ID))
	requireDec(t, "10", f.balance(t, f.customer.ID))
	f.requireClean(t)
}
