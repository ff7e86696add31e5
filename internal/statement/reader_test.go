package statement

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-books/internal/documents"
	"github.com/odyssey-erp/odyssey-books/internal/ledger"
	"github.com/odyssey-erp/odyssey-books/internal/masterdata"
	"github.com/odyssey-erp/odyssey-books/internal/posting"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
	"github.com/odyssey-erp/odyssey-books/internal/storage"
	"github.com/odyssey-erp/odyssey-books/internal/storage/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }

type books struct {
	backend   *memory.Backend
	engine    *posting.Engine
	customer  ledger.Account
	product   masterdata.Product
	warehouse masterdata.Warehouse
}

func seed(t *testing.T) books {
	t.Helper()
	ctx := context.Background()
	b := memory.New()
	md := masterdata.NewService(storage.ForMasterdata(b), nil, nil)
	customer, err := md.CreateAccount(ctx, ledger.Account{Name: "Customer A", Type: ledger.AccountTypeCustomer, OpeningBalance: dec("50"), IsActive: true})
	require.NoError(t, err)
	product, err := md.CreateProduct(ctx, masterdata.Product{SKU: "P-1", Name: "Widget", IsActive: true})
	require.NoError(t, err)
	warehouse, err := md.CreateWarehouse(ctx, masterdata.Warehouse{Code: "W", Name: "Main", IsActive: true})
	require.NoError(t, err)
	engine := posting.NewEngine(b, posting.Deps{})
	_, err = engine.AdjustInventory(ctx, posting.AdjustInput{ProductID: product.ID, WarehouseID: warehouse.ID, Quantity: dec("100"), Date: day(1)})
	require.NoError(t, err)
	return books{backend: b, engine: engine, customer: customer, product: product, warehouse: warehouse}
}

func (bk books) invoice(t *testing.T, d int, amount string, status documents.Status) documents.Document {
	t.Helper()
	doc, err := bk.engine.CreateDocument(context.Background(), documents.Document{
		Kind:        documents.KindSale,
		AccountID:   bk.customer.ID,
		WarehouseID: bk.warehouse.ID,
		Date:        day(d),
		Status:      status,
		Lines:       []documents.LineItem{{ProductID: bk.product.ID, Quantity: dec("1"), UnitPrice: dec(amount)}},
	})
	require.NoError(t, err)
	return doc
}

func (bk books) payment(t *testing.T, d int, amount string) {
	t.Helper()
	_, err := bk.engine.RecordTransaction(context.Background(), posting.TransactionInput{
		AccountID: bk.customer.ID,
		Kind:      ledger.KindCredit,
		Amount:    dec(amount),
		Date:      day(d),
		Reference: "RCPT",
	})
	require.NoError(t, err)
}

func requireDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestStatementRunningBalance(t *testing.T) {
	bk := seed(t)
	ctx := context.Background()
	bk.invoice(t, 2, "100", documents.StatusPosted)
	bk.payment(t, 4, "40")
	bk.invoice(t, 6, "30", documents.StatusPosted)
	bk.invoice(t, 6, "999", documents.StatusDraft)
	bk.invoice(t, 9, "5", documents.StatusPosted)

	reader := NewReader(bk.backend, nil, nil)
	st, err := reader.Statement(ctx, bk.customer.ID, day(3), day(6))
	require.NoError(t, err)

	requireDec(t, "150", st.StartingBalance)
	require.Len(t, st.Entries, 2)
	require.Equal(t, SourceTransaction, st.Entries[0].Source)
	requireDec(t, "-40", st.Entries[0].Effect)
	requireDec(t, "110", st.Entries[0].RunningBalance)
	requireDec(t, "140", st.Entries[1].RunningBalance)
	requireDec(t, "140", st.EndingBalance)
	requireDec(t, "30", st.TotalDebit)
	requireDec(t, "40", st.TotalCredit)

	var before decimal.Decimal
	err = bk.backend.ReadTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		before, err = ledger.NewStore().Recompute(ctx, tx, bk.customer.ID, day(3))
		return err
	})
	require.NoError(t, err)
	require.True(t, before.Equal(st.StartingBalance))

	full, err := reader.Statement(ctx, bk.customer.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	requireDec(t, "50", full.StartingBalance)
	require.Len(t, full.Entries, 4)
	require.True(t, full.EndingBalance.Equal(full.Account.CurrentBalance))
}

func TestStatementUnknownAccount(t *testing.T) {
	bk := seed(t)
	_, err := NewReader(bk.backend, nil, nil).Statement(context.Background(), 999, time.Time{}, time.Time{})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestBuildFiltersByAccountType(t *testing.T) {
	customer := ledger.Account{ID: 1, Type: ledger.AccountTypeCustomer, OpeningBalance: dec("0")}
	txs := []ledger.Transaction{
		{ID: 1, AccountID: 1, Kind: ledger.KindDebit, Amount: dec("10"), Date: day(2), DocumentID: 7, DocumentType: ledger.DocumentTypeInvoice, Reference: "INV-7"},
		{ID: 2, AccountID: 1, Kind: ledger.KindCredit, Amount: dec("99"), Date: day(2), DocumentID: 8, DocumentType: ledger.DocumentTypePurchase},
	}
	docs := []documents.Document{
		{ID: 7, Kind: documents.KindSale, Number: "INV-7", Status: documents.StatusPosted, Total: dec("10"), Date: day(2)},
		{ID: 9, Kind: documents.KindSale, Number: "INV-9", Status: documents.StatusPosted, Total: dec("25"), Date: day(2)},
		{ID: 10, Kind: documents.KindSale, Number: "INV-7", Status: documents.StatusPosted, Total: dec("10"), Date: day(3)},
		{ID: 11, Kind: documents.KindPurchase, Number: "PUR-11", Status: documents.StatusPosted, Total: dec("5"), Date: day(3)},
		{ID: 12, Kind: documents.KindSale, Number: "INV-12", Status: documents.StatusCancelled, Total: dec("5"), Date: day(3)},
	}

	st := Build(customer, txs, docs, time.Time{}, time.Time{})
	require.Len(t, st.Entries, 2)
	require.Equal(t, SourceTransaction, st.Entries[0].Source)
	require.Equal(t, int64(1), st.Entries[0].ID)
	require.Equal(t, SourceDocument, st.Entries[1].Source)
	require.Equal(t, int64(9), st.Entries[1].ID)
	require.True(t, st.Entries[1].Debit)
	requireDec(t, "35", st.EndingBalance)

	supplier := ledger.Account{ID: 2, Type: ledger.AccountTypeSupplier, OpeningBalance: dec("5")}
	st = Build(supplier, txs, docs, time.Time{}, time.Time{})
	require.Len(t, st.Entries, 2)
	requireDec(t, "99", st.Entries[0].Effect)
	require.Equal(t, int64(11), st.Entries[1].ID)
	requireDec(t, "109", st.EndingBalance)

	bank := ledger.Account{ID: 3, Type: ledger.AccountTypeBank}
	st = Build(bank, nil, docs, time.Time{}, time.Time{})
	require.Empty(t, st.Entries)
	require.True(t, st.EndingBalance.Equal(st.StartingBalance))
}

func TestStatementCacheVersioning(t *testing.T) {
	bk := seed(t)
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)

	bk.invoice(t, 2, "100", documents.StatusPosted)
	reader := NewReader(bk.backend, cache, nil)
	st, err := reader.Statement(ctx, bk.customer.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	requireDec(t, "150", st.EndingBalance)

	key, err := cache.BuildKey(ctx, "statement", "1", "-", "-")
	require.NoError(t, err)
	require.True(t, mr.Exists(key))

	// Writes through an engine without the cache leave the entry stale.
	bk.payment(t, 3, "20")
	st, err = reader.Statement(ctx, bk.customer.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	requireDec(t, "150", st.EndingBalance)

	require.NoError(t, cache.Bump(ctx))
	st, err = reader.Statement(ctx, bk.customer.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	requireDec(t, "130", st.EndingBalance)

	cached := posting.NewEngine(bk.backend, posting.Deps{Cache: cache})
	_, err = cached.RecordTransaction(ctx, posting.TransactionInput{AccountID: bk.customer.ID, Kind: ledger.KindCredit, Amount: dec("30"), Date: day(4)})
	require.NoError(t, err)
	st, err = reader.Statement(ctx, bk.customer.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	requireDec(t, "100", st.EndingBalance)
}

func TestNilCacheLoadsDirectly(t *testing.T) {
	var c *Cache
	var out map[string]int
	err := c.FetchJSON(context.Background(), "k", &out, func(context.Context) (any, error) {
		return map[string]int{"a": 1}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, out["a"])
	require.NoError(t, c.Bump(context.Background()))
}

func TestStartingBalanceAgreesWithRecomputeMidDay(t *testing.T) {
	bk := seed(t)
	ctx := context.Background()
	bk.invoice(t, 2, "100", documents.StatusPosted)
	_, err := bk.engine.RecordTransaction(ctx, posting.TransactionInput{
		AccountID: bk.customer.ID,
		Kind:      ledger.KindCredit,
		Amount:    dec("25"),
		Date:      day(4).Add(9 * time.Hour),
	})
	require.NoError(t, err)

	start := day(4).Add(14 * time.Hour)
	st, err := NewReader(bk.backend, nil, nil).Statement(ctx, bk.customer.ID, start, time.Time{})
	require.NoError(t, err)

	var before decimal.Decimal
	err = bk.backend.ReadTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		before, err = ledger.NewStore().Recompute(ctx, tx, bk.customer.ID, start)
		return err
	})
	require.NoError(t, err)
	requireDec(t, "150", st.StartingBalance)
	require.True(t, before.Equal(st.StartingBalance), "recompute %s, statement %s", before, st.StartingBalance)
	require.Len(t, st.Entries, 1)
}
