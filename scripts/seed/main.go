// Command seed loads a small demo set of books: two parties, two products,
// two warehouses and a month of documents and payments.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/app"
	"github.com/odyssey-erp/odyssey-books/internal/documents"
	"github.com/odyssey-erp/odyssey-books/internal/ledger"
	"github.com/odyssey-erp/odyssey-books/internal/masterdata"
	"github.com/odyssey-erp/odyssey-books/internal/posting"
)

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	books, err := app.Open(ctx, cfg, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	if err != nil {
		log.Fatalf("open books: %v", err)
	}
	defer books.Close()

	summary, err := seed(ctx, books.MasterData, books.Engine, time.Now().UTC())
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	fmt.Printf("✓ Seeded %d documents and %d payments at %s\n", summary.documents, summary.payments, time.Now().Format(time.RFC3339))
}

type seedSummary struct {
	customer  ledger.Account
	supplier  ledger.Account
	documents int
	payments  int
}

func seed(ctx context.Context, md *masterdata.Service, engine *posting.Engine, now time.Time) (seedSummary, error) {
	var out seedSummary
	day := func(offset int) time.Time { return ledger.StartOfDay(now).AddDate(0, 0, offset-30) }
	dec := decimal.RequireFromString

	fmt.Println("→ Seeding master data...")
	customer, err := md.CreateAccount(ctx, ledger.Account{Code: "C-001", Name: "Acme Retail", Type: ledger.AccountTypeCustomer, IsActive: true})
	if err != nil {
		return out, err
	}
	supplier, err := md.CreateAccount(ctx, ledger.Account{Code: "S-001", Name: "Northwind Supply", Type: ledger.AccountTypeSupplier, IsActive: true})
	if err != nil {
		return out, err
	}
	if _, err := md.CreateAccount(ctx, ledger.Account{Code: "B-001", Name: "Operating Bank", Type: ledger.AccountTypeBank, OpeningBalance: dec("5000"), IsActive: true}); err != nil {
		return out, err
	}
	widget, err := md.CreateProduct(ctx, masterdata.Product{SKU: "WID-01", Name: "Widget", IsActive: true})
	if err != nil {
		return out, err
	}
	gadget, err := md.CreateProduct(ctx, masterdata.Product{SKU: "GAD-01", Name: "Gadget", IsActive: true})
	if err != nil {
		return out, err
	}
	central, err := md.CreateWarehouse(ctx, masterdata.Warehouse{Code: "MAIN", Name: "Main warehouse", IsActive: true})
	if err != nil {
		return out, err
	}
	store, err := md.CreateWarehouse(ctx, masterdata.Warehouse{Code: "SHOP", Name: "Shop floor", IsActive: true})
	if err != nil {
		return out, err
	}
	out.customer, out.supplier = customer, supplier

	fmt.Println("→ Seeding purchases...")
	purchase, err := engine.CreateDocument(ctx, documents.Document{
		Kind:        documents.KindPurchase,
		AccountID:   supplier.ID,
		WarehouseID: central.ID,
		Date:        day(1),
		Status:      documents.StatusPosted,
		Lines: []documents.LineItem{
			{ProductID: widget.ID, Quantity: dec("120"), UnitPrice: dec("4.50")},
			{ProductID: gadget.ID, Quantity: dec("40"), UnitPrice: dec("11.00"), Tax: dec("10")},
		},
	})
	if err != nil {
		return out, err
	}
	out.documents++
	if _, _, err := engine.TransferStock(ctx, posting.TransferInput{ProductID: widget.ID, FromWarehouseID: central.ID, ToWarehouseID: store.ID, Quantity: dec("30"), Date: day(2)}); err != nil {
		return out, err
	}

	fmt.Println("→ Seeding sales...")
	for i, qty := range []string{"12", "8", "15"} {
		if _, err := engine.CreateDocument(ctx, documents.Document{
			Kind:        documents.KindSale,
			AccountID:   customer.ID,
			WarehouseID: central.ID,
			Date:        day(5 + 7*i),
			Status:      documents.StatusPosted,
			Lines:       []documents.LineItem{{ProductID: widget.ID, Quantity: dec(qty), UnitPrice: dec("9.90"), Discount: dec("5")}},
		}); err != nil {
			return out, err
		}
		out.documents++
	}
	if _, err := engine.CreateDocument(ctx, documents.Document{
		Kind:        documents.KindSale,
		AccountID:   customer.ID,
		WarehouseID: store.ID,
		Date:        day(29),
		Notes:       "awaiting approval",
		Lines:       []documents.LineItem{{ProductID: widget.ID, Quantity: dec("4"), UnitPrice: dec("9.90")}},
	}); err != nil {
		return out, err
	}
	out.documents++

	fmt.Println("→ Seeding payments...")
	payments := []posting.TransactionInput{
		{AccountID: customer.ID, Kind: ledger.KindCredit, Amount: dec("100"), Date: day(10), Reference: "RCPT-001"},
		{AccountID: customer.ID, Kind: ledger.KindCredit, Amount: dec("75.25"), Date: day(24), Reference: "RCPT-002"},
		{AccountID: supplier.ID, Kind: ledger.KindDebit, Amount: purchase.Total.Div(decimal.NewFromInt(2)).Round(2), Date: day(15), Reference: "PAY-001"},
	}
	for _, p := range payments {
		if _, err := engine.RecordTransaction(ctx, p); err != nil {
			return out, err
		}
		out.payments++
	}

	if _, err := engine.AdjustInventory(ctx, posting.AdjustInput{ProductID: gadget.ID, WarehouseID: central.ID, Quantity: dec("-2"), Date: day(20), Notes: "damaged in storage"}); err != nil {
		return out, err
	}
	return out, nil
}
