package documents

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/inventory"
	"github.com/odyssey-erp/odyssey-books/internal/ledger"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// Kind distinguishes sales from purchases.
type Kind string

const (
	KindSale     Kind = "sale"
	KindPurchase Kind = "purchase"
)

// Valid reports whether the kind is known.
func (k Kind) Valid() bool {
	return k == KindSale || k == KindPurchase
}

// NumberPrefix returns the prefix used for generated document numbers.
func (k Kind) NumberPrefix() string {
	if k == KindPurchase {
		return "PUR"
	}
	return "INV"
}

// Status enumerates document lifecycle states.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPosted    Status = "posted"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether the status is known.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPosted || s == StatusCancelled
}

// Document is a sale or purchase header. Totals are always derived from Lines.
type Document struct {
	ID          int64           `json:"id"`
	Kind        Kind            `json:"kind"`
	Number      string          `json:"number"`
	AccountID   int64           `json:"account_id"`
	WarehouseID int64           `json:"warehouse_id"`
	Date        time.Time       `json:"date"`
	Status      Status          `json:"status"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Lines       []LineItem      `json:"lines,omitempty"`
}

// LineItem is one product line of a document.
type LineItem struct {
	ID         int64           `json:"id"`
	DocumentID int64           `json:"document_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Discount   decimal.Decimal `json:"discount"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
}

// Gross returns quantity times unit price.
func (l LineItem) Gross() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// Round brings every line to the scale its columns store: quantity and unit
// price to inventory.QuantityScale places, discount and tax to cents.
func (l LineItem) Round() LineItem {
	l.Quantity = inventory.RoundQuantity(l.Quantity)
	l.UnitPrice = l.UnitPrice.Round(inventory.QuantityScale)
	l.Discount = ledger.RoundAmount(l.Discount)
	l.Tax = ledger.RoundAmount(l.Tax)
	return l
}

// RoundLines rounds the document's lines in place.
func (d *Document) RoundLines() {
	for i := range d.Lines {
		d.Lines[i] = d.Lines[i].Round()
	}
}

// Filter narrows document listings. From and To are inclusive calendar days.
type Filter struct {
	Kind      Kind
	Status    Status
	AccountID int64
	From      time.Time
	To        time.Time
	Limit     int
}

// Matches reports whether doc passes the filter. Dates compare at day
// granularity in UTC.
func (f Filter) Matches(doc Document) bool {
	if f.Kind != "" && doc.Kind != f.Kind {
		return false
	}
	if f.Status != "" && doc.Status != f.Status {
		return false
	}
	if f.AccountID != 0 && doc.AccountID != f.AccountID {
		return false
	}
	if !f.From.IsZero() && doc.Date.Before(ledger.StartOfDay(f.From)) {
		return false
	}
	if !f.To.IsZero() && !doc.Date.Before(ledger.StartOfDay(f.To).AddDate(0, 0, 1)) {
		return false
	}
	return true
}

// Validate checks the header and lines. Account and warehouse are only
// required once the document is posted.
func (d Document) Validate() error {
	if !d.Kind.Valid() {
		return fmt.Errorf("%w: documents: unknown kind %q", shared.ErrValidation, d.Kind)
	}
	if d.Status != "" && !d.Status.Valid() {
		return fmt.Errorf("%w: documents: unknown status %q", shared.ErrValidation, d.Status)
	}
	if len(d.Lines) == 0 {
		return fmt.Errorf("%w: documents: at least one line required", shared.ErrValidation)
	}
	if d.Status == StatusPosted {
		if d.AccountID == 0 {
			return fmt.Errorf("%w: documents: account required", shared.ErrValidation)
		}
		if d.WarehouseID == 0 {
			return fmt.Errorf("%w: documents: warehouse required", shared.ErrValidation)
		}
	}
	for i, line := range d.Lines {
		if err := line.validate(); err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	return nil
}

func (l LineItem) validate() error {
	switch {
	case l.ProductID == 0:
		return fmt.Errorf("%w: documents: product required", shared.ErrValidation)
	case !l.Quantity.IsPositive():
		return fmt.Errorf("%w: documents: quantity must be positive", shared.ErrValidation)
	case l.UnitPrice.IsNegative():
		return fmt.Errorf("%w: documents: unit price must be >= 0", shared.ErrValidation)
	case l.Discount.IsNegative():
		return fmt.Errorf("%w: documents: discount must be >= 0", shared.ErrValidation)
	case l.Tax.IsNegative():
		return fmt.Errorf("%w: documents: tax must be >= 0", shared.ErrValidation)
	case l.Discount.GreaterThan(l.Gross()):
		return fmt.Errorf("%w: documents: discount exceeds line amount", shared.ErrValidation)
	}
	return nil
}

var (
	// ErrDocumentNotFound indicates a missing document row.
	ErrDocumentNotFound = fmt.Errorf("documents: document %w", shared.ErrNotFound)
	// ErrInvalidStatus rejects a lifecycle transition the document cannot make.
	ErrInvalidStatus = fmt.Errorf("documents: invalid status transition: %w", shared.ErrValidation)
)
