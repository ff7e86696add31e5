package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// AccountType enumerates the kinds of accounts the books track.
type AccountType string

const (
	AccountTypeCustomer AccountType = "customer"
	AccountTypeSupplier AccountType = "supplier"
	AccountTypeExpense  AccountType = "expense"
	AccountTypeIncome   AccountType = "income"
	AccountTypeBank     AccountType = "bank"
	AccountTypeCash     AccountType = "cash"
)

// Valid reports whether the type is one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeCustomer, AccountTypeSupplier, AccountTypeExpense, AccountTypeIncome, AccountTypeBank, AccountTypeCash:
		return true
	}
	return false
}

// AmountScale is the number of decimal places money columns store.
const AmountScale int32 = 2

// RoundAmount rounds money to AmountScale places, half away from zero.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountScale)
}

// StartOfDay truncates t to midnight UTC. Statement periods and replay
// cut-offs work at this granularity.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Kind enumerates financial transaction kinds.
type Kind string

const (
	KindCredit  Kind = "credit"
	KindDebit   Kind = "debit"
	KindJournal Kind = "journal"
)

// Valid reports whether the kind is known.
func (k Kind) Valid() bool {
	return k == KindCredit || k == KindDebit || k == KindJournal
}

// DocumentType tags a transaction with the document that produced it.
type DocumentType string

const (
	DocumentTypeNone     DocumentType = "none"
	DocumentTypeInvoice  DocumentType = "invoice"
	DocumentTypePurchase DocumentType = "purchase"
)

// Account is a customer, supplier or internal money account.
// CurrentBalance is a cache of OpeningBalance plus the replay of every
// transaction recorded against the account.
type Account struct {
	ID             int64
	Code           string
	Name           string
	Type           AccountType
	OpeningBalance decimal.Decimal
	CurrentBalance decimal.Decimal
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Transaction is a signed financial effect against one account.
type Transaction struct {
	ID           int64
	AccountID    int64
	Kind         Kind
	IsDebit      bool
	Amount       decimal.Decimal
	Date         time.Time
	Reference    string
	DocumentID   int64
	DocumentType DocumentType
	Notes        string
	CreatedAt    time.Time
}

// Debit reports whether the transaction is debit-tagged.
func (t Transaction) Debit() bool {
	if t.Kind == KindJournal {
		return t.IsDebit
	}
	return t.Kind == KindDebit
}

// Validate checks the transaction shape before it touches the store.
func (t Transaction) Validate() error {
	if t.AccountID == 0 {
		return fmt.Errorf("%w: ledger: account required", shared.ErrValidation)
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: ledger: unknown transaction kind %q", shared.ErrValidation, t.Kind)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: ledger: amount must be positive", shared.ErrValidation)
	}
	switch t.DocumentType {
	case "", DocumentTypeNone, DocumentTypeInvoice, DocumentTypePurchase:
	default:
		return fmt.Errorf("%w: ledger: unknown document type %q", shared.ErrValidation, t.DocumentType)
	}
	return nil
}

// TransactionFilter narrows transaction listings for one account.
// From is inclusive, Before is exclusive; zero values disable the bound.
type TransactionFilter struct {
	AccountID int64
	From      time.Time
	Before    time.Time
}

var (
	// ErrAccountNotFound indicates a missing account row.
	ErrAccountNotFound = fmt.Errorf("ledger: account %w", shared.ErrNotFound)
	// ErrTransactionNotFound indicates a missing transaction row.
	ErrTransactionNotFound = fmt.Errorf("ledger: transaction %w", shared.ErrNotFound)
)
