package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// TxRepository exposes the account and transaction rows visible inside one
// storage transaction.
type TxRepository interface {
	InsertAccount(ctx context.Context, account Account) (Account, error)
	GetAccount(ctx context.Context, id int64) (Account, error)
	GetAccountForUpdate(ctx context.Context, id int64) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	UpdateAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) error
	InsertTransaction(ctx context.Context, t Transaction) (Transaction, error)
	GetTransaction(ctx context.Context, id int64) (Transaction, error)
	FindTransactionByDocument(ctx context.Context, documentType DocumentType, documentID int64) (Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
}

// Store implements the balance primitives on top of a TxRepository. Callers
// own the transaction boundary; every method must run inside one.
type Store struct {
	now func() time.Time
}

// NewStore constructs the ledger store.
func NewStore() *Store {
	return &Store{now: func() time.Time { return time.Now().UTC() }}
}

// WithNow overrides the clock for testing.
func (s *Store) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// GetBalance returns the cached current balance.
func (s *Store) GetBalance(ctx context.Context, tx TxRepository, accountID int64) (decimal.Decimal, error) {
	account, err := tx.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.CurrentBalance, nil
}

// Apply locks the account row, moves its balance by the signed effect of t
// and persists t.
func (s *Store) Apply(ctx context.Context, tx TxRepository, t Transaction) (Transaction, error) {
	if t.DocumentType == "" {
		t.DocumentType = DocumentTypeNone
	}
	if t.Kind != KindJournal {
		t.IsDebit = t.Kind == KindDebit
	}
	t.Amount = RoundAmount(t.Amount)
	if err := t.Validate(); err != nil {
		return Transaction{}, err
	}
	if t.Date.IsZero() {
		t.Date = s.now()
	}
	account, err := tx.GetAccountForUpdate(ctx, t.AccountID)
	if err != nil {
		return Transaction{}, err
	}
	balance := account.CurrentBalance.Add(Signed(account.Type, t))
	if err := tx.UpdateAccountBalance(ctx, account.ID, balance); err != nil {
		return Transaction{}, err
	}
	return tx.InsertTransaction(ctx, t)
}

// Reverse removes a transaction and restores the balance it moved.
func (s *Store) Reverse(ctx context.Context, tx TxRepository, transactionID int64) (Transaction, error) {
	t, err := tx.GetTransaction(ctx, transactionID)
	if err != nil {
		return Transaction{}, err
	}
	account, err := tx.GetAccountForUpdate(ctx, t.AccountID)
	if err != nil {
		return Transaction{}, err
	}
	balance := account.CurrentBalance.Sub(Signed(account.Type, t))
	if err := tx.UpdateAccountBalance(ctx, account.ID, balance); err != nil {
		return Transaction{}, err
	}
	if err := tx.DeleteTransaction(ctx, t.ID); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

// Recompute replays the account's transactions from its opening balance.
// A non-zero before restricts the replay to transactions dated before the
// start of its UTC day, the same cut-off a statement starting that day uses.
func (s *Store) Recompute(ctx context.Context, tx TxRepository, accountID int64, before time.Time) (decimal.Decimal, error) {
	account, err := tx.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if !before.IsZero() {
		before = StartOfDay(before)
	}
	txs, err := tx.ListTransactions(ctx, TransactionFilter{AccountID: accountID, Before: before})
	if err != nil {
		return decimal.Zero, err
	}
	return Replay(account, txs), nil
}

// Replay folds transactions onto the account's opening balance.
func Replay(account Account, txs []Transaction) decimal.Decimal {
	balance := account.OpeningBalance
	for _, t := range txs {
		balance = balance.Add(Signed(account.Type, t))
	}
	return balance
}

// Drift describes an account whose cached balance disagrees with its replay.
type Drift struct {
	AccountID  int64
	Stored     decimal.Decimal
	Recomputed decimal.Decimal
}

// Verify recomputes every account and reports the ones that drifted.
func (s *Store) Verify(ctx context.Context, tx TxRepository) ([]Drift, error) {
	accounts, err := tx.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	var drifts []Drift
	for _, account := range accounts {
		txs, err := tx.ListTransactions(ctx, TransactionFilter{AccountID: account.ID})
		if err != nil {
			return nil, err
		}
		if replayed := Replay(account, txs); !replayed.Equal(account.CurrentBalance) {
			drifts = append(drifts, Drift{AccountID: account.ID, Stored: account.CurrentBalance, Recomputed: replayed})
		}
	}
	return drifts, nil
}

// CreateAccount validates and inserts a new account. CurrentBalance starts at
// the opening balance.
func (s *Store) CreateAccount(ctx context.Context, tx TxRepository, account Account) (Account, error) {
	if account.Name == "" {
		return Account{}, fmt.Errorf("%w: ledger: account name required", shared.ErrValidation)
	}
	if !account.Type.Valid() {
		return Account{}, fmt.Errorf("%w: ledger: unknown account type %q", shared.ErrValidation, account.Type)
	}
	now := s.now()
	account.OpeningBalance = RoundAmount(account.OpeningBalance)
	account.CurrentBalance = account.OpeningBalance
	account.CreatedAt = now
	account.UpdatedAt = now
	return tx.InsertAccount(ctx, account)
}
