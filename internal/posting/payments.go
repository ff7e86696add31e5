package posting

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/ledger"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
	"github.com/odyssey-erp/odyssey-books/internal/storage"
)

// TransactionInput describes a standalone payment, receipt or journal entry.
type TransactionInput struct {
	AccountID int64
	Kind      ledger.Kind
	IsDebit   bool
	Amount    decimal.Decimal
	Date      time.Time
	Reference string
	Notes     string
}

// RecordTransaction applies a transaction that belongs to no document.
func (e *Engine) RecordTransaction(ctx context.Context, in TransactionInput) (ledger.Transaction, error) {
	t := ledger.Transaction{
		AccountID:    in.AccountID,
		Kind:         in.Kind,
		IsDebit:      in.IsDebit,
		Amount:       ledger.RoundAmount(in.Amount),
		Date:         in.Date,
		Reference:    in.Reference,
		DocumentType: ledger.DocumentTypeNone,
		Notes:        in.Notes,
	}
	if err := t.Validate(); err != nil {
		return ledger.Transaction{}, err
	}
	var applied ledger.Transaction
	err := e.write(ctx, "record_transaction", func(ctx context.Context, tx storage.Tx) error {
		account, err := tx.GetAccountForUpdate(ctx, in.AccountID)
		if err != nil {
			return err
		}
		if !account.IsActive {
			return fmt.Errorf("%w: account %d is inactive", shared.ErrValidation, account.ID)
		}
		applied, err = e.ledger.Apply(ctx, tx, t)
		return err
	})
	if err != nil {
		return ledger.Transaction{}, err
	}
	e.record(ctx, "transaction:record", "transaction", applied.ID, map[string]any{
		"account_id": applied.AccountID,
		"kind":       applied.Kind,
		"amount":     applied.Amount.String(),
	})
	return applied, nil
}

// DeleteTransaction reverses a standalone transaction. Document-linked
// transactions are only removed through their document.
func (e *Engine) DeleteTransaction(ctx context.Context, id int64) error {
	var removed ledger.Transaction
	err := e.write(ctx, "delete_transaction", func(ctx context.Context, tx storage.Tx) error {
		t, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if t.DocumentID != 0 || t.DocumentType != ledger.DocumentTypeNone {
			return fmt.Errorf("%w: transaction %d belongs to document %d, delete the document instead", shared.ErrValidation, t.ID, t.DocumentID)
		}
		removed, err = e.ledger.Reverse(ctx, tx, id)
		return err
	})
	if err != nil {
		return err
	}
	e.record(ctx, "transaction:delete", "transaction", removed.ID, map[string]any{
		"account_id": removed.AccountID,
		"amount":     removed.Amount.String(),
	})
	return nil
}

// GetAccountBalance returns the stored current balance.
func (e *Engine) GetAccountBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := e.read(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		balance, err = e.ledger.GetBalance(ctx, tx, accountID)
		return err
	})
	return balance, err
}

// RecomputeBalance replays the account's full history.
func (e *Engine) RecomputeBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := e.read(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		balance, err = e.ledger.Recompute(ctx, tx, accountID, time.Time{})
		return err
	})
	return balance, err
}
