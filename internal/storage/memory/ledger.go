package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/ledger"
)

func (t *tx) InsertAccount(ctx context.Context, account ledger.Account) (ledger.Account, error) {
	if err := t.writable(); err != nil {
		return ledger.Account{}, err
	}
	t.state.seq.account++
	account.ID = t.state.seq.account
	t.state.accounts[account.ID] = account
	return account, nil
}

func (t *tx) GetAccount(ctx context.Context, id int64) (ledger.Account, error) {
	account, ok := t.state.accounts[id]
	if !ok {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return account, nil
}

// GetAccountForUpdate needs no row lock; the writer mutex already excludes
// every other unit.
func (t *tx) GetAccountForUpdate(ctx context.Context, id int64) (ledger.Account, error) {
	return t.GetAccount(ctx, id)
}

func (t *tx) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	out := make([]ledger.Account, 0, len(t.state.accounts))
	for _, account := range t.state.accounts {
		out = append(out, account)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) UpdateAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	if err := t.writable(); err != nil {
		return err
	}
	account, ok := t.state.accounts[id]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	account.CurrentBalance = balance
	t.state.accounts[id] = account
	return nil
}

func (t *tx) InsertTransaction(ctx context.Context, txn ledger.Transaction) (ledger.Transaction, error) {
	if err := t.writable(); err != nil {
		return ledger.Transaction{}, err
	}
	t.state.seq.transaction++
	txn.ID = t.state.seq.transaction
	t.state.transactions[txn.ID] = txn
	return txn, nil
}

func (t *tx) GetTransaction(ctx context.Context, id int64) (ledger.Transaction, error) {
	txn, ok := t.state.transactions[id]
	if !ok {
		return ledger.Transaction{}, ledger.ErrTransactionNotFound
	}
	return txn, nil
}

func (t *tx) FindTransactionByDocument(ctx context.Context, documentType ledger.DocumentType, documentID int64) (ledger.Transaction, error) {
	var found *ledger.Transaction
	for _, txn := range t.state.transactions {
		if txn.DocumentType != documentType || txn.DocumentID != documentID {
			continue
		}
		if found == nil || txn.ID < found.ID {
			candidate := txn
			found = &candidate
		}
	}
	if found == nil {
		return ledger.Transaction{}, ledger.ErrTransactionNotFound
	}
	return *found, nil
}

func (t *tx) ListTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	for _, txn := range t.state.transactions {
		if filter.AccountID != 0 && txn.AccountID != filter.AccountID {
			continue
		}
		if !filter.From.IsZero() && txn.Date.Before(filter.From) {
			continue
		}
		if !filter.Before.IsZero() && !txn.Date.Before(filter.Before) {
			continue
		}
		out = append(out, txn)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *tx) DeleteTransaction(ctx context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.state.transactions[id]; !ok {
		return ledger.ErrTransactionNotFound
	}
	delete(t.state.transactions, id)
	return nil
}
