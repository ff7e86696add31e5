package ledger

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

type memoryTx struct {
	accounts map[int64]Account
	txs      map[int64]Transaction
	nextID   int64
}

func newMemoryTx() *memoryTx {
	return &memoryTx{accounts: make(map[int64]Account), txs: make(map[int64]Transaction)}
}

func (m *memoryTx) InsertAccount(ctx context.Context, account Account) (Account, error) {
	m.nextID++
	account.ID = m.nextID
	m.accounts[account.ID] = account
	return account, nil
}

func (m *memoryTx) GetAccount(ctx context.Context, id int64) (Account, error) {
	account, ok := m.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (m *memoryTx) GetAccountForUpdate(ctx context.Context, id int64) (Account, error) {
	return m.GetAccount(ctx, id)
}

func (m *memoryTx) ListAccounts(ctx context.Context) ([]Account, error) {
	var out []Account
	for _, a := range m.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (m *memoryTx) UpdateAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	account := m.accounts[id]
	account.CurrentBalance = balance
	m.accounts[id] = account
	return nil
}

func (m *memoryTx) InsertTransaction(ctx context.Context, t Transaction) (Transaction, error) {
	m.nextID++
	t.ID = m.nextID
	m.txs[t.ID] = t
	return t, nil
}

func (m *memoryTx) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	t, ok := m.txs[id]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return t, nil
}

func (m *memoryTx) FindTransactionByDocument(ctx context.Context, documentType DocumentType, documentID int64) (Transaction, error) {
	for _, t := range m.txs {
		if t.DocumentType == documentType && t.DocumentID == documentID {
			return t, nil
		}
	}
	return Transaction{}, ErrTransactionNotFound
}

func (m *memoryTx) ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	var out []Transaction
	for _, t := range m.txs {
		if t.AccountID != filter.AccountID {
			continue
		}
		if !filter.Before.IsZero() && !t.Date.Before(filter.Before) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryTx) DeleteTransaction(ctx context.Context, id int64) error {
	delete(m.txs, id)
	return nil
}

func TestApplyAndReverseRestoreBalance(t *testing.T) {
	ctx := context.Background()
	tx := newMemoryTx()
	store := NewStore()
	account, err := store.CreateAccount(ctx, tx, Account{Name: "Acme", Type: AccountTypeSupplier, OpeningBalance: decimal.NewFromInt(5)})
	require.NoError(t, err)
	require.True(t, account.CurrentBalance.Equal(decimal.NewFromInt(5)))

	applied, err := store.Apply(ctx, tx, Transaction{AccountID: account.ID, Kind: KindCredit, Amount: decimal.NewFromInt(20), DocumentType: DocumentTypePurchase, DocumentID: 9})
	require.NoError(t, err)
	balance, err := store.GetBalance(ctx, tx, account.ID)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.NewFromInt(25)))

	_, err = store.Apply(ctx, tx, Transaction{AccountID: account.ID, Kind: KindDebit, Amount: decimal.NewFromInt(8)})
	require.NoError(t, err)
	recomputed, err := store.Recompute(ctx, tx, account.ID, time.Time{})
	require.NoError(t, err)
	require.True(t, recomputed.Equal(decimal.NewFromInt(17)))

	_, err = store.Reverse(ctx, tx, applied.ID)
	require.NoError(t, err)
	balance, err = store.GetBalance(ctx, tx, account.ID)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.NewFromInt(-3)))

	drifts, err := store.Verify(ctx, tx)
	require.NoError(t, err)
	require.Empty(t, drifts)
}

func TestApplyRejectsInvalidTransactions(t *testing.T) {
	ctx := context.Background()
	tx := newMemoryTx()
	store := NewStore()
	account, err := store.CreateAccount(ctx, tx, Account{Name: "Walk-in", Type: AccountTypeCustomer})
	require.NoError(t, err)

	_, err = store.Apply(ctx, tx, Transaction{AccountID: account.ID, Kind: KindDebit, Amount: decimal.Zero})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = store.Apply(ctx, tx, Transaction{AccountID: account.ID, Kind: "transfer", Amount: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = store.Apply(ctx, tx, Transaction{AccountID: 404, Kind: KindDebit, Amount: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, tx.txs)
}

func TestRecomputeBeforeDate(t *testing.T) {
	ctx := context.Background()
	tx := newMemoryTx()
	store := NewStore()
	account, err := store.CreateAccount(ctx, tx, Account{Name: "Bank", Type: AccountTypeBank})
	require.NoError(t, err)
	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	_, err = store.Apply(ctx, tx, Transaction{AccountID: account.ID, Kind: KindJournal, IsDebit: true, Amount: decimal.NewFromInt(50), Date: jan})
	require.NoError(t, err)
	_, err = store.Apply(ctx, tx, Transaction{AccountID: account.ID, Kind: KindJournal, Amount: decimal.NewFromInt(20), Date: feb})
	require.NoError(t, err)

	before, err := store.Recompute(ctx, tx, account.ID, feb)
	require.NoError(t, err)
	require.True(t, before.Equal(decimal.NewFromInt(50)))
	all, err := store.Recompute(ctx, tx, account.ID, time.Time{})
	require.NoError(t, err)
	require.True(t, all.Equal(decimal.NewFromInt(30)))
}

func TestApplyRoundsAmountsToCents(t *testing.T) {
	ctx := context.Background()
	tx := newMemoryTx()
	store := NewStore()
	account, err := store.CreateAccount(ctx, tx, Account{Name: "Walk-in", Type: AccountTypeCustomer, OpeningBalance: decimal.RequireFromString("1.005")})
	require.NoError(t, err)
	require.True(t, account.OpeningBalance.Equal(decimal.RequireFromString("1.01")))

	debit, err := store.Apply(ctx, tx, Transaction{AccountID: account.ID, Kind: KindDebit, Amount: decimal.RequireFromString("0.005")})
	require.NoError(t, err)
	require.True(t, debit.Amount.Equal(decimal.RequireFromString("0.01")))
	_, err = store.Apply(ctx, tx, Transaction{AccountID: account.ID, Kind: KindCredit, Amount: decimal.RequireFromString("0.005")})
	require.NoError(t, err)

	balance, err := store.GetBalance(ctx, tx, account.ID)
	require.NoError(t, err)
	recomputed, err := store.Recompute(ctx, tx, account.ID, time.Time{})
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.RequireFromString("1.01")), "balance %s", balance)
	require.True(t, recomputed.Equal(balance))

	_, err = store.Apply(ctx, tx, Transaction{AccountID: account.ID, Kind: KindDebit, Amount: decimal.RequireFromString("0.004")})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecomputeCutsOffAtStartOfDay(t *testing.T) {
	ctx := context.Background()
	tx := newMemoryTx()
	store := NewStore()
	account, err := store.CreateAccount(ctx, tx, Account{Name: "Till", Type: AccountTypeCash})
	require.NoError(t, err)
	morning := time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC)
	_, err = store.Apply(ctx, tx, Transaction{AccountID: account.ID, Kind: KindDebit, Amount: decimal.NewFromInt(7), Date: morning})
	require.NoError(t, err)

	afternoon := time.Date(2025, 2, 10, 15, 0, 0, 0, time.UTC)
	before, err := store.Recompute(ctx, tx, account.ID, afternoon)
	require.NoError(t, err)
	require.True(t, before.IsZero(), "same-day transaction counted: %s", before)

	next, err := store.Recompute(ctx, tx, account.ID, afternoon.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.True(t, next.Equal(decimal.NewFromInt(7)))
}
