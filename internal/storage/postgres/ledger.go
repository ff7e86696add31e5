package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/ledger"
)

const accountColumns = `id, code, name, type, opening_balance, current_balance, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (ledger.Account, error) {
	var a ledger.Account
	var typ string
	err := row.Scan(&a.ID, &a.Code, &a.Name, &typ, &a.OpeningBalance, &a.CurrentBalance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	a.Type = ledger.AccountType(typ)
	return a, err
}

func (t *tx) InsertAccount(ctx context.Context, account ledger.Account) (ledger.Account, error) {
	row := t.q.QueryRow(ctx, `INSERT INTO accounts (code, name, type, opening_balance, current_balance, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		account.Code, account.Name, string(account.Type), account.OpeningBalance, account.CurrentBalance, account.IsActive, account.CreatedAt, account.UpdatedAt)
	if err := row.Scan(&account.ID); err != nil {
		return ledger.Account{}, err
	}
	return account, nil
}

func (t *tx) GetAccount(ctx context.Context, id int64) (ledger.Account, error) {
	account, err := scanAccount(t.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
	return account, notFound(err, ledger.ErrAccountNotFound)
}

func (t *tx) GetAccountForUpdate(ctx context.Context, id int64) (ledger.Account, error) {
	account, err := scanAccount(t.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1 FOR UPDATE`, id))
	return account, notFound(err, ledger.ErrAccountNotFound)
}

func (t *tx) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	rows, err := t.q.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

func (t *tx) UpdateAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	tag, err := t.q.Exec(ctx, `UPDATE accounts SET current_balance=$2, updated_at=NOW() WHERE id=$1`, id, balance)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

const transactionColumns = `id, account_id, kind, is_debit, amount, date, reference, document_id, document_type, notes, created_at`

func scanTransaction(row pgx.Row) (ledger.Transaction, error) {
	var t ledger.Transaction
	var kind, docType string
	var docID *int64
	err := row.Scan(&t.ID, &t.AccountID, &kind, &t.IsDebit, &t.Amount, &t.Date, &t.Reference, &docID, &docType, &t.Notes, &t.CreatedAt)
	t.Kind = ledger.Kind(kind)
	t.DocumentType = ledger.DocumentType(docType)
	t.DocumentID = derefID(docID)
	return t, err
}

func (t *tx) InsertTransaction(ctx context.Context, txn ledger.Transaction) (ledger.Transaction, error) {
	row := t.q.QueryRow(ctx, `INSERT INTO financial_transactions (account_id, kind, is_debit, amount, date, reference, document_id, document_type, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, NOW())) RETURNING id, created_at`,
		txn.AccountID, string(txn.Kind), txn.IsDebit, txn.Amount, txn.Date, txn.Reference, nullID(txn.DocumentID), string(txn.DocumentType), txn.Notes, nullTime(txn.CreatedAt))
	if err := row.Scan(&txn.ID, &txn.CreatedAt); err != nil {
		return ledger.Transaction{}, err
	}
	return txn, nil
}

func (t *tx) GetTransaction(ctx context.Context, id int64) (ledger.Transaction, error) {
	txn, err := scanTransaction(t.q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM financial_transactions WHERE id=$1`, id))
	return txn, notFound(err, ledger.ErrTransactionNotFound)
}

func (t *tx) FindTransactionByDocument(ctx context.Context, documentType ledger.DocumentType, documentID int64) (ledger.Transaction, error) {
	txn, err := scanTransaction(t.q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM financial_transactions
WHERE document_type=$1 AND document_id=$2 ORDER BY id LIMIT 1`, string(documentType), documentID))
	return txn, notFound(err, ledger.ErrTransactionNotFound)
}

func (t *tx) ListTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]ledger.Transaction, error) {
	var where []string
	var args []any
	if filter.AccountID != 0 {
		args = append(args, filter.AccountID)
		where = append(where, fmt.Sprintf("account_id=$%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where = append(where, fmt.Sprintf("date >= $%d", len(args)))
	}
	if !filter.Before.IsZero() {
		args = append(args, filter.Before)
		where = append(where, fmt.Sprintf("date < $%d", len(args)))
	}
	sql := `SELECT ` + transactionColumns + ` FROM financial_transactions`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY date, id`
	rows, err := t.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
	return out, rows.Err()
}

func (t *tx) DeleteTransaction(ctx context.Context, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM financial_transactions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrTransactionNotFound
	}
	return nil
}
