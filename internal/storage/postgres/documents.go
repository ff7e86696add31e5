package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-books/internal/documents"
	"github.com/odyssey-erp/odyssey-books/internal/ledger"
)

const documentColumns = `id, kind, number, account_id, warehouse_id, date, status, subtotal, discount, tax, total, notes, created_at, updated_at`

func scanDocument(row pgx.Row) (documents.Document, error) {
	var d documents.Document
	var kind, status string
	var accountID, warehouseID *int64
	err := row.Scan(&d.ID, &kind, &d.Number, &accountID, &warehouseID, &d.Date, &status,
		&d.Subtotal, &d.Discount, &d.Tax, &d.Total, &d.Notes, &d.CreatedAt, &d.UpdatedAt)
	d.Kind = documents.Kind(kind)
	d.Status = documents.Status(status)
	d.AccountID = derefID(accountID)
	d.WarehouseID = derefID(warehouseID)
	return d, err
}

func (t *tx) InsertDocument(ctx context.Context, doc documents.Document) (documents.Document, error) {
	row := t.q.QueryRow(ctx, `INSERT INTO documents (kind, number, account_id, warehouse_id, date, status, subtotal, discount, tax, total, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`,
		string(doc.Kind), doc.Number, nullID(doc.AccountID), nullID(doc.WarehouseID), doc.Date, string(doc.Status),
		doc.Subtotal, doc.Discount, doc.Tax, doc.Total, doc.Notes, doc.CreatedAt, doc.UpdatedAt)
	if err := row.Scan(&doc.ID); err != nil {
		return documents.Document{}, err
	}
	doc.Lines = nil
	return doc, nil
}

func (t *tx) InsertLines(ctx context.Context, documentID int64, lines []documents.LineItem) ([]documents.LineItem, error) {
	out := make([]documents.LineItem, len(lines))
	for i, line := range lines {
		line.DocumentID = documentID
		row := t.q.QueryRow(ctx, `INSERT INTO document_lines (document_id, product_id, quantity, unit_price, discount, tax, total)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			documentID, line.ProductID, line.Quantity, line.UnitPrice, line.Discount, line.Tax, line.Total)
		if err := row.Scan(&line.ID); err != nil {
			return nil, err
		}
		out[i] = line
	}
	return out, nil
}

func (t *tx) GetDocument(ctx context.Context, id int64) (documents.Document, error) {
	doc, err := scanDocument(t.q.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=$1`, id))
	return doc, notFound(err, documents.ErrDocumentNotFound)
}

func (t *tx) GetDocumentForUpdate(ctx context.Context, id int64) (documents.Document, error) {
	doc, err := scanDocument(t.q.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=$1 FOR UPDATE`, id))
	return doc, notFound(err, documents.ErrDocumentNotFound)
}

func (t *tx) ListLines(ctx context.Context, documentID int64) ([]documents.LineItem, error) {
	rows, err := t.q.Query(ctx, `SELECT id, document_id, product_id, quantity, unit_price, discount, tax, total
FROM document_lines WHERE document_id=$1 ORDER BY id`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []documents.LineItem
	for rows.Next() {
		var l documents.LineItem
		if err := rows.Scan(&l.ID, &l.DocumentID, &l.ProductID, &l.Quantity, &l.UnitPrice, &l.Discount, &l.Tax, &l.Total); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (t *tx) ListDocuments(ctx context.Context, filter documents.Filter) ([]documents.Document, error) {
	var where []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Kind != "" {
		add("kind=$%d", string(filter.Kind))
	}
	if filter.Status != "" {
		add("status=$%d", string(filter.Status))
	}
	if filter.AccountID != 0 {
		add("account_id=$%d", filter.AccountID)
	}
	if !filter.From.IsZero() {
		add("date >= $%d", ledger.StartOfDay(filter.From))
	}
	if !filter.To.IsZero() {
		add("date < $%d", ledger.StartOfDay(filter.To).AddDate(0, 0, 1))
	}
	sql := `SELECT ` + documentColumns + ` FROM documents`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY date, id`
	if filter.Limit > 0 {
		sql += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}
	rows, err := t.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []documents.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (t *tx) UpdateDocument(ctx context.Context, doc documents.Document) error {
	tag, err := t.q.Exec(ctx, `UPDATE documents SET account_id=$2, warehouse_id=$3, date=$4, status=$5,
subtotal=$6, discount=$7, tax=$8, total=$9, notes=$10, updated_at=$11, number=$12 WHERE id=$1`,
		doc.ID, nullID(doc.AccountID), nullID(doc.WarehouseID), doc.Date, string(doc.Status),
		doc.Subtotal, doc.Discount, doc.Tax, doc.Total, doc.Notes, doc.UpdatedAt, doc.Number)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return documents.ErrDocumentNotFound
	}
	return nil
}

func (t *tx) DeleteLines(ctx context.Context, documentID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM document_lines WHERE document_id=$1`, documentID)
	return err
}

func (t *tx) DeleteDocument(ctx context.Context, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM documents WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return documents.ErrDocumentNotFound
	}
	return nil
}
