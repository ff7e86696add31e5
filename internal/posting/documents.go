package posting

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/documents"
	"github.com/odyssey-erp/odyssey-books/internal/inventory"
	"github.com/odyssey-erp/odyssey-books/internal/ledger"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
	"github.com/odyssey-erp/odyssey-books/internal/storage"
)

// ErrAccountMismatch rejects a sale to a supplier or a purchase from a
// customer. Those statements hide the opposite side's rows.
var ErrAccountMismatch = fmt.Errorf("posting: account type does not match document kind: %w", shared.ErrValidation)

// DocumentTypeOf maps a document kind onto the ledger tag used for its transaction.
func DocumentTypeOf(kind documents.Kind) ledger.DocumentType {
	if kind == documents.KindPurchase {
		return ledger.DocumentTypePurchase
	}
	return ledger.DocumentTypeInvoice
}

// AccountTypeFor returns the party account type whose statement lists documents of the given kind.
func AccountTypeFor(kind documents.Kind) ledger.AccountType {
	if kind == documents.KindPurchase {
		return ledger.AccountTypeSupplier
	}
	return ledger.AccountTypeCustomer
}

// opposingAccountType is the party type that can never take a document of kind.
func opposingAccountType(kind documents.Kind) ledger.AccountType {
	if kind == documents.KindPurchase {
		return ledger.AccountTypeCustomer
	}
	return ledger.AccountTypeSupplier
}

// TransactionKindOf returns the kind of the transaction a posted document produces.
func TransactionKindOf(kind documents.Kind) ledger.Kind {
	if kind == documents.KindPurchase {
		return ledger.KindCredit
	}
	return ledger.KindDebit
}

func movementType(kind documents.Kind) inventory.MovementType {
	if kind == documents.KindPurchase {
		return inventory.MovementTypePurchase
	}
	return inventory.MovementTypeSale
}

func stockDelta(kind documents.Kind, qty decimal.Decimal) decimal.Decimal {
	if kind == documents.KindPurchase {
		return qty
	}
	return qty.Neg()
}

// CreateDocument validates, totals and persists a document. A document created
// as posted has its inventory and ledger effects applied in the same unit.
func (e *Engine) CreateDocument(ctx context.Context, doc documents.Document) (documents.Document, error) {
	if doc.Status == "" {
		doc.Status = documents.StatusDraft
	}
	doc.Lines = slices.Clone(doc.Lines)
	doc.RoundLines()
	if err := doc.Validate(); err != nil {
		return documents.Document{}, err
	}
	doc.ApplyTotals()
	var created documents.Document
	err := e.write(ctx, "create_document", func(ctx context.Context, tx storage.Tx) error {
		var err error
		created, err = e.documents.Create(ctx, tx, doc)
		if err != nil {
			return err
		}
		if created.Status != documents.StatusPosted {
			return nil
		}
		return e.applyEffects(ctx, tx, created)
	})
	if err != nil {
		return documents.Document{}, err
	}
	e.record(ctx, "document:create", "document", created.ID, documentMeta(created))
	return created, nil
}

// PostDocument moves a draft to posted and applies its effects.
func (e *Engine) PostDocument(ctx context.Context, id int64) (documents.Document, error) {
	var posted documents.Document
	err := e.write(ctx, "post_document", func(ctx context.Context, tx storage.Tx) error {
		doc, err := e.documents.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if doc.Status != documents.StatusDraft {
			return fmt.Errorf("%w: document %d is %s", documents.ErrInvalidStatus, doc.ID, doc.Status)
		}
		doc.Status = documents.StatusPosted
		if err := doc.Validate(); err != nil {
			return err
		}
		doc.ApplyTotals()
		if err := e.applyEffects(ctx, tx, doc); err != nil {
			return err
		}
		posted, err = e.documents.Update(ctx, tx, doc)
		return err
	})
	if err != nil {
		return documents.Document{}, err
	}
	e.record(ctx, "document:post", "document", posted.ID, documentMeta(posted))
	return posted, nil
}

// DeleteDocument reverses a posted document's effects and removes it. Drafts
// and cancelled documents are removed without reversal.
func (e *Engine) DeleteDocument(ctx context.Context, id int64) error {
	var deleted documents.Document
	err := e.write(ctx, "delete_document", func(ctx context.Context, tx storage.Tx) error {
		doc, err := e.documents.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if doc.Status == documents.StatusPosted {
			if err := e.reverseEffects(ctx, tx, doc); err != nil {
				return err
			}
		}
		deleted = doc
		return e.documents.Delete(ctx, tx, doc.ID)
	})
	if err != nil {
		return err
	}
	e.record(ctx, "document:delete", "document", deleted.ID, documentMeta(deleted))
	return nil
}

// CancelDocument reverses a posted document's effects and keeps it as cancelled.
func (e *Engine) CancelDocument(ctx context.Context, id int64) (documents.Document, error) {
	var cancelled documents.Document
	err := e.write(ctx, "cancel_document", func(ctx context.Context, tx storage.Tx) error {
		doc, err := e.documents.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		switch doc.Status {
		case documents.StatusCancelled:
			return fmt.Errorf("%w: document %d is already cancelled", documents.ErrInvalidStatus, doc.ID)
		case documents.StatusPosted:
			if err := e.reverseEffects(ctx, tx, doc); err != nil {
				return err
			}
		}
		cancelled, err = e.documents.UpdateStatus(ctx, tx, doc, documents.StatusCancelled)
		return err
	})
	if err != nil {
		return documents.Document{}, err
	}
	e.record(ctx, "document:cancel", "document", cancelled.ID, documentMeta(cancelled))
	return cancelled, nil
}

// GetDocument loads a document with its lines.
func (e *Engine) GetDocument(ctx context.Context, id int64) (documents.Document, error) {
	var doc documents.Document
	err := e.read(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		doc, err = e.documents.Get(ctx, tx, id)
		return err
	})
	return doc, err
}

// ListDocuments returns document headers matching the filter.
func (e *Engine) ListDocuments(ctx context.Context, filter documents.Filter) ([]documents.Document, error) {
	var docs []documents.Document
	err := e.read(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		docs, err = e.documents.List(ctx, tx, filter)
		return err
	})
	return docs, err
}

// applyEffects records the inventory movements and the financial transaction
// of a posted document. Locks are taken account first, then levels in key order.
func (e *Engine) applyEffects(ctx context.Context, tx storage.Tx, doc documents.Document) error {
	warehouse, err := tx.GetWarehouse(ctx, doc.WarehouseID)
	if err != nil {
		return err
	}
	if !warehouse.IsActive {
		return fmt.Errorf("%w: warehouse %d is inactive", shared.ErrValidation, warehouse.ID)
	}
	keys := make([]inventory.LevelKey, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		product, err := tx.GetProduct(ctx, line.ProductID)
		if err != nil {
			return err
		}
		if !product.IsActive {
			return fmt.Errorf("%w: product %d is inactive", shared.ErrValidation, product.ID)
		}
		keys = append(keys, inventory.LevelKey{WarehouseID: doc.WarehouseID, ProductID: line.ProductID})
	}
	account, err := tx.GetAccountForUpdate(ctx, doc.AccountID)
	if err != nil {
		return err
	}
	if account.Type == opposingAccountType(doc.Kind) {
		return fmt.Errorf("%w: %s document cannot post to %s account %d", ErrAccountMismatch, doc.Kind, account.Type, account.ID)
	}
	if !account.IsActive {
		return fmt.Errorf("%w: account %d is inactive", shared.ErrValidation, account.ID)
	}
	if err := e.inventory.Lock(ctx, tx, keys); err != nil {
		return err
	}
	for _, line := range doc.Lines {
		_, err := e.inventory.Adjust(ctx, tx, inventory.Adjustment{
			ProductID:   line.ProductID,
			WarehouseID: doc.WarehouseID,
			Delta:       stockDelta(doc.Kind, line.Quantity),
			Type:        movementType(doc.Kind),
			DocumentID:  doc.ID,
			Date:        doc.Date,
			Notes:       doc.Number,
		})
		if err != nil {
			return err
		}
	}
	if !doc.Total.IsPositive() {
		return nil
	}
	_, err = e.ledger.Apply(ctx, tx, ledger.Transaction{
		AccountID:    doc.AccountID,
		Kind:         TransactionKindOf(doc.Kind),
		Amount:       doc.Total,
		Date:         doc.Date,
		Reference:    doc.Number,
		DocumentID:   doc.ID,
		DocumentType: DocumentTypeOf(doc.Kind),
		Notes:        doc.Notes,
	})
	return err
}

// reverseEffects undoes applyEffects exactly, taking locks in the same order.
func (e *Engine) reverseEffects(ctx context.Context, tx storage.Tx, doc documents.Document) error {
	txn, err := tx.FindTransactionByDocument(ctx, DocumentTypeOf(doc.Kind), doc.ID)
	hasTxn := err == nil
	if err != nil && !errors.Is(err, ledger.ErrTransactionNotFound) {
		return err
	}
	if hasTxn {
		if _, err := tx.GetAccountForUpdate(ctx, txn.AccountID); err != nil {
			return err
		}
	}
	movements, err := e.inventory.Movements(ctx, tx, doc.ID)
	if err != nil {
		return err
	}
	keys := make([]inventory.LevelKey, 0, len(movements))
	for _, m := range movements {
		keys = append(keys, inventory.LevelKey{WarehouseID: m.WarehouseID, ProductID: m.ProductID})
	}
	if err := e.inventory.Lock(ctx, tx, keys); err != nil {
		return err
	}
	for _, m := range movements {
		if _, err := e.inventory.Revert(ctx, tx, m); err != nil {
			return err
		}
	}
	if hasTxn {
		if _, err := e.ledger.Reverse(ctx, tx, txn.ID); err != nil {
			return err
		}
	}
	return nil
}

func documentMeta(doc documents.Document) map[string]any {
	return map[string]any{
		"kind":       doc.Kind,
		"number":     doc.Number,
		"status":     doc.Status,
		"account_id": doc.AccountID,
		"total":      doc.Total.String(),
	}
}
