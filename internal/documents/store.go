package documents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TxRepository exposes document rows visible inside one storage transaction.
type TxRepository interface {
	InsertDocument(ctx context.Context, doc Document) (Document, error)
	InsertLines(ctx context.Context, documentID int64, lines []LineItem) ([]LineItem, error)
	GetDocument(ctx context.Context, id int64) (Document, error)
	GetDocumentForUpdate(ctx context.Context, id int64) (Document, error)
	ListLines(ctx context.Context, documentID int64) ([]LineItem, error)
	ListDocuments(ctx context.Context, filter Filter) ([]Document, error)
	UpdateDocument(ctx context.Context, doc Document) error
	DeleteLines(ctx context.Context, documentID int64) error
	DeleteDocument(ctx context.Context, id int64) error
}

// Store is plain CRUD over documents and their lines. It performs no
// inventory or ledger side effects.
type Store struct {
	now func() time.Time
}

// NewStore builds Store.
func NewStore() *Store {
	return &Store{now: func() time.Time { return time.Now().UTC() }}
}

// WithNow overrides the clock for testing.
func (s *Store) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create persists the header then its lines. A missing number is generated
// from the kind prefix and the new document id.
func (s *Store) Create(ctx context.Context, tx TxRepository, doc Document) (Document, error) {
	now := s.now()
	if doc.Status == "" {
		doc.Status = StatusDraft
	}
	if doc.Date.IsZero() {
		doc.Date = now
	}
	generated := doc.Number == ""
	if generated {
		doc.Number = "pending-" + uuid.NewString()
	}
	doc.CreatedAt = now
	doc.UpdatedAt = now
	lines := doc.Lines
	doc.Lines = nil
	created, err := tx.InsertDocument(ctx, doc)
	if err != nil {
		return Document{}, err
	}
	if generated {
		created.Number = GenerateNumber(created.Kind, created.ID)
		if err := tx.UpdateDocument(ctx, created); err != nil {
			return Document{}, err
		}
	}
	stored, err := tx.InsertLines(ctx, created.ID, lines)
	if err != nil {
		return Document{}, err
	}
	created.Lines = stored
	return created, nil
}

// Get loads a document with its lines.
func (s *Store) Get(ctx context.Context, tx TxRepository, id int64) (Document, error) {
	doc, err := tx.GetDocument(ctx, id)
	if err != nil {
		return Document{}, err
	}
	return s.withLines(ctx, tx, doc)
}

// GetForUpdate locks the document row and loads its lines.
func (s *Store) GetForUpdate(ctx context.Context, tx TxRepository, id int64) (Document, error) {
	doc, err := tx.GetDocumentForUpdate(ctx, id)
	if err != nil {
		return Document{}, err
	}
	return s.withLines(ctx, tx, doc)
}

// List returns headers matching the filter, ordered by date then id.
func (s *Store) List(ctx context.Context, tx TxRepository, filter Filter) ([]Document, error) {
	return tx.ListDocuments(ctx, filter)
}

// ListByAccount returns the account's documents inside the optional day range.
func (s *Store) ListByAccount(ctx context.Context, tx TxRepository, accountID int64, from, to time.Time) ([]Document, error) {
	return tx.ListDocuments(ctx, Filter{AccountID: accountID, From: from, To: to})
}

// UpdateStatus moves a document to a new status.
func (s *Store) UpdateStatus(ctx context.Context, tx TxRepository, doc Document, status Status) (Document, error) {
	doc.Status = status
	return s.Update(ctx, tx, doc)
}

// Update writes the header columns back.
func (s *Store) Update(ctx context.Context, tx TxRepository, doc Document) (Document, error) {
	doc.UpdatedAt = s.now()
	if err := tx.UpdateDocument(ctx, doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Delete removes the lines, then the header.
func (s *Store) Delete(ctx context.Context, tx TxRepository, id int64) error {
	if err := tx.DeleteLines(ctx, id); err != nil {
		return err
	}
	return tx.DeleteDocument(ctx, id)
}

func (s *Store) withLines(ctx context.Context, tx TxRepository, doc Document) (Document, error) {
	lines, err := tx.ListLines(ctx, doc.ID)
	if err != nil {
		return Document{}, err
	}
	doc.Lines = lines
	return doc, nil
}

// GenerateNumber returns the display number of a document with the given id.
func GenerateNumber(kind Kind, id int64) string {
	return fmt.Sprintf("%s-%06d", kind.NumberPrefix(), id)
}
