package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/odyssey-erp/odyssey-books/internal/documents"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

func (t *tx) InsertDocument(ctx context.Context, doc documents.Document) (documents.Document, error) {
	if err := t.writable(); err != nil {
		return documents.Document{}, err
	}
	for _, existing := range t.state.documents {
		if existing.Number == doc.Number {
			return documents.Document{}, fmt.Errorf("%w: documents: number %q already exists", shared.ErrConflict, doc.Number)
		}
	}
	t.state.seq.document++
	doc.ID = t.state.seq.document
	doc.Lines = nil
	t.state.documents[doc.ID] = doc
	return doc, nil
}

func (t *tx) InsertLines(ctx context.Context, documentID int64, lines []documents.LineItem) ([]documents.LineItem, error) {
	if err := t.writable(); err != nil {
		return nil, err
	}
	if _, ok := t.state.documents[documentID]; !ok {
		return nil, documents.ErrDocumentNotFound
	}
	out := make([]documents.LineItem, len(lines))
	for i, line := range lines {
		t.state.seq.line++
		line.ID = t.state.seq.line
		line.DocumentID = documentID
		out[i] = line
	}
	t.state.lines[documentID] = append(slices.Clone(t.state.lines[documentID]), out...)
	return out, nil
}

func (t *tx) GetDocument(ctx context.Context, id int64) (documents.Document, error) {
	doc, ok := t.state.documents[id]
	if !ok {
		return documents.Document{}, documents.ErrDocumentNotFound
	}
	return doc, nil
}

func (t *tx) GetDocumentForUpdate(ctx context.Context, id int64) (documents.Document, error) {
	return t.GetDocument(ctx, id)
}

func (t *tx) ListLines(ctx context.Context, documentID int64) ([]documents.LineItem, error) {
	return slices.Clone(t.state.lines[documentID]), nil
}

func (t *tx) ListDocuments(ctx context.Context, filter documents.Filter) ([]documents.Document, error) {
	var out []documents.Document
	for _, doc := range t.state.documents {
		if filter.Matches(doc) {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (t *tx) UpdateDocument(ctx context.Context, doc documents.Document) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.state.documents[doc.ID]; !ok {
		return documents.ErrDocumentNotFound
	}
	for id, existing := range t.state.documents {
		if id != doc.ID && existing.Number == doc.Number {
			return fmt.Errorf("%w: documents: number %q already exists", shared.ErrConflict, doc.Number)
		}
	}
	doc.Lines = nil
	t.state.documents[doc.ID] = doc
	return nil
}

func (t *tx) DeleteLines(ctx context.Context, documentID int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	delete(t.state.lines, documentID)
	return nil
}

func (t *tx) DeleteDocument(ctx context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.state.documents[id]; !ok {
		return documents.ErrDocumentNotFound
	}
	delete(t.state.documents, id)
	return nil
}
