package statement

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/documents"
	"github.com/odyssey-erp/odyssey-books/internal/ledger"
	"github.com/odyssey-erp/odyssey-books/internal/posting"
	"github.com/odyssey-erp/odyssey-books/internal/storage"
)

// Reader builds statements from a read-only snapshot of the books.
type Reader struct {
	backend   storage.Backend
	documents *documents.Store
	cache     *Cache
	logger    *slog.Logger
	now       func() time.Time
}

// NewReader constructs a reader. cache may be nil.
func NewReader(backend storage.Backend, cache *Cache, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		backend:   backend,
		documents: documents.NewStore(),
		cache:     cache,
		logger:    logger.With(slog.String("component", "statement")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the clock for testing.
func (r *Reader) WithNow(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// Statement returns the account statement for the inclusive day range
// [start, end]. Zero bounds are open.
func (r *Reader) Statement(ctx context.Context, accountID int64, start, end time.Time) (Statement, error) {
	if r.cache == nil {
		return r.build(ctx, accountID, start, end)
	}
	key, err := r.cache.BuildKey(ctx, "statement", strconv.FormatInt(accountID, 10), dayToken(start), dayToken(end))
	if err != nil {
		r.logger.WarnContext(ctx, "statement cache unavailable", slog.Any("error", err))
		return r.build(ctx, accountID, start, end)
	}
	var st Statement
	err = r.cache.FetchJSON(ctx, key, &st, func(ctx context.Context) (any, error) {
		return r.build(ctx, accountID, start, end)
	})
	return st, err
}

func (r *Reader) build(ctx context.Context, accountID int64, start, end time.Time) (Statement, error) {
	var st Statement
	err := r.backend.ReadTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		txs, err := tx.ListTransactions(ctx, ledger.TransactionFilter{AccountID: accountID})
		if err != nil {
			return err
		}
		docs, err := r.documents.ListByAccount(ctx, tx, accountID, time.Time{}, time.Time{})
		if err != nil {
			return err
		}
		st = Build(account, txs, docs, start, end)
		return nil
	})
	if err != nil {
		return Statement{}, err
	}
	st.GeneratedAt = r.now()
	return st, nil
}

// Build assembles a statement from the account's full transaction and
// document history. It performs no I/O.
func Build(account ledger.Account, txs []ledger.Transaction, docs []documents.Document, start, end time.Time) Statement {
	from, until := bounds(start, end)
	st := Statement{
		Account: AccountSummary{
			ID:             account.ID,
			Code:           account.Code,
			Name:           account.Name,
			Type:           account.Type,
			OpeningBalance: account.OpeningBalance,
			CurrentBalance: account.CurrentBalance,
		},
		Start:       start,
		End:         end,
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
		Entries:     []Entry{},
	}

	starting := account.OpeningBalance
	representedIDs := make(map[int64]struct{})
	representedRefs := make(map[string]struct{})
	for _, t := range txs {
		if !ledger.Visible(account.Type, t.DocumentType) {
			continue
		}
		if t.DocumentID != 0 {
			representedIDs[t.DocumentID] = struct{}{}
		}
		if t.Reference != "" {
			representedRefs[t.Reference] = struct{}{}
		}
		switch {
		case !from.IsZero() && t.Date.Before(from):
			starting = starting.Add(ledger.Signed(account.Type, t))
		case inPeriod(t.Date, from, until):
			st.Entries = append(st.Entries, transactionEntry(account.Type, t))
		}
	}

	if kind, ok := documentKindFor(account.Type); ok {
		for _, doc := range docs {
			if doc.Kind != kind || doc.Status != documents.StatusPosted || !inPeriod(doc.Date, from, until) {
				continue
			}
			if _, ok := representedIDs[doc.ID]; ok {
				continue
			}
			if _, ok := representedRefs[doc.Number]; ok {
				continue
			}
			st.Entries = append(st.Entries, documentEntry(account.Type, doc))
		}
	}

	sort.SliceStable(st.Entries, func(i, j int) bool {
		a, b := st.Entries[i], st.Entries[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Source != b.Source {
			return a.Source == SourceTransaction
		}
		return a.ID < b.ID
	})

	running := starting
	for i := range st.Entries {
		e := &st.Entries[i]
		running = running.Add(e.Effect)
		e.RunningBalance = running
		if e.Debit {
			st.TotalDebit = st.TotalDebit.Add(e.Amount)
		} else {
			st.TotalCredit = st.TotalCredit.Add(e.Amount)
		}
	}
	st.StartingBalance = starting
	st.EndingBalance = running
	return st
}

func transactionEntry(accountType ledger.AccountType, t ledger.Transaction) Entry {
	return Entry{
		Source:       SourceTransaction,
		ID:           t.ID,
		Date:         t.Date,
		Reference:    t.Reference,
		Description:  t.Notes,
		Kind:         t.Kind,
		Debit:        t.Debit(),
		DocumentID:   t.DocumentID,
		DocumentType: t.DocumentType,
		Amount:       t.Amount,
		Effect:       ledger.Signed(accountType, t),
	}
}

// documentEntry renders a posted document that never produced a transaction
// as if it had.
func documentEntry(accountType ledger.AccountType, doc documents.Document) Entry {
	t := ledger.Transaction{
		Kind:         posting.TransactionKindOf(doc.Kind),
		Amount:       doc.Total,
		DocumentID:   doc.ID,
		DocumentType: posting.DocumentTypeOf(doc.Kind),
	}
	return Entry{
		Source:       SourceDocument,
		ID:           doc.ID,
		Date:         doc.Date,
		Reference:    doc.Number,
		Description:  doc.Notes,
		Kind:         t.Kind,
		Debit:        t.Debit(),
		DocumentID:   doc.ID,
		DocumentType: t.DocumentType,
		Amount:       doc.Total,
		Effect:       ledger.Signed(accountType, t),
	}
}

func documentKindFor(accountType ledger.AccountType) (documents.Kind, bool) {
	for _, kind := range []documents.Kind{documents.KindSale, documents.KindPurchase} {
		if posting.AccountTypeFor(kind) == accountType {
			return kind, true
		}
	}
	return "", false
}

// bounds converts inclusive calendar-day bounds into [from, until).
func bounds(start, end time.Time) (from, until time.Time) {
	if !start.IsZero() {
		from = ledger.StartOfDay(start)
	}
	if !end.IsZero() {
		until = ledger.StartOfDay(end).AddDate(0, 0, 1)
	}
	return from, until
}

func inPeriod(t, from, until time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !until.IsZero() && !t.Before(until) {
		return false
	}
	return true
}

func dayToken(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}
