// Package statement replays an account's history into a dated statement
// with running balances.
package statement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/ledger"
)

// Source tells where a statement entry came from.
type Source string

const (
	SourceTransaction Source = "transaction"
	SourceDocument    Source = "document"
)

// AccountSummary is the account header printed on a statement.
type AccountSummary struct {
	ID             int64              `json:"id"`
	Code           string             `json:"code"`
	Name           string             `json:"name"`
	Type           ledger.AccountType `json:"type"`
	OpeningBalance decimal.Decimal    `json:"opening_balance"`
	CurrentBalance decimal.Decimal    `json:"current_balance"`
}

// Entry is one dated line of a statement.
type Entry struct {
	Source         Source              `json:"source"`
	ID             int64               `json:"id"`
	Date           time.Time           `json:"date"`
	Reference      string              `json:"reference,omitempty"`
	Description    string              `json:"description,omitempty"`
	Kind           ledger.Kind         `json:"kind"`
	Debit          bool                `json:"debit"`
	DocumentID     int64               `json:"document_id,omitempty"`
	DocumentType   ledger.DocumentType `json:"document_type"`
	Amount         decimal.Decimal     `json:"amount"`
	Effect         decimal.Decimal     `json:"effect"`
	RunningBalance decimal.Decimal     `json:"running_balance"`
}

// Statement is the result of a statement request. Start and End are the
// requested bounds; zero means open.
type Statement struct {
	Account         AccountSummary  `json:"account"`
	Start           time.Time       `json:"start,omitempty"`
	End             time.Time       `json:"end,omitempty"`
	StartingBalance decimal.Decimal `json:"starting_balance"`
	EndingBalance   decimal.Decimal `json:"ending_balance"`
	TotalDebit      decimal.Decimal `json:"total_debit"`
	TotalCredit     decimal.Decimal `json:"total_credit"`
	Entries         []Entry         `json:"entries"`
	GeneratedAt     time.Time       `json:"generated_at"`
}
