package posting

import (
	"context"
	"time"

	"github.com/odyssey-erp/odyssey-books/internal/inventory"
	"github.com/odyssey-erp/odyssey-books/internal/ledger"
	"github.com/odyssey-erp/odyssey-books/internal/storage"
)

// IntegrityReport lists every stored balance or level that disagrees with
// the history it is derived from.
type IntegrityReport struct {
	Accounts  []ledger.Drift
	Levels    []inventory.Drift
	CheckedAt time.Time
}

// Clean reports whether no drift was found.
func (r IntegrityReport) Clean() bool {
	return len(r.Accounts) == 0 && len(r.Levels) == 0
}

// VerifyIntegrity replays every account and every level inside one snapshot.
func (e *Engine) VerifyIntegrity(ctx context.Context) (IntegrityReport, error) {
	report := IntegrityReport{CheckedAt: e.now()}
	err := e.read(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		if report.Accounts, err = e.ledger.Verify(ctx, tx); err != nil {
			return err
		}
		report.Levels, err = e.inventory.Verify(ctx, tx)
		return err
	})
	return report, err
}
