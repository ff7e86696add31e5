// Package posting orchestrates the document, inventory and ledger stores so
// that every document posting or reversal commits as one atomic unit.
package posting

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-books/internal/documents"
	"github.com/odyssey-erp/odyssey-books/internal/inventory"
	"github.com/odyssey-erp/odyssey-books/internal/ledger"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
	"github.com/odyssey-erp/odyssey-books/internal/storage"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator is bumped after every committed write so cached statements
// are never served stale.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Deps groups the optional collaborators of the engine.
type Deps struct {
	Logger  *slog.Logger
	Audit   AuditPort
	Cache   CacheInvalidator
	Metrics *Metrics
}

// Engine is the only writer of document-derived inventory and ledger state.
type Engine struct {
	backend   storage.Backend
	ledger    *ledger.Store
	inventory *inventory.Store
	documents *documents.Store
	logger    *slog.Logger
	audit     AuditPort
	cache     CacheInvalidator
	metrics   *Metrics
	now       func() time.Time
}

// NewEngine builds the engine over a storage backend.
func NewEngine(backend storage.Backend, deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		backend:   backend,
		ledger:    ledger.NewStore(),
		inventory: inventory.NewStore(),
		documents: documents.NewStore(),
		logger:    logger.With(slog.String("component", "posting")),
		audit:     deps.Audit,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the clock for testing.
func (e *Engine) WithNow(now func() time.Time) {
	if now == nil {
		return
	}
	e.now = now
	e.ledger.WithNow(now)
	e.inventory.WithNow(now)
	e.documents.WithNow(now)
}

func (e *Engine) write(ctx context.Context, op string, fn func(context.Context, storage.Tx) error) error {
	start := time.Now()
	err := e.backend.WithTx(ctx, fn)
	e.metrics.observe(op, start, err)
	if err != nil {
		e.logger.WarnContext(ctx, "posting unit rolled back",
			slog.String("op", op),
			slog.String("kind", shared.Kind(err)),
			slog.Any("error", err))
		return err
	}
	e.logger.DebugContext(ctx, "posting unit committed", slog.String("op", op))
	if e.cache != nil {
		if err := e.cache.Bump(ctx); err != nil {
			e.logger.WarnContext(ctx, "statement cache bump failed", slog.Any("error", err))
		}
	}
	return nil
}

func (e *Engine) read(ctx context.Context, fn func(context.Context, storage.Tx) error) error {
	return e.backend.ReadTx(ctx, fn)
}

func (e *Engine) record(ctx context.Context, action, entity string, id int64, meta map[string]any) {
	if e.audit == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["source_id"] = SourceID(entity, id).String()
	if err := e.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       e.now(),
	}); err != nil {
		e.logger.WarnContext(ctx, "audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

// SourceID derives a stable identifier for an entity row so audit entries
// for the same row correlate across backends.
func SourceID(entity string, id int64) uuid.UUID {
	return uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("%s:%d", entity, id)))
}
