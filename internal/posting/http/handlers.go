package postinghttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/documents"
	"github.com/odyssey-erp/odyssey-books/internal/inventory"
	"github.com/odyssey-erp/odyssey-books/internal/ledger"
	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-books/internal/posting"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// IdempotencyHeader carries the client-chosen key for retried writes.
const IdempotencyHeader = "Idempotency-Key"

// Engine is the posting contract used by the handler.
type Engine interface {
	CreateDocument(ctx context.Context, doc documents.Document) (documents.Document, error)
	PostDocument(ctx context.Context, id int64) (documents.Document, error)
	CancelDocument(ctx context.Context, id int64) (documents.Document, error)
	DeleteDocument(ctx context.Context, id int64) error
	GetDocument(ctx context.Context, id int64) (documents.Document, error)
	ListDocuments(ctx context.Context, filter documents.Filter) ([]documents.Document, error)
	RecordTransaction(ctx context.Context, in posting.TransactionInput) (ledger.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	GetAccountBalance(ctx context.Context, accountID int64) (decimal.Decimal, error)
	RecomputeBalance(ctx context.Context, accountID int64) (decimal.Decimal, error)
	AdjustInventory(ctx context.Context, in posting.AdjustInput) (inventory.Level, error)
	TransferStock(ctx context.Context, in posting.TransferInput) (inventory.Level, inventory.Level, error)
	GetLevel(ctx context.Context, productID, warehouseID int64) (decimal.Decimal, error)
	VerifyIntegrity(ctx context.Context) (posting.IntegrityReport, error)
}

// IdempotencyPort records request keys so a retried write is applied once.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Handler exposes documents, transactions and stock corrections over JSON.
type Handler struct {
	logger      *slog.Logger
	engine      Engine
	idempotency IdempotencyPort
	writeLimit  int
}

// NewHandler builds the handler. idem may be nil, in which case the
// Idempotency-Key header is ignored.
func NewHandler(logger *slog.Logger, engine Engine, idem IdempotencyPort) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, engine: engine, idempotency: idem, writeLimit: 120}
}

// WithWriteLimit sets the per-client write requests allowed per minute.
func (h *Handler) WithWriteLimit(perMinute int) *Handler {
	if perMinute > 0 {
		h.writeLimit = perMinute
	}
	return h
}

type lineRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	Tax       decimal.Decimal `json:"tax"`
}

type documentRequest struct {
	Kind        string        `json:"kind" validate:"required,oneof=sale purchase"`
	Number      string        `json:"number" validate:"max=64"`
	AccountID   int64         `json:"account_id" validate:"gte=0"`
	WarehouseID int64         `json:"warehouse_id" validate:"gte=0"`
	Date        string        `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Status      string        `json:"status" validate:"omitempty,oneof=draft posted"`
	Notes       string        `json:"notes" validate:"max=1000"`
	Lines       []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (req documentRequest) toDocument() documents.Document {
	doc := documents.Document{
		Kind:        documents.Kind(req.Kind),
		Number:      strings.TrimSpace(req.Number),
		AccountID:   req.AccountID,
		WarehouseID: req.WarehouseID,
		Date:        parseDay(req.Date),
		Status:      documents.Status(req.Status),
		Notes:       req.Notes,
		Lines:       make([]documents.LineItem, 0, len(req.Lines)),
	}
	for _, l := range req.Lines {
		doc.Lines = append(doc.Lines, documents.LineItem{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Discount:  l.Discount,
			Tax:       l.Tax,
		})
	}
	return doc
}

type transactionRequest struct {
	AccountID int64           `json:"account_id" validate:"required,gt=0"`
	Kind      string          `json:"kind" validate:"required,oneof=credit debit journal"`
	IsDebit   bool            `json:"is_debit"`
	Amount    decimal.Decimal `json:"amount"`
	Date      string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Reference string          `json:"reference" validate:"max=64"`
	Notes     string          `json:"notes" validate:"max=1000"`
}

type transactionResponse struct {
	ID           int64           `json:"id"`
	AccountID    int64           `json:"account_id"`
	Kind         string          `json:"kind"`
	IsDebit      bool            `json:"is_debit"`
	Amount       decimal.Decimal `json:"amount"`
	Date         string          `json:"date"`
	Reference    string          `json:"reference,omitempty"`
	DocumentID   int64           `json:"document_id,omitempty"`
	DocumentType string          `json:"document_type"`
}

type adjustmentRequest struct {
	ProductID   int64           `json:"product_id" validate:"required,gt=0"`
	WarehouseID int64           `json:"warehouse_id" validate:"required,gt=0"`
	Quantity    decimal.Decimal `json:"quantity"`
	Absolute    bool            `json:"absolute"`
	Date        string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Notes       string          `json:"notes" validate:"max=1000"`
}

type transferRequest struct {
	ProductID       int64           `json:"product_id" validate:"required,gt=0"`
	FromWarehouseID int64           `json:"from_warehouse_id" validate:"required,gt=0"`
	ToWarehouseID   int64           `json:"to_warehouse_id" validate:"required,gt=0,nefield=FromWarehouseID"`
	Quantity        decimal.Decimal `json:"quantity"`
	Date            string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Notes           string          `json:"notes" validate:"max=1000"`
}

type levelResponse struct {
	ProductID   int64           `json:"product_id"`
	WarehouseID int64           `json:"warehouse_id"`
	Quantity    decimal.Decimal `json:"quantity"`
}

type balanceResponse struct {
	AccountID      int64            `json:"account_id"`
	CurrentBalance decimal.Decimal  `json:"current_balance"`
	Recomputed     *decimal.Decimal `json:"recomputed_balance,omitempty"`
	Consistent     *bool            `json:"consistent,omitempty"`
}

func (h *Handler) createDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.idempotent(w, r, "documents", func(ctx context.Context) error {
		doc, err := h.engine.CreateDocument(ctx, req.toDocument())
		if err != nil {
			return err
		}
		httpx.JSON(w, http.StatusCreated, doc)
		return nil
	})
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	filter, err := documentFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	docs, err := h.engine.ListDocuments(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "list documents", err)
		return
	}
	if docs == nil {
		docs = []documents.Document{}
	}
	httpx.JSON(w, http.StatusOK, docs)
}

func (h *Handler) showDocument(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	doc, err := h.engine.GetDocument(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) postDocument(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "post document", h.engine.PostDocument)
}

func (h *Handler) cancelDocument(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "cancel document", h.engine.CancelDocument)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, int64) (documents.Document, error)) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	doc, err := fn(r.Context(), id)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.engine.DeleteDocument(r.Context(), id); err != nil {
		h.fail(w, r, "delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.idempotent(w, r, "transactions", func(ctx context.Context) error {
		t, err := h.engine.RecordTransaction(ctx, posting.TransactionInput{
			AccountID: req.AccountID,
			Kind:      ledger.Kind(req.Kind),
			IsDebit:   req.IsDebit,
			Amount:    req.Amount,
			Date:      parseDay(req.Date),
			Reference: strings.TrimSpace(req.Reference),
			Notes:     req.Notes,
		})
		if err != nil {
			return err
		}
		httpx.JSON(w, http.StatusCreated, toTransactionResponse(t))
		return nil
	})
}

func (h *Handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.engine.DeleteTransaction(r.Context(), id); err != nil {
		h.fail(w, r, "delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) showBalance(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	balance, err := h.engine.GetAccountBalance(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get balance", err)
		return
	}
	resp := balanceResponse{AccountID: id, CurrentBalance: balance}
	if r.URL.Query().Get("verify") == "1" {
		recomputed, err := h.engine.RecomputeBalance(r.Context(), id)
		if err != nil {
			h.fail(w, r, "recompute balance", err)
			return
		}
		consistent := recomputed.Equal(balance)
		resp.Recomputed = &recomputed
		resp.Consistent = &consistent
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) createAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.idempotent(w, r, "inventory", func(ctx context.Context) error {
		level, err := h.engine.AdjustInventory(ctx, posting.AdjustInput{
			ProductID:   req.ProductID,
			WarehouseID: req.WarehouseID,
			Quantity:    req.Quantity,
			Absolute:    req.Absolute,
			Date:        parseDay(req.Date),
			Notes:       req.Notes,
		})
		if err != nil {
			return err
		}
		httpx.JSON(w, http.StatusOK, toLevelResponse(level))
		return nil
	})
}

func (h *Handler) createTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.idempotent(w, r, "inventory", func(ctx context.Context) error {
		from, to, err := h.engine.TransferStock(ctx, posting.TransferInput{
			ProductID:       req.ProductID,
			FromWarehouseID: req.FromWarehouseID,
			ToWarehouseID:   req.ToWarehouseID,
			Quantity:        req.Quantity,
			Date:            parseDay(req.Date),
			Notes:           req.Notes,
		})
		if err != nil {
			return err
		}
		httpx.JSON(w, http.StatusOK, map[string]levelResponse{
			"from": toLevelResponse(from),
			"to":   toLevelResponse(to),
		})
		return nil
	})
}

func (h *Handler) showLevel(w http.ResponseWriter, r *http.Request) {
	productID, err := httpx.QueryID(r, "product_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	warehouseID, err := httpx.QueryID(r, "warehouse_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if productID == 0 || warehouseID == 0 {
		httpx.RespondError(w, fmt.Errorf("%w: product_id and warehouse_id are required", shared.ErrValidation))
		return
	}
	qty, err := h.engine.GetLevel(r.Context(), productID, warehouseID)
	if err != nil {
		h.fail(w, r, "get level", err)
		return
	}
	httpx.JSON(w, http.StatusOK, levelResponse{ProductID: productID, WarehouseID: warehouseID, Quantity: qty})
}

func (h *Handler) showIntegrity(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.VerifyIntegrity(r.Context())
	if err != nil {
		h.fail(w, r, "verify integrity", err)
		return
	}
	status := http.StatusOK
	if !report.Clean() {
		status = http.StatusConflict
	}
	httpx.JSON(w, status, map[string]any{
		"clean":      report.Clean(),
		"accounts":   report.Accounts,
		"levels":     report.Levels,
		"checked_at": report.CheckedAt,
	})
}

// idempotent runs fn once per Idempotency-Key. A repeated key is rejected
// with 409; a failed fn releases the key so the client may retry.
func (h *Handler) idempotent(w http.ResponseWriter, r *http.Request, module string, fn func(context.Context) error) {
	ctx := r.Context()
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	claimed := false
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(ctx, key, module); err != nil {
			h.fail(w, r, module+" idempotency", err)
			return
		}
		claimed = true
	}
	if err := fn(ctx); err != nil {
		if claimed {
			if derr := h.idempotency.Delete(ctx, key); derr != nil {
				h.logger.WarnContext(ctx, "idempotency key release failed", slog.String("key", key), slog.Any("error", derr))
			}
		}
		h.fail(w, r, module, err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	level := slog.LevelWarn
	if shared.Kind(err) == "persistence" {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "posting request failed",
		slog.String("op", op),
		slog.String("kind", shared.Kind(err)),
		slog.Any("error", err))
	httpx.RespondError(w, err)
}

func documentFilter(r *http.Request) (documents.Filter, error) {
	q := r.URL.Query()
	filter := documents.Filter{
		Kind:   documents.Kind(strings.TrimSpace(q.Get("kind"))),
		Status: documents.Status(strings.TrimSpace(q.Get("status"))),
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		return documents.Filter{}, fmt.Errorf("%w: unknown kind %q", shared.ErrValidation, filter.Kind)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return documents.Filter{}, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, filter.Status)
	}
	var err error
	if filter.AccountID, err = httpx.QueryID(r, "account_id"); err != nil {
		return documents.Filter{}, err
	}
	if filter.From, err = httpx.QueryDate(r, "from"); err != nil {
		return documents.Filter{}, err
	}
	if filter.To, err = httpx.QueryDate(r, "to"); err != nil {
		return documents.Filter{}, err
	}
	return filter, nil
}

// parseDay reads a date already checked by the datetime validator.
func parseDay(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, _ := time.Parse(httpx.DateLayout, raw)
	return t
}

func toTransactionResponse(t ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:           t.ID,
		AccountID:    t.AccountID,
		Kind:         string(t.Kind),
		IsDebit:      t.IsDebit,
		Amount:       t.Amount,
		Date:         t.Date.Format(httpx.DateLayout),
		Reference:    t.Reference,
		DocumentID:   t.DocumentID,
		DocumentType: string(t.DocumentType),
	}
}

func toLevelResponse(l inventory.Level) levelResponse {
	return levelResponse{ProductID: l.ProductID, WarehouseID: l.WarehouseID, Quantity: l.Quantity}
}
