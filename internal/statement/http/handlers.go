// Package statementhttp serves account statements.
package statementhttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
	"github.com/odyssey-erp/odyssey-books/internal/statement"
)

// Reader is the statement contract used by the handler.
type Reader interface {
	Statement(ctx context.Context, accountID int64, start, end time.Time) (statement.Statement, error)
}

// Handler serves statements as JSON or plain text.
type Handler struct {
	logger    *slog.Logger
	reader    Reader
	formatter *statement.Formatter
}

// NewHandler builds the handler. A nil formatter disables the text format.
func NewHandler(logger *slog.Logger, reader Reader, formatter *statement.Formatter) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, reader: reader, formatter: formatter}
}

// MountRoutes registers the statement endpoint.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts/{id}/statement", h.showStatement)
}

func (h *Handler) showStatement(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	start, err := httpx.QueryDate(r, "start")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	end, err := httpx.QueryDate(r, "end")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		httpx.RespondError(w, fmt.Errorf("%w: end before start", shared.ErrValidation))
		return
	}
	st, err := h.reader.Statement(r.Context(), id, start, end)
	if err != nil {
		h.logger.WarnContext(r.Context(), "statement failed",
			slog.Int64("account_id", id),
			slog.String("kind", shared.Kind(err)),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if r.URL.Query().Get("format") == "text" && h.formatter != nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(h.formatter.Text(st)))
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}
