package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInsufficientStock):
		ProblemType(w, http.StatusConflict, "insufficient_stock", "Insufficient Stock", err.Error())
	case errors.Is(err, shared.ErrConflict):
		ProblemType(w, http.StatusConflict, "conflict", "Conflict", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
