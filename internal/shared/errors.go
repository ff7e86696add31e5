package shared

import "errors"

var (
	// ErrValidation indicates input rejected before any mutation.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a referenced account, product, warehouse, document or transaction is absent.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock indicates a movement would drive stock negative.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrConflict indicates a concurrent mutation or a reversal that can no longer be applied.
	ErrConflict = errors.New("conflict")
	// ErrPersistence indicates an underlying store failure.
	ErrPersistence = errors.New("persistence failure")
)

// Kind returns a short label for the error kind, used in logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "persistence"
	}
}
