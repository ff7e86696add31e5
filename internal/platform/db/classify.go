package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// Classify maps driver errors onto the shared error kinds. Errors that already
// carry a kind are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{shared.ErrValidation, shared.ErrNotFound, shared.ErrInsufficientStock, shared.ErrConflict, shared.ErrPersistence} {
		if errors.Is(err, kind) {
			return err
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%w: concurrent update, retry: %w", shared.ErrConflict, err)
		case codeUniqueViolation:
			return fmt.Errorf("%w: duplicate %s: %w", shared.ErrConflict, pgErr.ConstraintName, err)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: referenced row missing (%s): %w", shared.ErrNotFound, pgErr.ConstraintName, err)
		case codeCheckViolation:
			return fmt.Errorf("%w: constraint %s: %w", shared.ErrValidation, pgErr.ConstraintName, err)
		}
	}
	return fmt.Errorf("%w: %w", shared.ErrPersistence, err)
}
