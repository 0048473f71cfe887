package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a lookup that must produce a row produces none,
	// or when an update targets an id that does not exist.
	ErrNotFound = errors.New("employee not found")
	// ErrAmbiguousMatch is returned when a single-row lookup matches several rows.
	ErrAmbiguousMatch = errors.New("ambiguous match")
	// ErrConstraintViolation is returned when the database rejects a write because of
	// a uniqueness, not-null, check or foreign key constraint.
	ErrConstraintViolation = errors.New("constraint violation")
)

// SQLSTATE codes of class 23 (integrity constraint violation).
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// ConstraintError is a database error translated into ErrConstraintViolation.
// It matches both ErrConstraintViolation and the underlying *pgconn.PgError.
type ConstraintError struct {
	Code       string
	Constraint string
	err        error
}

func (e *ConstraintError) Error() string {
	if e.Constraint == "" {
		return fmt.Sprintf("%s: %s", ErrConstraintViolation, e.err)
	}
	return fmt.Sprintf("%s on %s: %s", ErrConstraintViolation, e.Constraint, e.err)
}

func (e *ConstraintError) Unwrap() []error {
	return []error{ErrConstraintViolation, e.err}
}

// translateError maps integrity violations onto ErrConstraintViolation.
// Every other error, connectivity failures included, is returned as is.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgNotNullViolation, pgForeignKeyViolation, pgUniqueViolation, pgCheckViolation:
		return &ConstraintError{Code: pgErr.Code, Constraint: pgErr.ConstraintName, err: err}
	default:
		return err
	}
}
