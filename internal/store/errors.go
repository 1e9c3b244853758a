package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a requested record is not found
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an operation conflicts with existing data
	ErrConflict = errors.New("conflict")

	// ErrQuotaExceeded is returned when an owner is already at their cluster limit
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
