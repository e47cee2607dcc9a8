package repository

import (
	"errors"

	"proposta/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes the repositories translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgUniqueViolation || errors.Is(err, gorm.ErrDuplicatedKey)
}

func isForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == pgForeignKeyViolation || errors.Is(err, gorm.ErrForeignKeyViolated)
}

// writeError classifies a failed write. Constraint violations become
// CONFLICT; everything else is a PERSISTENCE_ERROR carrying the driver error.
func writeError(op string, err error) error {
	if isUniqueViolation(err) {
		return models.NewConflictError(op+": duplicate value", err)
	}
	return models.NewPersistenceError(op, err)
}

// readError maps a missing row to NOT_FOUND.
func readError(resource string, id any, op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewPersistenceError(op, err)
}
