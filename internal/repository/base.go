// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"forum/internal/database"
	"forum/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrVersionConflict is returned by Update when the row exists under a
// different version than the caller read, or has vanished since.
// Callers decide which by re-checking existence.
var ErrVersionConflict = errors.New("version conflict")

const pgUniqueViolation = "23505"

func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}

// notFoundOr maps gorm.ErrRecordNotFound to a NotFound AppError and anything
// else to an internal error.
func notFoundOr(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}

// exists reports whether a row with the given primary key exists in model's table.
func exists(ctx context.Context, db *gorm.DB, model interface{}, id interface{}) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// updateVersioned applies fields to the row only if its version still equals
// expected, bumping the version and updated_at. Zero rows affected yields
// ErrVersionConflict.
func updateVersioned(ctx context.Context, db *gorm.DB, model interface{}, id interface{}, expected uint, updatedAt time.Time, fields map[string]interface{}) error {
	values := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		values[k] = v
	}
	values["version"] = expected + 1
	values["updated_at"] = updatedAt

	result := db.WithContext(ctx).Model(model).
		Where("id = ? AND version = ?", id, expected).
		Updates(values)
	if result.Error != nil {
		if isUniqueConstraintError(result.Error) {
			return models.NewValidationError("value already in use")
		}
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}
