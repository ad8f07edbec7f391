package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrConcurrentModification reports that a competing transaction won a race
// on the same rows. Callers may retry the whole unit of work.
var ErrConcurrentModification = errors.New("concurrent_modification")

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// PostgreSQL (error code 23505)
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return true
	}

	// MySQL (error code 1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsSerializationErr reports isolation-level conflicts that should be
// retried as ErrConcurrentModification.
func IsSerializationErr(err error) bool {
	if err == nil {
		return false
	}

	// PostgreSQL (error codes 40001, 40P01)
	if strings.Contains(err.Error(), "could not serialize access") ||
		strings.Contains(err.Error(), "deadlock detected") {
		return true
	}

	// MySQL (error code 1213)
	if strings.Contains(err.Error(), "Error 1213") {
		return true
	}

	// SQLite
	if strings.Contains(err.Error(), "database is locked") {
		return true
	}

	return false
}
