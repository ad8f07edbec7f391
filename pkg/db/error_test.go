package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(errors.New(`duplicate key value violates unique constraint "ux_cost_entries_session"`)))
	assert.True(t, IsDuplicateKeyErr(errors.New("Error 1062: Duplicate entry")))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: cost_entries.session_id")))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection refused")))
}

func TestIsSerializationErr(t *testing.T) {
	assert.False(t, IsSerializationErr(nil))
	assert.True(t, IsSerializationErr(errors.New("ERROR: could not serialize access due to concurrent update")))
	assert.True(t, IsSerializationErr(errors.New("Error 1213: Deadlock found when trying to get lock")))
	assert.True(t, IsSerializationErr(errors.New("database is locked")))
	assert.False(t, IsSerializationErr(errors.New("connection refused")))
}
