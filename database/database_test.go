package database

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitterfly/go-chaos/kategorie/game"
)

func TestDatabaseError_Types(t *testing.T) {
	cause := errors.New("connection reset")
	tests := []struct {
		err  error
		want ErrorType
	}{
		{newInsertError(cause), InsertError},
		{newOpenError(cause), OpenError},
		{newMigrateError(cause), MigrateError},
		{newUpdateError(cause), UpdateError},
		{newQueryError(cause), QueryError},
	}
	for _, tt := range tests {
		var dbErr *DatabaseError
		require.ErrorAs(t, tt.err, &dbErr)
		assert.Equal(t, tt.want, dbErr.ErrorType)
		assert.ErrorIs(t, tt.err, cause)
	}

	assert.NoError(t, newQueryError(nil))
	assert.NoError(t, newUpdateError(nil))
}

func TestStoreError(t *testing.T) {
	assert.NoError(t, storeError(nil))

	err := storeError(newUpdateError(errors.New("deadlock")))
	assert.ErrorIs(t, err, game.ErrStoreUnavailable)
	var dbErr *DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, UpdateError, dbErr.ErrorType)

	err = storeError(errors.New("timeout"))
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, QueryError, dbErr.ErrorType)
}
