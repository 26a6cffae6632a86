package engine

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStoreGetPropagatesQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT status").WillReturnError(assert.AnError)

	_, err = NewStateStore(db).Get()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get engine state")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHeartbeatToleratesBrokenDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").WillReturnError(assert.AnError)

	// Heartbeat logs and returns; a failing heartbeat must never panic or
	// block the pipeline work that triggered it.
	NewTracker(db).Heartbeat()
	assert.NoError(t, mock.ExpectationsWereMet())
}
