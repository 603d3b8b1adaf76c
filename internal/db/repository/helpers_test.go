package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbase/internal/domain"
)

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func TestMapDBError(t *testing.T) {
	assert.NoError(t, mapDBError("op", nil))

	var notFound *domain.NotFoundError
	assert.ErrorAs(t, mapDBError("op", fmt.Errorf("wrapped: %w", sql.ErrNoRows)), &notFound)

	var conflict *domain.ConflictError
	assert.ErrorAs(t, mapDBError("op", &pgconn.PgError{Code: "23505"}), &conflict)
	assert.ErrorAs(t, mapDBError("op", errors.New("UNIQUE constraint failed: DataSets.table_name")), &conflict)

	cause := &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
	err := mapDBError("select records", cause)
	var storageErr *domain.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "select records", storageErr.Op)
	assert.ErrorIs(t, err, cause)
}

func TestDBTime_Scan(t *testing.T) {
	var ts dbTime
	require.NoError(t, ts.Scan("2026-05-01T12:00:00.000Z"))
	assert.True(t, ts.Time.Equal(fixedNow))

	require.NoError(t, ts.Scan(fixedNow.In(time.FixedZone("X", 7200))))
	assert.Equal(t, time.UTC, ts.Time.Location())

	require.NoError(t, ts.Scan([]byte("2026-05-01T12:00:00Z")))
	assert.True(t, ts.Time.Equal(fixedNow))

	require.Error(t, ts.Scan("yesterday"))
	require.Error(t, ts.Scan(42))
}

func TestDBJSON_Scan(t *testing.T) {
	var j dbJSON
	require.NoError(t, j.Scan(`{"a":1}`))
	assert.JSONEq(t, `{"a":1}`, string(j.Raw))
	require.NoError(t, j.Scan([]byte(`{}`)))
	assert.Equal(t, `{}`, string(j.Raw))
	require.NoError(t, j.Scan(nil))
	assert.Nil(t, j.Raw)
	require.Error(t, j.Scan(1.5))
}

func TestSettingsValue(t *testing.T) {
	assert.Equal(t, "{}", settingsValue(nil))
	assert.Equal(t, `{"a":1}`, settingsValue([]byte(`{"a":1}`)))
}
