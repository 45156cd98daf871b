package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/authkeys/internal/authkey/domain"
)

func mustBinary(t *testing.T, id uuid.UUID) []byte {
	t.Helper()
	b, err := id.MarshalBinary()
	require.NoError(t, err)
	return b
}

func TestMySQLKeyRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLKeyRepository(db)
	key := newTestKey()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO authorization_keys")).
		WithArgs(
			mustBinary(t, key.ID), key.Label, key.TokenPrefix, key.TokenHash, 30,
			[]byte(`["team.invite","team.update"]`), int64(3), 0,
			*key.ExpiresAt, true, "admin", key.CreatedAt, key.Note,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Create(context.Background(), key))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLKeyRepository_Get(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLKeyRepository(db)
		id := uuid.Must(uuid.NewV7())

		rows := sqlmock.NewRows(keyColumnNames).AddRow(
			mustBinary(t, id), "", "abcdefghij", "hash", int64(10), []byte(`["*"]`), int64(1), int64(1),
			nil, false, "admin", time.Now(), "",
		)
		mock.ExpectQuery(regexp.QuoteMeta("FROM authorization_keys WHERE id = ?")).
			WithArgs(mustBinary(t, id)).
			WillReturnRows(rows)

		got, err := repo.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, domain.LevelLow, got.Level)
		assert.False(t, got.IsActive)
		assert.False(t, got.HasUsesLeft())
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLKeyRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("FROM authorization_keys WHERE id = ?")).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(context.Background(), uuid.Must(uuid.NewV7()))
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})
}

func TestMySQLKeyRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLKeyRepository(db)
	active := false

	mock.ExpectQuery(regexp.QuoteMeta("WHERE is_active = ? ORDER BY created_at DESC LIMIT ? OFFSET ?")).
		WithArgs(false, 50, 0).
		WillReturnRows(sqlmock.NewRows(keyColumnNames))

	keys, err := repo.List(context.Background(), 0, 50, domain.KeyFilter{IsActive: &active})
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLKeyRepository_ListActiveByPrefix(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLKeyRepository(db)
	id := uuid.Must(uuid.NewV7())

	rows := sqlmock.NewRows(keyColumnNames).AddRow(
		mustBinary(t, id), "", "abcdefghij", "hash", int64(20), []byte(`["*"]`), nil, int64(0),
		nil, true, "admin", time.Now(), "",
	)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE token_prefix = ? AND is_active = TRUE")).
		WithArgs("abcdefghij").
		WillReturnRows(rows)

	keys, err := repo.ListActiveByPrefix(context.Background(), "abcdefghij")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, id, keys[0].ID)
}

func TestMySQLKeyRepository_ConsumeUse(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLKeyRepository(db)
	id := uuid.Must(uuid.NewV7())

	mock.ExpectExec(regexp.QuoteMeta("SET uses_count = uses_count + 1 WHERE id = ?")).
		WithArgs(mustBinary(t, id)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET uses_count = uses_count + 1 WHERE id = ?")).
		WithArgs(mustBinary(t, id)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.ConsumeUse(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ConsumeUse(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLKeyRepository_RevokeAndDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLKeyRepository(db)
	id := uuid.Must(uuid.NewV7())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE authorization_keys SET is_active = FALSE WHERE id = ?")).
		WithArgs(mustBinary(t, id)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM authorization_keys WHERE id = ?")).
		WithArgs(mustBinary(t, id)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM authorization_keys WHERE id = ?")).
		WithArgs(mustBinary(t, id)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// MySQL reports zero changed rows for an already revoked key; that is not an error.
	assert.NoError(t, repo.Revoke(context.Background(), id))
	assert.NoError(t, repo.Delete(context.Background(), id))
	assert.ErrorIs(t, repo.Delete(context.Background(), id), domain.ErrKeyNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
