package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/authkeys/internal/authkey/domain"
	"github.com/allisson/authkeys/internal/database"
	apperrors "github.com/allisson/authkeys/internal/errors"
)

const mysqlKeyColumns = `id, label, token_prefix, token_hash, level, allowed_actions, max_uses,
	uses_count, expires_at, is_active, created_by, created_at, note`

// MySQLKeyRepository implements AuthorizationKey persistence for MySQL.
// Uses BINARY(16) for UUID storage with transaction support via database.GetTx().
type MySQLKeyRepository struct {
	db *sql.DB
}

// Create inserts a new AuthorizationKey.
func (m *MySQLKeyRepository) Create(ctx context.Context, key *domain.AuthorizationKey) error {
	querier := database.GetTx(ctx, m.db)

	id, err := key.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal authorization key id")
	}

	actionsJSON, err := json.Marshal(key.AllowedActions)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal allowed actions")
	}

	query := `INSERT INTO authorization_keys (` + mysqlKeyColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		key.Label,
		key.TokenPrefix,
		key.TokenHash,
		int(key.Level),
		actionsJSON,
		nullInt(key.MaxUses),
		key.UsesCount,
		nullTime(key.ExpiresAt),
		key.IsActive,
		key.CreatedBy,
		key.CreatedAt,
		key.Note,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create authorization key")
	}
	return nil
}

// Get retrieves an AuthorizationKey by ID. Returns ErrKeyNotFound if missing.
func (m *MySQLKeyRepository) Get(ctx context.Context, keyID uuid.UUID) (*domain.AuthorizationKey, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := keyID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal authorization key id")
	}

	query := `SELECT ` + mysqlKeyColumns + ` FROM authorization_keys WHERE id = ?`

	key, err := scanMySQLKey(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get authorization key")
	}
	return key, nil
}

// ListActiveByPrefix returns every active key sharing the lookup prefix, oldest first.
func (m *MySQLKeyRepository) ListActiveByPrefix(
	ctx context.Context,
	prefix string,
) ([]*domain.AuthorizationKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlKeyColumns + ` FROM authorization_keys
			  WHERE token_prefix = ? AND is_active = TRUE
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, prefix)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list authorization keys by prefix")
	}
	return collectMySQLKeys(rows)
}

// List retrieves keys ordered by created_at descending with pagination and optional filters.
func (m *MySQLKeyRepository) List(
	ctx context.Context,
	offset, limit int,
	filter domain.KeyFilter,
) ([]*domain.AuthorizationKey, error) {
	querier := database.GetTx(ctx, m.db)

	var conditions []string
	var args []any

	if filter.IsActive != nil {
		conditions = append(conditions, "is_active = ?")
		args = append(args, *filter.IsActive)
	}

	if filter.Level != nil {
		conditions = append(conditions, "level = ?")
		args = append(args, int(*filter.Level))
	}

	query := `SELECT ` + mysqlKeyColumns + ` FROM authorization_keys`

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list authorization keys")
	}
	return collectMySQLKeys(rows)
}

// Revoke marks the key inactive. Revoking an inactive key is a no-op.
func (m *MySQLKeyRepository) Revoke(ctx context.Context, keyID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	id, err := keyID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal authorization key id")
	}

	if _, err := querier.ExecContext(ctx, `UPDATE authorization_keys SET is_active = FALSE WHERE id = ?`, id); err != nil {
		return apperrors.Wrap(err, "failed to revoke authorization key")
	}
	return nil
}

// ConsumeUse atomically increments uses_count when the key is still active and under quota.
// It reports false when no row qualified.
func (m *MySQLKeyRepository) ConsumeUse(ctx context.Context, keyID uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := keyID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal authorization key id")
	}

	query := `UPDATE authorization_keys SET uses_count = uses_count + 1
			  WHERE id = ? AND is_active = TRUE AND (max_uses IS NULL OR uses_count < max_uses)`

	result, err := querier.ExecContext(ctx, query, id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to consume authorization key")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read consumed rows")
	}
	return affected == 1, nil
}

// Delete removes the key; ledger rows keep their history with key_id set to NULL.
func (m *MySQLKeyRepository) Delete(ctx context.Context, keyID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	id, err := keyID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal authorization key id")
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM authorization_keys WHERE id = ?`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete authorization key")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read deleted rows")
	}
	if affected == 0 {
		return domain.ErrKeyNotFound
	}
	return nil
}

func scanMySQLKey(row rowScanner) (*domain.AuthorizationKey, error) {
	var key domain.AuthorizationKey
	var idBinary []byte
	var level int
	var actionsJSON []byte
	var maxUses sql.NullInt64
	var expiresAt sql.NullTime

	err := row.Scan(
		&idBinary,
		&key.Label,
		&key.TokenPrefix,
		&key.TokenHash,
		&level,
		&actionsJSON,
		&maxUses,
		&key.UsesCount,
		&expiresAt,
		&key.IsActive,
		&key.CreatedBy,
		&key.CreatedAt,
		&key.Note,
	)
	if err != nil {
		return nil, err
	}

	if err := key.ID.UnmarshalBinary(idBinary); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal authorization key id")
	}

	if err := fillKey(&key, level, actionsJSON, maxUses, expiresAt); err != nil {
		return nil, err
	}
	return &key, nil
}

func collectMySQLKeys(rows *sql.Rows) ([]*domain.AuthorizationKey, error) {
	defer func() {
		_ = rows.Close()
	}()

	keys := make([]*domain.AuthorizationKey, 0)
	for rows.Next() {
		key, err := scanMySQLKey(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan authorization key")
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate authorization keys")
	}
	return keys, nil
}

// NewMySQLKeyRepository creates a new MySQL AuthorizationKey repository.
func NewMySQLKeyRepository(db *sql.DB) *MySQLKeyRepository {
	return &MySQLKeyRepository{db: db}
}
