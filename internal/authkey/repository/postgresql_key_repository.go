// Package repository implements persistence for authorization keys and their usage ledger.
//
// Provides PostgreSQL and MySQL implementations with transaction support via database.GetTx().
// PostgreSQL uses native UUID and JSONB types, MySQL uses BINARY(16) and JSON types.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/authkeys/internal/authkey/domain"
	"github.com/allisson/authkeys/internal/database"
	apperrors "github.com/allisson/authkeys/internal/errors"
)

const postgresKeyColumns = `id, label, token_prefix, token_hash, level, allowed_actions, max_uses,
	uses_count, expires_at, is_active, created_by, created_at, note`

// PostgreSQLKeyRepository implements AuthorizationKey persistence for PostgreSQL.
type PostgreSQLKeyRepository struct {
	db *sql.DB
}

// Create inserts a new AuthorizationKey.
func (p *PostgreSQLKeyRepository) Create(ctx context.Context, key *domain.AuthorizationKey) error {
	querier := database.GetTx(ctx, p.db)

	actionsJSON, err := json.Marshal(key.AllowedActions)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal allowed actions")
	}

	query := `INSERT INTO authorization_keys (` + postgresKeyColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = querier.ExecContext(
		ctx,
		query,
		key.ID,
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
func (p *PostgreSQLKeyRepository) Get(ctx context.Context, keyID uuid.UUID) (*domain.AuthorizationKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresKeyColumns + ` FROM authorization_keys WHERE id = $1`

	key, err := scanPostgreSQLKey(querier.QueryRowContext(ctx, query, keyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get authorization key")
	}
	return key, nil
}

// ListActiveByPrefix returns every active key sharing the lookup prefix, oldest first.
func (p *PostgreSQLKeyRepository) ListActiveByPrefix(
	ctx context.Context,
	prefix string,
) ([]*domain.AuthorizationKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresKeyColumns + ` FROM authorization_keys
			  WHERE token_prefix = $1 AND is_active = TRUE
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, prefix)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list authorization keys by prefix")
	}
	return collectPostgreSQLKeys(rows)
}

// List retrieves keys ordered by created_at descending with pagination and optional filters.
func (p *PostgreSQLKeyRepository) List(
	ctx context.Context,
	offset, limit int,
	filter domain.KeyFilter,
) ([]*domain.AuthorizationKey, error) {
	querier := database.GetTx(ctx, p.db)

	var conditions []string
	var args []any

	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)))
	}

	if filter.Level != nil {
		args = append(args, int(*filter.Level))
		conditions = append(conditions, fmt.Sprintf("level = $%d", len(args)))
	}

	query := `SELECT ` + postgresKeyColumns + ` FROM authorization_keys`

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list authorization keys")
	}
	return collectPostgreSQLKeys(rows)
}

// Revoke marks the key inactive. Revoking an inactive key is a no-op.
func (p *PostgreSQLKeyRepository) Revoke(ctx context.Context, keyID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE authorization_keys SET is_active = FALSE WHERE id = $1`

	if _, err := querier.ExecContext(ctx, query, keyID); err != nil {
		return apperrors.Wrap(err, "failed to revoke authorization key")
	}
	return nil
}

// ConsumeUse atomically increments uses_count when the key is still active and under quota.
// It reports false when no row qualified, meaning a concurrent caller took the last use or the
// key was revoked in between.
func (p *PostgreSQLKeyRepository) ConsumeUse(ctx context.Context, keyID uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE authorization_keys SET uses_count = uses_count + 1
			  WHERE id = $1 AND is_active = TRUE AND (max_uses IS NULL OR uses_count < max_uses)`

	result, err := querier.ExecContext(ctx, query, keyID)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to consume authorization key")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read consumed rows")
	}
	return affected == 1, nil
}

// Delete removes the key. Ledger rows referencing it are kept with key_id set to NULL by the
// foreign key. Returns ErrKeyNotFound if missing.
func (p *PostgreSQLKeyRepository) Delete(ctx context.Context, keyID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM authorization_keys WHERE id = $1`, keyID)
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

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgreSQLKey(row rowScanner) (*domain.AuthorizationKey, error) {
	var key domain.AuthorizationKey
	var level int
	var actionsJSON []byte
	var maxUses sql.NullInt64
	var expiresAt sql.NullTime

	err := row.Scan(
		&key.ID,
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

	if err := fillKey(&key, level, actionsJSON, maxUses, expiresAt); err != nil {
		return nil, err
	}
	return &key, nil
}

func collectPostgreSQLKeys(rows *sql.Rows) ([]*domain.AuthorizationKey, error) {
	defer func() {
		_ = rows.Close()
	}()

	keys := make([]*domain.AuthorizationKey, 0)
	for rows.Next() {
		key, err := scanPostgreSQLKey(rows)
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

// NewPostgreSQLKeyRepository creates a new PostgreSQL AuthorizationKey repository.
func NewPostgreSQLKeyRepository(db *sql.DB) *PostgreSQLKeyRepository {
	return &PostgreSQLKeyRepository{db: db}
}
