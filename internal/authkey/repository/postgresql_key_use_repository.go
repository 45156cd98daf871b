package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/authkeys/internal/authkey/domain"
	"github.com/allisson/authkeys/internal/database"
	apperrors "github.com/allisson/authkeys/internal/errors"
)

const keyUseColumns = `id, used_at, key_id, used_by, action, object_kind, object_pk, object_repr,
	ip, user_agent, success, meta`

// PostgreSQLKeyUseRepository implements the append-only KeyUse ledger for PostgreSQL.
type PostgreSQLKeyUseRepository struct {
	db *sql.DB
}

// Create appends a ledger entry. Long descriptive fields are truncated to their column sizes.
func (p *PostgreSQLKeyUseRepository) Create(ctx context.Context, use *domain.KeyUse) error {
	querier := database.GetTx(ctx, p.db)

	metaJSON, err := marshalMeta(use.Meta)
	if err != nil {
		return err
	}

	keyID := uuid.NullUUID{}
	if use.KeyID != nil {
		keyID = uuid.NullUUID{UUID: *use.KeyID, Valid: true}
	}

	query := `INSERT INTO authorization_key_uses (` + keyUseColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = querier.ExecContext(
		ctx,
		query,
		use.ID,
		use.UsedAt,
		keyID,
		boundedNullString(use.UsedBy, domain.MaxUsedByLength),
		use.Action,
		domain.Truncate(use.Target.Kind, domain.MaxObjectKindLength),
		domain.Truncate(use.Target.ID, domain.MaxObjectPKLength),
		domain.Truncate(use.Target.Display, domain.MaxObjectReprLength),
		nullString(use.IP),
		domain.Truncate(use.UserAgent, domain.MaxUserAgentLength),
		use.Success,
		metaJSON,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create key use")
	}
	return nil
}

// List retrieves ledger entries newest first with pagination and optional filters.
// Time bounds are inclusive.
func (p *PostgreSQLKeyUseRepository) List(
	ctx context.Context,
	offset, limit int,
	filter domain.KeyUseFilter,
) ([]*domain.KeyUse, error) {
	querier := database.GetTx(ctx, p.db)

	var conditions []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.Action != "" {
		add("action = $%d", filter.Action)
	}
	if filter.UsedBy != "" {
		add("used_by = $%d", filter.UsedBy)
	}
	if filter.Success != nil {
		add("success = $%d", *filter.Success)
	}
	if filter.KeyID != nil {
		add("key_id = $%d", *filter.KeyID)
	}
	if filter.UsedAtFrom != nil {
		add("used_at >= $%d", *filter.UsedAtFrom)
	}
	if filter.UsedAtTo != nil {
		add("used_at <= $%d", *filter.UsedAtTo)
	}

	query := `SELECT ` + keyUseColumns + ` FROM authorization_key_uses`

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY used_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list key uses")
	}
	defer func() {
		_ = rows.Close()
	}()

	uses := make([]*domain.KeyUse, 0)
	for rows.Next() {
		var use domain.KeyUse
		var keyID uuid.NullUUID
		var usedBy, ip sql.NullString
		var metaJSON []byte

		err := rows.Scan(
			&use.ID,
			&use.UsedAt,
			&keyID,
			&usedBy,
			&use.Action,
			&use.Target.Kind,
			&use.Target.ID,
			&use.Target.Display,
			&ip,
			&use.UserAgent,
			&use.Success,
			&metaJSON,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan key use")
		}

		if keyID.Valid {
			id := keyID.UUID
			use.KeyID = &id
		}
		use.UsedBy = stringPtr(usedBy)
		use.IP = stringPtr(ip)

		if use.Meta, err = unmarshalMeta(metaJSON); err != nil {
			return nil, err
		}

		uses = append(uses, &use)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate key uses")
	}
	return uses, nil
}

// NewPostgreSQLKeyUseRepository creates a new PostgreSQL KeyUse repository.
func NewPostgreSQLKeyUseRepository(db *sql.DB) *PostgreSQLKeyUseRepository {
	return &PostgreSQLKeyUseRepository{db: db}
}
