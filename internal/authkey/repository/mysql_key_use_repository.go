package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/authkeys/internal/authkey/domain"
	"github.com/allisson/authkeys/internal/database"
	apperrors "github.com/allisson/authkeys/internal/errors"
)

// MySQLKeyUseRepository implements the append-only KeyUse ledger for MySQL.
// Uses BINARY(16) for UUID storage with transaction support via database.GetTx().
type MySQLKeyUseRepository struct {
	db *sql.DB
}

// Create appends a ledger entry. Long descriptive fields are truncated to their column sizes.
func (m *MySQLKeyUseRepository) Create(ctx context.Context, use *domain.KeyUse) error {
	querier := database.GetTx(ctx, m.db)

	metaJSON, err := marshalMeta(use.Meta)
	if err != nil {
		return err
	}

	id, err := use.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal key use id")
	}

	var keyID []byte
	if use.KeyID != nil {
		if keyID, err = use.KeyID.MarshalBinary(); err != nil {
			return apperrors.Wrap(err, "failed to marshal key use key_id")
		}
	}

	query := `INSERT INTO authorization_key_uses (` + keyUseColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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
func (m *MySQLKeyUseRepository) List(
	ctx context.Context,
	offset, limit int,
	filter domain.KeyUseFilter,
) ([]*domain.KeyUse, error) {
	querier := database.GetTx(ctx, m.db)

	var conditions []string
	var args []any

	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.UsedBy != "" {
		conditions = append(conditions, "used_by = ?")
		args = append(args, filter.UsedBy)
	}
	if filter.Success != nil {
		conditions = append(conditions, "success = ?")
		args = append(args, *filter.Success)
	}
	if filter.KeyID != nil {
		keyID, err := filter.KeyID.MarshalBinary()
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to marshal key_id filter")
		}
		conditions = append(conditions, "key_id = ?")
		args = append(args, keyID)
	}
	if filter.UsedAtFrom != nil {
		conditions = append(conditions, "used_at >= ?")
		args = append(args, *filter.UsedAtFrom)
	}
	if filter.UsedAtTo != nil {
		conditions = append(conditions, "used_at <= ?")
		args = append(args, *filter.UsedAtTo)
	}

	query := `SELECT ` + keyUseColumns + ` FROM authorization_key_uses`

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY used_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

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
		var idBinary, keyIDBinary []byte
		var usedBy, ip sql.NullString
		var metaJSON []byte

		err := rows.Scan(
			&idBinary,
			&use.UsedAt,
			&keyIDBinary,
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

		if err := use.ID.UnmarshalBinary(idBinary); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal key use id")
		}

		if keyIDBinary != nil {
			var keyID uuid.UUID
			if err := keyID.UnmarshalBinary(keyIDBinary); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal key use key_id")
			}
			use.KeyID = &keyID
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

// NewMySQLKeyUseRepository creates a new MySQL KeyUse repository.
func NewMySQLKeyUseRepository(db *sql.DB) *MySQLKeyUseRepository {
	return &MySQLKeyUseRepository{db: db}
}
