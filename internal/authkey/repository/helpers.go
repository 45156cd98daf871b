package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/allisson/authkeys/internal/authkey/domain"
	apperrors "github.com/allisson/authkeys/internal/errors"
)

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

// boundedNullString cuts an optional string to its column size.
func boundedNullString(v *string, n int) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: domain.Truncate(*v, n), Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// fillKey converts the nullable and encoded columns shared by both drivers.
func fillKey(
	key *domain.AuthorizationKey,
	level int,
	actionsJSON []byte,
	maxUses sql.NullInt64,
	expiresAt sql.NullTime,
) error {
	key.Level = domain.Level(level)

	if err := json.Unmarshal(actionsJSON, &key.AllowedActions); err != nil {
		return apperrors.Wrap(err, "failed to unmarshal allowed actions")
	}

	if maxUses.Valid {
		v := int(maxUses.Int64)
		key.MaxUses = &v
	}

	if expiresAt.Valid {
		t := expiresAt.Time
		key.ExpiresAt = &t
	}
	return nil
}

// marshalMeta encodes ledger metadata; nil becomes an empty object.
func marshalMeta(meta map[string]any) ([]byte, error) {
	if meta == nil {
		meta = map[string]any{}
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal key use metadata")
	}
	return b, nil
}

func unmarshalMeta(b []byte) (map[string]any, error) {
	meta := map[string]any{}
	if len(b) == 0 {
		return meta, nil
	}
	if err := json.Unmarshal(b, &meta); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal key use metadata")
	}
	return meta, nil
}
