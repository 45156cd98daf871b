// Package usecase implements the authorization key lifecycle, the verification and
// consumption engine, and the usage ledger queries.
package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/allisson/authkeys/internal/authkey/domain"
)

// KeyRepository defines persistence operations for authorization keys.
// Implementations must support transaction-aware operations via context propagation.
type KeyRepository interface {
	// Create stores a new key.
	Create(ctx context.Context, key *domain.AuthorizationKey) error

	// Get retrieves a key by ID. Returns ErrKeyNotFound if not found.
	Get(ctx context.Context, keyID uuid.UUID) (*domain.AuthorizationKey, error)

	// ListActiveByPrefix returns every active key whose lookup prefix matches.
	ListActiveByPrefix(ctx context.Context, prefix string) ([]*domain.AuthorizationKey, error)

	// List returns keys newest first.
	List(ctx context.Context, offset, limit int, filter domain.KeyFilter) ([]*domain.AuthorizationKey, error)

	// Revoke marks a key inactive.
	Revoke(ctx context.Context, keyID uuid.UUID) error

	// ConsumeUse increments uses_count in a single conditional write and reports whether a
	// use was taken. It must never let uses_count exceed max_uses under concurrency.
	ConsumeUse(ctx context.Context, keyID uuid.UUID) (bool, error)

	// Delete removes a key. Returns ErrKeyNotFound if not found.
	Delete(ctx context.Context, keyID uuid.UUID) error
}

// KeyUseRepository defines the append-only ledger of verification attempts.
type KeyUseRepository interface {
	Create(ctx context.Context, use *domain.KeyUse) error
	List(ctx context.Context, offset, limit int, filter domain.KeyUseFilter) ([]*domain.KeyUse, error)
}

// KeyUseCase manages the authorization key lifecycle.
type KeyUseCase interface {
	// Issue generates a new key. The plaintext is only returned here and is never stored.
	Issue(ctx context.Context, input *domain.IssueKeyInput) (*domain.IssueKeyOutput, error)

	// Rotate issues a replacement inheriting the old key's policy and optionally revokes the
	// old key. Both writes commit together.
	Rotate(ctx context.Context, input *domain.RotateKeyInput) (*domain.IssueKeyOutput, error)

	// Revoke deactivates a key. Revoking twice is not an error.
	Revoke(ctx context.Context, keyID uuid.UUID) error

	Get(ctx context.Context, keyID uuid.UUID) (*domain.AuthorizationKey, error)

	List(ctx context.Context, offset, limit int, filter domain.KeyFilter) ([]*domain.AuthorizationKey, error)

	// Delete removes a key while keeping its ledger history.
	Delete(ctx context.Context, keyID uuid.UUID) error
}

// VerificationUseCase checks a presented key against an action, consumes one use on success
// and records exactly one ledger entry per call.
type VerificationUseCase interface {
	// Verify returns a result for every outcome, including denials. An error is only returned
	// when a backing store failed, and callers must then deny the operation.
	Verify(ctx context.Context, input *domain.VerifyInput) (*domain.VerifyResult, error)
}

// KeyUseUseCase exposes read access to the usage ledger.
type KeyUseUseCase interface {
	List(ctx context.Context, offset, limit int, filter domain.KeyUseFilter) ([]*domain.KeyUse, error)
}
