package domain

import (
	"github.com/allisson/authkeys/internal/errors"
)

// Authorization key errors.
var (
	// ErrKeyNotFound indicates an authorization key with the specified ID was not found.
	ErrKeyNotFound = errors.Wrap(errors.ErrNotFound, "authorization key not found")

	// ErrInvalidLevel indicates a level outside the Low/Medium/High/Critical hierarchy.
	ErrInvalidLevel = errors.Wrap(errors.ErrInvalidInput, "invalid authorization key level")

	// ErrInvalidMaxUses indicates a negative usage quota.
	ErrInvalidMaxUses = errors.Wrap(errors.ErrInvalidInput, "max uses must not be negative")

	// ErrInvalidAction indicates a blank or oversized action identifier.
	ErrInvalidAction = errors.Wrap(errors.ErrInvalidInput, "invalid action identifier")

	// ErrLabelTooLong indicates a label over MaxLabelLength characters.
	ErrLabelTooLong = errors.Wrap(errors.ErrInvalidInput, "label must be at most 120 characters")

	// ErrMissingIssuer indicates a key issuance without an issuer identity.
	ErrMissingIssuer = errors.Wrap(errors.ErrInvalidInput, "issuer is required")

	// ErrPolicyNotFound indicates no guard policy is registered for an operation.
	ErrPolicyNotFound = errors.Wrap(errors.ErrNotFound, "policy not found")
)
