package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	// WildcardAction grants a key every action.
	WildcardAction = "*"

	// PrefixLength is the number of leading plaintext characters stored in clear for lookup.
	PrefixLength = 10

	// MaxActionLength bounds an action identifier.
	MaxActionLength = 64

	// MaxLabelLength bounds the operator-facing label.
	MaxLabelLength = 120
)

// AuthorizationKey is an issued capability key and its policy. TokenHash holds an Argon2id
// hash of the plaintext; the plaintext itself is never stored.
type AuthorizationKey struct {
	ID             uuid.UUID
	Label          string
	TokenPrefix    string
	TokenHash      string //nolint:gosec // argon2id hash, not the plaintext
	Level          Level
	AllowedActions []string
	MaxUses        *int // nil means unlimited
	UsesCount      int
	ExpiresAt      *time.Time
	IsActive       bool
	CreatedBy      string
	CreatedAt      time.Time
	Note           string
}

// DisplayName returns the label, falling back to the lookup prefix.
func (k *AuthorizationKey) DisplayName() string {
	if k.Label != "" {
		return k.Label
	}
	return k.TokenPrefix
}

// HasExpired reports whether the key expiry is at or before now.
func (k *AuthorizationKey) HasExpired(now time.Time) bool {
	return k.ExpiresAt != nil && !k.ExpiresAt.After(now)
}

// HasUsesLeft reports whether the usage quota still allows a consumption.
func (k *AuthorizationKey) HasUsesLeft() bool {
	return k.MaxUses == nil || k.UsesCount < *k.MaxUses
}

// PermitsAction reports whether the key is allowed to run the action.
func (k *AuthorizationKey) PermitsAction(action string) bool {
	if IsWildcard(k.AllowedActions) {
		return true
	}
	return slices.Contains(k.AllowedActions, action)
}

// IsWildcard reports whether an action list grants every action.
func IsWildcard(actions []string) bool {
	return len(actions) == 1 && actions[0] == WildcardAction
}

// NormalizeActions returns the wildcard list for empty input and drops duplicates otherwise.
func NormalizeActions(actions []string) []string {
	if len(actions) == 0 || slices.Contains(actions, WildcardAction) {
		return []string{WildcardAction}
	}
	normalized := make([]string, 0, len(actions))
	for _, action := range actions {
		if !slices.Contains(normalized, action) {
			normalized = append(normalized, action)
		}
	}
	return normalized
}

// Evaluate runs the policy checks in their fixed order and returns the first failing reason,
// or ReasonNone when the key may be used for the action.
func (k *AuthorizationKey) Evaluate(action string, required Level, now time.Time) Reason {
	switch {
	case k.HasExpired(now):
		return ReasonExpired
	case !k.HasUsesLeft():
		return ReasonExhausted
	case !k.Level.Satisfies(required):
		return ReasonInsufficientLevel
	case !k.PermitsAction(action):
		return ReasonActionNotAllowed
	default:
		return ReasonNone
	}
}

// IssueKeyInput contains the parameters for issuing a new authorization key.
type IssueKeyInput struct {
	Label          string
	Level          Level
	AllowedActions []string // empty means all actions
	MaxUses        *int
	ExpiresAt      *time.Time
	Note           string
	IssuedBy       string
}

// RotateKeyInput contains the parameters for rotating an existing authorization key.
type RotateKeyInput struct {
	KeyID     uuid.UUID
	RevokeOld bool
	IssuedBy  string
}

// IssueKeyOutput is the result of an issuance or rotation.
// SECURITY: PlainToken is only available here and must be handed to the caller immediately.
type IssueKeyOutput struct {
	Key        *AuthorizationKey
	PlainToken string
}

// KeyFilter narrows key listings.
type KeyFilter struct {
	IsActive *bool
	Level    *Level
}
