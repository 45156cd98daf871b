// Package http provides the enforcement guard, the operator API handlers and the forward
// authorization endpoint for authorization keys.
package http

import (
	"context"

	"github.com/allisson/authkeys/internal/authkey/domain"
)

// identityKey is a context key type for storing the resolved caller identity.
type identityKey struct{}

// verifyResultKey is a context key type for storing the guard outcome.
type verifyResultKey struct{}

// WithIdentity stores the resolved caller identity in the context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// GetIdentity retrieves the caller identity from the context.
// Returns (identity, true) if present, or (Identity{}, false) if no identity was resolved.
func GetIdentity(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}

// WithVerifyResult stores the successful verification result in the context.
// The guard calls this before handing control to the protected handler.
func WithVerifyResult(ctx context.Context, result *domain.VerifyResult) context.Context {
	return context.WithValue(ctx, verifyResultKey{}, result)
}

// GetVerifyResult retrieves the verification result set by the guard.
func GetVerifyResult(ctx context.Context) (*domain.VerifyResult, bool) {
	result, ok := ctx.Value(verifyResultKey{}).(*domain.VerifyResult)
	return result, ok
}
