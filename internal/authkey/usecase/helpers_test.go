package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/authkeys/internal/authkey/domain"
)

// mockKeyRepository is a mock implementation of KeyRepository for testing.
type mockKeyRepository struct {
	mock.Mock
}

func (m *mockKeyRepository) Create(ctx context.Context, key *domain.AuthorizationKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockKeyRepository) Get(ctx context.Context, keyID uuid.UUID) (*domain.AuthorizationKey, error) {
	args := m.Called(ctx, keyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthorizationKey), args.Error(1)
}

func (m *mockKeyRepository) ListActiveByPrefix(
	ctx context.Context,
	prefix string,
) ([]*domain.AuthorizationKey, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AuthorizationKey), args.Error(1)
}

func (m *mockKeyRepository) List(
	ctx context.Context,
	offset, limit int,
	filter domain.KeyFilter,
) ([]*domain.AuthorizationKey, error) {
	args := m.Called(ctx, offset, limit, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AuthorizationKey), args.Error(1)
}

func (m *mockKeyRepository) Revoke(ctx context.Context, keyID uuid.UUID) error {
	args := m.Called(ctx, keyID)
	return args.Error(0)
}

func (m *mockKeyRepository) ConsumeUse(ctx context.Context, keyID uuid.UUID) (bool, error) {
	args := m.Called(ctx, keyID)
	return args.Bool(0), args.Error(1)
}

func (m *mockKeyRepository) Delete(ctx context.Context, keyID uuid.UUID) error {
	args := m.Called(ctx, keyID)
	return args.Error(0)
}

// mockKeyUseRepository is a mock implementation of KeyUseRepository for testing.
type mockKeyUseRepository struct {
	mock.Mock
}

func (m *mockKeyUseRepository) Create(ctx context.Context, use *domain.KeyUse) error {
	args := m.Called(ctx, use)
	return args.Error(0)
}

func (m *mockKeyUseRepository) List(
	ctx context.Context,
	offset, limit int,
	filter domain.KeyUseFilter,
) ([]*domain.KeyUse, error) {
	args := m.Called(ctx, offset, limit, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KeyUse), args.Error(1)
}

// mockKeyService is a mock implementation of KeyService for testing.
type mockKeyService struct {
	mock.Mock
}

func (m *mockKeyService) GenerateKey() (string, string, string, error) {
	args := m.Called()
	return args.String(0), args.String(1), args.String(2), args.Error(3)
}

func (m *mockKeyService) HashKey(plainKey string) (string, error) {
	args := m.Called(plainKey)
	return args.String(0), args.Error(1)
}

func (m *mockKeyService) CompareKey(plainKey string, keyHash string) bool {
	args := m.Called(plainKey, keyHash)
	return args.Bool(0)
}

func (m *mockKeyService) Prefix(plainKey string) string {
	args := m.Called(plainKey)
	return args.String(0)
}

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int {
	return &v
}

func timePtr(v time.Time) *time.Time {
	return &v
}

func stringPtr(v string) *string {
	return &v
}

func newStoredKey() *domain.AuthorizationKey {
	return &domain.AuthorizationKey{
		ID:             uuid.Must(uuid.NewV7()),
		Label:          "deploy",
		TokenPrefix:    "AbCdEfGhIj",
		TokenHash:      "$argon2id$v=19$m=65536,t=3,p=4$stored-hash",
		Level:          domain.LevelHigh,
		AllowedActions: []string{domain.WildcardAction},
		IsActive:       true,
		CreatedBy:      "alice",
		CreatedAt:      fixedNow.Add(-time.Hour),
	}
}
