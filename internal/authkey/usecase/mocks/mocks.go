// Package mocks provides mock implementations of the authorization key use cases.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/authkeys/internal/authkey/domain"
)

// MockKeyUseCase is a mock implementation of KeyUseCase for testing.
type MockKeyUseCase struct {
	mock.Mock
}

// Issue mocks the Issue method of KeyUseCase.
func (m *MockKeyUseCase) Issue(ctx context.Context, input *domain.IssueKeyInput) (*domain.IssueKeyOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IssueKeyOutput), args.Error(1)
}

// Rotate mocks the Rotate method of KeyUseCase.
func (m *MockKeyUseCase) Rotate(ctx context.Context, input *domain.RotateKeyInput) (*domain.IssueKeyOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IssueKeyOutput), args.Error(1)
}

// Revoke mocks the Revoke method of KeyUseCase.
func (m *MockKeyUseCase) Revoke(ctx context.Context, keyID uuid.UUID) error {
	args := m.Called(ctx, keyID)
	return args.Error(0)
}

// Get mocks the Get method of KeyUseCase.
func (m *MockKeyUseCase) Get(ctx context.Context, keyID uuid.UUID) (*domain.AuthorizationKey, error) {
	args := m.Called(ctx, keyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthorizationKey), args.Error(1)
}

// List mocks the List method of KeyUseCase.
func (m *MockKeyUseCase) List(
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

// Delete mocks the Delete method of KeyUseCase.
func (m *MockKeyUseCase) Delete(ctx context.Context, keyID uuid.UUID) error {
	args := m.Called(ctx, keyID)
	return args.Error(0)
}

// MockVerificationUseCase is a mock implementation of VerificationUseCase for testing.
type MockVerificationUseCase struct {
	mock.Mock
}

// Verify mocks the Verify method of VerificationUseCase.
func (m *MockVerificationUseCase) Verify(ctx context.Context, input *domain.VerifyInput) (*domain.VerifyResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerifyResult), args.Error(1)
}

// MockKeyUseUseCase is a mock implementation of KeyUseUseCase for testing.
type MockKeyUseUseCase struct {
	mock.Mock
}

// List mocks the List method of KeyUseUseCase.
func (m *MockKeyUseUseCase) List(
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
