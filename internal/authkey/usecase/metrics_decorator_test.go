package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/authkeys/internal/authkey/domain"
	"github.com/allisson/authkeys/internal/authkey/usecase"
	usecaseMocks "github.com/allisson/authkeys/internal/authkey/usecase/mocks"
)

// mockBusinessMetrics is a local mock for metrics.BusinessMetrics to avoid dependency issues.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

func (m *mockBusinessMetrics) RecordVerification(ctx context.Context, action, outcome string) {
	m.Called(ctx, action, outcome)
}

func expectOperation(m *mockBusinessMetrics, ctx context.Context, operation, status string) {
	m.On("RecordOperation", ctx, "authkey", operation, status).Return().Once()
	m.On("RecordDuration", ctx, "authkey", operation, mock.AnythingOfType("time.Duration"), status).
		Return().
		Once()
}

func TestKeyUseCaseWithMetrics(t *testing.T) {
	mockNext := &usecaseMocks.MockKeyUseCase{}
	mockMetrics := &mockBusinessMetrics{}
	uc := usecase.NewKeyUseCaseWithMetrics(mockNext, mockMetrics)

	ctx := context.Background()
	keyID := uuid.Must(uuid.NewV7())

	t.Run("Issue success", func(t *testing.T) {
		input := &domain.IssueKeyInput{Level: domain.LevelLow, IssuedBy: "alice"}
		output := &domain.IssueKeyOutput{Key: &domain.AuthorizationKey{ID: keyID}, PlainToken: "plain"}

		mockNext.On("Issue", ctx, input).Return(output, nil).Once()
		expectOperation(mockMetrics, ctx, "key_issue", "success")

		res, err := uc.Issue(ctx, input)
		assert.NoError(t, err)
		assert.Equal(t, output, res)
		mockNext.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Rotate error", func(t *testing.T) {
		input := &domain.RotateKeyInput{KeyID: keyID, IssuedBy: "alice"}

		mockNext.On("Rotate", ctx, input).Return(nil, domain.ErrKeyNotFound).Once()
		expectOperation(mockMetrics, ctx, "key_rotate", "error")

		res, err := uc.Rotate(ctx, input)
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
		assert.Nil(t, res)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Revoke success", func(t *testing.T) {
		mockNext.On("Revoke", ctx, keyID).Return(nil).Once()
		expectOperation(mockMetrics, ctx, "key_revoke", "success")

		assert.NoError(t, uc.Revoke(ctx, keyID))
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Get error", func(t *testing.T) {
		mockNext.On("Get", ctx, keyID).Return(nil, errors.New("error")).Once()
		expectOperation(mockMetrics, ctx, "key_get", "error")

		key, err := uc.Get(ctx, keyID)
		assert.Error(t, err)
		assert.Nil(t, key)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("List success", func(t *testing.T) {
		keys := []*domain.AuthorizationKey{{ID: keyID}}
		mockNext.On("List", ctx, 0, 10, domain.KeyFilter{}).Return(keys, nil).Once()
		expectOperation(mockMetrics, ctx, "key_list", "success")

		res, err := uc.List(ctx, 0, 10, domain.KeyFilter{})
		assert.NoError(t, err)
		assert.Equal(t, keys, res)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Delete success", func(t *testing.T) {
		mockNext.On("Delete", ctx, keyID).Return(nil).Once()
		expectOperation(mockMetrics, ctx, "key_delete", "success")

		assert.NoError(t, uc.Delete(ctx, keyID))
		mockMetrics.AssertExpectations(t)
	})
}

func TestVerificationUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		result  *domain.VerifyResult
		err     error
		status  string
		outcome string
	}{
		{
			name:    "granted",
			result:  &domain.VerifyResult{OK: true},
			status:  "success",
			outcome: "granted",
		},
		{
			name:    "bypass",
			result:  &domain.VerifyResult{OK: true, Bypass: true},
			status:  "success",
			outcome: "bypass",
		},
		{
			name:    "denied",
			result:  &domain.VerifyResult{Reason: domain.ReasonExpired},
			status:  "success",
			outcome: "expired",
		},
		{
			name:    "error",
			err:     errors.New("database down"),
			status:  "error",
			outcome: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockNext := &usecaseMocks.MockVerificationUseCase{}
			mockMetrics := &mockBusinessMetrics{}
			uc := usecase.NewVerificationUseCaseWithMetrics(mockNext, mockMetrics)
			input := &domain.VerifyInput{Action: "deploy.run", RequiredLevel: domain.LevelHigh}

			if tt.result != nil {
				mockNext.On("Verify", ctx, input).Return(tt.result, nil).Once()
			} else {
				mockNext.On("Verify", ctx, input).Return(nil, tt.err).Once()
			}
			expectOperation(mockMetrics, ctx, "key_verify", tt.status)
			mockMetrics.On("RecordVerification", ctx, "deploy.run", tt.outcome).Return().Once()

			res, err := uc.Verify(ctx, input)
			assert.Equal(t, tt.err, err)
			assert.Equal(t, tt.result, res)
			mockMetrics.AssertExpectations(t)
		})
	}
}

func TestKeyUseUseCaseWithMetrics(t *testing.T) {
	mockNext := &usecaseMocks.MockKeyUseUseCase{}
	mockMetrics := &mockBusinessMetrics{}
	uc := usecase.NewKeyUseUseCaseWithMetrics(mockNext, mockMetrics)
	ctx := context.Background()

	t.Run("List error", func(t *testing.T) {
		mockNext.On("List", ctx, 0, 10, domain.KeyUseFilter{}).Return(nil, errors.New("error")).Once()
		expectOperation(mockMetrics, ctx, "key_use_list", "error")

		res, err := uc.List(ctx, 0, 10, domain.KeyUseFilter{})
		assert.Error(t, err)
		assert.Nil(t, res)
		mockMetrics.AssertExpectations(t)
	})
}
