package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/authkeys/internal/authkey/domain"
	"github.com/allisson/authkeys/internal/metrics"
)

const metricsDomain = "authkey"

// Verification outcomes recorded alongside denial reasons.
const (
	outcomeGranted = "granted"
	outcomeBypass  = "bypass"
	outcomeError   = "error"
)

func recordOperation(ctx context.Context, m metrics.BusinessMetrics, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.RecordOperation(ctx, metricsDomain, operation, status)
	m.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// keyUseCaseWithMetrics decorates KeyUseCase with metrics instrumentation.
type keyUseCaseWithMetrics struct {
	next    KeyUseCase
	metrics metrics.BusinessMetrics
}

// NewKeyUseCaseWithMetrics wraps a KeyUseCase with metrics recording.
func NewKeyUseCaseWithMetrics(useCase KeyUseCase, m metrics.BusinessMetrics) KeyUseCase {
	return &keyUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Issue records metrics for key issuance.
func (k *keyUseCaseWithMetrics) Issue(
	ctx context.Context,
	input *domain.IssueKeyInput,
) (*domain.IssueKeyOutput, error) {
	start := time.Now()
	output, err := k.next.Issue(ctx, input)
	recordOperation(ctx, k.metrics, "key_issue", start, err)
	return output, err
}

// Rotate records metrics for key rotation.
func (k *keyUseCaseWithMetrics) Rotate(
	ctx context.Context,
	input *domain.RotateKeyInput,
) (*domain.IssueKeyOutput, error) {
	start := time.Now()
	output, err := k.next.Rotate(ctx, input)
	recordOperation(ctx, k.metrics, "key_rotate", start, err)
	return output, err
}

// Revoke records metrics for key revocation.
func (k *keyUseCaseWithMetrics) Revoke(ctx context.Context, keyID uuid.UUID) error {
	start := time.Now()
	err := k.next.Revoke(ctx, keyID)
	recordOperation(ctx, k.metrics, "key_revoke", start, err)
	return err
}

// Get records metrics for key retrieval.
func (k *keyUseCaseWithMetrics) Get(ctx context.Context, keyID uuid.UUID) (*domain.AuthorizationKey, error) {
	start := time.Now()
	key, err := k.next.Get(ctx, keyID)
	recordOperation(ctx, k.metrics, "key_get", start, err)
	return key, err
}

// List records metrics for key listing.
func (k *keyUseCaseWithMetrics) List(
	ctx context.Context,
	offset, limit int,
	filter domain.KeyFilter,
) ([]*domain.AuthorizationKey, error) {
	start := time.Now()
	keys, err := k.next.List(ctx, offset, limit, filter)
	recordOperation(ctx, k.metrics, "key_list", start, err)
	return keys, err
}

// Delete records metrics for key deletion.
func (k *keyUseCaseWithMetrics) Delete(ctx context.Context, keyID uuid.UUID) error {
	start := time.Now()
	err := k.next.Delete(ctx, keyID)
	recordOperation(ctx, k.metrics, "key_delete", start, err)
	return err
}

// verificationUseCaseWithMetrics decorates VerificationUseCase with metrics instrumentation.
type verificationUseCaseWithMetrics struct {
	next    VerificationUseCase
	metrics metrics.BusinessMetrics
}

// NewVerificationUseCaseWithMetrics wraps a VerificationUseCase with metrics recording.
// Besides the operation counters it records one verification outcome per call.
func NewVerificationUseCaseWithMetrics(useCase VerificationUseCase, m metrics.BusinessMetrics) VerificationUseCase {
	return &verificationUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Verify records metrics for verification attempts.
func (v *verificationUseCaseWithMetrics) Verify(
	ctx context.Context,
	input *domain.VerifyInput,
) (*domain.VerifyResult, error) {
	start := time.Now()
	result, err := v.next.Verify(ctx, input)
	recordOperation(ctx, v.metrics, "key_verify", start, err)
	v.metrics.RecordVerification(ctx, input.Action, verificationOutcome(result, err))
	return result, err
}

func verificationOutcome(result *domain.VerifyResult, err error) string {
	switch {
	case err != nil || result == nil:
		return outcomeError
	case result.Bypass:
		return outcomeBypass
	case result.OK:
		return outcomeGranted
	default:
		return string(result.Reason)
	}
}

// keyUseUseCaseWithMetrics decorates KeyUseUseCase with metrics instrumentation.
type keyUseUseCaseWithMetrics struct {
	next    KeyUseUseCase
	metrics metrics.BusinessMetrics
}

// NewKeyUseUseCaseWithMetrics wraps a KeyUseUseCase with metrics recording.
func NewKeyUseUseCaseWithMetrics(useCase KeyUseUseCase, m metrics.BusinessMetrics) KeyUseUseCase {
	return &keyUseUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// List records metrics for ledger queries.
func (k *keyUseUseCaseWithMetrics) List(
	ctx context.Context,
	offset, limit int,
	filter domain.KeyUseFilter,
) ([]*domain.KeyUse, error) {
	start := time.Now()
	uses, err := k.next.List(ctx, offset, limit, filter)
	recordOperation(ctx, k.metrics, "key_use_list", start, err)
	return uses, err
}
