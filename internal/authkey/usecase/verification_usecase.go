package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/authkeys/internal/authkey/domain"
	authkeyService "github.com/allisson/authkeys/internal/authkey/service"
	"github.com/allisson/authkeys/internal/database"
	apperrors "github.com/allisson/authkeys/internal/errors"
)

type verificationUseCase struct {
	txManager  database.TxManager
	keyRepo    KeyRepository
	keyUseRepo KeyUseRepository
	keyService authkeyService.KeyService
	now        func() time.Time
}

// Verify runs the verification algorithm:
//
//  1. bypass succeeds without consuming anything
//  2. an empty or unmatched key is missing_or_invalid
//  3. a matched key is checked for expiry, quota, level and action in that order
//  4. on success one use is consumed with a conditional write; losing a race is exhausted
//
// Every call appends exactly one ledger entry. The consumption and its ledger entry commit in
// the same transaction.
func (v *verificationUseCase) Verify(ctx context.Context, input *domain.VerifyInput) (*domain.VerifyResult, error) {
	now := v.now().UTC()
	result := &domain.VerifyResult{RequiredLevel: input.RequiredLevel}

	use, err := v.newKeyUse(input, now)
	if err != nil {
		return nil, err
	}

	if input.Bypass {
		result.OK = true
		result.Bypass = true
		use.Success = true
		use.Meta[domain.MetaBypass] = true
		if err := v.keyUseRepo.Create(ctx, use); err != nil {
			return nil, apperrors.Wrap(err, "failed to record bypass")
		}
		return result, nil
	}

	presented := strings.TrimSpace(input.PresentedKey)
	if presented == "" {
		return v.deny(ctx, use, result, domain.ReasonMissingOrInvalid)
	}

	key, err := v.match(ctx, presented)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return v.deny(ctx, use, result, domain.ReasonMissingOrInvalid)
	}

	keyID := key.ID
	keyLevel := key.Level
	result.KeyID = &keyID
	result.KeyLevel = &keyLevel
	use.KeyID = &keyID

	if reason := key.Evaluate(input.Action, input.RequiredLevel, now); reason != domain.ReasonNone {
		return v.deny(ctx, use, result, reason)
	}

	err = v.txManager.WithTx(ctx, func(ctx context.Context) error {
		consumed, err := v.keyRepo.ConsumeUse(ctx, keyID)
		if err != nil {
			return err
		}

		if consumed {
			result.OK = true
			use.Success = true
			return v.keyUseRepo.Create(ctx, use)
		}

		reason, err := v.consumeFailureReason(ctx, keyID)
		if err != nil {
			return err
		}
		result.Reason = reason
		use.Meta[domain.MetaReason] = string(reason)

		return v.keyUseRepo.Create(ctx, use)
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to consume authorization key")
	}

	return result, nil
}

// consumeFailureReason tells a key revoked or deleted since the lookup apart from one whose
// uses ran out.
func (v *verificationUseCase) consumeFailureReason(ctx context.Context, keyID uuid.UUID) (domain.Reason, error) {
	current, err := v.keyRepo.Get(ctx, keyID)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return domain.ReasonMissingOrInvalid, nil
	}
	if err != nil {
		return domain.ReasonNone, apperrors.Wrap(err, "failed to reload authorization key")
	}
	if !current.IsActive {
		return domain.ReasonMissingOrInvalid, nil
	}
	return domain.ReasonExhausted, nil
}

// match returns the first active candidate whose hash matches the presented key, or nil.
func (v *verificationUseCase) match(ctx context.Context, presented string) (*domain.AuthorizationKey, error) {
	candidates, err := v.keyRepo.ListActiveByPrefix(ctx, v.keyService.Prefix(presented))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to look up authorization keys")
	}

	for _, candidate := range candidates {
		if v.keyService.CompareKey(presented, candidate.TokenHash) {
			return candidate, nil
		}
	}
	return nil, nil
}

func (v *verificationUseCase) deny(
	ctx context.Context,
	use *domain.KeyUse,
	result *domain.VerifyResult,
	reason domain.Reason,
) (*domain.VerifyResult, error) {
	result.OK = false
	result.Reason = reason
	use.Success = false
	use.Meta[domain.MetaReason] = string(reason)

	if err := v.keyUseRepo.Create(ctx, use); err != nil {
		return nil, apperrors.Wrap(err, "failed to record denied verification")
	}
	return result, nil
}

func (v *verificationUseCase) newKeyUse(input *domain.VerifyInput, now time.Time) (*domain.KeyUse, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate key use id")
	}

	// The outcome markers are set below; a caller cannot pre-fill them.
	meta := make(map[string]any, len(input.Metadata)+1)
	for k, v := range input.Metadata {
		if k == domain.MetaReason || k == domain.MetaBypass {
			continue
		}
		meta[k] = v
	}

	var ip *string
	if input.ClientIP != "" {
		addr := input.ClientIP
		ip = &addr
	}

	return &domain.KeyUse{
		ID:        id,
		UsedBy:    input.Actor,
		UsedAt:    now,
		Action:    input.Action,
		Target:    input.Target,
		IP:        ip,
		UserAgent: input.UserAgent,
		Meta:      meta,
	}, nil
}

// NewVerificationUseCase creates a new VerificationUseCase.
func NewVerificationUseCase(
	txManager database.TxManager,
	keyRepo KeyRepository,
	keyUseRepo KeyUseRepository,
	keyService authkeyService.KeyService,
) VerificationUseCase {
	return &verificationUseCase{
		txManager:  txManager,
		keyRepo:    keyRepo,
		keyUseRepo: keyUseRepo,
		keyService: keyService,
		now:        time.Now,
	}
}
