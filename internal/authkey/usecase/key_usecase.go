package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/allisson/authkeys/internal/authkey/domain"
	authkeyService "github.com/allisson/authkeys/internal/authkey/service"
	"github.com/allisson/authkeys/internal/database"
	apperrors "github.com/allisson/authkeys/internal/errors"
)

// rotationLabelSuffix is appended to the label of a rotated key.
const rotationLabelSuffix = " (rotation)"

type keyUseCase struct {
	txManager  database.TxManager
	keyRepo    KeyRepository
	keyService authkeyService.KeyService
	now        func() time.Time
}

// Issue validates the policy, generates the secret and persists its hash.
func (k *keyUseCase) Issue(ctx context.Context, input *domain.IssueKeyInput) (*domain.IssueKeyOutput, error) {
	if err := validateIssueInput(input); err != nil {
		return nil, err
	}

	key, plainKey, err := k.newKey(input)
	if err != nil {
		return nil, err
	}

	if err := k.keyRepo.Create(ctx, key); err != nil {
		return nil, apperrors.Wrap(err, "failed to store authorization key")
	}

	return &domain.IssueKeyOutput{Key: key, PlainToken: plainKey}, nil
}

// Rotate issues a replacement for an existing key inside a single transaction.
func (k *keyUseCase) Rotate(ctx context.Context, input *domain.RotateKeyInput) (*domain.IssueKeyOutput, error) {
	if strings.TrimSpace(input.IssuedBy) == "" {
		return nil, domain.ErrMissingIssuer
	}

	var output *domain.IssueKeyOutput

	err := k.txManager.WithTx(ctx, func(ctx context.Context) error {
		old, err := k.keyRepo.Get(ctx, input.KeyID)
		if err != nil {
			return err
		}

		key, plainKey, err := k.newKey(&domain.IssueKeyInput{
			Label:          domain.Truncate(old.Label+rotationLabelSuffix, domain.MaxLabelLength),
			Level:          old.Level,
			AllowedActions: old.AllowedActions,
			MaxUses:        old.MaxUses,
			ExpiresAt:      old.ExpiresAt,
			Note:           fmt.Sprintf("Rotation of %s", old.TokenPrefix),
			IssuedBy:       input.IssuedBy,
		})
		if err != nil {
			return err
		}

		if err := k.keyRepo.Create(ctx, key); err != nil {
			return apperrors.Wrap(err, "failed to store rotated authorization key")
		}

		if input.RevokeOld {
			if err := k.keyRepo.Revoke(ctx, old.ID); err != nil {
				return err
			}
		}

		output = &domain.IssueKeyOutput{Key: key, PlainToken: plainKey}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return output, nil
}

// Revoke deactivates the key after confirming it exists.
func (k *keyUseCase) Revoke(ctx context.Context, keyID uuid.UUID) error {
	if _, err := k.keyRepo.Get(ctx, keyID); err != nil {
		return err
	}
	return k.keyRepo.Revoke(ctx, keyID)
}

// Get retrieves a key by ID.
func (k *keyUseCase) Get(ctx context.Context, keyID uuid.UUID) (*domain.AuthorizationKey, error) {
	return k.keyRepo.Get(ctx, keyID)
}

// List retrieves keys newest first.
func (k *keyUseCase) List(
	ctx context.Context,
	offset, limit int,
	filter domain.KeyFilter,
) ([]*domain.AuthorizationKey, error) {
	return k.keyRepo.List(ctx, offset, limit, filter)
}

// Delete removes a key. The ledger keeps its entries with the key reference cleared.
func (k *keyUseCase) Delete(ctx context.Context, keyID uuid.UUID) error {
	return k.keyRepo.Delete(ctx, keyID)
}

func (k *keyUseCase) newKey(input *domain.IssueKeyInput) (*domain.AuthorizationKey, string, error) {
	plainKey, prefix, keyHash, err := k.keyService.GenerateKey()
	if err != nil {
		return nil, "", err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, "", apperrors.Wrap(err, "failed to generate authorization key id")
	}

	key := &domain.AuthorizationKey{
		ID:             id,
		Label:          input.Label,
		TokenPrefix:    prefix,
		TokenHash:      keyHash,
		Level:          input.Level,
		AllowedActions: domain.NormalizeActions(input.AllowedActions),
		MaxUses:        input.MaxUses,
		UsesCount:      0,
		ExpiresAt:      input.ExpiresAt,
		IsActive:       true,
		CreatedBy:      input.IssuedBy,
		CreatedAt:      k.now().UTC(),
		Note:           input.Note,
	}
	return key, plainKey, nil
}

func validateIssueInput(input *domain.IssueKeyInput) error {
	if !input.Level.IsValid() {
		return domain.ErrInvalidLevel
	}
	if input.MaxUses != nil && *input.MaxUses < 0 {
		return domain.ErrInvalidMaxUses
	}
	if utf8.RuneCountInString(input.Label) > domain.MaxLabelLength {
		return domain.ErrLabelTooLong
	}
	if strings.TrimSpace(input.IssuedBy) == "" {
		return domain.ErrMissingIssuer
	}
	for _, action := range input.AllowedActions {
		if strings.TrimSpace(action) == "" || len(action) > domain.MaxActionLength {
			return domain.ErrInvalidAction
		}
	}
	return nil
}

// NewKeyUseCase creates a new KeyUseCase.
func NewKeyUseCase(
	txManager database.TxManager,
	keyRepo KeyRepository,
	keyService authkeyService.KeyService,
) KeyUseCase {
	return &keyUseCase{
		txManager:  txManager,
		keyRepo:    keyRepo,
		keyService: keyService,
		now:        time.Now,
	}
}
