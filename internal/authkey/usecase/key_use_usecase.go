package usecase

import (
	"context"

	"github.com/allisson/authkeys/internal/authkey/domain"
)

type keyUseUseCase struct {
	keyUseRepo KeyUseRepository
}

// List retrieves ledger entries newest first.
func (k *keyUseUseCase) List(
	ctx context.Context,
	offset, limit int,
	filter domain.KeyUseFilter,
) ([]*domain.KeyUse, error) {
	return k.keyUseRepo.List(ctx, offset, limit, filter)
}

// NewKeyUseUseCase creates a new KeyUseUseCase.
func NewKeyUseUseCase(keyUseRepo KeyUseRepository) KeyUseUseCase {
	return &keyUseUseCase{keyUseRepo: keyUseRepo}
}
