package dto

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/authkeys/internal/authkey/domain"
)

func TestMapKeyToResponse(t *testing.T) {
	maxUses := 3
	key := &domain.AuthorizationKey{
		ID:             uuid.Must(uuid.NewV7()),
		Label:          "ops",
		TokenPrefix:    "AbCdEfGhIj",
		TokenHash:      "hash",
		Level:          domain.LevelMedium,
		AllowedActions: []string{"*"},
		MaxUses:        &maxUses,
		UsesCount:      5,
		IsActive:       true,
		CreatedBy:      "root",
		CreatedAt:      time.Now().UTC(),
	}

	response := MapKeyToResponse(key)

	assert.Equal(t, key.ID.String(), response.ID)
	assert.Equal(t, 20, response.Level)
	assert.Equal(t, "Medium", response.LevelName)
	require.NotNil(t, response.RemainingUses)
	assert.Equal(t, 0, *response.RemainingUses)

	key.MaxUses = nil
	assert.Nil(t, MapKeyToResponse(key).RemainingUses)
}

func TestMapKeyUseToResponse(t *testing.T) {
	use := &domain.KeyUse{
		ID:     uuid.Must(uuid.NewV7()),
		UsedAt: time.Now().UTC(),
		Action: "project.create",
		Meta:   map[string]any{domain.MetaBypass: true},
	}

	response := MapKeyUseToResponse(use)

	assert.Nil(t, response.KeyID)
	assert.True(t, response.Bypass)
	assert.Empty(t, response.Reason)
}

func TestMapVerifyResultToDenialResponse(t *testing.T) {
	t.Run("WithoutKey", func(t *testing.T) {
		response := MapVerifyResultToDenialResponse(&domain.VerifyResult{
			Reason:        domain.ReasonMissingOrInvalid,
			RequiredLevel: domain.LevelLow,
		})

		assert.False(t, response.OK)
		assert.Equal(t, "missing_or_invalid", response.Error)
		assert.Equal(t, "Authorization key required or invalid.", response.Message)
		assert.Equal(t, 10, response.RequiredLevel)
		assert.Equal(t, "Low", response.RequiredLevelName)
		assert.Nil(t, response.KeyLevel)
		assert.Nil(t, response.KeyLevelName)
	})

	t.Run("WithKey", func(t *testing.T) {
		level := domain.LevelLow
		response := MapVerifyResultToDenialResponse(&domain.VerifyResult{
			Reason:        domain.ReasonInsufficientLevel,
			RequiredLevel: domain.LevelCritical,
			KeyLevel:      &level,
		})

		assert.Equal(t, "Insufficient authorization key level (required: Critical, key: Low).", response.Message)
		assert.Equal(t, 10, *response.KeyLevel)
		assert.Equal(t, "Low", *response.KeyLevelName)
	})
}
