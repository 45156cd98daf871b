package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/authkeys/internal/errors"
)

func TestActionIdentifier(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{name: "wildcard", input: "*", shouldErr: false},
		{name: "dotted", input: "team.invite.bulk", shouldErr: false},
		{name: "underscored", input: "application_unapprove", shouldErr: false},
		{name: "namespaced", input: "billing:refund-issue", shouldErr: false},
		{name: "inner space", input: "team invite", shouldErr: true},
		{name: "leading dot", input: ".team", shouldErr: true},
		{name: "partial wildcard", input: "team.*", shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ActionIdentifier.Validate(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWrapValidationError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		assert.NoError(t, WrapValidationError(nil))
	})

	t.Run("wraps validation error", func(t *testing.T) {
		result := WrapValidationError(assert.AnError)
		assert.Error(t, result)
		assert.ErrorIs(t, result, apperrors.ErrInvalidInput)
		assert.Contains(t, result.Error(), "invalid input")
	})
}
