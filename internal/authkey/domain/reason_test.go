package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReason_Message(t *testing.T) {
	keyLevel := LevelMedium

	tests := []struct {
		reason   Reason
		keyLevel *Level
		expected string
	}{
		{ReasonMissingOrInvalid, nil, "Authorization key required or invalid."},
		{ReasonExpired, nil, "Authorization key expired."},
		{ReasonExhausted, nil, "Authorization key exhausted (usage quota reached)."},
		{
			ReasonInsufficientLevel,
			&keyLevel,
			"Insufficient authorization key level (required: High, key: Medium).",
		},
		{ReasonInsufficientLevel, nil, "Insufficient authorization key level (required: High, key: none)."},
		{ReasonActionNotAllowed, nil, "Authorization key not allowed for this action."},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.reason.Message(LevelHigh, tt.keyLevel))
		})
	}
}

func TestVerifyResult_Message(t *testing.T) {
	ok := &VerifyResult{OK: true, RequiredLevel: LevelLow}
	assert.Empty(t, ok.Message())

	denied := &VerifyResult{Reason: ReasonExpired, RequiredLevel: LevelLow}
	assert.Equal(t, "Authorization key expired.", denied.Message())
}

func TestReasons(t *testing.T) {
	assert.Len(t, Reasons(), 5)
	assert.NotContains(t, Reasons(), ReasonNone)
}
