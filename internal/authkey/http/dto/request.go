// Package dto provides data transfer objects for the authorization key HTTP API.
package dto

import (
	"strings"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/allisson/authkeys/internal/authkey/domain"
	customValidation "github.com/allisson/authkeys/internal/validation"
)

// IssueKeyRequest contains the parameters for issuing a new authorization key.
// Level accepts a name ("high") or an ordinal ("30").
type IssueKeyRequest struct {
	Label          string     `json:"label"`
	Level          string     `json:"level"`
	AllowedActions []string   `json:"allowed_actions"`
	MaxUses        *int       `json:"max_uses"`
	ExpiresAt      *time.Time `json:"expires_at"`
	Note           string     `json:"note"`
}

// Validate checks if the issue key request is valid.
func (r *IssueKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Label,
			validation.RuneLength(0, domain.MaxLabelLength),
		),
		validation.Field(&r.Level,
			validation.Required,
			validation.By(validateLevel),
		),
		validation.Field(&r.AllowedActions,
			validation.Each(
				validation.Required,
				customValidation.ActionIdentifier,
				validation.Length(1, domain.MaxActionLength),
			),
		),
		validation.Field(&r.MaxUses,
			validation.Min(0),
		),
	)
}

// ToInput converts the request into use case input. Validate must have passed.
func (r *IssueKeyRequest) ToInput(issuedBy string) *domain.IssueKeyInput {
	level, _ := domain.ParseLevel(r.Level)

	var expiresAt *time.Time
	if r.ExpiresAt != nil {
		utc := r.ExpiresAt.UTC()
		expiresAt = &utc
	}

	return &domain.IssueKeyInput{
		Label:          strings.TrimSpace(r.Label),
		Level:          level,
		AllowedActions: r.AllowedActions,
		MaxUses:        r.MaxUses,
		ExpiresAt:      expiresAt,
		Note:           r.Note,
		IssuedBy:       issuedBy,
	}
}

// RotateKeyRequest contains the parameters for rotating an authorization key.
type RotateKeyRequest struct {
	RevokeOld bool `json:"revoke_old"`
}

// KeyBody holds the fields the guard reads from a JSON request body. Protected handlers may
// carry more fields; they are ignored here.
type KeyBody struct {
	AuthKey  string            `json:"auth_key"`
	Target   *domain.TargetRef `json:"target"`
	Metadata map[string]any    `json:"metadata"`
}

func validateLevel(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := domain.ParseLevel(s); err != nil {
		return validation.NewError("validation_level", "must be one of low, medium, high, critical")
	}
	return nil
}
