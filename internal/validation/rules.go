// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/authkeys/internal/errors"
)

// actionRegex matches dotted action identifiers such as "team.invite.bulk" or "application_approve".
var actionRegex = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.:\-]*$`)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// ActionIdentifier validates an action identifier or the "*" wildcard.
var ActionIdentifier = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == "*" || actionRegex.MatchString(s)
	},
	validation.NewError(
		"validation_action_identifier",
		"must be \"*\" or a dotted identifier of letters, digits, '_', '-' or ':'",
	),
)
