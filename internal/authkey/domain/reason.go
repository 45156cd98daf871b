package domain

import "fmt"

// Reason is the machine-readable code of a denied verification.
type Reason string

const (
	// ReasonNone marks a successful verification.
	ReasonNone Reason = ""

	// ReasonMissingOrInvalid means no key was presented or no active key matched it.
	ReasonMissingOrInvalid Reason = "missing_or_invalid"

	// ReasonExpired means the matched key is past its expiry.
	ReasonExpired Reason = "expired"

	// ReasonExhausted means the matched key has no uses left.
	ReasonExhausted Reason = "exhausted"

	// ReasonInsufficientLevel means the matched key level is below the required level.
	ReasonInsufficientLevel Reason = "insufficient_level"

	// ReasonActionNotAllowed means the matched key is not scoped to the action.
	ReasonActionNotAllowed Reason = "action_not_allowed"
)

// Reasons lists every denial reason.
func Reasons() []Reason {
	return []Reason{
		ReasonMissingOrInvalid,
		ReasonExpired,
		ReasonExhausted,
		ReasonInsufficientLevel,
		ReasonActionNotAllowed,
	}
}

// Message returns the human-readable denial text. keyLevel is only used for
// ReasonInsufficientLevel. The text never hints at how close an invalid key came to matching.
func (r Reason) Message(required Level, keyLevel *Level) string {
	switch r {
	case ReasonExpired:
		return "Authorization key expired."
	case ReasonExhausted:
		return "Authorization key exhausted (usage quota reached)."
	case ReasonInsufficientLevel:
		got := "none"
		if keyLevel != nil {
			got = keyLevel.String()
		}
		return fmt.Sprintf("Insufficient authorization key level (required: %s, key: %s).", required, got)
	case ReasonActionNotAllowed:
		return "Authorization key not allowed for this action."
	default:
		return "Authorization key required or invalid."
	}
}
