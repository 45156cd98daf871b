package domain

import "github.com/google/uuid"

// VerifyInput carries everything the verification engine needs. Actor and Bypass are resolved
// by the caller and passed explicitly.
type VerifyInput struct {
	PresentedKey  string
	Action        string
	RequiredLevel Level
	Actor         *string
	Bypass        bool
	Target        TargetRef
	ClientIP      string
	UserAgent     string
	Metadata      map[string]any
}

// VerifyResult is the typed outcome of a verification. Denials are results, not errors.
type VerifyResult struct {
	OK            bool
	Reason        Reason
	KeyID         *uuid.UUID
	KeyLevel      *Level
	RequiredLevel Level
	Bypass        bool
}

// Message returns the denial text for the result, or an empty string on success.
func (r *VerifyResult) Message() string {
	if r.OK {
		return ""
	}
	return r.Reason.Message(r.RequiredLevel, r.KeyLevel)
}
