package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxObjectKindLength bounds the stored target kind.
	MaxObjectKindLength = 100

	// MaxUsedByLength bounds the stored actor identity.
	MaxUsedByLength = 255

	// MaxObjectPKLength bounds the stored target identifier.
	MaxObjectPKLength = 64

	// MaxObjectReprLength bounds the stored target description.
	MaxObjectReprLength = 200

	// MaxUserAgentLength bounds the stored user agent.
	MaxUserAgentLength = 400

	// MetaReason is the metadata key holding the denial reason.
	MetaReason = "reason"

	// MetaBypass is the metadata key set when the exempt path was taken.
	MetaBypass = "bypass"

	// MetaRequestID is the metadata key holding the HTTP request id.
	MetaRequestID = "request_id"
)

// TargetRef identifies the resource an action targets. It is opaque to this package.
type TargetRef struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Display string `json:"display"`
}

// KeyUse is an append-only ledger entry recording one verification attempt.
// KeyID is nil when no key matched, when none was presented, on bypass, or after the key
// was deleted.
type KeyUse struct {
	ID        uuid.UUID
	KeyID     *uuid.UUID
	UsedBy    *string
	UsedAt    time.Time
	Action    string
	Target    TargetRef
	IP        *string
	UserAgent string
	Success   bool
	Meta      map[string]any
}

// Reason returns the recorded denial reason, if any.
func (u *KeyUse) Reason() Reason {
	if r, ok := u.Meta[MetaReason].(string); ok {
		return Reason(r)
	}
	return ReasonNone
}

// IsBypass reports whether the entry was written by the exempt path.
func (u *KeyUse) IsBypass() bool {
	bypass, ok := u.Meta[MetaBypass].(bool)
	return ok && bypass
}

// reservedMetaKeys are written by the guard and the verification engine, never by callers.
var reservedMetaKeys = []string{MetaReason, MetaBypass, MetaRequestID}

// IsReservedMetaKey reports whether key belongs to the ledger's own bookkeeping.
func IsReservedMetaKey(key string) bool {
	return slices.Contains(reservedMetaKeys, key)
}

// KeyUseFilter narrows ledger queries. Zero values mean no filter; time bounds are inclusive.
type KeyUseFilter struct {
	Action     string
	UsedBy     string
	Success    *bool
	KeyID      *uuid.UUID
	UsedAtFrom *time.Time
	UsedAtTo   *time.Time
}

// Truncate shortens s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
