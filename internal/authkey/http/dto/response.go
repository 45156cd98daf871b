package dto

import (
	"time"

	"github.com/allisson/authkeys/internal/authkey/domain"
)

// KeyResponse represents an authorization key in API responses. The hash is never exposed.
type KeyResponse struct {
	ID             string     `json:"id"`
	Label          string     `json:"label"`
	Prefix         string     `json:"prefix"`
	Level          int        `json:"level"`
	LevelName      string     `json:"level_name"`
	AllowedActions []string   `json:"allowed_actions"`
	MaxUses        *int       `json:"max_uses"`
	UsesCount      int        `json:"uses_count"`
	RemainingUses  *int       `json:"remaining_uses"`
	ExpiresAt      *time.Time `json:"expires_at"`
	IsActive       bool       `json:"is_active"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	Note           string     `json:"note"`
}

// MapKeyToResponse converts a domain key to an API response.
func MapKeyToResponse(key *domain.AuthorizationKey) KeyResponse {
	var remaining *int
	if key.MaxUses != nil {
		left := max(*key.MaxUses-key.UsesCount, 0)
		remaining = &left
	}

	return KeyResponse{
		ID:             key.ID.String(),
		Label:          key.Label,
		Prefix:         key.TokenPrefix,
		Level:          int(key.Level),
		LevelName:      key.Level.String(),
		AllowedActions: key.AllowedActions,
		MaxUses:        key.MaxUses,
		UsesCount:      key.UsesCount,
		RemainingUses:  remaining,
		ExpiresAt:      key.ExpiresAt,
		IsActive:       key.IsActive,
		CreatedBy:      key.CreatedBy,
		CreatedAt:      key.CreatedAt,
		Note:           key.Note,
	}
}

// IssueKeyResponse contains a freshly issued key.
// SECURITY: The token is only returned once and must be saved securely.
type IssueKeyResponse struct {
	KeyResponse
	Token string `json:"token"` //nolint:gosec // returned once on issuance
}

// MapIssueKeyOutputToResponse converts an issuance result to an API response.
func MapIssueKeyOutputToResponse(output *domain.IssueKeyOutput) IssueKeyResponse {
	return IssueKeyResponse{
		KeyResponse: MapKeyToResponse(output.Key),
		Token:       output.PlainToken,
	}
}

// ListKeysResponse represents a paginated list of keys in API responses.
type ListKeysResponse struct {
	Data []KeyResponse `json:"data"`
}

// MapKeysToListResponse converts a slice of domain keys to a list API response.
func MapKeysToListResponse(keys []*domain.AuthorizationKey) ListKeysResponse {
	keyResponses := make([]KeyResponse, 0, len(keys))
	for _, key := range keys {
		keyResponses = append(keyResponses, MapKeyToResponse(key))
	}
	return ListKeysResponse{Data: keyResponses}
}

// KeyUseResponse represents a ledger entry in API responses.
type KeyUseResponse struct {
	ID        string           `json:"id"`
	KeyID     *string          `json:"key_id"`
	UsedBy    *string          `json:"used_by"`
	UsedAt    time.Time        `json:"used_at"`
	Action    string           `json:"action"`
	Target    domain.TargetRef `json:"target"`
	IP        *string          `json:"ip"`
	UserAgent string           `json:"user_agent"`
	Success   bool             `json:"success"`
	Reason    string           `json:"reason,omitempty"`
	Bypass    bool             `json:"bypass"`
	Meta      map[string]any   `json:"meta"`
}

// MapKeyUseToResponse converts a ledger entry to an API response.
func MapKeyUseToResponse(use *domain.KeyUse) KeyUseResponse {
	var keyID *string
	if use.KeyID != nil {
		id := use.KeyID.String()
		keyID = &id
	}

	return KeyUseResponse{
		ID:        use.ID.String(),
		KeyID:     keyID,
		UsedBy:    use.UsedBy,
		UsedAt:    use.UsedAt,
		Action:    use.Action,
		Target:    use.Target,
		IP:        use.IP,
		UserAgent: use.UserAgent,
		Success:   use.Success,
		Reason:    string(use.Reason()),
		Bypass:    use.IsBypass(),
		Meta:      use.Meta,
	}
}

// ListKeyUsesResponse represents a paginated list of ledger entries in API responses.
type ListKeyUsesResponse struct {
	Data []KeyUseResponse `json:"data"`
}

// MapKeyUsesToListResponse converts ledger entries to a list API response.
func MapKeyUsesToListResponse(uses []*domain.KeyUse) ListKeyUsesResponse {
	useResponses := make([]KeyUseResponse, 0, len(uses))
	for _, use := range uses {
		useResponses = append(useResponses, MapKeyUseToResponse(use))
	}
	return ListKeyUsesResponse{Data: useResponses}
}

// DenialResponse is the body of a refused guarded request.
type DenialResponse struct {
	OK                bool    `json:"ok"`
	Error             string  `json:"error"`
	Message           string  `json:"message"`
	RequiredLevel     int     `json:"required_level"`
	RequiredLevelName string  `json:"required_level_name"`
	KeyLevel          *int    `json:"key_level,omitempty"`
	KeyLevelName      *string `json:"key_level_name,omitempty"`
}

// MapVerifyResultToDenialResponse converts a denied verification to an API response.
func MapVerifyResultToDenialResponse(result *domain.VerifyResult) DenialResponse {
	response := DenialResponse{
		OK:                false,
		Error:             string(result.Reason),
		Message:           result.Message(),
		RequiredLevel:     int(result.RequiredLevel),
		RequiredLevelName: result.RequiredLevel.String(),
	}

	if result.KeyLevel != nil {
		level := int(*result.KeyLevel)
		name := result.KeyLevel.String()
		response.KeyLevel = &level
		response.KeyLevelName = &name
	}

	return response
}

// AuthorizeResponse is the body of a granted forward authorization.
type AuthorizeResponse struct {
	OK     bool    `json:"ok"`
	Bypass bool    `json:"bypass"`
	KeyID  *string `json:"key_id,omitempty"`
}

// MapVerifyResultToAuthorizeResponse converts a granted verification to an API response.
func MapVerifyResultToAuthorizeResponse(result *domain.VerifyResult) AuthorizeResponse {
	response := AuthorizeResponse{OK: true, Bypass: result.Bypass}
	if result.KeyID != nil {
		id := result.KeyID.String()
		response.KeyID = &id
	}
	return response
}
