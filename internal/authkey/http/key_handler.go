package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/authkeys/internal/authkey/domain"
	"github.com/allisson/authkeys/internal/authkey/http/dto"
	authkeyUseCase "github.com/allisson/authkeys/internal/authkey/usecase"
	apperrors "github.com/allisson/authkeys/internal/errors"
	"github.com/allisson/authkeys/internal/httputil"
	customValidation "github.com/allisson/authkeys/internal/validation"
)

// KeyHandler handles the operator API for authorization keys.
type KeyHandler struct {
	keyUseCase    authkeyUseCase.KeyUseCase
	keyUseUseCase authkeyUseCase.KeyUseUseCase
	logger        *slog.Logger
}

// NewKeyHandler creates a new key handler with required dependencies.
func NewKeyHandler(
	keyUseCase authkeyUseCase.KeyUseCase,
	keyUseUseCase authkeyUseCase.KeyUseUseCase,
	logger *slog.Logger,
) *KeyHandler {
	return &KeyHandler{
		keyUseCase:    keyUseCase,
		keyUseUseCase: keyUseUseCase,
		logger:        logger,
	}
}

// IssueHandler issues a new authorization key.
// POST /v1/authorization-keys - Returns 201 Created with the plaintext token, shown once.
func (h *KeyHandler) IssueHandler(c *gin.Context) {
	var req dto.IssueKeyRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	issuer, ok := h.issuer(c)
	if !ok {
		return
	}

	output, err := h.keyUseCase.Issue(c.Request.Context(), req.ToInput(issuer))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.logger.Info("authorization key issued",
		slog.String("key_id", output.Key.ID.String()),
		slog.String("prefix", output.Key.TokenPrefix),
		slog.String("issued_by", issuer))

	c.JSON(http.StatusCreated, dto.MapIssueKeyOutputToResponse(output))
}

// ListHandler retrieves keys newest first.
// GET /v1/authorization-keys?offset=0&limit=50&active=true&level=high
func (h *KeyHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	active, err := httputil.ParseOptionalBool(c, "active")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	filter := domain.KeyFilter{IsActive: active}
	if raw := c.Query("level"); raw != "" {
		level, err := domain.ParseLevel(raw)
		if err != nil {
			httputil.HandleValidationErrorGin(c,
				fmt.Errorf("invalid level parameter: must be one of low, medium, high, critical"),
				h.logger)
			return
		}
		filter.Level = &level
	}

	keys, err := h.keyUseCase.List(c.Request.Context(), offset, limit, filter)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeysToListResponse(keys))
}

// GetHandler retrieves a key by ID.
// GET /v1/authorization-keys/:id - Returns 200 OK without the hash.
func (h *KeyHandler) GetHandler(c *gin.Context) {
	keyID, ok := h.parseKeyID(c)
	if !ok {
		return
	}

	key, err := h.keyUseCase.Get(c.Request.Context(), keyID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeyToResponse(key))
}

// RotateHandler issues a replacement key inheriting the policy of an existing one.
// POST /v1/authorization-keys/:id/rotate - Returns 201 Created with the new token.
func (h *KeyHandler) RotateHandler(c *gin.Context) {
	keyID, ok := h.parseKeyID(c)
	if !ok {
		return
	}

	var req dto.RotateKeyRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
	}

	issuer, ok := h.issuer(c)
	if !ok {
		return
	}

	output, err := h.keyUseCase.Rotate(c.Request.Context(), &domain.RotateKeyInput{
		KeyID:     keyID,
		RevokeOld: req.RevokeOld,
		IssuedBy:  issuer,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.logger.Info("authorization key rotated",
		slog.String("old_key_id", keyID.String()),
		slog.String("key_id", output.Key.ID.String()),
		slog.Bool("revoke_old", req.RevokeOld))

	c.JSON(http.StatusCreated, dto.MapIssueKeyOutputToResponse(output))
}

// RevokeHandler deactivates a key.
// POST /v1/authorization-keys/:id/revoke - Returns 204 No Content.
func (h *KeyHandler) RevokeHandler(c *gin.Context) {
	keyID, ok := h.parseKeyID(c)
	if !ok {
		return
	}

	if err := h.keyUseCase.Revoke(c.Request.Context(), keyID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// DeleteHandler removes a key. Its ledger entries are kept.
// DELETE /v1/authorization-keys/:id - Returns 204 No Content.
func (h *KeyHandler) DeleteHandler(c *gin.Context) {
	keyID, ok := h.parseKeyID(c)
	if !ok {
		return
	}

	if err := h.keyUseCase.Delete(c.Request.Context(), keyID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// ListUsesHandler retrieves the ledger entries of one key.
// GET /v1/authorization-keys/:id/uses - Accepts the same filters as the ledger endpoint.
func (h *KeyHandler) ListUsesHandler(c *gin.Context) {
	keyID, ok := h.parseKeyID(c)
	if !ok {
		return
	}

	offset, limit, filter, err := parseKeyUseQuery(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	filter.KeyID = &keyID

	uses, err := h.keyUseUseCase.List(c.Request.Context(), offset, limit, filter)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeyUsesToListResponse(uses))
}

func (h *KeyHandler) parseKeyID(c *gin.Context) (uuid.UUID, bool) {
	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid authorization key ID format: must be a valid UUID"),
			h.logger)
		return uuid.Nil, false
	}
	return keyID, true
}

func (h *KeyHandler) issuer(c *gin.Context) (string, bool) {
	identity, ok := GetIdentity(c.Request.Context())
	if !ok || !identity.IsAuthenticated() {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return "", false
	}
	return identity.Subject, true
}
