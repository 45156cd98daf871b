package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/authkeys/internal/authkey/domain"
	"github.com/allisson/authkeys/internal/authkey/http/dto"
	authkeyUseCase "github.com/allisson/authkeys/internal/authkey/usecase"
	"github.com/allisson/authkeys/internal/httputil"
)

// KeyUseHandler handles read access to the usage ledger.
type KeyUseHandler struct {
	keyUseUseCase authkeyUseCase.KeyUseUseCase
	logger        *slog.Logger
}

// NewKeyUseHandler creates a new ledger handler with required dependencies.
func NewKeyUseHandler(keyUseUseCase authkeyUseCase.KeyUseUseCase, logger *slog.Logger) *KeyUseHandler {
	return &KeyUseHandler{
		keyUseUseCase: keyUseUseCase,
		logger:        logger,
	}
}

// ListHandler retrieves ledger entries newest first.
// GET /v1/authorization-key-uses?action=&actor=&success=&key_id=&used_at_from=&used_at_to=
// Time bounds are RFC3339, converted to UTC and inclusive.
func (h *KeyUseHandler) ListHandler(c *gin.Context) {
	offset, limit, filter, err := parseKeyUseQuery(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	keyID, err := httputil.ParseOptionalUUID(c, "key_id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	filter.KeyID = keyID

	uses, err := h.keyUseUseCase.List(c.Request.Context(), offset, limit, filter)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeyUsesToListResponse(uses))
}

// parseKeyUseQuery reads pagination and every ledger filter except key_id.
func parseKeyUseQuery(c *gin.Context) (int, int, domain.KeyUseFilter, error) {
	var filter domain.KeyUseFilter

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		return 0, 0, filter, err
	}

	filter.Action = c.Query("action")
	filter.UsedBy = c.Query("actor")

	if filter.Success, err = httputil.ParseOptionalBool(c, "success"); err != nil {
		return 0, 0, filter, err
	}
	if filter.UsedAtFrom, err = httputil.ParseOptionalTime(c, "used_at_from"); err != nil {
		return 0, 0, filter, err
	}
	if filter.UsedAtTo, err = httputil.ParseOptionalTime(c, "used_at_to"); err != nil {
		return 0, 0, filter, err
	}

	if filter.UsedAtFrom != nil {
		from := filter.UsedAtFrom.UTC()
		filter.UsedAtFrom = &from
	}
	if filter.UsedAtTo != nil {
		to := filter.UsedAtTo.UTC()
		filter.UsedAtTo = &to
	}

	if filter.UsedAtFrom != nil && filter.UsedAtTo != nil && filter.UsedAtFrom.After(*filter.UsedAtTo) {
		return 0, 0, filter, fmt.Errorf("used_at_from must be before or equal to used_at_to")
	}

	return offset, limit, filter, nil
}
