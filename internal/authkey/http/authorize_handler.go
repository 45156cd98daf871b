package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/authkeys/internal/authkey/http/dto"
	apperrors "github.com/allisson/authkeys/internal/errors"
	"github.com/allisson/authkeys/internal/httputil"
)

var errMissingVerifyResult = apperrors.New("verification result missing from context")

// AuthorizeHandler exposes the guard to services that cannot embed it, such as a reverse
// proxy doing forward authentication.
type AuthorizeHandler struct {
	guard    *Guard
	policies *PolicyTable
	logger   *slog.Logger
}

// NewAuthorizeHandler creates a new forward authorization handler.
func NewAuthorizeHandler(guard *Guard, policies *PolicyTable, logger *slog.Logger) *AuthorizeHandler {
	return &AuthorizeHandler{
		guard:    guard,
		policies: policies,
		logger:   logger,
	}
}

// AuthorizeHandler verifies a key against the named operation's policy.
// POST /v1/authorize/:operation - Returns 200 {ok:true} on success, 403 on denial, 404 for an
// unknown operation and 503 when verification is unavailable. Denials are always JSON.
func (h *AuthorizeHandler) AuthorizeHandler(c *gin.Context) {
	policy, err := h.policies.Lookup(c.Param("operation"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	// The endpoint itself is the protected invocation, whatever methods the policy lists.
	policy.Methods = []string{c.Request.Method}
	policy.Return403 = true

	h.guard.Require(policy)(c)
	if c.IsAborted() {
		return
	}

	result, ok := GetVerifyResult(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, errMissingVerifyResult, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapVerifyResultToAuthorizeResponse(result))
}
