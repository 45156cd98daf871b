package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/allisson/authkeys/internal/authkey/domain"
	"github.com/allisson/authkeys/internal/authkey/http/dto"
	authkeyUseCase "github.com/allisson/authkeys/internal/authkey/usecase"
)

const (
	// AuthKeyField is the body and query parameter carrying the key.
	AuthKeyField = "auth_key"

	// AuthKeyHeader is the dedicated header carrying the key.
	AuthKeyHeader = "X-Auth-Key"

	// ProgrammaticHeader set to "1" asks for a JSON denial instead of a redirect.
	ProgrammaticHeader = "X-Auth-Request"

	// FlashCookie carries the denial message to browser callers across the redirect.
	FlashCookie = "flash"

	flashMaxAge = 60

	unavailableMessage = "Authorization key verification is temporarily unavailable."
)

// TargetResolver identifies the resource a guarded request acts on.
type TargetResolver func(c *gin.Context, policy Policy) domain.TargetRef

// DefaultTargetResolver uses the target sent in a JSON body, falling back to the ":id" route
// parameter and the operation name.
func DefaultTargetResolver(c *gin.Context, policy Policy) domain.TargetRef {
	if body := bindKeyBody(c); body.Target != nil {
		return *body.Target
	}
	return domain.TargetRef{
		Kind:    policy.Operation,
		ID:      c.Param("id"),
		Display: policy.Operation,
	}
}

// Guard enforces authorization key policies in front of protected handlers.
type Guard struct {
	verifier         authkeyUseCase.VerificationUseCase
	identity         IdentityResolver
	target           TargetResolver
	logger           *slog.Logger
	realm            string
	fallbackRedirect string
}

// NewGuard creates a guard. A nil target resolver selects DefaultTargetResolver.
func NewGuard(
	verifier authkeyUseCase.VerificationUseCase,
	identity IdentityResolver,
	target TargetResolver,
	logger *slog.Logger,
	realm string,
	fallbackRedirect string,
) *Guard {
	if target == nil {
		target = DefaultTargetResolver
	}
	return &Guard{
		verifier:         verifier,
		identity:         identity,
		target:           target,
		logger:           logger,
		realm:            realm,
		fallbackRedirect: fallbackRedirect,
	}
}

// Require returns middleware enforcing the policy. Requests with unprotected methods pass
// through unchecked. On success the verification result is stored in the request context.
//
// Denials:
//   - Programmatic callers → 403 JSON DenialResponse
//   - Browser callers → 303 redirect with a flash cookie
//   - Verification backend failure → 503 JSON or redirect; never an implicit success
func (g *Guard) Require(policy Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !policy.Protects(c.Request.Method) {
			c.Next()
			return
		}

		identity := g.identity.Resolve(c)
		input := &domain.VerifyInput{
			PresentedKey:  ExtractKey(c),
			Action:        policy.Action,
			RequiredLevel: policy.Level,
			Actor:         identity.Actor(),
			Bypass:        policy.SuperuserBypass && identity.IsAuthenticated() && identity.Superuser,
			Target:        g.target(c, policy),
			ClientIP:      c.ClientIP(),
			UserAgent:     c.Request.UserAgent(),
			Metadata:      requestMetadata(c),
		}

		result, err := g.verifier.Verify(c.Request.Context(), input)
		if err != nil {
			g.logger.Error("authorization key verification failed",
				slog.String("action", policy.Action),
				slog.Any("error", err))
			g.unavailable(c, policy)
			c.Abort()
			return
		}

		if !result.OK {
			g.logger.Info("authorization key denied",
				slog.String("action", policy.Action),
				slog.String("reason", string(result.Reason)),
				slog.String("client_ip", input.ClientIP))
			g.deny(c, policy, result)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithVerifyResult(c.Request.Context(), result))
		c.Next()
	}
}

func (g *Guard) challenge(c *gin.Context, policy Policy) {
	c.Header("WWW-Authenticate", fmt.Sprintf("Key realm=%s, required_level=%s", g.realm, policy.Level))
}

func (g *Guard) deny(c *gin.Context, policy Policy, result *domain.VerifyResult) {
	g.challenge(c, policy)
	message := result.Message()

	if IsProgrammatic(c, policy) {
		c.JSON(http.StatusForbidden, dto.MapVerifyResultToDenialResponse(result))
		return
	}

	g.redirectWithFlash(c, message)
}

func (g *Guard) unavailable(c *gin.Context, policy Policy) {
	g.challenge(c, policy)

	if IsProgrammatic(c, policy) {
		c.JSON(http.StatusServiceUnavailable, dto.DenialResponse{
			OK:                false,
			Error:             "verification_unavailable",
			Message:           unavailableMessage,
			RequiredLevel:     int(policy.Level),
			RequiredLevelName: policy.Level.String(),
		})
		return
	}

	g.redirectWithFlash(c, unavailableMessage)
}

func (g *Guard) redirectWithFlash(c *gin.Context, message string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(FlashCookie, message, flashMaxAge, "/", "", false, true)
	c.Redirect(http.StatusSeeOther, g.redirectTarget(c))
}

// redirectTarget returns the Referer when it points back at this host, else the fallback.
func (g *Guard) redirectTarget(c *gin.Context) string {
	referer := c.GetHeader("Referer")
	if referer == "" {
		return g.fallbackRedirect
	}

	u, err := url.Parse(referer)
	if err != nil {
		return g.fallbackRedirect
	}

	switch {
	case u.Host == "" && u.Scheme == "" && strings.HasPrefix(u.Path, "/") && !strings.HasPrefix(u.Path, "//"):
		return u.RequestURI()
	case u.Host != "" && strings.EqualFold(u.Host, c.Request.Host):
		return u.RequestURI()
	default:
		return g.fallbackRedirect
	}
}

// IsProgrammatic reports whether the caller expects a JSON denial instead of a redirect.
func IsProgrammatic(c *gin.Context, policy Policy) bool {
	if policy.Return403 {
		return true
	}
	if strings.EqualFold(c.GetHeader("X-Requested-With"), "XMLHttpRequest") {
		return true
	}
	if c.GetHeader(ProgrammaticHeader) == "1" {
		return true
	}
	return strings.Contains(strings.ToLower(c.GetHeader("Accept")), "application/json")
}

// ExtractKey returns the presented key using a fixed precedence, first non-empty wins:
// body field, Authorization header (Key or Bearer scheme), X-Auth-Key header, query parameter.
func ExtractKey(c *gin.Context) string {
	if key := bodyKey(c); key != "" {
		return key
	}

	if parts := strings.Fields(c.GetHeader("Authorization")); len(parts) == 2 {
		scheme := strings.ToLower(parts[0])
		if scheme == "key" || scheme == "bearer" {
			return parts[1]
		}
	}

	if key := strings.TrimSpace(c.GetHeader(AuthKeyHeader)); key != "" {
		return key
	}

	return strings.TrimSpace(c.Query(AuthKeyField))
}

func bodyKey(c *gin.Context) string {
	switch c.ContentType() {
	case binding.MIMEPOSTForm, binding.MIMEMultipartPOSTForm:
		return strings.TrimSpace(c.PostForm(AuthKeyField))
	case binding.MIMEJSON:
		return strings.TrimSpace(bindKeyBody(c).AuthKey)
	default:
		return ""
	}
}

// bindKeyBody decodes the key fields of a JSON body. The raw body is cached by gin, so the
// protected handler can still bind it with ShouldBindBodyWith.
func bindKeyBody(c *gin.Context) dto.KeyBody {
	var body dto.KeyBody
	if c.Request.Body == nil || c.ContentType() != binding.MIMEJSON {
		return body
	}
	if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
		return dto.KeyBody{}
	}
	return body
}

func requestMetadata(c *gin.Context) map[string]any {
	meta := make(map[string]any)
	for k, v := range bindKeyBody(c).Metadata {
		if domain.IsReservedMetaKey(k) {
			continue
		}
		meta[k] = v
	}
	if id := requestid.Get(c); id != "" {
		meta[domain.MetaRequestID] = id
	}
	return meta
}
