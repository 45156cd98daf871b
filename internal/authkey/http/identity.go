package http

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/authkeys/internal/errors"
	"github.com/allisson/authkeys/internal/httputil"
)

// Identity is the acting caller as asserted by the authenticating proxy in front of the service.
type Identity struct {
	Subject   string
	Superuser bool
}

// IsAuthenticated reports whether a subject was resolved.
func (i Identity) IsAuthenticated() bool {
	return i.Subject != ""
}

// Actor returns the subject for ledger attribution, or nil for anonymous callers.
func (i Identity) Actor() *string {
	if !i.IsAuthenticated() {
		return nil
	}
	subject := i.Subject
	return &subject
}

// IdentityResolver determines who is calling. The service never authenticates users itself.
type IdentityResolver interface {
	Resolve(c *gin.Context) Identity
}

// HeaderIdentityResolver reads the identity from trusted headers set by a reverse proxy.
type HeaderIdentityResolver struct {
	IdentityHeader  string
	SuperuserHeader string
}

// NewHeaderIdentityResolver creates a resolver for the given header names.
func NewHeaderIdentityResolver(identityHeader, superuserHeader string) *HeaderIdentityResolver {
	return &HeaderIdentityResolver{
		IdentityHeader:  identityHeader,
		SuperuserHeader: superuserHeader,
	}
}

// Resolve returns the identity carried by the request headers. The superuser flag is ignored
// for anonymous callers.
func (r *HeaderIdentityResolver) Resolve(c *gin.Context) Identity {
	subject := strings.TrimSpace(c.GetHeader(r.IdentityHeader))
	if subject == "" {
		return Identity{}
	}

	superuser, err := strconv.ParseBool(strings.TrimSpace(c.GetHeader(r.SuperuserHeader)))
	if err != nil {
		superuser = false
	}

	return Identity{Subject: subject, Superuser: superuser}
}

// IdentityMiddleware resolves the caller identity and stores it in the request context.
func IdentityMiddleware(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := resolver.Resolve(c)
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), identity))
		c.Next()
	}
}

// RequireSuperuserMiddleware restricts the operator API to superusers.
// MUST be used after IdentityMiddleware.
//
// Error handling:
//   - No identity → 401 Unauthorized
//   - Identity without superuser flag → 403 Forbidden
func RequireSuperuserMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c.Request.Context())
		if !ok || !identity.IsAuthenticated() {
			logger.Debug("operator access denied: no identity")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		if !identity.Superuser {
			logger.Debug("operator access denied: not a superuser",
				slog.String("subject", identity.Subject))
			httputil.HandleErrorGin(c, apperrors.ErrForbidden, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}
