package http

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	authkeyHTTP "github.com/allisson/authkeys/internal/authkey/http"
)

// createCORSMiddleware returns nil unless CORS is enabled with at least one explicit origin.
//
// The management API sits behind an authenticating proxy and is normally reached same-origin.
// Enable CORS only for staff consoles served from another origin. Credentials are allowed, so
// a wildcard origin is never accepted.
func createCORSMiddleware(enabled bool, allowOrigins string, logger *slog.Logger) gin.HandlerFunc {
	if !enabled {
		return nil
	}

	origins := parseOrigins(allowOrigins)
	if slices.Contains(origins, "*") {
		logger.Warn("CORS wildcard origin ignored; list staff console origins explicitly")
		origins = slices.DeleteFunc(origins, func(origin string) bool { return origin == "*" })
	}
	if len(origins) == 0 {
		logger.Warn("CORS enabled but no usable origins configured; CORS not applied")
		return nil
	}

	logger.Info("CORS enabled", slog.Any("origins", origins))

	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{
			"Authorization",
			"Content-Type",
			"X-Requested-With",
			authkeyHTTP.AuthKeyHeader,
			authkeyHTTP.ProgrammaticHeader,
		},
		ExposeHeaders:    []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// parseOrigins splits a comma-separated origin list, dropping blanks.
func parseOrigins(raw string) []string {
	var origins []string
	for part := range strings.SplitSeq(raw, ",") {
		if origin := strings.TrimSpace(part); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
