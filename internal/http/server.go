// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authkeyHTTP "github.com/allisson/authkeys/internal/authkey/http"
	"github.com/allisson/authkeys/internal/config"
	"github.com/allisson/authkeys/internal/metrics"
)

// Server represents the HTTP server.
type Server struct {
	db     *sql.DB
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// NewServer creates a new HTTP server. SetupRouter must be called before Start.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: newHTTPServer(host, port, nil),
	}
}

// newHTTPServer applies the listener timeouts shared by the API and metrics servers.
func newHTTPServer(host string, port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// listen runs srv until Shutdown. ErrServerClosed is the normal way out.
func listen(srv *http.Server, logger *slog.Logger, name string) error {
	logger.Info("listening", slog.String("server", name), slog.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start %s server: %w", name, err)
	}
	return nil
}

// RouterDeps groups the handlers and middleware the router mounts.
type RouterDeps struct {
	KeyHandler       *authkeyHTTP.KeyHandler
	KeyUseHandler    *authkeyHTTP.KeyUseHandler
	AuthorizeHandler *authkeyHTTP.AuthorizeHandler
	IdentityResolver authkeyHTTP.IdentityResolver
	// AttemptLimiter throttles forward authorization per client IP. Nil disables throttling.
	AttemptLimiter  authkeyHTTP.AttemptLimiter
	MetricsProvider *metrics.Provider
}

// SetupRouter configures the Gin router with all routes and middleware.
func (s *Server) SetupRouter(cfg *config.Config, deps RouterDeps) {
	gin.SetMode(cfg.GetGinMode())

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if cfg.MetricsEnabled && deps.MetricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(deps.MetricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	v1.Use(authkeyHTTP.IdentityMiddleware(deps.IdentityResolver))

	// Key management and the ledger are superuser only
	keys := v1.Group("/authorization-keys")
	keys.Use(authkeyHTTP.RequireSuperuserMiddleware(s.logger))
	{
		keys.POST("", deps.KeyHandler.IssueHandler)
		keys.GET("", deps.KeyHandler.ListHandler)
		keys.GET("/:id", deps.KeyHandler.GetHandler)
		keys.DELETE("/:id", deps.KeyHandler.DeleteHandler)
		keys.POST("/:id/rotate", deps.KeyHandler.RotateHandler)
		keys.POST("/:id/revoke", deps.KeyHandler.RevokeHandler)
		keys.GET("/:id/uses", deps.KeyHandler.ListUsesHandler)
	}

	uses := v1.Group("/authorization-key-uses")
	uses.Use(authkeyHTTP.RequireSuperuserMiddleware(s.logger))
	{
		uses.GET("", deps.KeyUseHandler.ListHandler)
	}

	authorize := v1.Group("/authorize")
	if deps.AttemptLimiter != nil {
		authorize.Use(authkeyHTTP.AttemptRateLimitMiddleware(deps.AttemptLimiter, s.logger))
	}
	{
		authorize.POST("/:operation", deps.AuthorizeHandler.AuthorizeHandler)
	}

	s.router = router
	s.server.Handler = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start serves the API until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	if s.server.Handler == nil {
		s.server.Handler = s.router
	}
	return listen(s.server, s.logger, "api")
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down api server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports readiness, which requires a reachable database.
func (s *Server) readinessHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("readiness check failed", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": "ok"},
	})
}
