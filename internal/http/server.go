// Package http provides the HTTP server, routing, and shared middleware.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	gateHTTP "github.com/allisson/docgate/internal/gate/http"
	licenseHTTP "github.com/allisson/docgate/internal/license/http"
	"github.com/allisson/docgate/internal/metrics"
)

// RouterConfig holds the handlers and middleware settings for route setup.
type RouterConfig struct {
	LicenseHandler *licenseHTTP.LicenseHandler
	GateHandler    *gateHTTP.GateHandler

	// CORS is disabled by default; the API is designed for server-to-server
	// callers.
	CORSEnabled      bool
	CORSAllowOrigins string

	// Transport-level token bucket on the unauthenticated decision endpoints.
	// The domain limiter still applies underneath; this only sheds floods.
	RateLimitRPS   float64
	RateLimitBurst int

	// MeterProvider enables per-request HTTP metrics when set.
	MeterProvider    metric.MeterProvider
	MetricsNamespace string
}

// Server represents the HTTP server.
type Server struct {
	db     *sql.DB
	router *gin.Engine
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a new HTTP server. Routes are registered separately via
// SetupRouter so tests can assemble partial routers.
func NewServer(db *sql.DB, host string, port int, logger *slog.Logger) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter builds the gin engine and registers all routes.
func (s *Server) SetupRouter(cfg RouterConfig) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if cfg.MeterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(cfg.MeterProvider, cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")

	// Decision endpoints are reachable by proxied end-user traffic and get a
	// transport-level limiter in front of the domain one.
	decisions := v1.Group("")
	if cfg.RateLimitRPS > 0 {
		decisions.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst, s.logger))
	}
	decisions.POST("/documents/:id/password", cfg.GateHandler.VerifyPasswordHandler)
	decisions.POST("/share-links/resolve", cfg.GateHandler.ResolveShareLinkHandler)

	v1.GET("/license", cfg.LicenseHandler.StatusHandler)
	v1.PUT("/license", cfg.LicenseHandler.ActivateHandler)

	v1.POST("/share-links", cfg.GateHandler.IssueShareLinkHandler)
	v1.DELETE("/share-links/:secret", cfg.GateHandler.RevokeShareLinkHandler)
	v1.GET("/documents/:id/share-links", cfg.GateHandler.ListShareLinksHandler)

	s.router = router
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can serve traffic, checking
// each backing component.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}
	ready := true

	if s.db == nil {
		components["database"] = "error"
		ready = false
	} else if err := s.db.PingContext(c.Request.Context()); err != nil {
		s.logger.Warn("readiness database ping failed", slog.Any("error", err))
		components["database"] = "error"
		ready = false
	} else {
		components["database"] = "ok"
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}

// Start starts the HTTP server. SetupRouter must have been called first.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
