// Package http provides the HTTP server, its router and shared middleware.
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

	activationHTTP "github.com/SuYehTarn/jitr/internal/activation/http"
	"github.com/SuYehTarn/jitr/internal/config"
	"github.com/SuYehTarn/jitr/internal/metrics"
	registrationHTTP "github.com/SuYehTarn/jitr/internal/registration/http"
	verifierHTTP "github.com/SuYehTarn/jitr/internal/verifier/http"
)

// Server represents the HTTP server.
type Server struct {
	db       *sql.DB
	inMemory bool
	server   *http.Server
	router   *gin.Engine
	logger   *slog.Logger
}

// NewServer creates a new HTTP server. db may be nil when the memory driver is used.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
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

// UseMemoryStore reports the in-process store as ready instead of pinging a database.
func (s *Server) UseMemoryStore() {
	s.inMemory = true
}

// SetupRouter builds the router with all routes and middleware.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	verifierHandler *verifierHTTP.VerifierHandler,
	registrationHandler *registrationHTTP.RegistrationHandler,
	eventHandler *activationHTTP.EventHandler,
	metricsProvider *metrics.Provider,
) {
	gin.SetMode(cfg.GetGinMode())

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := adminCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(skipIntake(corsMiddleware))
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	verifiers := router.Group("/verifiers")
	{
		verifiers.GET("", verifierHandler.ListHandler)
		verifiers.POST("", verifierHandler.PutHandler)
		verifiers.GET("/:name", verifierHandler.GetHandler)
		verifiers.DELETE("/:name", verifierHandler.DeleteHandler)
	}

	router.POST("/caRegister", registrationHandler.RegisterHandler)
	router.GET("/registrations", registrationHandler.ListHandler)
	router.GET("/registrations/:caId", registrationHandler.GetHandler)

	events := router.Group("/events")
	if cfg.RateLimitEnabled {
		events.Use(IntakeRateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}
	events.POST("/certificate", eventHandler.CertificateHandler)

	s.router = router
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
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

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}
	ready := true

	switch {
	case s.inMemory:
		components["database"] = "memory"
	case s.db == nil:
		components["database"] = "error"
		ready = false
	default:
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Warn("database ping failed", slog.Any("error", err))
			components["database"] = "error"
			ready = false
		} else {
			components["database"] = "ok"
		}
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}
