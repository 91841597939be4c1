package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aescanero/irrigation/internal/application/controller"
	"github.com/aescanero/irrigation/pkg/adapters/metrics/prometheus"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server represents the HTTP API server
type Server struct {
	router     *gin.Engine
	server     *http.Server
	controller *controller.Controller
	metrics    *prometheus.Collector
	staleAfter time.Duration
	logger     *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Addr       string
	Controller *controller.Controller
	Metrics    *prometheus.Collector
	StaleAfter time.Duration
	Logger     *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(requestLogger(logger))
	if cfg.Metrics != nil {
		router.Use(requestMetrics(cfg.Metrics))
	}
	router.Use(corsMiddleware())

	s := &Server{
		router:     router,
		controller: cfg.Controller,
		metrics:    cfg.Metrics,
		staleAfter: cfg.StaleAfter,
		logger:     logger,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/", s.handleRoot)
	s.router.GET("/health", s.handleHealth)

	// Metrics
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := s.router.Group("/api")
	{
		api.GET("/sensors", s.handleGetSensors)
		api.POST("/esp32", s.handleSensorReport)
		api.POST("/manual", s.handleManualUpdate)
		api.GET("/pump", s.handleGetPump)
		api.POST("/pump", s.handleSetPump)
		api.POST("/safety", s.handleSetSafety)
	}
}

// SetupWebSocket adds the live state stream to the server
func (s *Server) SetupWebSocket(handler interface{}) {
	if wsHandler, ok := handler.(interface {
		HandleStateStream(*gin.Context)
	}); ok {
		s.router.GET("/api/ws", wsHandler.HandleStateStream)
	}
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
