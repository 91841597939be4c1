package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/irrigation/internal/application/controller"
	"github.com/aescanero/irrigation/internal/config"
	"github.com/aescanero/irrigation/pkg/adapters/events/memory"
	"github.com/aescanero/irrigation/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/irrigation/pkg/api/grpc"
	"github.com/aescanero/irrigation/pkg/api/http"
	"github.com/aescanero/irrigation/pkg/api/websocket"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting irrigation controller",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	// Initialize adapters
	eventBus := memory.NewInMemoryEventBus(logger)
	metricsCollector := prometheus.NewCollector()

	// Initialize application components
	ctrl := controller.NewController(
		eventBus,
		metricsCollector,
		controller.NewValidator(),
		logger,
		controller.Options{MoistureThreshold: cfg.Safety.MoistureThreshold},
	)

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Addr:       cfg.GetHTTPAddr(),
		Controller: ctrl,
		Metrics:    metricsCollector,
		StaleAfter: cfg.Safety.SensorStaleAfter,
		Logger:     logger,
	})

	wsHandler := websocket.NewHandler(eventBus, ctrl, cfg.Stream.BufferSize, logger)
	httpServer.SetupWebSocket(wsHandler)

	var grpcServer *grpc.Server
	if cfg.GRPCPort != 0 {
		grpcServer, err = grpc.NewServer(&grpc.Config{
			Addr:   cfg.GetGRPCAddr(),
			Logger: logger,
		})
		if err != nil {
			logger.Fatal("failed to create gRPC server", zap.Error(err))
		}
	}

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	if grpcServer != nil {
		go func() {
			if err := grpcServer.Start(); err != nil {
				logger.Fatal("gRPC server failed", zap.Error(err))
			}
		}()
	}

	logger.Info("irrigation controller started",
		zap.String("http_addr", cfg.GetHTTPAddr()),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Float64("moisture_threshold", cfg.Safety.MoistureThreshold))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if grpcServer != nil {
		if err := grpcServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("gRPC server shutdown error", zap.Error(err))
		}
	}

	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("irrigation controller shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
