package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/heera-08/voice-ai/internal/config"
	"github.com/heera-08/voice-ai/internal/handler"
	"github.com/heera-08/voice-ai/pkg/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Server represents the call coordinator server.
type Server struct {
	config         *config.Config
	router         *mux.Router
	handlerManager *handler.HandlerManager

	// ready is closed once the listener is bound, so the startup dial never
	// races a half-started webhook server.
	ready chan struct{}
}

// NewServer creates a new call coordinator server.
func NewServer(cfg *config.Config) (*Server, error) {
	if _, err := logger.Init(os.Getenv("LOG_ENV")); err != nil {
		logger.Base().Error("Failed to initialize zap logger, falling back to std log")
	}

	router := mux.NewRouter()

	handlerManager, err := handler.NewHandlerManager(cfg)
	if err != nil {
		return nil, err
	}
	handlerManager.SetupAllRoutes(router)

	return &Server{
		config:         cfg,
		router:         router,
		handlerManager: handlerManager,
		ready:          make(chan struct{}),
	}, nil
}

// Start binds the listener, signals readiness and serves until failure.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.config.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Base().Info("Starting server", zap.String("addr", addr))
	close(s.ready)
	return server.Serve(listener)
}

// Ready returns a channel closed once the webhook server is reachable.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// dialOnStart waits for the webhook server to be reachable and places the
// first call to the configured default destination.
func (s *Server) dialOnStart(ctx context.Context) {
	<-s.Ready()

	dialCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	requestID, err := s.handlerManager.GetDialer().Dial(dialCtx, s.config.TargetPhoneNumber, s.config.FromNumber())
	if err != nil {
		logger.Base().Error("Startup call failed", zap.Error(err))
		return
	}
	logger.Base().Info("Startup call placed",
		zap.String("to", s.config.TargetPhoneNumber),
		zap.String("request_uuid", requestID))
}

func main() {
	// Load .env file for local development if it exists. This will not
	// override environment variables set by the deployment.
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: .env file not found or skipped (expected in production): %v", err)
	}

	cfg := config.Load()

	// Fail fast before the webhook server starts or any call is placed.
	if err := cfg.Validate(); err != nil {
		logger.Base().Error("Configuration incomplete", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	server, err := NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	logger.Base().Info("Call coordinator initialized",
		zap.String("port", cfg.Port),
		zap.String("provider", string(cfg.Provider)),
		zap.String("instance_id", cfg.InstanceID))

	ctx := context.Background()
	server.handlerManager.StartBackground(ctx)

	if cfg.DialOnStart && cfg.TargetPhoneNumber != "" {
		go server.dialOnStart(ctx)
	}

	if err := server.Start(); err != nil {
		logger.Base().Error("Server failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}
