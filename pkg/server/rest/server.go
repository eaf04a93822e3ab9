// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objpoller.
//
// go-objpoller is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jeremyhahn/go-objpoller/pkg/adapters"
	"github.com/jeremyhahn/go-objpoller/pkg/server/middleware"
)

// ErrWriterRequired is returned when the server is built without a writer.
var ErrWriterRequired = errors.New("rest: writer is required")

// Server represents the REST push API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	handler    *Handler
	config     *ServerConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	// Addr is the listen address (default: ":8080")
	Addr string

	// EnableLogging enables request logging middleware
	EnableLogging bool

	// EnableRequestID enables request ID middleware
	EnableRequestID bool

	// EnableRateLimit enables rate limiting middleware
	EnableRateLimit bool

	// RateLimitConfig is the rate limiting configuration
	RateLimitConfig *middleware.RateLimitConfig

	// MaxRequestSize is the maximum request body size in bytes (default: 10MB)
	MaxRequestSize int64

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Mode sets the Gin mode: "debug", "release", or "test" (default: "release")
	Mode string

	// Logger is the pluggable logger adapter (default: DefaultLogger)
	Logger adapters.Logger

	// Gatherer exposes GET /metrics when set.
	Gatherer prometheus.Gatherer

	// Watermarks exposes GET /watermarks when set.
	Watermarks WatermarkSource
}

// DefaultServerConfig returns a ServerConfig with sensible defaults
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Addr:            ":8080",
		EnableLogging:   true,
		EnableRequestID: true,
		RateLimitConfig: middleware.DefaultRateLimitConfig(),
		MaxRequestSize:  10 * 1024 * 1024,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		Mode:            gin.ReleaseMode,
		Logger:          adapters.NewDefaultLogger(),
	}
}

// NewServer creates a new REST API server
func NewServer(writer Writer, config *ServerConfig) (*Server, error) {
	if writer == nil {
		return nil, ErrWriterRequired
	}
	if config == nil {
		config = DefaultServerConfig()
	}
	if config.Logger == nil {
		config.Logger = adapters.NewDefaultLogger()
	}
	if config.Mode == "" {
		config.Mode = gin.ReleaseMode
	}

	gin.SetMode(config.Mode)
	router := gin.New()
	router.Use(gin.Recovery())

	// Middleware order: request ID → rate limit → logging → size limit
	if config.EnableRequestID {
		router.Use(middleware.RequestIDMiddleware())
	}
	if config.EnableRateLimit {
		router.Use(middleware.RateLimitMiddleware(config.RateLimitConfig, config.Logger))
	}
	if config.EnableLogging {
		router.Use(LoggingMiddleware(config.Logger))
	}
	if config.MaxRequestSize > 0 {
		router.Use(RequestSizeLimitMiddleware(config.MaxRequestSize))
	}

	handler := NewHandler(writer, config.Logger, config.Watermarks)
	SetupRoutes(router, handler, config.Gatherer)

	return &Server{
		router:  router,
		handler: handler,
		config:  config,
		httpServer: &http.Server{
			Addr:         config.Addr,
			Handler:      router,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}, nil
}

// Start starts the REST API server and blocks until it stops.
func (s *Server) Start() error {
	s.config.Logger.Info(context.TODO(), "Starting REST API server",
		adapters.Field{Key: "address", Value: s.httpServer.Addr},
	)
	return s.httpServer.ListenAndServe()
}

// Serve runs the server until ctx is done, then shuts it down gracefully
// within shutdownTimeout.
func (s *Server) Serve(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.config.Logger.Info(ctx, "Shutting down REST API server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the underlying Gin router (useful for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Handler returns the HTTP handler
func (s *Server) Handler() *Handler {
	return s.handler
}

// Address returns the server address
func (s *Server) Address() string {
	return s.httpServer.Addr
}
