// Package server exposes the plant-care gateway over HTTP with gin.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/leofalp/plantcare/core/client"
	"github.com/leofalp/plantcare/core/prompt"
	"github.com/leofalp/plantcare/providers/careguide"
	"github.com/leofalp/plantcare/providers/memory"
)

// Config holds the HTTP settings.
type Config struct {
	Address         string
	ShutdownTimeout time.Duration
	ContextWindow   int    // 0 means prompt.DefaultWindow, negative sends no history
	SystemPrompt    string // defaults to prompt.ChatSystemPrompt
}

// Server serves the gateway API.
type Server struct {
	cfg     Config
	engine  *gin.Engine
	client  *client.Client
	store   memory.Store
	guides  *careguide.Fetcher
	builder prompt.Builder
	logger  *slog.Logger
}

// New wires the routes. guides may be nil, which disables reference_url and
// the careguide endpoint.
func New(cfg Config, c *client.Client, store memory.Store, guides *careguide.Fetcher, logger *slog.Logger) *Server {
	if cfg.Address == "" {
		cfg.Address = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.ContextWindow == 0 {
		cfg.ContextWindow = prompt.DefaultWindow
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = prompt.ChatSystemPrompt
	}
	if logger == nil {
		logger = slog.Default()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		cfg:     cfg,
		engine:  engine,
		client:  c,
		store:   store,
		guides:  guides,
		builder: prompt.NewBuilder(cfg.SystemPrompt).WithWindow(cfg.ContextWindow),
		logger:  logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/v1")
	api.GET("/providers", s.listProviders)
	api.POST("/chat", s.chat)
	api.POST("/chat/stream", s.chatStream)
	api.POST("/recognize", s.recognize)
	api.GET("/careguide", s.careGuide)
	api.GET("/conversations/:id", s.conversation)
	api.DELETE("/conversations/:id", s.clearConversation)
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("address", s.cfg.Address))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.LogAttrs(c.Request.Context(), slog.LevelInfo, "http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}
