// Package http provides the HTTP API for buildd.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/paceworks/buildd/internal/build"
	"github.com/paceworks/buildd/internal/pipeline"
	"github.com/paceworks/buildd/internal/registry"
)

// Server provides HTTP endpoints for buildd.
type Server struct {
	echo     *echo.Echo
	executor *pipeline.Executor
	store    registry.Store
	logger   *zap.Logger
	config   *Config
	gatherer prometheus.Gatherer
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(executor *pipeline.Executor, store registry.Store, logger *zap.Logger, cfg *Config, gatherer prometheus.Gatherer) (*Server, error) {
	if executor == nil {
		return nil, fmt.Errorf("executor cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8844,
		}
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		executor: executor,
		store:    store,
		logger:   logger,
		config:   cfg,
		gatherer: gatherer,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/builds", s.handleStartBuild)
	v1.GET("/builds", s.handleListBuilds)
	v1.GET("/builds/:id", s.handleGetBuild)
	v1.POST("/chat", s.handleChat)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// BuildRequest is the request body for POST /api/v1/builds.
type BuildRequest struct {
	ProjectName string   `json:"project_name"`
	Description string   `json:"description"`
	TechStack   []string `json:"tech_stack,omitempty"`
	Features    []string `json:"features,omitempty"`
}

// BuildListResponse is the response body for GET /api/v1/builds.
type BuildListResponse struct {
	Builds []*build.Build `json:"builds"`
}

// handleStartBuild validates the request and launches a new build, returning
// the initial snapshot without waiting for the pipeline.
func (s *Server) handleStartBuild(c echo.Context) error {
	var req BuildRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid build request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	b, err := s.executor.StartBuild(build.Config{
		ProjectName: req.ProjectName,
		Description: req.Description,
		TechStack:   req.TechStack,
		Features:    req.Features,
	})
	if err != nil {
		if errors.Is(err, build.ErrProjectNameRequired) || errors.Is(err, build.ErrDescriptionRequired) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		s.logger.Error("failed to start build", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to start build")
	}

	return c.JSON(http.StatusCreated, b)
}

// handleGetBuild returns the current snapshot of one build.
func (s *Server) handleGetBuild(c echo.Context) error {
	b, err := s.store.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, build.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "build not found")
		}
		s.logger.Error("failed to get build", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get build")
	}
	return c.JSON(http.StatusOK, b)
}

// handleListBuilds returns snapshots of all builds.
func (s *Server) handleListBuilds(c echo.Context) error {
	return c.JSON(http.StatusOK, BuildListResponse{Builds: s.store.List()})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
