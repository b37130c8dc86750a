package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/plantcare-go/plantcare/internal/api/middleware"
	v2 "github.com/plantcare-go/plantcare/internal/api/v2"
	"github.com/plantcare-go/plantcare/internal/buildinfo"
	"github.com/plantcare-go/plantcare/internal/conf"
	"github.com/plantcare-go/plantcare/internal/datastore"
	"github.com/plantcare-go/plantcare/internal/disease"
	"github.com/plantcare-go/plantcare/internal/inference"
	"github.com/plantcare-go/plantcare/internal/logger"
	"github.com/plantcare-go/plantcare/internal/observability"
	"github.com/plantcare-go/plantcare/internal/uploads"
)

// Server is the HTTP server of the plant-care service. It owns the Echo
// instance, the middleware stack and the v2 API controller.
type Server struct {
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	logger   logger.Logger

	store   *datastore.Store
	models  *inference.Models
	policy  *disease.Policy
	uploads *uploads.Store
	metrics *observability.Metrics

	apiController *v2.Controller

	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger replaces the server logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithDataStore sets the database the API serves.
func WithDataStore(store *datastore.Store) ServerOption {
	return func(s *Server) {
		s.store = store
	}
}

// WithModels sets the loaded inference models. Without them prediction
// endpoints answer 503.
func WithModels(m *inference.Models) ServerOption {
	return func(s *Server) {
		s.models = m
	}
}

// WithPolicy sets the disease decision policy.
func WithPolicy(p *disease.Policy) ServerOption {
	return func(s *Server) {
		s.policy = p
	}
}

// WithUploads sets the image store for disease checks.
func WithUploads(u *uploads.Store) ServerOption {
	return func(s *Server) {
		s.uploads = u
	}
}

// WithMetrics enables request metrics and the Prometheus endpoint.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a new HTTP server with the given settings and options.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:    config,
		settings:  settings,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = GetLogger()
	}

	switch {
	case s.store == nil:
		cancel()
		return nil, fmt.Errorf("datastore is required")
	case s.uploads == nil:
		cancel()
		return nil, fmt.Errorf("upload store is required")
	}
	if s.policy == nil {
		s.policy = disease.NewPolicy(s.store.Repos.DiseaseTypes, settings.Cache.DiseaseTypesTTL)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug
	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()

	if err := s.setupRoutes(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}

	s.logger.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.String("body_limit", config.BodyLimit),
		logger.Bool("metrics", config.MetricsEnabled && s.metrics != nil),
		logger.Bool("debug", config.Debug))

	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestID())
	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.logger, s.skipRequestLog))

	securityConfig := mw.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = s.config.AllowedOrigins

	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewGzip())
	s.echo.Use(mw.NewSecureHeaders(securityConfig))
}

// skipRequestLog keeps scrapes and probes out of the request log.
func (s *Server) skipRequestLog(c echo.Context) bool {
	path := c.Request().URL.Path
	return path == "/health" || (s.config.MetricsEnabled && path == s.config.MetricsPath)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() error {
	s.echo.GET("/health", s.healthCheck)

	if s.config.MetricsEnabled && s.metrics != nil {
		s.echo.GET(s.config.MetricsPath, echo.WrapHandler(s.metrics.Handler()))
	}

	opts := []v2.Option{v2.WithPinger(s.store)}
	if s.metrics != nil {
		opts = append(opts, v2.WithMetrics(s.metrics))
		if s.models != nil {
			s.models.SetRecorder(s.metrics.Inference)
		}
	}

	apiController, err := v2.New(s.echo, s.settings, s.store.Repos, s.models, s.policy, s.uploads, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize API v2: %w", err)
	}
	s.apiController = apiController

	s.logger.Info("Routes initialized", logger.String("api_version", "v2"))
	return nil
}

// healthCheck is the liveness probe. /api/v2/health reports dependencies.
func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)
	info := buildinfo.Current()

	return c.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"name":           s.settings.Main.Name,
		"version":        info.GetVersion(),
		"build_date":     info.GetBuildDate(),
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// Start begins serving HTTP requests in a background goroutine and returns
// immediately. Use Shutdown() to stop the server.
func (s *Server) Start() {
	go func() {
		if err := s.startBlocking(); err != nil {
			s.logger.Error("Server error", logger.Error(err))
		}
	}()
	s.logger.Info("HTTP server starting", logger.String("address", s.config.Address()))
}

// startBlocking serves until the server is shut down.
func (s *Server) startBlocking() error {
	err := s.echo.Start(s.config.Address())
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartWithGracefulShutdown starts the server and handles graceful shutdown on SIGINT/SIGTERM.
func (s *Server) StartWithGracefulShutdown() error {
	s.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		s.logger.Info("Shutdown signal received, initiating graceful shutdown")
	case <-s.ctx.Done():
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if s.apiController != nil {
		s.apiController.Shutdown()
	}

	if err := s.echo.Shutdown(ctx); err != nil {
		s.logger.Error("Error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.logger.Info("Server shutdown complete")
	return nil
}

// APIController returns the v2 API controller.
func (s *Server) APIController() *v2.Controller {
	return s.apiController
}

// Echo returns the underlying Echo instance.
// This is useful for testing or advanced configuration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Config returns the effective server configuration.
func (s *Server) Config() *Config {
	return s.config
}
