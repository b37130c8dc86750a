// Package api implements the v2 JSON API: users, plants, growth prediction,
// disease detection and plant care records.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/crypto/bcrypt"

	"github.com/plantcare-go/plantcare/internal/buildinfo"
	"github.com/plantcare-go/plantcare/internal/conf"
	"github.com/plantcare-go/plantcare/internal/datastore/repository"
	"github.com/plantcare-go/plantcare/internal/disease"
	"github.com/plantcare-go/plantcare/internal/inference"
	"github.com/plantcare-go/plantcare/internal/logger"
	"github.com/plantcare-go/plantcare/internal/observability"
	"github.com/plantcare-go/plantcare/internal/uploads"
)

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings
	Repos    *repository.Repositories
	Models   *inference.Models
	Policy   *disease.Policy
	Uploads  *uploads.Store

	pinger     Pinger
	metrics    *observability.Metrics
	logger     logger.Logger
	startTime  time.Time
	bcryptCost int
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithMetrics enables request and decision metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithPinger sets the database health probe used by /health.
func WithPinger(p Pinger) Option {
	return func(c *Controller) {
		c.pinger = p
	}
}

// WithLogger replaces the module logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBcryptCost sets the password hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(c *Controller) {
		c.bcryptCost = cost
	}
}

var (
	apiLogger     logger.Logger
	apiLoggerOnce sync.Once
)

// GetLogger returns the API module logger.
func GetLogger() logger.Logger {
	apiLoggerOnce.Do(func() {
		apiLogger = logger.Global().Module("api")
	})
	return apiLogger
}

// New creates the controller and registers every route under /api/v2.
// models may be nil, in which case prediction endpoints answer 503.
func New(e *echo.Echo, settings *conf.Settings, repos *repository.Repositories,
	models *inference.Models, policy *disease.Policy, files *uploads.Store, opts ...Option) (*Controller, error) {
	switch {
	case e == nil:
		return nil, fmt.Errorf("echo instance is required")
	case settings == nil:
		return nil, fmt.Errorf("settings are required")
	case repos == nil:
		return nil, fmt.Errorf("repositories are required")
	case policy == nil:
		return nil, fmt.Errorf("disease policy is required")
	case files == nil:
		return nil, fmt.Errorf("upload store is required")
	}

	c := &Controller{
		Echo:       e,
		Settings:   settings,
		Repos:      repos,
		Models:     models,
		Policy:     policy,
		Uploads:    files,
		logger:     GetLogger(),
		startTime:  time.Now(),
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(c)
	}

	if e.Validator == nil {
		e.Validator = NewRequestValidator()
	}

	c.Group = e.Group("/api/v2")
	c.Group.Use(c.LoggingMiddleware())
	if c.metrics != nil {
		c.Group.Use(c.MetricsMiddleware())
	}
	c.initRoutes()

	return c, nil
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	routeInitializers := []struct {
		name string
		fn   func()
	}{
		{"user routes", c.initUserRoutes},
		{"plant routes", c.initPlantRoutes},
		{"growth routes", c.initGrowthRoutes},
		{"disease routes", c.initDiseaseRoutes},
		{"care routes", c.initCareRoutes},
		{"system routes", c.initSystemRoutes},
	}

	for _, initializer := range routeInitializers {
		initializer.fn()
		c.logger.Debug("routes initialized", logger.String("group", initializer.name))
	}
}

// HealthCheck handles GET /api/v2/health
func (c *Controller) HealthCheck(ctx echo.Context) error {
	info := buildinfo.Current()
	uptime := time.Since(c.startTime)

	response := map[string]any{
		"status":         "healthy",
		"version":        info.GetVersion(),
		"build_date":     info.GetBuildDate(),
		"timestamp":      time.Now().Format(time.RFC3339),
		"uptime":         uptime.Round(time.Second).String(),
		"uptime_seconds": uptime.Seconds(),
	}

	dbStatus := "connected"
	if c.pinger != nil {
		if err := c.pinger.Ping(ctx.Request().Context()); err != nil {
			dbStatus = "disconnected"
			response["database_error"] = err.Error()
			response["status"] = "degraded"
		}
	}
	response["database_status"] = dbStatus

	response["models"] = map[string]any{
		"growth":         c.Models.CheckGrowth() == nil,
		"disease":        c.Models.CheckDisease() == nil,
		"schema_columns": c.schemaColumns(),
	}

	system := map[string]any{}
	if vm, err := mem.VirtualMemory(); err == nil {
		system["memory"] = map[string]any{
			"used_percent": vm.UsedPercent,
			"total_mb":     vm.Total / 1024 / 1024,
			"used_mb":      vm.Used / 1024 / 1024,
		}
	}
	if usage, err := disk.Usage(c.Uploads.Dir()); err == nil {
		system["upload_disk"] = map[string]any{
			"total_gb":     float64(usage.Total) / 1024 / 1024 / 1024,
			"free_gb":      float64(usage.Free) / 1024 / 1024 / 1024,
			"used_percent": usage.UsedPercent,
		}
	}
	response["system"] = system

	return ctx.JSON(http.StatusOK, response)
}

func (c *Controller) schemaColumns() int {
	if c.Models == nil {
		return 0
	}
	return c.Models.Schema.Len()
}

// Shutdown releases controller resources.
func (c *Controller) Shutdown() {
	c.Policy.InvalidateTypes()
	c.logger.Debug("API controller shutting down")
}
