// Package api provides the HTTP server for the plant-care service. The JSON
// endpoints live in the v2 subpackage.
package api

import (
	"fmt"
	"time"

	"github.com/plantcare-go/plantcare/internal/conf"
	"github.com/plantcare-go/plantcare/internal/logger"
)

// GetLogger returns the server logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("server")
}

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultBodyLimit       = "10M"
	DefaultMetricsPath     = "/metrics"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host string // empty binds every interface
	Port string

	AllowedOrigins []string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// BodyLimit uses echo's size syntax and bounds image uploads.
	BodyLimit string

	MetricsEnabled bool
	MetricsPath    string

	Debug bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            "8080",
		AllowedOrigins:  []string{"*"},
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       DefaultBodyLimit,
		MetricsPath:     DefaultMetricsPath,
	}
}

// ConfigFromSettings creates a Config from the application settings. Unset
// values keep their defaults.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()
	web := settings.WebServer

	cfg.Host = web.Host
	if web.Port != "" {
		cfg.Port = web.Port
	}
	if len(web.CORSOrigins) > 0 {
		cfg.AllowedOrigins = web.CORSOrigins
	}
	if web.ReadTimeout > 0 {
		cfg.ReadTimeout = web.ReadTimeout
	}
	if web.WriteTimeout > 0 {
		cfg.WriteTimeout = web.WriteTimeout
	}
	if web.BodyLimit != "" {
		cfg.BodyLimit = web.BodyLimit
	}

	cfg.MetricsEnabled = settings.Metrics.Enabled
	if settings.Metrics.Path != "" {
		cfg.MetricsPath = settings.Metrics.Path
	}
	cfg.Debug = settings.Debug

	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.MetricsEnabled && (c.MetricsPath == "" || c.MetricsPath[0] != '/') {
		return fmt.Errorf("metrics path %q must start with '/'", c.MetricsPath)
	}
	return nil
}

// Address returns the full address string for the server to listen on.
func (c *Config) Address() string {
	if c.Host == "" {
		return ":" + c.Port
	}
	return c.Host + ":" + c.Port
}

// String returns a human-readable representation of the config.
func (c *Config) String() string {
	metrics := "disabled"
	if c.MetricsEnabled {
		metrics = c.MetricsPath
	}
	return fmt.Sprintf("Server Config: address=%s, body_limit=%s, metrics=%s, debug=%v",
		c.Address(), c.BodyLimit, metrics, c.Debug)
}
