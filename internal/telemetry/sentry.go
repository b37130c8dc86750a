// Package telemetry initializes opt-in Sentry error reporting.
package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/plantcare-go/plantcare/internal/buildinfo"
	"github.com/plantcare-go/plantcare/internal/conf"
	"github.com/plantcare-go/plantcare/internal/errors"
	"github.com/plantcare-go/plantcare/internal/logger"
)

// DefaultFlushTimeout bounds how long Flush waits for queued events.
const DefaultFlushTimeout = 2 * time.Second

var (
	serviceLogger     logger.Logger
	serviceLoggerOnce sync.Once
)

// GetLogger returns the telemetry module logger.
func GetLogger() logger.Logger {
	serviceLoggerOnce.Do(func() {
		serviceLogger = logger.Global().Module("telemetry")
	})
	return serviceLogger
}

// InitSentry initializes the Sentry SDK and installs the error reporter.
// Reporting is opt-in: nothing happens unless telemetry is enabled.
func InitSentry(settings *conf.Settings) error {
	if !settings.Telemetry.Enabled {
		GetLogger().Info("telemetry is disabled (opt-in required)")
		errors.SetTelemetryReporter(nil)
		return nil
	}
	if settings.Telemetry.DSN == "" {
		return errors.Newf("telemetry is enabled but no DSN is configured").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Telemetry.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      environment(settings),
		ServerName:       "",
		Release:          buildinfo.Current().Release(),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("service", settings.Main.Name)
	})
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))

	GetLogger().Info("telemetry initialized",
		logger.String("release", buildinfo.Current().Release()),
		logger.String("environment", environment(settings)))
	return nil
}

// Flush waits for buffered events to be delivered.
func Flush(timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultFlushTimeout
	}
	return sentry.Flush(timeout)
}

func environment(settings *conf.Settings) string {
	if settings.Debug {
		return "development"
	}
	return "production"
}

// applyPrivacyFilters strips host and user identifying data from an event.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Request = nil

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	return event
}
