package conf

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	DatabaseSQLite = "sqlite"
	DatabaseMySQL  = "mysql"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct and reports every problem at once.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateDatabaseSettings(&settings.Database); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateModelSettings(&settings.Models); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if strings.TrimSpace(settings.Uploads.Dir) == "" {
		ve.Errors = append(ve.Errors, "uploads.dir must not be empty")
	}
	if settings.Metrics.Enabled && !strings.HasPrefix(settings.Metrics.Path, "/") {
		ve.Errors = append(ve.Errors, "metrics.path must start with '/'")
	}
	if settings.Telemetry.Enabled && settings.Telemetry.DSN == "" {
		ve.Errors = append(ve.Errors, "telemetry.dsn is required when telemetry is enabled")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateWebServerSettings(s *WebServerSettings) error {
	port, err := strconv.Atoi(s.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("webserver.port %q is not a valid port", s.Port)
	}
	return nil
}

func validateDatabaseSettings(s *DatabaseSettings) error {
	switch s.Type {
	case DatabaseSQLite:
		if !s.TestMode && s.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required")
		}
	case DatabaseMySQL:
		if s.TestMode {
			return fmt.Errorf("database.testmode is only supported with sqlite")
		}
		if s.MySQL.Host == "" || s.MySQL.Database == "" || s.MySQL.Username == "" {
			return fmt.Errorf("database.mysql requires host, username and database")
		}
	default:
		return fmt.Errorf("database.type %q is not supported", s.Type)
	}
	return nil
}

func validateModelSettings(s *ModelSettings) error {
	if s.Threads < 0 {
		return fmt.Errorf("models.threads must not be negative")
	}
	if s.ImageSize <= 0 {
		return fmt.Errorf("models.imagesize must be positive")
	}
	if s.ReferenceCSV != "" && s.TargetColumn == "" {
		return fmt.Errorf("models.targetcolumn is required with models.referencecsv")
	}
	return nil
}
