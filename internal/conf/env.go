package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envBinding ties an environment variable to a viper key
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "PLANTCARE_DEBUG", validateEnvBool},
		{"webserver.host", "PLANTCARE_HOST", nil},
		{"webserver.port", "PLANTCARE_PORT", validateEnvPort},

		{"database.type", "PLANTCARE_DB_TYPE", validateEnvDatabaseType},
		{"database.testmode", "PLANTCARE_TEST_MODE", validateEnvBool},
		{"database.sqlite.path", "PLANTCARE_SQLITE_PATH", nil},
		{"database.mysql.host", "PLANTCARE_MYSQL_HOST", nil},
		{"database.mysql.port", "PLANTCARE_MYSQL_PORT", validateEnvPort},
		{"database.mysql.username", "PLANTCARE_MYSQL_USERNAME", nil},
		{"database.mysql.password", "PLANTCARE_MYSQL_PASSWORD", nil},
		{"database.mysql.passwordfile", "PLANTCARE_MYSQL_PASSWORD_FILE", nil},
		{"database.mysql.database", "PLANTCARE_MYSQL_DATABASE", nil},

		{"models.growthmodelpath", "PLANTCARE_GROWTH_MODEL", nil},
		{"models.diseasemodelpath", "PLANTCARE_DISEASE_MODEL", nil},
		{"models.referencecsv", "PLANTCARE_REFERENCE_CSV", nil},
		{"models.threads", "PLANTCARE_MODEL_THREADS", validateEnvThreads},

		{"uploads.dir", "PLANTCARE_UPLOAD_FOLDER", nil},
		{"cache.diseasetypesttl", "PLANTCARE_CACHE_TTL", validateEnvDuration},

		{"telemetry.enabled", "PLANTCARE_TELEMETRY", validateEnvBool},
		{"telemetry.dsn", "PLANTCARE_SENTRY_DSN", nil},
		{"telemetry.dsnfile", "PLANTCARE_SENTRY_DSN_FILE", nil},
		{"logging.default_level", "PLANTCARE_LOG_LEVEL", validateEnvLogLevel},
	}
}

// bindEnvVars binds every known environment variable and validates values that are set.
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}
		if binding.Validate == nil {
			continue
		}
		if value := os.Getenv(binding.EnvVar); value != "" {
			if err := binding.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, value, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are skipped and existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("error loading %s: %w", path, err)
		}
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port number between 1 and 65535")
	}
	return nil
}

func validateEnvThreads(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fmt.Errorf("must be a non-negative integer")
	}
	return nil
}

func validateEnvDuration(value string) error {
	if _, err := time.ParseDuration(value); err != nil {
		return fmt.Errorf("must be a duration such as 5m: %w", err)
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	switch value {
	case DatabaseSQLite, DatabaseMySQL:
		return nil
	default:
		return fmt.Errorf("must be %q or %q", DatabaseSQLite, DatabaseMySQL)
	}
}

func validateEnvLogLevel(value string) error {
	switch value {
	case "trace", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("unknown log level")
	}
}
