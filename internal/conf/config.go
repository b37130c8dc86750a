// Package conf loads and validates PlantCare settings with viper.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/plantcare-go/plantcare/internal/errors"
	"github.com/plantcare-go/plantcare/internal/logger"
	"github.com/plantcare-go/plantcare/internal/secrets"
)

//go:embed config.yaml
var configFiles embed.FS

// Settings contains all configuration options for the PlantCare service.
type Settings struct {
	Debug bool

	Main struct {
		Name string
	}

	WebServer WebServerSettings
	Database  DatabaseSettings
	Models    ModelSettings
	Uploads   UploadSettings
	Seed      SeedSettings
	Cache     CacheSettings
	Metrics   MetricsSettings
	Telemetry TelemetrySettings

	Logging logger.LoggingConfig
}

// WebServerSettings controls the HTTP listener.
type WebServerSettings struct {
	Host         string
	Port         string
	BodyLimit    string   // echo body limit syntax, e.g. "10M"
	CORSOrigins  []string // allowed origins
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Address returns host:port for the listener.
func (w WebServerSettings) Address() string {
	return w.Host + ":" + w.Port
}

// DatabaseSettings selects and configures the storage backend.
type DatabaseSettings struct {
	Type               string // sqlite or mysql
	TestMode           bool   // in-memory sqlite
	SlowQueryThreshold time.Duration
	SQLite             SQLiteSettings
	MySQL              MySQLSettings
}

// SQLiteSettings contains settings for the SQLite database.
type SQLiteSettings struct {
	Path string
}

// MySQLSettings contains settings for the MySQL database.
type MySQLSettings struct {
	Host     string
	Port     string
	Username string
	Password string // may reference ${ENV_VARS}
	// PasswordFile is read instead of Password when set, e.g. a Docker secret.
	PasswordFile string
	Database     string
}

// ModelSettings points at the model artifacts loaded at startup.
type ModelSettings struct {
	GrowthModelPath  string
	DiseaseModelPath string
	ReferenceCSV     string // historical dataset the feature schema is derived from
	TargetColumn     string // label column dropped before encoding
	Threads          int
	ImageSize        int
	UseXNNPACK       bool // XNNPACK delegate, falls back to CPU when unavailable
}

// UploadSettings configures where disease-check images are stored.
type UploadSettings struct {
	Dir string
}

// SeedSettings lists CSV sources loaded into an empty database.
type SeedSettings struct {
	DiseaseTypesCSV string
}

// CacheSettings configures in-process caches.
type CacheSettings struct {
	DiseaseTypesTTL time.Duration
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool
	Path    string
}

// TelemetrySettings configures Sentry error reporting.
type TelemetrySettings struct {
	Enabled bool
	DSN     string
	DSNFile string
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex

	// ConfigFile overrides the search path when set, usually from the --config flag.
	ConfigFile string
)

// Load reads the configuration file and environment variables into a new Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error resolving secrets: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error validating settings: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// resolveSecrets replaces credential settings with their file or environment values.
func resolveSecrets(settings *Settings) error {
	password, err := secrets.Resolve(settings.Database.MySQL.PasswordFile, settings.Database.MySQL.Password)
	if err != nil {
		return fmt.Errorf("database.mysql.password: %w", err)
	}
	settings.Database.MySQL.Password = password

	dsn, err := secrets.Resolve(settings.Telemetry.DSNFile, settings.Telemetry.DSN)
	if err != nil {
		return fmt.Errorf("telemetry.dsn: %w", err)
	}
	settings.Telemetry.DSN = dsn
	return nil
}

// initViper sets defaults, binds environment variables and reads the config file.
// A missing file is replaced with the embedded default.
func initViper() error {
	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return err
	}

	if ConfigFile != "" {
		viper.SetConfigFile(ConfigFile)
		if _, err := os.Stat(ConfigFile); os.IsNotExist(err) {
			return createDefaultConfig(ConfigFile)
		}
		return viper.ReadInConfig()
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	configPaths := GetDefaultConfigPaths()
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return createDefaultConfig(filepath.Join(configPaths[0], "config.yaml"))
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// GetDefaultConfigPaths returns the directories searched for config.yaml, in order.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "plantcare"))
	}
	return append(paths, "/etc/plantcare")
}

// createDefaultConfig writes the embedded default config to path and reads it.
func createDefaultConfig(path string) error {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", path))

	viper.SetConfigFile(path)
	return viper.ReadInConfig()
}

// GetSettings returns the most recently loaded settings, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

var (
	confLogger     logger.Logger
	confLoggerOnce sync.Once
)

// GetLogger returns the configuration module logger.
func GetLogger() logger.Logger {
	confLoggerOnce.Do(func() {
		confLogger = logger.Global().Module("conf")
	})
	return confLogger
}
