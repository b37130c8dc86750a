package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetViper isolates tests that use the global viper instance.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	ConfigFile = ""
	t.Cleanup(func() {
		viper.Reset()
		ConfigFile = ""
	})
}

func TestLoadCreatesDefaultConfig(t *testing.T) {
	resetViper(t)

	ConfigFile = filepath.Join(t.TempDir(), "plantcare", "config.yaml")

	settings, err := Load()
	require.NoError(t, err)

	_, statErr := os.Stat(ConfigFile)
	require.NoError(t, statErr, "default config should be written")

	assert.Equal(t, "PlantCare", settings.Main.Name)
	assert.Equal(t, "8080", settings.WebServer.Port)
	assert.Equal(t, DatabaseSQLite, settings.Database.Type)
	assert.Equal(t, "plant_care.db", settings.Database.SQLite.Path)
	assert.Equal(t, "uploads", settings.Uploads.Dir)
	assert.Equal(t, 224, settings.Models.ImageSize)
	assert.Equal(t, "Growth_Milestone", settings.Models.TargetColumn)
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
	assert.Same(t, settings, GetSettings())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	resetViper(t)

	ConfigFile = filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("PLANTCARE_PORT", "9090")
	t.Setenv("PLANTCARE_TEST_MODE", "true")
	t.Setenv("PLANTCARE_UPLOAD_FOLDER", "/var/lib/plantcare/uploads")

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", settings.WebServer.Port)
	assert.True(t, settings.Database.TestMode)
	assert.Equal(t, "/var/lib/plantcare/uploads", settings.Uploads.Dir)
}

func TestLoadRejectsInvalidEnvironment(t *testing.T) {
	resetViper(t)

	ConfigFile = filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("PLANTCARE_DB_TYPE", "oracle")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLANTCARE_DB_TYPE")
}

func TestValidateSettingsAggregatesErrors(t *testing.T) {
	t.Parallel()

	s := &Settings{}
	s.WebServer.Port = "0"
	s.Database.Type = "postgres"
	s.Models.ImageSize = 0
	s.Telemetry.Enabled = true

	err := ValidateSettings(s)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 5)
}

func TestValidateDatabaseSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		db      DatabaseSettings
		wantErr bool
	}{
		{"sqlite file", DatabaseSettings{Type: DatabaseSQLite, SQLite: SQLiteSettings{Path: "plant_care.db"}}, false},
		{"sqlite in memory", DatabaseSettings{Type: DatabaseSQLite, TestMode: true}, false},
		{"sqlite missing path", DatabaseSettings{Type: DatabaseSQLite}, true},
		{"mysql complete", DatabaseSettings{Type: DatabaseMySQL, MySQL: MySQLSettings{Host: "db", Username: "u", Database: "plants"}}, false},
		{"mysql test mode", DatabaseSettings{Type: DatabaseMySQL, TestMode: true}, true},
		{"unknown", DatabaseSettings{Type: "mongo"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateDatabaseSettings(&tt.db)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PLANTCARE_DOTENV_PROBE=loaded\n"), 0o600))
	t.Setenv("PLANTCARE_DOTENV_PROBE", "")
	require.NoError(t, os.Unsetenv("PLANTCARE_DOTENV_PROBE"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("PLANTCARE_DOTENV_PROBE"))
}

func TestRedactedYAML(t *testing.T) {
	t.Parallel()

	s := &Settings{}
	s.Database.MySQL.Password = "hunter2"
	s.Telemetry.DSN = "https://key@sentry.example/1"

	out, err := s.RedactedYAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hunter2")
	assert.NotContains(t, string(out), "sentry.example")
	assert.Equal(t, "hunter2", s.Database.MySQL.Password, "original settings untouched")
}

func TestLoadResolvesSecretFiles(t *testing.T) {
	resetViper(t)

	dir := t.TempDir()
	ConfigFile = filepath.Join(dir, "config.yaml")
	passwordFile := filepath.Join(dir, "mysql_password")
	require.NoError(t, os.WriteFile(passwordFile, []byte("from-secret\n"), 0o600))

	t.Setenv("PLANTCARE_MYSQL_PASSWORD_FILE", passwordFile)
	t.Setenv("PLANTCARE_SENTRY_DSN", "${TEST_SENTRY_DSN:-}")

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-secret", settings.Database.MySQL.Password)
	assert.Empty(t, settings.Telemetry.DSN)
}

func TestLoadFailsOnMissingSecretFile(t *testing.T) {
	resetViper(t)

	dir := t.TempDir()
	ConfigFile = filepath.Join(dir, "config.yaml")
	t.Setenv("PLANTCARE_MYSQL_PASSWORD_FILE", filepath.Join(dir, "missing"))

	_, err := Load()
	assert.ErrorContains(t, err, "database.mysql.password")
}
