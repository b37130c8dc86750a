package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/plantcare-go/plantcare/internal/logger"
)

func TestSlogLoggerLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewSlogLogger(&buf, logger.LogLevelInfo, time.UTC)

	log.Debug("hidden")
	log.Info("visible", logger.String("plant", "Fern"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "plant=Fern")
}

func TestModuleScopingAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewSlogLogger(&buf, logger.LogLevelDebug, time.UTC).
		Module("api").
		Module("disease").
		With(logger.Int("plant_id", 7))

	log.Debug("decision", logger.Float64("confidence", 0.912345))

	out := buf.String()
	assert.Contains(t, out, "module=api.disease")
	assert.Contains(t, out, "plant_id=7")
	assert.Contains(t, out, "confidence=0.912")
}

func TestTraceLevelRendering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewSlogLogger(&buf, logger.LogLevelTrace, time.UTC)
	log.Trace("sql query")

	assert.Contains(t, buf.String(), "level=TRACE")
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewSlogLogger(&buf, logger.LogLevelInfo, time.UTC)
	ctx := logger.WithTraceID(context.Background(), "req-42")

	log.WithContext(ctx).Info("handled")

	assert.Contains(t, buf.String(), "trace_id=req-42")
}

func TestCentralLoggerFileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"datastore": "warn"},
	})
	require.NoError(t, err)

	cl.Module("api").Info("request", logger.Int("status", 201))
	cl.Module("datastore").Info("suppressed")
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "request", record["msg"])
	assert.Equal(t, "api", record["module"])
	assert.InDelta(t, 201, record["status"], 0)
}

func TestCentralLoggerRejectsBadTimezone(t *testing.T) {
	t.Parallel()

	_, err := logger.NewCentralLogger(&logger.LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)
}

func TestGormAdapterLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := logger.NewGormLoggerAdapter(logger.NewSlogLogger(&buf, logger.LogLevelDebug, time.UTC), 100*time.Millisecond)
	ctx := context.Background()

	adapter.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 1", 1 }, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String(), "record-not-found stays at trace level")

	adapter.Trace(ctx, time.Now(), func() (string, int64) { return "INSERT", 0 }, errors.New("UNIQUE constraint failed"))
	assert.Contains(t, buf.String(), "query error")

	buf.Reset()
	adapter.Trace(ctx, time.Now().Add(-time.Second), func() (string, int64) { return "SELECT *", 10 }, nil)
	assert.Contains(t, buf.String(), "slow query")
}
