// Package secrets resolves credentials from mounted secret files or
// environment references so they never have to live in config.yaml.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/plantcare-go/plantcare/internal/logger"
)

// maxFileSize caps secret file reads; credentials are small.
const maxFileSize = 64 * 1024

// Expand replaces ${VAR} and ${VAR:-fallback} references with environment
// values. A reference without fallback to an unset variable is an error.
func Expand(s string) (string, error) {
	if s == "" {
		return "", nil
	}

	var missing []string
	expanded := os.Expand(s, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if v := os.Getenv(name); v != "" {
			return v
		}
		if !hasFallback {
			missing = append(missing, name)
		}
		return fallback
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("missing environment variable(s): %s", strings.Join(missing, ", "))
	}
	return expanded, nil
}

// ReadFile reads a secret from a file such as /run/secrets/mysql_password.
// Trailing newlines are trimmed. Files readable by group or others are
// accepted with a warning.
func ReadFile(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("secret file path is empty")
	}
	clean := filepath.Clean(path)

	info, err := os.Stat(clean)
	switch {
	case os.IsNotExist(err):
		return "", fmt.Errorf("secret file not found: %s", clean)
	case err != nil:
		return "", fmt.Errorf("failed to stat secret file %s: %w", clean, err)
	case !info.Mode().IsRegular():
		return "", fmt.Errorf("secret path is not a regular file: %s", clean)
	case info.Size() > maxFileSize:
		return "", fmt.Errorf("secret file too large (max %d bytes): %s", maxFileSize, clean)
	}

	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Global().Module("secrets").Warn("secret file is readable by group or others",
			logger.String("path", clean),
			logger.String("mode", fmt.Sprintf("%04o", perm)))
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", clean, err)
	}
	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", fmt.Errorf("secret file is empty: %s", clean)
	}
	return secret, nil
}

// Resolve returns the secret from filePath when set, otherwise value with
// environment references expanded.
func Resolve(filePath, value string) (string, error) {
	if filePath != "" {
		secret, err := ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read secret from file: %w", err)
		}
		return secret, nil
	}
	return Expand(value)
}
