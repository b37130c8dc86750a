package conf

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const redacted = "[redacted]"

// RedactedYAML renders the effective settings as YAML with credentials masked.
func (s *Settings) RedactedYAML() ([]byte, error) {
	cp := *s
	if cp.Database.MySQL.Password != "" {
		cp.Database.MySQL.Password = redacted
	}
	if cp.Telemetry.DSN != "" {
		cp.Telemetry.DSN = redacted
	}

	out, err := yaml.Marshal(&cp)
	if err != nil {
		return nil, fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return out, nil
}
