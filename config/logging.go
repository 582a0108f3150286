package config

import (
	"fmt"
	"strings"
)

// LoggingConfig selects the logger implementation and its level.
type LoggingConfig struct {
	// Backend is "zerolog" or "logrus".
	Backend string `json:"backend"`
	// Level is one of debug, info, warn, error.
	Level string `json:"level"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "zerolog"
	}
	if c.Level == "" {
		c.Level = "info"
	}
	c.Backend = strings.ToLower(c.Backend)
	c.Level = strings.ToLower(c.Level)
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	if c.Backend != "zerolog" && c.Backend != "logrus" {
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	switch c.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("unknown level %s", c.Level)
	}
}
