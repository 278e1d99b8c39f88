package app

import (
	"strings"

	"github.com/charlesng35/screwcat/pkg/logger"
)

// ConfigureLogging initialises the global logger, defaulting to info level and JSON output.
func ConfigureLogging(level, format string) error {
	level = strings.TrimSpace(level)
	if level == "" {
		level = "info"
	}
	return logger.Configure(logger.Options{Level: level, Format: format})
}
