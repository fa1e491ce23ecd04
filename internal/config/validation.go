package config

import (
	"fmt"
	"strings"
)

// OutputFormat is how a command renders its result
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

// ValidateOutput checks if the given string is a supported OutputFormat.
// An empty string defaults to text.
func ValidateOutput(format string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(format)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	case OutputYAML:
		return OutputYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q: must be 'text', 'json' or 'yaml'", format)
	}
}

// ValidateLogLevel normalizes a log level name
func ValidateLogLevel(level string) (string, error) {
	switch l := strings.ToLower(level); l {
	case "":
		return "warn", nil
	case "debug", "info", "warn", "error":
		return l, nil
	case "warning":
		return "warn", nil
	default:
		return "", fmt.Errorf("unsupported log level %q: must be 'debug', 'info', 'warn' or 'error'", level)
	}
}

// ValidateLogFormat normalizes a log encoder name
func ValidateLogFormat(format string) (string, error) {
	switch f := strings.ToLower(format); f {
	case "", "console":
		return "console", nil
	case "json":
		return "json", nil
	default:
		return "", fmt.Errorf("unsupported log format %q: must be 'console' or 'json'", format)
	}
}
