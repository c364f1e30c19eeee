package config

import "fmt"

// Supported log levels
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

var validLogLevels = map[string]bool{
	LogLevelDebug: true,
	LogLevelInfo:  true,
	LogLevelWarn:  true,
	LogLevelError: true,
}

var validLogFormats = map[string]bool{
	LogFormatText: true,
	LogFormatJSON: true,
}

// validateLogging ensures level and format name a supported handler setup
func validateLogging(level, format string) error {
	if !validLogLevels[level] {
		return fmt.Errorf("unsupported log level '%s': supported levels are debug, info, warn, error", level)
	}
	if !validLogFormats[format] {
		return fmt.Errorf("unsupported log format '%s': supported formats are text, json", format)
	}
	return nil
}
