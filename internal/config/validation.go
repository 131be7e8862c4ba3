package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Is lets errors.Is match ErrInvalidConfig.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Fields returns the names of the offending fields.
func (e ValidationErrors) Fields() []string {
	out := make([]string, 0, len(e))
	for _, err := range e {
		out = append(out, err.Field)
	}
	return out
}

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidateConfig performs comprehensive validation of the configuration.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateLayout(&c.Layout)...)
	errs = append(errs, validateRepeat(&c.Repeat)...)
	errs = append(errs, validateMapping(&c.Mapping)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateServer(&c.Server)...)
	errs = append(errs, validateTracing(&c.Tracing)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateLayout(l *LayoutConfig) ValidationErrors {
	var errs ValidationErrors

	if l.DotSize <= 0 {
		errs = append(errs, ValidationError{
			Field:   "layout.dot_size",
			Message: fmt.Sprintf("dot size must be positive, got %g", l.DotSize),
		})
	}
	if l.Spacing < 0 {
		errs = append(errs, ValidationError{
			Field:   "layout.spacing",
			Message: fmt.Sprintf("spacing cannot be negative, got %g", l.Spacing),
		})
	}

	return errs
}

func validateRepeat(r *RepeatConfig) ValidationErrors {
	var errs ValidationErrors

	if r.InitialDelayMs < 1 {
		errs = append(errs, ValidationError{
			Field:   "repeat.initial_delay_ms",
			Message: "initial delay must be at least 1ms",
		})
	}
	if r.IntervalMs < 1 {
		errs = append(errs, ValidationError{
			Field:   "repeat.interval_ms",
			Message: "interval must be at least 1ms",
		})
	}

	return errs
}

func validateMapping(m *MappingConfig) ValidationErrors {
	var errs ValidationErrors

	if m.Watch && m.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "mapping.watch",
			Message: "watching requires a mapping path",
		})
	}
	if m.DebounceMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "mapping.debounce_ms",
			Message: "debounce cannot be negative",
		})
	}

	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: fmt.Sprintf("file path is required when output is '%s'", l.Output),
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr, file, both)", l.Output),
		})
	}

	if l.MaxSizeMB < 0 || l.MaxBackups < 0 || l.MaxAgeDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.rotation",
			Message: "rotation limits cannot be negative",
		})
	}

	return errs
}

func validateTracing(t *TracingConfig) ValidationErrors {
	var errs ValidationErrors

	switch t.Output {
	case "stdout", "stderr":
	case "file":
		if t.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "tracing.file_path",
				Message: "file path is required when output is 'file'",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "tracing.output",
			Message: fmt.Sprintf("invalid trace output: %s (valid: stdout, stderr, file)", t.Output),
		})
	}
	if t.SampleRatio < 0 || t.SampleRatio > 1 {
		errs = append(errs, ValidationError{
			Field:   "tracing.sample_ratio",
			Message: fmt.Sprintf("sample ratio must be between 0 and 1, got %g", t.SampleRatio),
		})
	}

	return errs
}

func validateServer(s *ServerConfig) ValidationErrors {
	var errs ValidationErrors

	if _, _, err := net.SplitHostPort(s.Addr); err != nil {
		errs = append(errs, ValidationError{
			Field:   "server.addr",
			Message: fmt.Sprintf("invalid listen address %q: %v", s.Addr, err),
		})
	}
	if s.ReadTimeoutSec < 0 || s.WriteTimeoutSec < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.timeouts",
			Message: "timeouts cannot be negative",
		})
	}
	if s.MaxBodyBytes < 1 {
		errs = append(errs, ValidationError{
			Field:   "server.max_body_bytes",
			Message: "max body size must be positive",
		})
	}

	return errs
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
