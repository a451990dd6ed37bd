// Package logging builds the zerolog loggers used by the
// command-line tools.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Field names shared by every log line.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
)

// Config contains logging configuration.
type Config struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	Output  string `mapstructure:"output"`
	NoColor bool   `mapstructure:"no_color"`
}

// ApplyDefaults fills in empty fields.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
}

// Validate checks the level and format names.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil || c.Level == "" {
		return fmt.Errorf("log.level: unknown level %q", c.Level)
	}
	switch c.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json (got: %s)", c.Format)
	}
	switch c.Output {
	case "stdout", "stderr":
	default:
		return fmt.Errorf("log.output must be stdout or stderr (got: %s)", c.Output)
	}
	return nil
}

// New creates a logger tagged with a component name.
func New(cfg Config, component string) (zerolog.Logger, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return zerolog.Nop(), err
	}
	return NewWriter(cfg, component, outputWriter(cfg.Output)), nil
}

// NewWriter is like New, but it writes to w and skips
// validation.
func NewWriter(cfg Config, component string, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if strings.ToLower(cfg.Format) == "console" {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.TimeOnly,
			NoColor:    cfg.NoColor,
		}
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str(FieldComponent, component).
		Logger()
}

// WithRun tags a logger with a run id.
func WithRun(l zerolog.Logger, runID string) zerolog.Logger {
	return l.With().Str(FieldRunID, runID).Logger()
}

func outputWriter(output string) io.Writer {
	if output == "stdout" {
		return os.Stdout
	}
	return os.Stderr
}
