// Package logging builds the zap loggers used by the bidir binaries.
//
// The planner library takes a *zap.Logger and never constructs one itself;
// this package turns the logging section of the configuration into a
// logger, and provides an observed logger for tests.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// NewDefaultConfig returns info-level console logging.
func NewDefaultConfig() Config {
	return Config{Level: "info", Format: "console"}
}

// Validate checks level and format.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	switch strings.ToLower(c.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q, must be json or console", c.Format)
	}
	return nil
}

// New creates a logger writing to w. A nil w writes to stderr, keeping
// stdout free for plans.
func New(cfg Config, w io.Writer) (*zap.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	level, _ := zapcore.ParseLevel(cfg.Level)
	if w == nil {
		w = os.Stderr
	}
	core := zapcore.NewCore(newEncoder(strings.ToLower(cfg.Format)), zapcore.AddSync(w), level)
	return zap.New(core), nil
}

// newEncoder creates JSON or console encoder.
func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}
