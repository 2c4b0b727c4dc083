// Package logger builds the process-wide slog logger from configuration.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the log level, encoding, and destination.
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// NewLogger builds a slog logger for cfg, writing to output. A nil output
// falls back to the configured destination. Unknown levels and formats
// degrade to info and text rather than erroring; logging setup must never
// take the service down.
func NewLogger(cfg Config, output io.Writer) *slog.Logger {
	if output == nil {
		output = defaultWriter(cfg.Output)
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(output, opts))
	}
	return slog.New(slog.NewTextHandler(output, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultWriter(output string) io.Writer {
	switch output {
	case "stderr":
		return os.Stderr
	case "file":
		f, err := os.OpenFile("review-relay.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return os.Stdout
		}
		return f
	default:
		return os.Stdout
	}
}
