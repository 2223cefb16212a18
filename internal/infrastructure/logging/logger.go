package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kestrelworks/spatial-core/internal/infrastructure/config"
)

// Logger is the structured logger used across Spatial Core: slog with the
// service name and version stamped on every entry. Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of config.yaml. Format
// "text" is for development; anything else gets JSON. Output "stderr"
// redirects; anything else goes to stdout.
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		output = os.Stderr
	}
	return &Logger{Logger: slog.New(newHandler(cfg, version, output))}
}

// newHandler assembles the slog handler for New; split out so tests can
// point it at a buffer.
func newHandler(cfg config.LoggingConfig, version string, output io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	return handler.WithAttrs([]slog.Attr{
		slog.String("service", "spatialcore"),
		slog.String("version", version),
	})
}

// parseLevel maps a config level string onto slog. Unrecognised values
// fall back to info rather than failing startup.
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

// With returns a child logger carrying extra default attributes, typically
// a component tag:
//
//	bridge.SetLogger(log.With("component", "tracking"))
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the bootstrap logger used before config.yaml has been read:
// JSON to stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
