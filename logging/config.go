package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/giygas/pronto-utils/config"
)

// Options controls where log records go and at which level
type Options struct {
	Env      config.Environment
	Level    string
	Verbose  bool
	FilePath string    // JSON log file, empty disables file logging
	Console  io.Writer // defaults to os.Stdout
}

// parseLogLevel maps a LOG_LEVEL string to a slog level, defaulting to info
func parseLogLevel(level string) slog.Level {
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

// GetConsoleLogLevel returns the console level for an environment.
// An explicit level wins except in test, where only verbose raises it to info.
func GetConsoleLogLevel(env config.Environment, logLevel string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}

	if logLevel != "" {
		return parseLogLevel(logLevel)
	}

	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// GetFileLogLevel returns the level for the JSON file handler
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

// SetupLogger builds a logger writing text to the console and, when configured, JSON to a file.
// The returned file must be closed by the caller; it is nil without file logging.
func SetupLogger(opts Options) (*slog.Logger, *os.File, error) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	consoleHandler := slog.NewTextHandler(console, &slog.HandlerOptions{
		Level: GetConsoleLogLevel(opts.Env, opts.Level, opts.Verbose),
	})

	if opts.FilePath == "" {
		return slog.New(consoleHandler), nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0750); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", opts.FilePath, err)
	}

	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: GetFileLogLevel(),
	})

	return slog.New(&multiHandler{
		handlers: []slog.Handler{consoleHandler, fileHandler},
	}), file, nil
}

// multiHandler fans a record out to every handler that accepts its level
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}
