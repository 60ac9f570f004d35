// Package logging wraps log/slog behind package-level helpers shared by every pronto-utils package.
package logging

import (
	"log/slog"
	"os"
	"sync"
)

type LoggingService struct {
	Logger *slog.Logger
	file   *os.File
}

var (
	DefaultLoggingService *LoggingService
	mu                    sync.RWMutex
)

// InitLogger initializes the global logger instance
func InitLogger(opts Options) error {
	logger, file, err := SetupLogger(opts)
	if err != nil {
		return err
	}

	mu.Lock()
	previous := DefaultLoggingService
	DefaultLoggingService = &LoggingService{Logger: logger, file: file}
	mu.Unlock()

	if previous != nil && previous.file != nil {
		_ = previous.file.Close()
	}

	slog.SetDefault(logger)
	return nil
}

// Close releases the log file opened by InitLogger, if any
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if DefaultLoggingService == nil || DefaultLoggingService.file == nil {
		return nil
	}
	err := DefaultLoggingService.file.Close()
	DefaultLoggingService.file = nil
	return err
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if DefaultLoggingService == nil {
		return nil
	}
	return DefaultLoggingService.Logger
}

// fallback is used before InitLogger has been called
func fallback(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	if logger := current(); logger != nil {
		logger.Info(msg, args...)
		return
	}
	fallback(slog.LevelInfo).Info(msg, args...)
}

func Error(msg string, args ...any) {
	if logger := current(); logger != nil {
		logger.Error(msg, args...)
		return
	}
	fallback(slog.LevelError).Error(msg, args...)
}

func Warn(msg string, args ...any) {
	if logger := current(); logger != nil {
		logger.Warn(msg, args...)
		return
	}
	fallback(slog.LevelWarn).Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	if logger := current(); logger != nil {
		logger.Debug(msg, args...)
		return
	}
	fallback(slog.LevelDebug).Debug(msg, args...)
}
