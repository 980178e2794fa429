package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"seedpull/internal/config"
)

// logLevel is shared by every handler so a config reload can change it in place
var logLevel = new(slog.LevelVar)

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupLogging installs the default logger described by logConfig. The
// returned func releases the log file, if one was opened.
func setupLogging(logConfig config.LoggingConfig) (*slog.Logger, func(), error) {
	logLevel.Set(parseLevel(logConfig.Level))

	var out io.Writer = os.Stdout
	release := func() {}
	if logConfig.File != "" {
		if err := os.MkdirAll(filepath.Dir(logConfig.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(logConfig.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
		release = func() { f.Close() }
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if logConfig.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, release, nil
}
