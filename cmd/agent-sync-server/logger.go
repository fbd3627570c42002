package main

import (
	"log/slog"
	"os"
	"strings"
)

const (
	LOG_LEVEL_ERROR   = "ERROR"
	LOG_LEVEL_WARNING = "WARNING"
	LOG_LEVEL_INFO    = "INFO"
	LOG_LEVEL_DEBUG   = "DEBUG"
)

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func parseLevel(logLevel string) slog.Level {
	switch strings.ToUpper(logLevel) {
	case LOG_LEVEL_ERROR:
		return slog.LevelError
	case LOG_LEVEL_WARNING:
		return slog.LevelWarn
	case LOG_LEVEL_DEBUG:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func initLogger(logLevel string) {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(logLevel),
	})
	slog.SetDefault(slog.New(handler).With("service", "agent-sync"))
}
