// Package logging builds the JSON-lines slog logger used by the server.
//
// Logs go to stderr because stdout carries the MCP stdio protocol:
//
//	{"ts":"2026-01-15T10:30:00Z","level":"INFO","msg":"server started","component":"main"}
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Config configures the logger.
type Config struct {
	// Output is the writer for log output (default: os.Stderr)
	Output io.Writer

	// Level is the minimum log level (default: LevelInfo)
	Level slog.Level

	// Debug enables debug level logging (overrides Level)
	Debug bool
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Output: os.Stderr,
		Level:  slog.LevelInfo,
	}
}

// New creates a JSON-lines logger with the time key renamed to "ts".
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	level := cfg.Level
	if cfg.Debug {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				a.Key = "ts"
			}
			return a
		},
	})
	return slog.New(handler)
}

// Component returns a child logger tagged with the component name.
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", name)
}

// StartupInfo holds what is logged once at startup.
type StartupInfo struct {
	Version        string
	BuildMode      string
	ConfigPath     string
	DatabasePath   string
	SchemaVersion  string
	CacheBackend   string
	OnlineProvider string
	Aliases        int
	Guides         int
}

// LogStartup logs server startup information.
func LogStartup(logger *slog.Logger, info StartupInfo) {
	logger.Info("server started",
		"version", info.Version,
		"build_mode", info.BuildMode,
		"config_path", info.ConfigPath,
		"database_path", info.DatabasePath,
		"schema_version", info.SchemaVersion,
		"cache_backend", info.CacheBackend,
		"online_provider", info.OnlineProvider,
		"aliases", info.Aliases,
		"guides", info.Guides,
		"pid", os.Getpid(),
	)
}

// LogShutdown logs server shutdown.
func LogShutdown(logger *slog.Logger, reason string) {
	logger.Info("server shutting down", "reason", reason)
}
