package logging

import (
	"log/slog"
)

// SetupServer installs file-only logging for the MCP stdio server.
// stdout carries JSON-RPC exclusively, and clients often surface stderr
// as errors, so nothing is written to either.
func SetupServer(level string, debug bool) (func(), error) {
	cfg := DefaultConfig()
	cfg.Level = level
	if debug {
		cfg.Level = "debug"
	}
	cfg.WriteToStderr = false

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	slog.Info("server_logging_initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level))

	return cleanup, nil
}
