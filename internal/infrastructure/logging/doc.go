// Package logging provides structured logging for the Febos bridge.
//
// It wraps log/slog so every component logs with the same handler,
// level filter and default attributes (service, version).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Component("refresh").Warn("unmapped unit", "code", "R8660")
//
// Never log cloud credentials or session tokens.
package logging
