// Package logging provides structured logging for the media coordinator.
//
// It wraps log/slog so every component emits the same shape of record:
// JSON in production, text when a human is watching, and always tagged
// with the service name and build version.
//
// Configuration comes from the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	dispatchLog := logger.Component("dispatch")
//	dispatchLog.Info("command handled", "action", "PLAY")
//
// Never log device credentials, MQTT passwords or InfluxDB tokens.
package logging
