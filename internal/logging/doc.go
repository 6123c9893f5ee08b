// Package logging provides structured logging for the lightify client.
//
// This package wraps a global zap logger with convenience functions. Logging
// is silent unless a level is passed to Initialize or LIGHTIFY_LOG_LEVEL is
// set, so commands that print results to stdout stay clean.
//
// # Log Levels
//
//   - Debug: frame hex dumps, unsolicited frames, MQTT traffic
//   - Info: connections, relay and server lifecycle
//   - Warn: malformed frames and payloads, request timeouts
//   - Error: transport failures, startup failures
//
// # Component Loggers
//
// Long-lived components take a *zap.Logger and default to a named child of
// the global logger:
//
//	log := logging.Named("bridge")
//	log.Info("Connected", zap.String("addr", addr))
//
// # Protocol Logging
//
//	logging.LogFrame(log, "sent", payload)
//	logging.LogConnection(addr, "connected")
//	logging.LogRawBytes("unsolicited frame", payload)
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once Initialize has
// returned.
package logging
