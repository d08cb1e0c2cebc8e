// Package logging provides structured logging for thermodial.
//
// It wraps a global zap logger with helpers for the events the dial and
// its backends produce. Logging is silent unless a level is given on the
// command line or through THERMODIAL_LOG_LEVEL.
//
// # Log Levels
//
//   - Debug: state pushes, raw websocket and MQTT payloads
//   - Info: connections, set-point and mode writes
//   - Warn: failed writes, reconnects
//   - Error: startup failures, lost backends
//
// # Output
//
// The interactive dial owns the terminal, so logs go to a file when one is
// configured (--log-file or THERMODIAL_LOG_FILE) and to stderr otherwise:
//
//	if err := logging.InitializeWithOptions(logging.Options{
//	    Level: "debug",
//	    File:  "/tmp/thermodial.log",
//	}); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// # Domain Helpers
//
//	logging.LogConnection(url, "authenticated")
//	logging.LogStatePush("hass", state)
//	logging.LogCommit(entityID, req, err)
//	logging.LogModeChange(entityID, "heat", err)
//
// All functions are safe for concurrent use.
package logging
