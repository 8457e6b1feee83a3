// Package logging provides structured logging for castcore.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used by the cast client and the castctl command. Logging is silent
// unless a level is given explicitly or through CAST_LOG_LEVEL, so library
// users get no output they did not ask for.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (every cast message, hex dumps, heartbeats)
//   - Info: Normal operations (connections, launches, state changes)
//   - Warn: Non-fatal issues (dropped frames, dropped events, unknown namespaces)
//   - Error: Fatal issues (connection failures)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Connected to receiver",
//	    zap.String("device", "Living Room"),
//	    zap.String("addr", "192.168.1.40:8009"),
//	)
//
// # Specialized Logging
//
// Message logging (debug level only):
//
//	logging.LogFrame("sent", ns, "sender-0", "receiver-0", payload, nil)
//	logging.LogFrame("received", ns, "receiver-0", "sender-0", "", authBytes)
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging
