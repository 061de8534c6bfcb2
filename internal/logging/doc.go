// Package logging provides structured logging for pinpane binaries.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used by the verification daemon and the client commands. It provides
// both general logging functions and specialized functions for connection and
// verification logging.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (message payload sizes, resync traffic)
//   - Info: Normal operations (connections, verification outcomes)
//   - Warn: Non-fatal issues (connection drops, rejected upgrades)
//   - Error: Fatal issues (startup failures, critical errors)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Client connected",
//	    zap.String("remote_addr", "192.168.1.100"),
//	    zap.String("user", "alice"),
//	)
//
// # Specialized Logging
//
// Connection Logging:
//
//	logging.LogConnection(remoteAddr, "connection_accepted")
//	logging.LogConnection(remoteAddr, "websocket_upgraded")
//	logging.LogConnection(remoteAddr, "websocket_closed")
//
// Verification Logging:
//
//	logging.LogVerifyAttempt(remoteAddr, user, "denied", 6, 2)
//
// Submitted codes are never written to the log stream; only their length is
// recorded.
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// CLI commands that should stay silent by default pass an empty level;
// output is then only enabled when PINPANE_LOG_LEVEL is set.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging
