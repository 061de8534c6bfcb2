// Package server implements the pinpane verification daemon.
//
// This package provides the WebSocket server side of the pinpane verify
// protocol. Clients connect, submit user/code pairs as JSON text frames,
// and the daemon answers each attempt with a verdict. A per-connection
// attempt budget locks out brute-force loops while letting a human retype
// a fat-fingered code.
//
// # Code Registry
//
// Accepted codes live in an in-memory registry populated from static
// configuration or a YAML codes file:
//
//	users:
//	  alice: "123456"
//	  bob: "654321"
//
// When no users are configured the daemon generates a demo user with a
// random code and prints it at startup. Code comparison is constant-time
// over digests, and submitted codes are never logged, only their lengths.
//
// # Usage Example
//
//	// Create daemon configuration
//	config := &server.Config{
//	    Host:     "",    // Listen on all interfaces
//	    Port:     7460,
//	    Announce: true,  // Advertise via mDNS
//	    LogLevel: "info",
//	}
//
//	// Create and start daemon
//	srv, err := server.New(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Start blocks until shutdown signal or error
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Attempt Budget
//
// Each connection starts with a fixed number of attempts (3 by default):
//   - A matching code answers "ok" and restores the budget
//   - A mismatch answers "denied" and burns one attempt
//   - A spent budget answers "locked" for the rest of the connection
//
// Reconnecting resets the budget, so the lockout throttles rather than
// bans; pair it with network-level controls for hostile environments.
//
// # Graceful Shutdown
//
// The daemon handles SIGINT and SIGTERM signals for graceful shutdown:
//  1. Withdraw the mDNS advertisement
//  2. Stop accepting new connections
//  3. Send close frames on existing WebSocket connections
//  4. Wait for session goroutines to finish
//
// # Thread Safety
//
// The daemon is fully concurrent and handles multiple client connections
// simultaneously. Each connection runs in its own goroutine.
package server
