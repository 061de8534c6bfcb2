// Pinpane-verifyd is the pinpane code verification daemon.
//
// It accepts WebSocket connections from pinpane clients, checks submitted
// one-time codes against its code registry and budgets failed attempts per
// connection. The daemon can announce itself over mDNS so clients find it
// without configuration.
//
// Usage:
//
//	pinpane-verifyd serve [flags]
//
// See 'pinpane-verifyd serve --help' for available options.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tversen/pinpane/internal/server"
	"github.com/tversen/pinpane/internal/verify"
	"github.com/tversen/pinpane/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pinpane-verifyd",
	Short: "Pinpane Verification Daemon",
	Long: `The verification daemon for pinpane clients.

Accepts WebSocket connections, verifies submitted one-time codes against
a code registry and locks a connection after too many failed attempts.
A successful verification restores the connection's attempt budget.

Note: for interactive code entry, use the separate 'pinpane' client.`,
	Version: version.Version,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command and flags
var (
	host         string
	port         int
	codesFile    string
	codeEntries  []string
	attemptLimit int
	announce     bool
	instance     string
	logLevel     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the verification daemon",
	Long: `Start the daemon and accept client connections.

Codes come from repeated --code flags and/or a YAML codes file. When
neither is given the daemon generates a demo user and prints the code at
startup.

Each connection gets a fixed budget of failed attempts; once spent, the
connection is locked until the client reconnects.`,
	Example: `  # Serve with a generated demo code
  pinpane-verifyd serve

  # Static codes on the standard port, announced via mDNS
  pinpane-verifyd serve --code alice=123456 --code bob=654321 --announce

  # Codes from a YAML file with a stricter budget
  pinpane-verifyd serve --codes-file ./codes.yaml --attempt-limit 2

  # Custom bind address and verbose logging
  pinpane-verifyd serve --host 0.0.0.0 --port 7460 --log-level debug`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&host, "host", "", "Bind address (empty = all interfaces)")
	serveCmd.Flags().IntVar(&port, "port", verify.DefaultPort, "Listen port")
	serveCmd.Flags().StringVar(&codesFile, "codes-file", "", "YAML file with user codes")
	serveCmd.Flags().StringArrayVar(&codeEntries, "code", nil, "Static user=code entry (repeatable)")
	serveCmd.Flags().IntVar(&attemptLimit, "attempt-limit", server.DefaultAttemptLimit, "Failed attempts before a connection locks")
	serveCmd.Flags().BoolVar(&announce, "announce", false, "Announce the daemon via mDNS")
	serveCmd.Flags().StringVar(&instance, "instance", "", "mDNS instance name (default derives from the hostname)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	users, err := parseCodeFlags(codeEntries)
	if err != nil {
		return err
	}

	if codesFile != "" {
		if _, err := os.Stat(codesFile); os.IsNotExist(err) {
			return fmt.Errorf("codes file not found: %s", codesFile)
		}
	}

	config := &server.Config{
		Host:         host,
		Port:         port,
		Users:        users,
		CodesFile:    codesFile,
		AttemptLimit: attemptLimit,
		Announce:     announce,
		Instance:     instance,
		LogLevel:     logLevel,
	}

	srv, err := server.New(config)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	return srv.Start()
}

// parseCodeFlags turns repeated user=code flags into a map.
func parseCodeFlags(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	users := make(map[string]string, len(entries))
	for _, entry := range entries {
		user, code, ok := strings.Cut(entry, "=")
		if !ok || user == "" || code == "" {
			return nil, fmt.Errorf("invalid --code entry %q (want user=code)", entry)
		}
		users[user] = code
	}
	return users, nil
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pinpane-verifyd %s (commit: %s)\n", version.Version, version.Commit)
	},
}
