// Pinpane is a terminal client for one-time code entry and verification.
//
// It provides a segmented code-entry field driven by configurable field
// profiles, a login TUI that verifies codes against a pinpane verification
// daemon, mDNS daemon discovery, and one-shot verification for scripts.
// Codes are checked by the daemon; the client never stores them.
//
// Usage:
//
//	pinpane [command] [flags]
//
// Running without arguments launches the login TUI. With no daemon
// configured an embedded demo daemon is started so the code field has
// something to verify against.
// See 'pinpane --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tversen/pinpane/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pinpane",
	Short: "One-Time Code Entry Client",
	Long: `A terminal client for entering and verifying one-time codes.

Provides a segmented code field (PIN, SMS, OTP and custom shapes), daemon
discovery over mDNS, an interactive login flow and one-shot verification
for scripts.

If no command is specified, the login TUI will launch automatically.`,
	Version: version.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: run the login TUI when no subcommand provided
		return runLogin(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pinpane %s (commit: %s)\n", version.Version, version.Commit)
	},
}
