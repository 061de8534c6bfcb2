// Package ui provides terminal UI components for the pinpane CLI.
//
// This package uses Bubble Tea and Lipgloss to render polished terminal output
// for one-shot commands. Unlike the interactive login TUI, these components
// follow a "run once and exit" pattern - they render output compellingly but
// don't require user interaction.
//
// # Architecture
//
// The central type is Printer, a writer-bound helper that lays out the
// three box kinds one-shot commands need:
//
//   - a command header showing the operation name and parameters
//   - a success box with result details
//   - an error box with the failure and troubleshooting tips
//
// Confirm and its variants gate destructive operations on explicit
// keyboard acknowledgement.
//
// # Usage Pattern
//
// One-shot commands use this package by:
//
//  1. Creating a Printer for their output writer
//  2. Printing a header with the operation's parameters
//  3. Finishing with a success or failure box
//
// Example:
//
//	printer := ui.NewPrinter(os.Stdout)
//	printer.PrintHeader("Code Verification", "pinpane verify",
//	    map[string]string{"Server": "verify.local:7460", "User": "alice"})
//
//	resp, err := verify.VerifyOnce(ctx, host, port, user, code)
//	if err != nil {
//	    printer.PrintError("Verification failed", err, []string{
//	        "Is pinpane-verifyd running?",
//	        "Check that mDNS (UDP 5353) is allowed on this network",
//	    })
//	    return err
//	}
//
// # Logging Integration
//
// This package expects logging to be controlled via the PINPANE_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the curated UI output to be displayed cleanly. Set PINPANE_LOG_LEVEL to
// "debug", "info", "warn", or "error" to enable logging output.
package ui
