// Package config provides user configuration management for the pinpane tools.
//
// This package manages a YAML-based configuration file that stores code-field
// profiles (slot count, input pattern, masking), the verification server
// endpoint, theme colors and application preferences. The configuration
// follows OS-specific conventions for storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/pinpane/config.yaml or $HOME/.config/pinpane/config.yaml
//   - macOS: $HOME/.config/pinpane/config.yaml
//   - Windows: %LOCALAPPDATA%\pinpane\config.yaml
//
// # Security
//
// IMPORTANT: This package NEVER stores verification codes or account
// secrets. The daemon keeps its code list in memory or in a file the
// operator points it at; this file only shapes the client experience.
//
// # Usage Example
//
//	// Load the global registry
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Add or update a field profile
//	registry.SetProfile("badge", &config.FieldProfile{
//	    Length:  8,
//	    Pattern: "[0-9a-fA-F]*",
//	    Obscure: true,
//	})
//
//	// Save changes atomically
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
