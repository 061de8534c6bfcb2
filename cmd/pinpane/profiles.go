package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tversen/pinpane/internal/config"
	"github.com/tversen/pinpane/internal/tui"
	"github.com/tversen/pinpane/internal/ui"
)

// Profile management flags
var (
	setLength      int
	setPattern     string
	setObscure     bool
	setMask        string
	setDescription string
	forceDelete    bool
)

func init() {
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesShowCmd)
	profilesCmd.AddCommand(profilesSetCmd)
	profilesCmd.AddCommand(profilesDeleteCmd)
	profilesCmd.AddCommand(profilesDefaultCmd)
	profilesCmd.AddCommand(profilesResetCmd)
	rootCmd.AddCommand(profilesCmd)

	daemonCmd.AddCommand(daemonShowCmd)
	daemonCmd.AddCommand(daemonSetCmd)
	daemonCmd.AddCommand(daemonClearCmd)
	rootCmd.AddCommand(daemonCmd)

	profilesSetCmd.Flags().IntVar(&setLength, "length", 0, "Number of slots (required for new profiles)")
	profilesSetCmd.Flags().StringVar(&setPattern, "pattern", "", "Regexp accepted input must match")
	profilesSetCmd.Flags().BoolVar(&setObscure, "obscure", false, "Mask filled slots")
	profilesSetCmd.Flags().StringVar(&setMask, "mask", "", "Mask character when obscured")
	profilesSetCmd.Flags().StringVar(&setDescription, "description", "", "Shown in profile listings")

	profilesDeleteCmd.Flags().BoolVar(&forceDelete, "force", false, "Skip the confirmation prompt")
}

// profilesCmd groups profile management subcommands
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage code field profiles",
	Long: `Manage the code field profiles stored in the configuration file.

A profile describes one field shape: how many slots it has, which
characters it accepts and whether typed characters are masked. The login
TUI selects a profile with --profile.`,
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available profiles",
	RunE:  runProfilesList,
}

func runProfilesList(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	names := registry.ProfileNames()
	if len(names) == 0 {
		fmt.Println("No profiles configured. Run 'pinpane profiles reset' to restore the built-ins.")
		return nil
	}

	defaultName, _ := registry.DefaultProfile()

	fmt.Printf(" %-10s %-7s %-8s %-18s %s\n", "NAME", "LENGTH", "OBSCURE", "PATTERN", "DESCRIPTION")
	for _, name := range names {
		profile := registry.GetProfile(name)
		marker := " "
		if name == defaultName {
			marker = "*"
		}
		pattern := profile.Pattern
		if pattern == "" {
			pattern = "(any)"
		}
		fmt.Printf("%s%-11s %-7d %-8v %-18s %s\n", marker, name, profile.Length, profile.Obscure, pattern, profile.Description)
	}
	fmt.Println("\n* default profile")

	return nil
}

var profilesShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one profile in detail",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesShow,
}

func runProfilesShow(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	name := args[0]
	profile := registry.GetProfile(name)
	if profile == nil {
		return fmt.Errorf("unknown profile %q", name)
	}

	fmt.Printf("Profile: %s\n", name)
	fmt.Printf("  Length:      %d\n", profile.Length)
	if profile.Pattern != "" {
		fmt.Printf("  Pattern:     %s\n", profile.Pattern)
	} else {
		fmt.Printf("  Pattern:     (any input)\n")
	}
	fmt.Printf("  Obscure:     %v\n", profile.Obscure)
	if profile.Obscure {
		fmt.Printf("  Mask:        %c\n", profile.MaskRune())
	}
	if profile.Description != "" {
		fmt.Printf("  Description: %s\n", profile.Description)
	}

	return nil
}

var profilesSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Create or update a profile",
	Long: `Create a new profile or update an existing one.

Unspecified flags keep the existing values when updating; a new profile
needs at least --length.`,
	Example: `  # A 5-digit masked PIN
  pinpane profiles set pin5 --length 5 --pattern '[0-9]*' --obscure

  # Update just the description
  pinpane profiles set pin5 --description "5-digit door PIN"`,
	Args: cobra.ExactArgs(1),
	RunE: runProfilesSet,
}

func runProfilesSet(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	name := args[0]

	// Start from the existing profile so partial updates keep the rest
	profile := &config.FieldProfile{}
	if existing := registry.GetProfile(name); existing != nil {
		copied := *existing
		profile = &copied
	}

	flags := cmd.Flags()
	if flags.Changed("length") {
		profile.Length = setLength
	}
	if flags.Changed("pattern") {
		profile.Pattern = setPattern
	}
	if flags.Changed("obscure") {
		profile.Obscure = setObscure
	}
	if flags.Changed("mask") {
		profile.Mask = setMask
	}
	if flags.Changed("description") {
		profile.Description = setDescription
	}

	if err := profile.Validate(); err != nil {
		return err
	}

	registry.SetProfile(name, profile)
	if err := registry.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("✓ Profile %q saved\n", name)
	return nil
}

var profilesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesDelete,
}

func runProfilesDelete(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	name := args[0]
	if registry.GetProfile(name) == nil {
		return fmt.Errorf("unknown profile %q", name)
	}

	if !forceDelete && !ui.Confirm(fmt.Sprintf("Delete profile %q?", name)) {
		fmt.Println("Cancelled.")
		return nil
	}

	registry.DeleteProfile(name)
	if err := registry.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("✓ Profile %q deleted\n", name)
	return nil
}

var profilesDefaultCmd = &cobra.Command{
	Use:   "default <name>",
	Short: "Set the default profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesDefault,
}

func runProfilesDefault(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	name := args[0]
	if registry.GetProfile(name) == nil {
		return fmt.Errorf("unknown profile %q", name)
	}

	if registry.Preferences == nil {
		registry.Preferences = &config.Preferences{}
	}
	registry.Preferences.DefaultProfile = name

	if err := registry.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("✓ Default profile is now %q\n", name)
	return nil
}

var profilesResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the built-in profiles",
	Long: `Replace all profiles with the built-in set.

Custom profiles are removed; daemon and preference settings are kept.`,
	RunE: runProfilesReset,
}

func runProfilesReset(cmd *cobra.Command, args []string) error {
	if !ui.ResetProfilesConfirmation() {
		fmt.Println("Cancelled.")
		return nil
	}

	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	registry.Profiles = config.DefaultProfiles()
	if err := registry.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Println("✓ Built-in profiles restored")
	return nil
}

// daemonCmd groups configured-daemon subcommands
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the configured verification daemon",
	Long: `Show or change the daemon the client verifies against by default.

The configured daemon is used by the login TUI and 'pinpane verify' when
no --server flag is given.`,
}

var daemonShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the configured daemon",
	RunE:  runDaemonShow,
}

func runDaemonShow(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if registry.Server == nil || registry.Server.Host == "" {
		fmt.Println("No daemon configured. The login TUI runs in demo mode.")
		return nil
	}

	fmt.Printf("Daemon:  %s:%d\n", registry.Server.Host, registry.Server.Port)
	if registry.Server.Timeout > 0 {
		fmt.Printf("Timeout: %ds\n", registry.Server.Timeout)
	}

	return nil
}

var daemonSetCmd = &cobra.Command{
	Use:   "set <host[:port]>",
	Short: "Set the daemon address",
	Example: `  # Standard port
  pinpane daemon set verify.local

  # Explicit port
  pinpane daemon set 192.168.1.20:7461`,
	Args: cobra.ExactArgs(1),
	RunE: runDaemonSet,
}

func runDaemonSet(cmd *cobra.Command, args []string) error {
	endpoint, err := tui.ParseEndpoint(args[0])
	if err != nil {
		return err
	}

	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	registry.SetServer(endpoint.IP, endpoint.Port)
	if err := registry.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("✓ Daemon set to %s\n", endpoint.Addr())
	return nil
}

var daemonClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the configured daemon",
	RunE:  runDaemonClear,
}

func runDaemonClear(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	registry.Server = nil
	if err := registry.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Println("✓ Configured daemon cleared")
	return nil
}
