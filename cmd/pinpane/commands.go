package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tversen/pinpane/internal/config"
	"github.com/tversen/pinpane/internal/discovery"
	"github.com/tversen/pinpane/internal/logging"
	"github.com/tversen/pinpane/internal/server"
	"github.com/tversen/pinpane/internal/tui"
	"github.com/tversen/pinpane/internal/ui"
	"github.com/tversen/pinpane/internal/verify"
)

// demoUser is the account the embedded demo daemon accepts.
const demoUser = "demo"

// Client command flags
var (
	profileName  string
	codeLength   int
	codePattern  string
	obscureFlag  bool
	serverAddr   string
	userFlag     string
	timeoutSecs  int
	logLevel     string
	discoverFlag bool
	demoFlag     bool

	scanSeconds int
)

func init() {
	// Common flags shared by login and verify (persistent on root)
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Field profile name (see 'pinpane profiles list')")
	rootCmd.PersistentFlags().IntVar(&codeLength, "length", 0, "Field length override (builds a one-off profile)")
	rootCmd.PersistentFlags().StringVar(&codePattern, "pattern", "", "Accepted-input regexp override")
	rootCmd.PersistentFlags().BoolVar(&obscureFlag, "obscure", false, "Mask typed characters")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "", "Daemon address as host[:port] (skips discovery)")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "Username to verify as")
	rootCmd.PersistentFlags().IntVar(&timeoutSecs, "timeout", 0, "Verification timeout in seconds")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error; default silent)")
	rootCmd.PersistentFlags().BoolVar(&discoverFlag, "discover", false, "Start on the daemon discovery screen")
	rootCmd.PersistentFlags().BoolVar(&demoFlag, "demo", false, "Run against the embedded demo daemon")

	// Add subcommands directly to root
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(scanCmd)
}

// loginCmd launches the interactive login TUI
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Launch the interactive login TUI",
	Long: `Launch the interactive login flow: pick a daemon, enter a username and
type the one-time code into the segmented field.

The code field is driven by a profile (length, accepted characters and
masking). Select one with --profile or override the shape directly with
--length and --pattern.

With no daemon configured an embedded demo daemon is started on a
loopback port and its generated code is shown on screen.`,
	Example: `  # Demo mode against the embedded daemon
  pinpane login
  # Or simply (login is default):
  pinpane

  # Use the 4-digit PIN profile against a known daemon
  pinpane login --profile pin4 --server 192.168.1.20:7460

  # Discover daemons on the network first
  pinpane login --discover

  # A custom field: 5 hex characters, masked
  pinpane login --length 5 --pattern '[0-9a-f]*' --obscure`,
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	// Silent by default: zap output would tear the alternate screen
	if err := logging.Initialize(logLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	name, profile, err := resolveProfile(cmd, registry)
	if err != nil {
		return err
	}

	opts := tui.Options{
		ProfileName: name,
		Profile:     profile,
		User:        resolveUser(registry),
		Discover:    discoverFlag,
		Timeout:     resolveTimeout(registry),
		ScanTimeout: resolveScanTimeout(registry),
		Theme:       registry.Theme,
	}

	var demo *server.Server
	startDemo := func() error {
		srv, endpoint, code, err := startDemoDaemon(profile)
		if err != nil {
			return err
		}
		demo = srv
		opts.Endpoint = endpoint
		opts.DemoCode = code
		if opts.User == "" {
			opts.User = demoUser
		}
		return nil
	}

	switch {
	case serverAddr != "":
		endpoint, err := tui.ParseEndpoint(serverAddr)
		if err != nil {
			return fmt.Errorf("invalid --server address: %w", err)
		}
		opts.Endpoint = endpoint

	case demoFlag:
		if err := startDemo(); err != nil {
			return err
		}

	case discoverFlag:
		// Start on the discovery screen

	case registry.Server != nil && registry.Server.Host != "":
		opts.Endpoint = endpointFromPrefs(registry.Server)

	case registry.Preferences != nil && registry.Preferences.AutoDiscover && configOnDisk():
		// The user's configuration asks for discovery on startup
		opts.Discover = true

	default:
		// Nothing configured: run the embedded demo daemon so the code
		// field has something real to verify against
		if err := startDemo(); err != nil {
			return err
		}
	}

	if demo != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = demo.Shutdown(ctx)
		}()
	}

	app, err := tui.NewAppModel(opts)
	if err != nil {
		return err
	}

	p := tea.NewProgram(app, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("login UI error: %w", err)
	}
	if m, ok := final.(tui.AppModel); ok {
		m.Teardown()
	}

	return nil
}

// verifyCmd performs a one-shot verification without the TUI
var verifyCmd = &cobra.Command{
	Use:   "verify <code>",
	Short: "Verify a code against a daemon",
	Long: `Verify a one-time code against a verification daemon without the TUI.

The daemon address comes from --server, the configured server in the
registry, or a quick mDNS scan when neither is set. The exit status
reports the verdict, so the command can be scripted.`,
	Example: `  # Verify against an explicit daemon
  pinpane verify 123456 --user alice --server 192.168.1.20:7460

  # Use the configured daemon and default user
  pinpane verify 123456

  # Let discovery find the daemon
  pinpane verify 123456 --user alice`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	code := args[0]

	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	user := resolveUser(registry)
	if user == "" {
		return fmt.Errorf("no user given (use --user or set default_user in the config)")
	}

	endpoint, err := resolveEndpoint(registry)
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(os.Stdout)
	printer.PrintHeader("Verify Code", "pinpane verify", map[string]string{
		"Daemon": endpoint.Addr(),
		"User":   user,
	})

	timeout := resolveTimeout(registry)
	if timeout <= 0 {
		timeout = verify.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := verify.VerifyOnce(ctx, endpoint.IP, endpoint.Port, user, code)
	if err != nil {
		printer.PrintError("Verification failed", err, []string{
			"Check the daemon is running (pinpane-verifyd serve)",
			"Verify the daemon address and port",
			"Try 'pinpane scan' to find daemons on the network",
		})
		return fmt.Errorf("verification failed")
	}

	switch resp.Status {
	case verify.StatusOK:
		printer.PrintSuccess("Code accepted", map[string]string{
			"User":          user,
			"Attempts left": strconv.Itoa(resp.AttemptsLeft),
		})
		return nil

	case verify.StatusLocked:
		printer.PrintError("Connection locked", fmt.Errorf("attempt budget exhausted"), []string{
			"Rerun the command; each run dials a fresh connection",
			"Check the code source before retrying",
		})
		return fmt.Errorf("connection locked")

	default:
		reason := resp.Reason
		if reason == "" {
			reason = "code mismatch"
		}
		printer.PrintError("Code rejected", fmt.Errorf("%s", reason), []string{
			fmt.Sprintf("The daemon reported %d attempts left", resp.AttemptsLeft),
			"Check the code and the user name",
		})
		return fmt.Errorf("code rejected")
	}
}

// scanCmd discovers verification daemons on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for verification daemons on the network",
	Long: `Scan for verification daemons using mDNS/DNS-SD discovery.

This command listens for mDNS announcements from pinpane daemons and
displays all discovered endpoints with their addresses and metadata.`,
	Example: `  # Scan for 5 seconds (default)
  pinpane scan

  # Quick 3-second scan
  pinpane scan --timeout 3

  # Longer scan for slow networks
  pinpane scan --timeout 15`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanSeconds, "timeout", 5, "Scan timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for verification daemons (timeout: %ds)...\n\n", scanSeconds)

	endpoints, err := discovery.Scan(time.Duration(scanSeconds) * time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(endpoints) == 0 {
		fmt.Println("No daemons found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the daemon is running with announcements on (pinpane-verifyd serve --announce)")
		fmt.Println("  - Verify this machine is on the same network segment")
		fmt.Println("  - Check that UDP port 5353 (mDNS) is not blocked")
		fmt.Println("  - Try increasing --timeout for slower networks")
		fmt.Println("  - Use --server flag to specify the address manually")
		return nil
	}

	fmt.Printf("Found %d daemon(s):\n\n", len(endpoints))

	for i, endpoint := range endpoints {
		fmt.Printf("%d. %s\n", i+1, endpoint.Instance)
		fmt.Printf("   Address: %s\n", endpoint.Addr())
		if endpoint.Hostname != "" {
			fmt.Printf("   Host:    %s\n", endpoint.Hostname)
		}
		if ver := endpoint.GetMetadata("ver"); ver != "" {
			fmt.Printf("   Version: %s\n", ver)
		}
		fmt.Println()
	}

	fmt.Println("Use 'pinpane --server <addr>' to log in against a daemon")
	fmt.Println("Use 'pinpane verify <code> --server <addr>' for one-shot checks")

	return nil
}

// resolveProfile picks the field profile: explicit shape flags build a
// one-off profile, otherwise --profile or the registry default is used.
func resolveProfile(cmd *cobra.Command, registry *config.Registry) (string, *config.FieldProfile, error) {
	flags := cmd.Flags()

	if flags.Changed("length") || flags.Changed("pattern") {
		profile := &config.FieldProfile{
			Length:  codeLength,
			Pattern: codePattern,
			Obscure: obscureFlag,
		}
		if !flags.Changed("length") {
			profile.Length = 6
		}
		if err := profile.Validate(); err != nil {
			return "", nil, err
		}
		return "custom", profile, nil
	}

	name := profileName
	var profile *config.FieldProfile
	if name != "" {
		profile = registry.GetProfile(name)
		if profile == nil {
			return "", nil, fmt.Errorf("unknown profile %q (see 'pinpane profiles list')", name)
		}
	} else {
		name, profile = registry.DefaultProfile()
		if profile == nil {
			return "", nil, fmt.Errorf("no profiles configured (run 'pinpane profiles reset')")
		}
	}

	// --obscure overrides the presentation without touching the registry
	if flags.Changed("obscure") {
		copied := *profile
		copied.Obscure = obscureFlag
		profile = &copied
	}

	return name, profile, nil
}

// resolveUser picks the username: the --user flag wins over the
// configured default.
func resolveUser(registry *config.Registry) string {
	if userFlag != "" {
		return userFlag
	}
	if registry.Preferences != nil {
		return registry.Preferences.DefaultUser
	}
	return ""
}

// resolveTimeout picks the verification timeout in this order: --timeout
// flag, configured server timeout, zero (callers substitute the package
// default).
func resolveTimeout(registry *config.Registry) time.Duration {
	if timeoutSecs > 0 {
		return time.Duration(timeoutSecs) * time.Second
	}
	if registry.Server != nil && registry.Server.Timeout > 0 {
		return time.Duration(registry.Server.Timeout) * time.Second
	}
	return 0
}

// resolveScanTimeout picks the discovery scan window from preferences.
func resolveScanTimeout(registry *config.Registry) time.Duration {
	if registry.Preferences != nil && registry.Preferences.DiscoverTimeout > 0 {
		return time.Duration(registry.Preferences.DiscoverTimeout) * time.Second
	}
	return 0
}

// resolveEndpoint picks the daemon for one-shot commands: the --server
// flag, then the configured server, then a quick scan.
func resolveEndpoint(registry *config.Registry) (*discovery.Endpoint, error) {
	if serverAddr != "" {
		endpoint, err := tui.ParseEndpoint(serverAddr)
		if err != nil {
			return nil, fmt.Errorf("invalid --server address: %w", err)
		}
		return endpoint, nil
	}

	if registry.Server != nil && registry.Server.Host != "" {
		return endpointFromPrefs(registry.Server), nil
	}

	fmt.Println("No daemon configured, scanning the network...")
	endpoints, err := discovery.QuickScan()
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}

	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no daemons found; use --server to specify one")
	}

	if len(endpoints) > 1 {
		fmt.Printf("Found %d daemons:\n", len(endpoints))
		for i, endpoint := range endpoints {
			fmt.Printf("%d. %s (%s)\n", i+1, endpoint.Instance, endpoint.Addr())
		}
		return nil, fmt.Errorf("multiple daemons found; use --server to pick one")
	}

	// Exactly one daemon found
	endpoint := endpoints[0]
	fmt.Printf("Found daemon: %s (%s)\n\n", endpoint.Instance, endpoint.Addr())
	return endpoint, nil
}

// endpointFromPrefs builds an endpoint from the configured server.
func endpointFromPrefs(prefs *config.ServerPrefs) *discovery.Endpoint {
	port := prefs.Port
	if port <= 0 {
		port = verify.DefaultPort
	}
	return &discovery.Endpoint{
		Instance:     "configured",
		Hostname:     prefs.Host,
		IP:           prefs.Host,
		Port:         port,
		DiscoveredAt: time.Now(),
	}
}

// startDemoDaemon runs an in-process daemon on a loopback port with one
// generated code, so a bare 'pinpane' run has something real to verify
// against.
func startDemoDaemon(profile *config.FieldProfile) (*server.Server, *discovery.Endpoint, string, error) {
	code, err := server.GenerateCode(profile.Length)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to generate demo code: %w", err)
	}

	// Generated codes are numeric; a profile that rejects digits cannot
	// be demoed against the embedded daemon.
	if profile.Pattern != "" {
		re, err := regexp.Compile("^(?:" + profile.Pattern + ")$")
		if err != nil {
			return nil, nil, "", fmt.Errorf("profile pattern %q does not compile: %w", profile.Pattern, err)
		}
		if !re.MatchString(code) {
			return nil, nil, "", fmt.Errorf("profile pattern %q does not accept numeric demo codes; use --server to verify against a real daemon", profile.Pattern)
		}
	}

	srv, err := server.New(&server.Config{
		Host:     "127.0.0.1",
		Users:    map[string]string{demoUser: code},
		LogLevel: logLevel,
	})
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to create demo daemon: %w", err)
	}

	addr, err := srv.StartBackground()
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to start demo daemon: %w", err)
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, nil, "", fmt.Errorf("unexpected demo daemon address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, nil, "", fmt.Errorf("unexpected demo daemon port %q: %w", portStr, err)
	}

	endpoint := &discovery.Endpoint{
		Instance:     "demo",
		Hostname:     host,
		IP:           host,
		Port:         port,
		DiscoveredAt: time.Now(),
	}

	return srv, endpoint, code, nil
}

// configOnDisk reports whether a configuration file actually exists. The
// in-memory default registry also carries preferences; only a file the
// user created should change the startup screen.
func configOnDisk() bool {
	path, err := config.GetConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
