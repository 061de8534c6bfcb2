package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tversen/pinpane/internal/config"
	"github.com/tversen/pinpane/internal/discovery"
	"github.com/tversen/pinpane/internal/verify"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenDiscovery Screen = "discovery"
	ScreenLogin     Screen = "login"
	ScreenVerifying Screen = "verifying"
	ScreenSuccess   Screen = "success"
	ScreenFailure   Screen = "failure"
)

// goBackMsg asks the coordinator to return to the previous screen
type goBackMsg struct{}

// loginSubmitMsg carries a submitted username and code from the login screen
type loginSubmitMsg struct {
	user string
	code string
}

// successKeyMap defines key bindings for the success screen
type successKeyMap struct {
	Another  key.Binding
	Discover key.Binding
	Quit     key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k successKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Another, k.Discover, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k successKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Another, k.Discover, k.Quit},
	}
}

// failureKeyMap defines key bindings for the failure screen
type failureKeyMap struct {
	Retry     key.Binding
	Reconnect key.Binding
	Discover  key.Binding
	Quit      key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k failureKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Retry, k.Reconnect, k.Discover, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k failureKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Retry, k.Reconnect},
		{k.Discover, k.Quit},
	}
}

// Options configures the login application.
type Options struct {
	// ProfileName is the name of the selected field profile, for display.
	ProfileName string

	// Profile declares the code field: length, pattern, obscuring.
	Profile *config.FieldProfile

	// User pre-fills the username input.
	User string

	// Endpoint is the verification daemon to dial. Leave nil to start on
	// the discovery screen.
	Endpoint *discovery.Endpoint

	// Discover forces the discovery screen even when Endpoint is set.
	Discover bool

	// DemoCode, when non-empty, is shown on the login screen. The demo
	// daemon sets it so the user has a code to type.
	DemoCode string

	// Timeout bounds each verification round trip.
	Timeout time.Duration

	// ScanTimeout bounds each mDNS discovery scan.
	ScanTimeout time.Duration

	// Theme carries palette overrides from the profile registry.
	Theme *config.Theme
}

// AppModel is the top-level coordinator model that manages screen transitions
type AppModel struct {
	// Current screen state
	CurrentScreen  Screen
	PreviousScreen Screen

	// Screen models
	DiscoveryModel DiscoveryModel
	LoginModel     LoginModel
	VerifyingModel VerifyingModel

	// Shared application state
	Options  Options
	Endpoint *discovery.Endpoint
	Client   *verify.Client

	// Result state
	LastUser     string
	LastResponse *verify.Response
	LastError    error

	// UI state
	Width  int
	Height int

	// Help
	Help        help.Model
	SuccessKeys successKeyMap
	FailureKeys failureKeyMap
}

// NewAppModel creates the application model. The starting screen is login
// when an endpoint is known, discovery otherwise.
func NewAppModel(opts Options) (AppModel, error) {
	if opts.Profile == nil {
		return AppModel{}, fmt.Errorf("no field profile selected")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = verify.DefaultTimeout
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = discovery.DefaultScanTimeout
	}

	login, err := NewLoginModel(opts)
	if err != nil {
		return AppModel{}, err
	}

	// Initialize help
	h := help.New()

	// Initialize key bindings for success screen
	successKeys := successKeyMap{
		Another: key.NewBinding(
			key.WithKeys("enter", "a"),
			key.WithHelp("enter/a", "verify another"),
		),
		Discover: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "discover"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}

	// Initialize key bindings for failure screen
	failureKeys := failureKeyMap{
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		Reconnect: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "reconnect"),
		),
		Discover: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "discover"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}

	model := AppModel{
		CurrentScreen: ScreenLogin,
		Options:       opts,
		LoginModel:    login,
		Help:          h,
		SuccessKeys:   successKeys,
		FailureKeys:   failureKeys,
	}

	if opts.Discover || opts.Endpoint == nil {
		model.CurrentScreen = ScreenDiscovery
		model.DiscoveryModel = NewDiscoveryModel(opts.ScanTimeout)
	} else {
		model = model.withEndpoint(opts.Endpoint)
	}

	return model, nil
}

// withEndpoint points the application at a daemon: any previous connection
// is closed and a fresh client is created for the new endpoint.
func (m AppModel) withEndpoint(endpoint *discovery.Endpoint) AppModel {
	if m.Client != nil {
		_ = m.Client.Close()
	}
	m.Endpoint = endpoint
	m.Client = verify.NewClient(endpoint.IP, endpoint.Port)
	m.Client.SetTimeout(m.Options.Timeout)
	m.LoginModel.SetEndpoint(endpoint)
	return m
}

// Teardown releases the daemon connection and the code field. Call it after
// the program exits.
func (m AppModel) Teardown() {
	if m.Client != nil {
		_ = m.Client.Close()
	}
	m.LoginModel.Teardown()
}

// Init initializes the application
func (m AppModel) Init() tea.Cmd {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		return m.DiscoveryModel.Init()
	case ScreenLogin:
		return m.LoginModel.Init()
	default:
		return nil
	}
}

// Update handles all messages and routes them to the appropriate screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		// Propagate to all screens
		m.DiscoveryModel.Width = msg.Width
		m.DiscoveryModel.Height = msg.Height
		m.LoginModel.Width = msg.Width
		m.LoginModel.Height = msg.Height
		m.VerifyingModel.Width = msg.Width
		m.VerifyingModel.Height = msg.Height
		return m, nil

	case tea.KeyMsg:
		// Global quit handler
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case goBackMsg:
		return m.goBack()

	case loginSubmitMsg:
		m.LastUser = msg.user
		return m.transitionTo(ScreenVerifying, msg)

	case verifyResultMsg:
		m.LastResponse = msg.resp
		m.LastError = msg.err
		if msg.err == nil && msg.resp != nil && msg.resp.Status == verify.StatusOK {
			return m.transitionTo(ScreenSuccess, nil)
		}
		return m.transitionTo(ScreenFailure, nil)
	}

	// Route to current screen
	return m.updateCurrentScreen(msg)
}

// updateCurrentScreen routes updates to the currently active screen
func (m AppModel) updateCurrentScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.CurrentScreen {
	case ScreenDiscovery:
		updated, c := m.DiscoveryModel.Update(msg)
		m.DiscoveryModel = updated.(DiscoveryModel)
		cmd = c

		// Check if user selected a daemon
		if m.DiscoveryModel.Selected {
			if endpoint := m.DiscoveryModel.GetSelectedEndpoint(); endpoint != nil {
				m = m.withEndpoint(endpoint)
				return m.transitionTo(ScreenLogin, nil)
			}
		}

		// Check for quit (normal mode only, not during scan)
		if !m.DiscoveryModel.Scanning && !m.DiscoveryModel.ManualMode {
			if keyMsg, ok := msg.(tea.KeyMsg); ok {
				if keyMsg.String() == "q" || keyMsg.String() == "esc" {
					return m, tea.Quit
				}
			}
		}

	case ScreenLogin:
		updated, c := m.LoginModel.Update(msg)
		m.LoginModel = updated.(LoginModel)
		cmd = c

	case ScreenVerifying:
		updated, c := m.VerifyingModel.Update(msg)
		m.VerifyingModel = updated.(VerifyingModel)
		cmd = c

	case ScreenSuccess:
		return m.handleSuccessScreen(msg)

	case ScreenFailure:
		return m.handleFailureScreen(msg)
	}

	return m, cmd
}

// handleSuccessScreen handles user input on the success screen
func (m AppModel) handleSuccessScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter", "a":
			// Verify another code on the same connection
			return m.transitionTo(ScreenLogin, nil)

		case "d":
			// Discover another daemon
			return m.transitionTo(ScreenDiscovery, nil)

		case "q":
			return m, tea.Quit
		}
	}

	return m, nil
}

// handleFailureScreen handles user input on the failure screen
func (m AppModel) handleFailureScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "r":
			// Retry on the same connection; a locked connection stays
			// locked until reconnect.
			return m.transitionTo(ScreenLogin, nil)

		case "n":
			// Drop the connection; the next attempt dials fresh and gets
			// a new attempt budget.
			if m.Client != nil {
				_ = m.Client.Close()
			}
			return m.transitionTo(ScreenLogin, nil)

		case "d":
			return m.transitionTo(ScreenDiscovery, nil)

		case "q":
			return m, tea.Quit
		}
	}

	return m, nil
}

// transitionTo transitions to a new screen
func (m AppModel) transitionTo(screen Screen, data interface{}) (tea.Model, tea.Cmd) {
	m.PreviousScreen = m.CurrentScreen
	m.CurrentScreen = screen

	var cmd tea.Cmd

	// Initialize the target screen with current state
	switch screen {
	case ScreenDiscovery:
		m.DiscoveryModel = NewDiscoveryModel(m.Options.ScanTimeout)
		m.DiscoveryModel.Width = m.Width
		m.DiscoveryModel.Height = m.Height
		cmd = m.DiscoveryModel.Init()

	case ScreenLogin:
		// The login model is reused so the username survives retries;
		// only the code field is cleared.
		m.LoginModel.Reset()
		m.LoginModel.Width = m.Width
		m.LoginModel.Height = m.Height
		cmd = m.LoginModel.Init()

	case ScreenVerifying:
		submit, _ := data.(loginSubmitMsg)
		m.VerifyingModel = NewVerifyingModel(m.Client, m.Endpoint, submit.user, submit.code, m.Options.Timeout)
		m.VerifyingModel.Width = m.Width
		m.VerifyingModel.Height = m.Height
		cmd = m.VerifyingModel.Init()

	case ScreenSuccess, ScreenFailure:
		// Result screens render from shared state
		cmd = nil
	}

	return m, cmd
}

// goBack returns to the previous screen
func (m AppModel) goBack() (tea.Model, tea.Cmd) {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		// Can't go back from discovery - quit instead
		return m, tea.Quit

	case ScreenLogin:
		if m.Options.Discover || m.PreviousScreen == ScreenDiscovery {
			return m.transitionTo(ScreenDiscovery, nil)
		}
		return m, tea.Quit

	case ScreenSuccess, ScreenFailure:
		return m.transitionTo(ScreenLogin, nil)

	default:
		return m, tea.Quit
	}
}

// View renders the current screen
// Each screen handles its own container using RenderApplicationContainer()
func (m AppModel) View() string {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		return m.DiscoveryModel.View()
	case ScreenLogin:
		return m.LoginModel.View()
	case ScreenVerifying:
		return m.VerifyingModel.View()
	case ScreenSuccess:
		return m.renderSuccessScreen()
	case ScreenFailure:
		return m.renderFailureScreen()
	default:
		return "Unknown screen"
	}
}

// renderSuccessScreen renders the success result screen
func (m AppModel) renderSuccessScreen() string {
	content := m.buildSuccessContent()

	// Help text using bubbles/help
	helpText := m.Help.View(m.SuccessKeys)

	return RenderApplicationContainer(content, helpText, m.Width, m.Height)
}

// buildSuccessContent builds the success screen content
func (m AppModel) buildSuccessContent() string {
	var b strings.Builder

	b.WriteString(RenderTitle("✓ Code Accepted"))
	b.WriteString("\n\n")

	b.WriteString(SuccessBoxStyle.Render(fmt.Sprintf("User %q verified successfully", m.LastUser)))
	b.WriteString("\n\n")

	if m.Endpoint != nil {
		b.WriteString(fmt.Sprintf("  Daemon:        %s\n", m.Endpoint.Addr()))
	}
	if m.LastResponse != nil {
		b.WriteString(fmt.Sprintf("  Attempts left: %d\n", m.LastResponse.AttemptsLeft))
	}
	b.WriteString("\n")

	b.WriteString("What would you like to do next?\n\n")

	b.WriteString(MenuItemStyle.Render("  Enter/a - Verify another code"))
	b.WriteString("\n")
	b.WriteString(MenuItemStyle.Render("  d       - Discover another daemon"))
	b.WriteString("\n")
	b.WriteString(MenuItemStyle.Render("  q       - Exit application"))
	b.WriteString("\n")

	return b.String()
}

// renderFailureScreen renders the failure result screen
func (m AppModel) renderFailureScreen() string {
	content := m.buildFailureContent()

	// Help text using bubbles/help
	helpText := m.Help.View(m.FailureKeys)

	return RenderApplicationContainer(content, helpText, m.Width, m.Height)
}

// buildFailureContent builds the failure screen content
func (m AppModel) buildFailureContent() string {
	var b strings.Builder

	switch {
	case m.LastError != nil:
		b.WriteString(RenderTitle("✗ Verification Error"))
		b.WriteString("\n\n")

		b.WriteString(ErrorBoxStyle.Render(fmt.Sprintf("Error: %v", m.LastError)))
		b.WriteString("\n\n")

		var verr *verify.VerifyError
		if errors.As(m.LastError, &verr) && verr.Retryable {
			b.WriteString(SubtitleStyle.Render("This looks transient; retrying may succeed."))
			b.WriteString("\n\n")
		}

		// Troubleshooting hints
		b.WriteString("Troubleshooting:\n")
		b.WriteString("  • Check the daemon is running (pinpane-verifyd serve)\n")
		b.WriteString("  • Verify the host and port are correct\n")
		b.WriteString("  • Check firewall rules for the daemon port\n\n")

	case m.LastResponse != nil && m.LastResponse.Status == verify.StatusLocked:
		b.WriteString(RenderTitle("✗ Connection Locked"))
		b.WriteString("\n\n")

		b.WriteString(WarningBoxStyle.Render("⚠ Attempt budget exhausted on this connection"))
		b.WriteString("\n\n")

		b.WriteString("The daemon stops judging codes on a connection after too many\n")
		b.WriteString("misses. Reconnecting starts a fresh budget.\n\n")

	default:
		b.WriteString(RenderTitle("✗ Code Rejected"))
		b.WriteString("\n\n")

		reason := "code mismatch"
		attemptsLeft := 0
		if m.LastResponse != nil {
			if m.LastResponse.Reason != "" {
				reason = m.LastResponse.Reason
			}
			attemptsLeft = m.LastResponse.AttemptsLeft
		}
		b.WriteString(ErrorBoxStyle.Render(fmt.Sprintf("The daemon rejected the code: %s", reason)))
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("  Attempts left on this connection: %d\n\n", attemptsLeft))
	}

	b.WriteString("What would you like to do?\n\n")

	b.WriteString(MenuItemStyle.Render("  r - Try again"))
	b.WriteString("\n")
	b.WriteString(MenuItemStyle.Render("  n - Reconnect with a fresh attempt budget"))
	b.WriteString("\n")
	b.WriteString(MenuItemStyle.Render("  d - Discover another daemon"))
	b.WriteString("\n")
	b.WriteString(MenuItemStyle.Render("  q - Exit application"))
	b.WriteString("\n")

	return b.String()
}
