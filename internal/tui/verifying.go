package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tversen/pinpane/internal/discovery"
	"github.com/tversen/pinpane/internal/verify"
)

// verifyResultMsg carries the daemon's verdict back to the application
type verifyResultMsg struct {
	resp *verify.Response
	err  error
}

// verifyingKeyMap defines key bindings while a verification is in flight
type verifyingKeyMap struct {
	Quit key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k verifyingKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k verifyingKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Quit}}
}

// VerifyingModel represents the in-flight verification screen. There is no
// way back from here: the request cannot be recalled, so the screen waits
// for the daemon's verdict or the timeout.
type VerifyingModel struct {
	Spinner   spinner.Model
	User      string
	Endpoint  *discovery.Endpoint
	StartTime time.Time

	// UI state
	Width  int
	Height int
	Help   help.Model
	Keys   verifyingKeyMap

	client  *verify.Client
	code    string
	timeout time.Duration
}

// NewVerifyingModel creates the verification screen for one submit.
func NewVerifyingModel(client *verify.Client, endpoint *discovery.Endpoint, user, code string, timeout time.Duration) VerifyingModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	keys := verifyingKeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}

	return VerifyingModel{
		Spinner:   s,
		User:      user,
		Endpoint:  endpoint,
		StartTime: time.Now(),
		Help:      help.New(),
		Keys:      keys,
		client:    client,
		code:      code,
		timeout:   timeout,
	}
}

// Init starts the spinner and fires the verification request.
func (m VerifyingModel) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, verifyCode(m.client, m.User, m.code, m.timeout))
}

// verifyCode runs one verification round trip against the daemon.
func verifyCode(client *verify.Client, user, code string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		resp, err := client.Verify(ctx, user, code)
		return verifyResultMsg{resp: resp, err: err}
	}
}

// Update handles messages and updates the model
func (m VerifyingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the verification screen
func (m VerifyingModel) View() string {
	var b strings.Builder

	b.WriteString(RenderTitle("VERIFYING CODE"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  %s Checking with the daemon...", m.Spinner.View()))
	b.WriteString("\n\n")

	target := "daemon"
	if m.Endpoint != nil {
		target = m.Endpoint.Addr()
	}
	b.WriteString(RenderSubtitle(fmt.Sprintf("User %s at %s", m.User, target)))
	b.WriteString("\n")

	elapsed := time.Since(m.StartTime).Round(time.Second)
	b.WriteString(RenderSubtitle(fmt.Sprintf("Elapsed: %s (timeout %s)", elapsed, m.timeout)))
	b.WriteString("\n")

	helpText := m.Help.View(m.Keys)
	return RenderApplicationContainer(b.String(), helpText, m.Width, m.Height)
}
