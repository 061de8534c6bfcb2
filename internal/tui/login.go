package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tversen/pinpane/internal/config"
	"github.com/tversen/pinpane/internal/discovery"
	"github.com/tversen/pinpane/internal/pinfield"
)

// loginKeyMap defines key bindings for the login screen
type loginKeyMap struct {
	NextField key.Binding
	Submit    key.Binding
	Paste     key.Binding
	Obscure   key.Binding
	Back      key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k loginKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextField, k.Submit, k.Paste, k.Obscure, k.Back}
}

// FullHelp returns keybindings for the expanded help view
func (k loginKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextField, k.Submit},
		{k.Paste, k.Obscure, k.Back},
	}
}

// Focus targets on the login screen
const (
	focusUser = iota
	focusCode
)

// LoginModel represents the login screen state: a username input and the
// segmented code field.
type LoginModel struct {
	UserInput textinput.Model
	CodeField pinfield.Model
	Focus     int

	Endpoint    *discovery.Endpoint
	Profile     *config.FieldProfile
	ProfileName string
	DemoCode    string

	// Err holds submit-level problems (missing username, short code)
	Err error

	// UI state
	Width  int
	Height int
	Help   help.Model
	Keys   loginKeyMap
}

// NewLoginModel creates the login screen from the application options.
func NewLoginModel(opts Options) (LoginModel, error) {
	field, err := pinfield.NewWithProfile(opts.Profile)
	if err != nil {
		return LoginModel{}, err
	}
	field.Styles = FieldStyles(opts.Theme)
	field.Cursor.Style = CursorStyle(opts.Theme)

	userInput := textinput.New()
	userInput.Placeholder = "user"
	userInput.CharLimit = 64
	userInput.Width = 24
	userInput.Prompt = ""
	userInput.SetValue(opts.User)

	keys := loginKeyMap{
		NextField: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "switch field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		Paste: key.NewBinding(
			key.WithKeys("ctrl+v"),
			key.WithHelp("ctrl+v", "paste code"),
		),
		Obscure: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "show/hide"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
	}

	m := LoginModel{
		UserInput:   userInput,
		CodeField:   field,
		Endpoint:    opts.Endpoint,
		Profile:     opts.Profile,
		ProfileName: opts.ProfileName,
		DemoCode:    opts.DemoCode,
		Help:        help.New(),
		Keys:        keys,
	}

	// Land on the code field when the username is already known
	if strings.TrimSpace(opts.User) != "" {
		_ = m.setFocus(focusCode)
	} else {
		_ = m.setFocus(focusUser)
	}

	return m, nil
}

// SetEndpoint points the screen at a different daemon.
func (m *LoginModel) SetEndpoint(endpoint *discovery.Endpoint) {
	m.Endpoint = endpoint
}

// Reset clears the code field and any submit error while keeping the
// username, ready for another attempt.
func (m *LoginModel) Reset() {
	m.CodeField.Reset()
	m.Err = nil
	if strings.TrimSpace(m.UserInput.Value()) == "" {
		_ = m.setFocus(focusUser)
	} else {
		_ = m.setFocus(focusCode)
	}
}

// Teardown releases the code field.
func (m *LoginModel) Teardown() {
	m.CodeField.Close()
}

// setFocus moves input focus to the given target and returns the cursor
// restart command for it.
func (m *LoginModel) setFocus(target int) tea.Cmd {
	m.Focus = target
	if target == focusUser {
		m.CodeField.Blur()
		return m.UserInput.Focus()
	}
	m.UserInput.Blur()
	return m.CodeField.Focus()
}

// Init initializes the login model
func (m LoginModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, pinfield.Blink)
}

// Update handles messages and updates the model
func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.Keys.Back):
			return m, func() tea.Msg { return goBackMsg{} }

		case key.Matches(msg, m.Keys.NextField):
			target := focusCode
			if m.Focus == focusCode {
				target = focusUser
			}
			cmds = append(cmds, m.setFocus(target))
			return m, tea.Batch(cmds...)

		case m.Focus == focusUser && key.Matches(msg, m.Keys.Submit):
			// Enter on the username moves on to the code
			cmds = append(cmds, m.setFocus(focusCode))
			return m, tea.Batch(cmds...)
		}

	case pinfield.CompleteMsg:
		user := strings.TrimSpace(m.UserInput.Value())
		if user == "" {
			m.Err = fmt.Errorf("username is required")
			cmds = append(cmds, m.setFocus(focusUser))
			return m, tea.Batch(cmds...)
		}
		if !m.CodeField.Complete() {
			m.Err = fmt.Errorf("enter all %d characters", m.CodeField.Length())
			return m, nil
		}
		m.Err = nil
		return m, func() tea.Msg { return loginSubmitMsg{user: user, code: msg.Value} }
	}

	// Route remaining messages to the focused component
	var cmd tea.Cmd
	if m.Focus == focusUser {
		m.UserInput, cmd = m.UserInput.Update(msg)
	} else {
		m.CodeField, cmd = m.CodeField.Update(msg)
	}
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the login screen
func (m LoginModel) View() string {
	var b strings.Builder

	b.WriteString(RenderTitle("ENTER ONE-TIME CODE"))
	b.WriteString("\n\n")

	if m.Endpoint != nil {
		b.WriteString(RenderSubtitle(fmt.Sprintf("Daemon: %s", m.Endpoint.Addr())))
		b.WriteString("\n")
	}
	b.WriteString(RenderSubtitle(m.profileLine()))
	b.WriteString("\n")

	if m.DemoCode != "" {
		b.WriteString(RenderInfo(fmt.Sprintf("Demo daemon running locally. Try the code %s", m.DemoCode)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	// Username row
	b.WriteString("  ")
	b.WriteString(m.labelStyle(focusUser).Render("Username:"))
	b.WriteString(" ")
	b.WriteString(m.UserInput.View())
	b.WriteString("\n\n")

	// Code row
	b.WriteString("  ")
	b.WriteString(m.labelStyle(focusCode).Render("Code:"))
	b.WriteString("     ")
	b.WriteString(m.CodeField.View())
	b.WriteString("\n")

	if err := m.currentError(); err != nil {
		b.WriteString("\n  ")
		b.WriteString(InlineErrorStyle.Render(fmt.Sprintf("✗ %v", err)))
		b.WriteString("\n")
	}

	helpText := m.Help.View(m.Keys)
	return RenderApplicationContainer(b.String(), helpText, m.Width, m.Height)
}

// profileLine describes the active field profile
func (m LoginModel) profileLine() string {
	name := m.ProfileName
	if name == "" {
		name = "custom"
	}
	line := fmt.Sprintf("Profile: %s (%d characters)", name, m.CodeField.Length())
	if m.Profile != nil && m.Profile.Description != "" {
		line = fmt.Sprintf("Profile: %s (%s)", name, m.Profile.Description)
	}
	return line
}

// currentError picks the error to show under the form: submit-level problems
// first, then per-keystroke input errors from the code field.
func (m LoginModel) currentError() error {
	if m.Err != nil {
		return m.Err
	}
	return m.CodeField.Err
}

// labelStyle styles a form label according to focus
func (m LoginModel) labelStyle(target int) lipgloss.Style {
	if m.Focus == target {
		return FocusedInputStyle
	}
	return BlurredInputStyle
}
