package tui

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tversen/pinpane/internal/discovery"
	"github.com/tversen/pinpane/internal/verify"
)

// Messages for async operations
type scanStartMsg struct{}
type scanCompleteMsg struct {
	endpoints []*discovery.Endpoint
	err       error
}

// discoveryKeyMap defines key bindings for the discovery screen
type discoveryKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Rescan key.Binding
	Manual key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k discoveryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Rescan, k.Manual, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k discoveryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Rescan, k.Manual, k.Quit},
	}
}

// manualModeKeyMap defines key bindings for manual address entry mode
type manualModeKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (m manualModeKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{m.Confirm, m.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (m manualModeKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.Confirm, m.Cancel},
	}
}

// scanningKeyMap defines key bindings for scanning mode
type scanningKeyMap struct {
	Manual key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (s scanningKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{s.Manual, s.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (s scanningKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{s.Manual, s.Quit},
	}
}

// emptyScreenKeyMap defines key bindings for empty results screen
type emptyScreenKeyMap struct {
	Rescan key.Binding
	Manual key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (e emptyScreenKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{e.Rescan, e.Manual, e.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (e emptyScreenKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{e.Rescan, e.Manual, e.Quit},
	}
}

// endpointItem wraps an Endpoint for use with bubbles/list
type endpointItem struct {
	endpoint *discovery.Endpoint
}

// Implement list.Item interface
func (e endpointItem) FilterValue() string {
	// Filter by instance name, address, or hostname
	return e.endpoint.Instance + " " + e.endpoint.IP + " " + e.endpoint.Hostname
}

// Title returns the daemon name for list display
func (e endpointItem) Title() string {
	if e.endpoint.Instance == "manual" {
		return fmt.Sprintf("Manual: %s", e.endpoint.Addr())
	}
	return e.endpoint.Instance
}

// Description returns daemon details for list display
func (e endpointItem) Description() string {
	return fmt.Sprintf("%s • %s • Ready", e.endpoint.Addr(), endpointVersion(e.endpoint))
}

// endpointVersion extracts the advertised daemon version from TXT metadata
func endpointVersion(endpoint *discovery.Endpoint) string {
	if ver := endpoint.GetMetadata("ver"); ver != "" {
		return "v" + ver
	}
	return "version unknown"
}

// endpointDelegate is a custom list delegate for rendering daemon cards
type endpointDelegate struct {
	width int
}

func (d endpointDelegate) Height() int { return 8 } // Card height including borders

func (d endpointDelegate) Spacing() int { return 1 } // Spacing between cards

func (d endpointDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d endpointDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	epItem, ok := item.(endpointItem)
	if !ok {
		return
	}

	endpoint := epItem.endpoint
	selected := index == m.Index()

	// Build daemon name
	name := endpoint.Instance
	if name == "manual" {
		name = fmt.Sprintf("Manual: %s", endpoint.Addr())
	}

	// Build content lines
	var content strings.Builder

	// Add selection indicator to daemon name
	if selected {
		content.WriteString(SelectedMenuItemStyle.Render("→ " + name))
	} else {
		content.WriteString("  " + name)
	}
	content.WriteString("\n\n")

	// Daemon details
	content.WriteString(fmt.Sprintf("  Address:  %s\n", endpoint.Addr()))
	content.WriteString(fmt.Sprintf("  Version:  %s\n", endpointVersion(endpoint)))

	// Status with inline color styling (no border)
	statusStyle := lipgloss.NewStyle().Foreground(SecondaryColor).Bold(true)
	content.WriteString(fmt.Sprintf("  Status:   %s", statusStyle.Render("Ready")))

	// Create responsive card style
	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(1, 2).
		MarginLeft(2)

	// Calculate card width (leave room for margins and borders)
	cardWidth := d.width - 6 // 2 for margin-left, 4 for border + padding
	if cardWidth < MinTerminalWidth-6 {
		cardWidth = MinTerminalWidth - 6
	}
	if cardWidth > MaxContentWidth-6 {
		cardWidth = MaxContentWidth - 6
	}

	cardStyle = cardStyle.Width(cardWidth)

	// Highlight selected card
	if selected {
		cardStyle = cardStyle.BorderForeground(HighlightColor)
	}

	fmt.Fprint(w, cardStyle.Render(content.String()))
}

// DiscoveryModel represents the daemon discovery screen state
type DiscoveryModel struct {
	// Discovery state
	Scanning     bool
	EndpointList list.Model
	Selected     bool
	Err          error
	Timeout      time.Duration

	// Manual address entry state
	ManualMode bool
	AddrInput  textinput.Model
	ManualErr  error

	// UI state
	Width         int
	Height        int
	Spinner       spinner.Model
	ProgressBar   progress.Model
	ScanStartTime time.Time
	Help          help.Model
	Keys          discoveryKeyMap
	ManualKeys    manualModeKeyMap
	ScanningKeys  scanningKeyMap
	EmptyKeys     emptyScreenKeyMap
}

// NewDiscoveryModel creates a new discovery screen model
func NewDiscoveryModel(timeout time.Duration) DiscoveryModel {
	if timeout <= 0 {
		timeout = discovery.DefaultScanTimeout
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	// Initialize address input
	addrInput := textinput.New()
	addrInput.Placeholder = fmt.Sprintf("verify.local:%d", verify.DefaultPort)
	addrInput.CharLimit = 64
	addrInput.Width = 30

	// Initialize progress bar
	progressBar := progress.New(progress.WithDefaultGradient())
	progressBar.Width = 40

	// Initialize daemon list with custom delegate
	delegate := endpointDelegate{width: MinTerminalWidth}
	endpointList := list.New([]list.Item{}, delegate, 0, 0)
	endpointList.Title = "Discovered Daemons"
	endpointList.SetShowStatusBar(false)
	endpointList.SetFilteringEnabled(true)
	endpointList.Styles.Title = TitleStyle

	// Initialize help
	h := help.New()

	// Initialize key bindings for normal mode
	keys := discoveryKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "log in"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		Manual: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "manual address"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
	}

	// Initialize key bindings for manual entry mode
	manualKeys := manualModeKeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}

	// Initialize key bindings for scanning mode
	scanningKeys := scanningKeyMap{
		Manual: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "manual address"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}

	// Initialize key bindings for empty results
	emptyKeys := emptyScreenKeyMap{
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		Manual: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "manual address"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}

	return DiscoveryModel{
		Scanning:     false,
		EndpointList: endpointList,
		Selected:     false,
		Timeout:      timeout,
		ManualMode:   false,
		AddrInput:    addrInput,
		Spinner:      s,
		ProgressBar:  progressBar,
		Help:         h,
		Keys:         keys,
		ManualKeys:   manualKeys,
		ScanningKeys: scanningKeys,
		EmptyKeys:    emptyKeys,
	}
}

// Init initializes the discovery model
func (m DiscoveryModel) Init() tea.Cmd {
	// Start scanning immediately - send start message then begin scan
	return tea.Batch(
		func() tea.Msg { return scanStartMsg{} },
		scanEndpoints(m.Timeout),
		m.Spinner.Tick,
	)
}

// Update handles messages and updates the model
func (m DiscoveryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.ManualMode {
			return m.updateManualMode(msg)
		}
		return m.updateNormalMode(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		// Update list size
		m.EndpointList.SetWidth(msg.Width - 4)
		m.EndpointList.SetHeight(msg.Height - 10) // Leave room for header/footer

	case scanStartMsg:
		m.Scanning = true
		m.ScanStartTime = time.Now()

	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		// Convert endpoints to list items
		items := make([]list.Item, len(msg.endpoints))
		for i, endpoint := range msg.endpoints {
			items[i] = endpointItem{endpoint: endpoint}
		}
		m.EndpointList.SetItems(items)

	case spinner.TickMsg:
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	// Update list if not in manual mode or scanning
	if !m.ManualMode && !m.Scanning {
		m.EndpointList, cmd = m.EndpointList.Update(msg)
	}

	return m, cmd
}

// updateNormalMode handles keyboard input in normal daemon list mode
func (m DiscoveryModel) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", " ":
		// Mark the selected daemon; the coordinator picks it up
		if selectedItem := m.EndpointList.SelectedItem(); selectedItem != nil {
			m.Selected = true
			return m, nil
		}

	case "r":
		// Rescan
		m.EndpointList.SetItems([]list.Item{})
		m.Err = nil
		return m, tea.Batch(
			func() tea.Msg { return scanStartMsg{} },
			scanEndpoints(m.Timeout),
			m.Spinner.Tick,
		)

	case "m":
		// Switch to manual address entry mode
		m.ManualMode = true
		m.ManualErr = nil
		m.AddrInput.SetValue("")
		m.AddrInput.Focus()
	}

	// Let the list handle up/down navigation
	return m, nil
}

// updateManualMode handles keyboard input in manual address entry mode
func (m DiscoveryModel) updateManualMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "ctrl+c", "esc":
		// Cancel manual entry
		m.ManualMode = false
		m.ManualErr = nil
		m.AddrInput.SetValue("")
		m.AddrInput.Blur()
		return m, nil

	case "enter":
		value := m.AddrInput.Value()
		if value != "" {
			endpoint, err := ParseEndpoint(value)
			if err != nil {
				m.ManualErr = err
				return m, nil
			}
			// Add to list
			newItem := endpointItem{endpoint: endpoint}
			items := append([]list.Item{newItem}, m.EndpointList.Items()...)
			m.EndpointList.SetItems(items)
			m.EndpointList.Select(0) // Select the newly added item
			m.ManualMode = false
			m.ManualErr = nil
			m.AddrInput.SetValue("")
			m.AddrInput.Blur()
			return m, nil
		}
	}

	// Update the text input
	m.AddrInput, cmd = m.AddrInput.Update(msg)
	return m, cmd
}

// ParseEndpoint turns "host", "host:port" or "[v6-literal]:port" input into
// an endpoint. A bare host gets the default daemon port. The manual entry
// field and the --server flag both go through here.
func ParseEndpoint(input string) (*discovery.Endpoint, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty address")
	}

	host := input
	port := verify.DefaultPort

	if h, p, err := net.SplitHostPort(input); err == nil {
		n, convErr := strconv.Atoi(p)
		if convErr != nil || n < 1 || n > 65535 {
			return nil, fmt.Errorf("invalid port %q", p)
		}
		host, port = h, n
	} else if strings.Count(input, ":") >= 2 && !strings.Contains(input, "[") {
		// Bare IPv6 literal without a port
		host = input
	} else if strings.Contains(input, ":") {
		return nil, fmt.Errorf("invalid address %q", input)
	}

	if host == "" {
		return nil, fmt.Errorf("empty host")
	}

	return &discovery.Endpoint{
		Instance:     "manual",
		Hostname:     host,
		IP:           host,
		Port:         port,
		DiscoveredAt: time.Now(),
	}, nil
}

// View renders the discovery screen
func (m DiscoveryModel) View() string {
	// Use default width if not set
	width := m.Width
	if width == 0 {
		width = MinTerminalWidth
	}

	// Build main content area
	var content string
	if m.ManualMode {
		content = m.renderManualEntry()
	} else if m.Scanning {
		content = m.renderScanning(width)
	} else {
		content = m.renderEndpointResults()
	}

	// Determine context-sensitive help text using bubbles/help
	var helpText string
	if m.ManualMode {
		helpText = m.Help.View(m.ManualKeys)
	} else if m.Scanning {
		helpText = m.Help.View(m.ScanningKeys)
	} else if len(m.EndpointList.Items()) > 0 {
		helpText = m.Help.View(m.Keys)
	} else {
		helpText = m.Help.View(m.EmptyKeys)
	}

	// Wrap with application container (full-screen layout with height)
	return RenderApplicationContainer(content, helpText, m.Width, m.Height)
}

// renderScanning renders a prominent, centered scanning progress display
func (m DiscoveryModel) renderScanning(width int) string {
	elapsed := time.Since(m.ScanStartTime)
	elapsedSec := int(elapsed.Seconds())

	// Progress against the configured scan window
	window := int(m.Timeout.Seconds())
	if window < 1 {
		window = 1
	}
	progressPercent := min(100, (elapsedSec*100)/window)
	progressFloat := float64(progressPercent) / 100.0

	// Build content components
	title := fmt.Sprintf("%s SEARCHING FOR DAEMONS", m.Spinner.View())
	subtitle := "Scanning your network for pinpane daemons..."

	// Use bubbles/progress component (ViewAs already includes percentage display)
	progressBar := m.ProgressBar.ViewAs(progressFloat)
	elapsedText := fmt.Sprintf("Elapsed: %ds", elapsedSec)

	// Use lipgloss.JoinVertical for layout composition
	content := lipgloss.JoinVertical(lipgloss.Center,
		"", // Top spacing
		TitleStyle.Render(title),
		"",
		SubtitleStyle.Render(subtitle),
		"",
		progressBar,
		"",
		SubtitleStyle.Render(elapsedText),
		"", // Bottom spacing
	)

	// Use lipgloss.Place for centering
	return lipgloss.Place(width, 0, lipgloss.Center, lipgloss.Top, content)
}

// renderEndpointResults renders the daemon list or "no daemons found" message
func (m DiscoveryModel) renderEndpointResults() string {
	var b strings.Builder

	b.WriteString("\n")

	if m.Err != nil {
		// Error state
		b.WriteString(RenderError(fmt.Sprintf("Scan failed: %v", m.Err)))
		b.WriteString("\n\n")

		// Troubleshooting hints
		b.WriteString("  Troubleshooting:\n")
		b.WriteString("    • Check the daemon is running with announcements on\n")
		b.WriteString("    • Multicast DNS needs the same local network segment\n")
		b.WriteString("    • Check firewall rules for UDP port 5353\n")
		b.WriteString("    • Use 'm' to enter the daemon address manually\n")

	} else if len(m.EndpointList.Items()) == 0 {
		// No daemons found
		b.WriteString("  ")
		warningStyle := lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
		b.WriteString(warningStyle.Render("⚠ No daemons found on your network"))
		b.WriteString("\n\n")

		b.WriteString("  Troubleshooting:\n")
		b.WriteString("    • Check the daemon is running with announcements on\n")
		b.WriteString("    • Multicast DNS needs the same local network segment\n")
		b.WriteString("    • Check firewall rules for UDP port 5353\n")
		b.WriteString("    • Use 'm' to enter the daemon address manually\n")
		b.WriteString("\n")

	} else {
		// Daemons found - render the list
		b.WriteString(m.EndpointList.View())
	}

	return b.String()
}

// renderManualEntry renders the manual address entry dialog
func (m DiscoveryModel) renderManualEntry() string {
	var b strings.Builder

	b.WriteString(RenderSubtitle("Enter daemon address"))
	b.WriteString("\n\n")

	// Input box using textinput component
	b.WriteString("  Address: ")
	b.WriteString(m.AddrInput.View())
	b.WriteString("\n\n")

	if m.ManualErr != nil {
		b.WriteString("  ")
		b.WriteString(InlineErrorStyle.Render(fmt.Sprintf("✗ %v", m.ManualErr)))
		b.WriteString("\n\n")
	}

	b.WriteString(RenderSubtitle(fmt.Sprintf("  host, host:port or [v6]:port; default port %d", verify.DefaultPort)))
	b.WriteString("\n")

	return b.String()
}

// GetSelectedEndpoint returns the selected daemon endpoint (if any)
func (m DiscoveryModel) GetSelectedEndpoint() *discovery.Endpoint {
	if m.Selected {
		if selectedItem := m.EndpointList.SelectedItem(); selectedItem != nil {
			if item, ok := selectedItem.(endpointItem); ok {
				return item.endpoint
			}
		}
	}
	return nil
}

// scanEndpoints builds a command that performs one daemon discovery scan
func scanEndpoints(timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		endpoints, err := discovery.Scan(timeout)
		return scanCompleteMsg{
			endpoints: endpoints,
			err:       err,
		}
	}
}
