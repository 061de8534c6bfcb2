package pinfield

import (
	"errors"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tversen/pinpane/internal/codeinput"
	"github.com/tversen/pinpane/internal/config"
)

// Internal messages for clipboard operations.
type (
	pasteMsg    string
	pasteErrMsg struct{ error }
)

// CompleteMsg is emitted when the field fills its last slot or the user
// presses the submit key. Value carries the accepted text at that moment,
// which may be shorter than the slot count when submit was pressed early.
type CompleteMsg struct {
	Value string
}

// ErrPatternMismatch is set on Model.Err when a typed character is rejected
// by the field's input pattern. It is cleared by the next input event.
var ErrPatternMismatch = errors.New("input rejected by pattern")

// KeyMap is the key bindings for actions within the code field.
type KeyMap struct {
	Backspace     key.Binding
	Clear         key.Binding
	Paste         key.Binding
	ToggleObscure key.Binding
	Submit        key.Binding
}

// DefaultKeyMap returns the default set of key bindings for the code field.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Backspace:     key.NewBinding(key.WithKeys("backspace", "ctrl+h"), key.WithHelp("backspace", "delete last")),
		Clear:         key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("ctrl+u", "clear")),
		Paste:         key.NewBinding(key.WithKeys("ctrl+v"), key.WithHelp("ctrl+v", "paste")),
		ToggleObscure: key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "show/hide")),
		Submit:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
	}
}

// Styles holds the render styles for the field's slots.
type Styles struct {
	Filled lipgloss.Style
	Empty  lipgloss.Style
}

// DefaultStyles returns the default slot styles: filled slots bold, empty
// slots faint. Hosts usually replace these with their own palette.
func DefaultStyles() Styles {
	return Styles{
		Filled: lipgloss.NewStyle().Bold(true),
		Empty:  lipgloss.NewStyle().Faint(true),
	}
}

// completionLatch counts completion callbacks so Update can tell whether the
// event it just routed completed the field. Bumps that happen outside Update,
// for example through a direct SetValue, are deliberately not surfaced as
// messages; callers of those methods check Complete themselves.
type completionLatch struct {
	count int
}

// Model is a Bubble Tea widget for one segmented code-entry field. It renders
// one cell per slot, keeps the blink cursor on the slot that will receive the
// next character, and emits CompleteMsg when the field fills or the user
// submits.
//
// All input state lives in an embedded codeinput.Controller, so the widget
// inherits its rules: candidates run through the input pattern as whole
// strings, over-length input is truncated, and a rejected candidate leaves
// the accepted value untouched.
type Model struct {
	// KeyMap encodes the keybindings recognized by the widget.
	KeyMap KeyMap

	// Styles sets the per-slot render styles.
	Styles Styles

	// Cursor is the blink cursor drawn on the active slot.
	Cursor cursor.Model

	// Placeholder is the rune drawn in unfilled slots.
	Placeholder rune

	// EchoCharacter is the rune drawn in filled slots while the field is
	// obscured.
	EchoCharacter rune

	// SlotSeparator is rendered between adjacent slots.
	SlotSeparator string

	// Err holds the outcome of the most recent input event: nil after an
	// accepted or no-op event, ErrPatternMismatch after a rejected
	// character, or the clipboard error after a failed paste.
	Err error

	ctrl    *codeinput.Controller
	session *termSession
	latch   *completionLatch
}

// New returns a code field with the given number of slots and no input
// pattern.
func New(length int) Model {
	ctrl := codeinput.New()
	ctrl.Configure(length, false)
	return newModel(ctrl, defaultEchoCharacter)
}

// NewWithProfile returns a code field configured from a field profile:
// slot count, input pattern, obscuring and the mask rune all come from the
// profile. A profile that fails validation or carries a malformed pattern is
// the one construction fault.
func NewWithProfile(profile *config.FieldProfile) (Model, error) {
	if profile == nil {
		return Model{}, errors.New("nil field profile")
	}
	if err := profile.Validate(); err != nil {
		return Model{}, err
	}
	ctrl, err := codeinput.NewWithOptions(codeinput.Options{Pattern: profile.Pattern})
	if err != nil {
		return Model{}, err
	}
	ctrl.Configure(profile.Length, profile.Obscure)
	return newModel(ctrl, profile.MaskRune()), nil
}

const defaultEchoCharacter = '•'

func newModel(ctrl *codeinput.Controller, mask rune) Model {
	sess := &termSession{}
	latch := &completionLatch{}
	ctrl.SetOnComplete(func() { latch.count++ })
	ctrl.AttachSession(sess)
	return Model{
		KeyMap:        DefaultKeyMap(),
		Styles:        DefaultStyles(),
		Cursor:        cursor.New(),
		Placeholder:   '_',
		EchoCharacter: mask,
		SlotSeparator: " ",
		ctrl:          ctrl,
		session:       sess,
		latch:         latch,
	}
}

// Focus gives the field input focus and starts the cursor blinking.
func (m *Model) Focus() tea.Cmd {
	m.ctrl.Focus()
	return m.Cursor.Focus()
}

// Blur removes input focus and stops the cursor.
func (m *Model) Blur() {
	m.ctrl.Blur()
	m.Cursor.Blur()
}

// Focused reports whether the field has input focus.
func (m Model) Focused() bool {
	return m.ctrl.Focused()
}

// Value returns the accepted text.
func (m Model) Value() string {
	return m.ctrl.Value()
}

// SetValue replaces the field's content. The replacement runs through the
// same acceptance rules as typed input; no CompleteMsg is emitted even when
// the new value fills the field.
func (m *Model) SetValue(value string) {
	m.ctrl.SetValue(value)
}

// Reset empties the field.
func (m *Model) Reset() {
	m.ctrl.Clear()
}

// Length returns the configured slot count.
func (m Model) Length() int {
	return m.ctrl.RequiredLength()
}

// ActiveIndex returns the index of the slot that will receive the next
// character. When the field is full it is one past the last slot.
func (m Model) ActiveIndex() int {
	return m.ctrl.ActiveIndex()
}

// Complete reports whether every slot is filled.
func (m Model) Complete() bool {
	return m.ctrl.Complete()
}

// Obscured reports whether filled slots render as EchoCharacter.
func (m Model) Obscured() bool {
	return m.ctrl.Obscured()
}

// SetObscured sets presentation masking without touching the stored value.
func (m *Model) SetObscured(obscured bool) {
	m.ctrl.SetObscured(obscured)
}

// Configure changes the slot count and obscure flag in place. A value that
// no longer fits is truncated. As with SetValue, filling the field this way
// does not emit CompleteMsg.
func (m *Model) Configure(length int, obscure bool) {
	m.ctrl.Configure(length, obscure)
}

// Controller exposes the underlying input controller for observation, for
// example to Subscribe a secondary renderer. The completion callback belongs
// to the widget; hosts consume CompleteMsg instead of replacing it.
func (m Model) Controller() *codeinput.Controller {
	return m.ctrl
}

// Close tears the field down. Input events that resolve afterwards, such as
// a clipboard read finishing late, are ignored.
func (m *Model) Close() {
	m.ctrl.Close()
}

// Update is the Bubble Tea update loop for the field.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.ctrl.Focused() {
		return m, nil
	}

	oldActive := m.ctrl.ActiveIndex()
	fired := m.latch.count

	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.Err = nil
		if msg.Paste {
			// Bracketed paste arrives as one key event; route it through
			// the paste path so invalid content is dropped whole.
			m.ctrl.ApplyPaste(string(msg.Runes))
			break
		}
		switch {
		case key.Matches(msg, m.KeyMap.Submit):
			m.ctrl.HandleAction()
		case key.Matches(msg, m.KeyMap.Backspace):
			if v := []rune(m.ctrl.Value()); len(v) > 0 {
				m.ctrl.HandleEdit(string(v[:len(v)-1]))
			}
		case key.Matches(msg, m.KeyMap.Clear):
			m.ctrl.Clear()
		case key.Matches(msg, m.KeyMap.Paste):
			return m, Paste
		case key.Matches(msg, m.KeyMap.ToggleObscure):
			m.ctrl.SetObscured(!m.ctrl.Obscured())
		default:
			if len(msg.Runes) > 0 {
				before := m.session.reports
				m.ctrl.HandleEdit(m.ctrl.Value() + string(msg.Runes))
				if m.session.reports > before {
					// The controller resynced the session, so the
					// candidate was rejected.
					m.Err = ErrPatternMismatch
				}
			}
		}

	case pasteMsg:
		m.Err = nil
		m.ctrl.ApplyPaste(string(msg))

	case pasteErrMsg:
		m.Err = msg
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd

	if m.latch.count > fired {
		value := m.ctrl.Value()
		cmds = append(cmds, func() tea.Msg {
			return CompleteMsg{Value: value}
		})
	}

	m.Cursor, cmd = m.Cursor.Update(msg)
	cmds = append(cmds, cmd)

	if oldActive != m.ctrl.ActiveIndex() && m.Cursor.Mode() == cursor.CursorBlink {
		m.Cursor.Blink = false
		cmds = append(cmds, m.Cursor.BlinkCmd())
	}

	return m, tea.Batch(cmds...)
}

// View renders the field as one cell per slot. While the field has focus the
// active slot carries the blink cursor; when the field is full the cursor
// stays on the last slot.
func (m Model) View() string {
	n := m.ctrl.RequiredLength()
	if n == 0 {
		return ""
	}

	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(m.SlotSeparator)
		}

		ch := m.ctrl.CharAt(i)
		filled := ch != ""
		if filled && m.ctrl.Obscured() {
			ch = string(m.EchoCharacter)
		}
		if !filled {
			ch = string(m.Placeholder)
		}

		if m.ctrl.SlotFocused(i, true) {
			m.Cursor.SetChar(ch)
			b.WriteString(m.Cursor.View())
			continue
		}
		if filled {
			b.WriteString(m.Styles.Filled.Render(ch))
		} else {
			b.WriteString(m.Styles.Empty.Render(ch))
		}
	}
	return b.String()
}

// Paste is a command for reading the clipboard into the field.
func Paste() tea.Msg {
	str, err := clipboard.ReadAll()
	if err != nil {
		return pasteErrMsg{err}
	}
	return pasteMsg(str)
}

// Blink is a command used to initialize cursor blinking.
func Blink() tea.Msg {
	return cursor.Blink()
}
