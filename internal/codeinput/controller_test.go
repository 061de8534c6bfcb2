package codeinput

import (
	"testing"
)

// editingState is one ReportEditingState instruction captured by the fake.
type editingState struct {
	value  string
	cursor int
}

// fakeSession records every transport instruction the controller issues,
// standing in for a live keyboard/IME binding.
type fakeSession struct {
	reported []editingState
	shows    int
	closes   int
}

func (s *fakeSession) ReportEditingState(value string, cursor int) {
	s.reported = append(s.reported, editingState{value: value, cursor: cursor})
}

func (s *fakeSession) Show() { s.shows++ }

func (s *fakeSession) Close() { s.closes++ }

// newTestController builds a configured controller with a subscriber
// counter, a completion counter and an attached fake session. The
// session's initial attach sync is discarded so tests only see traffic
// caused by their own operations.
func newTestController(t *testing.T, length int, pattern string) (*Controller, *fakeSession, *int, *int) {
	t.Helper()
	ctrl, err := NewWithOptions(Options{Pattern: pattern})
	if err != nil {
		t.Fatalf("NewWithOptions() error = %v", err)
	}
	ctrl.Configure(length, false)

	notifies := new(int)
	ctrl.Subscribe(func() { *notifies++ })

	completions := new(int)
	ctrl.SetOnComplete(func() { *completions++ })

	session := &fakeSession{}
	ctrl.AttachSession(session)
	session.reported = nil

	return ctrl, session, notifies, completions
}

func TestControllerApply(t *testing.T) {
	tests := []struct {
		name        string
		length      int
		pattern     string
		initial     string
		candidate   string
		wantValue   string
		wantNotify  int
		wantResyncs int
	}{
		{
			name:       "accepts in-bound candidate",
			length:     6,
			candidate:  "123",
			wantValue:  "123",
			wantNotify: 1,
		},
		{
			name:       "truncates over-length candidate",
			length:     4,
			candidate:  "123456",
			wantValue:  "1234",
			wantNotify: 1,
		},
		{
			name:      "no-op on identical candidate",
			length:    6,
			initial:   "12",
			candidate: "12",
			wantValue: "12",
		},
		{
			name:      "no-op when truncation lands on current value",
			length:    2,
			initial:   "12",
			candidate: "1234",
			wantValue: "12",
		},
		{
			name:        "rejects pattern mismatch and resyncs",
			length:      6,
			pattern:     "[0-9]*",
			initial:     "12",
			candidate:   "12a",
			wantValue:   "12",
			wantResyncs: 1,
		},
		{
			name:       "accepts clear through empty candidate",
			length:     6,
			pattern:    "[0-9]*",
			initial:    "12",
			candidate:  "",
			wantValue:  "",
			wantNotify: 1,
		},
		{
			name:        "pattern requiring one char rejects clear",
			length:      6,
			pattern:     "[0-9]+",
			initial:     "12",
			candidate:   "",
			wantValue:   "12",
			wantResyncs: 1,
		},
		{
			name:       "unconfigured length accepts unbounded",
			length:     0,
			candidate:  "123456789",
			wantValue:  "123456789",
			wantNotify: 1,
		},
		{
			name:        "pattern is matched against the whole string",
			length:      6,
			pattern:     "[0-9]*",
			candidate:   "a1",
			wantValue:   "",
			wantResyncs: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, session, notifies, _ := newTestController(t, tt.length, tt.pattern)
			if tt.initial != "" {
				ctrl.SetValue(tt.initial)
				*notifies = 0
				session.reported = nil
			}

			ctrl.SetValue(tt.candidate)

			if got := ctrl.Value(); got != tt.wantValue {
				t.Errorf("Value() = %q, want %q", got, tt.wantValue)
			}
			if got := ctrl.ActiveIndex(); got != len([]rune(tt.wantValue)) {
				t.Errorf("ActiveIndex() = %d, want %d", got, len([]rune(tt.wantValue)))
			}
			if *notifies != tt.wantNotify {
				t.Errorf("notifications = %d, want %d", *notifies, tt.wantNotify)
			}
			if len(session.reported) != tt.wantResyncs {
				t.Errorf("resyncs = %d, want %d", len(session.reported), tt.wantResyncs)
			}
			if tt.wantResyncs > 0 {
				last := session.reported[len(session.reported)-1]
				if last.value != tt.wantValue || last.cursor != len([]rune(tt.wantValue)) {
					t.Errorf("resync = %+v, want value %q cursor %d", last, tt.wantValue, len([]rune(tt.wantValue)))
				}
			}
		})
	}
}

func TestControllerCharAt(t *testing.T) {
	ctrl, _, _, _ := newTestController(t, 6, "")
	ctrl.SetValue("ab")

	tests := []struct {
		name  string
		index int
		want  string
	}{
		{name: "first filled slot", index: 0, want: "a"},
		{name: "second filled slot", index: 1, want: "b"},
		{name: "first unfilled slot", index: 2, want: ""},
		{name: "beyond required length", index: 10, want: ""},
		{name: "negative index", index: -1, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ctrl.CharAt(tt.index); got != tt.want {
				t.Errorf("CharAt(%d) = %q, want %q", tt.index, got, tt.want)
			}
		})
	}
}

func TestControllerCompletionFiresOncePerFill(t *testing.T) {
	ctrl, _, _, completions := newTestController(t, 4, "[0-9]*")

	ctrl.SetValue("123")
	if *completions != 0 {
		t.Fatalf("completions before fill = %d, want 0", *completions)
	}

	ctrl.SetValue("1234")
	if *completions != 1 {
		t.Fatalf("completions after fill = %d, want 1", *completions)
	}

	// Re-applying the full value is a no-op and must not re-trigger.
	ctrl.SetValue("1234")
	if *completions != 1 {
		t.Fatalf("completions after idempotent apply = %d, want 1", *completions)
	}

	// Reconfiguring to the same settings is a no-op as well.
	ctrl.Configure(4, false)
	if *completions != 1 {
		t.Fatalf("completions after no-op reconfigure = %d, want 1", *completions)
	}

	// Replacing one full value with another stays full: no transition.
	ctrl.SetValue("5678")
	if *completions != 1 {
		t.Fatalf("completions after full replacement = %d, want 1", *completions)
	}

	// Clearing and refilling is a fresh transition.
	ctrl.Clear()
	ctrl.SetValue("9999")
	if *completions != 2 {
		t.Fatalf("completions after clear and refill = %d, want 2", *completions)
	}
}

func TestControllerReconfigureTruncates(t *testing.T) {
	ctrl, _, notifies, _ := newTestController(t, 6, "")
	ctrl.SetValue("123456")
	*notifies = 0

	ctrl.Configure(4, false)

	if got := ctrl.Value(); got != "1234" {
		t.Errorf("Value() after shrink = %q, want %q", got, "1234")
	}
	if got := ctrl.ActiveIndex(); got != 4 {
		t.Errorf("ActiveIndex() after shrink = %d, want 4", got)
	}
	if *notifies != 1 {
		t.Errorf("notifications after shrink = %d, want 1", *notifies)
	}
}

func TestControllerReconfigureTruncationReachesFull(t *testing.T) {
	// Shrinking 6 -> 4 lands the value exactly on the new capacity; that
	// is a transition into a full field and fires completion.
	ctrl, _, _, completions := newTestController(t, 6, "")
	ctrl.SetValue("123456")

	ctrl.Configure(4, false)

	if *completions != 1 {
		t.Errorf("completions after truncating shrink = %d, want 1", *completions)
	}
}

func TestControllerConfigureNotifiesSettingChanges(t *testing.T) {
	ctrl, _, notifies, _ := newTestController(t, 4, "")

	ctrl.Configure(6, false)
	if *notifies != 1 {
		t.Errorf("notifications after length change = %d, want 1", *notifies)
	}

	ctrl.Configure(6, true)
	if *notifies != 2 {
		t.Errorf("notifications after obscure change = %d, want 2", *notifies)
	}

	ctrl.Configure(6, true)
	if *notifies != 2 {
		t.Errorf("notifications after no-op configure = %d, want 2", *notifies)
	}
}

func TestControllerObscureToggle(t *testing.T) {
	ctrl, _, notifies, _ := newTestController(t, 4, "")
	ctrl.SetValue("12")
	*notifies = 0

	ctrl.SetObscured(true)
	if !ctrl.Obscured() {
		t.Error("Obscured() = false after SetObscured(true)")
	}
	if got := ctrl.Value(); got != "12" {
		t.Errorf("Value() changed by obscure toggle: %q", got)
	}
	if *notifies != 1 {
		t.Errorf("notifications after toggle = %d, want 1", *notifies)
	}

	// Setting the same state again is silent.
	ctrl.SetObscured(true)
	if *notifies != 1 {
		t.Errorf("notifications after redundant toggle = %d, want 1", *notifies)
	}
}

func TestControllerSlotFocused(t *testing.T) {
	ctrl, _, _, _ := newTestController(t, 4, "")
	ctrl.SetValue("12")

	// Unfocused fields highlight nothing.
	if ctrl.SlotFocused(2, false) {
		t.Error("SlotFocused(2) = true on unfocused field")
	}

	ctrl.Focus()
	if !ctrl.SlotFocused(2, false) {
		t.Error("SlotFocused(2) = false, want true at active index")
	}
	if ctrl.SlotFocused(1, false) {
		t.Error("SlotFocused(1) = true, want false below active index")
	}

	// Full field: unclamped queries track the out-of-range active index,
	// clamped queries stick to the last slot.
	ctrl.SetValue("1234")
	if !ctrl.SlotFocused(4, false) {
		t.Error("SlotFocused(4, clamp=false) = false, want true when full")
	}
	if ctrl.SlotFocused(4, true) {
		t.Error("SlotFocused(4, clamp=true) = true, want false when full")
	}
	if !ctrl.SlotFocused(3, true) {
		t.Error("SlotFocused(3, clamp=true) = false, want true when full")
	}
}

func TestControllerEndToEndEntry(t *testing.T) {
	ctrl, _, notifies, completions := newTestController(t, 6, "[0-9]*")

	candidates := []string{"1", "12", "123", "1234", "12345", "123456"}
	for i, candidate := range candidates {
		ctrl.HandleEdit(candidate)
		if got := ctrl.ActiveIndex(); got != i+1 {
			t.Fatalf("ActiveIndex() after %q = %d, want %d", candidate, got, i+1)
		}
		if i < len(candidates)-1 && *completions != 0 {
			t.Fatalf("completions after %q = %d, want 0", candidate, *completions)
		}
	}

	if *completions != 1 {
		t.Errorf("completions = %d, want 1", *completions)
	}
	if *notifies != len(candidates) {
		t.Errorf("notifications = %d, want %d", *notifies, len(candidates))
	}
	if got := ctrl.CharAt(5); got != "6" {
		t.Errorf("CharAt(5) = %q, want %q", got, "6")
	}
	if got := ctrl.CharAt(6); got != "" {
		t.Errorf("CharAt(6) = %q, want %q", got, "")
	}
	if !ctrl.Complete() {
		t.Error("Complete() = false after filling every slot")
	}
}

func TestControllerApplyPaste(t *testing.T) {
	tests := []struct {
		name        string
		length      int
		pattern     string
		initial     string
		paste       string
		wantValue   string
		wantResyncs int
	}{
		{
			name:      "valid paste accepted",
			length:    6,
			pattern:   "[0-9]*",
			paste:     "123456",
			wantValue: "123456",
		},
		{
			name:      "invalid paste dropped without resync",
			length:    6,
			pattern:   "[0-9]*",
			initial:   "12",
			paste:     "12ab56",
			wantValue: "12",
		},
		{
			name:      "over-length paste truncated by the mutation path",
			length:    4,
			pattern:   "[0-9]*",
			paste:     "123456",
			wantValue: "1234",
		},
		{
			name:        "over-length paste whose truncation fails is rejected with resync",
			length:      4,
			pattern:     "[0-9]{6}",
			initial:     "",
			paste:       "123456",
			wantValue:   "",
			wantResyncs: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, session, _, _ := newTestController(t, tt.length, tt.pattern)
			if tt.initial != "" {
				ctrl.SetValue(tt.initial)
				session.reported = nil
			}

			ctrl.ApplyPaste(tt.paste)

			if got := ctrl.Value(); got != tt.wantValue {
				t.Errorf("Value() = %q, want %q", got, tt.wantValue)
			}
			if len(session.reported) != tt.wantResyncs {
				t.Errorf("resyncs = %d, want %d", len(session.reported), tt.wantResyncs)
			}
		})
	}
}

func TestControllerFocusLifecycle(t *testing.T) {
	ctrl, session, notifies, _ := newTestController(t, 4, "")

	ctrl.Focus()
	if !ctrl.Focused() {
		t.Fatal("Focused() = false after Focus()")
	}
	if session.shows != 1 {
		t.Errorf("session shows = %d, want 1", session.shows)
	}
	if *notifies != 1 {
		t.Errorf("notifications after focus = %d, want 1", *notifies)
	}

	// Focusing an already focused field is silent.
	ctrl.Focus()
	if session.shows != 1 || *notifies != 1 {
		t.Errorf("redundant Focus() produced side effects: shows=%d notifies=%d", session.shows, *notifies)
	}

	ctrl.Blur()
	if ctrl.Focused() {
		t.Fatal("Focused() = true after Blur()")
	}
	if session.closes != 1 {
		t.Errorf("session closes = %d, want 1", session.closes)
	}
	if *notifies != 2 {
		t.Errorf("notifications after blur = %d, want 2", *notifies)
	}
}

func TestControllerAttachSessionSyncs(t *testing.T) {
	ctrl, _, _, _ := newTestController(t, 6, "")
	ctrl.SetValue("123")
	ctrl.Focus()

	late := &fakeSession{}
	ctrl.AttachSession(late)

	if late.shows != 1 {
		t.Errorf("attach while focused: shows = %d, want 1", late.shows)
	}
	if len(late.reported) != 1 {
		t.Fatalf("attach sync count = %d, want 1", len(late.reported))
	}
	if got := late.reported[0]; got.value != "123" || got.cursor != 3 {
		t.Errorf("attach sync = %+v, want value %q cursor 3", got, "123")
	}
}

func TestControllerHandleAction(t *testing.T) {
	ctrl, _, _, completions := newTestController(t, 6, "")
	ctrl.SetValue("12")

	// The transport's done/submit signal maps to the completion callback
	// regardless of fill state.
	ctrl.HandleAction()
	if *completions != 1 {
		t.Errorf("completions after action = %d, want 1", *completions)
	}
}

func TestControllerPatternCompileError(t *testing.T) {
	ctrl, err := NewWithOptions(Options{Pattern: "("})
	if err == nil {
		t.Fatal("NewWithOptions() with malformed pattern: error = nil, want error")
	}
	if ctrl != nil {
		t.Errorf("NewWithOptions() with malformed pattern returned controller %v", ctrl)
	}
}

func TestControllerConstructionIsSilent(t *testing.T) {
	ctrl, err := NewWithOptions(Options{Value: "1234"})
	if err != nil {
		t.Fatalf("NewWithOptions() error = %v", err)
	}

	completions := 0
	ctrl.SetOnComplete(func() { completions++ })
	notifies := 0
	ctrl.Subscribe(func() { notifies++ })

	// Configuring to exactly the pre-filled length announces the new
	// settings but must not fire completion: no value mutation happened.
	ctrl.Configure(4, false)

	if got := ctrl.Value(); got != "1234" {
		t.Errorf("Value() = %q, want %q", got, "1234")
	}
	if !ctrl.Complete() {
		t.Error("Complete() = false for pre-filled field at capacity")
	}
	if completions != 0 {
		t.Errorf("completions = %d, want 0: construction and configuration never fire", completions)
	}
	if notifies != 1 {
		t.Errorf("notifications = %d, want 1 for the configuration change", notifies)
	}
}

func TestControllerCloseGuards(t *testing.T) {
	ctrl, session, notifies, completions := newTestController(t, 4, "[0-9]*")
	ctrl.SetValue("12")
	ctrl.Focus()
	*notifies = 0

	ctrl.Close()
	if session.closes != 1 {
		t.Fatalf("session closes at teardown = %d, want 1", session.closes)
	}

	// Everything after Close is a no-op and must not panic.
	ctrl.SetValue("34")
	ctrl.Clear()
	ctrl.Configure(8, true)
	ctrl.ApplyPaste("1234")
	ctrl.HandleEdit("9")
	ctrl.HandleAction()
	ctrl.SetObscured(true)
	ctrl.Focus()
	ctrl.Blur()
	ctrl.Close()

	if got := ctrl.Value(); got != "12" {
		t.Errorf("Value() mutated after Close: %q", got)
	}
	if *notifies != 0 {
		t.Errorf("notifications after Close = %d, want 0", *notifies)
	}
	if *completions != 0 {
		t.Errorf("completions after Close = %d, want 0", *completions)
	}
	if session.closes != 1 {
		t.Errorf("session closes = %d, want 1", session.closes)
	}
}

func TestControllerSubscribeUnsubscribe(t *testing.T) {
	ctrl, _, _, _ := newTestController(t, 4, "")

	calls := 0
	unsub := ctrl.Subscribe(func() { calls++ })

	ctrl.SetValue("1")
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	unsub()
	ctrl.SetValue("12")
	if calls != 1 {
		t.Errorf("calls after unsubscribe = %d, want 1", calls)
	}

	// Unsubscribing twice is harmless.
	unsub()

	// A subscriber may unsubscribe itself mid fan-out.
	var once func()
	onceCalls := 0
	once = ctrl.Subscribe(func() {
		onceCalls++
		once()
	})
	ctrl.SetValue("123")
	ctrl.SetValue("1234")
	if onceCalls != 1 {
		t.Errorf("self-unsubscribing subscriber ran %d times, want 1", onceCalls)
	}
}

func TestControllerMultibyteValue(t *testing.T) {
	ctrl, _, _, completions := newTestController(t, 3, "")

	ctrl.SetValue("äöü")
	if got := ctrl.CharAt(1); got != "ö" {
		t.Errorf("CharAt(1) = %q, want %q", got, "ö")
	}
	if got := ctrl.ActiveIndex(); got != 3 {
		t.Errorf("ActiveIndex() = %d, want 3 for three runes", got)
	}
	if *completions != 1 {
		t.Errorf("completions = %d, want 1", *completions)
	}

	// Truncation counts runes, not bytes.
	ctrl.Configure(2, false)
	if got := ctrl.Value(); got != "äö" {
		t.Errorf("Value() after shrink = %q, want %q", got, "äö")
	}
}
