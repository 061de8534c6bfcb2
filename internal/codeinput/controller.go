package codeinput

import (
	"fmt"
	"regexp"
)

// Session is the transport connection the host manages on the controller's
// behalf: the live keyboard/IME binding, or a fake in tests. The controller
// issues instructions through it; the host feeds edits back in through
// HandleEdit and HandleAction.
type Session interface {
	// ReportEditingState instructs the transport to resynchronize its
	// buffer to value, with the cursor at the given rune offset. The
	// controller sends it whenever a candidate is rejected, so an external
	// buffer cannot drift from accepted state.
	ReportEditingState(value string, cursor int)
	// Show raises the input method.
	Show()
	// Close tears the session down. Implementations must tolerate being
	// closed more than once: focus loss closes the session and controller
	// teardown closes it again.
	Close()
}

// Options configures a Controller at construction time.
type Options struct {
	// Value pre-fills the controller. It is stored verbatim: construction
	// never notifies subscribers and never fires the completion callback,
	// and seeding a value consistent with Pattern is the owner's job.
	Value string

	// Pattern is a regular-expression source tested against every whole
	// candidate string before a mutation is accepted. It is compiled
	// wrapped in ^(?:...)$ so the test is a full-string match. Empty means
	// accept anything up to the configured length.
	Pattern string
}

type subscriber struct {
	id int
	fn func()
}

// Controller owns the input state of one segmented code-entry field. See
// the package documentation for the state model and the mutation path.
//
// The zero Controller is not usable; construct with New or NewWithOptions.
type Controller struct {
	value          []rune
	requiredLength int
	obscured       bool
	pattern        *regexp.Regexp

	focus   *FocusHandle
	session Session

	onComplete func()
	subs       []subscriber
	nextSub    int

	closed bool
}

// New returns a controller with no initial value and no pattern.
func New() *Controller {
	c, _ := NewWithOptions(Options{})
	return c
}

// NewWithOptions returns a controller configured by opts. A malformed
// Pattern is the one construction fault: the compile error is returned to
// the owner and no controller is created.
func NewWithOptions(opts Options) (*Controller, error) {
	c := &Controller{
		value: []rune(opts.Value),
		focus: NewFocusHandle(),
	}
	if opts.Pattern != "" {
		re, err := regexp.Compile("^(?:" + opts.Pattern + ")$")
		if err != nil {
			return nil, fmt.Errorf("compile input pattern: %w", err)
		}
		c.pattern = re
	}
	c.focus.OnChange(c.focusChanged)
	return c, nil
}

// Configure sets the required length and the obscure flag. The owning
// field calls it once at mount time and again whenever its declared
// settings change. If the current value no longer fits, it is re-applied
// through the mutation path, which truncates it; this is the only place
// truncation is driven by configuration rather than by input. Subscribers
// are notified when either setting changed even if the value did not.
func (c *Controller) Configure(length int, obscure bool) {
	if c.closed {
		return
	}
	if length < 0 {
		length = 0
	}
	changed := c.requiredLength != length || c.obscured != obscure
	c.requiredLength = length
	c.obscured = obscure
	if length > 0 && len(c.value) > length {
		// apply notifies on acceptance, covering the setting change too.
		c.apply(c.value)
		if changed && len(c.value) > length {
			// The pattern rejected the truncated value; the settings
			// still changed and renderers need to hear about it.
			c.notify()
		}
		return
	}
	if changed {
		c.notify()
	}
}

// CharAt returns the character at index, or the empty string when the slot
// at index is unfilled or out of range. It never panics: the empty string
// is the uniform "unfilled slot" representation renderers draw from.
func (c *Controller) CharAt(index int) string {
	if index < 0 || index >= len(c.value) {
		return ""
	}
	return string(c.value[index])
}

// Validate reports whether candidate passes the input pattern. Without a
// pattern every candidate passes. The empty string is tested like any
// other candidate, so a pattern that requires at least one character will
// reject clearing; pattern authors should use * quantifiers.
func (c *Controller) Validate(candidate string) bool {
	if c.pattern == nil {
		return true
	}
	return c.pattern.MatchString(candidate)
}

// SetValue submits a full replacement value through the mutation path.
func (c *Controller) SetValue(value string) {
	if c.closed {
		return
	}
	c.apply([]rune(value))
}

// Clear empties the field through the mutation path.
func (c *Controller) Clear() {
	if c.closed {
		return
	}
	c.apply(nil)
}

// ApplyPaste submits text obtained from a clipboard read. The raw text is
// validated up front and silently dropped when it fails, without touching
// the transport; an accepted paste still funnels through the mutation
// path, so over-length text is truncated there.
func (c *Controller) ApplyPaste(text string) {
	if c.closed {
		return
	}
	if !c.Validate(text) {
		return
	}
	c.apply([]rune(text))
}

// HandleEdit receives a full replacement candidate from the transport.
func (c *Controller) HandleEdit(candidate string) {
	if c.closed {
		return
	}
	c.apply([]rune(candidate))
}

// HandleAction receives the transport's done/submit signal and routes it
// to the completion callback, regardless of fill state. Hosts map their
// platform's "done" key here.
func (c *Controller) HandleAction() {
	if c.closed {
		return
	}
	c.fireComplete()
}

// apply is the single choke point every value change funnels through.
func (c *Controller) apply(candidate []rune) {
	if c.requiredLength > 0 && len(candidate) > c.requiredLength {
		candidate = candidate[:c.requiredLength]
	}
	if runesEqual(candidate, c.value) {
		return
	}
	if (c.requiredLength > 0 && len(candidate) > c.requiredLength) || !c.Validate(string(candidate)) {
		// Hold the last good state and snap the transport back to it.
		c.resyncSession()
		return
	}
	wasFull := c.full()
	c.value = candidate
	if !wasFull && c.full() {
		c.fireComplete()
	}
	c.notify()
}

// SlotFocused reports whether the slot at index should render as active.
// It is false whenever the field is unfocused. With clampToLast set and
// the field full, the comparison target is clamped to the last slot so a
// renderer can keep highlighting it instead of an out-of-range "next"
// slot.
func (c *Controller) SlotFocused(index int, clampToLast bool) bool {
	if !c.focus.Focused() {
		return false
	}
	target := len(c.value)
	if clampToLast && c.full() {
		if last := c.requiredLength - 1; last < target {
			target = last
		}
	}
	return index == target
}

// Focus requests focus. On the transition to focused the attached session
// is shown and subscribers are notified.
func (c *Controller) Focus() {
	if c.closed {
		return
	}
	c.focus.Request()
}

// Blur releases focus. On the transition to unfocused the attached session
// is closed and subscribers are notified.
func (c *Controller) Blur() {
	if c.closed {
		return
	}
	c.focus.Release()
}

// Focused reports whether the field has focus.
func (c *Controller) Focused() bool {
	return c.focus.Focused()
}

// FocusHandle exposes the owned focus capability for observation. The
// controller remains the only writer; renderers should treat the handle
// as read-only.
func (c *Controller) FocusHandle() *FocusHandle {
	return c.focus
}

// AttachSession connects the transport. Only one session is tracked at a
// time; attaching replaces any previous one without closing it. The new
// session is shown when the field already has focus and receives an
// initial editing-state sync so its buffer starts out aligned.
func (c *Controller) AttachSession(s Session) {
	if c.closed || s == nil {
		return
	}
	c.session = s
	if c.focus.Focused() {
		s.Show()
	}
	s.ReportEditingState(string(c.value), len(c.value))
}

// DetachSession drops the tracked session without closing it; the host
// keeps ownership of a swapped-out transport.
func (c *Controller) DetachSession() {
	c.session = nil
}

// SetOnComplete registers the completion callback. It fires once per
// transition into a full field and on every HandleAction.
func (c *Controller) SetOnComplete(fn func()) {
	if c.closed {
		return
	}
	c.onComplete = fn
}

// Subscribe registers fn to run after every state change (accepted value,
// obscure flag, focus, reconfiguration). Fan-out is synchronous and in
// registration order. The returned func unsubscribes; calling it more
// than once is harmless.
func (c *Controller) Subscribe(fn func()) func() {
	if c.closed || fn == nil {
		return func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// SetObscured toggles presentation masking. The stored value is never
// affected; subscribers are notified on every actual flip.
func (c *Controller) SetObscured(obscured bool) {
	if c.closed || c.obscured == obscured {
		return
	}
	c.obscured = obscured
	c.notify()
}

// Obscured reports whether renderers should mask filled slots.
func (c *Controller) Obscured() bool {
	return c.obscured
}

// Value returns the accepted text.
func (c *Controller) Value() string {
	return string(c.value)
}

// RequiredLength returns the configured slot count; 0 means the field has
// not been configured yet and fill detection is inert.
func (c *Controller) RequiredLength() int {
	return c.requiredLength
}

// ActiveIndex returns the index of the next unfilled slot. It always
// equals the value length; when the field is full it is one past the last
// slot.
func (c *Controller) ActiveIndex() int {
	return len(c.value)
}

// Complete reports whether the field is configured and every slot is
// filled.
func (c *Controller) Complete() bool {
	return c.full()
}

// Close releases the focus handle, closes any attached session and
// discards subscribers and the completion callback. Every operation on a
// closed controller is a guarded no-op, so inputs that resolve late (for
// example a clipboard read finishing after teardown) are safe.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
	c.focus.Release()
	c.subs = nil
	c.onComplete = nil
}

func (c *Controller) focusChanged(focused bool) {
	if c.closed {
		return
	}
	if c.session != nil {
		if focused {
			c.session.Show()
		} else {
			c.session.Close()
		}
	}
	c.notify()
}

func (c *Controller) full() bool {
	return c.requiredLength > 0 && len(c.value) == c.requiredLength
}

func (c *Controller) fireComplete() {
	if c.onComplete != nil {
		c.onComplete()
	}
}

func (c *Controller) resyncSession() {
	if c.session == nil {
		return
	}
	c.session.ReportEditingState(string(c.value), len(c.value))
}

func (c *Controller) notify() {
	// Snapshot so a callback may unsubscribe (or subscribe) mid fan-out.
	subs := make([]subscriber, len(c.subs))
	copy(subs, c.subs)
	for _, s := range subs {
		s.fn()
	}
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
