package codeinput

// FocusHandle is the focus capability shared between a controller and its
// renderer. The controller owns the handle and drives it through Request
// and Release; a renderer only observes it, either by polling Focused or by
// registering a change hook.
type FocusHandle struct {
	focused  bool
	onChange []func(focused bool)
}

// NewFocusHandle returns an unfocused handle.
func NewFocusHandle() *FocusHandle {
	return &FocusHandle{}
}

// Request marks the handle focused.
func (h *FocusHandle) Request() {
	h.set(true)
}

// Release marks the handle unfocused.
func (h *FocusHandle) Release() {
	h.set(false)
}

// Focused reports the current focus state.
func (h *FocusHandle) Focused() bool {
	return h.focused
}

// OnChange registers fn to run whenever the focus state flips. Hooks run
// in registration order on the same call stack as the flip.
func (h *FocusHandle) OnChange(fn func(focused bool)) {
	if fn == nil {
		return
	}
	h.onChange = append(h.onChange, fn)
}

func (h *FocusHandle) set(focused bool) {
	if h.focused == focused {
		return
	}
	h.focused = focused
	for _, fn := range h.onChange {
		fn(focused)
	}
}
