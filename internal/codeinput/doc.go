// Package codeinput implements the state controller for segmented
// code-entry fields (PIN, SMS and OTP style inputs).
//
// A Controller owns the composite text value of one field, tracks which
// slot is active, validates every candidate string against an optional
// pattern, and notifies subscribers when its state changes. It is decoupled
// from any rendering toolkit: a renderer reads Controller state to draw
// slots, and a transport (keyboard, IME, or a test fake) feeds it edits.
//
// # State Model
//
// The controller keeps the accepted value, a required length, an obscure
// flag and a derived active index:
//   - The value never exceeds the required length once one is configured.
//   - The active index always equals the value length; editing is strictly
//     append or truncate at the end, so the next unfilled slot doubles as
//     the write cursor. When the field is full the active index is one past
//     the last slot.
//   - The obscure flag is presentation only. Toggling it notifies
//     subscribers but never changes the stored value.
//
// # The Mutation Path
//
// Every value change, whether it comes from a keystroke, a paste, SetValue,
// Clear or a reconfiguration, funnels through a single internal path that
// truncates over-length candidates, drops exact duplicates silently,
// rejects candidates that fail the pattern (instructing the attached
// transport to resynchronize to the last accepted value), and otherwise
// accepts, firing the completion callback exactly once per transition into
// a full field.
//
// Rejection is deliberately silent: a rejected keystroke simply does not
// appear. No mutation method returns an error.
//
// # Transport Contract
//
// The host connects its input source through the Session interface. The
// host delivers full replacement candidates to HandleEdit and the submit
// action to HandleAction; the controller calls Session.ReportEditingState
// to snap a drifting transport buffer back to accepted state, Session.Show
// on focus gain and Session.Close on focus loss or teardown.
//
// # Usage
//
//	ctrl, err := codeinput.NewWithOptions(codeinput.Options{Pattern: `[0-9]*`})
//	if err != nil {
//	    return err
//	}
//	ctrl.Configure(6, true)
//	ctrl.SetOnComplete(func() { submit(ctrl.Value()) })
//	unsub := ctrl.Subscribe(repaint)
//	defer unsub()
//	defer ctrl.Close()
//
//	ctrl.HandleEdit("1")
//	ctrl.HandleEdit("12")
//
// # Concurrency
//
// A Controller is not synchronized. It is designed for the usual UI
// ownership model: one event loop mutates it, and all transitions are
// synchronous and atomic with respect to that loop. Sharing one controller
// across concurrently running loops is not supported.
package codeinput
