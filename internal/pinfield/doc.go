// Package pinfield provides a Bubble Tea widget for segmented one-time-code
// entry: one visible cell per character, a blink cursor on the slot that
// receives the next keystroke, and optional masking for codes that should
// not sit readable on screen.
//
// The widget is a thin presentation layer. Every rule about what the field
// accepts lives in the codeinput package: input patterns are matched against
// the whole candidate string, over-length input is truncated, and rejected
// candidates leave the accepted value untouched. pinfield translates
// terminal events into that model and turns its state back into cells.
//
// # Usage
//
// Build a field from a profile and wire it into a Bubble Tea model:
//
//	profile := config.DefaultProfiles()["pin6"]
//	field, err := pinfield.NewWithProfile(profile)
//	if err != nil {
//		return err
//	}
//	cmd := field.Focus()
//
// Forward messages from the host's Update and watch for completion:
//
//	case pinfield.CompleteMsg:
//		code := msg.Value
//		// hand the code to the verifier
//	default:
//		m.field, cmd = m.field.Update(msg)
//
// CompleteMsg is emitted when the last slot fills and again each time the
// field refills after dropping below full, and on every press of the submit
// key regardless of fill state. Pressing submit early therefore delivers a
// short Value; hosts that require a full code check Complete first.
//
// # Keys
//
// The default key map reads printable characters into the active slot and
// binds backspace (delete last), ctrl+u (clear), ctrl+v (clipboard paste),
// ctrl+o (toggle masking) and enter (submit). Bracketed paste from the
// terminal is treated like a clipboard paste: the pasted text is validated
// as a whole and dropped silently when it does not fit the pattern.
//
// A rejected typed character sets Err to ErrPatternMismatch until the next
// input event, which hosts can use to flash the field.
package pinfield
