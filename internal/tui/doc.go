// Package tui implements the interactive login application.
//
// The application is a small state machine over five screens:
//
//	Discovery -> Login -> Verifying -> Success
//	                               \-> Failure
//
// AppModel owns the current screen, the shared verify client and the
// window size. Each screen is its own Bubble Tea model; AppModel routes
// messages to the active one and watches for the messages that drive
// transitions (an endpoint selection, a login submit, a verify result).
//
// The verify client persists across attempts on purpose: the daemon
// budgets attempts per connection, so retrying on the same client burns
// down the budget while "new connection" on the failure screen closes
// the client and starts over with a fresh one.
//
// Every screen renders through RenderApplicationContainer, which wraps
// the content in the shared header, footer and help bar.
package tui
