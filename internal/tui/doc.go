// Package tui implements the interactive full-screen thermostat dial.
//
// Built on Bubble Tea, it hosts a dial.Widget: terminal input becomes dial
// events, and the effects the widget returns become commands.
//
// # Screens
//
//   - Connecting: spinner while the backend delivers its first state
//   - Dial: the ring, the set-point badges and the mode menu
//   - Error: the backend gave up; r retries, q quits
//
// # Input
//
// Keys nudge the edited set-point by one step (↑/↓, +/-, k/j), tab swaps
// between low and high in a dual band, m opens the mode menu. The mouse
// drags the ring, taps the centre controls, scrolls to nudge and clicks the
// mode line. Terminal cells are mapped to dial coordinates by ui.DialView.
//
// # Commits
//
// Every interaction re-arms a commit.Scheduler. When the quiet period
// passes the widget emits its set-points, and a write is sent only if they
// differ from the last state the entity reported. A failed write shows the
// entity's own values again. Run flushes a pending commit on exit.
//
// # Concurrency
//
// The backend runs in its own goroutine and reports through a channel that
// the model listens on with a command, so all model updates stay on the
// Bubble Tea event loop.
//
// # Usage Example
//
//	err := tui.Run(ctx, tui.Options{
//	    Backend: client,
//	    Dial:    cfg,
//	    Title:   "climate.living_room",
//	    Source:  "http://homeassistant.local:8123",
//	})
package tui
