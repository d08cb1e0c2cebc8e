// Package dial implements the interaction engine behind the round thermostat
// dial: angle/value mapping, the set-point model, the pointer drag state
// machine, the render projection and the mode menu.
//
// # Architecture
//
// All state lives in explicit value types. A Widget bundles the immutable
// Config, the live Model, the in-flight DragContext and the mode Menu.
// Input arrives as Event values and is processed by a pure transition
// function:
//
//	w, effects := w.HandleEvent(dial.PointerDown{ID: 1, X: dx, Y: dy, Primary: true})
//
// The returned effects describe side effects for the host to perform
// (capture a pointer, arm the commit timer, write a new set-point, switch
// mode). The widget itself never touches a terminal, a timer or a network.
//
// # Rendering
//
// Project turns a Widget into a Projection: which ticks are highlighted,
// the indicator ring rotation, the centre label and up to three value badges.
// The TUI draws the projection; tests inspect it directly.
//
// # Angles
//
// Angles are in degrees. 0 is twelve o'clock and positive angles run
// clockwise. The usable arc runs from -OffsetDegrees to
// TickDegrees-OffsetDegrees.
package dial
