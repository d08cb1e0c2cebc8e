package dial

import (
	"time"

	"github.com/muurk/thermodial/internal/climate"
)

// Event is an input to Widget.HandleEvent.
type Event interface {
	isEvent()
}

// Pointer coordinates are relative to the dial centre, in the same unit as
// Config.Radius, with y growing downwards.

// PointerDown is a press of a pointer over the dial.
type PointerDown struct {
	ID      int
	X, Y    float64
	Primary bool // Primary button (left mouse, touch contact)
}

// PointerMove reports a pointer position while pressed.
type PointerMove struct {
	ID   int
	X, Y float64
}

// PointerUp is the release of a pointer.
type PointerUp struct {
	ID int
}

// PointerCancel reports that the host aborted the pointer interaction.
type PointerCancel struct {
	ID int
}

// LostCapture reports that the host could not keep the pointer captured.
type LostCapture struct {
	ID int
}

// Tap activates a discrete nudge control.
type Tap struct {
	Control Control
}

// PulseElapsed ends the highlight started by EffectPulse.
type PulseElapsed struct {
	Control Control
}

// CommitElapsed is delivered when the pending-commit delay has passed
// without further interaction.
type CommitElapsed struct{}

// SelectSetpoint makes low or high the edited set-point in dual mode.
type SelectSetpoint struct {
	Setpoint Setpoint
}

// ExternalState is a state push from the climate entity.
type ExternalState struct {
	State climate.State
}

// MenuToggle opens or closes the mode menu.
type MenuToggle struct{}

// MenuMove moves the menu cursor by Delta entries, wrapping around.
type MenuMove struct {
	Delta int
}

// MenuChoose selects the entry under the cursor.
type MenuChoose struct{}

// MenuSelect selects an entry by index (pointer click on the menu).
type MenuSelect struct {
	Index int
}

// MenuClose closes the menu without choosing.
type MenuClose struct{}

func (PointerDown) isEvent()    {}
func (PointerMove) isEvent()    {}
func (PointerUp) isEvent()      {}
func (PointerCancel) isEvent()  {}
func (LostCapture) isEvent()    {}
func (Tap) isEvent()            {}
func (PulseElapsed) isEvent()   {}
func (CommitElapsed) isEvent()  {}
func (SelectSetpoint) isEvent() {}
func (ExternalState) isEvent()  {}
func (MenuToggle) isEvent()     {}
func (MenuMove) isEvent()       {}
func (MenuChoose) isEvent()     {}
func (MenuSelect) isEvent()     {}
func (MenuClose) isEvent()      {}

// Effect is a side effect requested by HandleEvent. The host performs it.
type Effect interface {
	isEffect()
}

// EffectCapturePointer asks the host to route all events of a pointer to
// the dial. Failure is not an error.
type EffectCapturePointer struct {
	ID int
}

// EffectReleasePointer undoes EffectCapturePointer.
type EffectReleasePointer struct {
	ID int
}

// EffectScheduleCommit (re)arms the commit timer. Any previously armed
// timer is replaced.
type EffectScheduleCommit struct {
	Delay time.Duration
}

// EffectPulse asks the host to deliver PulseElapsed after Duration.
type EffectPulse struct {
	Control  Control
	Duration time.Duration
}

// EffectCommit carries the set-points to write to the external system.
type EffectCommit struct {
	Request climate.TemperatureRequest
}

// EffectSetMode asks the host to switch hvac mode right away.
type EffectSetMode struct {
	Mode string
}

func (EffectCapturePointer) isEffect() {}
func (EffectReleasePointer) isEffect() {}
func (EffectScheduleCommit) isEffect() {}
func (EffectPulse) isEffect()          {}
func (EffectCommit) isEffect()         {}
func (EffectSetMode) isEffect()        {}
