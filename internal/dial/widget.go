package dial

import (
	"fmt"
)

// Widget is the complete state of one thermostat dial.
type Widget struct {
	Config  Config
	Model   Model
	Drag    DragContext
	Menu    Menu
	Pulsing Control // Control currently showing tap acknowledgement
}

// NewWidget creates a widget in single-target mode.
func NewWidget(cfg Config) (Widget, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Widget{}, fmt.Errorf("failed to create dial: %w", err)
	}
	return Widget{
		Config: cfg,
		Model:  NewModel(),
		Menu:   NewMenu(nil, ""),
	}, nil
}

// HandleEvent is the widget's transition function. It returns the new
// widget and the side effects the host must carry out, in order.
func (w Widget) HandleEvent(ev Event) (Widget, []Effect) {
	switch ev := ev.(type) {
	case ExternalState:
		w.Model = w.Model.WithExternal(w.Config, ev.State)
		w.Menu = w.Menu.WithModes(ev.State.AvailableModes, ev.State.Mode)
		return w, nil

	case PointerDown:
		return w.pointerDown(ev)
	case PointerMove:
		return w.pointerMove(ev)
	case PointerUp:
		return w.endDrag(ev.ID, true)
	case PointerCancel:
		return w.endDrag(ev.ID, true)
	case LostCapture:
		return w.endDrag(ev.ID, false)

	case Tap:
		return w.tap(ev.Control)

	case PulseElapsed:
		if w.Pulsing == ev.Control {
			w.Pulsing = ControlNone
		}
		return w, nil

	case SelectSetpoint:
		return w.selectSetpoint(ev.Setpoint)

	case CommitElapsed:
		return w.commit()

	case MenuToggle:
		w.Menu = w.Menu.Toggle()
		return w, nil
	case MenuMove:
		w.Menu = w.Menu.Move(ev.Delta)
		return w, nil
	case MenuClose:
		w.Menu.Open = false
		return w, nil
	case MenuChoose:
		return w.chooseMode(w.Menu.Cursor)
	case MenuSelect:
		return w.chooseMode(ev.Index)
	}
	return w, nil
}

// commit ends the editing episode and hands the set-points to the host.
func (w Widget) commit() (Widget, []Effect) {
	if w.Drag.Active() {
		// Still held down: wait for another quiet period.
		return w, []Effect{EffectScheduleCommit{Delay: w.Config.Pending}}
	}
	if !w.Model.InControl {
		return w, nil
	}
	w.Model.InControl = false
	if !w.Model.ValidRange() {
		return w, nil
	}
	w.Model.RingRotation = w.valueAngle(w.Model.Active)
	req := w.Model.Request()
	if req.Validate() != nil {
		// The entity never reported the set-points this request needs.
		return w, nil
	}
	return w, []Effect{EffectCommit{Request: req}}
}

func (w Widget) selectSetpoint(which Setpoint) (Widget, []Effect) {
	if !w.Model.IsDualModeActive() || which == SetpointTarget || !w.Model.ValidRange() {
		return w, nil
	}
	w.Model.Active = which
	w.Model.InControl = true
	w.Model.RingRotation = w.valueAngle(which)
	return w, []Effect{EffectScheduleCommit{Delay: w.Config.Pending}}
}

func (w Widget) chooseMode(index int) (Widget, []Effect) {
	var mode Mode
	var ok bool
	w.Menu, mode, ok = w.Menu.Choose(index)
	if !ok {
		return w, nil
	}
	return w, []Effect{EffectSetMode{Mode: mode.ID}}
}

// Displayed returns the set-point values currently shown.
func (w Widget) Displayed() (target, low, high float64) {
	return w.Model.Displayed()
}

// IsDual reports whether the widget shows a low/high band.
func (w Widget) IsDual() bool {
	return w.Model.Dual
}

// InControl reports whether the user is inside an editing episode.
func (w Widget) InControl() bool {
	return w.Model.InControl
}
