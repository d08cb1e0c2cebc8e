package dial

import "math"

// maxStepsPerMove bounds the step loop for a single move event.
const maxStepsPerMove = 10000

// DragPhase is the state of the pointer drag machine.
type DragPhase int

const (
	PhaseIdle DragPhase = iota
	PhaseArmed
	PhaseDragging
)

// String returns the phase name
func (p DragPhase) String() string {
	switch p {
	case PhaseArmed:
		return "armed"
	case PhaseDragging:
		return "dragging"
	default:
		return "idle"
	}
}

// DragContext describes an in-progress pointer interaction. The zero value
// means no interaction.
type DragContext struct {
	Phase         DragPhase
	PointerID     int
	Setpoint      Setpoint
	StartAngle    float64
	StartRotation float64
	LastAngle     float64

	// Accum holds value-space motion not yet committed as a whole step.
	Accum float64
}

// Active reports whether a pointer is being tracked.
func (d DragContext) Active() bool {
	return d.Phase != PhaseIdle
}

func (w Widget) pointerDown(ev PointerDown) (Widget, []Effect) {
	if w.Drag.Active() || !ev.Primary || !w.Model.ValidRange() {
		return w, nil
	}

	region, ctl := HitTest(w.Config, w.Model, ev.X, ev.Y)
	switch region {
	case RegionControl:
		return w.tap(ctl)
	case RegionDrag:
	default:
		return w, nil
	}

	angle := PointerAngle(ev.X, ev.Y)
	which := w.Model.EditableSetpoint()
	if w.Model.IsDualModeActive() {
		which = w.Model.DetermineActiveSetpoint(w.Config, angle)
	}

	w.Model.Active = which
	w.Model.InControl = true
	w.Model.RingRotation = w.valueAngle(which)
	w.Drag = DragContext{
		Phase:         PhaseArmed,
		PointerID:     ev.ID,
		Setpoint:      which,
		StartAngle:    angle,
		StartRotation: w.Model.RingRotation,
		LastAngle:     angle,
	}

	return w, []Effect{
		EffectCapturePointer{ID: ev.ID},
		EffectScheduleCommit{Delay: w.Config.Pending},
	}
}

func (w Widget) pointerMove(ev PointerMove) (Widget, []Effect) {
	if !w.Drag.Active() || ev.ID != w.Drag.PointerID || !w.Model.ValidRange() {
		return w, nil
	}

	angle := PointerAngle(ev.X, ev.Y)
	delta := AngleDifference(angle, w.Drag.LastAngle)
	w.Drag.LastAngle = angle
	w.Drag.Phase = PhaseDragging

	sens := w.Config.Sensitivity
	w.Model.RingRotation = NormalizeAngle(w.Model.RingRotation + delta*sens)

	step := w.Config.Step
	tol := step * 1e-6
	w.Drag.Accum += delta * w.Model.Mapper(w.Config).ValuePerDegree() * sens

	changed := false
	for i := 0; i < maxStepsPerMove && math.Abs(w.Drag.Accum) >= step-tol; i++ {
		dir := 1
		if w.Drag.Accum < 0 {
			dir = -1
		}
		var ok bool
		w.Model, ok = w.Model.Nudge(w.Config, w.Drag.Setpoint, dir)
		changed = changed || ok
		w.Drag.Accum -= float64(dir) * step
	}
	if math.Abs(w.Drag.Accum) < tol {
		w.Drag.Accum = 0
	}

	if !changed {
		return w, nil
	}
	return w, []Effect{EffectScheduleCommit{Delay: w.Config.Pending}}
}

// endDrag finishes the interaction for pointer id. The ring snaps onto the
// committed value so no sensitivity offset remains.
func (w Widget) endDrag(id int, release bool) (Widget, []Effect) {
	if !w.Drag.Active() || id != w.Drag.PointerID {
		return w, nil
	}

	which := w.Drag.Setpoint
	w.Drag = DragContext{}
	if w.Model.ValidRange() {
		w.Model.RingRotation = w.valueAngle(which)
	}

	effects := make([]Effect, 0, 2)
	if release {
		effects = append(effects, EffectReleasePointer{ID: id})
	}
	effects = append(effects, EffectScheduleCommit{Delay: w.Config.Pending})
	return w, effects
}

// tap nudges the set-point behind a control by one step.
func (w Widget) tap(c Control) (Widget, []Effect) {
	if !w.Model.ValidRange() || c == ControlNone {
		return w, nil
	}
	which, ok := controlTarget(w.Model, c)
	if !ok {
		return w, nil
	}

	w.Model, _ = w.Model.Nudge(w.Config, which, c.Direction())
	w.Model.Active = which
	w.Model.InControl = true
	w.Model.RingRotation = w.valueAngle(which)
	w.Pulsing = c

	return w, []Effect{
		EffectPulse{Control: c, Duration: PulseDuration},
		EffectScheduleCommit{Delay: w.Config.Pending},
	}
}

func (w Widget) valueAngle(which Setpoint) float64 {
	return NormalizeAngle(w.Model.Mapper(w.Config).ValueToAngle(w.Model.Value(which)))
}
