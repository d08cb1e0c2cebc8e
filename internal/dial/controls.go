package dial

import "math"

// Control identifies a discrete tap control in the middle of the dial.
type Control int

const (
	ControlNone Control = iota
	ControlUp
	ControlDown
	ControlLowUp
	ControlLowDown
	ControlHighUp
	ControlHighDown
)

// String returns the control name
func (c Control) String() string {
	switch c {
	case ControlUp:
		return "up"
	case ControlDown:
		return "down"
	case ControlLowUp:
		return "low-up"
	case ControlLowDown:
		return "low-down"
	case ControlHighUp:
		return "high-up"
	case ControlHighDown:
		return "high-down"
	default:
		return "none"
	}
}

// Direction returns +1 for increasing controls and -1 for decreasing ones.
func (c Control) Direction() int {
	switch c {
	case ControlUp, ControlLowUp, ControlHighUp:
		return 1
	case ControlDown, ControlLowDown, ControlHighDown:
		return -1
	default:
		return 0
	}
}

// Region classifies a point on the dial.
type Region int

const (
	RegionOutside Region = iota
	RegionDrag
	RegionControl
)

// controlDeadBand is the half-height of the label row between up and down
// controls, in Radius units.
const controlDeadBand = 0.5

// HitTest locates a dial-relative point. Points inside the control disc
// resolve to a control; in dual mode the disc is split into quadrants
// (left = low, right = high, top = increase, bottom = decrease).
func HitTest(cfg Config, m Model, x, y float64) (Region, Control) {
	cfg = cfg.withDefaults()
	radius := float64(cfg.Radius)
	if radius <= 0 {
		return RegionOutside, ControlNone
	}
	r := math.Hypot(x, y) / radius

	if r <= cfg.ControlRadius {
		if math.Abs(y) < controlDeadBand {
			return RegionOutside, ControlNone
		}
		up := y < 0
		if m.IsDualModeActive() {
			switch {
			case x < 0 && up:
				return RegionControl, ControlLowUp
			case x < 0:
				return RegionControl, ControlLowDown
			case up:
				return RegionControl, ControlHighUp
			default:
				return RegionControl, ControlHighDown
			}
		}
		if up {
			return RegionControl, ControlUp
		}
		return RegionControl, ControlDown
	}

	if r >= cfg.DragInner && r <= cfg.DragOuter {
		return RegionDrag, ControlNone
	}
	return RegionOutside, ControlNone
}

// controlTarget resolves which set-point a control nudges.
func controlTarget(m Model, c Control) (Setpoint, bool) {
	switch c {
	case ControlUp, ControlDown:
		return m.EditableSetpoint(), true
	case ControlLowUp, ControlLowDown:
		if !m.Dual {
			return SetpointTarget, true
		}
		return SetpointLow, true
	case ControlHighUp, ControlHighDown:
		if !m.Dual {
			return SetpointTarget, true
		}
		return SetpointHigh, true
	}
	return SetpointTarget, false
}

// Controls returns the controls laid out for the model's current mode.
func Controls(m Model) []Control {
	if m.IsDualModeActive() {
		return []Control{ControlLowUp, ControlHighUp, ControlLowDown, ControlHighDown}
	}
	return []Control{ControlUp, ControlDown}
}
