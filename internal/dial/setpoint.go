package dial

import (
	"math"
	"strconv"
	"strings"

	"github.com/muurk/thermodial/internal/climate"
)

// changeEpsilon is the smallest set-point change that counts as a change.
// Anything below it is pointer jitter.
const changeEpsilon = 1e-4

// Setpoint names one of the editable set-points.
type Setpoint int

const (
	SetpointTarget Setpoint = iota
	SetpointLow
	SetpointHigh
)

// String returns the set-point name
func (s Setpoint) String() string {
	switch s {
	case SetpointTarget:
		return "target"
	case SetpointLow:
		return "low"
	case SetpointHigh:
		return "high"
	default:
		return "unknown"
	}
}

// HVACState is the operating state tag that drives editing rules and tick
// colouring.
type HVACState string

const (
	HVACHeating HVACState = "heating"
	HVACCooling HVACState = "cooling"
	HVACDual    HVACState = "dual"
	HVACOff     HVACState = "off"
	HVACIdle    HVACState = "idle"
	HVACUnknown HVACState = "unknown"
)

// dualStates lists the states in which both low and high are editable.
var dualStates = map[HVACState]bool{
	HVACDual: true,
	HVACIdle: true,
	HVACOff:  true,
}

// DeriveHVACState maps an entity's hvac mode and current action onto the
// dial's state tag.
func DeriveHVACState(mode, action string, dual bool) HVACState {
	if mode == climate.ModeOff {
		return HVACOff
	}
	if dual && (mode == climate.ModeHeatCool || mode == climate.ModeAuto) {
		return HVACDual
	}
	switch action {
	case climate.ActionHeating, climate.ActionPreheating:
		return HVACHeating
	case climate.ActionCooling:
		return HVACCooling
	case climate.ActionIdle:
		return HVACIdle
	case climate.ActionOff:
		return HVACOff
	}
	switch mode {
	case climate.ModeHeat:
		return HVACHeating
	case climate.ModeCool:
		return HVACCooling
	}
	return HVACUnknown
}

// Model is the live set-point state of one dial.
type Model struct {
	Min     float64
	Max     float64
	Ambient float64

	Target float64
	Low    float64
	High   float64
	Dual   bool

	HVACState HVACState

	InControl    bool     // User is editing; external pushes do not overwrite set-points
	Active       Setpoint // Set-point currently shown and edited
	RingRotation float64  // Indicator ring angle, (-180, 180]
}

// NewModel returns a model in single-target mode with no valid range yet.
func NewModel() Model {
	return Model{
		Min:       math.NaN(),
		Max:       math.NaN(),
		Ambient:   math.NaN(),
		Target:    math.NaN(),
		Low:       math.NaN(),
		High:      math.NaN(),
		HVACState: HVACUnknown,
		Active:    SetpointTarget,
	}
}

// ValidRange reports whether Min and Max support mapping.
func (m Model) ValidRange() bool {
	return ValidRange(m.Min, m.Max)
}

// Mapper returns the angle mapper for the model's current range.
func (m Model) Mapper(cfg Config) Mapper {
	return NewMapper(cfg, m.Min, m.Max)
}

// Value returns the current value of a set-point.
func (m Model) Value(which Setpoint) float64 {
	switch which {
	case SetpointLow:
		return m.Low
	case SetpointHigh:
		return m.High
	default:
		return m.Target
	}
}

func (m *Model) setValue(which Setpoint, v float64) {
	switch which {
	case SetpointLow:
		m.Low = v
	case SetpointHigh:
		m.High = v
	default:
		m.Target = v
	}
}

// IsDualModeActive reports whether both low and high are editable.
func (m Model) IsDualModeActive() bool {
	return m.Dual && dualStates[m.HVACState]
}

// EditableSetpoint returns the set-point that discrete controls and drags
// act on when no explicit choice has been made.
func (m Model) EditableSetpoint() Setpoint {
	if !m.Dual {
		return SetpointTarget
	}
	if m.IsDualModeActive() {
		if m.Active == SetpointHigh {
			return SetpointHigh
		}
		return SetpointLow
	}
	// Dual band present but only one side is meaningful for the running action.
	if m.HVACState == HVACCooling {
		return SetpointHigh
	}
	return SetpointLow
}

// Bounds returns the effective range a set-point may move within.
func (m Model) Bounds(cfg Config, which Setpoint) (lo, hi float64) {
	lo, hi = m.Min, m.Max
	if !m.Dual {
		return lo, hi
	}
	switch which {
	case SetpointLow:
		if isFinite(m.High) {
			hi = math.Min(hi, m.High-cfg.IdleZone)
		}
	case SetpointHigh:
		if isFinite(m.Low) {
			lo = math.Max(lo, m.Low+cfg.IdleZone)
		}
	}
	return lo, hi
}

// Set applies a raw value to a set-point: the value is stepped, clamped
// into the set-point's effective range and stored only when it moved by
// more than a jitter threshold. It reports whether the model changed.
func (m Model) Set(cfg Config, which Setpoint, raw float64) (Model, bool) {
	if !m.ValidRange() || math.IsNaN(raw) {
		return m, false
	}
	if which != SetpointTarget && !m.Dual {
		return m, false
	}

	lo, hi := m.Bounds(cfg, which)
	if lo > hi {
		// The range cannot hold the idle zone; enforceIdleZone collapses the band.
		lo, hi = m.Min, m.Max
	}
	v := ApplyStep(cfg.Step, raw)
	v = math.Max(lo, math.Min(hi, v))

	cur := m.Value(which)
	if isFinite(cur) && math.Abs(v-cur) <= changeEpsilon {
		return m, false
	}

	m.setValue(which, v)
	m = m.enforceIdleZone(cfg)
	return m, true
}

// Nudge moves a set-point by whole steps.
func (m Model) Nudge(cfg Config, which Setpoint, steps int) (Model, bool) {
	cur := m.Value(which)
	if !isFinite(cur) {
		cur = m.Ambient
	}
	if !isFinite(cur) {
		cur = (m.Min + m.Max) / 2
	}
	return m.Set(cfg, which, cur+float64(steps)*cfg.Step)
}

// enforceIdleZone keeps low and high at least IdleZone apart. When the range
// cannot hold the zone both collapse onto their midpoint.
func (m Model) enforceIdleZone(cfg Config) Model {
	if !m.Dual || !isFinite(m.Low) || !isFinite(m.High) {
		return m
	}
	if m.High-m.Low >= cfg.IdleZone-1e-9 {
		return m
	}
	mid := ApplyStep(cfg.Step, (m.Low+m.High)/2)
	m.Low, m.High = mid, mid
	return m
}

// DetermineActiveSetpoint picks whichever of low and high lies closer to
// the probe angle. Ties go to low.
func (m Model) DetermineActiveSetpoint(cfg Config, angle float64) Setpoint {
	mp := m.Mapper(cfg)
	dLow := math.Abs(AngleDifference(angle, mp.ValueToAngle(m.Low)))
	dHigh := math.Abs(AngleDifference(angle, mp.ValueToAngle(m.High)))
	if dHigh < dLow {
		return SetpointHigh
	}
	return SetpointLow
}

// WithExternal folds an external state push into the model. Set-points are
// left alone while the user is in control.
func (m Model) WithExternal(cfg Config, st climate.State) Model {
	m.Min = st.Min
	m.Max = st.Max
	m.Ambient = derefOr(st.Ambient, math.NaN())
	dual := st.TargetLow != nil && st.TargetHigh != nil
	// A switch between one target and a low/high band invalidates whatever
	// is being edited, so the entity's values are taken even mid-edit.
	adopt := !m.InControl || dual != m.Dual || !m.setpointsFinite(dual)
	m.Dual = dual
	m.HVACState = DeriveHVACState(st.Mode, st.Action, m.Dual)

	if adopt {
		if st.Target != nil {
			m.Target = m.clampExternal(*st.Target)
		}
		if m.Dual {
			m.Low = m.clampExternal(*st.TargetLow)
			m.High = m.clampExternal(*st.TargetHigh)
			if m.Low > m.High {
				mid := (m.Low + m.High) / 2
				m.Low, m.High = mid, mid
			}
		}
	}

	switch {
	case !m.Dual:
		m.Active = SetpointTarget
	case m.Active == SetpointTarget:
		m.Active = m.EditableSetpoint()
	}

	if adopt && m.ValidRange() {
		m.RingRotation = NormalizeAngle(m.Mapper(cfg).ValueToAngle(m.Value(m.Active)))
	}
	return m
}

// setpointsFinite reports whether the set-points a dual or single entity
// writes hold real values.
func (m Model) setpointsFinite(dual bool) bool {
	if dual {
		return isFinite(m.Low) && isFinite(m.High)
	}
	return isFinite(m.Target)
}

func (m Model) clampExternal(v float64) float64 {
	if !m.ValidRange() {
		return v
	}
	return clamp(v, m.Min, m.Max)
}

// Displayed returns the set-point values currently on the dial.
func (m Model) Displayed() (target, low, high float64) {
	return m.Target, m.Low, m.High
}

// Request builds the write the host should send for the current set-points.
func (m Model) Request() climate.TemperatureRequest {
	if m.Dual {
		return climate.DualRequest(m.Low, m.High)
	}
	return climate.TargetRequest(m.Target)
}

// ApplyStep rounds raw to the nearest multiple of step, keeping the decimal
// precision step itself is written with (0.5 gives one decimal place).
func ApplyStep(step, raw float64) float64 {
	if !(step > 0) || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return raw
	}
	v := math.Round(raw/step) * step
	scale := math.Pow(10, float64(stepDecimals(step)))
	v = math.Round(v*scale) / scale
	if v == 0 {
		v = 0 // drop negative zero
	}
	return v
}

// stepDecimals counts the decimal places in the shortest representation of step.
func stepDecimals(step float64) int {
	s := strconv.FormatFloat(step, 'f', -1, 64)
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	return len(s) - i - 1
}

func derefOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
