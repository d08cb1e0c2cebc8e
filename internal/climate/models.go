package climate

import (
	"context"
	"fmt"
	"math"
)

// HVAC modes, as used by Home Assistant climate entities
const (
	ModeOff      = "off"
	ModeHeat     = "heat"
	ModeCool     = "cool"
	ModeHeatCool = "heat_cool"
	ModeAuto     = "auto"
	ModeDry      = "dry"
	ModeFanOnly  = "fan_only"
)

// HVAC actions (what the equipment is doing right now)
const (
	ActionOff        = "off"
	ActionHeating    = "heating"
	ActionPreheating = "preheating"
	ActionCooling    = "cooling"
	ActionDrying     = "drying"
	ActionFan        = "fan"
	ActionIdle       = "idle"
)

// writeTolerance is how close two set-points must be to count as equal.
const writeTolerance = 1e-3

// State is one snapshot of a climate entity.
// Pointer fields are nil when the entity does not report them.
type State struct {
	EntityID string `json:"entity_id" yaml:"entity_id"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`

	Ambient    *float64 `json:"current_temperature,omitempty" yaml:"current_temperature,omitempty"`
	Target     *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TargetLow  *float64 `json:"target_temp_low,omitempty" yaml:"target_temp_low,omitempty"`
	TargetHigh *float64 `json:"target_temp_high,omitempty" yaml:"target_temp_high,omitempty"`

	Min float64 `json:"min_temp" yaml:"min_temp"`
	Max float64 `json:"max_temp" yaml:"max_temp"`

	Mode           string   `json:"hvac_mode" yaml:"hvac_mode"`
	Action         string   `json:"hvac_action,omitempty" yaml:"hvac_action,omitempty"`
	AvailableModes []string `json:"hvac_modes,omitempty" yaml:"hvac_modes,omitempty"`
	Preset         string   `json:"preset_mode,omitempty" yaml:"preset_mode,omitempty"`
	Unit           string   `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// IsDual reports whether the entity exposes a low/high band.
func (s State) IsDual() bool {
	return s.TargetLow != nil && s.TargetHigh != nil
}

// String returns a short human-readable summary
func (s State) String() string {
	if s.IsDual() {
		return fmt.Sprintf("%s: %s %s..%s (now %s, %s)", s.EntityID, s.Mode,
			fmtPtr(s.TargetLow), fmtPtr(s.TargetHigh), fmtPtr(s.Ambient), s.Action)
	}
	return fmt.Sprintf("%s: %s %s (now %s, %s)", s.EntityID, s.Mode,
		fmtPtr(s.Target), fmtPtr(s.Ambient), s.Action)
}

// TemperatureRequest is a set-point write. Either Target or Low and High
// are set.
type TemperatureRequest struct {
	Target *float64 `json:"temperature,omitempty"`
	Low    *float64 `json:"target_temp_low,omitempty"`
	High   *float64 `json:"target_temp_high,omitempty"`
}

// TargetRequest builds a single set-point write.
func TargetRequest(target float64) TemperatureRequest {
	return TemperatureRequest{Target: Float(target)}
}

// DualRequest builds a low/high band write.
func DualRequest(low, high float64) TemperatureRequest {
	return TemperatureRequest{Low: Float(low), High: Float(high)}
}

// IsDual reports whether the request carries a band.
func (r TemperatureRequest) IsDual() bool {
	return r.Low != nil && r.High != nil
}

// Validate checks the request is well formed
func (r TemperatureRequest) Validate() error {
	switch {
	case r.Target != nil && (r.Low != nil || r.High != nil):
		return fmt.Errorf("request mixes target with low/high")
	case r.Target == nil && !r.IsDual():
		return fmt.Errorf("request needs either target or both low and high")
	case r.Target != nil && !finite(*r.Target):
		return fmt.Errorf("target is not a finite number")
	case r.IsDual() && (!finite(*r.Low) || !finite(*r.High)):
		return fmt.Errorf("low/high are not finite numbers")
	case r.IsDual() && *r.Low > *r.High:
		return fmt.Errorf("low %.1f above high %.1f", *r.Low, *r.High)
	}
	return nil
}

// ServiceData returns the request as Home Assistant service data.
func (r TemperatureRequest) ServiceData() map[string]any {
	data := map[string]any{}
	if r.Target != nil {
		data["temperature"] = *r.Target
	}
	if r.Low != nil {
		data["target_temp_low"] = *r.Low
	}
	if r.High != nil {
		data["target_temp_high"] = *r.High
	}
	return data
}

// String returns the request in display form
func (r TemperatureRequest) String() string {
	if r.IsDual() {
		return fmt.Sprintf("%s..%s", fmtPtr(r.Low), fmtPtr(r.High))
	}
	return fmtPtr(r.Target)
}

// NeedsWrite reports whether sending req would change the entity described
// by last.
func NeedsWrite(last State, req TemperatureRequest) bool {
	if req.IsDual() {
		return !samePtr(last.TargetLow, req.Low) || !samePtr(last.TargetHigh, req.High)
	}
	return !samePtr(last.Target, req.Target)
}

// Backend connects the dial to a climate entity.
type Backend interface {
	// Run delivers state pushes to onState until ctx is cancelled or the
	// backend fails permanently.
	Run(ctx context.Context, onState func(State)) error

	// SetTemperature writes new set-points.
	SetTemperature(ctx context.Context, req TemperatureRequest) error

	// SetMode switches the hvac mode.
	SetMode(ctx context.Context, mode string) error

	// Close releases the connection.
	Close() error
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

func samePtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return math.Abs(*a-*b) < writeTolerance
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func fmtPtr(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *p)
}
