package dial

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidConfig is wrapped by every error returned from Config.Validate.
var ErrInvalidConfig = errors.New("invalid dial configuration")

// Default configuration values
const (
	DefaultTickDegrees   = 300.0
	DefaultOffsetDegrees = 150.0
	DefaultNumTicks      = 61
	DefaultStep          = 0.5
	DefaultIdleZone      = 2.0
	DefaultPending       = 3 * time.Second
	DefaultRadius        = 9
	DefaultSensitivity   = 0.6

	// PulseDuration is how long a tapped control stays highlighted.
	PulseDuration = 200 * time.Millisecond
)

// Config holds the per-widget settings. It does not change after the
// widget is created.
type Config struct {
	TickDegrees   float64       // Angular span of the usable arc
	OffsetDegrees float64       // Rotation of the arc start away from 12 o'clock (counter-clockwise)
	NumTicks      int           // Number of graduation marks on the arc
	Step          float64       // Value quantization step
	IdleZone      float64       // Minimum separation between low and high
	Pending       time.Duration // Quiet period before a commit is sent
	HighlightTap  bool          // Keep tap controls visible instead of only during a pulse
	Radius        int           // Dial radius in rows
	Diameter      int           // Dial diameter in rows (2*Radius+1 when zero)

	// Sensitivity scales pointer rotation into value and ring motion.
	// Values below 1 make fine control easier.
	Sensitivity float64

	// Drag annulus, as fractions of Radius.
	DragInner float64
	DragOuter float64

	// ControlRadius is the fraction of Radius occupied by the tap controls.
	ControlRadius float64
}

// DefaultConfig returns the stock dial configuration.
func DefaultConfig() Config {
	return Config{
		TickDegrees:   DefaultTickDegrees,
		OffsetDegrees: DefaultOffsetDegrees,
		NumTicks:      DefaultNumTicks,
		Step:          DefaultStep,
		IdleZone:      DefaultIdleZone,
		Pending:       DefaultPending,
		HighlightTap:  false,
		Radius:        DefaultRadius,
		Diameter:      2*DefaultRadius + 1,
		Sensitivity:   DefaultSensitivity,
		DragInner:     0.55,
		DragOuter:     1.25,
		ControlRadius: 0.5,
	}
}

// Validate checks the configuration for values the engine cannot work with.
func (c Config) Validate() error {
	if !(c.TickDegrees > 0 && c.TickDegrees <= 360) {
		return fmt.Errorf("%w: tick_degrees must be in (0, 360], got %v", ErrInvalidConfig, c.TickDegrees)
	}
	if !isFinite(c.OffsetDegrees) {
		return fmt.Errorf("%w: offset_degrees must be finite", ErrInvalidConfig)
	}
	if c.NumTicks < 2 {
		return fmt.Errorf("%w: num_ticks must be at least 2, got %d", ErrInvalidConfig, c.NumTicks)
	}
	if !(c.Step > 0) || !isFinite(c.Step) {
		return fmt.Errorf("%w: step must be positive, got %v", ErrInvalidConfig, c.Step)
	}
	if c.IdleZone < 0 || !isFinite(c.IdleZone) {
		return fmt.Errorf("%w: idle_zone must not be negative, got %v", ErrInvalidConfig, c.IdleZone)
	}
	if c.Pending < 0 {
		return fmt.Errorf("%w: pending must not be negative, got %v", ErrInvalidConfig, c.Pending)
	}
	if c.Radius <= 0 {
		return fmt.Errorf("%w: radius must be positive, got %d", ErrInvalidConfig, c.Radius)
	}
	if !(c.Sensitivity > 0) || !isFinite(c.Sensitivity) {
		return fmt.Errorf("%w: sensitivity must be positive, got %v", ErrInvalidConfig, c.Sensitivity)
	}
	if c.DragInner < 0 || c.DragOuter <= c.DragInner {
		return fmt.Errorf("%w: drag annulus [%v, %v] is empty", ErrInvalidConfig, c.DragInner, c.DragOuter)
	}
	return nil
}

// withDefaults fills zero-valued geometry fields so hand-built configs
// (mostly in tests) still behave.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Diameter == 0 {
		c.Diameter = 2*c.Radius + 1
	}
	if c.Sensitivity == 0 {
		c.Sensitivity = d.Sensitivity
	}
	if c.DragInner == 0 && c.DragOuter == 0 {
		c.DragInner = d.DragInner
		c.DragOuter = d.DragOuter
	}
	if c.ControlRadius == 0 {
		c.ControlRadius = d.ControlRadius
	}
	return c
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
