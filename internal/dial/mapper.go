package dial

import "math"

// Mapper converts between values in [Min, Max] and angles on the dial arc.
type Mapper struct {
	TickDegrees   float64
	OffsetDegrees float64
	Min           float64
	Max           float64
}

// NewMapper creates a mapper for the given configuration and value range.
func NewMapper(cfg Config, min, max float64) Mapper {
	return Mapper{
		TickDegrees:   cfg.TickDegrees,
		OffsetDegrees: cfg.OffsetDegrees,
		Min:           min,
		Max:           max,
	}
}

// Valid reports whether the value range supports mapping.
func (m Mapper) Valid() bool {
	return ValidRange(m.Min, m.Max)
}

// ValidRange reports whether min and max are finite and min < max.
func ValidRange(min, max float64) bool {
	return isFinite(min) && isFinite(max) && max > min
}

// ValueToAngle maps a value onto the arc, saturating at both ends.
// A degenerate range maps everything to 0.
func (m Mapper) ValueToAngle(value float64) float64 {
	if !m.Valid() || math.IsNaN(value) {
		return 0
	}
	ratio := clampRatio((value-m.Min)/(m.Max-m.Min), 0, 1)
	return ratio*m.TickDegrees - m.OffsetDegrees
}

// AngleToValue maps an arc angle back to a value, saturating at both ends.
// A degenerate range returns Min.
func (m Mapper) AngleToValue(angle float64) float64 {
	if !m.Valid() || m.TickDegrees == 0 || math.IsNaN(angle) {
		return m.Min
	}
	ratio := clampRatio((angle+m.OffsetDegrees)/m.TickDegrees, 0, 1)
	return m.Min + ratio*(m.Max-m.Min)
}

// ValuePerDegree is the value change for one degree of arc.
func (m Mapper) ValuePerDegree() float64 {
	if !m.Valid() || m.TickDegrees == 0 {
		return 0
	}
	return (m.Max - m.Min) / m.TickDegrees
}

// NormalizeAngle reduces an angle into (-180, 180].
func NormalizeAngle(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0
	}
	if math.Abs(a) > 3600 {
		a = math.Mod(a, 360)
	}
	for a > 180 {
		a -= 360
	}
	for a <= -180 {
		a += 360
	}
	return a
}

// AngleDifference returns the signed shortest rotation from b to a,
// in (-180, 180].
func AngleDifference(a, b float64) float64 {
	return NormalizeAngle(a - b)
}

// PointerAngle returns the angle of a point relative to the dial centre.
// x grows to the right and y grows downwards, as on screen.
func PointerAngle(x, y float64) float64 {
	return NormalizeAngle(math.Atan2(x, -y) * 180 / math.Pi)
}

// PointOnRing returns the screen offset of an angle at the given radius.
func PointOnRing(angle, radius float64) (x, y float64) {
	rad := angle * math.Pi / 180
	return radius * math.Sin(rad), -radius * math.Cos(rad)
}

func clampRatio(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
