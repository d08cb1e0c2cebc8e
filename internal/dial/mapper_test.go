package dial

import (
	"math"
	"testing"
)

func testMapper(min, max float64) Mapper {
	return NewMapper(DefaultConfig(), min, max)
}

func TestValueToAngle(t *testing.T) {
	mp := testMapper(15, 30)

	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{"minimum", 15, -150},
		{"maximum", 30, 150},
		{"middle", 22.5, 0},
		{"below range saturates", -100, -150},
		{"above range saturates", 1000, 150},
		{"twenty", 20, -50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mp.ValueToAngle(tt.value)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ValueToAngle(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestAngleToValue(t *testing.T) {
	mp := testMapper(15, 30)

	tests := []struct {
		angle float64
		want  float64
	}{
		{-150, 15},
		{150, 30},
		{0, 22.5},
		{-1000, 15},
		{1000, 30},
	}

	for _, tt := range tests {
		got := mp.AngleToValue(tt.angle)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("AngleToValue(%v) = %v, want %v", tt.angle, got, tt.want)
		}
	}
}

func TestMapperRoundTrip(t *testing.T) {
	mp := testMapper(15, 30)

	if got := mp.AngleToValue(mp.ValueToAngle(22)); math.Abs(got-22) > 1e-6 {
		t.Errorf("round trip of 22 = %v", got)
	}

	for v := 15.0; v <= 30; v += 0.37 {
		got := mp.AngleToValue(mp.ValueToAngle(v))
		if math.Abs(got-v) > 1e-6 {
			t.Errorf("round trip of %v = %v", v, got)
		}
	}
}

func TestMapperDegenerateRange(t *testing.T) {
	tests := []struct {
		name     string
		min, max float64
	}{
		{"equal", 20, 20},
		{"inverted", 30, 15},
		{"nan", math.NaN(), 30},
		{"infinite", 15, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mp := testMapper(tt.min, tt.max)
			if mp.Valid() {
				t.Fatal("Valid() = true, want false")
			}
			if got := mp.ValueToAngle(21); got != 0 {
				t.Errorf("ValueToAngle() = %v, want 0", got)
			}
			got := mp.AngleToValue(45)
			if !(got == tt.min || (math.IsNaN(got) && math.IsNaN(tt.min))) {
				t.Errorf("AngleToValue() = %v, want %v", got, tt.min)
			}
			if got := mp.ValuePerDegree(); got != 0 {
				t.Errorf("ValuePerDegree() = %v, want 0", got)
			}
		})
	}
}

func TestValuePerDegree(t *testing.T) {
	mp := testMapper(15, 30)
	if got := mp.ValuePerDegree(); math.Abs(got-0.05) > 1e-12 {
		t.Errorf("ValuePerDegree() = %v, want 0.05", got)
	}
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{180, 180},
		{-180, 180},
		{190, -170},
		{-190, 170},
		{360, 0},
		{540, 180},
		{720, 0},
		{-725, -5},
		{1e6, NormalizeAngle(math.Mod(1e6, 360))},
		{math.NaN(), 0},
	}

	for _, tt := range tests {
		got := NormalizeAngle(tt.in)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizeAngle(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if got <= -180 || got > 180 {
			t.Errorf("NormalizeAngle(%v) = %v, outside (-180, 180]", tt.in, got)
		}
	}
}

func TestAngleDifference(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{10, 350, 20},
		{350, 10, -20},
		{180, 0, 180},
		{0, 180, 180},
		{-170, 170, 20},
		{45, 45, 0},
	}

	for _, tt := range tests {
		got := AngleDifference(tt.a, tt.b)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("AngleDifference(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestPointerAngle(t *testing.T) {
	tests := []struct {
		name string
		x, y float64
		want float64
	}{
		{"twelve o'clock", 0, -1, 0},
		{"three o'clock", 1, 0, 90},
		{"six o'clock", 0, 1, 180},
		{"nine o'clock", -1, 0, -90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PointerAngle(tt.x, tt.y)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("PointerAngle(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestPointOnRingInvertsPointerAngle(t *testing.T) {
	for a := -175.0; a <= 180; a += 12.5 {
		x, y := PointOnRing(a, 7)
		if got := PointerAngle(x, y); math.Abs(got-a) > 1e-9 {
			t.Errorf("PointerAngle(PointOnRing(%v)) = %v", a, got)
		}
	}
}
