package dial

import "testing"

func TestHitTestSingle(t *testing.T) {
	cfg := DefaultConfig()
	m := singleModel(22)

	tests := []struct {
		name        string
		x, y        float64
		wantRegion  Region
		wantControl Control
	}{
		{"upper control", 0, -3, RegionControl, ControlUp},
		{"lower control", 1, 3, RegionControl, ControlDown},
		{"label row", 2, 0.2, RegionOutside, ControlNone},
		{"ring", 0, -8, RegionDrag, ControlNone},
		{"ring edge", 11, 0, RegionDrag, ControlNone},
		{"between controls and ring", 0, -4.7, RegionOutside, ControlNone},
		{"far away", 30, 0, RegionOutside, ControlNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			region, ctl := HitTest(cfg, m, tt.x, tt.y)
			if region != tt.wantRegion || ctl != tt.wantControl {
				t.Errorf("HitTest(%v, %v) = %v/%v, want %v/%v", tt.x, tt.y, region, ctl, tt.wantRegion, tt.wantControl)
			}
		})
	}
}

func TestHitTestDualQuadrants(t *testing.T) {
	cfg := DefaultConfig()
	m := dualModel(20, 24)

	tests := []struct {
		x, y float64
		want Control
	}{
		{-2, -2, ControlLowUp},
		{-2, 2, ControlLowDown},
		{2, -2, ControlHighUp},
		{2, 2, ControlHighDown},
	}

	for _, tt := range tests {
		_, ctl := HitTest(cfg, m, tt.x, tt.y)
		if ctl != tt.want {
			t.Errorf("HitTest(%v, %v) = %v, want %v", tt.x, tt.y, ctl, tt.want)
		}
	}
}

func TestControlDirection(t *testing.T) {
	for _, c := range []Control{ControlUp, ControlLowUp, ControlHighUp} {
		if c.Direction() != 1 {
			t.Errorf("%v.Direction() = %d, want 1", c, c.Direction())
		}
	}
	for _, c := range []Control{ControlDown, ControlLowDown, ControlHighDown} {
		if c.Direction() != -1 {
			t.Errorf("%v.Direction() = %d, want -1", c, c.Direction())
		}
	}
	if ControlNone.Direction() != 0 {
		t.Error("ControlNone.Direction() != 0")
	}
}

func TestControlTargetInSingleMode(t *testing.T) {
	m := singleModel(22)
	which, ok := controlTarget(m, ControlHighUp)
	if !ok || which != SetpointTarget {
		t.Errorf("controlTarget(high-up) on single = %v, %v", which, ok)
	}
}
