package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/muurk/thermodial/internal/climate"
	"github.com/muurk/thermodial/internal/dial"
)

func TestHeaderRenderKeepsParamOrder(t *testing.T) {
	h := NewHeader("Thermostat status", "thermodial status",
		Param{Key: "Entity", Value: "climate.hall"},
		Param{Key: "Backend", Value: "hass"},
		Param{Key: "URL", Value: "http://ha:8123"},
	).SetWidth(80)

	out := h.Render()
	if !strings.Contains(out, "THERMOSTAT STATUS") {
		t.Errorf("Render() missing upper-cased title:\n%s", out)
	}
	entity := strings.Index(out, "climate.hall")
	backend := strings.Index(out, "hass")
	url := strings.Index(out, "http://ha:8123")
	if entity < 0 || backend < 0 || url < 0 || !(entity < backend && backend < url) {
		t.Errorf("params out of order:\n%s", out)
	}
}

func TestResultRender(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		want   []string
	}{
		{
			name:   "success",
			result: NewSuccessResult("Target set", Param{Key: "Target", Value: "22.5"}),
			want:   []string{"SUCCESS", "Target set", "Target:", "22.5"},
		},
		{
			name:   "failure",
			result: NewFailureResult("Cannot connect", errors.New("dial tcp: refused"), []string{"Check the URL"}),
			want:   []string{"FAILED", "Error: dial tcp: refused", "Troubleshooting:", "Check the URL"},
		},
		{
			name:   "warning",
			result: NewWarningResult("No change").AddDetail("Target", "21"),
			want:   []string{"WARNING", "No change", "21"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.result.SetWidth(80).Render()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("Render() missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"overwrite\n", true},
		{"  overwrite  \n", true},
		{"yes\n", false},
		{"", false},
		{"overwrite", true}, // EOF without newline
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got := Confirm(strings.NewReader(tt.input), &out, "Overwrite config", []string{"Existing instances are lost"}, "overwrite")
		if got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "Existing instances are lost") {
			t.Errorf("Confirm(%q) did not print the warnings", tt.input)
		}
	}
}

func newWidget(t *testing.T, cfg dial.Config, st climate.State) dial.Widget {
	t.Helper()
	w, err := dial.NewWidget(cfg)
	if err != nil {
		t.Fatal(err)
	}
	w, _ = w.HandleEvent(dial.ExternalState{State: st})
	return w
}

func heatState() climate.State {
	return climate.State{
		EntityID:       "climate.hall",
		Min:            7,
		Max:            35,
		Ambient:        climate.Float(19),
		Target:         climate.Float(22.5),
		Mode:           climate.ModeHeat,
		Action:         climate.ActionHeating,
		AvailableModes: []string{climate.ModeOff, climate.ModeHeat, climate.ModeHeatCool},
	}
}

func TestDialViewRender(t *testing.T) {
	cfg := dial.DefaultConfig()
	v := NewDialView(cfg)
	w := newWidget(t, cfg, heatState())

	out := v.Render(dial.Project(w))
	for _, want := range []string{"22.5", "19", "heating", "mode:", "Heat"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, activeTickGlyph) || !strings.Contains(out, tickGlyph) {
		t.Errorf("Render() should show active and idle ticks:\n%s", out)
	}
	if strings.Contains(out, upGlyph) {
		t.Errorf("controls shown without highlight_tap:\n%s", out)
	}

	lines := strings.Split(out, "\n")
	if len(lines) != v.Height()+1 {
		t.Errorf("Render() = %d lines, want grid plus mode line (%d)", len(lines), v.Height()+1)
	}
}

func TestDialViewUnavailable(t *testing.T) {
	cfg := dial.DefaultConfig()
	st := heatState()
	st.Min, st.Max = 30, 10
	out := NewDialView(cfg).Render(dial.Project(newWidget(t, cfg, st)))

	if !strings.Contains(out, "unavailable") || !strings.Contains(out, "--") {
		t.Errorf("Render() of invalid range:\n%s", out)
	}
	if strings.Contains(out, activeTickGlyph) || strings.Contains(out, tickGlyph) {
		t.Errorf("invalid range should not draw ticks:\n%s", out)
	}
}

func TestDialViewMenu(t *testing.T) {
	cfg := dial.DefaultConfig()
	v := NewDialView(cfg)
	w := newWidget(t, cfg, heatState())
	w, _ = w.HandleEvent(dial.MenuToggle{})

	p := dial.Project(w)
	out := v.Render(p)
	lines := strings.Split(out, "\n")
	if len(lines) != v.Height()+1+len(p.Menu.Modes) {
		t.Fatalf("Render() = %d lines with open menu", len(lines))
	}
	if !strings.Contains(lines[v.Height()+1+p.Menu.Cursor], "> ") {
		t.Errorf("cursor row = %q", lines[v.Height()+1+p.Menu.Cursor])
	}

	for i := range p.Menu.Modes {
		got, ok := v.MenuIndexAt(v.Height()+1+i, p.Menu)
		if !ok || got != i {
			t.Errorf("MenuIndexAt(row of %d) = %d, %v", i, got, ok)
		}
	}
	if _, ok := v.MenuIndexAt(v.ModeLineRow(), p.Menu); ok {
		t.Error("mode line resolved to a menu entry")
	}
	p.Menu.Open = false
	if _, ok := v.MenuIndexAt(v.Height()+1, p.Menu); ok {
		t.Error("closed menu resolved an entry")
	}
}

func TestDialViewControlsMatchHitTest(t *testing.T) {
	cfg := dial.DefaultConfig()
	cfg.HighlightTap = true
	v := NewDialView(cfg)

	dual := heatState()
	dual.Target = nil
	dual.TargetLow = climate.Float(20)
	dual.TargetHigh = climate.Float(24)
	dual.Mode = climate.ModeHeatCool
	dual.Action = climate.ActionIdle

	for _, st := range []climate.State{heatState(), dual} {
		w := newWidget(t, cfg, st)
		p := dial.Project(w)
		if !p.ShowControls {
			t.Fatal("highlight_tap did not show controls")
		}
		out := v.Render(p)
		if !strings.Contains(out, upGlyph) || !strings.Contains(out, downGlyph) {
			t.Errorf("controls not drawn:\n%s", out)
		}

		for _, c := range p.Controls {
			col, row := v.controlCell(c)
			x, y := v.ToDial(col, row)
			region, got := dial.HitTest(cfg, w.Model, x, y)
			if region != dial.RegionControl || got != c {
				t.Errorf("control %v drawn at (%v, %v) hits %v/%v", c, x, y, region, got)
			}
		}
	}
}

func TestDialViewToDial(t *testing.T) {
	v := NewDialView(dial.DefaultConfig())
	cx, cy := v.Center()

	if x, y := v.ToDial(cx, cy); x != 0 || y != 0 {
		t.Errorf("ToDial(centre) = %v, %v", x, y)
	}
	if x, y := v.ToDial(cx+4, cy-3); x != 2 || y != -3 {
		t.Errorf("ToDial(cx+4, cy-3) = %v, %v, want 2, -3", x, y)
	}
	if v.Width() < 4*dial.DefaultRadius+1 {
		t.Errorf("Width() = %d too narrow for the ring", v.Width())
	}
}

func TestClassColor(t *testing.T) {
	tests := []struct {
		class dial.TickClass
		want  string
	}{
		{dial.TickHeat, string(HeatColor)},
		{dial.TickCool, string(CoolColor)},
		{dial.TickDual, string(DualColor)},
		{dial.TickNone, string(IdleColor)},
	}
	for _, tt := range tests {
		if got := string(ClassColor(tt.class)); got != tt.want {
			t.Errorf("ClassColor(%q) = %v, want %v", tt.class, got, tt.want)
		}
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.PrintHeader("Status", "thermodial status", Param{Key: "Entity", Value: "climate.hall"})
	p.PrintSuccess("Done", Param{Key: "Mode", Value: "heat"})
	p.PrintError("Failed", errors.New("boom"), nil)

	out := buf.String()
	for _, want := range []string{"STATUS", "climate.hall", "Done", "heat", "boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("Printer output missing %q", want)
		}
	}
}
