package dial

import (
	"math"
	"sort"
	"strconv"
)

// Placeholder replaces the centre value while two band labels are shown.
const Placeholder = "·"

// TickClass colours the highlighted arc.
type TickClass string

const (
	TickNone TickClass = ""
	TickHeat TickClass = "heat"
	TickCool TickClass = "cool"
	TickDual TickClass = "dual"
)

// Tick is one graduation mark.
type Tick struct {
	Index  int
	Angle  float64
	Active bool
}

// Label is a value split for display: integer part and first decimal.
type Label struct {
	Primary     string
	Secondary   string // first decimal digit, empty for whole numbers
	Placeholder bool
}

// String joins the label parts as plain text
func (l Label) String() string {
	if l.Secondary == "" {
		return l.Primary
	}
	return l.Primary + "." + l.Secondary
}

// Badge is a small value label riding on the ring.
type Badge struct {
	Setpoint Setpoint // Meaningless when Ambient is true
	Ambient  bool
	Angle    float64
	Label    Label
	Active   bool // Set-point being edited
}

// Projection is everything needed to draw the dial.
type Projection struct {
	Valid        bool // false when the range is unusable; hosts keep the previous picture
	Ticks        []Tick
	Class        TickClass
	RingRotation float64
	Title        string
	Center       Label
	Badges       []Badge
	Controls     []Control
	ShowControls bool
	Pulsing      Control
	Active       Setpoint
	InControl    bool
	Dual         bool
	Menu         Menu
}

// Project computes the visual state of a widget.
func Project(w Widget) Projection {
	m := w.Model
	p := Projection{
		Valid:        m.ValidRange(),
		RingRotation: NormalizeAngle(m.RingRotation),
		Controls:     Controls(m),
		ShowControls: w.Config.HighlightTap || w.Pulsing != ControlNone,
		Pulsing:      w.Pulsing,
		Active:       m.Active,
		InControl:    m.InControl,
		Dual:         m.Dual,
		Menu:         w.Menu,
		Class:        tickClass(m.HVACState),
	}
	if !p.Valid {
		p.Title = "unavailable"
		p.Center = Label{Primary: "--"}
		return p
	}

	p.Ticks = projectTicks(w.Config, m)
	p.Title, p.Center = centerLabel(m)
	p.Badges = projectBadges(w.Config, m)
	return p
}

func tickClass(s HVACState) TickClass {
	switch s {
	case HVACHeating:
		return TickHeat
	case HVACCooling:
		return TickCool
	case HVACDual:
		return TickDual
	}
	return TickNone
}

// projectTicks highlights the ticks spanning the relevant values: ambient
// and target in single mode, ambient, low and high in dual mode.
func projectTicks(cfg Config, m Model) []Tick {
	mp := m.Mapper(cfg)
	n := cfg.NumTicks
	spacing := cfg.TickDegrees / float64(n-1)

	var values []float64
	for _, v := range relevantValues(m) {
		if isFinite(v) {
			values = append(values, v)
		}
	}
	sort.Float64s(values)

	from, to := -1, -2
	if len(values) > 0 {
		from = tickIndex(mp, values[0], spacing)
		to = tickIndex(mp, values[len(values)-1], spacing)
	}

	ticks := make([]Tick, n)
	for i := range ticks {
		ticks[i] = Tick{
			Index:  i,
			Angle:  float64(i)*spacing - cfg.OffsetDegrees,
			Active: i >= from && i <= to,
		}
	}
	return ticks
}

func relevantValues(m Model) []float64 {
	if m.Dual {
		return []float64{m.Low, m.High, m.Ambient}
	}
	return []float64{m.Ambient, m.Target}
}

func tickIndex(mp Mapper, v, spacing float64) int {
	return int(math.Round((mp.ValueToAngle(v) + mp.OffsetDegrees) / spacing))
}

func centerLabel(m Model) (string, Label) {
	if !m.InControl {
		return string(m.HVACState), FormatLabel(m.Ambient)
	}
	if m.IsDualModeActive() {
		return "set " + m.Active.String(), Label{Primary: Placeholder, Placeholder: true}
	}
	return "set " + m.Active.String(), FormatLabel(m.Value(m.Active))
}

// projectBadges places up to three labels around the ring.
func projectBadges(cfg Config, m Model) []Badge {
	mp := m.Mapper(cfg)
	var badges []Badge
	if isFinite(m.Ambient) {
		badges = append(badges, Badge{
			Ambient: true,
			Angle:   mp.ValueToAngle(m.Ambient),
			Label:   FormatLabel(m.Ambient),
		})
	}
	setpoints := []Setpoint{SetpointTarget}
	if m.Dual {
		setpoints = []Setpoint{SetpointLow, SetpointHigh}
	}
	for _, sp := range setpoints {
		v := m.Value(sp)
		if !isFinite(v) {
			continue
		}
		badges = append(badges, Badge{
			Setpoint: sp,
			Angle:    mp.ValueToAngle(v),
			Label:    FormatLabel(v),
			Active:   m.InControl && m.Active == sp,
		})
	}
	return badges
}

// FormatLabel splits a value into its integer part and first decimal
// digit, both truncated: 21.96 reads "21" and "9". Only exact whole
// numbers get an empty secondary part.
func FormatLabel(v float64) Label {
	if !isFinite(v) {
		return Label{Primary: "--"}
	}
	// Snap away float noise such as 22.199999999999999 before truncating.
	abs := math.Round(math.Abs(v)*1e6) / 1e6
	whole := math.Trunc(abs)

	primary := strconv.FormatFloat(whole, 'f', 0, 64)
	if v < 0 && abs != 0 {
		primary = "-" + primary
	}
	l := Label{Primary: primary}
	if frac := abs - whole; frac > 0 {
		digit := int(math.Floor(frac*10 + 1e-6))
		if digit > 9 {
			digit = 9
		}
		l.Secondary = strconv.Itoa(digit)
	}
	return l
}
