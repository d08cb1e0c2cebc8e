package dial

import "github.com/muurk/thermodial/internal/climate"

// Mode is one selectable operating mode.
type Mode struct {
	ID    string
	Label string
	Icon  string
}

// modeInfo holds labels and icons for the known hvac modes.
var modeInfo = map[string]Mode{
	climate.ModeOff:      {ID: climate.ModeOff, Label: "Off", Icon: "○"},
	climate.ModeHeat:     {ID: climate.ModeHeat, Label: "Heat", Icon: "♨"},
	climate.ModeCool:     {ID: climate.ModeCool, Label: "Cool", Icon: "❄"},
	climate.ModeHeatCool: {ID: climate.ModeHeatCool, Label: "Heat/Cool", Icon: "⇅"},
	climate.ModeAuto:     {ID: climate.ModeAuto, Label: "Auto", Icon: "↻"},
	climate.ModeDry:      {ID: climate.ModeDry, Label: "Dry", Icon: "≈"},
	climate.ModeFanOnly:  {ID: climate.ModeFanOnly, Label: "Fan", Icon: "✣"},
}

// ModeInfo returns display information for a mode id. Unknown ids get
// their id as label.
func ModeInfo(id string) Mode {
	if m, ok := modeInfo[id]; ok {
		return m
	}
	return Mode{ID: id, Label: id, Icon: "•"}
}

// Menu is the mode selection menu.
type Menu struct {
	Modes   []Mode
	Cursor  int
	Open    bool
	Current string // Mode the entity reports
}

// NewMenu builds a menu from the entity's mode list. A nil or empty list
// gives an empty menu.
func NewMenu(available []string, current string) Menu {
	m := Menu{Current: current}
	seen := make(map[string]bool, len(available))
	for _, id := range available {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		m.Modes = append(m.Modes, ModeInfo(id))
	}
	if i := m.indexOf(current); i > 0 {
		m.Cursor = i
	}
	return m
}

// WithModes refreshes the mode list while keeping the menu open state.
// The cursor stays on the same mode when it still exists.
func (m Menu) WithModes(available []string, current string) Menu {
	var keep string
	if sel, ok := m.Selected(); ok {
		keep = sel.ID
	}
	next := NewMenu(available, current)
	next.Open = m.Open
	if m.Open && keep != "" {
		if i := next.indexOf(keep); i >= 0 {
			next.Cursor = i
		}
	}
	return next
}

// Toggle opens or closes the menu. Opening puts the cursor on the current mode.
func (m Menu) Toggle() Menu {
	m.Open = !m.Open
	if m.Open {
		if i := m.indexOf(m.Current); i >= 0 {
			m.Cursor = i
		}
	}
	return m
}

// Move shifts the cursor, wrapping at both ends.
func (m Menu) Move(delta int) Menu {
	n := len(m.Modes)
	if n == 0 {
		m.Cursor = 0
		return m
	}
	m.Cursor = ((m.Cursor+delta)%n + n) % n
	return m
}

// Selected returns the mode under the cursor.
func (m Menu) Selected() (Mode, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.Modes) {
		return Mode{}, false
	}
	return m.Modes[m.Cursor], true
}

// Choose picks the mode at index and closes the menu.
func (m Menu) Choose(index int) (Menu, Mode, bool) {
	if index < 0 || index >= len(m.Modes) {
		return m, Mode{}, false
	}
	m.Cursor = index
	m.Open = false
	mode := m.Modes[index]
	m.Current = mode.ID
	return m, mode, true
}

func (m Menu) indexOf(id string) int {
	for i, mode := range m.Modes {
		if mode.ID == id {
			return i
		}
	}
	if len(m.Modes) == 0 {
		return 0
	}
	return -1
}
