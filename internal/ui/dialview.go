package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/thermodial/internal/dial"
)

// Terminal cells are roughly twice as tall as they are wide, so dial x
// coordinates are stretched by cellAspect columns per unit.
const cellAspect = 2

// badgeMargin is the number of columns kept free on each side of the ring
// for badge text.
const badgeMargin = 5

// Glyphs
const (
	tickGlyph       = "·"
	activeTickGlyph = "●"
	handleGlyph     = "◆"
	upGlyph         = "▲"
	downGlyph       = "▼"
)

type cellKind int

const (
	cellBlank cellKind = iota
	cellTick
	cellActiveTick
	cellHandle
	cellAmbient
	cellSetpoint
	cellActiveSetpoint
	cellTitle
	cellValue
	cellControl
	cellPulse
)

type cell struct {
	glyph string
	kind  cellKind
}

// DialView lays a dial.Projection out on a grid of terminal cells.
// The grid is centred on the dial; the footer lines (mode and menu) follow
// directly below it.
type DialView struct {
	Config dial.Config
	cols   int
	rows   int
	cx, cy int
}

// NewDialView sizes a view for cfg.Radius.
func NewDialView(cfg dial.Config) DialView {
	r := cfg.Radius
	if r <= 0 {
		r = dial.DefaultRadius
		cfg.Radius = r
	}
	// One extra ring of rows for the badges
	rows := 2*(r+1) + 1
	cols := cellAspect*2*r + 1 + 2*badgeMargin
	return DialView{Config: cfg, cols: cols, rows: rows, cx: cols / 2, cy: rows / 2}
}

// Width returns the grid width in columns.
func (v DialView) Width() int { return v.cols }

// Height returns the grid height in rows, footer excluded.
func (v DialView) Height() int { return v.rows }

// Center returns the cell at the dial centre.
func (v DialView) Center() (col, row int) { return v.cx, v.cy }

// ToDial converts a grid cell into dial coordinates (Radius units, y down).
func (v DialView) ToDial(col, row int) (x, y float64) {
	return float64(col-v.cx) / cellAspect, float64(row - v.cy)
}

// MenuIndexAt maps a row below the grid to a menu entry. The first footer
// row is the mode line; entries follow when the menu is open.
func (v DialView) MenuIndexAt(row int, menu dial.Menu) (int, bool) {
	if !menu.Open {
		return 0, false
	}
	i := row - v.rows - 1
	if i < 0 || i >= len(menu.Modes) {
		return 0, false
	}
	return i, true
}

// ModeLineRow returns the grid row of the mode line.
func (v DialView) ModeLineRow() int { return v.rows }

// Render draws the projection followed by the mode line and, when open,
// the mode menu.
func (v DialView) Render(p dial.Projection) string {
	grid := v.newGrid()
	if p.Valid {
		v.drawTicks(grid, p)
		v.drawHandle(grid, p)
		v.drawBadges(grid, p)
	}
	v.drawCenter(grid, p)
	if p.Valid && p.ShowControls {
		v.drawControls(grid, p)
	}

	lines := make([]string, 0, v.rows+1+len(p.Menu.Modes))
	for _, row := range grid {
		lines = append(lines, v.renderRow(row, p.Class))
	}
	lines = append(lines, renderModeLine(p.Menu))
	if p.Menu.Open {
		lines = append(lines, renderMenu(p.Menu)...)
	}
	return strings.Join(lines, "\n")
}

func (v DialView) newGrid() [][]cell {
	grid := make([][]cell, v.rows)
	for i := range grid {
		grid[i] = make([]cell, v.cols)
		for j := range grid[i] {
			grid[i][j] = cell{glyph: " "}
		}
	}
	return grid
}

func (v DialView) toCell(x, y float64) (col, row int) {
	return v.cx + int(math.Round(x*cellAspect)), v.cy + int(math.Round(y))
}

func (v DialView) set(grid [][]cell, col, row int, c cell) {
	if row < 0 || row >= len(grid) || col < 0 || col >= v.cols {
		return
	}
	grid[row][col] = c
}

func (v DialView) drawTicks(grid [][]cell, p dial.Projection) {
	r := float64(v.Config.Radius)
	for _, t := range p.Ticks {
		col, row := v.toCell(dial.PointOnRing(t.Angle, r))
		if row < 0 || row >= len(grid) || col < 0 || col >= v.cols {
			continue
		}
		// Several ticks can share a cell; an active one wins.
		if grid[row][col].kind == cellActiveTick {
			continue
		}
		if t.Active {
			grid[row][col] = cell{glyph: activeTickGlyph, kind: cellActiveTick}
		} else {
			grid[row][col] = cell{glyph: tickGlyph, kind: cellTick}
		}
	}
}

// drawHandle marks the ring rotation just inside the ticks.
func (v DialView) drawHandle(grid [][]cell, p dial.Projection) {
	if v.Config.Radius < 3 {
		return
	}
	col, row := v.toCell(dial.PointOnRing(p.RingRotation, float64(v.Config.Radius-1)))
	v.set(grid, col, row, cell{glyph: handleGlyph, kind: cellHandle})
}

func (v DialView) drawBadges(grid [][]cell, p dial.Projection) {
	r := float64(v.Config.Radius + 1)
	// Ambient first so set-point badges are drawn over it
	for _, ambient := range []bool{true, false} {
		for _, b := range p.Badges {
			if b.Ambient != ambient {
				continue
			}
			kind := cellSetpoint
			switch {
			case b.Ambient:
				kind = cellAmbient
			case b.Active:
				kind = cellActiveSetpoint
			}
			col, row := v.toCell(dial.PointOnRing(b.Angle, r))
			v.writeText(grid, col, row, b.Label.String(), kind)
		}
	}
}

func (v DialView) drawCenter(grid [][]cell, p dial.Projection) {
	v.writeText(grid, v.cx, v.cy-1, p.Title, cellTitle)
	v.writeText(grid, v.cx, v.cy, p.Center.String(), cellValue)
}

func (v DialView) drawControls(grid [][]cell, p dial.Projection) {
	for _, c := range p.Controls {
		col, row := v.controlCell(c)
		kind := cellControl
		if c == p.Pulsing {
			kind = cellPulse
		}
		glyph := upGlyph
		if c.Direction() < 0 {
			glyph = downGlyph
		}
		v.set(grid, col, row, cell{glyph: glyph, kind: kind})
	}
}

// controlCell places a control inside the region dial.HitTest assigns to it.
func (v DialView) controlCell(c dial.Control) (col, row int) {
	dy := 2
	if c.Direction() > 0 {
		dy = -2
	}
	dx := 0
	switch c {
	case dial.ControlLowUp, dial.ControlLowDown:
		dx = -2
	case dial.ControlHighUp, dial.ControlHighDown:
		dx = 2
	}
	return v.cx + dx*cellAspect, v.cy + dy
}

// writeText centres s on col, shifted to stay inside the grid.
func (v DialView) writeText(grid [][]cell, col, row int, s string, kind cellKind) {
	if s == "" || row < 0 || row >= len(grid) {
		return
	}
	runes := []rune(s)
	start := col - len(runes)/2
	if start+len(runes) > v.cols {
		start = v.cols - len(runes)
	}
	if start < 0 {
		start = 0
	}
	for i, r := range runes {
		v.set(grid, start+i, row, cell{glyph: string(r), kind: kind})
	}
}

// renderRow styles runs of cells of the same kind together.
func (v DialView) renderRow(row []cell, class dial.TickClass) string {
	var b strings.Builder
	var run strings.Builder
	kind := cellBlank
	flush := func() {
		if run.Len() == 0 {
			return
		}
		b.WriteString(cellStyle(kind, class).Render(run.String()))
		run.Reset()
	}
	for _, c := range row {
		if c.kind != kind {
			flush()
			kind = c.kind
		}
		run.WriteString(c.glyph)
	}
	flush()
	return strings.TrimRight(b.String(), " ")
}

func cellStyle(kind cellKind, class dial.TickClass) lipgloss.Style {
	switch kind {
	case cellTick:
		return TickStyle
	case cellActiveTick:
		return lipgloss.NewStyle().Foreground(ClassColor(class))
	case cellHandle:
		return lipgloss.NewStyle().Foreground(ClassColor(class)).Bold(true)
	case cellAmbient:
		return AmbientBadgeStyle
	case cellSetpoint:
		return SetpointBadgeStyle
	case cellActiveSetpoint:
		return SetpointBadgeStyle.Foreground(ClassColor(class)).Bold(true)
	case cellTitle:
		return DialTitleStyle
	case cellValue:
		return DialValueStyle
	case cellControl:
		return ControlStyle
	case cellPulse:
		return lipgloss.NewStyle().Foreground(ClassColor(class)).Bold(true)
	default:
		return lipgloss.NewStyle()
	}
}

func renderModeLine(menu dial.Menu) string {
	if menu.Current == "" && len(menu.Modes) == 0 {
		return HelpStyle.Render("mode: --")
	}
	mode := dial.ModeInfo(menu.Current)
	caret := "▾"
	if menu.Open {
		caret = "▴"
	}
	return HelpStyle.Render("mode: ") + SetpointBadgeStyle.Render(mode.Icon+" "+mode.Label+" "+caret)
}

func renderMenu(menu dial.Menu) []string {
	lines := make([]string, 0, len(menu.Modes))
	for i, mode := range menu.Modes {
		text := mode.Icon + " " + mode.Label
		if mode.ID == menu.Current {
			text += " ✓"
		}
		if i == menu.Cursor {
			lines = append(lines, MenuCursorStyle.Render("> "+text))
			continue
		}
		lines = append(lines, MenuItemStyle.Render(text))
	}
	return lines
}
