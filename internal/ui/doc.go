// Package ui provides terminal rendering for the thermodial CLI.
//
// This package uses Lipgloss to render styled output. It has two kinds of
// components:
//
//   - Header and Result: command banners and success/failure boxes printed
//     by one-shot commands such as "status", "set" and "mode".
//   - DialView: a character-cell rendering of a dial.Projection, shared by
//     the "status" command and the interactive dial.
//
// # Dial Layout
//
// DialView draws the tick ring on a grid centred on the dial. Terminal
// cells are about twice as tall as they are wide, so dial x coordinates are
// stretched by two columns per unit. ToDial performs the inverse mapping,
// which lets a host turn mouse cells into the pointer coordinates
// dial.Widget expects:
//
//	view := ui.NewDialView(cfg)
//	x, y := view.ToDial(mouse.X, mouse.Y)
//	w, effects := w.HandleEvent(dial.PointerDown{X: x, Y: y, Primary: true})
//
// The mode line and, when open, the mode menu are rendered below the grid.
// MenuIndexAt maps a clicked row back to a menu entry.
//
// # Logging Integration
//
// Styled output goes to stdout. Logging stays silent unless
// THERMODIAL_LOG_LEVEL or --log-level enables it, so log lines do not
// interleave with the rendered boxes.
package ui
