package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/thermodial/internal/ui"
	"github.com/muurk/thermodial/internal/version"
)

// AppName is shown in the header of every screen.
const AppName = "THERMODIAL"

// Layout of the dial screen. Mouse coordinates are translated with these
// offsets, so the header must stay exactly headerRows tall.
const (
	headerRows = 2 // title line and divider
	dialLeft   = 2 // columns of left margin before the dial grid
)

var (
	appNameStyle = lipgloss.NewStyle().
			Foreground(ui.PrimaryColor).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Foreground(ui.TextColor).
			Bold(true)

	subtleStyle = lipgloss.NewStyle().
			Foreground(ui.MutedColor)

	statusOKStyle = lipgloss.NewStyle().
			Foreground(ui.SuccessColor)

	statusErrStyle = lipgloss.NewStyle().
			Foreground(ui.ErrorColor)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(ui.PrimaryColor)
)

// renderHeader builds the single-line header and its divider.
func renderHeader(title, source, state string, width int) string {
	parts := []string{appNameStyle.Render(AppName)}
	if title != "" {
		parts = append(parts, titleStyle.Render(title))
	}
	if source != "" {
		parts = append(parts, subtleStyle.Render(source))
	}
	if state != "" {
		parts = append(parts, subtleStyle.Render(state))
	}
	parts = append(parts, subtleStyle.Render(version.Version))

	if width < ui.MinTerminalWidth {
		width = ui.MinTerminalWidth
	}
	// Never wrap: the dial below is addressed by fixed row offsets
	line := lipgloss.NewStyle().MaxWidth(width).Render(strings.Join(parts, subtleStyle.Render("  ·  ")))
	return line + "\n" + ui.RenderHorizontalDivider(width, "─")
}

// indent shifts every line of s right by n columns.
func indent(s string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = pad + l
	}
	return strings.Join(lines, "\n")
}
