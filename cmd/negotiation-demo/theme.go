package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"crossborder/internal/alignment"
)

type uiTheme struct {
	root               lipgloss.Style
	header             lipgloss.Style
	tabActive          lipgloss.Style
	tabInactive        lipgloss.Style
	panel              lipgloss.Style
	panelTitle         lipgloss.Style
	footer             lipgloss.Style
	status             lipgloss.Style
	errorStatus        lipgloss.Style
	ticker             lipgloss.Style
	helpText           lipgloss.Style
	buttonOn           lipgloss.Style
	buttonOff          lipgloss.Style
	fieldKey           lipgloss.Style
	fieldValue         lipgloss.Style
	band               map[alignment.Band]lipgloss.Style
	launcherFrame      lipgloss.Style
	launcherFrameAlt   lipgloss.Style
	launcherTitle      lipgloss.Style
	launcherTitlePulse lipgloss.Style
	launcherAccent     lipgloss.Style
	launcherOption     lipgloss.Style
	launcherSelect     lipgloss.Style
	launcherBoot       lipgloss.Style
	launcherReady      lipgloss.Style
	launcherMuted      lipgloss.Style
	launcherScanlineA  lipgloss.Style
	launcherScanlineB  lipgloss.Style
}

func newTheme() uiTheme {
	stamp := lipgloss.Color("#e0475b")
	ink := lipgloss.Color("#4cc9f0")
	green := lipgloss.Color("#3ddc84")
	gold := lipgloss.Color("#f4c542")
	bg := lipgloss.Color("#0d1321")
	paper := lipgloss.Color("#1d2d44")
	text := lipgloss.Color("#f0ebd8")
	muted := lipgloss.Color("#8d99ae")
	dark := lipgloss.Color("#0b0c10")
	dim := lipgloss.Color("#27364f")

	return uiTheme{
		root: lipgloss.NewStyle().
			Background(bg).
			Foreground(text).
			Padding(0, 1),
		header: lipgloss.NewStyle().
			Background(paper).
			Foreground(text).
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(ink).
			Padding(0, 1),
		tabActive: lipgloss.NewStyle().
			Background(gold).
			Foreground(dark).
			Bold(true).
			Padding(0, 1),
		tabInactive: lipgloss.NewStyle().
			Background(dim).
			Foreground(muted).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			Background(paper).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ink).
			Padding(0, 1),
		panelTitle: lipgloss.NewStyle().
			Foreground(green).
			Bold(true),
		footer: lipgloss.NewStyle().
			Background(paper).
			Foreground(muted).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(stamp).
			Padding(0, 1),
		status:      lipgloss.NewStyle().Foreground(green).Bold(true),
		errorStatus: lipgloss.NewStyle().Foreground(stamp).Bold(true),
		ticker:      lipgloss.NewStyle().Foreground(gold).Italic(true),
		helpText:    lipgloss.NewStyle().Foreground(muted),
		buttonOn: lipgloss.NewStyle().
			Background(green).
			Foreground(dark).
			Bold(true).
			Padding(0, 1),
		buttonOff: lipgloss.NewStyle().
			Background(dim).
			Foreground(muted).
			Faint(true).
			Padding(0, 1),
		fieldKey:   lipgloss.NewStyle().Foreground(gold),
		fieldValue: lipgloss.NewStyle().Foreground(text),
		band: map[alignment.Band]lipgloss.Style{
			alignment.BandHigh:   lipgloss.NewStyle().Foreground(green).Bold(true),
			alignment.BandMedium: lipgloss.NewStyle().Foreground(gold).Bold(true),
			alignment.BandLow:    lipgloss.NewStyle().Foreground(stamp).Bold(true),
		},
		launcherFrame: lipgloss.NewStyle().
			Background(paper).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(stamp).
			Padding(1, 2),
		launcherFrameAlt: lipgloss.NewStyle().
			Background(paper).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(ink).
			Padding(1, 2),
		launcherTitle: lipgloss.NewStyle().
			Foreground(ink).
			Bold(true),
		launcherTitlePulse: lipgloss.NewStyle().
			Foreground(stamp).
			Bold(true),
		launcherAccent: lipgloss.NewStyle().
			Foreground(green).
			Bold(true),
		launcherOption: lipgloss.NewStyle().
			Foreground(text),
		launcherSelect: lipgloss.NewStyle().
			Foreground(dark).
			Background(stamp).
			Bold(true).
			Padding(0, 1),
		launcherBoot:  lipgloss.NewStyle().Foreground(gold).Bold(true),
		launcherReady: lipgloss.NewStyle().Foreground(green).Bold(true),
		launcherMuted: lipgloss.NewStyle().Foreground(muted),
		launcherScanlineA: lipgloss.NewStyle().
			Background(lipgloss.Color("#111a2c")),
		launcherScanlineB: lipgloss.NewStyle().
			Background(lipgloss.Color("#22324d")),
	}
}

// applyScanlineOverlay pads every line to the same width and alternates
// the two backgrounds.
func applyScanlineOverlay(text string, lineA lipgloss.Style, lineB lipgloss.Style) string {
	lines := strings.Split(text, "\n")
	maxWidth := 0
	for _, line := range lines {
		maxWidth = maxInt(maxWidth, lipgloss.Width(line))
	}
	if maxWidth <= 0 {
		return text
	}
	out := make([]string, 0, len(lines))
	for idx, line := range lines {
		padded := line + strings.Repeat(" ", maxInt(0, maxWidth-lipgloss.Width(line)))
		if idx%2 == 0 {
			out = append(out, lineA.Render(padded))
		} else {
			out = append(out, lineB.Render(padded))
		}
	}
	return strings.Join(out, "\n")
}

// padRight fits text into exactly width terminal cells. It cuts on rune
// boundaries and never splits a wide glyph.
func padRight(text string, width int) string {
	if width <= 0 {
		return ""
	}
	var b strings.Builder
	used := 0
	for _, r := range text {
		w := lipgloss.Width(string(r))
		if used+w > width {
			break
		}
		b.WriteRune(r)
		used += w
	}
	return b.String() + strings.Repeat(" ", width-used)
}

func compactSingleLine(text string, limit int) string {
	return truncate(strings.Join(strings.Fields(text), " "), limit)
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
