package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"crossborder/internal/alignment"
	"crossborder/internal/records"
	"crossborder/internal/sequencer"
)

func (m model) View() string {
	out := ""
	if m.launcherActive {
		out = m.renderLauncher()
	} else {
		out = lipgloss.JoinVertical(lipgloss.Left,
			m.renderHeader(),
			m.renderControls(),
			m.renderContent(),
			m.renderFooter(),
		)
	}
	if m.quitConfirm {
		out = m.renderQuitModal()
	}
	return m.theme.root.Render(out)
}

func (m *model) renderLauncher() string {
	contentWidth := maxInt(48, minInt(100, m.width-4))

	pulseOn := ((m.launcherPulse / 2) % 2) == 0
	titleStyle := m.theme.launcherTitle
	frameStyle := m.theme.launcherFrame
	if pulseOn {
		titleStyle = m.theme.launcherTitlePulse
		frameStyle = m.theme.launcherFrameAlt
	}

	innerWidth := clampInt(contentWidth-8, 34, 74)
	rule := "+" + strings.Repeat("-", innerWidth) + "+"
	headerA := "| " + padRight("CROSS-BORDER REGISTRY CONSOLE", innerWidth-2) + " |"
	headerB := "| " + padRight("ANPR (IT) → Standesamt (DE)", innerWidth-2) + " |"

	statusLabel := "IDLE"
	statusStyle := m.theme.launcherBoot
	switch {
	case m.snap.Phase == sequencer.PhaseTransformed:
		statusLabel = "DONE"
		statusStyle = m.theme.launcherReady
	case m.snap.Phase.Started():
		statusLabel = "LIVE"
		statusStyle = m.theme.launcherReady
	}
	bootLine := statusStyle.Render("["+statusLabel+"]") + " " + compactSingleLine(m.snap.Status, 120)

	var options strings.Builder
	for idx, item := range m.launcherItems {
		prefix := "   "
		if idx == m.launcherIndex {
			prefix = ">> "
		}
		line := fmt.Sprintf("%s%d. %s", prefix, idx+1, item)
		if idx == m.launcherIndex {
			options.WriteString(m.theme.launcherSelect.Render(line))
		} else {
			options.WriteString(m.theme.launcherOption.Render(line))
		}
		options.WriteString("\n")
	}

	body := strings.Join([]string{
		titleStyle.Render("Negotiation Sequencer"),
		m.theme.launcherMuted.Render("Scripted semantic negotiation between two civil registries"),
		"",
		m.theme.launcherAccent.Render(rule),
		m.theme.launcherAccent.Render(headerA),
		m.theme.launcherAccent.Render(headerB),
		m.theme.launcherAccent.Render(rule),
		"",
		m.spinner.View() + " " + bootLine,
		m.theme.launcherMuted.Render("Run: " + nullCoalesce(m.snap.RunID, "not started")),
		"",
		strings.TrimRight(options.String(), "\n"),
		"",
		m.theme.launcherMuted.Render("Keys: up/down choose | enter launch | esc skip to console | q quit prompt"),
	}, "\n")
	body = applyScanlineOverlay(body, m.theme.launcherScanlineA, m.theme.launcherScanlineB)

	panel := frameStyle.Width(contentWidth).Render(body)
	return lipgloss.Place(
		maxInt(contentWidth+2, m.width-2),
		maxInt(16, m.height-2),
		lipgloss.Center,
		lipgloss.Center,
		panel,
	)
}

func (m *model) renderHeader() string {
	tabs := []struct {
		id    tabID
		label string
	}{
		{tabNegotiation, "Negotiation"},
		{tabResults, "Results"},
		{tabRecords, "Records"},
		{tabHelp, "Help"},
	}
	segments := make([]string, 0, len(tabs)+1)
	for _, tab := range tabs {
		style := m.theme.tabInactive
		if tab.id == m.activeTab {
			style = m.theme.tabActive
		}
		segments = append(segments, style.Render(tab.label))
	}
	meta := fmt.Sprintf(" Run: %s · %s", nullCoalesce(m.snap.RunID, "n/a"), m.snap.Phase)
	segments = append(segments, m.theme.helpText.Render(meta))
	joined := lipgloss.JoinHorizontal(lipgloss.Left, segments...)
	return m.theme.header.Width(maxInt(20, m.width-4)).Render(joined)
}

// renderControls draws the three buttons. Disabled ones are dimmed.
func (m *model) renderControls() string {
	labels := map[sequencer.Control]string{
		sequencer.ControlStart:       "[s] Start Negotiation",
		sequencer.ControlShowResults: "[r] Show Alignment Results",
		sequencer.ControlApply:       "[a] Apply Transformation",
	}
	buttons := make([]string, 0, len(labels)*2)
	for _, c := range sequencer.Controls() {
		style := m.theme.buttonOff
		if m.snap.Enabled(c) && !m.inflight {
			style = m.theme.buttonOn
		}
		buttons = append(buttons, style.Render(labels[c]), " ")
	}
	line := lipgloss.JoinHorizontal(lipgloss.Left, buttons...)
	if m.inflight {
		line += " " + m.spinner.View()
	}
	return m.theme.panel.Width(maxInt(20, m.width-4)).Render(line)
}

func (m *model) renderContent() string {
	title := map[tabID]string{
		tabNegotiation: "Negotiation Status",
		tabResults:     "Alignment Results",
		tabRecords:     "Transformation Result",
		tabHelp:        "Help",
	}[m.activeTab]
	return m.theme.panel.
		Width(maxInt(20, m.width-4)).
		Render(m.theme.panelTitle.Render(title) + "\n" + m.content.View())
}

func (m *model) renderTabBody() string {
	switch m.activeTab {
	case tabResults:
		return m.renderResults()
	case tabRecords:
		return m.renderRecords()
	case tabHelp:
		return m.renderHelp()
	default:
		return m.renderNegotiation()
	}
}

func (m *model) renderNegotiation() string {
	lines := []string{m.theme.status.Render(m.snap.Status)}
	if m.snap.Ticker != "" {
		lines = append(lines, m.theme.ticker.Render("» "+m.snap.Ticker))
	}
	if len(m.snap.Log) > 0 {
		lines = append(lines, "")
		for idx, line := range m.snap.Log {
			lines = append(lines, fmt.Sprintf("%d. %s", idx+1, line))
		}
	}
	return strings.Join(lines, "\n")
}

func (m *model) renderResults() string {
	if !m.snap.ResultsVisible {
		return m.theme.helpText.Render("Results are hidden. Finish the negotiation, then press r.")
	}
	entries := alignment.Results()
	lines := make([]string, 0, len(entries)+2)
	for _, e := range entries {
		style := m.theme.band[alignment.BandFor(e.Confidence)]
		lines = append(lines, style.Render(e.String()))
	}
	report := alignment.NewReport(m.snap.RunID, "", entries, m.cfg.Report.Threshold)
	lines = append(lines, "", m.theme.helpText.Render(fmt.Sprintf(
		"overall %.1f%% · %d of %d applied without review",
		report.OverallConfidence*100, report.Coverage(), len(entries),
	)))
	return strings.Join(lines, "\n")
}

func (m *model) renderRecords() string {
	if !m.snap.TransformationVisible {
		return m.theme.helpText.Render("Records are hidden. Show the results, then press a.")
	}
	column := func(title string, fields []records.Field) string {
		lines := []string{m.theme.panelTitle.Render(title)}
		for _, f := range fields {
			lines = append(lines, m.theme.fieldKey.Render(f.Name+":")+" "+m.theme.fieldValue.Render(f.Value))
		}
		return strings.Join(lines, "\n")
	}
	before := column("Before (Italian ANPR)", records.Source().Fields())
	after := column("After (German Standesamt)", records.Target().Fields())
	if m.width < 100 {
		return before + "\n\n" + after
	}
	half := maxInt(30, (m.width-12)/2)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(half).Render(before),
		lipgloss.NewStyle().Width(half).Render(after),
	)
}

func (m *model) renderHelp() string {
	lines := []string{
		"Controls",
		"- s: start negotiation (six steps, then show-results unlocks)",
		"- r: show alignment results (apply unlocks one second later)",
		"- a: apply transformation (five steps, then the records appear)",
		"- Dimmed buttons are disabled; pressing them does nothing",
		"",
		"Navigation",
		"- Tab / Shift+Tab: switch views",
		"- PgUp/PgDn, Up/Down: scroll the current view",
		"- Esc: from other views, return to the launcher menu",
		"- Esc on Negotiation: quit confirmation",
		"- Ctrl+C: quit",
		"",
		"Recent activity",
	}
	if len(m.logs) == 0 {
		lines = append(lines, "- none yet")
	}
	for _, line := range m.logs {
		lines = append(lines, "- "+line)
	}
	return m.theme.helpText.Render(strings.Join(lines, "\n"))
}

func (m *model) renderFooter() string {
	contentWidth := maxInt(40, m.width-4)
	statusStyle := m.theme.status
	if strings.Contains(strings.ToLower(m.statusLine), "error") || strings.Contains(m.statusLine, "disabled") {
		statusStyle = m.theme.errorStatus
	}
	line := statusStyle.Render(compactSingleLine(m.statusLine, 180))
	hints := m.theme.helpText.Render("Keys: s start · r results · a apply · Tab switch view · Esc menu/quit prompt · Ctrl+C quit")
	return m.theme.footer.Width(contentWidth).Render(line + "\n" + hints)
}

func (m *model) renderQuitModal() string {
	canvasWidth := maxInt(40, m.width-4)
	canvasHeight := maxInt(12, m.height-4)
	modalWidth := clampInt(int(float64(canvasWidth)*0.56), 42, 78)
	if modalWidth > canvasWidth-2 {
		modalWidth = canvasWidth - 2
	}

	title := m.theme.errorStatus.Render("LEAVE THE CONSOLE?")
	subtitle := m.theme.helpText.Render("Are you sure you want to quit the negotiation demo?")
	prompt := m.theme.buttonOn.Render("[Y / Enter] Quit") + "    " + m.theme.helpText.Render("[N / Esc] Return")
	accent := m.theme.launcherAccent.Render("========================================")
	body := strings.Join([]string{
		title,
		subtitle,
		"",
		accent,
		m.theme.helpText.Render("Nothing is persisted; the next run starts from scratch."),
		accent,
		"",
		prompt,
	}, "\n")
	panel := m.theme.launcherFrameAlt.Width(modalWidth).Render(body)
	return lipgloss.Place(
		canvasWidth,
		canvasHeight,
		lipgloss.Center,
		lipgloss.Center,
		panel,
		lipgloss.WithWhitespaceBackground(lipgloss.Color("#120924")),
	)
}

func nullCoalesce(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
