package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"crossborder/internal/broadcast"
	"crossborder/internal/config"
	"crossborder/internal/sequencer"
)

type tabID int

const (
	tabNegotiation tabID = iota
	tabResults
	tabRecords
	tabHelp
)

const tabCount = 4

type model struct {
	cfg    *config.Config
	seq    *sequencer.Sequencer
	sub    *broadcast.Subscription[sequencer.Event]
	runCtx context.Context
	logger *zap.Logger

	snap       sequencer.Snapshot
	statusLine string
	logs       []string
	inflight   bool

	activeTab      tabID
	launcherActive bool
	launcherIndex  int
	launcherItems  []string
	launcherPulse  int
	quitConfirm    bool

	width  int
	height int

	content viewport.Model
	spinner spinner.Model

	theme uiTheme
}

// eventMsg carries one sequencer event into the update loop.
type eventMsg struct {
	event sequencer.Event
}

type actionDoneMsg struct {
	control sequencer.Control
	err     error
}

type tickMsg time.Time

func newModel(
	runCtx context.Context,
	cfg *config.Config,
	seq *sequencer.Sequencer,
	sub *broadcast.Subscription[sequencer.Event],
	logger *zap.Logger,
) model {
	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))

	content := viewport.New(0, 0)
	content.MouseWheelEnabled = true
	content.MouseWheelDelta = 4

	m := model{
		cfg:            cfg,
		seq:            seq,
		sub:            sub,
		runCtx:         runCtx,
		logger:         logger,
		snap:           seq.Snapshot(),
		logs:           []string{},
		activeTab:      tabNegotiation,
		launcherActive: cfg.UI.Launcher,
		launcherItems: []string{
			"Start Negotiation Console",
			"Open Alignment Results",
			"Open Records",
			"Open Help",
			"Quit",
		},
		content: content,
		spinner: sp,
		theme:   newTheme(),
	}
	m.statusLine = m.snap.Status
	m.width = 100
	m.height = 32
	m.resize()
	m.renderPanes()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitEventMsg(m.sub),
		tickEvery(time.Second),
	)
}

func tickEvery(interval time.Duration) tea.Cmd {
	if interval <= 0 {
		interval = time.Second
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitEventMsg blocks on the next sequencer event. A closed subscription
// ends the listener.
func waitEventMsg(sub *broadcast.Subscription[sequencer.Event]) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		evt, ok := <-sub.C
		if !ok {
			return nil
		}
		return eventMsg{event: evt}
	}
}

// pressCmd runs the control's operation off the update loop.
func (m model) pressCmd(c sequencer.Control) tea.Cmd {
	seq := m.seq
	ctx := m.runCtx
	return func() tea.Msg {
		return actionDoneMsg{control: c, err: seq.Press(ctx, c)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case eventMsg:
		m.applyEvent(msg.event)
		m.renderPanes()
		cmds = append(cmds, waitEventMsg(m.sub))
	case actionDoneMsg:
		m.inflight = false
		m.snap = m.seq.Snapshot()
		if msg.err != nil {
			m.logError(fmt.Errorf("%s: %w", msg.control, msg.err))
		} else {
			m.statusLine = m.snap.Status
		}
		if msg.control == sequencer.ControlApply && m.snap.TransformationVisible {
			m.activeTab = tabRecords
		}
		m.renderPanes()
	case tickMsg:
		// Resync in case the hub dropped events for this subscriber.
		if !m.inflight {
			m.snap = m.seq.Snapshot()
			m.renderPanes()
		}
		cmds = append(cmds, tickEvery(time.Second))
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.renderPanes()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.launcherActive {
			m.launcherPulse = (m.launcherPulse + 1) % 24
		}
		cmds = append(cmds, cmd)
	case tea.MouseMsg:
		if m.launcherActive || m.quitConfirm {
			break
		}
		var cmd tea.Cmd
		m.content, cmd = m.content.Update(msg)
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, tea.Batch(cmds...)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.quitConfirm {
		switch key {
		case "y", "Y", "enter":
			return m, tea.Quit
		case "n", "N", "esc":
			m.quitConfirm = false
			m.statusLine = "quit canceled"
		}
		return m, nil
	}
	if m.launcherActive {
		switch key {
		case "up", "k":
			m.launcherIndex = (m.launcherIndex + len(m.launcherItems) - 1) % len(m.launcherItems)
		case "down", "j":
			m.launcherIndex = (m.launcherIndex + 1) % len(m.launcherItems)
		case "esc":
			m.openTab(tabNegotiation)
			m.statusLine = "launcher skipped · console ready"
		case "q":
			m.beginQuitConfirm()
		case "enter":
			if m.launcherIndex == len(m.launcherItems)-1 {
				m.beginQuitConfirm()
				return m, nil
			}
			m.openTab(tabID(m.launcherIndex))
		}
		return m, nil
	}

	switch key {
	case "esc":
		if m.activeTab == tabNegotiation {
			m.beginQuitConfirm()
			return m, nil
		}
		m.launcherActive = true
		m.launcherIndex = int(m.activeTab)
		m.statusLine = "launcher menu"
		return m, nil
	case "q":
		m.beginQuitConfirm()
		return m, nil
	case "tab":
		m.activeTab = (m.activeTab + 1) % tabCount
		m.renderPanes()
		return m, nil
	case "shift+tab":
		m.activeTab = (m.activeTab + tabCount - 1) % tabCount
		m.renderPanes()
		return m, nil
	case "s":
		return m.press(sequencer.ControlStart)
	case "r":
		return m.press(sequencer.ControlShowResults)
	case "a":
		return m.press(sequencer.ControlApply)
	}
	var cmd tea.Cmd
	m.content, cmd = m.content.Update(msg)
	return m, cmd
}

// press ignores disabled controls the same way the sequencer does, but
// tells the user why.
func (m model) press(c sequencer.Control) (tea.Model, tea.Cmd) {
	m.snap = m.seq.Snapshot()
	if m.inflight || !m.snap.Enabled(c) {
		m.statusLine = fmt.Sprintf("%s is disabled right now", c)
		m.logger.Debug("console press ignored", zap.String("control", string(c)))
		return m, nil
	}
	m.inflight = true
	switch c {
	case sequencer.ControlShowResults:
		m.activeTab = tabResults
	case sequencer.ControlApply, sequencer.ControlStart:
		m.activeTab = tabNegotiation
	}
	m.appendLog("pressed " + string(c))
	m.renderPanes()
	return m, m.pressCmd(c)
}

// applyEvent resyncs from the sequencer and reacts to the event. Events can
// arrive after the state they describe has moved on, so the snapshot is the
// source of truth.
func (m *model) applyEvent(evt sequencer.Event) {
	m.snap = m.seq.Snapshot()
	switch evt.Kind {
	case sequencer.EventStatus:
		m.statusLine = evt.Text
	case sequencer.EventPanel:
		if evt.Panel == sequencer.PanelTransformation && evt.On {
			m.activeTab = tabRecords
		}
	case sequencer.EventControl:
		if evt.On {
			m.appendLog(string(evt.Control) + " enabled")
		}
	}
}

func (m *model) openTab(tab tabID) {
	m.launcherActive = false
	m.activeTab = tab
	m.statusLine = m.snap.Status
	m.renderPanes()
}

func (m *model) beginQuitConfirm() {
	m.quitConfirm = true
	m.statusLine = "ARE YOU SURE YOU WANT TO QUIT?"
}

func (m *model) resize() {
	m.content.Width = maxInt(20, m.width-8)
	m.content.Height = maxInt(6, m.height-14)
}

func (m *model) renderPanes() {
	atBottom := m.content.AtBottom()
	m.content.SetContent(m.renderTabBody())
	if m.activeTab == tabNegotiation && atBottom {
		m.content.GotoBottom()
	}
}

func (m *model) appendLog(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	m.logs = append(m.logs, fmt.Sprintf("%s %s", time.Now().Format("15:04:05"), compactSingleLine(trimmed, 220)))
	if len(m.logs) > 50 {
		m.logs = m.logs[len(m.logs)-50:]
	}
}

func (m *model) logError(err error) {
	if err == nil {
		return
	}
	m.appendLog("error: " + err.Error())
	m.statusLine = "error: " + compactSingleLine(err.Error(), 160)
}

// runConsole wires the sequencer to the terminal UI and blocks until the
// user quits.
func runConsole(ctx context.Context) error {
	c := currentConfig()
	log := currentLogger()

	hub := broadcast.NewHub[sequencer.Event](256)
	defer hub.Close()
	seq := newSequencer(c.Demo.Pace, sequencer.SinkFunc(hub.Publish))
	sub := hub.Subscribe()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		_ = seq.RunTicker(runCtx)
	}()

	opts := []tea.ProgramOption{tea.WithMouseCellMotion(), tea.WithContext(runCtx)}
	if c.UI.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	log.Info("console starting", zap.Float64("pace", c.Demo.Pace), zap.Bool("launcher", c.UI.Launcher))
	p := tea.NewProgram(newModel(runCtx, c, seq, sub, log), opts...)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("negotiation console: %w", err)
	}
	return nil
}
