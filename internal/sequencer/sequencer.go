// Package sequencer narrates the negotiation: a linear, cooperative run of
// status updates on an injectable clock that unlocks the results and
// transformation panels one after another.
package sequencer

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crossborder/internal/clock"
)

// Phase is the sequencer's position in the demo.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseNegotiating
	PhaseNegotiated
	PhaseResultsShown
	PhaseTransforming
	PhaseTransformed
)

var phaseNames = map[Phase]string{
	PhaseIdle:         "idle",
	PhaseNegotiating:  "negotiating",
	PhaseNegotiated:   "negotiated",
	PhaseResultsShown: "results_shown",
	PhaseTransforming: "transforming",
	PhaseTransformed:  "transformed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (p *Phase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Started reports whether negotiation has begun at least once.
func (p Phase) Started() bool {
	return p != PhaseIdle
}

// Control is one of the three user-facing buttons.
type Control string

const (
	ControlStart       Control = "start"
	ControlShowResults Control = "show-results"
	ControlApply       Control = "apply-transformation"
)

// Controls lists every control in display order.
func Controls() []Control {
	return []Control{ControlStart, ControlShowResults, ControlApply}
}

// ParseControl accepts a control name, case-insensitively.
func ParseControl(raw string) (Control, error) {
	switch c := Control(strings.ToLower(strings.TrimSpace(raw))); c {
	case ControlStart, ControlShowResults, ControlApply:
		return c, nil
	default:
		return "", fmt.Errorf("unknown control %q", raw)
	}
}

// Panel is a hidden-until-revealed result area.
type Panel string

const (
	PanelResults        Panel = "results"
	PanelTransformation Panel = "transformation"
)

// EventKind tags an Event.
type EventKind string

const (
	EventStatus  EventKind = "status"
	EventTicker  EventKind = "ticker"
	EventPanel   EventKind = "panel"
	EventControl EventKind = "control"
	EventPhase   EventKind = "phase"
)

// Event is a single observable change in the sequencer.
type Event struct {
	Kind    EventKind `json:"kind"`
	RunID   string    `json:"run_id,omitempty"`
	Phase   Phase     `json:"phase"`
	Step    int       `json:"step,omitempty"`
	Steps   int       `json:"steps,omitempty"`
	Text    string    `json:"text,omitempty"`
	Panel   Panel     `json:"panel,omitempty"`
	Control Control   `json:"control,omitempty"`
	On      bool      `json:"on"`
	At      time.Time `json:"at"`
}

// Sink receives events in emission order. Emit is called with the
// sequencer's lock held and must not call back into the sequencer.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// MultiSink fans one event out to several sinks.
func MultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s.Emit(e)
			}
		}
	})
}

// Snapshot is the visible state of the demo.
type Snapshot struct {
	RunID                 string   `json:"run_id,omitempty"`
	Phase                 Phase    `json:"phase"`
	Status                string   `json:"status"`
	Ticker                string   `json:"ticker"`
	Log                   []string `json:"log"`
	ResultsVisible        bool     `json:"results_visible"`
	TransformationVisible bool     `json:"transformation_visible"`
	StartEnabled          bool     `json:"start_enabled"`
	ShowResultsEnabled    bool     `json:"show_results_enabled"`
	ApplyEnabled          bool     `json:"apply_enabled"`
}

// Enabled reports whether c can currently be pressed.
func (s Snapshot) Enabled(c Control) bool {
	switch c {
	case ControlStart:
		return s.StartEnabled
	case ControlShowResults:
		return s.ShowResultsEnabled
	case ControlApply:
		return s.ApplyEnabled
	default:
		return false
	}
}

const idleStatus = "Ready. Press start to begin the IT → DE negotiation."

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithClock sets the time source. Defaults to the wall clock.
func WithClock(c clock.Clock) Option {
	return func(s *Sequencer) { s.clock = c }
}

// WithSink sets where events go.
func WithSink(sink Sink) Option {
	return func(s *Sequencer) { s.sink = sink }
}

// WithPace multiplies every narration delay. 0 removes the pauses.
func WithPace(pace float64) Option {
	return func(s *Sequencer) {
		if pace >= 0 {
			s.pace = pace
		}
	}
}

// WithTickerInterval sets the background ticker period.
func WithTickerInterval(d time.Duration) Option {
	return func(s *Sequencer) {
		if d > 0 {
			s.tickerInterval = d
		}
	}
}

// WithRand sets the ticker's random source.
func WithRand(rng *rand.Rand) Option {
	return func(s *Sequencer) { s.rng = rng }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Sequencer) { s.logger = logger }
}

// WithRunIDs overrides run identifier generation.
func WithRunIDs(next func() string) Option {
	return func(s *Sequencer) { s.newRunID = next }
}

// Sequencer owns the demo state. All methods are safe for concurrent use.
type Sequencer struct {
	clock          clock.Clock
	sink           Sink
	pace           float64
	tickerInterval time.Duration
	logger         *zap.Logger
	newRunID       func() string

	mu    sync.Mutex
	rng   *rand.Rand
	state Snapshot
	busy  bool
}

// New returns a sequencer in the idle phase with only start enabled.
func New(opts ...Option) *Sequencer {
	s := &Sequencer{
		clock:          clock.Real{},
		pace:           1,
		tickerInterval: defaultTickerInterval,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sink == nil {
		s.sink = SinkFunc(func(Event) {})
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(s.clock.Now().UnixNano()))
	}
	if s.newRunID == nil {
		s.newRunID = func() string { return NewRunID(s.clock.Now()) }
	}
	s.state = Snapshot{
		Phase:        PhaseIdle,
		Status:       idleStatus,
		Log:          []string{},
		StartEnabled: true,
	}
	return s
}

// NewRunID formats a cross-border request id: CBR_<unix>_<8 hex>.
func NewRunID(now time.Time) string {
	return fmt.Sprintf("CBR_%d_%s", now.Unix(), uuid.NewString()[:8])
}

// Snapshot returns a copy of the current state.
func (s *Sequencer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	out.Log = append(make([]string, 0, len(s.state.Log)), s.state.Log...)
	return out
}

// Press dispatches c to its operation.
func (s *Sequencer) Press(ctx context.Context, c Control) error {
	run, ok, err := s.claim(c)
	if err != nil || !ok {
		return err
	}
	return run(ctx)
}

// Accept claims c under the lock and returns the rest of the operation.
// When ok is false the control was disabled or another operation was
// running, and nothing changed.
func (s *Sequencer) Accept(c Control) (run func(context.Context) error, ok bool) {
	run, ok, _ = s.claim(c)
	return run, ok
}

func (s *Sequencer) claim(c Control) (func(context.Context) error, bool, error) {
	switch c {
	case ControlStart:
		run, ok := s.claimStart()
		return run, ok, nil
	case ControlShowResults:
		run, ok := s.claimShowResults()
		return run, ok, nil
	case ControlApply:
		run, ok := s.claimApply()
		return run, ok, nil
	default:
		return nil, false, fmt.Errorf("unknown control %q", c)
	}
}

// StartNegotiation narrates the six negotiation steps, then enables the
// show-results control. A press while start is disabled does nothing.
func (s *Sequencer) StartNegotiation(ctx context.Context) error {
	return s.Press(ctx, ControlStart)
}

// ShowAlignmentResults reveals the results panel and, one second later,
// enables the apply-transformation control.
func (s *Sequencer) ShowAlignmentResults(ctx context.Context) error {
	return s.Press(ctx, ControlShowResults)
}

// ApplyTransformation narrates the five transformation steps, then reveals
// the before/after panel.
func (s *Sequencer) ApplyTransformation(ctx context.Context) error {
	return s.Press(ctx, ControlApply)
}

func (s *Sequencer) claimStart() (func(context.Context) error, bool) {
	if !s.begin(ControlStart, func(st *Snapshot, emit func(Event)) {
		st.RunID = s.newRunID()
		st.Phase = PhaseNegotiating
		st.Log = []string{}
		st.ResultsVisible = false
		st.TransformationVisible = false
		emit(Event{Kind: EventPhase})
		emit(Event{Kind: EventPanel, Panel: PanelResults, On: false})
		emit(Event{Kind: EventPanel, Panel: PanelTransformation, On: false})
		s.setControls(st, emit, false, false, false)
	}) {
		return nil, false
	}
	return func(ctx context.Context) error {
		if err := s.play(ctx, negotiationScript); err != nil {
			s.abort(PhaseIdle, func(st *Snapshot, emit func(Event)) {
				s.setControls(st, emit, true, false, false)
			})
			return err
		}
		s.finish(func(st *Snapshot, emit func(Event)) {
			st.Phase = PhaseNegotiated
			emit(Event{Kind: EventPhase})
			s.setControls(st, emit, true, true, false)
		})
		return nil
	}, true
}

func (s *Sequencer) claimShowResults() (func(context.Context) error, bool) {
	if !s.begin(ControlShowResults, func(st *Snapshot, emit func(Event)) {
		st.Phase = PhaseResultsShown
		st.ResultsVisible = true
		emit(Event{Kind: EventPhase})
		emit(Event{Kind: EventPanel, Panel: PanelResults, On: true})
		s.setControls(st, emit, false, false, false)
	}) {
		return nil, false
	}
	return func(ctx context.Context) error {
		if err := clock.Sleep(ctx, s.clock, s.scaled(resultsUnlockDelay)); err != nil {
			s.abort(PhaseResultsShown, func(st *Snapshot, emit func(Event)) {
				s.setControls(st, emit, true, false, true)
			})
			return err
		}
		s.finish(func(st *Snapshot, emit func(Event)) {
			s.setControls(st, emit, true, false, true)
		})
		return nil
	}, true
}

func (s *Sequencer) claimApply() (func(context.Context) error, bool) {
	if !s.begin(ControlApply, func(st *Snapshot, emit func(Event)) {
		st.Phase = PhaseTransforming
		emit(Event{Kind: EventPhase})
		s.setControls(st, emit, false, false, false)
	}) {
		return nil, false
	}
	return func(ctx context.Context) error {
		if err := s.play(ctx, transformationScript); err != nil {
			s.abort(PhaseResultsShown, func(st *Snapshot, emit func(Event)) {
				s.setControls(st, emit, true, false, true)
			})
			return err
		}
		s.finish(func(st *Snapshot, emit func(Event)) {
			st.Phase = PhaseTransformed
			st.TransformationVisible = true
			emit(Event{Kind: EventPhase})
			emit(Event{Kind: EventPanel, Panel: PanelTransformation, On: true})
			s.setControls(st, emit, true, false, false)
		})
		return nil
	}, true
}

// RunTicker publishes a random status line every ticker interval once
// negotiation has started. It returns only when ctx is done.
func (s *Sequencer) RunTicker(ctx context.Context) error {
	for {
		if err := clock.Sleep(ctx, s.clock, s.tickerInterval); err != nil {
			return err
		}
		s.tick()
	}
}

func (s *Sequencer) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := pickTickerMessage(s.state.Phase, s.rng)
	if !ok {
		return
	}
	s.state.Ticker = text
	s.emitLocked(Event{Kind: EventTicker, Text: text})
}

func (s *Sequencer) play(ctx context.Context, script []Step) error {
	for i, step := range script {
		s.mu.Lock()
		s.state.Status = step.Text
		s.state.Log = append(s.state.Log, step.Text)
		s.emitLocked(Event{Kind: EventStatus, Step: i + 1, Steps: len(script), Text: step.Text})
		s.mu.Unlock()
		if err := clock.Sleep(ctx, s.clock, s.scaled(step.Delay)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequencer) begin(c Control, apply func(*Snapshot, func(Event))) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy || !s.state.Enabled(c) {
		s.logger.Debug("control press ignored",
			zap.String("control", string(c)),
			zap.Stringer("phase", s.state.Phase),
			zap.Bool("busy", s.busy),
		)
		return false
	}
	s.busy = true
	apply(&s.state, s.emitLocked)
	s.logger.Info("control pressed",
		zap.String("control", string(c)),
		zap.String("run_id", s.state.RunID),
		zap.Stringer("phase", s.state.Phase),
	)
	return true
}

func (s *Sequencer) finish(apply func(*Snapshot, func(Event))) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apply(&s.state, s.emitLocked)
	s.busy = false
	s.logger.Info("sequence finished",
		zap.String("run_id", s.state.RunID),
		zap.Stringer("phase", s.state.Phase),
	)
}

func (s *Sequencer) abort(phase Phase, apply func(*Snapshot, func(Event))) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Phase = phase
	s.emitLocked(Event{Kind: EventPhase})
	apply(&s.state, s.emitLocked)
	s.busy = false
	s.logger.Info("sequence interrupted",
		zap.String("run_id", s.state.RunID),
		zap.Stringer("phase", phase),
	)
}

func (s *Sequencer) setControls(st *Snapshot, emit func(Event), start, results, apply bool) {
	next := map[Control]bool{
		ControlStart:       start,
		ControlShowResults: results,
		ControlApply:       apply,
	}
	for _, c := range Controls() {
		if st.Enabled(c) == next[c] {
			continue
		}
		switch c {
		case ControlStart:
			st.StartEnabled = start
		case ControlShowResults:
			st.ShowResultsEnabled = results
		case ControlApply:
			st.ApplyEnabled = apply
		}
		emit(Event{Kind: EventControl, Control: c, On: next[c]})
	}
}

func (s *Sequencer) emitLocked(e Event) {
	e.RunID = s.state.RunID
	e.Phase = s.state.Phase
	e.At = s.clock.Now()
	s.sink.Emit(e)
}

func (s *Sequencer) scaled(d time.Duration) time.Duration {
	return time.Duration(float64(d) * s.pace)
}
