package sequencer

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"crossborder/internal/clock"
	"crossborder/internal/records"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var epoch = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) texts(kind EventKind) []string {
	var out []string
	for _, e := range r.all() {
		if e.Kind == kind {
			out = append(out, e.Text)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func newTestSequencer(c clock.Clock, rec *recorder, opts ...Option) *Sequencer {
	base := []Option{
		WithClock(c),
		WithSink(rec),
		WithRand(rand.New(rand.NewSource(7))),
		WithRunIDs(func() string { return "CBR_test" }),
	}
	return New(append(base, opts...)...)
}

func scriptTexts(steps []Step) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		out = append(out, s.Text)
	}
	return out
}

func TestInitialSnapshot(t *testing.T) {
	seq := newTestSequencer(clock.NewAuto(epoch), &recorder{})
	snap := seq.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.True(t, snap.StartEnabled)
	assert.False(t, snap.ShowResultsEnabled)
	assert.False(t, snap.ApplyEnabled)
	assert.False(t, snap.ResultsVisible)
	assert.False(t, snap.TransformationVisible)
	assert.NotNil(t, snap.Log)
}

func TestStartEmitsSixStatusesInOrderOnEveryRun(t *testing.T) {
	rec := &recorder{}
	seq := newTestSequencer(clock.NewAuto(epoch), rec)
	want := scriptTexts(NegotiationScript())
	require.Len(t, want, 6)

	for run := 0; run < 3; run++ {
		rec.reset()
		require.NoError(t, seq.StartNegotiation(context.Background()))
		assert.Equal(t, want, rec.texts(EventStatus), "run %d", run)
		assert.Equal(t, want, seq.Snapshot().Log)
	}
}

func TestStartDelaysStayInRange(t *testing.T) {
	for _, step := range NegotiationScript() {
		assert.GreaterOrEqual(t, step.Delay, 1500*time.Millisecond, step.Text)
		assert.LessOrEqual(t, step.Delay, 2500*time.Millisecond, step.Text)
	}

	c := clock.NewAuto(epoch)
	seq := newTestSequencer(c, &recorder{})
	require.NoError(t, seq.StartNegotiation(context.Background()))
	var total time.Duration
	for _, step := range NegotiationScript() {
		total += step.Delay
	}
	assert.Equal(t, epoch.Add(total), c.Now())
}

func TestShowResultsLockedUntilStartCompletes(t *testing.T) {
	c := clock.NewFake(epoch)
	rec := &recorder{}
	seq := newTestSequencer(c, rec)

	done := make(chan error, 1)
	go func() { done <- seq.StartNegotiation(context.Background()) }()

	for i, step := range NegotiationScript() {
		c.BlockUntil(1)
		snap := seq.Snapshot()
		assert.Equal(t, PhaseNegotiating, snap.Phase)
		assert.Equal(t, step.Text, snap.Status)
		assert.False(t, snap.ShowResultsEnabled, "step %d", i+1)
		assert.False(t, snap.StartEnabled, "step %d", i+1)
		c.Advance(step.Delay)
	}
	require.NoError(t, <-done)

	snap := seq.Snapshot()
	assert.Equal(t, PhaseNegotiated, snap.Phase)
	assert.True(t, snap.ShowResultsEnabled)
	assert.True(t, snap.StartEnabled)
	assert.False(t, snap.ApplyEnabled)
}

func TestDisabledPressesAreNoOps(t *testing.T) {
	rec := &recorder{}
	seq := newTestSequencer(clock.NewAuto(epoch), rec)

	require.NoError(t, seq.ShowAlignmentResults(context.Background()))
	require.NoError(t, seq.ApplyTransformation(context.Background()))
	assert.Empty(t, rec.all())
	assert.Equal(t, PhaseIdle, seq.Snapshot().Phase)
}

func TestPressWhileBusyIsIgnored(t *testing.T) {
	c := clock.NewFake(epoch)
	rec := &recorder{}
	seq := newTestSequencer(c, rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- seq.StartNegotiation(ctx) }()
	c.BlockUntil(1)

	before := len(rec.all())
	require.NoError(t, seq.StartNegotiation(context.Background()))
	assert.Len(t, rec.all(), before)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestShowResultsUnlocksApplyAfterOneSecond(t *testing.T) {
	c := clock.NewFake(epoch)
	rec := &recorder{}
	seq := newTestSequencer(c, rec, WithPace(0))
	require.NoError(t, seq.StartNegotiation(context.Background()))
	seq.pace = 1

	done := make(chan error, 1)
	go func() { done <- seq.ShowAlignmentResults(context.Background()) }()
	c.BlockUntil(1)

	snap := seq.Snapshot()
	assert.True(t, snap.ResultsVisible)
	assert.False(t, snap.ApplyEnabled)
	assert.Equal(t, PhaseResultsShown, snap.Phase)

	c.Advance(999 * time.Millisecond)
	assert.False(t, seq.Snapshot().ApplyEnabled)
	c.Advance(time.Millisecond)
	require.NoError(t, <-done)
	assert.True(t, seq.Snapshot().ApplyEnabled)
}

func TestFullScenarioEndsWithRecordPair(t *testing.T) {
	rec := &recorder{}
	seq := newTestSequencer(clock.NewAuto(epoch), rec)
	ctx := context.Background()

	require.NoError(t, seq.StartNegotiation(ctx))
	require.NoError(t, seq.ShowAlignmentResults(ctx))
	rec.reset()
	require.NoError(t, seq.ApplyTransformation(ctx))

	assert.Equal(t, scriptTexts(TransformationScript()), rec.texts(EventStatus))

	events := rec.all()
	last := events[len(events)-1]
	assert.Equal(t, EventControl, last.Kind)

	var revealed bool
	for _, e := range events {
		if e.Kind == EventPanel && e.Panel == PanelTransformation && e.On {
			revealed = true
		}
	}
	assert.True(t, revealed)

	snap := seq.Snapshot()
	assert.Equal(t, PhaseTransformed, snap.Phase)
	assert.True(t, snap.TransformationVisible)
	assert.True(t, snap.ResultsVisible)
	assert.False(t, snap.ApplyEnabled)
	assert.Equal(t, "CBR_test", snap.RunID)

	after := records.Lines(records.Target().Fields())
	assert.Contains(t, after, `familienname: "Rossi"`)
	assert.Contains(t, after, `vorname: "Marco"`)
	assert.Contains(t, after, `geburtsdatum: "1985-03-15T00:00:00Z"`)
	assert.Contains(t, after, `geschlecht: "MALE"`)
}

func TestRestartHidesPanels(t *testing.T) {
	seq := newTestSequencer(clock.NewAuto(epoch), &recorder{})
	ctx := context.Background()
	require.NoError(t, seq.StartNegotiation(ctx))
	require.NoError(t, seq.ShowAlignmentResults(ctx))
	require.NoError(t, seq.ApplyTransformation(ctx))

	require.NoError(t, seq.StartNegotiation(ctx))
	snap := seq.Snapshot()
	assert.Equal(t, PhaseNegotiated, snap.Phase)
	assert.False(t, snap.ResultsVisible)
	assert.False(t, snap.TransformationVisible)
	assert.True(t, snap.ShowResultsEnabled)
	assert.False(t, snap.ApplyEnabled)
}

func TestCancelledStartReturnsToIdle(t *testing.T) {
	c := clock.NewFake(epoch)
	seq := newTestSequencer(c, &recorder{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- seq.StartNegotiation(ctx) }()
	c.BlockUntil(1)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	snap := seq.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.True(t, snap.StartEnabled)
	assert.False(t, snap.ShowResultsEnabled)
}

func TestPickTickerMessageNeedsStartedPhase(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, ok := pickTickerMessage(PhaseIdle, rng)
	assert.False(t, ok)

	for _, phase := range []Phase{PhaseNegotiating, PhaseNegotiated, PhaseTransformed} {
		text, ok := pickTickerMessage(phase, rng)
		assert.True(t, ok)
		assert.Contains(t, TickerMessages(), text)
	}
}

func TestTickerSilentBeforeStart(t *testing.T) {
	c := clock.NewFake(epoch)
	rec := &recorder{}
	seq := newTestSequencer(c, rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- seq.RunTicker(ctx) }()

	c.BlockUntil(1)
	c.Advance(3 * time.Second)
	c.BlockUntil(1)
	assert.Empty(t, rec.texts(EventTicker))

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestTickerPublishesEveryIntervalAfterStart(t *testing.T) {
	c := clock.NewFake(epoch)
	rec := &recorder{}
	seq := newTestSequencer(c, rec, WithPace(0))
	require.NoError(t, seq.StartNegotiation(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- seq.RunTicker(ctx) }()

	for i := 0; i < 4; i++ {
		c.BlockUntil(1)
		c.Advance(2 * time.Second)
		assert.Len(t, rec.texts(EventTicker), i, "ticker fired before its interval")
		c.Advance(time.Second)
	}
	c.BlockUntil(1)
	ticks := rec.texts(EventTicker)
	require.Len(t, ticks, 4)
	for _, text := range ticks {
		assert.Contains(t, TickerMessages(), text)
	}
	assert.Equal(t, ticks[3], seq.Snapshot().Ticker)
	assert.Equal(t, PhaseNegotiated, seq.Snapshot().Phase)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestParseControl(t *testing.T) {
	c, err := ParseControl(" Show-Results ")
	require.NoError(t, err)
	assert.Equal(t, ControlShowResults, c)

	_, err = ParseControl("launch")
	assert.Error(t, err)
}

func TestNewRunIDFormat(t *testing.T) {
	id := NewRunID(epoch)
	assert.Regexp(t, `^CBR_1710493200_[0-9a-f]{8}$`, id)
}

func TestAcceptClaimsControlBeforeRunning(t *testing.T) {
	rec := &recorder{}
	seq := newTestSequencer(clock.NewFake(epoch), rec)

	run, ok := seq.Accept(ControlStart)
	require.True(t, ok)
	require.NotNil(t, run)
	snap := seq.Snapshot()
	assert.Equal(t, PhaseNegotiating, snap.Phase)
	assert.False(t, snap.StartEnabled)

	again, ok := seq.Accept(ControlStart)
	assert.False(t, ok)
	assert.Nil(t, again)

	_, ok = seq.Accept(ControlApply)
	assert.False(t, ok)
	_, ok = seq.Accept(Control("launch"))
	assert.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, run(ctx), context.Canceled)
	assert.Equal(t, PhaseIdle, seq.Snapshot().Phase)
	assert.True(t, seq.Snapshot().StartEnabled)
}
