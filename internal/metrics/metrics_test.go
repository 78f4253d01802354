package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"crossborder/internal/sequencer"
)

func TestSinkCountsByKind(t *testing.T) {
	m := New(prometheus.NewRegistry())
	sink := m.Sink()
	sink.Emit(sequencer.Event{Kind: sequencer.EventStatus})
	sink.Emit(sequencer.Event{Kind: sequencer.EventStatus})
	sink.Emit(sequencer.Event{Kind: sequencer.EventTicker})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Events.WithLabelValues("status")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("ticker")))
}

func TestRecordPress(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordPress(sequencer.ControlStart, true)
	m.RecordPress(sequencer.ControlApply, false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ControlPresses.WithLabelValues("start", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ControlPresses.WithLabelValues("apply-transformation", "disabled")))
}
