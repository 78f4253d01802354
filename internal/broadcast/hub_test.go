package broadcast

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPublishReachesEverySubscriber(t *testing.T) {
	hub := NewHub[string](4)
	a := hub.Subscribe()
	b := hub.Subscribe()
	require.Equal(t, 2, hub.Len())

	hub.Publish("status")
	assert.Equal(t, "status", <-a.C)
	assert.Equal(t, "status", <-b.C)
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub[int](2)
	var dropped atomic.Int32
	hub.OnDrop(func() { dropped.Add(1) })
	sub := hub.Subscribe()

	for i := 0; i < 5; i++ {
		hub.Publish(i)
	}
	assert.Equal(t, int32(3), dropped.Load())
	assert.Equal(t, 0, <-sub.C)
	assert.Equal(t, 1, <-sub.C)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub[int](1)
	sub := hub.Subscribe()
	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)

	_, ok := <-sub.C
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Len())
	hub.Publish(1)
}

func TestCloseEndsSubscriptions(t *testing.T) {
	hub := NewHub[int](1)
	sub := hub.Subscribe()
	hub.Close()
	hub.Close()

	_, ok := <-sub.C
	assert.False(t, ok)

	late := hub.Subscribe()
	_, ok = <-late.C
	assert.False(t, ok)
}
