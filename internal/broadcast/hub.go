// Package broadcast fans values out to any number of subscribers without
// letting a slow subscriber stall the publisher.
package broadcast

import "sync"

// Subscription receives published values on C until it is unsubscribed or
// the hub is closed.
type Subscription[T any] struct {
	C  <-chan T
	ch chan T
}

// Hub is a non-blocking publish/subscribe fan-out.
type Hub[T any] struct {
	mu     sync.RWMutex
	subs   map[*Subscription[T]]struct{}
	buffer int
	closed bool
	onDrop func()
}

// NewHub returns a hub whose subscribers buffer up to buffer values.
func NewHub[T any](buffer int) *Hub[T] {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub[T]{
		subs:   make(map[*Subscription[T]]struct{}),
		buffer: buffer,
	}
}

// OnDrop registers a callback run each time a value is dropped for a full
// subscriber.
func (h *Hub[T]) OnDrop(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDrop = fn
}

// Subscribe registers a new subscriber. Subscribing to a closed hub returns
// an already closed subscription.
func (h *Hub[T]) Subscribe() *Subscription[T] {
	ch := make(chan T, h.buffer)
	sub := &Subscription[T]{C: ch, ch: ch}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel. It is safe to call twice.
func (h *Hub[T]) Unsubscribe(sub *Subscription[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.ch)
}

// Publish delivers v to every subscriber that has room for it.
func (h *Hub[T]) Publish(v T) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		select {
		case sub.ch <- v:
		default:
			if h.onDrop != nil {
				h.onDrop()
			}
		}
	}
}

// Len is the number of live subscribers.
func (h *Hub[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes every subscription and rejects new ones.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		close(sub.ch)
		delete(h.subs, sub)
	}
}
