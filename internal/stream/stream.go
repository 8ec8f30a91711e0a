// Package stream fans maintenance request events out to live subscribers
// (the SSE endpoint).
package stream

import (
	"context"
	"sync"
	"sync/atomic"

	"gearguard.io/internal/gear"
)

const bufferSize = 16

// Hub keeps one buffered channel per subscriber. A subscriber that falls
// behind misses events instead of stalling publishers.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]chan gear.RequestEvent
	next    int
	closed  bool
	dropped atomic.Uint64
}

func New() *Hub {
	return &Hub{subs: make(map[int]chan gear.RequestEvent)}
}

var _ gear.EventPublisher = (*Hub)(nil)

// Subscribe registers a subscriber. The channel closes once ctx ends or
// the hub is closed.
func (h *Hub) Subscribe(ctx context.Context) <-chan gear.RequestEvent {
	ch := make(chan gear.RequestEvent, bufferSize)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch
	}
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
		h.mu.Unlock()
	}()

	return ch
}

// Close ends every subscription and refuses new ones. Used on server
// shutdown so open streams do not hold it up.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// Publish delivers evt to every subscriber with room in its buffer.
func (h *Hub) Publish(evt gear.RequestEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
			h.dropped.Add(1)
		}
	}
}

func (h *Hub) PublishRequestEvent(_ context.Context, evt gear.RequestEvent) error {
	h.Publish(evt)
	return nil
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped counts events discarded for slow subscribers.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }
