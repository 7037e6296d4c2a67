// Package broadcast provides a latest-value publish/subscribe primitive.
package broadcast

import (
	"context"
	"sync"
)

// Broadcaster fans the latest value out to any number of subscribers.
// Slow subscribers never block a publisher: each subscription holds at most
// one pending value and a newer value replaces an undelivered one.
type Broadcaster[T any] struct {
	mu    sync.Mutex
	value T
	set   bool
	subs  map[chan T]struct{}
}

// New creates an empty broadcaster
func New[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[chan T]struct{})}
}

// Publish stores v as the latest value and delivers it to every subscriber
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.value = v
	b.set = true
	for ch := range b.subs {
		offer(ch, v)
	}
}

// Seed sets the initial value unless something was already published.
// It reports whether the value was taken.
func (b *Broadcaster[T]) Seed(v T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.set {
		return false
	}
	b.value = v
	b.set = true
	for ch := range b.subs {
		offer(ch, v)
	}
	return true
}

// Latest returns the most recent value and whether one exists
func (b *Broadcaster[T]) Latest() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value, b.set
}

// Subscribe returns a channel that immediately receives the current value
// (if any) and every later one. The channel is closed when ctx is done.
func (b *Broadcaster[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	if b.set {
		ch <- b.value
	}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// offer must be called with b.mu held
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- v
}
