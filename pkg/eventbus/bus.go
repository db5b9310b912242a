// Package eventbus is an in-process publish/subscribe bus keyed by event name.
//
// Every handler runs on the subscription's own goroutine. Events reach a
// handler in the order they were published, and a slow handler never blocks
// the publisher or the other subscribers.
package eventbus

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("eventbus: closed")

// Event is one publication.
type Event struct {
	Name    string
	Payload any
}

// Handler receives events for one subscription.
type Handler func(ctx context.Context, ev Event)

// Func adapts a plain callback into a Handler.
func Func(fn func(Event)) Handler {
	return func(_ context.Context, ev Event) {
		fn(ev)
	}
}

// Bus fans out published events to subscribers.
type Bus struct {
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	subs   map[string][]*subscription
	closed bool

	pendingMu sync.Mutex
	pending   int
	idle      *sync.Cond

	wg sync.WaitGroup
}

// New creates a bus. A nil logger disables logging.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[string][]*subscription),
	}
	b.idle = sync.NewCond(&b.pendingMu)
	return b
}

// Subscribe appends handler to the list for name. Subscriptions live as long
// as the bus.
func (b *Bus) Subscribe(name string, handler Handler) error {
	if handler == nil {
		return errors.New("eventbus: nil handler")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	sub := newSubscription(b, name, handler)
	b.subs[name] = append(b.subs[name], sub)
	b.wg.Add(1)
	go sub.run()
	return nil
}

// Subscribers returns the number of handlers registered for name.
func (b *Bus) Subscribers(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}

// Publish queues ev for every subscriber of ev.Name and returns immediately.
// Events published after Close are dropped.
func (b *Bus) Publish(name string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	ev := Event{Name: name, Payload: payload}
	for _, sub := range b.subs[name] {
		b.addPending(1)
		sub.enqueue(ev)
	}
}

// Wait blocks until every queued event has been handled or ctx is done.
// It returns only after its helper goroutine has stopped waiting.
func (b *Bus) Wait(ctx context.Context) error {
	var gaveUp bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.pendingMu.Lock()
		defer b.pendingMu.Unlock()
		for b.pending > 0 && !gaveUp {
			b.idle.Wait()
		}
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		b.pendingMu.Lock()
		gaveUp = true
		b.idle.Broadcast()
		b.pendingMu.Unlock()
		<-done
		return ctx.Err()
	}
}

// Close stops accepting events, lets subscribers drain their queues and
// waits for them to exit.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	var all []*subscription
	for _, subs := range b.subs {
		all = append(all, subs...)
	}
	b.mu.Unlock()

	for _, sub := range all {
		sub.stop()
	}
	b.wg.Wait()
	b.cancel()
}

func (b *Bus) addPending(n int) {
	b.pendingMu.Lock()
	b.pending += n
	if b.pending <= 0 {
		b.pending = 0
		b.idle.Broadcast()
	}
	b.pendingMu.Unlock()
}
