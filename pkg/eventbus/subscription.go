package eventbus

import (
	"sync"

	"go.uber.org/zap"
)

type subscription struct {
	bus     *Bus
	name    string
	handler Handler

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Event
	stopped bool
}

func newSubscription(b *Bus, name string, handler Handler) *subscription {
	s := &subscription{bus: b, name: name, handler: handler}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *subscription) enqueue(ev Event) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	s.cond.Signal()
}

func (s *subscription) stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.cond.Signal()
}

func (s *subscription) next() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 && !s.stopped {
		s.cond.Wait()
	}
	if len(s.queue) == 0 {
		return Event{}, false
	}
	ev := s.queue[0]
	s.queue[0] = Event{}
	s.queue = s.queue[1:]
	return ev, true
}

func (s *subscription) run() {
	defer s.bus.wg.Done()
	for {
		ev, ok := s.next()
		if !ok {
			return
		}
		s.deliver(ev)
		s.bus.addPending(-1)
	}
}

func (s *subscription) deliver(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			s.bus.logger.Warn("eventbus handler panic",
				zap.String("event", ev.Name),
				zap.Any("panic", r),
			)
		}
	}()
	s.handler(s.bus.ctx, ev)
}
