package burnstone

import (
	"sync"

	"github.com/eapache/queue"
)

// ProgressEvent is the unit of reporting from the engine and its
// workers to whatever is watching (CLI, telemetry UI). Events from one
// producer arrive in the order produced; events from concurrently
// running workers may interleave. The final event of a run always has
// Running false and is delivered after every other event of that run.
type ProgressEvent struct {
	LogicalIndex int    // logical processor the event concerns, -1 for run-level events
	TotalUnits   int    // number of units (logical processors) in the run
	Running      bool   // false only on the final event of a run
	Status       string // human-readable state, e.g. "testing logical processor 3 of 16"
	ErrorCount   int64  // run-scoped cumulative error count, monotonic
	LastError    string // description of the most recent error, if any
}

// EventBus fans ProgressEvents out to any number of subscribers.
// Publishing never blocks: each subscriber owns an unbounded FIFO that
// a pump goroutine drains into its channel. A stressed worker must
// never stall on a consumer that has fallen behind.
type EventBus struct {
	mu     sync.Mutex
	subs   map[int]*eventSub
	nextID int
	closed bool
}

type eventSub struct {
	mu   sync.Mutex
	q    *queue.Queue
	wake chan struct{}
	out  chan ProgressEvent
	quit chan struct{} // immediate teardown (unsubscribe)
	stop chan struct{} // drain remaining events, then close (bus Close)

	quitOnce sync.Once
	stopOnce sync.Once
}

// NewEventBus creates an empty bus
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[int]*eventSub)}
}

// Subscribe registers a consumer. The returned cancel function detaches
// it and closes its channel; it is safe to call more than once.
func (b *EventBus) Subscribe() (<-chan ProgressEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan ProgressEvent)
		close(ch)
		return ch, func() {}
	}

	s := &eventSub{
		q:    queue.New(),
		wake: make(chan struct{}, 1),
		out:  make(chan ProgressEvent, 16),
		quit: make(chan struct{}),
		stop: make(chan struct{}),
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = s
	go s.pump()

	cancel := func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		s.quitOnce.Do(func() { close(s.quit) })
	}
	return s.out, cancel
}

// Publish delivers an event to every subscriber without blocking
func (b *EventBus) Publish(ev ProgressEvent) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	subs := make([]*eventSub, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.push(ev)
	}
}

// Close shuts the bus down. Already-published events are still drained
// to each subscriber before its channel closes.
func (b *EventBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make([]*eventSub, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.subs = make(map[int]*eventSub)
	b.mu.Unlock()

	for _, s := range subs {
		s.stopOnce.Do(func() { close(s.stop) })
	}
}

func (s *eventSub) push(ev ProgressEvent) {
	s.mu.Lock()
	s.q.Add(ev)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pump moves events from the queue to the subscriber channel, keeping
// FIFO order. It exits on quit immediately, or on stop once the queue
// is empty.
func (s *eventSub) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		var ev ProgressEvent
		ok := s.q.Length() > 0
		if ok {
			ev = s.q.Remove().(ProgressEvent)
		}
		s.mu.Unlock()

		if ok {
			select {
			case s.out <- ev:
			case <-s.quit:
				return
			}
			continue
		}

		select {
		case <-s.wake:
		case <-s.quit:
			return
		case <-s.stop:
			s.mu.Lock()
			empty := s.q.Length() == 0
			s.mu.Unlock()
			if empty {
				return
			}
		}
	}
}
