package services

import (
	"sync"

	"github.com/google/uuid"
)

// SubscriberBufferSize is the bounded capacity of each subscriber channel
const SubscriberBufferSize = 64

// JobStateFunc builds the synthetic connected event for a subscriber from
// the job's current persisted state. finished reports whether the job has
// already reached a terminal state; reason is only read when it has.
type JobStateFunc func(jobID uuid.UUID) (connected Event, finished bool, reason StreamEndReason)

type subscriber struct {
	ch     chan Event
	lagged bool
	closed bool
}

type topic struct {
	subs   map[int]*subscriber
	nextID int
}

// ProgressBus is the process-wide registry of per-job event topics.
// Publish never blocks on a slow subscriber: when a buffer is full the
// oldest event is dropped and the subscriber's next delivery carries a
// lagged marker.
type ProgressBus struct {
	mu      sync.Mutex
	topics  map[uuid.UUID]*topic
	stateFn JobStateFunc
}

// NewProgressBus creates a bus. stateFn supplies the connected event for
// late subscribers; it may be nil in tests.
func NewProgressBus(stateFn JobStateFunc) *ProgressBus {
	return &ProgressBus{
		topics:  make(map[uuid.UUID]*topic),
		stateFn: stateFn,
	}
}

// Publish delivers an event to every current subscriber of the job's topic.
// Non-blocking; safe to call from any worker goroutine.
func (b *ProgressBus) Publish(jobID uuid.UUID, event Event) {
	b.mu.Lock()
	t, ok := b.topics[jobID]
	if !ok {
		b.mu.Unlock()
		return
	}
	subs := make([]*subscriber, 0, len(t.subs))
	for _, sub := range t.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		b.deliver(sub, event)
	}
}

// deliver sends one event to one subscriber without ever blocking.
// The subscriber state and the non-blocking sends share the bus lock so a
// concurrent unsubscribe cannot close the channel mid-send.
func (b *ProgressBus) deliver(sub *subscriber, event Event) {
	b.mu.Lock()
	if sub.closed {
		b.mu.Unlock()
		return
	}
	if sub.lagged {
		event.Lagged = true
		sub.lagged = false
	}

	select {
	case sub.ch <- event:
	default:
		// Buffer full: drop the oldest event and mark the lag
		select {
		case <-sub.ch:
		default:
		}
		sub.lagged = true
		event.Lagged = true
		select {
		case sub.ch <- event:
		default:
		}
	}
	b.mu.Unlock()
}

// Subscribe registers a new subscriber for the job's topic and returns its
// receive channel plus a teardown handle. The subscriber immediately
// receives a synthetic connected event with the job's persisted state; if
// the job is already terminal it then receives stream_end and the channel
// is closed — no historical backfill is replayed.
func (b *ProgressBus) Subscribe(jobID uuid.UUID) (<-chan Event, func()) {
	var connected Event
	finished := false
	reason := StreamEndCompleted
	if b.stateFn != nil {
		connected, finished, reason = b.stateFn(jobID)
	} else {
		connected = ConnectedEvent(jobID, false, "connected")
	}

	ch := make(chan Event, SubscriberBufferSize)

	if finished {
		ch <- connected
		ch <- Event{Type: EventStreamEnd, Reason: reason}
		close(ch)
		return ch, func() {}
	}

	// Queue the connected event before registration so it is always first
	// and no concurrent Close can slip in between
	ch <- connected

	b.mu.Lock()
	t, ok := b.topics[jobID]
	if !ok {
		t = &topic{subs: make(map[int]*subscriber)}
		b.topics[jobID] = t
	}
	id := t.nextID
	t.nextID++
	sub := &subscriber{ch: ch}
	t.subs[id] = sub
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		t, ok := b.topics[jobID]
		if !ok {
			return
		}
		if s, ok := t.subs[id]; ok && !s.closed {
			s.closed = true
			close(s.ch)
			delete(t.subs, id)
		}
		if len(t.subs) == 0 {
			delete(b.topics, jobID)
		}
	}

	// The job may have gone terminal between the state lookup and the
	// registration above; re-check so this subscriber is not left waiting
	// on a topic nobody will close again
	if b.stateFn != nil {
		if _, nowFinished, lateReason := b.stateFn(jobID); nowFinished {
			b.mu.Lock()
			if s, ok := t.subs[id]; ok && !s.closed {
				s.closed = true
				delete(t.subs, id)
				if len(t.subs) == 0 {
					delete(b.topics, jobID)
				}
				s.ch <- Event{Type: EventStreamEnd, Reason: lateReason}
				close(s.ch)
			}
			b.mu.Unlock()
			return ch, func() {}
		}
	}

	return ch, unsubscribe
}

// Close publishes a terminal stream_end with the given reason, then closes
// every subscriber channel for the topic. Idempotent.
func (b *ProgressBus) Close(jobID uuid.UUID, reason StreamEndReason) {
	b.mu.Lock()
	t, ok := b.topics[jobID]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.topics, jobID)
	subs := make([]*subscriber, 0, len(t.subs))
	for _, sub := range t.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	end := Event{Type: EventStreamEnd, Reason: reason}
	for _, sub := range subs {
		b.deliver(sub, end)
		b.mu.Lock()
		if !sub.closed {
			sub.closed = true
			close(sub.ch)
		}
		b.mu.Unlock()
	}
}

// CloseAll closes every topic; used on graceful shutdown
func (b *ProgressBus) CloseAll(reason StreamEndReason) {
	b.mu.Lock()
	ids := make([]uuid.UUID, 0, len(b.topics))
	for id := range b.topics {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	for _, id := range ids {
		b.Close(id, reason)
	}
}
