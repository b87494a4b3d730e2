package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func collectEvents(t *testing.T, ch <-chan Event, n int) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(2 * time.Second)
	for len(events) < n {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %d of %d", len(events), n)
		}
	}
	return events
}

func TestSubscribeReceivesConnectedFirst(t *testing.T) {
	bus := NewProgressBus(nil)
	jobID := uuid.New()

	ch, unsubscribe := bus.Subscribe(jobID)
	defer unsubscribe()

	bus.Publish(jobID, Event{Type: EventStatus, Message: "step one"})

	events := collectEvents(t, ch, 2)
	if events[0].Type != EventConnected {
		t.Errorf("first event = %s, want connected", events[0].Type)
	}
	if events[1].Type != EventStatus || events[1].Message != "step one" {
		t.Errorf("second event = %+v, want the published status", events[1])
	}
}

func TestPublishOrderIsPreservedPerSubscriber(t *testing.T) {
	bus := NewProgressBus(nil)
	jobID := uuid.New()

	ch, unsubscribe := bus.Subscribe(jobID)
	defer unsubscribe()

	for i := 0; i < 10; i++ {
		bus.Publish(jobID, Event{Type: EventProgress, StepIndex: i})
	}

	events := collectEvents(t, ch, 11)
	for i, ev := range events[1:] {
		if ev.StepIndex != i {
			t.Fatalf("event %d has step_index %d, want %d", i, ev.StepIndex, i)
		}
	}
}

func TestSlowSubscriberDropsOldestAndLags(t *testing.T) {
	bus := NewProgressBus(nil)
	jobID := uuid.New()

	ch, unsubscribe := bus.Subscribe(jobID)
	defer unsubscribe()

	// Fill past capacity without draining; connected occupies one slot
	for i := 0; i < SubscriberBufferSize+10; i++ {
		bus.Publish(jobID, Event{Type: EventProgress, StepIndex: i})
	}

	sawLagged := false
	drained := 0
	for {
		select {
		case ev := <-ch:
			drained++
			if ev.Lagged {
				sawLagged = true
			}
		default:
			if !sawLagged {
				t.Error("expected a lagged marker after buffer overflow")
			}
			if drained > SubscriberBufferSize {
				t.Errorf("drained %d events, buffer should cap at %d", drained, SubscriberBufferSize)
			}
			return
		}
	}
}

func TestPublishToUnknownTopicIsNoop(t *testing.T) {
	bus := NewProgressBus(nil)
	// Must not panic or block
	bus.Publish(uuid.New(), Event{Type: EventStatus})
}

func TestCloseDeliversStreamEndAndClosesChannels(t *testing.T) {
	bus := NewProgressBus(nil)
	jobID := uuid.New()

	ch1, _ := bus.Subscribe(jobID)
	ch2, _ := bus.Subscribe(jobID)

	bus.Close(jobID, StreamEndCompleted)

	for i, ch := range []<-chan Event{ch1, ch2} {
		events := collectEvents(t, ch, 2)
		last := events[len(events)-1]
		if last.Type != EventStreamEnd || last.Reason != StreamEndCompleted {
			t.Errorf("subscriber %d last event = %+v, want stream_end/completed", i, last)
		}
		if _, ok := <-ch; ok {
			t.Errorf("subscriber %d channel still open after Close", i)
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	bus := NewProgressBus(nil)
	jobID := uuid.New()

	ch, _ := bus.Subscribe(jobID)

	bus.Close(jobID, StreamEndCancelled)
	bus.Close(jobID, StreamEndCancelled)

	events := collectEvents(t, ch, 2)
	endCount := 0
	for _, ev := range events {
		if ev.Type == EventStreamEnd {
			endCount++
		}
	}
	if endCount != 1 {
		t.Errorf("got %d stream_end events, want exactly 1", endCount)
	}
}

func TestLateSubscriberAfterTerminalState(t *testing.T) {
	jobID := uuid.New()
	stateFn := func(id uuid.UUID) (Event, bool, StreamEndReason) {
		return ConnectedEvent(id, true, "job already finished: completed"), true, StreamEndCompleted
	}
	bus := NewProgressBus(stateFn)

	ch, unsubscribe := bus.Subscribe(jobID)
	defer unsubscribe()

	events := collectEvents(t, ch, 2)
	if events[0].Type != EventConnected || !events[0].AlreadyFinished {
		t.Errorf("first event = %+v, want connected with already_finished", events[0])
	}
	if events[1].Type != EventStreamEnd || events[1].Reason != StreamEndCompleted {
		t.Errorf("second event = %+v, want stream_end/completed", events[1])
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after terminal replay")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewProgressBus(nil)
	jobID := uuid.New()

	ch, unsubscribe := bus.Subscribe(jobID)
	collectEvents(t, ch, 1) // connected
	unsubscribe()

	// Publishing after unsubscribe must not panic on the closed channel
	bus.Publish(jobID, Event{Type: EventStatus})

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
}
