package services

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/huamanraj/investai-new/model"
)

// EventType identifies a progress or chat stream event
type EventType string

const (
	EventConnected EventType = "connected"
	EventStatus    EventType = "status"
	EventProgress  EventType = "progress"
	EventDetail    EventType = "detail"
	EventCompleted EventType = "completed"
	EventError     EventType = "error"
	EventCancelled EventType = "cancelled"
	EventStreamEnd EventType = "stream_end"

	// Chat-only events
	EventContext EventType = "context"
	EventStart   EventType = "start"
	EventChunk   EventType = "chunk"
	EventDone    EventType = "done"
)

// StreamEndReason explains why a topic was closed
type StreamEndReason string

const (
	StreamEndCompleted        StreamEndReason = "completed"
	StreamEndError            StreamEndReason = "error"
	StreamEndCancelled        StreamEndReason = "cancelled"
	StreamEndClientDisconnect StreamEndReason = "client_disconnect"
	StreamEndShutdown         StreamEndReason = "shutdown"
)

// Counters carries the job counters updated by a step
type Counters struct {
	DocumentsProcessed int `json:"documents_processed"`
	EmbeddingsCreated  int `json:"embeddings_created"`
}

// Event is the single wire shape for both job progress and chat streams.
// Fields are filled per event type; everything unused is omitted.
type Event struct {
	Type EventType `json:"type"`

	// connected
	JobID           string `json:"job_id,omitempty"`
	AlreadyFinished bool   `json:"already_finished,omitempty"`

	// status / progress / detail / error
	Step       string    `json:"step,omitempty"`
	StepIndex  int       `json:"step_index,omitempty"`
	TotalSteps int       `json:"total_steps,omitempty"`
	Counters   *Counters `json:"counters,omitempty"`

	Message string `json:"message,omitempty"`

	// stream_end
	Reason StreamEndReason `json:"reason,omitempty"`

	// Set when the subscriber's buffer overflowed and events were dropped
	Lagged bool `json:"lagged,omitempty"`

	// chat-only
	ChunksFound int    `json:"chunks_found,omitempty"`
	Content     string `json:"content,omitempty"`
	MessageID   string `json:"message_id,omitempty"`

	Timestamp time.Time `json:"timestamp,omitzero"`
}

// MarshalJSON keeps step_index on status and progress events and
// already_finished on connected events even when they are zero, since both
// belong to those payloads; every other event omits them.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	out := struct {
		plain
		StepIndex       *int  `json:"step_index,omitempty"`
		AlreadyFinished *bool `json:"already_finished,omitempty"`
	}{plain: plain(e)}
	switch e.Type {
	case EventStatus, EventProgress:
		out.StepIndex = &e.StepIndex
	case EventConnected:
		out.AlreadyFinished = &e.AlreadyFinished
	}
	return json.Marshal(out)
}

// StatusEvent builds a step-entry event
func StatusEvent(step string, stepIndex int, message string) Event {
	return Event{
		Type:       EventStatus,
		Step:       step,
		StepIndex:  stepIndex,
		TotalSteps: model.TotalSteps,
		Message:    message,
		Timestamp:  time.Now().UTC(),
	}
}

// ProgressEvent builds a finer-grained mid-step event
func ProgressEvent(step string, stepIndex int, message string) Event {
	e := StatusEvent(step, stepIndex, message)
	e.Type = EventProgress
	return e
}

// DetailEvent builds a step-completion event carrying counters
func DetailEvent(step string, counters Counters, message string) Event {
	return Event{
		Type:      EventDetail,
		Step:      step,
		Counters:  &counters,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// ConnectedEvent builds the synthetic event delivered on subscription
func ConnectedEvent(jobID uuid.UUID, alreadyFinished bool, message string) Event {
	return Event{
		Type:            EventConnected,
		JobID:           jobID.String(),
		AlreadyFinished: alreadyFinished,
		Message:         message,
		Timestamp:       time.Now().UTC(),
	}
}
