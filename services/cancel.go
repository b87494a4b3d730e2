package services

import (
	"sync"

	"github.com/google/uuid"
)

// CancelRegistry holds the per-job cancellation flags the executor polls
// between steps and at the checkpoints inside long steps. Flags are
// process-local; the durable record of cancellation is the job row.
type CancelRegistry struct {
	mu    sync.Mutex
	flags map[uuid.UUID]bool
}

// NewCancelRegistry creates an empty registry
func NewCancelRegistry() *CancelRegistry {
	return &CancelRegistry{flags: make(map[uuid.UUID]bool)}
}

// Request marks a job for cancellation
func (r *CancelRegistry) Request(jobID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags[jobID] = true
}

// IsCancelled reports whether cancellation was requested for the job
func (r *CancelRegistry) IsCancelled(jobID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flags[jobID]
}

// Clear removes the flag once the job has acted on it or finished
func (r *CancelRegistry) Clear(jobID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.flags, jobID)
}
