package services

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestCancelRegistryLifecycle(t *testing.T) {
	r := NewCancelRegistry()
	jobID := uuid.New()

	if r.IsCancelled(jobID) {
		t.Error("fresh job should not be cancelled")
	}

	r.Request(jobID)
	if !r.IsCancelled(jobID) {
		t.Error("flag should be visible after Request")
	}

	r.Clear(jobID)
	if r.IsCancelled(jobID) {
		t.Error("flag should be gone after Clear")
	}
}

func TestCancelRegistryConcurrentAccess(t *testing.T) {
	r := NewCancelRegistry()
	jobID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Request(jobID)
		}()
		go func() {
			defer wg.Done()
			r.IsCancelled(jobID)
		}()
	}
	wg.Wait()

	if !r.IsCancelled(jobID) {
		t.Error("flag should be set after concurrent requests")
	}
}
