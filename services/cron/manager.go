package cron

import (
	"log"
	"time"

	"github.com/huamanraj/investai-new/database"
	"github.com/robfig/cron/v3"
)

// Manager runs the background maintenance jobs
type Manager struct {
	cron           *cron.Cron
	store          *database.Store
	staleThreshold time.Duration
}

// NewManager creates the cron manager
func NewManager(store *database.Store, staleThreshold time.Duration) *Manager {
	return &Manager{
		cron:           cron.New(),
		store:          store,
		staleThreshold: staleThreshold,
	}
}

// Start registers and launches the jobs
func (m *Manager) Start() error {
	if _, err := m.cron.AddFunc("@every 1m", m.sweepStaleJobs); err != nil {
		return err
	}
	m.cron.Start()
	log.Println("Cron manager started")
	return nil
}

// Stop halts the scheduler, waiting for a running job to finish
func (m *Manager) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron manager stopped")
}

// sweepStaleJobs coerces running jobs with no recent heartbeat to failed
// so status endpoints report honestly and a later resume can proceed.
// On-resume coercion remains the primary recovery path; this sweep only
// covers jobs nobody has asked about.
func (m *Manager) sweepStaleJobs() {
	jobs, err := m.store.ListStaleRunningJobs(m.staleThreshold)
	if err != nil {
		log.Printf("[Cron] stale job sweep failed: %v", err)
		return
	}

	for i := range jobs {
		job := jobs[i]
		if err := m.store.CoerceStaleJob(&job); err != nil {
			log.Printf("[Cron] failed to coerce stale job %s: %v", job.ShortID, err)
			continue
		}
		log.Printf("[Cron] coerced stale job %s (stuck in %s) to failed", job.ShortID, job.CurrentStep)
	}
}
