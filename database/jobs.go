package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/huamanraj/investai-new/model"
	"github.com/huamanraj/investai-new/utils/apperr"
)

// AcquireJobSlot attempts to insert a new pending job for the project.
// The partial unique index on (project_id) WHERE status IN ('pending',
// 'running') rejects a second active job; that surfaces as Conflict.
func (s *Store) AcquireJobSlot(projectID uuid.UUID) (*model.IngestionJob, error) {
	job := &model.IngestionJob{
		ProjectID:   projectID,
		Status:      model.JobStatusPending,
		CurrentStep: model.StepOrder[0],
		CanResume:   true,
		StartedAt:   time.Now().UTC(),
	}
	if err := s.db.Create(job).Error; err != nil {
		return nil, wrapDBError("acquire job slot", err)
	}
	return job, nil
}

// GetJob fetches a job by id
func (s *Store) GetJob(id uuid.UUID) (*model.IngestionJob, error) {
	var job model.IngestionJob
	if err := s.db.First(&job, "id = ?", id).Error; err != nil {
		return nil, wrapDBError("get job", err)
	}
	return &job, nil
}

// GetLatestJob returns the most recent job for a project regardless of state
func (s *Store) GetLatestJob(projectID uuid.UUID) (*model.IngestionJob, error) {
	var job model.IngestionJob
	err := s.db.Where("project_id = ?", projectID).Order("started_at DESC").First(&job).Error
	if err != nil {
		return nil, wrapDBError("get latest job", err)
	}
	return &job, nil
}

// GetActiveJob returns the pending or running job for a project, if any
func (s *Store) GetActiveJob(projectID uuid.UUID) (*model.IngestionJob, error) {
	var job model.IngestionJob
	err := s.db.Where("project_id = ? AND status IN ?", projectID,
		[]model.JobStatus{model.JobStatusPending, model.JobStatusRunning}).
		First(&job).Error
	if err != nil {
		return nil, wrapDBError("get active job", err)
	}
	return &job, nil
}

// SaveJob persists the full job row. UpdatedAt is bumped so staleness
// detection sees live jobs as fresh.
func (s *Store) SaveJob(job *model.IngestionJob) error {
	job.UpdatedAt = time.Now().UTC()
	return wrapDBError("save job", s.db.Save(job).Error)
}

// TouchJob bumps updated_at without changing anything else
func (s *Store) TouchJob(id uuid.UUID) error {
	err := s.db.Model(&model.IngestionJob{}).Where("id = ?", id).
		Update("updated_at", time.Now().UTC()).Error
	return wrapDBError("touch job", err)
}

// MarkJobCancelled transitions an active job to cancelled. Returns the
// job after the transition; cancelling an already-cancelled job is a no-op.
func (s *Store) MarkJobCancelled(id uuid.UUID) (*model.IngestionJob, error) {
	var job model.IngestionJob
	err := s.Transaction(func(tx *Store) error {
		if err := tx.db.First(&job, "id = ?", id).Error; err != nil {
			return err
		}
		if job.Status == model.JobStatusCancelled {
			return nil
		}
		now := time.Now().UTC()
		job.Status = model.JobStatusCancelled
		job.CanResume = true
		job.CancelledAt = &now
		job.UpdatedAt = now
		return tx.db.Save(&job).Error
	})
	if err != nil {
		return nil, wrapDBError("cancel job", err)
	}
	return &job, nil
}

// CoerceStaleJob flips a crashed running job to failed so it can be
// resumed. The failed step is the step it died in.
func (s *Store) CoerceStaleJob(job *model.IngestionJob) error {
	if job.Status != model.JobStatusRunning {
		return apperr.Conflict("coerce stale job: job is not running")
	}
	job.Status = model.JobStatusFailed
	job.FailedStep = job.CurrentStep
	job.ErrorMessage = "job presumed crashed: no progress within staleness threshold"
	return s.SaveJob(job)
}

// ListStaleRunningJobs returns running jobs whose updated_at is older than
// the threshold; used by the background sweeper
func (s *Store) ListStaleRunningJobs(threshold time.Duration) ([]model.IngestionJob, error) {
	cutoff := time.Now().UTC().Add(-threshold)
	var jobs []model.IngestionJob
	err := s.db.Where("status = ? AND updated_at < ?", model.JobStatusRunning, cutoff).Find(&jobs).Error
	if err != nil {
		return nil, wrapDBError("list stale jobs", err)
	}
	return jobs, nil
}
