package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/huamanraj/investai-new/config"
	"github.com/huamanraj/investai-new/database"
	"github.com/huamanraj/investai-new/model"
	"github.com/huamanraj/investai-new/services/gradient"
	"github.com/huamanraj/investai-new/services/spaces"
	"github.com/huamanraj/investai-new/utils/apperr"
)

// errCancelled aborts a step when the job's cancellation flag is observed
var errCancelled = apperr.New(apperr.KindCancelled, "job cancelled")

// fatalError marks an error that invalidates the job's assumptions;
// the job is left with can_resume = false
type fatalError struct {
	err error
}

func (f *fatalError) Error() string { return f.err.Error() }
func (f *fatalError) Unwrap() error { return f.err }

func markFatal(err error) error {
	return &fatalError{err: err}
}

func isFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}

// stepFunc runs one pipeline step against the job's resume payload.
// A step consults the payload first and skips sub-work whose output is
// already present; its last action is the atomic step commit.
type stepFunc func(ctx context.Context, job *model.IngestionJob, payload *ResumePayload) error

// StepExecutor drives the eight-step ingestion pipeline as a durable,
// resumable, cancellable state machine. One worker goroutine per job;
// multiple jobs may run concurrently.
type StepExecutor struct {
	store      *database.Store
	bus        *ProgressBus
	cancels    *CancelRegistry
	scraper    *Scraper
	pdf        *PDFExtractor
	chunker    *Chunker
	blobs      *spaces.DocumentStore
	embeddings *gradient.EmbeddingClient
	inference  *gradient.InferenceClient
	snapshots  *SnapshotService
	cfg        *config.EnviornmentVariable

	steps []stepFunc
}

// NewStepExecutor wires the executor with its collaborators
func NewStepExecutor(
	store *database.Store,
	bus *ProgressBus,
	cancels *CancelRegistry,
	scraper *Scraper,
	pdfExtractor *PDFExtractor,
	chunker *Chunker,
	blobs *spaces.DocumentStore,
	embeddings *gradient.EmbeddingClient,
	inference *gradient.InferenceClient,
	snapshots *SnapshotService,
	cfg *config.EnviornmentVariable,
) *StepExecutor {
	e := &StepExecutor{
		store:      store,
		bus:        bus,
		cancels:    cancels,
		scraper:    scraper,
		pdf:        pdfExtractor,
		chunker:    chunker,
		blobs:      blobs,
		embeddings: embeddings,
		inference:  inference,
		snapshots:  snapshots,
		cfg:        cfg,
	}
	e.steps = []stepFunc{
		e.stepValidateURL,
		e.stepScrapePage,
		e.stepDownloadPDFs,
		e.stepUploadToCloud,
		e.stepExtractText,
		e.stepExtractData,
		e.stepCreateEmbeddings,
		e.stepGenerateSnapshot,
	}
	return e
}

// staleThreshold returns the configured crash-detection window
func (e *StepExecutor) staleThreshold() time.Duration {
	return time.Duration(e.cfg.STALE_JOB_THRESHOLD_MINUTES) * time.Minute
}

// Start acquires the project's job slot and launches a fresh run. A second
// active job for the same project surfaces as Conflict.
func (e *StepExecutor) Start(projectID uuid.UUID) (*model.IngestionJob, error) {
	job, err := e.store.AcquireJobSlot(projectID)
	if err != nil {
		return nil, err
	}

	go e.runAsync(job)
	return job, nil
}

// Resume restarts a failed or cancelled job from its last successful step.
// A project with no job at all falls back to a fresh Start. A running job
// older than the staleness threshold is presumed crashed, coerced to
// failed, and then resumed normally.
func (e *StepExecutor) Resume(projectID uuid.UUID) (*model.IngestionJob, error) {
	job, err := e.store.GetLatestJob(projectID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return e.Start(projectID)
		}
		return nil, err
	}

	switch job.Status {
	case model.JobStatusCompleted:
		return nil, apperr.Validation("job already completed")
	case model.JobStatusPending, model.JobStatusRunning:
		if !job.IsStale(e.staleThreshold()) {
			return nil, apperr.Validation("job is actively running")
		}
		if err := e.store.CoerceStaleJob(job); err != nil {
			return nil, err
		}
	case model.JobStatusFailed, model.JobStatusCancelled:
		if !job.CanResume {
			return nil, apperr.Validation("job cannot be resumed")
		}
	}

	job.Status = model.JobStatusRunning
	job.RetryCount++
	job.FailedStep = ""
	job.ErrorMessage = ""
	job.CancelledAt = nil
	job.CurrentStepIndex = model.StepIndex(job.LastSuccessfulStep) + 1
	if job.CurrentStepIndex < model.TotalSteps {
		job.CurrentStep = model.StepOrder[job.CurrentStepIndex]
	}
	e.cancels.Clear(job.ID)
	if err := e.store.SaveJob(job); err != nil {
		return nil, err
	}

	if job.RetryCount > e.cfg.MAX_RETRIES {
		e.bus.Publish(job.ID, Event{
			Type:      EventDetail,
			Step:      job.CurrentStep,
			Message:   fmt.Sprintf("retry %d exceeds the configured maximum of %d", job.RetryCount, e.cfg.MAX_RETRIES),
			Timestamp: time.Now().UTC(),
		})
	}

	go e.runAsync(job)
	return job, nil
}

// Cancel durably cancels the project's active job and signals the worker
func (e *StepExecutor) Cancel(projectID uuid.UUID) (*model.IngestionJob, error) {
	job, err := e.store.GetActiveJob(projectID)
	if err != nil {
		return nil, err
	}
	e.cancels.Request(job.ID)

	cancelled, err := e.store.MarkJobCancelled(job.ID)
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// runAsync is the worker entry point; a panicking step fails the job
// instead of crashing the process
func (e *StepExecutor) runAsync(job *model.IngestionJob) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[StepExecutor] panic in job %s: %v", job.ShortID, r)
			e.fail(job, job.CurrentStep, fmt.Errorf("panic: %v", r), true)
		}
	}()
	e.run(context.Background(), job)
}

func (e *StepExecutor) run(ctx context.Context, job *model.IngestionJob) {
	defer e.cancels.Clear(job.ID)

	payload, err := LoadResumePayload(job)
	if err != nil {
		e.fail(job, job.CurrentStep, markFatal(err), false)
		return
	}

	if job.Status != model.JobStatusRunning {
		job.Status = model.JobStatusRunning
		if err := e.store.SaveJob(job); err != nil {
			log.Printf("[StepExecutor] failed to mark job %s running: %v", job.ShortID, err)
			return
		}
	}

	for idx := job.CurrentStepIndex; idx < model.TotalSteps; idx++ {
		if e.cancels.IsCancelled(job.ID) {
			e.finishCancelled(job)
			return
		}

		stepName := model.StepOrder[idx]
		job.CurrentStep = stepName
		job.CurrentStepIndex = idx
		if err := e.store.SaveJob(job); err != nil {
			log.Printf("[StepExecutor] failed to persist step entry for job %s: %v", job.ShortID, err)
			return
		}

		e.bus.Publish(job.ID, StatusEvent(stepName, idx, stepEntryMessage(stepName)))

		if err := e.steps[idx](ctx, job, payload); err != nil {
			if apperr.Is(err, apperr.KindCancelled) {
				e.finishCancelled(job)
				return
			}
			e.fail(job, stepName, err, !isFatal(err))
			return
		}

		e.bus.Publish(job.ID, DetailEvent(stepName, Counters{
			DocumentsProcessed: job.DocumentsProcessed,
			EmbeddingsCreated:  job.EmbeddingsCreated,
		}, stepName+" completed"))
	}

	e.finishCompleted(job)
}

// commitStep atomically persists a step's row writes, the updated resume
// payload, and the job bookkeeping. Either the step is complete and will be
// skipped on resume, or none of it is visible.
func (e *StepExecutor) commitStep(job *model.IngestionJob, payload *ResumePayload, stepName string, mutate func(tx *database.Store) error) error {
	encoded, err := payload.Encode()
	if err != nil {
		return markFatal(err)
	}

	return e.store.Transaction(func(tx *database.Store) error {
		if mutate != nil {
			if err := mutate(tx); err != nil {
				return err
			}
		}
		job.ResumeData = encoded
		job.LastSuccessfulStep = stepName
		job.CurrentStepIndex = model.StepIndex(stepName) + 1
		return tx.SaveJob(job)
	})
}

// checkCancelled is the in-step checkpoint for long steps. It doubles as
// the heartbeat that keeps a live job from reading as stale.
func (e *StepExecutor) checkCancelled(job *model.IngestionJob) error {
	if e.cancels.IsCancelled(job.ID) {
		return errCancelled
	}
	if err := e.store.TouchJob(job.ID); err != nil {
		log.Printf("[StepExecutor] heartbeat failed for job %s: %v", job.ShortID, err)
	}
	return nil
}

func (e *StepExecutor) finishCompleted(job *model.IngestionJob) {
	now := time.Now().UTC()
	job.Status = model.JobStatusCompleted
	job.CompletedAt = &now
	job.CurrentStepIndex = model.TotalSteps
	if err := e.store.SaveJob(job); err != nil {
		log.Printf("[StepExecutor] failed to complete job %s: %v", job.ShortID, err)
		return
	}
	if err := e.store.UpdateProjectStatus(job.ProjectID, model.ProjectStatusCompleted, ""); err != nil {
		log.Printf("[StepExecutor] failed to mark project %s completed: %v", job.ProjectID, err)
	}

	e.bus.Publish(job.ID, Event{
		Type:      EventCompleted,
		Message:   "ingestion completed",
		Timestamp: time.Now().UTC(),
	})
	e.bus.Close(job.ID, StreamEndCompleted)
}

func (e *StepExecutor) finishCancelled(job *model.IngestionJob) {
	if _, err := e.store.MarkJobCancelled(job.ID); err != nil {
		log.Printf("[StepExecutor] failed to persist cancellation of job %s: %v", job.ShortID, err)
	}

	e.bus.Publish(job.ID, Event{
		Type:      EventCancelled,
		Message:   "job cancelled",
		Timestamp: time.Now().UTC(),
	})
	e.bus.Close(job.ID, StreamEndCancelled)
}

func (e *StepExecutor) fail(job *model.IngestionJob, stepName string, stepErr error, canResume bool) {
	job.Status = model.JobStatusFailed
	job.FailedStep = stepName
	job.ErrorMessage = stepErr.Error()
	job.CanResume = canResume
	if err := e.store.SaveJob(job); err != nil {
		log.Printf("[StepExecutor] failed to persist failure of job %s: %v", job.ShortID, err)
	}
	if err := e.store.UpdateProjectStatus(job.ProjectID, model.ProjectStatusFailed, stepErr.Error()); err != nil {
		log.Printf("[StepExecutor] failed to mark project %s failed: %v", job.ProjectID, err)
	}

	e.bus.Publish(job.ID, Event{
		Type:      EventError,
		Step:      stepName,
		Message:   stepErr.Error(),
		Timestamp: time.Now().UTC(),
	})
	e.bus.Close(job.ID, StreamEndError)
}

// stepEntryMessage returns the human message for a step's status event
func stepEntryMessage(stepName string) string {
	switch stepName {
	case model.StepValidateURL:
		return "Validating source URL"
	case model.StepScrapePage:
		return "Scraping filings page"
	case model.StepDownloadPDFs:
		return "Downloading PDF filings"
	case model.StepUploadToCloud:
		return "Uploading filings to blob storage"
	case model.StepExtractText:
		return "Extracting text from PDFs"
	case model.StepExtractData:
		return "Extracting structured financial data"
	case model.StepCreateEmbeddings:
		return "Creating embeddings"
	case model.StepGenerateSnapshot:
		return "Generating company snapshot"
	default:
		return stepName
	}
}
