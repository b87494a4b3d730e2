package database

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/huamanraj/investai-new/model"
	"github.com/huamanraj/investai-new/utils/apperr"
)

// newTestStore connects to the database named in the environment. These
// tests need a PostgreSQL with the pgvector extension available.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=true to run")
	}

	store, err := StartGORM()
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	if err := store.Init(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return store
}

func createTestProject(t *testing.T, store *Store) *model.Project {
	t.Helper()
	url := fmt.Sprintf("https://host.example/stock-share-price/test-co-%s/TST/1/financials-annual-reports/", uuid.NewString()[:8])
	project, err := store.CreateProjectIfAbsent(url, "TEST CO")
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	t.Cleanup(func() { store.DeleteProject(project.ID) })
	return project
}

func TestProjectURLUniqueness(t *testing.T) {
	store := newTestStore(t)
	project := createTestProject(t, store)

	_, err := store.CreateProjectIfAbsent(project.SourceURL, "TEST CO")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("duplicate url error kind = %s, want conflict", apperr.KindOf(err))
	}
}

func TestAcquireJobSlotEnforcesOneActiveJob(t *testing.T) {
	store := newTestStore(t)
	project := createTestProject(t, store)

	first, err := store.AcquireJobSlot(project.ID)
	if err != nil {
		t.Fatalf("first slot acquisition failed: %v", err)
	}

	if _, err := store.AcquireJobSlot(project.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("second slot error kind = %s, want conflict", apperr.KindOf(err))
	}

	// A terminal job frees the slot
	if _, err := store.MarkJobCancelled(first.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := store.AcquireJobSlot(project.ID); err != nil {
		t.Errorf("slot should be free after cancellation: %v", err)
	}
}

func TestMarkJobCancelledIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	project := createTestProject(t, store)

	job, err := store.AcquireJobSlot(project.ID)
	if err != nil {
		t.Fatalf("slot acquisition failed: %v", err)
	}

	if _, err := store.MarkJobCancelled(job.ID); err != nil {
		t.Fatalf("first cancel failed: %v", err)
	}
	first, err := store.GetJob(job.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	second, err := store.MarkJobCancelled(job.ID)
	if err != nil {
		t.Fatalf("second cancel failed: %v", err)
	}

	if second.Status != model.JobStatusCancelled {
		t.Errorf("status after double cancel = %s", second.Status)
	}
	if first.CancelledAt == nil || second.CancelledAt == nil ||
		!first.CancelledAt.Equal(*second.CancelledAt) {
		t.Error("second cancel must not move cancelled_at")
	}
}

func TestCoerceStaleJob(t *testing.T) {
	store := newTestStore(t)
	project := createTestProject(t, store)

	job, err := store.AcquireJobSlot(project.ID)
	if err != nil {
		t.Fatalf("slot acquisition failed: %v", err)
	}

	job.Status = model.JobStatusRunning
	job.CurrentStep = model.StepExtractData
	job.CurrentStepIndex = model.StepIndex(model.StepExtractData)
	job.LastSuccessfulStep = model.StepExtractText
	if err := store.SaveJob(job); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	// Age the heartbeat past the threshold
	if err := store.DB().Model(&model.IngestionJob{}).Where("id = ?", job.ID).
		Update("updated_at", time.Now().UTC().Add(-10*time.Minute)).Error; err != nil {
		t.Fatalf("failed to age job: %v", err)
	}

	stale, err := store.GetJob(job.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !stale.IsStale(5 * time.Minute) {
		t.Fatal("job should read as stale")
	}

	if err := store.CoerceStaleJob(stale); err != nil {
		t.Fatalf("coerce failed: %v", err)
	}
	if stale.Status != model.JobStatusFailed || stale.FailedStep != model.StepExtractData {
		t.Errorf("coerced job = %s/%s, want failed/extract_data", stale.Status, stale.FailedStep)
	}
}

func TestSnapshotVersioning(t *testing.T) {
	store := newTestStore(t)
	project := createTestProject(t, store)

	for want := 1; want <= 2; want++ {
		snapshot := &model.CompanySnapshot{
			ProjectID:    project.ID,
			SnapshotData: []byte(`{"company_overview":"test"}`),
		}
		if err := store.CreateSnapshot(snapshot); err != nil {
			t.Fatalf("snapshot %d failed: %v", want, err)
		}
		if snapshot.Version != want {
			t.Errorf("snapshot version = %d, want %d", snapshot.Version, want)
		}
	}

	latest, err := store.GetLatestSnapshot(project.ID)
	if err != nil {
		t.Fatalf("latest lookup failed: %v", err)
	}
	if latest.Version != 2 {
		t.Errorf("latest version = %d, want 2", latest.Version)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	store := newTestStore(t)
	project := createTestProject(t, store)

	doc := &model.Document{
		ProjectID: project.ID,
		SpacesURL: "https://bucket.example/a.pdf",
		SpacesKey: "filings/a.pdf",
	}
	if err := store.CreateDocument(doc); err != nil {
		t.Fatalf("document create failed: %v", err)
	}
	if err := store.CreatePages([]model.DocumentPage{{DocumentID: doc.ID, PageNo: 1, Text: "page one"}}); err != nil {
		t.Fatalf("page create failed: %v", err)
	}
	job, err := store.AcquireJobSlot(project.ID)
	if err != nil {
		t.Fatalf("job create failed: %v", err)
	}

	if err := store.DeleteProject(project.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := store.GetDocument(doc.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Error("document should be gone after project delete")
	}
	if _, err := store.GetJob(job.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Error("job should be gone after project delete")
	}
}
