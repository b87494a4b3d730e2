package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/huamanraj/investai-new/database"
	"github.com/huamanraj/investai-new/model"
	"github.com/huamanraj/investai-new/services/gradient"
	"github.com/huamanraj/investai-new/utils/cache"
	"gorm.io/datatypes"
)

const snapshotSystemPrompt = `You are a financial analyst. Given structured data extracted from a company's filings, produce a company snapshot as JSON with the keys:
"company_overview" (string), "key_financials" (object of metric name to latest value), "trends" (array of strings), "risks" (array of strings), "periods_covered" (array of strings).
Use only the given data. Do not invent numbers.`

// SnapshotService generates and caches company snapshots
type SnapshotService struct {
	store     *database.Store
	inference *gradient.InferenceClient
	cache     *cache.SnapshotCache // nil when Redis is not configured
}

// NewSnapshotService creates a snapshot service
func NewSnapshotService(store *database.Store, inference *gradient.InferenceClient, snapshotCache *cache.SnapshotCache) *SnapshotService {
	return &SnapshotService{
		store:     store,
		inference: inference,
		cache:     snapshotCache,
	}
}

// Generate produces a new snapshot version from the per-document extraction
// results and persists it. The cache is refreshed on success.
func (s *SnapshotService) Generate(ctx context.Context, project *model.Project, extractions map[string]json.RawMessage) (*model.CompanySnapshot, error) {
	if len(extractions) == 0 {
		return nil, fmt.Errorf("no extraction results to summarize")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Company: %s\n\n", project.CompanyName)
	for docID, data := range extractions {
		fmt.Fprintf(&sb, "Extraction for document %s:\n%s\n\n", docID, string(data))
	}

	content, err := s.inference.JSONCompletion(ctx, snapshotSystemPrompt, sb.String())
	if err != nil {
		return nil, fmt.Errorf("snapshot generation failed: %w", err)
	}

	if !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("snapshot model returned invalid JSON")
	}

	snapshot := &model.CompanySnapshot{
		ProjectID:    project.ID,
		SnapshotData: datatypes.JSON(content),
	}
	if err := s.store.CreateSnapshot(snapshot); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, snapshot); err != nil {
			// Cache write failure is not fatal; readers fall back to the DB
			log.Printf("[Snapshot] failed to cache snapshot for %s: %v", project.ID, err)
		}
	}

	return snapshot, nil
}

// Latest returns the newest snapshot for a project, preferring the cache
func (s *SnapshotService) Latest(ctx context.Context, projectID uuid.UUID) (*model.CompanySnapshot, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, projectID); err == nil {
			return cached, nil
		}
	}

	snapshot, err := s.store.GetLatestSnapshot(projectID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, snapshot); err != nil {
			log.Printf("[Snapshot] failed to cache snapshot for %s: %v", projectID, err)
		}
	}
	return snapshot, nil
}

// Invalidate drops the cached snapshot when the project goes away
func (s *SnapshotService) Invalidate(ctx context.Context, projectID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, projectID); err != nil {
		log.Printf("[Snapshot] failed to invalidate cache for %s: %v", projectID, err)
	}
}

// Exists reports whether any snapshot has been generated for the project
func (s *SnapshotService) Exists(projectID uuid.UUID) bool {
	_, err := s.store.GetLatestSnapshot(projectID)
	return err == nil
}
