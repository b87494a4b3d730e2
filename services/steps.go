package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/huamanraj/investai-new/database"
	"github.com/huamanraj/investai-new/model"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

const extractionSystemPrompt = `You are a financial data extraction engine. Given the text of a company filing, extract the structured financial data as JSON with the keys:
"revenue", "net_income", "total_assets", "total_liabilities", "equity", "eps", "key_metrics" (object), "citations" (array of {page, quote}), "reasoning" (string).
Use null for values not present in the text. Do not guess numbers.`

// embeddingBatchSize bounds one embedding API call
const embeddingBatchSize = 16

// extractionInputLimit bounds the filing text handed to the extraction model
const extractionInputLimit = 24000

// stepValidateURL re-checks the source URL shape. Failure here is fatal:
// a malformed URL can never succeed on retry.
func (e *StepExecutor) stepValidateURL(ctx context.Context, job *model.IngestionJob, payload *ResumePayload) error {
	project, err := e.store.GetProject(job.ProjectID)
	if err != nil {
		return err
	}

	if _, err := ValidateFilingsURL(project.SourceURL); err != nil {
		return markFatal(err)
	}

	return e.commitStep(job, payload, model.StepValidateURL, nil)
}

// stepScrapePage discovers the PDF filings listed on the source page and
// assigns each its document id. A page with no qualifying documents is a
// fatal failure.
func (e *StepExecutor) stepScrapePage(ctx context.Context, job *model.IngestionJob, payload *ResumePayload) error {
	if len(payload.ScrapeResults) > 0 {
		return e.commitStep(job, payload, model.StepScrapePage, nil)
	}

	project, err := e.store.GetProject(job.ProjectID)
	if err != nil {
		return err
	}

	if err := e.store.UpdateProjectStatus(project.ID, model.ProjectStatusScraping, ""); err != nil {
		return err
	}

	infos, err := e.scraper.ScrapeFilingsPage(ctx, project.SourceURL)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return markFatal(fmt.Errorf("filings page contains no qualifying documents"))
	}

	for i := range infos {
		infos[i].DocumentID = uuid.New()
	}

	payload.ScrapeResults = infos
	payload.PDFInfo = infos

	e.bus.Publish(job.ID, ProgressEvent(model.StepScrapePage, model.StepIndex(model.StepScrapePage),
		fmt.Sprintf("found %d filings", len(infos))))

	return e.commitStep(job, payload, model.StepScrapePage, nil)
}

// stepDownloadPDFs fetches every discovered filing into the resume payload,
// skipping buffers that survived a previous attempt
func (e *StepExecutor) stepDownloadPDFs(ctx context.Context, job *model.IngestionJob, payload *ResumePayload) error {
	if err := e.store.UpdateProjectStatus(job.ProjectID, model.ProjectStatusDownloading, ""); err != nil {
		return err
	}

	total := len(payload.PDFInfo)
	for i, info := range payload.PDFInfo {
		if err := e.checkCancelled(job); err != nil {
			return err
		}

		if _, ok, err := payload.Buffer(info.DocumentID); err != nil {
			return markFatal(err)
		} else if ok {
			continue
		}

		data, err := e.scraper.DownloadPDF(ctx, info.SourceURL)
		if err != nil {
			return fmt.Errorf("failed to download %s: %w", info.Filename, err)
		}
		payload.PutBuffer(info.DocumentID, data)

		e.bus.Publish(job.ID, ProgressEvent(model.StepDownloadPDFs, model.StepIndex(model.StepDownloadPDFs),
			fmt.Sprintf("downloaded %d/%d", i+1, total)))
	}

	return e.commitStep(job, payload, model.StepDownloadPDFs, nil)
}

// stepUploadToCloud pushes each buffered PDF to blob storage and creates
// the document row under its pre-assigned id. Documents that already exist
// are skipped.
func (e *StepExecutor) stepUploadToCloud(ctx context.Context, job *model.IngestionJob, payload *ResumePayload) error {
	if err := e.store.UpdateProjectStatus(job.ProjectID, model.ProjectStatusProcessing, ""); err != nil {
		return err
	}

	uploaded := 0
	for _, info := range payload.PDFInfo {
		if err := e.checkCancelled(job); err != nil {
			return err
		}

		if _, err := e.store.GetDocument(info.DocumentID); err == nil {
			uploaded++
			continue
		}

		data, ok, err := payload.Buffer(info.DocumentID)
		if err != nil {
			return markFatal(err)
		}
		if !ok {
			return markFatal(fmt.Errorf("pdf buffer for %s missing from resume data", info.DocumentID))
		}

		stored, err := e.blobs.StoreFiling(ctx, job.ProjectID, info.DocumentID, info.Filename, data)
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", info.Filename, err)
		}

		doc := &model.Document{
			ID:          info.DocumentID,
			ProjectID:   job.ProjectID,
			SpacesURL:   stored.URL,
			SpacesKey:   stored.Key,
			OriginalURL: info.SourceURL,
			DocType:     info.DocType,
			Period:      info.Period,
		}
		if err := e.store.CreateDocument(doc); err != nil {
			return err
		}
		uploaded++

		e.bus.Publish(job.ID, ProgressEvent(model.StepUploadToCloud, model.StepIndex(model.StepUploadToCloud),
			fmt.Sprintf("uploaded %d/%d", uploaded, len(payload.PDFInfo))))
	}

	job.DocumentsProcessed = uploaded
	return e.commitStep(job, payload, model.StepUploadToCloud, nil)
}

// stepExtractText parses each PDF into per-page rows. Documents whose
// pages already exist are skipped whole.
func (e *StepExecutor) stepExtractText(ctx context.Context, job *model.IngestionJob, payload *ResumePayload) error {
	for i, info := range payload.PDFInfo {
		if err := e.checkCancelled(job); err != nil {
			return err
		}

		existing, err := e.store.CountPagesByDocument(info.DocumentID)
		if err != nil {
			return err
		}
		if existing > 0 {
			continue
		}

		data, ok, err := payload.Buffer(info.DocumentID)
		if err != nil {
			return markFatal(err)
		}
		if !ok {
			return markFatal(fmt.Errorf("pdf buffer for %s missing from resume data", info.DocumentID))
		}

		pageTexts, err := e.pdf.ExtractPages(data)
		if err != nil {
			return fmt.Errorf("failed to extract text from %s: %w", info.Filename, err)
		}

		pages := make([]model.DocumentPage, 0, len(pageTexts))
		for pageNo, text := range pageTexts {
			pages = append(pages, model.DocumentPage{
				DocumentID: info.DocumentID,
				PageNo:     pageNo + 1,
				Text:       text,
			})
		}

		err = e.store.Transaction(func(tx *database.Store) error {
			if err := tx.CreatePages(pages); err != nil {
				return err
			}
			return tx.UpdateDocumentPageCount(info.DocumentID, len(pages))
		})
		if err != nil {
			return err
		}

		e.bus.Publish(job.ID, ProgressEvent(model.StepExtractText, model.StepIndex(model.StepExtractText),
			fmt.Sprintf("extracted %d pages from document %d/%d", len(pages), i+1, len(payload.PDFInfo))))
	}

	return e.commitStep(job, payload, model.StepExtractText, nil)
}

// stepExtractData runs the extraction model over each document's text.
// Existing extraction rows are reloaded into the payload instead of being
// recomputed.
func (e *StepExecutor) stepExtractData(ctx context.Context, job *model.IngestionJob, payload *ResumePayload) error {
	for i, info := range payload.PDFInfo {
		if err := e.checkCancelled(job); err != nil {
			return err
		}

		if _, ok := payload.Extraction(info.DocumentID); ok {
			continue
		}
		if existing, err := e.store.GetExtractionResultByDocument(info.DocumentID); err == nil {
			payload.PutExtraction(info.DocumentID, json.RawMessage(existing.Data))
			continue
		}

		pages, err := e.store.ListPagesByDocument(info.DocumentID)
		if err != nil {
			return err
		}

		text := joinPages(pages, extractionInputLimit)
		userPrompt := fmt.Sprintf("Filing: %s (%s, %s)\n\n%s", info.Title, info.DocType, info.Period, text)

		content, err := e.inference.JSONCompletion(ctx, extractionSystemPrompt, userPrompt)
		if err != nil {
			return fmt.Errorf("extraction failed for %s: %w", info.Filename, err)
		}

		var parsed struct {
			Citations json.RawMessage `json:"citations"`
			Reasoning string          `json:"reasoning"`
		}
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			return fmt.Errorf("extraction model returned invalid JSON for %s: %w", info.Filename, err)
		}

		result := &model.ExtractionResult{
			DocumentID: info.DocumentID,
			Data:       datatypes.JSON(content),
			Citations:  datatypes.JSON(parsed.Citations),
			Reasoning:  parsed.Reasoning,
		}
		if err := e.store.CreateExtractionResult(result); err != nil {
			return err
		}
		payload.PutExtraction(info.DocumentID, json.RawMessage(content))

		e.bus.Publish(job.ID, ProgressEvent(model.StepExtractData, model.StepIndex(model.StepExtractData),
			fmt.Sprintf("extracted data from document %d/%d", i+1, len(payload.PDFInfo))))
	}

	return e.commitStep(job, payload, model.StepExtractData, nil)
}

// stepCreateEmbeddings chunks every page and embeds the chunks. All of one
// document's chunks and vectors are inserted in a single transaction, so a
// document either has its full chunk set or none; resume skips complete
// documents and counts their chunks toward the total.
func (e *StepExecutor) stepCreateEmbeddings(ctx context.Context, job *model.IngestionJob, payload *ResumePayload) error {
	created := 0

	for i, info := range payload.PDFInfo {
		if err := e.checkCancelled(job); err != nil {
			return err
		}

		existing, err := e.store.CountChunksByDocument(info.DocumentID)
		if err != nil {
			return err
		}
		if existing > 0 {
			created += int(existing)
			continue
		}

		pages, err := e.store.ListPagesByDocument(info.DocumentID)
		if err != nil {
			return err
		}

		var chunks []model.TextChunk
		var contents []string
		for _, page := range pages {
			for idx, content := range e.chunker.Chunk(page.Text) {
				chunks = append(chunks, model.TextChunk{
					PageID:     page.ID,
					ChunkIndex: idx,
					Content:    content,
				})
				contents = append(contents, content)
			}
		}
		if len(chunks) == 0 {
			continue
		}

		vectors := make([][]float32, 0, len(contents))
		for start := 0; start < len(contents); start += embeddingBatchSize {
			if err := e.checkCancelled(job); err != nil {
				return err
			}
			end := start + embeddingBatchSize
			if end > len(contents) {
				end = len(contents)
			}
			batch, err := e.embeddings.Embed(ctx, contents[start:end])
			if err != nil {
				return fmt.Errorf("embedding failed for %s: %w", info.Filename, err)
			}
			vectors = append(vectors, batch...)
		}

		err = e.store.Transaction(func(tx *database.Store) error {
			for c := range chunks {
				if err := tx.CreateChunkWithEmbedding(&chunks[c], &model.Embedding{
					Vector: pgvector.NewVector(vectors[c]),
				}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		created += len(chunks)

		e.bus.Publish(job.ID, ProgressEvent(model.StepCreateEmbeddings, model.StepIndex(model.StepCreateEmbeddings),
			fmt.Sprintf("embedded document %d/%d (%d chunks)", i+1, len(payload.PDFInfo), len(chunks))))
	}

	job.EmbeddingsCreated = created
	return e.commitStep(job, payload, model.StepCreateEmbeddings, nil)
}

// stepGenerateSnapshot produces the cached company summary. When
// regeneration is disabled an existing snapshot short-circuits the step.
func (e *StepExecutor) stepGenerateSnapshot(ctx context.Context, job *model.IngestionJob, payload *ResumePayload) error {
	if !e.cfg.SNAPSHOT_REGENERATE && e.snapshots.Exists(job.ProjectID) {
		return e.commitStep(job, payload, model.StepGenerateSnapshot, nil)
	}

	project, err := e.store.GetProject(job.ProjectID)
	if err != nil {
		return err
	}

	extractions := make(map[string]json.RawMessage, len(payload.PDFInfo))
	for _, info := range payload.PDFInfo {
		if data, ok := payload.Extraction(info.DocumentID); ok {
			extractions[info.DocumentID.String()] = data
		}
	}

	if _, err := e.snapshots.Generate(ctx, project, extractions); err != nil {
		return err
	}

	return e.commitStep(job, payload, model.StepGenerateSnapshot, nil)
}

// joinPages concatenates page text up to a character budget
func joinPages(pages []model.DocumentPage, limit int) string {
	var out []byte
	for _, page := range pages {
		if len(out) >= limit {
			break
		}
		remaining := limit - len(out)
		text := page.Text
		if len(text) > remaining {
			text = text[:remaining]
		}
		out = append(out, []byte(fmt.Sprintf("[Page %d]\n%s\n\n", page.PageNo, text))...)
	}
	return string(out)
}
