package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vkornilov/docuscan-be/internal/core/jobs"
	"github.com/vkornilov/docuscan-be/internal/core/ocr"
	"github.com/vkornilov/docuscan-be/internal/core/storage"
	"github.com/vkornilov/docuscan-be/internal/modules/documents/models"
	"github.com/vkornilov/docuscan-be/internal/modules/documents/repositories"
	"gorm.io/gorm"
)

// WriteIndex is the part of the search index the analyze handler needs;
// nil disables indexing.
type WriteIndex interface {
	IndexText(documentID uint, filename, text string) error
}

// AnalyzeHandler executes OCR tasks: load the document, read its file, run
// OCR within a bounded timeout, and persist the result with an upsert so a
// redelivered task overwrites instead of duplicating.
type AnalyzeHandler struct {
	docRepo    repositories.DocumentRepo
	textRepo   repositories.TextRepo
	store      storage.Provider
	ocrService *ocr.Service
	index      WriteIndex
	ocrTimeout time.Duration
}

func NewAnalyzeHandler(
	docRepo repositories.DocumentRepo,
	textRepo repositories.TextRepo,
	store storage.Provider,
	ocrService *ocr.Service,
	index WriteIndex,
	ocrTimeout time.Duration,
) *AnalyzeHandler {
	if ocrTimeout <= 0 {
		ocrTimeout = 2 * time.Minute
	}
	return &AnalyzeHandler{
		docRepo:    docRepo,
		textRepo:   textRepo,
		store:      store,
		ocrService: ocrService,
		index:      index,
		ocrTimeout: ocrTimeout,
	}
}

// GetType returns the job type this handler consumes
func (h *AnalyzeHandler) GetType() string {
	return TaskTypeAnalyze
}

// AnalyzeResult is stored on the completed job
type AnalyzeResult struct {
	DocumentID uint    `json:"document_id"`
	Characters int     `json:"characters"`
	Confidence float64 `json:"confidence"`
}

// Handle runs one OCR task to completion and reports a typed outcome
func (h *AnalyzeHandler) Handle(ctx context.Context, job *jobs.Job) jobs.Outcome {
	var payload AnalyzePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return jobs.Abort(fmt.Errorf("malformed task payload: %w", err))
	}
	if payload.Version != PayloadVersion {
		return jobs.Abort(fmt.Errorf("unsupported task payload version: %d", payload.Version))
	}

	// The document vanishing after enqueue is terminal; retrying cannot help
	doc, err := h.docRepo.GetByID(ctx, payload.DocumentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jobs.Abort(fmt.Errorf("document %d does not exist", payload.DocumentID))
		}
		return jobs.Retry(fmt.Errorf("failed to load document %d: %w", payload.DocumentID, err))
	}

	// A missing file may reappear (e.g. slow replication of the store)
	exists, err := h.store.Exists(ctx, doc.Filename)
	if err != nil {
		return jobs.Retry(fmt.Errorf("failed to check file %s: %w", doc.Filename, err))
	}
	if !exists {
		return jobs.Retry(fmt.Errorf("file %s is missing from the store", doc.Filename))
	}

	content, err := h.store.Read(ctx, doc.Filename)
	if err != nil {
		return jobs.Retry(fmt.Errorf("failed to read file %s: %w", doc.Filename, err))
	}

	ocrCtx, cancel := context.WithTimeout(ctx, h.ocrTimeout)
	defer cancel()

	result, err := h.ocrService.ExtractText(ocrCtx, content)
	if err != nil {
		return jobs.Retry(fmt.Errorf("ocr failed for document %d: %w", doc.ID, err))
	}

	// An empty result is a recoverable failure, not a success
	if strings.TrimSpace(result.Text) == "" {
		return jobs.Retry(fmt.Errorf("ocr returned empty text for document %d", doc.ID))
	}

	text := &models.DocumentText{
		DocumentID:  doc.ID,
		Text:        result.Text,
		Confidence:  result.Confidence,
		ProcessedAt: time.Now(),
	}
	if err := h.textRepo.Upsert(ctx, text); err != nil {
		return jobs.Retry(fmt.Errorf("failed to persist text for document %d: %w", doc.ID, err))
	}

	if h.index != nil {
		if err := h.index.IndexText(doc.ID, doc.Filename, result.Text); err != nil {
			log.Warn().Err(err).Uint("document_id", doc.ID).
				Msg("failed to index document text")
		}
	}

	log.Info().Uint("document_id", doc.ID).Int("characters", len(result.Text)).
		Float64("confidence", result.Confidence).Msg("document text persisted")

	return jobs.Done(AnalyzeResult{
		DocumentID: doc.ID,
		Characters: len(result.Text),
		Confidence: result.Confidence,
	})
}
