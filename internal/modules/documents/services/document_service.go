package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/vkornilov/docuscan-be/internal/core/jobs"
	"github.com/vkornilov/docuscan-be/internal/core/storage"
	"github.com/vkornilov/docuscan-be/internal/modules/documents/models"
	"github.com/vkornilov/docuscan-be/internal/modules/documents/repositories"
	"github.com/vkornilov/docuscan-be/internal/shared/apperr"
	"gorm.io/gorm"
)

// TaskTypeAnalyze is the job type carried on the OCR queue
const TaskTypeAnalyze = "analyze_document"

// QueueOCR is the queue name OCR tasks are dispatched on
const QueueOCR = "ocr"

// AnalyzePayload is the versioned task schema for OCR jobs
type AnalyzePayload struct {
	Version    int  `json:"version"`
	DocumentID uint `json:"document_id"`
}

// PayloadVersion is the current analyze task schema version
const PayloadVersion = 1

var allowedExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".bmp": true, ".tiff": true,
}

// TextIndex is the part of the search index the document service needs;
// nil disables index maintenance.
type TextIndex interface {
	Delete(documentID uint) error
}

// DocumentService implements the upload/delete/analyze/get-text operations
type DocumentService struct {
	docRepo    repositories.DocumentRepo
	textRepo   repositories.TextRepo
	store      storage.Provider
	queue      *jobs.Queue
	index      TextIndex
	maxRetries int
}

func NewDocumentService(
	docRepo repositories.DocumentRepo,
	textRepo repositories.TextRepo,
	store storage.Provider,
	queue *jobs.Queue,
	index TextIndex,
	maxRetries int,
) *DocumentService {
	return &DocumentService{
		docRepo:    docRepo,
		textRepo:   textRepo,
		store:      store,
		queue:      queue,
		index:      index,
		maxRetries: maxRetries,
	}
}

// Upload writes the file to the store under its original filename (last
// write wins) and records the Document row. Re-uploading an existing
// filename reuses its row, preserving the filename uniqueness invariant.
func (s *DocumentService) Upload(ctx context.Context, filename, contentType string, content io.Reader) (*models.Document, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, apperr.Validation("filename is required")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return nil, apperr.Validation("unsupported file format: %s", filename)
	}

	size, err := s.store.Save(ctx, filename, content)
	if err != nil {
		return nil, apperr.Storage("failed to store file", err)
	}

	doc, err := s.docRepo.GetByFilename(ctx, filename)
	switch {
	case err == nil:
		doc.Size = size
		doc.ContentType = contentType
		if err := s.docRepo.Update(ctx, doc); err != nil {
			return nil, apperr.Storage("failed to update document record", err)
		}

	case errors.Is(err, gorm.ErrRecordNotFound):
		doc = &models.Document{
			Filename:    filename,
			Size:        size,
			ContentType: contentType,
		}
		if err := s.docRepo.Create(ctx, doc); err != nil {
			// Compensate: don't leave an orphaned file behind a failed insert
			if delErr := s.store.Delete(ctx, filename); delErr != nil {
				log.Warn().Err(delErr).Str("filename", filename).
					Msg("failed to remove file after insert failure")
			}
			return nil, apperr.Storage("failed to create document record", err)
		}

	default:
		return nil, apperr.Storage("failed to look up document record", err)
	}

	log.Info().Uint("document_id", doc.ID).Str("filename", filename).
		Int64("size", size).Msg("document uploaded")
	return doc, nil
}

// Delete removes the file, the text row and the document row. File absence
// is ignored; the DB rows go in one transaction.
func (s *DocumentService) Delete(ctx context.Context, id uint) error {
	doc, err := s.getDocument(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, doc.Filename); err != nil {
		return apperr.Storage("failed to delete file", err)
	}

	if err := s.docRepo.Delete(ctx, id); err != nil {
		return apperr.Storage("failed to delete document record", err)
	}

	if s.index != nil {
		if err := s.index.Delete(id); err != nil {
			log.Warn().Err(err).Uint("document_id", id).
				Msg("failed to purge document from search index")
		}
	}

	log.Info().Uint("document_id", id).Str("filename", doc.Filename).
		Msg("document deleted")
	return nil
}

// Analyze enqueues an OCR task for the document. The task is refused when
// the document or its backing file is absent, and a still-in-flight task
// for the same document is returned instead of enqueueing a duplicate.
func (s *DocumentService) Analyze(ctx context.Context, id uint) (*jobs.Job, error) {
	doc, err := s.getDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	exists, err := s.store.Exists(ctx, doc.Filename)
	if err != nil {
		return nil, apperr.Storage("failed to check file", err)
	}
	if !exists {
		return nil, apperr.NotFound("file for document %d is missing from the store", id)
	}

	payload := AnalyzePayload{Version: PayloadVersion, DocumentID: id}
	job, err := s.queue.Enqueue(ctx, TaskTypeAnalyze, payload, jobs.EnqueueOptions{
		Queue:      QueueOCR,
		Priority:   jobs.PriorityNormal,
		MaxRetries: s.maxRetries,
		DedupKey:   fmt.Sprintf("analyze:%d", id),
	})
	if err != nil {
		return nil, apperr.Storage("failed to enqueue analyze task", err)
	}

	log.Info().Uint("document_id", id).Str("job", job.ID.String()).
		Msg("analyze task enqueued")
	return job, nil
}

// GetText returns the recognized text for a document. No text row yet means
// NotFound; callers poll until the worker has persisted a result.
func (s *DocumentService) GetText(ctx context.Context, id uint) (*models.DocumentText, error) {
	if _, err := s.getDocument(ctx, id); err != nil {
		return nil, err
	}

	text, err := s.textRepo.GetByDocumentID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no text for document %d", id)
		}
		return nil, apperr.Storage("failed to load document text", err)
	}

	return text, nil
}

// Get returns the document record by id
func (s *DocumentService) Get(ctx context.Context, id uint) (*models.Document, error) {
	return s.getDocument(ctx, id)
}

// List returns all documents with a has_text flag
func (s *DocumentService) List(ctx context.Context) ([]models.DocumentSummary, error) {
	summaries, err := s.docRepo.List(ctx)
	if err != nil {
		return nil, apperr.Storage("failed to list documents", err)
	}
	return summaries, nil
}

func (s *DocumentService) getDocument(ctx context.Context, id uint) (*models.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("document %d not found", id)
		}
		return nil, apperr.Storage("failed to load document", err)
	}
	return doc, nil
}
