package handlers

import (
	"bytes"
	"encoding/base64"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/vkornilov/docuscan-be/internal/core/jobs"
	"github.com/vkornilov/docuscan-be/internal/core/search"
	"github.com/vkornilov/docuscan-be/internal/modules/documents/services"
	"github.com/vkornilov/docuscan-be/internal/shared/apperr"
	"gorm.io/gorm"
)

// Searcher is the read side of the search index; nil disables /search
type Searcher interface {
	Search(query string, limit int) ([]search.Hit, error)
}

// DocumentHandler handles document-related requests
type DocumentHandler struct {
	docService *services.DocumentService
	queue      *jobs.Queue
	searcher   Searcher
}

func NewDocumentHandler(docService *services.DocumentService, queue *jobs.Queue, searcher Searcher) *DocumentHandler {
	return &DocumentHandler{
		docService: docService,
		queue:      queue,
		searcher:   searcher,
	}
}

// UploadRequest is the JSON alternative to a multipart upload
type UploadRequest struct {
	Filename      string `json:"filename"`
	ContentBase64 string `json:"content_base64"`
}

// UploadDoc handles POST /upload_doc: multipart "file" field or a JSON
// body with a base64 payload. Neither supplied is a validation error.
func (h *DocumentHandler) UploadDoc(c *fiber.Ctx) error {
	if fileHeader, err := c.FormFile("file"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			return respondError(c, apperr.Storage("failed to open uploaded file", err))
		}
		defer file.Close()

		doc, err := h.docService.Upload(c.Context(), fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
		if err != nil {
			return respondError(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":       doc.ID,
			"filename": doc.Filename,
		})
	}

	var req UploadRequest
	if err := c.BodyParser(&req); err != nil || req.Filename == "" || req.ContentBase64 == "" {
		return respondError(c, apperr.Validation("either a multipart file or filename with content_base64 is required"))
	}

	content, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		return respondError(c, apperr.Validation("content_base64 is not valid base64"))
	}

	doc, err := h.docService.Upload(c.Context(), req.Filename, "", bytes.NewReader(content))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       doc.ID,
		"filename": doc.Filename,
	})
}

// DeleteDoc handles DELETE /doc_delete?document_id=
func (h *DocumentHandler) DeleteDoc(c *fiber.Ctx) error {
	id, err := documentIDParam(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.docService.Delete(c.Context(), id); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"detail": "document deleted",
	})
}

// AnalyseDoc handles POST /doc_analyse?document_id=
func (h *DocumentHandler) AnalyseDoc(c *fiber.Ctx) error {
	id, err := documentIDParam(c)
	if err != nil {
		return respondError(c, err)
	}

	job, err := h.docService.Analyze(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"detail": "analyze task enqueued",
		"job_id": job.ID,
	})
}

// GetText handles GET /get_text?document_id=
func (h *DocumentHandler) GetText(c *fiber.Ctx) error {
	id, err := documentIDParam(c)
	if err != nil {
		return respondError(c, err)
	}

	text, err := h.docService.GetText(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"text":         text.Text,
		"confidence":   text.Confidence,
		"processed_at": text.ProcessedAt,
	})
}

// ListDocuments handles GET /documents
func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	summaries, err := h.docService.List(c.Context())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"documents": summaries,
	})
}

// GetJob handles GET /jobs/:id
func (h *DocumentHandler) GetJob(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, apperr.Validation("invalid job id"))
	}

	job, err := h.queue.GetJob(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, apperr.NotFound("job %s not found", jobID))
		}
		return respondError(c, apperr.Storage("failed to load job", err))
	}

	return c.JSON(fiber.Map{
		"id":       job.ID,
		"type":     job.Type,
		"status":   job.Status,
		"attempts": job.Attempts,
		"error":    job.Error,
	})
}

// SearchText handles GET /search?q=
func (h *DocumentHandler) SearchText(c *fiber.Ctx) error {
	if h.searcher == nil {
		return respondError(c, apperr.Validation("search is not enabled"))
	}

	query := c.Query("q")
	if query == "" {
		return respondError(c, apperr.Validation("q is required"))
	}

	limit := c.QueryInt("limit", 20)
	if limit > 100 {
		limit = 100
	}

	hits, err := h.searcher.Search(query, limit)
	if err != nil {
		return respondError(c, apperr.Storage("search failed", err))
	}

	return c.JSON(fiber.Map{
		"count": len(hits),
		"hits":  hits,
	})
}

func documentIDParam(c *fiber.Ctx) (uint, error) {
	id := c.QueryInt("document_id")
	if id <= 0 {
		return 0, apperr.Validation("document_id is required")
	}
	return uint(id), nil
}

// respondError maps an error kind to a stable HTTP status and body
func respondError(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)
	return c.Status(apperr.HTTPStatus(kind)).JSON(fiber.Map{
		"error": err.Error(),
		"kind":  kind,
	})
}
