package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkornilov/docuscan-be/internal/core/jobs"
	"github.com/vkornilov/docuscan-be/internal/core/ocr"
	"github.com/vkornilov/docuscan-be/internal/core/search"
	"github.com/vkornilov/docuscan-be/internal/core/storage"
	"github.com/vkornilov/docuscan-be/internal/modules/documents/models"
	"github.com/vkornilov/docuscan-be/internal/modules/documents/repositories"
	"github.com/vkornilov/docuscan-be/internal/modules/documents/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type staticOCR struct {
	text string
}

func (f *staticOCR) ExtractText(ctx context.Context, imageData []byte) (*ocr.Result, error) {
	return &ocr.Result{Text: f.text, Confidence: 0.9}, nil
}

func (f *staticOCR) GetProviderName() string {
	return "Fake OCR"
}

type apiEnv struct {
	app    *fiber.App
	worker *jobs.Worker
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Document{}, &models.DocumentText{}, &jobs.Job{}))

	store, err := storage.NewLocalProvider(t.TempDir())
	require.NoError(t, err)

	index, err := search.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	queue := jobs.NewQueue(db)
	docRepo := repositories.NewDocumentRepo(db)
	textRepo := repositories.NewTextRepo(db)
	docService := services.NewDocumentService(docRepo, textRepo, store, queue, index, 3)

	analyzeHandler := services.NewAnalyzeHandler(
		docRepo, textRepo, store, ocr.NewService(&staticOCR{text: "total due 30 dollars"}), index, time.Minute)
	worker := jobs.NewWorker(queue, jobs.WorkerConfig{
		Queue:        services.QueueOCR,
		Concurrency:  1,
		PollInterval: 10 * time.Millisecond,
		Timeout:      time.Minute,
	})
	worker.RegisterHandler(analyzeHandler)

	handler := NewDocumentHandler(docService, queue, index)

	app := fiber.New()
	app.Post("/upload_doc", handler.UploadDoc)
	app.Delete("/doc_delete", handler.DeleteDoc)
	app.Post("/doc_analyse", handler.AnalyseDoc)
	app.Get("/get_text", handler.GetText)
	app.Get("/documents", handler.ListDocuments)
	app.Get("/jobs/:id", handler.GetJob)
	app.Get("/search", handler.SearchText)

	return &apiEnv{app: app, worker: worker}
}

func (e *apiEnv) do(t *testing.T, req *http.Request) (int, map[string]interface{}) {
	t.Helper()

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func multipartUpload(t *testing.T, filename, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload_doc", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func (e *apiEnv) upload(t *testing.T, filename, content string) float64 {
	t.Helper()
	status, body := e.do(t, multipartUpload(t, filename, content))
	require.Equal(t, http.StatusCreated, status)
	id, ok := body["id"].(float64)
	require.True(t, ok)
	return id
}

func TestUploadEndpoint(t *testing.T) {
	env := newAPI(t)

	status, body := env.do(t, multipartUpload(t, "invoice.png", "fake image"))
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "invoice.png", body["filename"])
	assert.NotZero(t, body["id"])
}

func TestUploadEndpointJSONBody(t *testing.T) {
	env := newAPI(t)

	payload := `{"filename":"note.png","content_base64":"aGVsbG8="}`
	req := httptest.NewRequest(http.MethodPost, "/upload_doc", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")

	status, body := env.do(t, req)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "note.png", body["filename"])
}

func TestUploadEndpointRejectsBadFormat(t *testing.T) {
	env := newAPI(t)

	status, body := env.do(t, multipartUpload(t, "malware.exe", "MZ"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation", body["kind"])
}

func TestUploadEndpointRejectsEmptyBody(t *testing.T) {
	env := newAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/upload_doc", nil)
	status, body := env.do(t, req)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation", body["kind"])
}

func TestAnalyseThenPollText(t *testing.T) {
	env := newAPI(t)
	ctx := context.Background()

	id := env.upload(t, "invoice.png", "fake image")

	// Text is not there yet
	status, _ := env.do(t, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/get_text?document_id=%.0f", id), nil))
	assert.Equal(t, http.StatusNotFound, status)

	status, body := env.do(t, httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/doc_analyse?document_id=%.0f", id), nil))
	require.Equal(t, http.StatusAccepted, status)
	jobID, ok := body["job_id"].(string)
	require.True(t, ok)

	require.NoError(t, env.worker.ProcessNextJob(ctx))

	status, body = env.do(t, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/get_text?document_id=%.0f", id), nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "total due 30 dollars", body["text"])

	status, body = env.do(t, httptest.NewRequest(http.MethodGet, "/jobs/"+jobID, nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(jobs.StatusCompleted), body["status"])
}

func TestAnalyseUnknownDocument(t *testing.T) {
	env := newAPI(t)

	status, body := env.do(t, httptest.NewRequest(http.MethodPost, "/doc_analyse?document_id=999", nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["kind"])

	status, _ = env.do(t, httptest.NewRequest(http.MethodPost, "/doc_analyse", nil))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDeleteEndpoint(t *testing.T) {
	env := newAPI(t)

	id := env.upload(t, "scan.png", "bytes")

	status, _ := env.do(t, httptest.NewRequest(http.MethodDelete,
		fmt.Sprintf("/doc_delete?document_id=%.0f", id), nil))
	assert.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, httptest.NewRequest(http.MethodDelete,
		fmt.Sprintf("/doc_delete?document_id=%.0f", id), nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestListDocumentsEndpoint(t *testing.T) {
	env := newAPI(t)

	env.upload(t, "a.png", "bytes")
	env.upload(t, "b.png", "bytes")

	status, body := env.do(t, httptest.NewRequest(http.MethodGet, "/documents", nil))
	assert.Equal(t, http.StatusOK, status)

	docs, ok := body["documents"].([]interface{})
	require.True(t, ok)
	assert.Len(t, docs, 2)
}

func TestGetJobValidation(t *testing.T) {
	env := newAPI(t)

	status, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/jobs/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, httptest.NewRequest(http.MethodGet,
		"/jobs/00000000-0000-0000-0000-000000000001", nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSearchEndpoint(t *testing.T) {
	env := newAPI(t)
	ctx := context.Background()

	id := env.upload(t, "invoice.png", "fake image")
	_, _ = env.do(t, httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/doc_analyse?document_id=%.0f", id), nil))
	require.NoError(t, env.worker.ProcessNextJob(ctx))

	status, body := env.do(t, httptest.NewRequest(http.MethodGet, "/search?q=dollars", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["count"])

	status, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/search", nil))
	assert.Equal(t, http.StatusBadRequest, status)
}
