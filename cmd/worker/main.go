package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vkornilov/docuscan-be/internal/core/jobs"
	"github.com/vkornilov/docuscan-be/internal/core/ocr"
	"github.com/vkornilov/docuscan-be/internal/core/search"
	"github.com/vkornilov/docuscan-be/internal/core/storage"
	docrepos "github.com/vkornilov/docuscan-be/internal/modules/documents/repositories"
	docservices "github.com/vkornilov/docuscan-be/internal/modules/documents/services"
	"github.com/vkornilov/docuscan-be/internal/shared/config"
	"github.com/vkornilov/docuscan-be/internal/shared/database"
	"github.com/vkornilov/docuscan-be/internal/shared/utils"
)

// Standalone OCR worker. Run this instead of in-process workers
// (ENABLE_WORKER=false on the api) to scale processing separately;
// give each node its own SEARCH_INDEX_PATH or disable the api's index.
func main() {
	utils.InitLogger()

	cfg := config.LoadConfig()
	log.Printf("🚀 Starting worker (concurrency: %d)", cfg.WorkerConcurrency)

	db := database.NewDB(cfg.DatabaseURL)
	defer db.Close()

	var store storage.Provider
	switch cfg.StorageProvider {
	case "s3":
		s3Store, err := storage.NewS3Provider(cfg.S3AccessKeyID, cfg.S3SecretKey, cfg.S3Region, cfg.S3Bucket)
		if err != nil {
			log.Fatalf("❌ Failed to init S3 storage: %v", err)
		}
		store = s3Store
	default:
		localStore, err := storage.NewLocalProvider(cfg.StorageDir)
		if err != nil {
			log.Fatalf("❌ Failed to init local storage: %v", err)
		}
		store = localStore
	}
	log.Printf("📁 Using file store: %s", store.GetProviderName())

	var ocrProvider ocr.Provider
	switch cfg.OCRProvider {
	case "ocrspace":
		ocrProvider = ocr.NewOCRSpaceProvider(cfg.OCRSpaceAPIKey, cfg.OCRLanguage)
	default:
		ocrProvider = ocr.NewTesseractProvider(cfg.OCRLanguage)
	}
	ocrService := ocr.NewService(ocrProvider)
	log.Printf("🔍 Using OCR provider: %s", ocrService.GetProviderName())

	var index *search.Index
	if idx, err := search.Open(cfg.SearchIndexPath); err != nil {
		log.Printf("⚠️ Search index unavailable: %v", err)
	} else {
		index = idx
		defer index.Close()
	}

	var writeIndex docservices.WriteIndex
	if index != nil {
		writeIndex = index
	}

	docRepo := docrepos.NewDocumentRepo(db.GORM)
	textRepo := docrepos.NewTextRepo(db.GORM)
	queue := jobs.NewQueue(db.GORM)

	ocrTimeout := time.Duration(cfg.OCRTimeoutSeconds) * time.Second
	analyzeHandler := docservices.NewAnalyzeHandler(docRepo, textRepo, store, ocrService, writeIndex, ocrTimeout)

	worker := jobs.NewWorker(queue, jobs.WorkerConfig{
		Queue:        docservices.QueueOCR,
		Concurrency:  cfg.WorkerConcurrency,
		PollInterval: time.Second,
		Timeout:      ocrTimeout + 30*time.Second,
	})
	worker.RegisterHandler(analyzeHandler)

	scheduler := cron.New()
	scheduler.AddFunc("@hourly", func() {
		if n, err := queue.DeleteOldJobs(context.Background(), 7*24*time.Hour); err != nil {
			log.Printf("⚠️ Job cleanup failed: %v", err)
		} else if n > 0 {
			log.Printf("🧹 Deleted %d old jobs", n)
		}
	})
	scheduler.Start()
	defer scheduler.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := worker.Start(ctx); err != nil {
		log.Fatalf("❌ Failed to start workers: %v", err)
	}

	<-ctx.Done()
	log.Println("🛑 Shutting down worker...")
	worker.Stop()
}
