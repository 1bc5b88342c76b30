package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/robfig/cron/v3"

	"github.com/vkornilov/docuscan-be/internal/core/jobs"
	"github.com/vkornilov/docuscan-be/internal/core/ocr"
	"github.com/vkornilov/docuscan-be/internal/core/search"
	"github.com/vkornilov/docuscan-be/internal/core/storage"
	dochandlers "github.com/vkornilov/docuscan-be/internal/modules/documents/handlers"
	docrepos "github.com/vkornilov/docuscan-be/internal/modules/documents/repositories"
	docservices "github.com/vkornilov/docuscan-be/internal/modules/documents/services"
	storehandlers "github.com/vkornilov/docuscan-be/internal/modules/store/handlers"
	storerepos "github.com/vkornilov/docuscan-be/internal/modules/store/repositories"
	storeservices "github.com/vkornilov/docuscan-be/internal/modules/store/services"
	"github.com/vkornilov/docuscan-be/internal/shared/config"
	"github.com/vkornilov/docuscan-be/internal/shared/database"
	"github.com/vkornilov/docuscan-be/internal/shared/utils"
)

func main() {
	utils.InitLogger()

	cfg := config.LoadConfig()
	log.Printf("🚀 Starting api on port %s", cfg.Port)

	db := database.NewDB(cfg.DatabaseURL)
	defer db.Close()

	// Init file store
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

	// Init OCR provider
	var ocrProvider ocr.Provider
	switch cfg.OCRProvider {
	case "ocrspace":
		ocrProvider = ocr.NewOCRSpaceProvider(cfg.OCRSpaceAPIKey, cfg.OCRLanguage)
	default:
		ocrProvider = ocr.NewTesseractProvider(cfg.OCRLanguage)
	}
	ocrService := ocr.NewService(ocrProvider)
	log.Printf("🔍 Using OCR provider: %s", ocrService.GetProviderName())

	// Init full-text index; the API degrades to no /search if it fails
	var index *search.Index
	if idx, err := search.Open(cfg.SearchIndexPath); err != nil {
		log.Printf("⚠️ Search index unavailable: %v", err)
	} else {
		index = idx
		defer index.Close()
	}

	var textIndex docservices.TextIndex
	var writeIndex docservices.WriteIndex
	var searcher dochandlers.Searcher
	if index != nil {
		textIndex = index
		writeIndex = index
		searcher = index
	}

	// Init repositories
	docRepo := docrepos.NewDocumentRepo(db.GORM)
	textRepo := docrepos.NewTextRepo(db.GORM)
	cartRepo := storerepos.NewCartRepo(db.GORM)
	priceRepo := storerepos.NewPriceRepo(db.GORM)

	// Init queue and services
	queue := jobs.NewQueue(db.GORM)
	docService := docservices.NewDocumentService(docRepo, textRepo, store, queue, textIndex, cfg.JobMaxRetries)
	cartService := storeservices.NewCartService(cartRepo, priceRepo, docService)

	ocrTimeout := time.Duration(cfg.OCRTimeoutSeconds) * time.Second

	// Start in-process workers unless this node serves HTTP only
	if cfg.EnableWorker {
		analyzeHandler := docservices.NewAnalyzeHandler(docRepo, textRepo, store, ocrService, writeIndex, ocrTimeout)

		worker := jobs.NewWorker(queue, jobs.WorkerConfig{
			Queue:        docservices.QueueOCR,
			Concurrency:  cfg.WorkerConcurrency,
			PollInterval: time.Second,
			Timeout:      ocrTimeout + 30*time.Second,
		})
		worker.RegisterHandler(analyzeHandler)

		if err := worker.Start(context.Background()); err != nil {
			log.Fatalf("❌ Failed to start workers: %v", err)
		}
		defer worker.Stop()
	}

	// Periodic cleanup
	scheduler := cron.New()
	scheduler.AddFunc("@hourly", func() {
		ctx := context.Background()
		if n, err := queue.DeleteOldJobs(ctx, 7*24*time.Hour); err != nil {
			log.Printf("⚠️ Job cleanup failed: %v", err)
		} else if n > 0 {
			log.Printf("🧹 Deleted %d old jobs", n)
		}
		if n, err := cartService.CleanupStale(ctx, 30*24*time.Hour); err != nil {
			log.Printf("⚠️ Cart cleanup failed: %v", err)
		} else if n > 0 {
			log.Printf("🧹 Deleted %d stale cart items", n)
		}
	})
	scheduler.Start()
	defer scheduler.Stop()

	// Init handlers
	docHandler := dochandlers.NewDocumentHandler(docService, queue, searcher)
	cartHandler := storehandlers.NewCartHandler(cartService)

	// Init Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Docuscan API",
	})

	app.Use(cors.New())

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := db.Ping(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Document routes
	app.Post("/upload_doc", docHandler.UploadDoc)
	app.Delete("/doc_delete", docHandler.DeleteDoc)
	app.Post("/doc_analyse", docHandler.AnalyseDoc)
	app.Get("/get_text", docHandler.GetText)
	app.Get("/documents", docHandler.ListDocuments)
	app.Get("/jobs/:id", docHandler.GetJob)
	app.Get("/search", docHandler.SearchText)

	// Cart/pricing routes
	app.Post("/cart/add", cartHandler.AddToCart)
	app.Get("/cart", cartHandler.ViewCart)
	app.Post("/cart/pay", cartHandler.PayCart)
	app.Get("/cart/text", cartHandler.PaidText)
	app.Get("/prices", cartHandler.ListPrices)
	app.Put("/prices", cartHandler.SetPrice)

	log.Printf("✅ api running at :%s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}
