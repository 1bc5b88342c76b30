package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	Port        string
	Env         string

	// File store
	StorageProvider string // "local" or "s3"
	StorageDir      string
	S3AccessKeyID   string
	S3SecretKey     string
	S3Region        string
	S3Bucket        string

	// OCR
	OCRProvider       string // "tesseract" or "ocrspace"
	OCRLanguage       string
	OCRSpaceAPIKey    string
	OCRTimeoutSeconds int

	// Job queue
	WorkerConcurrency int
	JobMaxRetries     int
	EnableWorker      bool

	// Full-text search
	SearchIndexPath string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env file not found, using system environment variables")
	}

	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		Port:              os.Getenv("PORT"),
		Env:               os.Getenv("ENV"),
		StorageProvider:   os.Getenv("STORAGE_PROVIDER"),
		StorageDir:        os.Getenv("STORAGE_DIR"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretKey:       os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3Region:          os.Getenv("S3_REGION"),
		S3Bucket:          os.Getenv("S3_BUCKET"),
		OCRProvider:       os.Getenv("OCR_PROVIDER"),
		OCRLanguage:       os.Getenv("OCR_LANGUAGE"),
		OCRSpaceAPIKey:    os.Getenv("OCRSPACE_API_KEY"),
		OCRTimeoutSeconds: getInt("OCR_TIMEOUT_SECONDS", 120),
		WorkerConcurrency: getInt("WORKER_CONCURRENCY", 2),
		JobMaxRetries:     getInt("JOB_MAX_RETRIES", 3),
		EnableWorker:      getBool("ENABLE_WORKER", true),
		SearchIndexPath:   os.Getenv("SEARCH_INDEX_PATH"),
	}

	// Default values
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.StorageProvider == "" {
		cfg.StorageProvider = "local"
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = "documents"
	}
	if cfg.OCRProvider == "" {
		cfg.OCRProvider = "tesseract"
	}
	if cfg.OCRLanguage == "" {
		cfg.OCRLanguage = "eng"
	}
	if cfg.SearchIndexPath == "" {
		cfg.SearchIndexPath = "docuscan.bleve"
	}

	return cfg
}

func getInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("⚠️ Invalid value for %s: %q, using default %d", key, raw, fallback)
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("⚠️ Invalid value for %s: %q, using default %t", key, raw, fallback)
		return fallback
	}
	return v
}
