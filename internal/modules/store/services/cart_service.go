package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	docmodels "github.com/vkornilov/docuscan-be/internal/modules/documents/models"
	docservices "github.com/vkornilov/docuscan-be/internal/modules/documents/services"
	"github.com/vkornilov/docuscan-be/internal/modules/store/models"
	"github.com/vkornilov/docuscan-be/internal/modules/store/repositories"
	"github.com/vkornilov/docuscan-be/internal/shared/apperr"
	"gorm.io/gorm"
)

// CartService overlays pricing and a payment gate on top of the document
// pipeline. Price = file size in KB × the per-KB rate for its extension.
type CartService struct {
	cartRepo   repositories.CartRepo
	priceRepo  repositories.PriceRepo
	docService *docservices.DocumentService
}

func NewCartService(
	cartRepo repositories.CartRepo,
	priceRepo repositories.PriceRepo,
	docService *docservices.DocumentService,
) *CartService {
	return &CartService{
		cartRepo:   cartRepo,
		priceRepo:  priceRepo,
		docService: docService,
	}
}

// CartView is what GET /cart returns
type CartView struct {
	Items []models.CartItem `json:"items"`
	Total float64           `json:"total"`
}

// AddToCart prices the document and creates an unpaid cart row; an existing
// unpaid row for the same user and document is returned as-is.
func (s *CartService) AddToCart(ctx context.Context, username string, documentID uint) (*models.CartItem, error) {
	if strings.TrimSpace(username) == "" {
		return nil, apperr.Validation("username is required")
	}

	doc, err := s.docService.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	existing, err := s.cartRepo.GetUnpaid(ctx, username, documentID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Storage("failed to look up cart", err)
	}

	item := &models.CartItem{
		Username:   username,
		DocumentID: documentID,
		OrderPrice: s.priceFor(ctx, doc.Filename, doc.Size),
	}
	if err := s.cartRepo.Create(ctx, item); err != nil {
		return nil, apperr.Storage("failed to add to cart", err)
	}

	log.Info().Str("username", username).Uint("document_id", documentID).
		Float64("price", item.OrderPrice).Msg("document added to cart")
	return item, nil
}

// ViewCart returns the user's unpaid items and their total
func (s *CartService) ViewCart(ctx context.Context, username string) (*CartView, error) {
	if strings.TrimSpace(username) == "" {
		return nil, apperr.Validation("username is required")
	}

	items, err := s.cartRepo.ListUnpaid(ctx, username)
	if err != nil {
		return nil, apperr.Storage("failed to load cart", err)
	}

	view := &CartView{Items: items}
	for _, item := range items {
		view.Total += item.OrderPrice
	}
	return view, nil
}

// Pay marks all the user's unpaid items paid (payment simulation)
func (s *CartService) Pay(ctx context.Context, username string) (int64, error) {
	if strings.TrimSpace(username) == "" {
		return 0, apperr.Validation("username is required")
	}

	count, err := s.cartRepo.MarkAllPaid(ctx, username)
	if err != nil {
		return 0, apperr.Storage("failed to mark cart paid", err)
	}

	log.Info().Str("username", username).Int64("items", count).Msg("cart paid")
	return count, nil
}

// PaidText returns the recognized text only when the user holds a paid
// order for the document.
func (s *CartService) PaidText(ctx context.Context, username string, documentID uint) (*docmodels.DocumentText, error) {
	if strings.TrimSpace(username) == "" {
		return nil, apperr.Validation("username is required")
	}

	if _, err := s.cartRepo.GetPaid(ctx, username, documentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Validation("document %d is not paid for", documentID)
		}
		return nil, apperr.Storage("failed to check payment", err)
	}

	return s.docService.GetText(ctx, documentID)
}

// CleanupStale drops old unpaid cart rows, called from cron
func (s *CartService) CleanupStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.cartRepo.DeleteStaleUnpaid(ctx, olderThan)
}

// ListPrices returns the price table
func (s *CartService) ListPrices(ctx context.Context) ([]models.Price, error) {
	prices, err := s.priceRepo.List(ctx)
	if err != nil {
		return nil, apperr.Storage("failed to list prices", err)
	}
	return prices, nil
}

// SetPrice upserts the per-KB rate for a file type
func (s *CartService) SetPrice(ctx context.Context, fileType string, pricePerKB float64) (*models.Price, error) {
	fileType = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(fileType), "."))
	if fileType == "" {
		return nil, apperr.Validation("file_type is required")
	}
	if pricePerKB < 0 {
		return nil, apperr.Validation("price_per_kb cannot be negative")
	}

	price := &models.Price{FileType: fileType, PricePerKB: pricePerKB}
	if err := s.priceRepo.Upsert(ctx, price); err != nil {
		return nil, apperr.Storage("failed to set price", err)
	}
	return price, nil
}

func (s *CartService) priceFor(ctx context.Context, filename string, size int64) float64 {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))

	price, err := s.priceRepo.GetByFileType(ctx, ext)
	if err != nil {
		// No price row means the file type is free
		return 0
	}

	sizeKB := float64(size) / 1024
	return sizeKB * price.PricePerKB
}
