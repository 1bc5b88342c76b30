package repositories

import (
	"context"

	"github.com/vkornilov/docuscan-be/internal/modules/documents/models"
	"gorm.io/gorm"
)

type DocumentRepo interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id uint) (*models.Document, error)
	GetByFilename(ctx context.Context, filename string) (*models.Document, error)
	Update(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context) ([]models.DocumentSummary, error)
}

type documentRepo struct {
	db *gorm.DB
}

func NewDocumentRepo(db *gorm.DB) DocumentRepo {
	return &documentRepo{db: db}
}

func (r *documentRepo) Create(ctx context.Context, doc *models.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *documentRepo) GetByID(ctx context.Context, id uint) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) GetByFilename(ctx context.Context, filename string) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).First(&doc, "filename = ?", filename).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) Update(ctx context.Context, doc *models.Document) error {
	return r.db.WithContext(ctx).Save(doc).Error
}

// Delete removes the document row and its text row in one transaction
func (r *documentRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&models.DocumentText{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Document{}, "id = ?", id).Error
	})
}

func (r *documentRepo) List(ctx context.Context) ([]models.DocumentSummary, error) {
	var summaries []models.DocumentSummary
	err := r.db.WithContext(ctx).
		Model(&models.Document{}).
		Select("documents.id, documents.filename, documents.size, document_texts.id IS NOT NULL AS has_text").
		Joins("LEFT JOIN document_texts ON document_texts.document_id = documents.id").
		Order("documents.id DESC").
		Scan(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}
