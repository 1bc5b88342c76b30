package repositories

import (
	"context"

	"github.com/vkornilov/docuscan-be/internal/modules/documents/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TextRepo interface {
	// Upsert inserts the text row or overwrites the existing one for the
	// same document in a single statement, keeping writes idempotent
	// under at-least-once task delivery.
	Upsert(ctx context.Context, text *models.DocumentText) error
	GetByDocumentID(ctx context.Context, documentID uint) (*models.DocumentText, error)
}

type textRepo struct {
	db *gorm.DB
}

func NewTextRepo(db *gorm.DB) TextRepo {
	return &textRepo{db: db}
}

func (r *textRepo) Upsert(ctx context.Context, text *models.DocumentText) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "confidence", "processed_at"}),
	}).Create(text).Error
}

func (r *textRepo) GetByDocumentID(ctx context.Context, documentID uint) (*models.DocumentText, error) {
	var text models.DocumentText
	err := r.db.WithContext(ctx).First(&text, "document_id = ?", documentID).Error
	if err != nil {
		return nil, err
	}
	return &text, nil
}
