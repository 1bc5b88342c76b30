package repositories

import (
	"context"

	"github.com/vkornilov/docuscan-be/internal/modules/store/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PriceRepo interface {
	GetByFileType(ctx context.Context, fileType string) (*models.Price, error)
	List(ctx context.Context) ([]models.Price, error)
	Upsert(ctx context.Context, price *models.Price) error
}

type priceRepo struct {
	db *gorm.DB
}

func NewPriceRepo(db *gorm.DB) PriceRepo {
	return &priceRepo{db: db}
}

func (r *priceRepo) GetByFileType(ctx context.Context, fileType string) (*models.Price, error) {
	var price models.Price
	err := r.db.WithContext(ctx).First(&price, "file_type = ?", fileType).Error
	if err != nil {
		return nil, err
	}
	return &price, nil
}

func (r *priceRepo) List(ctx context.Context) ([]models.Price, error) {
	var prices []models.Price
	err := r.db.WithContext(ctx).Order("file_type ASC").Find(&prices).Error
	if err != nil {
		return nil, err
	}
	return prices, nil
}

func (r *priceRepo) Upsert(ctx context.Context, price *models.Price) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"price_per_kb", "updated_at"}),
	}).Create(price).Error
}
