package repositories

import (
	"context"
	"time"

	"github.com/vkornilov/docuscan-be/internal/modules/store/models"
	"gorm.io/gorm"
)

type CartRepo interface {
	Create(ctx context.Context, item *models.CartItem) error
	GetUnpaid(ctx context.Context, username string, documentID uint) (*models.CartItem, error)
	GetPaid(ctx context.Context, username string, documentID uint) (*models.CartItem, error)
	ListUnpaid(ctx context.Context, username string) ([]models.CartItem, error)
	MarkAllPaid(ctx context.Context, username string) (int64, error)
	DeleteStaleUnpaid(ctx context.Context, olderThan time.Duration) (int64, error)
}

type cartRepo struct {
	db *gorm.DB
}

func NewCartRepo(db *gorm.DB) CartRepo {
	return &cartRepo{db: db}
}

func (r *cartRepo) Create(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *cartRepo) GetUnpaid(ctx context.Context, username string, documentID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("username = ? AND document_id = ? AND paid = ?", username, documentID, false).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *cartRepo) GetPaid(ctx context.Context, username string, documentID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("username = ? AND document_id = ? AND paid = ?", username, documentID, true).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *cartRepo) ListUnpaid(ctx context.Context, username string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("username = ? AND paid = ?", username, false).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *cartRepo) MarkAllPaid(ctx context.Context, username string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("username = ? AND paid = ?", username, false).
		Update("paid", true)
	return result.RowsAffected, result.Error
}

func (r *cartRepo) DeleteStaleUnpaid(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result := r.db.WithContext(ctx).
		Where("paid = ? AND created_at < ?", false, cutoff).
		Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}
