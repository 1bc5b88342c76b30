package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Price is the per-kilobyte rate charged for a file type (extension
// without the dot). Files with no price row are free.
type Price struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	FileType   string    `gorm:"type:varchar(10);uniqueIndex;not null" json:"file_type"`
	PricePerKB float64   `gorm:"not null;default:0" json:"price_per_kb"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Price) TableName() string {
	return "store_prices"
}

// CartItem is a user's order for access to a document's recognized text.
// The paid flag gates whether get-text results are shown through the store.
type CartItem struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Username   string    `gorm:"type:varchar(150);not null;index:idx_cart_user_doc" json:"username"`
	DocumentID uint      `gorm:"not null;index:idx_cart_user_doc" json:"document_id"`
	OrderPrice float64   `gorm:"not null;default:0" json:"order_price"`
	Paid       bool      `gorm:"not null;default:false" json:"paid"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CartItem) TableName() string {
	return "store_cart_items"
}

// BeforeCreate sets the item ID
func (i *CartItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
