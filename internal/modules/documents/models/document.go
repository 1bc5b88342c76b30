package models

import (
	"time"
)

// Document is the metadata record of an uploaded file
type Document struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Filename    string    `gorm:"type:text;uniqueIndex;not null" json:"filename"`
	Size        int64     `gorm:"not null;default:0" json:"size"`
	ContentType string    `gorm:"type:text" json:"content_type"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Document) TableName() string {
	return "documents"
}

// DocumentText holds the OCR output for a document. The unique index on
// DocumentID keeps at most one row per document; the worker writes it with
// an upsert so redelivered tasks overwrite instead of duplicating.
type DocumentText struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID  uint      `gorm:"uniqueIndex;not null" json:"document_id"`
	Document    *Document `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	Confidence  float64   `gorm:"not null;default:0" json:"confidence"`
	ProcessedAt time.Time `json:"processed_at"`
}

func (DocumentText) TableName() string {
	return "document_texts"
}

// DocumentSummary is the list-view projection returned by GET /documents
type DocumentSummary struct {
	ID       uint   `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	HasText  bool   `json:"has_text"`
}
