package models

import (
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	Handle      string          `gorm:"uniqueIndex;not null" json:"handle"`
	Title       string          `gorm:"not null" json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Images      pq.StringArray  `gorm:"type:text[]" json:"images"`
	Category    string          `gorm:"index" json:"category"`
}

// PrimaryImage returns the first image URL or an empty string.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Collection groups products that share a category value with its handle.
type Collection struct {
	BaseModel
	Handle      string `gorm:"uniqueIndex;not null" json:"handle"`
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}
