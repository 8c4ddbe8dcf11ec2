package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item represents a catalog entry tracked by quantity with advisory
// min/max thresholds. Stock changes either through transaction posting
// or an explicit admin adjustment, never through a plain update.
type Item struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	Unit        string          `json:"unit"`
	Stock       int             `json:"stock"`
	MinStock    int             `json:"min_stock"`
	MaxStock    int             `json:"max_stock"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Description string          `json:"description,omitempty"`
	ImageMime   string          `json:"image_mime,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	CategoryName string `json:"category_name,omitempty"`
}

// Category groups items; assignment is optional.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
