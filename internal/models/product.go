package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is one catalog item of an integration, uniquely identified by
// (integration_id, sku). Re-sync upserts in place and never duplicates;
// products are never deleted automatically.
type Product struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	IntegrationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_products_integration_sku" json:"integrationId"`
	SKU           string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_products_integration_sku" json:"sku"`

	Title    string  `gorm:"type:varchar(500);not null" json:"title"`
	Category *string `gorm:"type:varchar(255)" json:"category,omitempty"`

	CostPrice float64 `gorm:"not null;default:0" json:"costPrice"`
	Price     float64 `gorm:"not null;default:0" json:"price"`
	Stock     int     `gorm:"not null;default:0" json:"stock"`

	// Dimensions, all optional
	Weight *float64 `json:"weight,omitempty"`
	Length *float64 `json:"length,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for Product
func (Product) TableName() string {
	return "products"
}
