package models

import (
	"time"

	"github.com/google/uuid"
)

// FeeType classifies marketplace charges
type FeeType string

const (
	FeeCommission  FeeType = "COMMISSION"
	FeeLogistics   FeeType = "LOGISTICS"
	FeeStorage     FeeType = "STORAGE"
	FeeAdvertising FeeType = "ADVERTISING"
	FeePenalty     FeeType = "PENALTY"
	FeeOther       FeeType = "OTHER"
)

// Sale is one sale event of a product. Append-only; ExternalID is the
// marketplace-side event id used to avoid double inserts on overlapping
// sync windows.
type Sale struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProductID     uuid.UUID `gorm:"type:uuid;not null;index:idx_sales_product" json:"productId"`
	IntegrationID uuid.UUID `gorm:"type:uuid;not null;index:idx_sales_integration" json:"integrationId"`

	Date         time.Time `gorm:"not null;index:idx_sales_date" json:"date"`
	Qty          int       `gorm:"not null" json:"qty"`
	Revenue      float64   `gorm:"not null" json:"revenue"`
	RefundQty    int       `gorm:"not null;default:0" json:"refundQty"`
	RefundAmount float64   `gorm:"not null;default:0" json:"refundAmount"`

	ExternalID string `gorm:"type:varchar(255);index:idx_sales_external" json:"externalId,omitempty"`

	// SKU carries the adapter-side product reference until the orchestrator
	// resolves it to a ProductID. Not persisted.
	SKU string `gorm:"-" json:"sku,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName specifies the table name for Sale
func (Sale) TableName() string {
	return "sales"
}

// Fee is one marketplace charge attributed to a product. Append-only.
type Fee struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProductID     uuid.UUID `gorm:"type:uuid;not null;index:idx_fees_product" json:"productId"`
	IntegrationID uuid.UUID `gorm:"type:uuid;not null;index:idx_fees_integration" json:"integrationId"`

	Date   time.Time `gorm:"not null;index:idx_fees_date" json:"date"`
	Type   FeeType   `gorm:"type:varchar(50);not null" json:"type"`
	Amount float64   `gorm:"not null" json:"amount"`
	Meta   JSONB     `gorm:"type:jsonb;default:'{}'" json:"meta,omitempty"`

	ExternalID string `gorm:"type:varchar(255);index:idx_fees_external" json:"externalId,omitempty"`
	SKU        string `gorm:"-" json:"sku,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName specifies the table name for Fee
func (Fee) TableName() string {
	return "fees"
}

// AdStat is one day of advertising performance for a product. Append-only.
type AdStat struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProductID     uuid.UUID `gorm:"type:uuid;not null;index:idx_ad_stats_product" json:"productId"`
	IntegrationID uuid.UUID `gorm:"type:uuid;not null;index:idx_ad_stats_integration" json:"integrationId"`

	Date     time.Time `gorm:"not null;index:idx_ad_stats_date" json:"date"`
	Platform string    `gorm:"type:varchar(100);not null" json:"platform"`
	Campaign *string   `gorm:"type:varchar(500)" json:"campaign,omitempty"`

	Impressions int     `gorm:"not null;default:0" json:"impressions"`
	Clicks      int     `gorm:"not null;default:0" json:"clicks"`
	Spend       float64 `gorm:"not null;default:0" json:"spend"`
	Orders      int     `gorm:"not null;default:0" json:"orders"`
	Revenue     float64 `gorm:"not null;default:0" json:"revenue"`

	ExternalID string `gorm:"type:varchar(255);index:idx_ad_stats_external" json:"externalId,omitempty"`
	SKU        string `gorm:"-" json:"sku,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName specifies the table name for AdStat
func (AdStat) TableName() string {
	return "ad_stats"
}

// SeoSnapshot is one observation of a product's search ranking for a query.
// Position/Conversion/CTR are optional on the wire; absent values are stored
// as NULL and count as 0 in averages downstream.
type SeoSnapshot struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProductID     uuid.UUID `gorm:"type:uuid;not null;index:idx_seo_snapshots_product" json:"productId"`
	IntegrationID uuid.UUID `gorm:"type:uuid;not null;index:idx_seo_snapshots_integration" json:"integrationId"`

	Date  time.Time `gorm:"not null;index:idx_seo_snapshots_date" json:"date"`
	Query string    `gorm:"type:varchar(500);not null" json:"query"`

	Position   *int     `json:"position,omitempty"`
	Conversion *float64 `json:"conversion,omitempty"`
	CTR        *float64 `json:"ctr,omitempty"`

	ExternalID string `gorm:"type:varchar(255);index:idx_seo_snapshots_external" json:"externalId,omitempty"`
	SKU        string `gorm:"-" json:"sku,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName specifies the table name for SeoSnapshot
func (SeoSnapshot) TableName() string {
	return "seo_snapshots"
}
