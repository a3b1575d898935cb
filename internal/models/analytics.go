package models

import (
	"time"

	"github.com/google/uuid"
)

// DailyKPI is the materialized daily rollup for one integration, unique on
// (integration_id, date). Recomputed and upserted on every sync pass.
type DailyKPI struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	IntegrationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_daily_kpi_integration_date" json:"integrationId"`
	Date          time.Time `gorm:"not null;uniqueIndex:idx_daily_kpi_integration_date" json:"date"`

	Orders   int     `gorm:"not null;default:0" json:"orders"`
	Revenue  float64 `gorm:"not null;default:0" json:"revenue"`
	Profit   float64 `gorm:"not null;default:0" json:"profit"`
	Stock    int     `gorm:"not null;default:0" json:"stock"`
	AdsSpend float64 `gorm:"not null;default:0" json:"adsSpend"`
	Fees     float64 `gorm:"not null;default:0" json:"fees"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for DailyKPI
func (DailyKPI) TableName() string {
	return "daily_kpi"
}

// ProductAnalytics is the materialized rolling-30-day rollup for one product,
// unique on (product_id, date). Recomputed and upserted on every sync pass.
type ProductAnalytics struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProductID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_product_analytics_product_date" json:"productId"`
	IntegrationID uuid.UUID `gorm:"type:uuid;not null;index:idx_product_analytics_integration" json:"integrationId"`
	Date          time.Time `gorm:"not null;uniqueIndex:idx_product_analytics_product_date" json:"date"`

	DaysOfCover float64 `gorm:"not null;default:0" json:"daysOfCover"`
	SellThrough float64 `gorm:"not null;default:0" json:"sellThrough"`
	IsDeadStock bool    `gorm:"not null;default:false" json:"isDeadStock"`
	ROAS        float64 `gorm:"not null;default:0" json:"roas"`
	CPA         float64 `gorm:"not null;default:0" json:"cpa"`
	Margin      float64 `gorm:"not null;default:0" json:"margin"`

	// AdsSpend over the window; rules that gate on ad activity read it here
	// instead of re-scanning ad stats.
	AdsSpend float64 `gorm:"not null;default:0" json:"adsSpend"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for ProductAnalytics
func (ProductAnalytics) TableName() string {
	return "product_analytics"
}
