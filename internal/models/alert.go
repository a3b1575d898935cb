package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertType identifies the rule (or marketplace source) that produced an alert
type AlertType string

const (
	AlertDeadStock        AlertType = "DEAD_STOCK"
	AlertLowROAS          AlertType = "LOW_ROAS"
	AlertHighStorageCost  AlertType = "HIGH_STORAGE_COST"
	AlertCampaignConflict AlertType = "CAMPAIGN_CONFLICT"
	AlertSeoPositionDrop  AlertType = "SEO_POSITION_DROP"
	AlertMarketplace      AlertType = "MARKETPLACE"
)

// AlertSeverity ranks alert urgency
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "LOW"
	SeverityMedium   AlertSeverity = "MEDIUM"
	SeverityHigh     AlertSeverity = "HIGH"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// Alert is a notification record produced by the rule engine or imported from
// a marketplace. ProductID is a weak reference: the alert survives product
// changes and is stored without a link when the product cannot be resolved.
// Only Resolved is ever mutated; resolved alerts are purged by the retention
// sweep, never by the rule engine.
type Alert struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	IntegrationID uuid.UUID  `gorm:"type:uuid;not null;index:idx_alerts_integration" json:"integrationId"`
	ProductID     *uuid.UUID `gorm:"type:uuid;index:idx_alerts_product" json:"productId,omitempty"`

	Type     AlertType     `gorm:"type:varchar(50);not null;index:idx_alerts_type" json:"type"`
	Severity AlertSeverity `gorm:"type:varchar(20);not null" json:"severity"`
	Message  string        `gorm:"type:text;not null" json:"message"`
	Date     time.Time     `gorm:"not null;index:idx_alerts_date" json:"date"`
	Meta     JSONB         `gorm:"type:jsonb;default:'{}'" json:"meta,omitempty"`

	Resolved   bool       `gorm:"not null;default:false;index:idx_alerts_resolved" json:"resolved"`
	NotifiedAt *time.Time `json:"notifiedAt,omitempty"`

	// SKU carries the marketplace-side product reference for imported alerts
	// until resolution. Not persisted.
	SKU string `gorm:"-" json:"sku,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for Alert
func (Alert) TableName() string {
	return "alerts"
}
