package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MarketplaceType represents the supported marketplace platforms
type MarketplaceType string

const (
	MarketplaceWildberries  MarketplaceType = "WILDBERRIES"
	MarketplaceOzon         MarketplaceType = "OZON"
	MarketplaceYandexMarket MarketplaceType = "YANDEX_MARKET"
)

// IntegrationStatus represents the status of a marketplace integration
type IntegrationStatus string

const (
	IntegrationPending  IntegrationStatus = "PENDING"
	IntegrationActive   IntegrationStatus = "ACTIVE"
	IntegrationDisabled IntegrationStatus = "DISABLED"
	IntegrationError    IntegrationStatus = "ERROR"
)

// JSONB custom type for PostgreSQL JSONB
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONB) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(j))
}

func (j *JSONB) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*j = JSONB(m)
	return nil
}

// Integration represents one configured connection between a user and a
// marketplace account. A user may hold several integrations for the same
// marketplace (different seller cabinets).
type Integration struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID          string          `gorm:"type:varchar(255);not null;index:idx_integrations_user" json:"userId"`
	MarketplaceType MarketplaceType `gorm:"type:varchar(50);not null;index:idx_integrations_type" json:"marketplaceType"`
	DisplayName     string          `gorm:"type:varchar(255);not null" json:"displayName"`

	Status IntegrationStatus `gorm:"type:varchar(50);not null;default:'PENDING';index:idx_integrations_status" json:"status"`

	// Credentials stored inline; SecretReference takes precedence when the
	// GCP Secret Manager is configured.
	Credentials     JSONB  `gorm:"type:jsonb;default:'{}'" json:"-"`
	SecretReference string `gorm:"type:varchar(500)" json:"-"`

	// Alert delivery target (chat channel), empty disables notifications.
	NotifyChatID string `gorm:"type:varchar(255)" json:"notifyChatId,omitempty"`

	// Sync bookkeeping
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty"`
	LastError  string     `gorm:"type:text" json:"lastError,omitempty"`
	ErrorCount int        `gorm:"default:0" json:"errorCount"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`

	// Relationships
	Products []Product `gorm:"foreignKey:IntegrationID" json:"products,omitempty"`
}

// TableName specifies the table name for Integration
func (Integration) TableName() string {
	return "integrations"
}
