package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"seller-analytics-service/internal/models"
)

// IntegrationRepositoryInterface defines the integration persistence operations
// consumed by services
type IntegrationRepositoryInterface interface {
	Create(ctx context.Context, integration *models.Integration) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Integration, error)
	GetByUser(ctx context.Context, userID string) ([]models.Integration, error)
	ListActive(ctx context.Context) ([]models.Integration, error)
	ListActiveByUser(ctx context.Context, userID string) ([]models.Integration, error)
	Update(ctx context.Context, integration *models.Integration) error
	RecordSyncOutcome(ctx context.Context, id uuid.UUID, syncErr error) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// IntegrationRepository handles database operations for marketplace integrations
type IntegrationRepository struct {
	db *gorm.DB
}

var _ IntegrationRepositoryInterface = (*IntegrationRepository)(nil)

// NewIntegrationRepository creates a new integration repository
func NewIntegrationRepository(db *gorm.DB) *IntegrationRepository {
	return &IntegrationRepository{db: db}
}

// Create creates a new integration
func (r *IntegrationRepository) Create(ctx context.Context, integration *models.Integration) error {
	return r.db.WithContext(ctx).Create(integration).Error
}

// GetByID retrieves an integration by ID
func (r *IntegrationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Integration, error) {
	var integration models.Integration
	err := r.db.WithContext(ctx).First(&integration, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &integration, nil
}

// GetByUser retrieves all integrations for a user
func (r *IntegrationRepository) GetByUser(ctx context.Context, userID string) ([]models.Integration, error) {
	var integrations []models.Integration
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&integrations).Error
	return integrations, err
}

// ListActive retrieves all active integrations across users
func (r *IntegrationRepository) ListActive(ctx context.Context) ([]models.Integration, error) {
	var integrations []models.Integration
	err := r.db.WithContext(ctx).
		Where("status = ?", models.IntegrationActive).
		Find(&integrations).Error
	return integrations, err
}

// ListActiveByUser retrieves a user's active integrations
func (r *IntegrationRepository) ListActiveByUser(ctx context.Context, userID string) ([]models.Integration, error) {
	var integrations []models.Integration
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.IntegrationActive).
		Find(&integrations).Error
	return integrations, err
}

// Update updates an existing integration
func (r *IntegrationRepository) Update(ctx context.Context, integration *models.Integration) error {
	return r.db.WithContext(ctx).Save(integration).Error
}

// RecordSyncOutcome stamps the last sync attempt's result on the integration row
func (r *IntegrationRepository) RecordSyncOutcome(ctx context.Context, id uuid.UUID, syncErr error) error {
	updates := map[string]interface{}{
		"last_sync_at": time.Now(),
	}
	if syncErr != nil {
		updates["last_error"] = syncErr.Error()
		updates["error_count"] = gorm.Expr("error_count + 1")
	} else {
		updates["last_error"] = ""
		updates["error_count"] = 0
	}
	return r.db.WithContext(ctx).
		Model(&models.Integration{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Delete removes an integration
func (r *IntegrationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Integration{}, "id = ?", id).Error
}

// scopeToUser restricts a query on a record table to integrations owned by the
// user, optionally narrowed to one marketplace. Shared by the record and
// analytics repositories.
func scopeToUser(db *gorm.DB, userID string, marketplace *models.MarketplaceType) *gorm.DB {
	sub := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Integration{}).
		Select("id").
		Where("user_id = ?", userID)
	if marketplace != nil {
		sub = sub.Where("marketplace_type = ?", *marketplace)
	}
	return db.Where("integration_id IN (?)", sub)
}
