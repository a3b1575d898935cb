package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"seller-analytics-service/internal/models"
)

// AlertRepositoryInterface defines the alert persistence operations consumed
// by services
type AlertRepositoryInterface interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	List(ctx context.Context, opts AlertListOptions) ([]models.Alert, int64, error)
	HasUnresolved(ctx context.Context, integrationID uuid.UUID, alertType models.AlertType, productID *uuid.UUID) (bool, error)
	Resolve(ctx context.Context, id uuid.UUID) error
	ListUnnotified(ctx context.Context, limit int) ([]models.Alert, error)
	MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error
	PurgeResolved(ctx context.Context, olderThan time.Time) (int64, error)
}

// AlertListOptions contains options for listing alerts
type AlertListOptions struct {
	UserID        string
	IntegrationID *uuid.UUID
	Type          string
	Resolved      *bool
	Limit         int
	Offset        int
}

// AlertRepository handles database operations for alerts
type AlertRepository struct {
	db *gorm.DB
}

var _ AlertRepositoryInterface = (*AlertRepository)(nil)

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create creates a new alert
func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

// GetByID retrieves an alert by ID
func (r *AlertRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	var alert models.Alert
	err := r.db.WithContext(ctx).First(&alert, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// List retrieves alerts with pagination and filtering
func (r *AlertRepository) List(ctx context.Context, opts AlertListOptions) ([]models.Alert, int64, error) {
	var alerts []models.Alert
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Alert{})

	if opts.UserID != "" {
		query = scopeToUser(query, opts.UserID, nil)
	}
	if opts.IntegrationID != nil {
		query = query.Where("integration_id = ?", *opts.IntegrationID)
	}
	if opts.Type != "" {
		query = query.Where("type = ?", opts.Type)
	}
	if opts.Resolved != nil {
		query = query.Where("resolved = ?", *opts.Resolved)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}
	query = query.Order("date DESC, created_at DESC")

	if err := query.Find(&alerts).Error; err != nil {
		return nil, 0, err
	}

	return alerts, total, nil
}

// HasUnresolved reports whether an unresolved alert of the same type already
// exists for the integration and (optionally) product
func (r *AlertRepository) HasUnresolved(ctx context.Context, integrationID uuid.UUID, alertType models.AlertType, productID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("integration_id = ? AND type = ? AND resolved = false", integrationID, alertType)
	if productID != nil {
		query = query.Where("product_id = ?", *productID)
	} else {
		query = query.Where("product_id IS NULL")
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Resolve flips the resolved flag
func (r *AlertRepository) Resolve(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ?", id).
		Update("resolved", true).Error
}

// ListUnnotified retrieves unresolved alerts that have not been delivered yet
func (r *AlertRepository) ListUnnotified(ctx context.Context, limit int) ([]models.Alert, error) {
	var alerts []models.Alert
	query := r.db.WithContext(ctx).
		Where("resolved = false AND notified_at IS NULL").
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&alerts).Error
	return alerts, err
}

// MarkNotified stamps the delivery time on an alert
func (r *AlertRepository) MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ?", id).
		Update("notified_at", at).Error
}

// PurgeResolved deletes resolved alerts older than the cutoff. Returns the
// number of rows removed.
func (r *AlertRepository) PurgeResolved(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("resolved = true AND date < ?", olderThan).
		Delete(&models.Alert{})
	return res.RowsAffected, res.Error
}
