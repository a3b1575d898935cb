package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"seller-analytics-service/internal/models"
)

// AnalyticsRepositoryInterface defines the materialized-rollup persistence
// operations consumed by services
type AnalyticsRepositoryInterface interface {
	UpsertDailyKPI(ctx context.Context, kpi *models.DailyKPI) error
	UpsertProductAnalytics(ctx context.Context, pa *models.ProductAnalytics) error
	LatestProductAnalytics(ctx context.Context, integrationID uuid.UUID) ([]models.ProductAnalytics, error)
	LatestProductAnalyticsByUser(ctx context.Context, userID string, marketplace *models.MarketplaceType) ([]models.ProductAnalytics, error)
	DailyKPIRange(ctx context.Context, integrationID uuid.UUID, from, to time.Time) ([]models.DailyKPI, error)
}

// AnalyticsRepository handles database operations for the materialized
// rollups (DailyKPI, ProductAnalytics)
type AnalyticsRepository struct {
	db *gorm.DB
}

var _ AnalyticsRepositoryInterface = (*AnalyticsRepository)(nil)

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// UpsertDailyKPI writes one daily rollup row, replacing the metrics when the
// (integration_id, date) row already exists. Recomputation with the same
// inputs is a no-op on the stored values.
func (r *AnalyticsRepository) UpsertDailyKPI(ctx context.Context, kpi *models.DailyKPI) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "integration_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"orders", "revenue", "profit", "stock", "ads_spend", "fees", "updated_at",
			}),
		}).
		Create(kpi).Error
}

// UpsertProductAnalytics writes one product rollup row, replacing the metrics
// when the (product_id, date) row already exists.
func (r *AnalyticsRepository) UpsertProductAnalytics(ctx context.Context, pa *models.ProductAnalytics) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"days_of_cover", "sell_through", "is_dead_stock",
				"roas", "cpa", "margin", "ads_spend", "updated_at",
			}),
		}).
		Create(pa).Error
}

// LatestProductAnalytics returns the newest rollup row per product of one
// integration
func (r *AnalyticsRepository) LatestProductAnalytics(ctx context.Context, integrationID uuid.UUID) ([]models.ProductAnalytics, error) {
	var rows []models.ProductAnalytics
	err := r.db.WithContext(ctx).
		Raw(`SELECT DISTINCT ON (product_id) *
		     FROM product_analytics
		     WHERE integration_id = ?
		     ORDER BY product_id, date DESC`, integrationID).
		Scan(&rows).Error
	return rows, err
}

// LatestProductAnalyticsByUser returns the newest rollup row per product
// across a user's integrations
func (r *AnalyticsRepository) LatestProductAnalyticsByUser(ctx context.Context, userID string, marketplace *models.MarketplaceType) ([]models.ProductAnalytics, error) {
	query := `SELECT DISTINCT ON (pa.product_id) pa.*
	          FROM product_analytics pa
	          JOIN integrations i ON i.id = pa.integration_id
	          WHERE i.user_id = ?`
	args := []interface{}{userID}
	if marketplace != nil {
		query += " AND i.marketplace_type = ?"
		args = append(args, *marketplace)
	}
	query += " ORDER BY pa.product_id, pa.date DESC"

	var rows []models.ProductAnalytics
	err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error
	return rows, err
}

// DailyKPIRange returns an integration's daily rollups with date in [from, to]
func (r *AnalyticsRepository) DailyKPIRange(ctx context.Context, integrationID uuid.UUID, from, to time.Time) ([]models.DailyKPI, error) {
	var rows []models.DailyKPI
	err := r.db.WithContext(ctx).
		Where("integration_id = ? AND date BETWEEN ? AND ?", integrationID, from, to).
		Order("date ASC").
		Find(&rows).Error
	return rows, err
}
