package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"seller-analytics-service/internal/models"
)

// RecordRepositoryInterface defines the time-series persistence operations
// consumed by services. Inserts are append-only; records carrying a stable
// ExternalID are deduplicated so overlapping sync windows do not double-insert.
type RecordRepositoryInterface interface {
	InsertSales(ctx context.Context, sales []models.Sale) (int, error)
	InsertFees(ctx context.Context, fees []models.Fee) (int, error)
	InsertAdStats(ctx context.Context, stats []models.AdStat) (int, error)
	InsertSeoSnapshots(ctx context.Context, snapshots []models.SeoSnapshot) (int, error)

	SalesInRange(ctx context.Context, userID string, from, to time.Time, marketplace *models.MarketplaceType) ([]models.Sale, error)
	FeesInRange(ctx context.Context, userID string, from, to time.Time, marketplace *models.MarketplaceType) ([]models.Fee, error)
	AdStatsInRange(ctx context.Context, userID string, from, to time.Time, marketplace *models.MarketplaceType) ([]models.AdStat, error)
	SeoSnapshotsInRange(ctx context.Context, userID string, from, to time.Time, marketplace *models.MarketplaceType) ([]models.SeoSnapshot, error)

	SalesByIntegration(ctx context.Context, integrationID uuid.UUID, from, to time.Time) ([]models.Sale, error)
	FeesByIntegration(ctx context.Context, integrationID uuid.UUID, from, to time.Time) ([]models.Fee, error)
	AdStatsByIntegration(ctx context.Context, integrationID uuid.UUID, from, to time.Time) ([]models.AdStat, error)
	SeoSnapshotsByIntegration(ctx context.Context, integrationID uuid.UUID, from, to time.Time) ([]models.SeoSnapshot, error)
}

// RecordRepository handles database operations for the time-series records
// (sales, fees, ad stats, SEO snapshots)
type RecordRepository struct {
	db *gorm.DB
}

var _ RecordRepositoryInterface = (*RecordRepository)(nil)

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

const insertBatchSize = 500

// existingExternalIDs returns which of the given external ids are already
// stored for the integration in the given table.
func (r *RecordRepository) existingExternalIDs(ctx context.Context, table string, integrationID uuid.UUID, ids []string) (map[string]bool, error) {
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}
	var found []string
	err := r.db.WithContext(ctx).
		Table(table).
		Where("integration_id = ? AND external_id IN ?", integrationID, ids).
		Pluck("external_id", &found).Error
	if err != nil {
		return nil, err
	}
	m := make(map[string]bool, len(found))
	for _, id := range found {
		m[id] = true
	}
	return m, nil
}

// InsertSales appends sales, skipping ones whose external id is already
// stored. Returns the number of rows inserted.
func (r *RecordRepository) InsertSales(ctx context.Context, sales []models.Sale) (int, error) {
	if len(sales) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(sales))
	for _, s := range sales {
		if s.ExternalID != "" {
			ids = append(ids, s.ExternalID)
		}
	}
	existing, err := r.existingExternalIDs(ctx, models.Sale{}.TableName(), sales[0].IntegrationID, ids)
	if err != nil {
		return 0, err
	}
	fresh := make([]models.Sale, 0, len(sales))
	for _, s := range sales {
		if s.ExternalID != "" && existing[s.ExternalID] {
			continue
		}
		fresh = append(fresh, s)
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(fresh, insertBatchSize).Error; err != nil {
		return 0, err
	}
	return len(fresh), nil
}

// InsertFees appends fees with external-id dedup. Returns rows inserted.
func (r *RecordRepository) InsertFees(ctx context.Context, fees []models.Fee) (int, error) {
	if len(fees) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(fees))
	for _, f := range fees {
		if f.ExternalID != "" {
			ids = append(ids, f.ExternalID)
		}
	}
	existing, err := r.existingExternalIDs(ctx, models.Fee{}.TableName(), fees[0].IntegrationID, ids)
	if err != nil {
		return 0, err
	}
	fresh := make([]models.Fee, 0, len(fees))
	for _, f := range fees {
		if f.ExternalID != "" && existing[f.ExternalID] {
			continue
		}
		fresh = append(fresh, f)
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(fresh, insertBatchSize).Error; err != nil {
		return 0, err
	}
	return len(fresh), nil
}

// InsertAdStats appends ad stats with external-id dedup. Returns rows inserted.
func (r *RecordRepository) InsertAdStats(ctx context.Context, stats []models.AdStat) (int, error) {
	if len(stats) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(stats))
	for _, s := range stats {
		if s.ExternalID != "" {
			ids = append(ids, s.ExternalID)
		}
	}
	existing, err := r.existingExternalIDs(ctx, models.AdStat{}.TableName(), stats[0].IntegrationID, ids)
	if err != nil {
		return 0, err
	}
	fresh := make([]models.AdStat, 0, len(stats))
	for _, s := range stats {
		if s.ExternalID != "" && existing[s.ExternalID] {
			continue
		}
		fresh = append(fresh, s)
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(fresh, insertBatchSize).Error; err != nil {
		return 0, err
	}
	return len(fresh), nil
}

// InsertSeoSnapshots appends SEO snapshots with external-id dedup. Returns
// rows inserted.
func (r *RecordRepository) InsertSeoSnapshots(ctx context.Context, snapshots []models.SeoSnapshot) (int, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(snapshots))
	for _, s := range snapshots {
		if s.ExternalID != "" {
			ids = append(ids, s.ExternalID)
		}
	}
	existing, err := r.existingExternalIDs(ctx, models.SeoSnapshot{}.TableName(), snapshots[0].IntegrationID, ids)
	if err != nil {
		return 0, err
	}
	fresh := make([]models.SeoSnapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if s.ExternalID != "" && existing[s.ExternalID] {
			continue
		}
		fresh = append(fresh, s)
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(fresh, insertBatchSize).Error; err != nil {
		return 0, err
	}
	return len(fresh), nil
}

// SalesInRange retrieves a user's sales with date in [from, to]
func (r *RecordRepository) SalesInRange(ctx context.Context, userID string, from, to time.Time, marketplace *models.MarketplaceType) ([]models.Sale, error) {
	var sales []models.Sale
	err := scopeToUser(r.db.WithContext(ctx), userID, marketplace).
		Where("date BETWEEN ? AND ?", from, to).
		Order("date ASC").
		Find(&sales).Error
	return sales, err
}

// FeesInRange retrieves a user's fees with date in [from, to]
func (r *RecordRepository) FeesInRange(ctx context.Context, userID string, from, to time.Time, marketplace *models.MarketplaceType) ([]models.Fee, error) {
	var fees []models.Fee
	err := scopeToUser(r.db.WithContext(ctx), userID, marketplace).
		Where("date BETWEEN ? AND ?", from, to).
		Order("date ASC").
		Find(&fees).Error
	return fees, err
}

// AdStatsInRange retrieves a user's ad stats with date in [from, to]
func (r *RecordRepository) AdStatsInRange(ctx context.Context, userID string, from, to time.Time, marketplace *models.MarketplaceType) ([]models.AdStat, error) {
	var stats []models.AdStat
	err := scopeToUser(r.db.WithContext(ctx), userID, marketplace).
		Where("date BETWEEN ? AND ?", from, to).
		Order("date ASC").
		Find(&stats).Error
	return stats, err
}

// SeoSnapshotsInRange retrieves a user's SEO snapshots with date in [from, to]
func (r *RecordRepository) SeoSnapshotsInRange(ctx context.Context, userID string, from, to time.Time, marketplace *models.MarketplaceType) ([]models.SeoSnapshot, error) {
	var snapshots []models.SeoSnapshot
	err := scopeToUser(r.db.WithContext(ctx), userID, marketplace).
		Where("date BETWEEN ? AND ?", from, to).
		Order("date ASC").
		Find(&snapshots).Error
	return snapshots, err
}

// SalesByIntegration retrieves one integration's sales with date in [from, to]
func (r *RecordRepository) SalesByIntegration(ctx context.Context, integrationID uuid.UUID, from, to time.Time) ([]models.Sale, error) {
	var sales []models.Sale
	err := r.db.WithContext(ctx).
		Where("integration_id = ? AND date BETWEEN ? AND ?", integrationID, from, to).
		Order("date ASC").
		Find(&sales).Error
	return sales, err
}

// FeesByIntegration retrieves one integration's fees with date in [from, to]
func (r *RecordRepository) FeesByIntegration(ctx context.Context, integrationID uuid.UUID, from, to time.Time) ([]models.Fee, error) {
	var fees []models.Fee
	err := r.db.WithContext(ctx).
		Where("integration_id = ? AND date BETWEEN ? AND ?", integrationID, from, to).
		Order("date ASC").
		Find(&fees).Error
	return fees, err
}

// AdStatsByIntegration retrieves one integration's ad stats with date in [from, to]
func (r *RecordRepository) AdStatsByIntegration(ctx context.Context, integrationID uuid.UUID, from, to time.Time) ([]models.AdStat, error) {
	var stats []models.AdStat
	err := r.db.WithContext(ctx).
		Where("integration_id = ? AND date BETWEEN ? AND ?", integrationID, from, to).
		Order("date ASC").
		Find(&stats).Error
	return stats, err
}

// SeoSnapshotsByIntegration retrieves one integration's SEO snapshots with
// date in [from, to]
func (r *RecordRepository) SeoSnapshotsByIntegration(ctx context.Context, integrationID uuid.UUID, from, to time.Time) ([]models.SeoSnapshot, error) {
	var snapshots []models.SeoSnapshot
	err := r.db.WithContext(ctx).
		Where("integration_id = ? AND date BETWEEN ? AND ?", integrationID, from, to).
		Order("date ASC").
		Find(&snapshots).Error
	return snapshots, err
}
