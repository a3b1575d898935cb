package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"seller-analytics-service/internal/models"
	"seller-analytics-service/internal/repository"
)

// In-memory repository fakes shared by the service tests.

type fakeIntegrationRepo struct {
	mu           sync.Mutex
	integrations map[uuid.UUID]*models.Integration
	outcomes     map[uuid.UUID]error
}

var _ repository.IntegrationRepositoryInterface = (*fakeIntegrationRepo)(nil)

func newFakeIntegrationRepo(integrations ...*models.Integration) *fakeIntegrationRepo {
	r := &fakeIntegrationRepo{
		integrations: make(map[uuid.UUID]*models.Integration),
		outcomes:     make(map[uuid.UUID]error),
	}
	for _, integration := range integrations {
		r.integrations[integration.ID] = integration
	}
	return r
}

func (r *fakeIntegrationRepo) Create(ctx context.Context, integration *models.Integration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.integrations[integration.ID] = integration
	return nil
}

func (r *fakeIntegrationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	integration, ok := r.integrations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return integration, nil
}

func (r *fakeIntegrationRepo) GetByUser(ctx context.Context, userID string) ([]models.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Integration
	for _, integration := range r.integrations {
		if integration.UserID == userID {
			out = append(out, *integration)
		}
	}
	return out, nil
}

func (r *fakeIntegrationRepo) ListActive(ctx context.Context) ([]models.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Integration
	for _, integration := range r.integrations {
		if integration.Status == models.IntegrationActive {
			out = append(out, *integration)
		}
	}
	return out, nil
}

func (r *fakeIntegrationRepo) ListActiveByUser(ctx context.Context, userID string) ([]models.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Integration
	for _, integration := range r.integrations {
		if integration.UserID == userID && integration.Status == models.IntegrationActive {
			out = append(out, *integration)
		}
	}
	return out, nil
}

func (r *fakeIntegrationRepo) Update(ctx context.Context, integration *models.Integration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.integrations[integration.ID] = integration
	return nil
}

func (r *fakeIntegrationRepo) RecordSyncOutcome(ctx context.Context, id uuid.UUID, syncErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[id] = syncErr
	return nil
}

func (r *fakeIntegrationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.integrations, id)
	return nil
}

type fakeProductRepo struct {
	mu        sync.Mutex
	products  map[uuid.UUID]map[string]*models.Product
	lastSales map[uuid.UUID]time.Time

	// omitFromMap hides SKUs from MapSKUs, simulating records that reference
	// a product the store does not know
	omitFromMap map[string]bool
}

var _ repository.ProductRepositoryInterface = (*fakeProductRepo)(nil)

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{
		products:  make(map[uuid.UUID]map[string]*models.Product),
		lastSales: make(map[uuid.UUID]time.Time),
	}
}

func (r *fakeProductRepo) Upsert(ctx context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bySKU, ok := r.products[product.IntegrationID]
	if !ok {
		bySKU = make(map[string]*models.Product)
		r.products[product.IntegrationID] = bySKU
	}
	if existing, ok := bySKU[product.SKU]; ok {
		product.ID = existing.ID
	} else if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	copied := *product
	bySKU[product.SKU] = &copied
	return nil
}

func (r *fakeProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bySKU := range r.products {
		for _, product := range bySKU {
			if product.ID == id {
				return product, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProductRepo) GetByIntegration(ctx context.Context, integrationID uuid.UUID) ([]models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Product
	for _, product := range r.products[integrationID] {
		out = append(out, *product)
	}
	return out, nil
}

func (r *fakeProductRepo) GetByUser(ctx context.Context, userID string, marketplace *models.MarketplaceType) ([]models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Product
	for _, bySKU := range r.products {
		for _, product := range bySKU {
			out = append(out, *product)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) MapSKUs(ctx context.Context, integrationID uuid.UUID) (map[string]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := make(map[string]uuid.UUID)
	for sku, product := range r.products[integrationID] {
		if r.omitFromMap[sku] {
			continue
		}
		m[sku] = product.ID
	}
	return m, nil
}

func (r *fakeProductRepo) LastSaleDates(ctx context.Context, userID string, marketplace *models.MarketplaceType) (map[uuid.UUID]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := make(map[uuid.UUID]time.Time, len(r.lastSales))
	for id, t := range r.lastSales {
		m[id] = t
	}
	return m, nil
}

func (r *fakeProductRepo) LastSaleDatesByIntegration(ctx context.Context, integrationID uuid.UUID) (map[uuid.UUID]time.Time, error) {
	return r.LastSaleDates(ctx, "", nil)
}

type fakeRecordRepo struct {
	mu           sync.Mutex
	sales        []models.Sale
	fees         []models.Fee
	adStats      []models.AdStat
	seoSnapshots []models.SeoSnapshot
}

var _ repository.RecordRepositoryInterface = (*fakeRecordRepo)(nil)

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{}
}

func (r *fakeRecordRepo) InsertSales(ctx context.Context, sales []models.Sale) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inserted := 0
	for _, sale := range sales {
		if sale.ExternalID != "" && r.hasSale(sale.IntegrationID, sale.ExternalID) {
			continue
		}
		r.sales = append(r.sales, sale)
		inserted++
	}
	return inserted, nil
}

func (r *fakeRecordRepo) hasSale(integrationID uuid.UUID, externalID string) bool {
	for _, sale := range r.sales {
		if sale.IntegrationID == integrationID && sale.ExternalID == externalID {
			return true
		}
	}
	return false
}

func (r *fakeRecordRepo) InsertFees(ctx context.Context, fees []models.Fee) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inserted := 0
	for _, fee := range fees {
		dup := false
		for _, existing := range r.fees {
			if existing.IntegrationID == fee.IntegrationID && fee.ExternalID != "" && existing.ExternalID == fee.ExternalID {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		r.fees = append(r.fees, fee)
		inserted++
	}
	return inserted, nil
}

func (r *fakeRecordRepo) InsertAdStats(ctx context.Context, stats []models.AdStat) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inserted := 0
	for _, stat := range stats {
		dup := false
		for _, existing := range r.adStats {
			if existing.IntegrationID == stat.IntegrationID && stat.ExternalID != "" && existing.ExternalID == stat.ExternalID {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		r.adStats = append(r.adStats, stat)
		inserted++
	}
	return inserted, nil
}

func (r *fakeRecordRepo) InsertSeoSnapshots(ctx context.Context, snapshots []models.SeoSnapshot) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inserted := 0
	for _, snapshot := range snapshots {
		dup := false
		for _, existing := range r.seoSnapshots {
			if existing.IntegrationID == snapshot.IntegrationID && snapshot.ExternalID != "" && existing.ExternalID == snapshot.ExternalID {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		r.seoSnapshots = append(r.seoSnapshots, snapshot)
		inserted++
	}
	return inserted, nil
}

func (r *fakeRecordRepo) SalesInRange(ctx context.Context, userID string, from, to time.Time, marketplace *models.MarketplaceType) ([]models.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Sale(nil), r.sales...), nil
}

func (r *fakeRecordRepo) FeesInRange(ctx context.Context, userID string, from, to time.Time, marketplace *models.MarketplaceType) ([]models.Fee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Fee(nil), r.fees...), nil
}

func (r *fakeRecordRepo) AdStatsInRange(ctx context.Context, userID string, from, to time.Time, marketplace *models.MarketplaceType) ([]models.AdStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AdStat(nil), r.adStats...), nil
}

func (r *fakeRecordRepo) SeoSnapshotsInRange(ctx context.Context, userID string, from, to time.Time, marketplace *models.MarketplaceType) ([]models.SeoSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.SeoSnapshot(nil), r.seoSnapshots...), nil
}

func (r *fakeRecordRepo) SalesByIntegration(ctx context.Context, integrationID uuid.UUID, from, to time.Time) ([]models.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Sale
	for _, sale := range r.sales {
		if sale.IntegrationID == integrationID {
			out = append(out, sale)
		}
	}
	return out, nil
}

func (r *fakeRecordRepo) FeesByIntegration(ctx context.Context, integrationID uuid.UUID, from, to time.Time) ([]models.Fee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Fee
	for _, fee := range r.fees {
		if fee.IntegrationID == integrationID {
			out = append(out, fee)
		}
	}
	return out, nil
}

func (r *fakeRecordRepo) AdStatsByIntegration(ctx context.Context, integrationID uuid.UUID, from, to time.Time) ([]models.AdStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AdStat
	for _, stat := range r.adStats {
		if stat.IntegrationID == integrationID {
			out = append(out, stat)
		}
	}
	return out, nil
}

func (r *fakeRecordRepo) SeoSnapshotsByIntegration(ctx context.Context, integrationID uuid.UUID, from, to time.Time) ([]models.SeoSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.SeoSnapshot
	for _, snapshot := range r.seoSnapshots {
		if snapshot.IntegrationID == integrationID {
			out = append(out, snapshot)
		}
	}
	return out, nil
}

type fakeAnalyticsRepo struct {
	mu       sync.Mutex
	daily    map[string]*models.DailyKPI
	products map[string]*models.ProductAnalytics
}

var _ repository.AnalyticsRepositoryInterface = (*fakeAnalyticsRepo)(nil)

func newFakeAnalyticsRepo() *fakeAnalyticsRepo {
	return &fakeAnalyticsRepo{
		daily:    make(map[string]*models.DailyKPI),
		products: make(map[string]*models.ProductAnalytics),
	}
}

func (r *fakeAnalyticsRepo) UpsertDailyKPI(ctx context.Context, kpi *models.DailyKPI) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := kpi.IntegrationID.String() + kpi.Date.Format("2006-01-02")
	copied := *kpi
	r.daily[key] = &copied
	return nil
}

func (r *fakeAnalyticsRepo) UpsertProductAnalytics(ctx context.Context, pa *models.ProductAnalytics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pa.ProductID.String() + pa.Date.Format("2006-01-02")
	copied := *pa
	r.products[key] = &copied
	return nil
}

func (r *fakeAnalyticsRepo) LatestProductAnalytics(ctx context.Context, integrationID uuid.UUID) ([]models.ProductAnalytics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	latest := make(map[uuid.UUID]models.ProductAnalytics)
	for _, pa := range r.products {
		if pa.IntegrationID != integrationID {
			continue
		}
		if existing, ok := latest[pa.ProductID]; !ok || pa.Date.After(existing.Date) {
			latest[pa.ProductID] = *pa
		}
	}
	var out []models.ProductAnalytics
	for _, pa := range latest {
		out = append(out, pa)
	}
	return out, nil
}

func (r *fakeAnalyticsRepo) LatestProductAnalyticsByUser(ctx context.Context, userID string, marketplace *models.MarketplaceType) ([]models.ProductAnalytics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	latest := make(map[uuid.UUID]models.ProductAnalytics)
	for _, pa := range r.products {
		if existing, ok := latest[pa.ProductID]; !ok || pa.Date.After(existing.Date) {
			latest[pa.ProductID] = *pa
		}
	}
	var out []models.ProductAnalytics
	for _, pa := range latest {
		out = append(out, pa)
	}
	return out, nil
}

func (r *fakeAnalyticsRepo) DailyKPIRange(ctx context.Context, integrationID uuid.UUID, from, to time.Time) ([]models.DailyKPI, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.DailyKPI
	for _, kpi := range r.daily {
		if kpi.IntegrationID == integrationID {
			out = append(out, *kpi)
		}
	}
	return out, nil
}

type fakeAlertRepo struct {
	mu     sync.Mutex
	alerts []models.Alert
}

var _ repository.AlertRepositoryInterface = (*fakeAlertRepo)(nil)

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{}
}

func (r *fakeAlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	r.alerts = append(r.alerts, *alert)
	return nil
}

func (r *fakeAlertRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.alerts {
		if r.alerts[i].ID == id {
			return &r.alerts[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAlertRepo) List(ctx context.Context, opts repository.AlertListOptions) ([]models.Alert, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]models.Alert(nil), r.alerts...)
	return out, int64(len(out)), nil
}

func (r *fakeAlertRepo) HasUnresolved(ctx context.Context, integrationID uuid.UUID, alertType models.AlertType, productID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, alert := range r.alerts {
		if alert.Resolved || alert.IntegrationID != integrationID || alert.Type != alertType {
			continue
		}
		if productID == nil && alert.ProductID == nil {
			return true, nil
		}
		if productID != nil && alert.ProductID != nil && *productID == *alert.ProductID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAlertRepo) Resolve(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.alerts {
		if r.alerts[i].ID == id {
			r.alerts[i].Resolved = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeAlertRepo) ListUnnotified(ctx context.Context, limit int) ([]models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Alert
	for _, alert := range r.alerts {
		if !alert.Resolved && alert.NotifiedAt == nil {
			out = append(out, alert)
		}
	}
	return out, nil
}

func (r *fakeAlertRepo) MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.alerts {
		if r.alerts[i].ID == id {
			r.alerts[i].NotifiedAt = &at
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeAlertRepo) PurgeResolved(ctx context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []models.Alert
	var purged int64
	for _, alert := range r.alerts {
		if alert.Resolved && alert.Date.Before(olderThan) {
			purged++
			continue
		}
		kept = append(kept, alert)
	}
	r.alerts = kept
	return purged, nil
}
