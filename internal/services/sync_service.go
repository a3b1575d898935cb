package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"seller-analytics-service/internal/adapters"
	"seller-analytics-service/internal/models"
	"seller-analytics-service/internal/repository"
)

// RollupRecomputer rebuilds the materialized rollups for one integration
// after new records land
type RollupRecomputer interface {
	RecomputeRollups(ctx context.Context, integrationID uuid.UUID) error
}

// SyncResult summarizes one integration's sync pass. Err is set when the pass
// failed; counts reflect what was persisted before the failure.
type SyncResult struct {
	IntegrationID uuid.UUID              `json:"integrationId"`
	Marketplace   models.MarketplaceType `json:"marketplace"`

	Products     int `json:"products"`
	Sales        int `json:"sales"`
	Fees         int `json:"fees"`
	AdStats      int `json:"adStats"`
	SeoSnapshots int `json:"seoSnapshots"`
	Alerts       int `json:"alerts"`

	// SkippedRecords counts records referencing a SKU with no stored product
	SkippedRecords int `json:"skippedRecords"`

	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// SyncService orchestrates data synchronization from marketplaces into the
// normalized store. One integration's failure never affects another's pass.
type SyncService struct {
	integrationRepo repository.IntegrationRepositoryInterface
	productRepo     repository.ProductRepositoryInterface
	recordRepo      repository.RecordRepositoryInterface
	alertRepo       repository.AlertRepositoryInterface
	rollups         RollupRecomputer
	credentials     *CredentialSource
	windowDays      int
	logger          *zap.Logger
	semaphore       *UserSemaphore

	// inFlight guards against overlapping passes for the same integration
	inFlight sync.Map
}

// NewSyncService creates a new sync service
func NewSyncService(
	integrationRepo repository.IntegrationRepositoryInterface,
	productRepo repository.ProductRepositoryInterface,
	recordRepo repository.RecordRepositoryInterface,
	alertRepo repository.AlertRepositoryInterface,
	rollups RollupRecomputer,
	credentials *CredentialSource,
	windowDays int,
	logger *zap.Logger,
) *SyncService {
	if windowDays <= 0 {
		windowDays = 30
	}
	return &SyncService{
		integrationRepo: integrationRepo,
		productRepo:     productRepo,
		recordRepo:      recordRepo,
		alertRepo:       alertRepo,
		rollups:         rollups,
		credentials:     credentials,
		windowDays:      windowDays,
		logger:          logger.Named("sync"),
		semaphore:       NewUserSemaphore(DefaultSyncConcurrencyConfig()),
	}
}

// SyncAllIntegrations runs a sync pass for every active integration,
// concurrently, and waits for all of them to settle. Failed passes are
// reported in their SyncResult; they never abort the others.
func (s *SyncService) SyncAllIntegrations(ctx context.Context) ([]SyncResult, error) {
	integrations, err := s.integrationRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active integrations: %w", err)
	}

	results := make([]SyncResult, len(integrations))
	var wg sync.WaitGroup
	for i, integration := range integrations {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			results[i] = s.SyncIntegration(ctx, id)
		}(i, integration.ID)
	}
	wg.Wait()

	return results, nil
}

// SyncIntegration runs one full sync pass for one integration: fetch the six
// record kinds from the marketplace, upsert products, resolve SKUs, append
// time-series records, import marketplace alerts, then recompute rollups.
// A non-ACTIVE integration is a silent no-op.
func (s *SyncService) SyncIntegration(ctx context.Context, integrationID uuid.UUID) SyncResult {
	result := SyncResult{IntegrationID: integrationID}
	start := time.Now()

	if _, loaded := s.inFlight.LoadOrStore(integrationID, struct{}{}); loaded {
		result.Err = &SyncError{IntegrationID: integrationID, Err: fmt.Errorf("sync already in progress")}
		return result
	}
	defer s.inFlight.Delete(integrationID)

	integration, err := s.integrationRepo.GetByID(ctx, integrationID)
	if err != nil {
		result.Err = &MissingIntegrationError{IntegrationID: integrationID}
		return result
	}
	result.Marketplace = integration.MarketplaceType

	if integration.Status != models.IntegrationActive {
		s.logger.Debug("skipping inactive integration",
			zap.String("integration_id", integrationID.String()),
			zap.String("status", string(integration.Status)))
		return result
	}

	release, err := s.semaphore.Acquire(ctx, integration.UserID)
	if err != nil {
		result.Err = &SyncError{IntegrationID: integrationID, Err: err}
		return result
	}
	err = s.runPass(ctx, integration, &result)
	release()
	result.Duration = time.Since(start)

	if err != nil {
		result.Err = &SyncError{IntegrationID: integrationID, Err: err}
		s.logger.Error("sync pass failed",
			zap.String("integration_id", integrationID.String()),
			zap.String("marketplace", string(integration.MarketplaceType)),
			zap.Error(err))
	} else {
		s.logger.Info("sync pass completed",
			zap.String("integration_id", integrationID.String()),
			zap.String("marketplace", string(integration.MarketplaceType)),
			zap.Int("products", result.Products),
			zap.Int("sales", result.Sales),
			zap.Int("fees", result.Fees),
			zap.Int("ad_stats", result.AdStats),
			zap.Int("seo_snapshots", result.SeoSnapshots),
			zap.Int("alerts", result.Alerts),
			zap.Int("skipped", result.SkippedRecords),
			zap.Duration("duration", result.Duration))
	}

	if recErr := s.integrationRepo.RecordSyncOutcome(ctx, integrationID, err); recErr != nil {
		s.logger.Error("failed to record sync outcome",
			zap.String("integration_id", integrationID.String()),
			zap.Error(recErr))
	}

	return result
}

// fetchBundle is everything one pass pulls from the marketplace
type fetchBundle struct {
	products     []models.Product
	sales        []models.Sale
	fees         []models.Fee
	adStats      []models.AdStat
	seoSnapshots []models.SeoSnapshot
	alerts       []models.Alert
}

func (s *SyncService) runPass(ctx context.Context, integration *models.Integration, result *SyncResult) error {
	credentials, err := s.credentials.Resolve(ctx, integration)
	if err != nil {
		return fmt.Errorf("failed to resolve credentials: %w", err)
	}

	adapter, err := NewAdapter(integration.MarketplaceType, credentials)
	if err != nil {
		return err
	}

	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -s.windowDays)

	bundle, err := s.fetchAll(ctx, adapter, from, to)
	if err != nil {
		return err
	}

	// Products first so child records can resolve against the fresh catalog
	for i := range bundle.products {
		bundle.products[i].IntegrationID = integration.ID
		if err := s.productRepo.Upsert(ctx, &bundle.products[i]); err != nil {
			return fmt.Errorf("failed to upsert product %s: %w", bundle.products[i].SKU, err)
		}
	}
	result.Products = len(bundle.products)

	skuMap, err := s.productRepo.MapSKUs(ctx, integration.ID)
	if err != nil {
		return fmt.Errorf("failed to map product skus: %w", err)
	}

	sales := make([]models.Sale, 0, len(bundle.sales))
	for _, sale := range bundle.sales {
		productID, ok := skuMap[sale.SKU]
		if !ok {
			result.SkippedRecords++
			continue
		}
		sale.ProductID = productID
		sale.IntegrationID = integration.ID
		sales = append(sales, sale)
	}
	if result.Sales, err = s.recordRepo.InsertSales(ctx, sales); err != nil {
		return fmt.Errorf("failed to insert sales: %w", err)
	}

	fees := make([]models.Fee, 0, len(bundle.fees))
	for _, fee := range bundle.fees {
		productID, ok := skuMap[fee.SKU]
		if !ok {
			result.SkippedRecords++
			continue
		}
		fee.ProductID = productID
		fee.IntegrationID = integration.ID
		fees = append(fees, fee)
	}
	if result.Fees, err = s.recordRepo.InsertFees(ctx, fees); err != nil {
		return fmt.Errorf("failed to insert fees: %w", err)
	}

	adStats := make([]models.AdStat, 0, len(bundle.adStats))
	for _, stat := range bundle.adStats {
		productID, ok := skuMap[stat.SKU]
		if !ok {
			result.SkippedRecords++
			continue
		}
		stat.ProductID = productID
		stat.IntegrationID = integration.ID
		adStats = append(adStats, stat)
	}
	if result.AdStats, err = s.recordRepo.InsertAdStats(ctx, adStats); err != nil {
		return fmt.Errorf("failed to insert ad stats: %w", err)
	}

	snapshots := make([]models.SeoSnapshot, 0, len(bundle.seoSnapshots))
	for _, snapshot := range bundle.seoSnapshots {
		productID, ok := skuMap[snapshot.SKU]
		if !ok {
			result.SkippedRecords++
			continue
		}
		snapshot.ProductID = productID
		snapshot.IntegrationID = integration.ID
		snapshots = append(snapshots, snapshot)
	}
	if result.SeoSnapshots, err = s.recordRepo.InsertSeoSnapshots(ctx, snapshots); err != nil {
		return fmt.Errorf("failed to insert seo snapshots: %w", err)
	}

	// Marketplace alerts keep their product link when the SKU resolves and
	// are stored without one otherwise
	for _, alert := range bundle.alerts {
		alert.IntegrationID = integration.ID
		if productID, ok := skuMap[alert.SKU]; ok {
			id := productID
			alert.ProductID = &id
		}
		if err := s.alertRepo.Create(ctx, &alert); err != nil {
			return fmt.Errorf("failed to store marketplace alert: %w", err)
		}
		result.Alerts++
	}

	if s.rollups != nil {
		if err := s.rollups.RecomputeRollups(ctx, integration.ID); err != nil {
			return fmt.Errorf("failed to recompute rollups: %w", err)
		}
	}

	return nil
}

// fetchAll pulls the six record kinds concurrently. Any fetch error fails the
// whole pass; nothing from a failed pass is persisted.
func (s *SyncService) fetchAll(ctx context.Context, adapter adapters.MarketplaceAdapter, from, to time.Time) (*fetchBundle, error) {
	var bundle fetchBundle
	errs := make([]error, 6)

	var wg sync.WaitGroup
	wg.Add(6)
	go func() {
		defer wg.Done()
		bundle.products, errs[0] = adapter.GetProducts(ctx)
	}()
	go func() {
		defer wg.Done()
		bundle.sales, errs[1] = adapter.GetSales(ctx, from, to)
	}()
	go func() {
		defer wg.Done()
		bundle.fees, errs[2] = adapter.GetFees(ctx, from, to)
	}()
	go func() {
		defer wg.Done()
		bundle.adStats, errs[3] = adapter.GetAdsStats(ctx, from, to)
	}()
	go func() {
		defer wg.Done()
		bundle.seoSnapshots, errs[4] = adapter.GetSeoSnapshots(ctx, from, to)
	}()
	go func() {
		defer wg.Done()
		bundle.alerts, errs[5] = adapter.GetAlerts(ctx)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return &bundle, nil
}
