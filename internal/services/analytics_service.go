package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"seller-analytics-service/internal/cache"
	"seller-analytics-service/internal/models"
	"seller-analytics-service/internal/repository"
)

// AnalyticsService computes the derived views over the normalized store. The
// report methods are read-only; RecomputeRollups is the single write path and
// runs once per sync pass.
type AnalyticsService struct {
	integrationRepo repository.IntegrationRepositoryInterface
	productRepo     repository.ProductRepositoryInterface
	recordRepo      repository.RecordRepositoryInterface
	analyticsRepo   repository.AnalyticsRepositoryInterface
	store           *cache.Store
	thresholdDays   int
	windowDays      int
	logger          *zap.Logger
}

// NewAnalyticsService creates a new analytics service. store may be nil, in
// which case every report is computed from the database.
func NewAnalyticsService(
	integrationRepo repository.IntegrationRepositoryInterface,
	productRepo repository.ProductRepositoryInterface,
	recordRepo repository.RecordRepositoryInterface,
	analyticsRepo repository.AnalyticsRepositoryInterface,
	store *cache.Store,
	thresholdDays int,
	windowDays int,
	logger *zap.Logger,
) *AnalyticsService {
	if thresholdDays <= 0 {
		thresholdDays = 30
	}
	if windowDays <= 0 {
		windowDays = 30
	}
	return &AnalyticsService{
		integrationRepo: integrationRepo,
		productRepo:     productRepo,
		recordRepo:      recordRepo,
		analyticsRepo:   analyticsRepo,
		store:           store,
		thresholdDays:   thresholdDays,
		windowDays:      windowDays,
		logger:          logger.Named("analytics"),
	}
}

func marketplaceKey(marketplace *models.MarketplaceType) string {
	if marketplace == nil {
		return "all"
	}
	return string(*marketplace)
}

func rangeKey(report, userID string, from, to time.Time, marketplace *models.MarketplaceType, extra ...string) string {
	parts := append([]string{report, userID, from.Format("2006-01-02"), to.Format("2006-01-02"), marketplaceKey(marketplace)}, extra...)
	return cache.Key(parts...)
}

// GetKPI returns the headline metrics for a user's date range
func (s *AnalyticsService) GetKPI(ctx context.Context, userID string, from, to time.Time, marketplace *models.MarketplaceType) (*KPISummary, error) {
	key := rangeKey("kpi", userID, from, to, marketplace)
	var cached KPISummary
	if s.store.Get(ctx, key, &cached) {
		return &cached, nil
	}

	sales, err := s.recordRepo.SalesInRange(ctx, userID, from, to, marketplace)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}
	fees, err := s.recordRepo.FeesInRange(ctx, userID, from, to, marketplace)
	if err != nil {
		return nil, fmt.Errorf("failed to load fees: %w", err)
	}
	adStats, err := s.recordRepo.AdStatsInRange(ctx, userID, from, to, marketplace)
	if err != nil {
		return nil, fmt.Errorf("failed to load ad stats: %w", err)
	}
	products, err := s.productRepo.GetByUser(ctx, userID, marketplace)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	kpi := ComputeKPI(sales, fees, adStats, products)
	s.store.Set(ctx, key, kpi)
	return &kpi, nil
}

// GetPnL returns the profit-and-loss report for a user's date range
func (s *AnalyticsService) GetPnL(ctx context.Context, userID string, from, to time.Time, marketplace *models.MarketplaceType, groupBy PnLGroupBy) ([]PnLRow, error) {
	switch groupBy {
	case PnLBySKU, PnLByCategory, PnLByMarketplace:
	case "":
		groupBy = PnLBySKU
	default:
		return nil, fmt.Errorf("unknown pnl grouping: %s", groupBy)
	}

	key := rangeKey("pnl", userID, from, to, marketplace, string(groupBy))
	var cached []PnLRow
	if s.store.Get(ctx, key, &cached) {
		return cached, nil
	}

	sales, err := s.recordRepo.SalesInRange(ctx, userID, from, to, marketplace)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}
	fees, err := s.recordRepo.FeesInRange(ctx, userID, from, to, marketplace)
	if err != nil {
		return nil, fmt.Errorf("failed to load fees: %w", err)
	}
	adStats, err := s.recordRepo.AdStatsInRange(ctx, userID, from, to, marketplace)
	if err != nil {
		return nil, fmt.Errorf("failed to load ad stats: %w", err)
	}
	products, err := s.productRepo.GetByUser(ctx, userID, marketplace)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	integrations, err := s.integrationRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load integrations: %w", err)
	}
	marketplaces := make(map[uuid.UUID]models.MarketplaceType, len(integrations))
	for _, integration := range integrations {
		marketplaces[integration.ID] = integration.MarketplaceType
	}

	rows := ComputePnL(groupBy, sales, fees, adStats, products, marketplaces)
	s.store.Set(ctx, key, rows)
	return rows, nil
}

// GetDeadStock returns the dead-stock report for a user
func (s *AnalyticsService) GetDeadStock(ctx context.Context, userID string, marketplace *models.MarketplaceType) ([]DeadStockItem, error) {
	products, err := s.productRepo.GetByUser(ctx, userID, marketplace)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	lastSales, err := s.productRepo.LastSaleDates(ctx, userID, marketplace)
	if err != nil {
		return nil, fmt.Errorf("failed to load last sale dates: %w", err)
	}
	latestRows, err := s.analyticsRepo.LatestProductAnalyticsByUser(ctx, userID, marketplace)
	if err != nil {
		return nil, fmt.Errorf("failed to load product analytics: %w", err)
	}
	latest := make(map[uuid.UUID]models.ProductAnalytics, len(latestRows))
	for _, row := range latestRows {
		latest[row.ProductID] = row
	}

	return ComputeDeadStock(products, lastSales, latest, time.Now().UTC(), s.thresholdDays), nil
}

// GetHiddenLosses returns the hidden-loss report for a user's date range
func (s *AnalyticsService) GetHiddenLosses(ctx context.Context, userID string, from, to time.Time, marketplace *models.MarketplaceType) ([]HiddenLossItem, error) {
	key := rangeKey("hidden-losses", userID, from, to, marketplace)
	var cached []HiddenLossItem
	if s.store.Get(ctx, key, &cached) {
		return cached, nil
	}

	fees, err := s.recordRepo.FeesInRange(ctx, userID, from, to, marketplace)
	if err != nil {
		return nil, fmt.Errorf("failed to load fees: %w", err)
	}
	sales, err := s.recordRepo.SalesInRange(ctx, userID, from, to, marketplace)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}
	products, err := s.productRepo.GetByUser(ctx, userID, marketplace)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	items := ComputeHiddenLosses(fees, sales, products)
	s.store.Set(ctx, key, items)
	return items, nil
}

// GetAdPerformance returns the per-product advertising report for a user's
// date range
func (s *AnalyticsService) GetAdPerformance(ctx context.Context, userID string, from, to time.Time, marketplace *models.MarketplaceType) ([]AdPerformanceRow, error) {
	key := rangeKey("ads", userID, from, to, marketplace)
	var cached []AdPerformanceRow
	if s.store.Get(ctx, key, &cached) {
		return cached, nil
	}

	adStats, err := s.recordRepo.AdStatsInRange(ctx, userID, from, to, marketplace)
	if err != nil {
		return nil, fmt.Errorf("failed to load ad stats: %w", err)
	}
	products, err := s.productRepo.GetByUser(ctx, userID, marketplace)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	rows := ComputeAdPerformance(adStats, products)
	s.store.Set(ctx, key, rows)
	return rows, nil
}

// GetSeoSummary returns the search-ranking report for a user's date range
func (s *AnalyticsService) GetSeoSummary(ctx context.Context, userID string, from, to time.Time, marketplace *models.MarketplaceType) ([]SeoProductSummary, error) {
	key := rangeKey("seo", userID, from, to, marketplace)
	var cached []SeoProductSummary
	if s.store.Get(ctx, key, &cached) {
		return cached, nil
	}

	snapshots, err := s.recordRepo.SeoSnapshotsInRange(ctx, userID, from, to, marketplace)
	if err != nil {
		return nil, fmt.Errorf("failed to load seo snapshots: %w", err)
	}
	products, err := s.productRepo.GetByUser(ctx, userID, marketplace)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	summaries := ComputeSeoSummary(snapshots, products)
	s.store.Set(ctx, key, summaries)
	return summaries, nil
}

// RecomputeRollups rebuilds the DailyKPI and ProductAnalytics rollups for one
// integration over the trailing window. Upserts keyed on (integration, date)
// and (product, date) make the recomputation idempotent.
func (s *AnalyticsService) RecomputeRollups(ctx context.Context, integrationID uuid.UUID) error {
	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -s.windowDays)

	sales, err := s.recordRepo.SalesByIntegration(ctx, integrationID, from, to)
	if err != nil {
		return fmt.Errorf("failed to load sales: %w", err)
	}
	fees, err := s.recordRepo.FeesByIntegration(ctx, integrationID, from, to)
	if err != nil {
		return fmt.Errorf("failed to load fees: %w", err)
	}
	adStats, err := s.recordRepo.AdStatsByIntegration(ctx, integrationID, from, to)
	if err != nil {
		return fmt.Errorf("failed to load ad stats: %w", err)
	}
	products, err := s.productRepo.GetByIntegration(ctx, integrationID)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}
	lastSales, err := s.productRepo.LastSaleDatesByIntegration(ctx, integrationID)
	if err != nil {
		return fmt.Errorf("failed to load last sale dates: %w", err)
	}

	if err := s.upsertDailyKPIs(ctx, integrationID, sales, fees, adStats, products); err != nil {
		return err
	}
	return s.upsertProductAnalytics(ctx, integrationID, to, sales, fees, adStats, products, lastSales)
}

func (s *AnalyticsService) upsertDailyKPIs(
	ctx context.Context,
	integrationID uuid.UUID,
	sales []models.Sale,
	fees []models.Fee,
	adStats []models.AdStat,
	products []models.Product,
) error {
	stock := 0
	for _, p := range products {
		stock += p.Stock
	}

	days := make(map[time.Time]*models.DailyKPI)
	day := func(t time.Time) *models.DailyKPI {
		d := t.UTC().Truncate(24 * time.Hour)
		if kpi, ok := days[d]; ok {
			return kpi
		}
		kpi := &models.DailyKPI{IntegrationID: integrationID, Date: d, Stock: stock}
		days[d] = kpi
		return kpi
	}

	for _, sale := range sales {
		kpi := day(sale.Date)
		kpi.Orders += sale.Qty
		kpi.Revenue += sale.Revenue
	}
	for _, fee := range fees {
		day(fee.Date).Fees += fee.Amount
	}
	for _, stat := range adStats {
		day(stat.Date).AdsSpend += stat.Spend
	}

	for _, kpi := range days {
		kpi.Profit = kpi.Revenue - kpi.Fees - kpi.AdsSpend
		if err := s.analyticsRepo.UpsertDailyKPI(ctx, kpi); err != nil {
			return fmt.Errorf("failed to upsert daily kpi for %s: %w", kpi.Date.Format("2006-01-02"), err)
		}
	}
	return nil
}

func (s *AnalyticsService) upsertProductAnalytics(
	ctx context.Context,
	integrationID uuid.UUID,
	date time.Time,
	sales []models.Sale,
	fees []models.Fee,
	adStats []models.AdStat,
	products []models.Product,
	lastSales map[uuid.UUID]time.Time,
) error {
	type acc struct {
		units       int
		revenue     float64
		refunds     float64
		fees        float64
		advertising float64
		adSpend     float64
		adRevenue   float64
		adOrders    int
	}
	byProduct := make(map[uuid.UUID]*acc, len(products))
	get := func(id uuid.UUID) *acc {
		if a, ok := byProduct[id]; ok {
			return a
		}
		a := &acc{}
		byProduct[id] = a
		return a
	}

	for _, sale := range sales {
		a := get(sale.ProductID)
		a.units += sale.Qty
		a.revenue += sale.Revenue
		a.refunds += sale.RefundAmount
	}
	for _, fee := range fees {
		a := get(fee.ProductID)
		if fee.Type == models.FeeAdvertising {
			a.advertising += fee.Amount
		} else {
			a.fees += fee.Amount
		}
	}
	for _, stat := range adStats {
		a := get(stat.ProductID)
		a.advertising += stat.Spend
		a.adSpend += stat.Spend
		a.adRevenue += stat.Revenue
		a.adOrders += stat.Orders
	}

	for _, p := range products {
		a := get(p.ID)

		avgDaily := float64(a.units) / float64(s.windowDays)
		var daysOfCover float64
		switch {
		case avgDaily > 0:
			daysOfCover = round2(float64(p.Stock) / avgDaily)
		case p.Stock > 0:
			daysOfCover = noSaleSentinel
		}

		days := noSaleSentinel
		if last, ok := lastSales[p.ID]; ok {
			days = int(date.Sub(last).Hours() / 24)
			if days < 0 {
				days = 0
			}
		}

		profit := a.revenue - float64(a.units)*p.CostPrice - a.fees - a.advertising - a.refunds

		pa := &models.ProductAnalytics{
			ProductID:     p.ID,
			IntegrationID: integrationID,
			Date:          date,
			DaysOfCover:   daysOfCover,
			SellThrough:   round2(safeDiv(float64(a.units), float64(a.units+p.Stock))),
			IsDeadStock:   p.Stock > 0 && days > s.thresholdDays,
			ROAS:          round2(safeDiv(a.adRevenue, a.adSpend)),
			CPA:           round2(safeDiv(a.adSpend, float64(a.adOrders))),
			Margin:        round2(safeDiv(profit, a.revenue)),
			AdsSpend:      a.adSpend,
		}
		if err := s.analyticsRepo.UpsertProductAnalytics(ctx, pa); err != nil {
			return fmt.Errorf("failed to upsert product analytics for %s: %w", p.SKU, err)
		}
	}
	return nil
}
