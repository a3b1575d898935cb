package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"seller-analytics-service/internal/models"
)

func newTestAnalyticsService(
	integrationRepo *fakeIntegrationRepo,
	productRepo *fakeProductRepo,
	recordRepo *fakeRecordRepo,
	analyticsRepo *fakeAnalyticsRepo,
) *AnalyticsService {
	return NewAnalyticsService(integrationRepo, productRepo, recordRepo, analyticsRepo, nil, 30, 30, zap.NewNop())
}

func TestRecomputeRollupsDailyKPI(t *testing.T) {
	ctx := context.Background()
	integration := wildberriesIntegration("user-1")
	integrationRepo := newFakeIntegrationRepo(integration)
	productRepo := newFakeProductRepo()
	recordRepo := newFakeRecordRepo()
	analyticsRepo := newFakeAnalyticsRepo()

	product := &models.Product{IntegrationID: integration.ID, SKU: "SKU-1", Stock: 10}
	assert.NoError(t, productRepo.Upsert(ctx, product))

	day := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	_, err := recordRepo.InsertSales(ctx, []models.Sale{
		{IntegrationID: integration.ID, ProductID: product.ID, Date: day, Qty: 30, Revenue: 6000, ExternalID: "s1"},
	})
	assert.NoError(t, err)
	_, err = recordRepo.InsertFees(ctx, []models.Fee{
		{IntegrationID: integration.ID, ProductID: product.ID, Date: day, Type: models.FeeCommission, Amount: 500, ExternalID: "f1"},
		{IntegrationID: integration.ID, ProductID: product.ID, Date: day, Type: models.FeeAdvertising, Amount: 100, ExternalID: "f2"},
	})
	assert.NoError(t, err)
	_, err = recordRepo.InsertAdStats(ctx, []models.AdStat{
		{IntegrationID: integration.ID, ProductID: product.ID, Date: day, Spend: 200, Revenue: 800, Orders: 4, ExternalID: "a1"},
	})
	assert.NoError(t, err)

	svc := newTestAnalyticsService(integrationRepo, productRepo, recordRepo, analyticsRepo)
	assert.NoError(t, svc.RecomputeRollups(ctx, integration.ID))

	kpis, err := analyticsRepo.DailyKPIRange(ctx, integration.ID, day, day)
	assert.NoError(t, err)
	assert.Len(t, kpis, 1)
	kpi := kpis[0]
	assert.Equal(t, day, kpi.Date)
	assert.Equal(t, 30, kpi.Orders)
	assert.Equal(t, 6000.0, kpi.Revenue)
	assert.Equal(t, 600.0, kpi.Fees)
	assert.Equal(t, 200.0, kpi.AdsSpend)
	assert.Equal(t, 5200.0, kpi.Profit)
	assert.Equal(t, 10, kpi.Stock)
}

func TestRecomputeRollupsProductAnalytics(t *testing.T) {
	ctx := context.Background()
	integration := wildberriesIntegration("user-1")
	integrationRepo := newFakeIntegrationRepo(integration)
	productRepo := newFakeProductRepo()
	recordRepo := newFakeRecordRepo()
	analyticsRepo := newFakeAnalyticsRepo()

	selling := &models.Product{IntegrationID: integration.ID, SKU: "SELL-1", Stock: 10, CostPrice: 50}
	dead := &models.Product{IntegrationID: integration.ID, SKU: "DEAD-1", Stock: 5}
	assert.NoError(t, productRepo.Upsert(ctx, selling))
	assert.NoError(t, productRepo.Upsert(ctx, dead))

	day := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	productRepo.lastSales[selling.ID] = day

	_, err := recordRepo.InsertSales(ctx, []models.Sale{
		{IntegrationID: integration.ID, ProductID: selling.ID, Date: day, Qty: 30, Revenue: 6000, ExternalID: "s1"},
	})
	assert.NoError(t, err)
	_, err = recordRepo.InsertFees(ctx, []models.Fee{
		{IntegrationID: integration.ID, ProductID: selling.ID, Date: day, Type: models.FeeCommission, Amount: 500, ExternalID: "f1"},
		{IntegrationID: integration.ID, ProductID: selling.ID, Date: day, Type: models.FeeAdvertising, Amount: 100, ExternalID: "f2"},
	})
	assert.NoError(t, err)
	_, err = recordRepo.InsertAdStats(ctx, []models.AdStat{
		{IntegrationID: integration.ID, ProductID: selling.ID, Date: day, Spend: 200, Revenue: 800, Orders: 4, ExternalID: "a1"},
	})
	assert.NoError(t, err)

	svc := newTestAnalyticsService(integrationRepo, productRepo, recordRepo, analyticsRepo)
	assert.NoError(t, svc.RecomputeRollups(ctx, integration.ID))

	rows, err := analyticsRepo.LatestProductAnalytics(ctx, integration.ID)
	assert.NoError(t, err)
	assert.Len(t, rows, 2)

	byProduct := make(map[uuid.UUID]models.ProductAnalytics)
	for _, row := range rows {
		byProduct[row.ProductID] = row
	}

	sold := byProduct[selling.ID]
	// 30 units over a 30 day window puts 10 units of stock at 10 days of cover
	assert.Equal(t, 10.0, sold.DaysOfCover)
	assert.Equal(t, 0.75, sold.SellThrough)
	assert.False(t, sold.IsDeadStock)
	assert.Equal(t, 4.0, sold.ROAS)
	assert.Equal(t, 50.0, sold.CPA)
	// 6000 - 1500 cogs - 500 fees - 300 advertising
	assert.Equal(t, 0.62, sold.Margin)
	assert.Equal(t, 200.0, sold.AdsSpend)

	idle := byProduct[dead.ID]
	assert.Equal(t, float64(noSaleSentinel), idle.DaysOfCover)
	assert.Equal(t, 0.0, idle.SellThrough)
	assert.True(t, idle.IsDeadStock)
	assert.Equal(t, 0.0, idle.ROAS)
	assert.Equal(t, 0.0, idle.CPA)
}

func TestRecomputeRollupsIdempotent(t *testing.T) {
	ctx := context.Background()
	integration := wildberriesIntegration("user-1")
	integrationRepo := newFakeIntegrationRepo(integration)
	productRepo := newFakeProductRepo()
	recordRepo := newFakeRecordRepo()
	analyticsRepo := newFakeAnalyticsRepo()

	product := &models.Product{IntegrationID: integration.ID, SKU: "SKU-1", Stock: 10}
	assert.NoError(t, productRepo.Upsert(ctx, product))
	day := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	_, err := recordRepo.InsertSales(ctx, []models.Sale{
		{IntegrationID: integration.ID, ProductID: product.ID, Date: day, Qty: 3, Revenue: 600, ExternalID: "s1"},
	})
	assert.NoError(t, err)

	svc := newTestAnalyticsService(integrationRepo, productRepo, recordRepo, analyticsRepo)
	assert.NoError(t, svc.RecomputeRollups(ctx, integration.ID))
	assert.NoError(t, svc.RecomputeRollups(ctx, integration.ID))

	kpis, err := analyticsRepo.DailyKPIRange(ctx, integration.ID, day, day)
	assert.NoError(t, err)
	assert.Len(t, kpis, 1)
	assert.Equal(t, 600.0, kpis[0].Revenue)

	rows, err := analyticsRepo.LatestProductAnalytics(ctx, integration.ID)
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestGetKPIWithoutCache(t *testing.T) {
	ctx := context.Background()
	integration := wildberriesIntegration("user-1")
	integrationRepo := newFakeIntegrationRepo(integration)
	productRepo := newFakeProductRepo()
	recordRepo := newFakeRecordRepo()

	product := &models.Product{IntegrationID: integration.ID, SKU: "SKU-1", Stock: 7}
	assert.NoError(t, productRepo.Upsert(ctx, product))
	day := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	_, err := recordRepo.InsertSales(ctx, []models.Sale{
		{IntegrationID: integration.ID, ProductID: product.ID, Date: day, Qty: 2, Revenue: 900, ExternalID: "s1"},
	})
	assert.NoError(t, err)

	svc := newTestAnalyticsService(integrationRepo, productRepo, recordRepo, newFakeAnalyticsRepo())
	kpi, err := svc.GetKPI(ctx, "user-1", day.AddDate(0, 0, -7), day, nil)

	assert.NoError(t, err)
	assert.Equal(t, 2, kpi.Orders)
	assert.Equal(t, 900.0, kpi.Revenue)
	assert.Equal(t, 7, kpi.Stock)
}

func TestGetPnLRejectsUnknownGrouping(t *testing.T) {
	svc := newTestAnalyticsService(newFakeIntegrationRepo(), newFakeProductRepo(), newFakeRecordRepo(), newFakeAnalyticsRepo())

	_, err := svc.GetPnL(context.Background(), "user-1", time.Now().AddDate(0, 0, -7), time.Now(), nil, PnLGroupBy("warehouse"))

	assert.Error(t, err)
}
