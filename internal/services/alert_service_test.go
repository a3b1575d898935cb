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

func newTestAlertService(
	integrationRepo *fakeIntegrationRepo,
	productRepo *fakeProductRepo,
	recordRepo *fakeRecordRepo,
	analyticsRepo *fakeAnalyticsRepo,
	alertRepo *fakeAlertRepo,
	dedup bool,
) *AlertService {
	return NewAlertService(integrationRepo, productRepo, recordRepo, analyticsRepo, alertRepo, dedup, zap.NewNop())
}

func TestSharedToken(t *testing.T) {
	token, ok := sharedToken("ASUS VivoBook 15", "Ноутбуки ASUS")
	assert.True(t, ok)
	assert.Equal(t, "asus", token)

	_, ok = sharedToken("Samsung Galaxy A54", "AirPods Pro")
	assert.False(t, ok)

	// tokens of three runes or fewer never count
	_, ok = sharedToken("Pro Max", "Pro Mini")
	assert.False(t, ok)

	token, ok = sharedToken("Чехлы iPhone", "чехлы Samsung")
	assert.True(t, ok)
	assert.Equal(t, "чехлы", token)
}

func TestDeadStockRule(t *testing.T) {
	ctx := context.Background()
	integration := &models.Integration{ID: uuid.New(), UserID: "user-1", Status: models.IntegrationActive}
	integrationRepo := newFakeIntegrationRepo(integration)
	productRepo := newFakeProductRepo()
	analyticsRepo := newFakeAnalyticsRepo()
	alertRepo := newFakeAlertRepo()

	dead := &models.Product{IntegrationID: integration.ID, SKU: "DEAD-1", Title: "Dusty Gadget", Stock: 40}
	alive := &models.Product{IntegrationID: integration.ID, SKU: "LIVE-1", Title: "Hot Seller", Stock: 10}
	assert.NoError(t, productRepo.Upsert(ctx, dead))
	assert.NoError(t, productRepo.Upsert(ctx, alive))

	today := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, analyticsRepo.UpsertProductAnalytics(ctx, &models.ProductAnalytics{
		ProductID: dead.ID, IntegrationID: integration.ID, Date: today, IsDeadStock: true,
	}))
	assert.NoError(t, analyticsRepo.UpsertProductAnalytics(ctx, &models.ProductAnalytics{
		ProductID: alive.ID, IntegrationID: integration.ID, Date: today, IsDeadStock: false,
	}))

	svc := newTestAlertService(integrationRepo, productRepo, newFakeRecordRepo(), analyticsRepo, alertRepo, true)
	created, err := svc.GenerateForIntegration(ctx, integration.ID)

	assert.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Len(t, alertRepo.alerts, 1)
	assert.Equal(t, models.AlertDeadStock, alertRepo.alerts[0].Type)
	assert.Equal(t, models.SeverityMedium, alertRepo.alerts[0].Severity)
	assert.Equal(t, dead.ID, *alertRepo.alerts[0].ProductID)
}

func TestLowROASRuleSkipsZeroSpend(t *testing.T) {
	ctx := context.Background()
	integration := &models.Integration{ID: uuid.New(), UserID: "user-1", Status: models.IntegrationActive}
	integrationRepo := newFakeIntegrationRepo(integration)
	analyticsRepo := newFakeAnalyticsRepo()
	alertRepo := newFakeAlertRepo()

	today := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	wasted := uuid.New()
	unadvertised := uuid.New()
	healthy := uuid.New()
	assert.NoError(t, analyticsRepo.UpsertProductAnalytics(ctx, &models.ProductAnalytics{
		ProductID: wasted, IntegrationID: integration.ID, Date: today, ROAS: 1.5, AdsSpend: 800,
	}))
	assert.NoError(t, analyticsRepo.UpsertProductAnalytics(ctx, &models.ProductAnalytics{
		ProductID: unadvertised, IntegrationID: integration.ID, Date: today, ROAS: 0, AdsSpend: 0,
	}))
	assert.NoError(t, analyticsRepo.UpsertProductAnalytics(ctx, &models.ProductAnalytics{
		ProductID: healthy, IntegrationID: integration.ID, Date: today, ROAS: 4.2, AdsSpend: 500,
	}))

	svc := newTestAlertService(integrationRepo, newFakeProductRepo(), newFakeRecordRepo(), analyticsRepo, alertRepo, true)
	created, err := svc.GenerateForIntegration(ctx, integration.ID)

	assert.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, models.AlertLowROAS, alertRepo.alerts[0].Type)
	assert.Equal(t, models.SeverityHigh, alertRepo.alerts[0].Severity)
	assert.Equal(t, wasted, *alertRepo.alerts[0].ProductID)
}

func TestHighStorageCostRule(t *testing.T) {
	ctx := context.Background()
	integration := &models.Integration{ID: uuid.New(), UserID: "user-1", Status: models.IntegrationActive}
	integrationRepo := newFakeIntegrationRepo(integration)
	recordRepo := newFakeRecordRepo()
	alertRepo := newFakeAlertRepo()

	now := time.Now().UTC()
	expensive := uuid.New()
	cheap := uuid.New()
	_, err := recordRepo.InsertFees(ctx, []models.Fee{
		{IntegrationID: integration.ID, ProductID: expensive, Type: models.FeeStorage, Amount: 700, Date: now.AddDate(0, 0, -2), ExternalID: "f1"},
		{IntegrationID: integration.ID, ProductID: expensive, Type: models.FeeStorage, Amount: 400, Date: now.AddDate(0, 0, -1), ExternalID: "f2"},
		{IntegrationID: integration.ID, ProductID: cheap, Type: models.FeeStorage, Amount: 900, Date: now.AddDate(0, 0, -1), ExternalID: "f3"},
		{IntegrationID: integration.ID, ProductID: cheap, Type: models.FeePenalty, Amount: 500, Date: now.AddDate(0, 0, -1), ExternalID: "f4"},
	})
	assert.NoError(t, err)

	svc := newTestAlertService(integrationRepo, newFakeProductRepo(), recordRepo, newFakeAnalyticsRepo(), alertRepo, true)
	created, err := svc.GenerateForIntegration(ctx, integration.ID)

	assert.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, models.AlertHighStorageCost, alertRepo.alerts[0].Type)
	assert.Equal(t, expensive, *alertRepo.alerts[0].ProductID)
}

func TestCampaignConflictRuleOnePerPair(t *testing.T) {
	ctx := context.Background()
	integration := &models.Integration{ID: uuid.New(), UserID: "user-1", Status: models.IntegrationActive}
	integrationRepo := newFakeIntegrationRepo(integration)
	recordRepo := newFakeRecordRepo()
	alertRepo := newFakeAlertRepo()

	now := time.Now().UTC()
	productID := uuid.New()
	_, err := recordRepo.InsertAdStats(ctx, []models.AdStat{
		{IntegrationID: integration.ID, ProductID: productID, Campaign: strPtr("ASUS VivoBook 15"), Date: now.AddDate(0, 0, -1), ExternalID: "a1"},
		{IntegrationID: integration.ID, ProductID: productID, Campaign: strPtr("Ноутбуки ASUS"), Date: now.AddDate(0, 0, -2), ExternalID: "a2"},
		// repeated campaign names must not multiply the pair
		{IntegrationID: integration.ID, ProductID: productID, Campaign: strPtr("ASUS VivoBook 15"), Date: now.AddDate(0, 0, -3), ExternalID: "a3"},
		{IntegrationID: integration.ID, ProductID: productID, Campaign: strPtr("AirPods Pro"), Date: now.AddDate(0, 0, -1), ExternalID: "a4"},
	})
	assert.NoError(t, err)

	svc := newTestAlertService(integrationRepo, newFakeProductRepo(), recordRepo, newFakeAnalyticsRepo(), alertRepo, true)
	created, err := svc.GenerateForIntegration(ctx, integration.ID)

	assert.NoError(t, err)
	assert.Equal(t, 1, created)
	alert := alertRepo.alerts[0]
	assert.Equal(t, models.AlertCampaignConflict, alert.Type)
	assert.Equal(t, models.SeverityLow, alert.Severity)
	assert.Nil(t, alert.ProductID)
	assert.Equal(t, "asus", alert.Meta["sharedToken"])
}

func TestSeoDropRule(t *testing.T) {
	ctx := context.Background()
	integration := &models.Integration{ID: uuid.New(), UserID: "user-1", Status: models.IntegrationActive}
	integrationRepo := newFakeIntegrationRepo(integration)
	recordRepo := newFakeRecordRepo()
	alertRepo := newFakeAlertRepo()

	now := time.Now().UTC()
	dropped := uuid.New()
	stable := uuid.New()
	single := uuid.New()
	_, err := recordRepo.InsertSeoSnapshots(ctx, []models.SeoSnapshot{
		{IntegrationID: integration.ID, ProductID: dropped, Query: "laptop stand", Position: intPtr(5), Date: now.AddDate(0, 0, -6), ExternalID: "s1"},
		{IntegrationID: integration.ID, ProductID: dropped, Query: "laptop stand", Position: intPtr(25), Date: now.AddDate(0, 0, -1), ExternalID: "s2"},
		{IntegrationID: integration.ID, ProductID: stable, Query: "phone case", Position: intPtr(10), Date: now.AddDate(0, 0, -6), ExternalID: "s3"},
		{IntegrationID: integration.ID, ProductID: stable, Query: "phone case", Position: intPtr(18), Date: now.AddDate(0, 0, -1), ExternalID: "s4"},
		// one positioned snapshot is never enough to diagnose a drop
		{IntegrationID: integration.ID, ProductID: single, Query: "usb hub", Position: intPtr(90), Date: now.AddDate(0, 0, -1), ExternalID: "s5"},
	})
	assert.NoError(t, err)

	svc := newTestAlertService(integrationRepo, newFakeProductRepo(), recordRepo, newFakeAnalyticsRepo(), alertRepo, true)
	created, err := svc.GenerateForIntegration(ctx, integration.ID)

	assert.NoError(t, err)
	assert.Equal(t, 1, created)
	alert := alertRepo.alerts[0]
	assert.Equal(t, models.AlertSeoPositionDrop, alert.Type)
	assert.Equal(t, dropped, *alert.ProductID)
	assert.Equal(t, 5, alert.Meta["oldPosition"])
	assert.Equal(t, 25, alert.Meta["newPosition"])
}

func TestAlertDedup(t *testing.T) {
	ctx := context.Background()
	integration := &models.Integration{ID: uuid.New(), UserID: "user-1", Status: models.IntegrationActive}
	integrationRepo := newFakeIntegrationRepo(integration)
	productRepo := newFakeProductRepo()
	analyticsRepo := newFakeAnalyticsRepo()
	alertRepo := newFakeAlertRepo()

	product := &models.Product{IntegrationID: integration.ID, SKU: "DEAD-1", Title: "Dusty Gadget", Stock: 40}
	assert.NoError(t, productRepo.Upsert(ctx, product))
	today := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, analyticsRepo.UpsertProductAnalytics(ctx, &models.ProductAnalytics{
		ProductID: product.ID, IntegrationID: integration.ID, Date: today, IsDeadStock: true,
	}))

	svc := newTestAlertService(integrationRepo, productRepo, newFakeRecordRepo(), analyticsRepo, alertRepo, true)

	created, err := svc.GenerateForIntegration(ctx, integration.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, created)

	// unresolved alert of the same type and product suppresses the rerun
	created, err = svc.GenerateForIntegration(ctx, integration.ID)
	assert.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Len(t, alertRepo.alerts, 1)

	// resolving clears the suppression
	assert.NoError(t, alertRepo.Resolve(ctx, alertRepo.alerts[0].ID))
	created, err = svc.GenerateForIntegration(ctx, integration.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Len(t, alertRepo.alerts, 2)
}

func TestAlertDedupDisabled(t *testing.T) {
	ctx := context.Background()
	integration := &models.Integration{ID: uuid.New(), UserID: "user-1", Status: models.IntegrationActive}
	integrationRepo := newFakeIntegrationRepo(integration)
	productRepo := newFakeProductRepo()
	analyticsRepo := newFakeAnalyticsRepo()
	alertRepo := newFakeAlertRepo()

	product := &models.Product{IntegrationID: integration.ID, SKU: "DEAD-1", Title: "Dusty Gadget", Stock: 40}
	assert.NoError(t, productRepo.Upsert(ctx, product))
	today := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, analyticsRepo.UpsertProductAnalytics(ctx, &models.ProductAnalytics{
		ProductID: product.ID, IntegrationID: integration.ID, Date: today, IsDeadStock: true,
	}))

	svc := newTestAlertService(integrationRepo, productRepo, newFakeRecordRepo(), analyticsRepo, alertRepo, false)

	for i := 0; i < 2; i++ {
		created, err := svc.GenerateForIntegration(ctx, integration.ID)
		assert.NoError(t, err)
		assert.Equal(t, 1, created)
	}
	assert.Len(t, alertRepo.alerts, 2)
}

func TestGenerateForUserOnlyActiveIntegrations(t *testing.T) {
	ctx := context.Background()
	active := &models.Integration{ID: uuid.New(), UserID: "user-1", Status: models.IntegrationActive}
	disabled := &models.Integration{ID: uuid.New(), UserID: "user-1", Status: models.IntegrationDisabled}
	integrationRepo := newFakeIntegrationRepo(active, disabled)
	productRepo := newFakeProductRepo()
	analyticsRepo := newFakeAnalyticsRepo()
	alertRepo := newFakeAlertRepo()

	for _, integration := range []*models.Integration{active, disabled} {
		product := &models.Product{IntegrationID: integration.ID, SKU: "DEAD-" + integration.ID.String()[:8], Title: "Dusty", Stock: 10}
		assert.NoError(t, productRepo.Upsert(ctx, product))
		assert.NoError(t, analyticsRepo.UpsertProductAnalytics(ctx, &models.ProductAnalytics{
			ProductID: product.ID, IntegrationID: integration.ID,
			Date: time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), IsDeadStock: true,
		}))
	}

	svc := newTestAlertService(integrationRepo, productRepo, newFakeRecordRepo(), analyticsRepo, alertRepo, true)
	created, err := svc.GenerateForUser(ctx, "user-1")

	assert.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, active.ID, alertRepo.alerts[0].IntegrationID)
}
