package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"seller-analytics-service/internal/models"
	"seller-analytics-service/internal/repository"
)

const (
	lowROASThreshold     = 3.0
	storageCostThreshold = 1000.0
	seoDropThreshold     = 10
	ruleWindowDays       = 7

	// conflictTokenMinLen is the shortest shared campaign-name token that
	// counts as a conflict, measured in runes so Cyrillic names compare the
	// same as Latin ones
	conflictTokenMinLen = 3
)

// AlertService evaluates the alert rules per integration. Rules are
// independent: one rule's failure never blocks the others. With dedup on
// (the default) a rule does not fire again while an unresolved alert of the
// same type exists for the same integration and product.
type AlertService struct {
	integrationRepo repository.IntegrationRepositoryInterface
	productRepo     repository.ProductRepositoryInterface
	recordRepo      repository.RecordRepositoryInterface
	analyticsRepo   repository.AnalyticsRepositoryInterface
	alertRepo       repository.AlertRepositoryInterface
	dedup           bool
	logger          *zap.Logger
}

// NewAlertService creates a new alert service
func NewAlertService(
	integrationRepo repository.IntegrationRepositoryInterface,
	productRepo repository.ProductRepositoryInterface,
	recordRepo repository.RecordRepositoryInterface,
	analyticsRepo repository.AnalyticsRepositoryInterface,
	alertRepo repository.AlertRepositoryInterface,
	dedup bool,
	logger *zap.Logger,
) *AlertService {
	return &AlertService{
		integrationRepo: integrationRepo,
		productRepo:     productRepo,
		recordRepo:      recordRepo,
		analyticsRepo:   analyticsRepo,
		alertRepo:       alertRepo,
		dedup:           dedup,
		logger:          logger.Named("alerts"),
	}
}

// GenerateAll evaluates the rules for every active integration. Returns the
// number of alerts created across all of them.
func (s *AlertService) GenerateAll(ctx context.Context) (int, error) {
	integrations, err := s.integrationRepo.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active integrations: %w", err)
	}
	return s.generateFor(ctx, integrations), nil
}

// GenerateForUser evaluates the rules for one user's active integrations
func (s *AlertService) GenerateForUser(ctx context.Context, userID string) (int, error) {
	integrations, err := s.integrationRepo.ListActiveByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list active integrations: %w", err)
	}
	return s.generateFor(ctx, integrations), nil
}

func (s *AlertService) generateFor(ctx context.Context, integrations []models.Integration) int {
	total := 0
	for _, integration := range integrations {
		created, err := s.GenerateForIntegration(ctx, integration.ID)
		total += created
		if err != nil {
			s.logger.Error("alert generation failed",
				zap.String("integration_id", integration.ID.String()),
				zap.Error(err))
		}
	}
	return total
}

// GenerateForIntegration runs every rule against one integration and persists
// what fires. Returns the number of alerts created; the error reports rule or
// persistence failures that did not stop the remaining rules.
func (s *AlertService) GenerateForIntegration(ctx context.Context, integrationID uuid.UUID) (int, error) {
	now := time.Now().UTC()

	rules := []struct {
		name string
		eval func(context.Context, uuid.UUID, time.Time) ([]models.Alert, error)
	}{
		{"dead_stock", s.deadStockRule},
		{"low_roas", s.lowROASRule},
		{"high_storage_cost", s.highStorageCostRule},
		{"campaign_conflict", s.campaignConflictRule},
		{"seo_position_drop", s.seoDropRule},
	}

	created := 0
	var failures []string
	for _, rule := range rules {
		alerts, err := rule.eval(ctx, integrationID, now)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", rule.name, err))
			s.logger.Warn("alert rule failed",
				zap.String("integration_id", integrationID.String()),
				zap.String("rule", rule.name),
				zap.Error(err))
			continue
		}
		for i := range alerts {
			stored, err := s.persist(ctx, &alerts[i])
			if err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", rule.name, err))
				continue
			}
			if stored {
				created++
			}
		}
	}

	if len(failures) > 0 {
		return created, fmt.Errorf("alert rules had failures: %s", strings.Join(failures, "; "))
	}
	return created, nil
}

// persist stores one alert, honoring the dedup policy. Returns whether a row
// was created.
func (s *AlertService) persist(ctx context.Context, alert *models.Alert) (bool, error) {
	if s.dedup {
		exists, err := s.alertRepo.HasUnresolved(ctx, alert.IntegrationID, alert.Type, alert.ProductID)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
	}
	if err := s.alertRepo.Create(ctx, alert); err != nil {
		return false, err
	}
	return true, nil
}

// deadStockRule fires MEDIUM for every in-stock product whose latest rollup
// marks it dead stock
func (s *AlertService) deadStockRule(ctx context.Context, integrationID uuid.UUID, now time.Time) ([]models.Alert, error) {
	rows, err := s.analyticsRepo.LatestProductAnalytics(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	products, err := s.productRepo.GetByIntegration(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	index := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		index[products[i].ID] = &products[i]
	}

	var alerts []models.Alert
	for _, row := range rows {
		product, ok := index[row.ProductID]
		if !ok || !row.IsDeadStock || product.Stock <= 0 {
			continue
		}
		productID := row.ProductID
		alerts = append(alerts, models.Alert{
			IntegrationID: integrationID,
			ProductID:     &productID,
			Type:          models.AlertDeadStock,
			Severity:      models.SeverityMedium,
			Message:       fmt.Sprintf("%s (%s) has %d units in stock with no recent sales", product.Title, product.SKU, product.Stock),
			Date:          now,
			Meta: models.JSONB{
				"sku":         product.SKU,
				"stock":       product.Stock,
				"daysOfCover": row.DaysOfCover,
			},
		})
	}
	return alerts, nil
}

// lowROASRule fires HIGH for every advertised product whose rolling ROAS sits
// under the threshold. Products with zero ad spend are skipped: their ROAS of
// 0 reflects no ad activity, not bad ads.
func (s *AlertService) lowROASRule(ctx context.Context, integrationID uuid.UUID, now time.Time) ([]models.Alert, error) {
	rows, err := s.analyticsRepo.LatestProductAnalytics(ctx, integrationID)
	if err != nil {
		return nil, err
	}

	var alerts []models.Alert
	for _, row := range rows {
		if row.AdsSpend <= 0 || row.ROAS >= lowROASThreshold {
			continue
		}
		productID := row.ProductID
		alerts = append(alerts, models.Alert{
			IntegrationID: integrationID,
			ProductID:     &productID,
			Type:          models.AlertLowROAS,
			Severity:      models.SeverityHigh,
			Message:       fmt.Sprintf("ROAS %.2f is below %.1f with %.2f spent on ads", row.ROAS, lowROASThreshold, row.AdsSpend),
			Date:          now,
			Meta: models.JSONB{
				"roas":      row.ROAS,
				"adsSpend":  row.AdsSpend,
				"threshold": lowROASThreshold,
			},
		})
	}
	return alerts, nil
}

// highStorageCostRule fires MEDIUM for every product whose trailing-week
// storage fees exceed the threshold
func (s *AlertService) highStorageCostRule(ctx context.Context, integrationID uuid.UUID, now time.Time) ([]models.Alert, error) {
	from := now.AddDate(0, 0, -ruleWindowDays)
	fees, err := s.recordRepo.FeesByIntegration(ctx, integrationID, from, now)
	if err != nil {
		return nil, err
	}

	totals := make(map[uuid.UUID]float64)
	var order []uuid.UUID
	for _, fee := range fees {
		if fee.Type != models.FeeStorage {
			continue
		}
		if _, seen := totals[fee.ProductID]; !seen {
			order = append(order, fee.ProductID)
		}
		totals[fee.ProductID] += fee.Amount
	}

	var alerts []models.Alert
	for _, productID := range order {
		total := totals[productID]
		if total <= storageCostThreshold {
			continue
		}
		id := productID
		alerts = append(alerts, models.Alert{
			IntegrationID: integrationID,
			ProductID:     &id,
			Type:          models.AlertHighStorageCost,
			Severity:      models.SeverityMedium,
			Message:       fmt.Sprintf("storage fees of %.2f over the last %d days exceed %.0f", total, ruleWindowDays, storageCostThreshold),
			Date:          now,
			Meta: models.JSONB{
				"storageFees": round2(total),
				"windowDays":  ruleWindowDays,
				"threshold":   storageCostThreshold,
			},
		})
	}
	return alerts, nil
}

// campaignConflictRule fires one LOW alert per unordered pair of campaigns
// whose names share a token longer than three characters, case-insensitively
func (s *AlertService) campaignConflictRule(ctx context.Context, integrationID uuid.UUID, now time.Time) ([]models.Alert, error) {
	from := now.AddDate(0, 0, -ruleWindowDays)
	stats, err := s.recordRepo.AdStatsByIntegration(ctx, integrationID, from, now)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var campaigns []string
	for _, stat := range stats {
		if stat.Campaign == nil || *stat.Campaign == "" {
			continue
		}
		if !seen[*stat.Campaign] {
			seen[*stat.Campaign] = true
			campaigns = append(campaigns, *stat.Campaign)
		}
	}
	sort.Strings(campaigns)

	var alerts []models.Alert
	for i := 0; i < len(campaigns); i++ {
		for j := i + 1; j < len(campaigns); j++ {
			token, ok := sharedToken(campaigns[i], campaigns[j])
			if !ok {
				continue
			}
			alerts = append(alerts, models.Alert{
				IntegrationID: integrationID,
				Type:          models.AlertCampaignConflict,
				Severity:      models.SeverityLow,
				Message:       fmt.Sprintf("campaigns %q and %q both target %q and may bid against each other", campaigns[i], campaigns[j], token),
				Date:          now,
				Meta: models.JSONB{
					"campaignA":   campaigns[i],
					"campaignB":   campaigns[j],
					"sharedToken": token,
				},
			})
		}
	}
	return alerts, nil
}

// sharedToken reports the first token longer than conflictTokenMinLen runes
// that both campaign names contain, compared case-insensitively
func sharedToken(a, b string) (string, bool) {
	tokensB := make(map[string]bool)
	for _, token := range strings.Fields(strings.ToLower(b)) {
		if utf8.RuneCountInString(token) > conflictTokenMinLen {
			tokensB[token] = true
		}
	}
	for _, token := range strings.Fields(strings.ToLower(a)) {
		if utf8.RuneCountInString(token) > conflictTokenMinLen && tokensB[token] {
			return token, true
		}
	}
	return "", false
}

// seoDropRule fires MEDIUM when a product's ranking for a query worsened by
// more than the threshold across the trailing week. Needs at least two
// positioned snapshots for the (product, query) pair.
func (s *AlertService) seoDropRule(ctx context.Context, integrationID uuid.UUID, now time.Time) ([]models.Alert, error) {
	from := now.AddDate(0, 0, -ruleWindowDays)
	snapshots, err := s.recordRepo.SeoSnapshotsByIntegration(ctx, integrationID, from, now)
	if err != nil {
		return nil, err
	}

	type pairKey struct {
		productID uuid.UUID
		query     string
	}
	type span struct {
		oldest time.Time
		newest time.Time
		oldPos int
		newPos int
		count  int
	}

	spans := make(map[pairKey]*span)
	var order []pairKey
	for _, snapshot := range snapshots {
		if snapshot.Position == nil {
			continue
		}
		key := pairKey{snapshot.ProductID, snapshot.Query}
		sp, ok := spans[key]
		if !ok {
			sp = &span{oldest: snapshot.Date, newest: snapshot.Date, oldPos: *snapshot.Position, newPos: *snapshot.Position}
			spans[key] = sp
			order = append(order, key)
		}
		if snapshot.Date.Before(sp.oldest) {
			sp.oldest = snapshot.Date
			sp.oldPos = *snapshot.Position
		}
		if !snapshot.Date.Before(sp.newest) {
			sp.newest = snapshot.Date
			sp.newPos = *snapshot.Position
		}
		sp.count++
	}

	var alerts []models.Alert
	for _, key := range order {
		sp := spans[key]
		delta := sp.newPos - sp.oldPos
		if sp.count < 2 || delta <= seoDropThreshold {
			continue
		}
		productID := key.productID
		alerts = append(alerts, models.Alert{
			IntegrationID: integrationID,
			ProductID:     &productID,
			Type:          models.AlertSeoPositionDrop,
			Severity:      models.SeverityMedium,
			Message:       fmt.Sprintf("ranking for %q dropped from %d to %d", key.query, sp.oldPos, sp.newPos),
			Date:          now,
			Meta: models.JSONB{
				"query":       key.query,
				"oldPosition": sp.oldPos,
				"newPosition": sp.newPos,
				"delta":       delta,
			},
		})
	}
	return alerts, nil
}
