package services

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"seller-analytics-service/internal/models"
)

// noSaleSentinel stands in for "no sale ever" in days-since-last-sale math
const noSaleSentinel = 999

// KPISummary is the headline metric block over one date range
type KPISummary struct {
	Orders     int     `json:"orders"`
	Revenue    float64 `json:"revenue"`
	Fees       float64 `json:"fees"`
	AdsSpend   float64 `json:"adsSpend"`
	AdsRevenue float64 `json:"adsRevenue"`
	Stock      int     `json:"stock"`
	Profit     float64 `json:"profit"`
	ROAS       float64 `json:"roas"`
	Margin     float64 `json:"margin"`
}

// PnLGroupBy selects the grouping dimension of a profit-and-loss report
type PnLGroupBy string

const (
	PnLBySKU         PnLGroupBy = "sku"
	PnLByCategory    PnLGroupBy = "category"
	PnLByMarketplace PnLGroupBy = "marketplace"
)

// PnLRow is one group of a profit-and-loss report. Storage and Logistics are
// informational breakouts already included in Fees.
type PnLRow struct {
	Group       string  `json:"group"`
	Revenue     float64 `json:"revenue"`
	COGS        float64 `json:"cogs"`
	Storage     float64 `json:"storage"`
	Logistics   float64 `json:"logistics"`
	Fees        float64 `json:"fees"`
	Advertising float64 `json:"advertising"`
	Refunds     float64 `json:"refunds"`
	Profit      float64 `json:"profit"`
	Margin      float64 `json:"margin"`
}

// DeadStockItem is one product in the dead-stock report
type DeadStockItem struct {
	ProductID         uuid.UUID `json:"productId"`
	SKU               string    `json:"sku"`
	Title             string    `json:"title"`
	Stock             int       `json:"stock"`
	DaysSinceLastSale int       `json:"daysSinceLastSale"`
	IsDeadStock       bool      `json:"isDeadStock"`
	SellThrough       float64   `json:"sellThrough"`
}

// HiddenLossItem is one product's non-commission fee burden
type HiddenLossItem struct {
	ProductID       uuid.UUID `json:"productId"`
	SKU             string    `json:"sku"`
	Title           string    `json:"title"`
	Storage         float64   `json:"storage"`
	Penalties       float64   `json:"penalties"`
	Logistics       float64   `json:"logistics"`
	Other           float64   `json:"other"`
	TotalHiddenLoss float64   `json:"totalHiddenLoss"`
	Revenue         float64   `json:"revenue"`
	ProfitImpact    float64   `json:"profitImpact"`
}

// AdPerformanceRow is one product's advertising performance
type AdPerformanceRow struct {
	ProductID   uuid.UUID `json:"productId"`
	SKU         string    `json:"sku"`
	Title       string    `json:"title"`
	Impressions int       `json:"impressions"`
	Clicks      int       `json:"clicks"`
	Orders      int       `json:"orders"`
	Spend       float64   `json:"spend"`
	Revenue     float64   `json:"revenue"`
	ROAS        float64   `json:"roas"`
	CPA         float64   `json:"cpa"`
	CTR         float64   `json:"ctr"`
}

// SeoQueryStat is one search query's averaged ranking for a product
type SeoQueryStat struct {
	Query       string  `json:"query"`
	AvgPosition float64 `json:"avgPosition"`
	Snapshots   int     `json:"snapshots"`
}

// SeoProductSummary is one product's search-ranking summary. Missing optional
// snapshot fields count as 0 in the averages; partially populated data biases
// the averages low.
type SeoProductSummary struct {
	ProductID     uuid.UUID      `json:"productId"`
	SKU           string         `json:"sku"`
	Title         string         `json:"title"`
	AvgPosition   float64        `json:"avgPosition"`
	AvgConversion float64        `json:"avgConversion"`
	AvgCTR        float64        `json:"avgCtr"`
	TotalQueries  int            `json:"totalQueries"`
	TopQueries    []SeoQueryStat `json:"topQueries"`
}

// safeDiv divides, resolving a zero divisor to 0 instead of NaN or Inf
func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeKPI folds the given records into one headline block. Stock is the
// current catalog snapshot, not a windowed figure.
func ComputeKPI(sales []models.Sale, fees []models.Fee, adStats []models.AdStat, products []models.Product) KPISummary {
	var kpi KPISummary
	for _, s := range sales {
		kpi.Orders += s.Qty
		kpi.Revenue += s.Revenue
	}
	for _, f := range fees {
		kpi.Fees += f.Amount
	}
	for _, a := range adStats {
		kpi.AdsSpend += a.Spend
		kpi.AdsRevenue += a.Revenue
	}
	for _, p := range products {
		kpi.Stock += p.Stock
	}
	kpi.Profit = kpi.Revenue - kpi.Fees - kpi.AdsSpend
	kpi.ROAS = round2(safeDiv(kpi.AdsRevenue, kpi.AdsSpend))
	kpi.Margin = round2(safeDiv(kpi.Profit, kpi.Revenue))
	return kpi
}

// ComputePnL builds a profit-and-loss report grouped by sku, category or
// marketplace. Advertising combines ADVERTISING fees with ad spend; every
// other fee type lands in Fees (storage and logistics additionally broken
// out). Rows come back sorted by profit descending, ties in first-seen order.
func ComputePnL(
	groupBy PnLGroupBy,
	sales []models.Sale,
	fees []models.Fee,
	adStats []models.AdStat,
	products []models.Product,
	marketplaces map[uuid.UUID]models.MarketplaceType,
) []PnLRow {
	productIndex := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		productIndex[products[i].ID] = &products[i]
	}

	groupKey := func(productID, integrationID uuid.UUID) string {
		switch groupBy {
		case PnLByCategory:
			if p, ok := productIndex[productID]; ok && p.Category != nil && *p.Category != "" {
				return *p.Category
			}
			return "uncategorized"
		case PnLByMarketplace:
			return string(marketplaces[integrationID])
		default:
			if p, ok := productIndex[productID]; ok {
				return p.SKU
			}
			return ""
		}
	}

	groups := make(map[string]*PnLRow)
	var order []string
	row := func(key string) *PnLRow {
		if g, ok := groups[key]; ok {
			return g
		}
		g := &PnLRow{Group: key}
		groups[key] = g
		order = append(order, key)
		return g
	}

	for _, s := range sales {
		g := row(groupKey(s.ProductID, s.IntegrationID))
		g.Revenue += s.Revenue
		g.Refunds += s.RefundAmount
		if p, ok := productIndex[s.ProductID]; ok {
			g.COGS += float64(s.Qty) * p.CostPrice
		}
	}
	for _, f := range fees {
		g := row(groupKey(f.ProductID, f.IntegrationID))
		switch f.Type {
		case models.FeeAdvertising:
			g.Advertising += f.Amount
		case models.FeeStorage:
			g.Storage += f.Amount
			g.Fees += f.Amount
		case models.FeeLogistics:
			g.Logistics += f.Amount
			g.Fees += f.Amount
		default:
			g.Fees += f.Amount
		}
	}
	for _, a := range adStats {
		g := row(groupKey(a.ProductID, a.IntegrationID))
		g.Advertising += a.Spend
	}

	rows := make([]PnLRow, 0, len(order))
	for _, key := range order {
		g := groups[key]
		g.Profit = g.Revenue - g.COGS - g.Fees - g.Advertising - g.Refunds
		g.Margin = round2(safeDiv(g.Profit, g.Revenue))
		rows = append(rows, *g)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Profit > rows[j].Profit })
	return rows
}

// ComputeDeadStock reports every in-stock product by staleness, most stale
// first. A product with no sale ever gets the sentinel 999.
func ComputeDeadStock(
	products []models.Product,
	lastSales map[uuid.UUID]time.Time,
	latest map[uuid.UUID]models.ProductAnalytics,
	now time.Time,
	thresholdDays int,
) []DeadStockItem {
	items := make([]DeadStockItem, 0, len(products))
	for _, p := range products {
		if p.Stock <= 0 {
			continue
		}
		days := noSaleSentinel
		if last, ok := lastSales[p.ID]; ok {
			days = int(now.Sub(last).Hours() / 24)
			if days < 0 {
				days = 0
			}
		}
		var sellThrough float64
		if pa, ok := latest[p.ID]; ok {
			sellThrough = pa.SellThrough
		}
		items = append(items, DeadStockItem{
			ProductID:         p.ID,
			SKU:               p.SKU,
			Title:             p.Title,
			Stock:             p.Stock,
			DaysSinceLastSale: days,
			IsDeadStock:       days > thresholdDays,
			SellThrough:       sellThrough,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DaysSinceLastSale > items[j].DaysSinceLastSale
	})
	return items
}

// ComputeHiddenLosses partitions each product's fees into the four
// margin-eroding buckets. Commission and advertising are excluded: they are
// visible costs, not hidden ones. Products with fees but no in-window sales
// still appear, with zero profit impact.
func ComputeHiddenLosses(fees []models.Fee, sales []models.Sale, products []models.Product) []HiddenLossItem {
	productIndex := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		productIndex[products[i].ID] = &products[i]
	}

	revenue := make(map[uuid.UUID]float64)
	for _, s := range sales {
		revenue[s.ProductID] += s.Revenue
	}

	byProduct := make(map[uuid.UUID]*HiddenLossItem)
	var order []uuid.UUID
	for _, f := range fees {
		item, ok := byProduct[f.ProductID]
		if !ok {
			item = &HiddenLossItem{ProductID: f.ProductID}
			if p, found := productIndex[f.ProductID]; found {
				item.SKU = p.SKU
				item.Title = p.Title
			}
			byProduct[f.ProductID] = item
			order = append(order, f.ProductID)
		}
		switch f.Type {
		case models.FeeStorage:
			item.Storage += f.Amount
		case models.FeePenalty:
			item.Penalties += f.Amount
		case models.FeeLogistics:
			item.Logistics += f.Amount
		case models.FeeCommission, models.FeeAdvertising:
			// visible costs, not part of the hidden-loss total
		default:
			item.Other += f.Amount
		}
	}

	items := make([]HiddenLossItem, 0, len(order))
	for _, id := range order {
		item := byProduct[id]
		item.TotalHiddenLoss = item.Storage + item.Penalties + item.Logistics + item.Other
		item.Revenue = revenue[id]
		item.ProfitImpact = round2(safeDiv(item.TotalHiddenLoss, item.Revenue))
		items = append(items, *item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].TotalHiddenLoss > items[j].TotalHiddenLoss
	})
	return items
}

// ComputeAdPerformance reports per-product advertising efficiency, best ROAS
// first
func ComputeAdPerformance(adStats []models.AdStat, products []models.Product) []AdPerformanceRow {
	productIndex := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		productIndex[products[i].ID] = &products[i]
	}

	byProduct := make(map[uuid.UUID]*AdPerformanceRow)
	var order []uuid.UUID
	for _, a := range adStats {
		row, ok := byProduct[a.ProductID]
		if !ok {
			row = &AdPerformanceRow{ProductID: a.ProductID}
			if p, found := productIndex[a.ProductID]; found {
				row.SKU = p.SKU
				row.Title = p.Title
			}
			byProduct[a.ProductID] = row
			order = append(order, a.ProductID)
		}
		row.Impressions += a.Impressions
		row.Clicks += a.Clicks
		row.Orders += a.Orders
		row.Spend += a.Spend
		row.Revenue += a.Revenue
	}

	rows := make([]AdPerformanceRow, 0, len(order))
	for _, id := range order {
		row := byProduct[id]
		row.ROAS = round2(safeDiv(row.Revenue, row.Spend))
		row.CPA = round2(safeDiv(row.Spend, float64(row.Orders)))
		row.CTR = round2(safeDiv(float64(row.Clicks), float64(row.Impressions)))
		rows = append(rows, *row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ROAS > rows[j].ROAS })
	return rows
}

// ComputeSeoSummary averages each product's ranking snapshots. Per-query
// positions fold in via an incremental running mean; top queries come back
// best ranking first, capped at 10. The overall list is sorted by average
// position ascending.
func ComputeSeoSummary(snapshots []models.SeoSnapshot, products []models.Product) []SeoProductSummary {
	productIndex := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		productIndex[products[i].ID] = &products[i]
	}

	type queryAcc struct {
		avgPosition float64
		count       int
	}
	type productAcc struct {
		sumPosition   float64
		sumConversion float64
		sumCTR        float64
		count         int
		queries       map[string]*queryAcc
		queryOrder    []string
	}

	byProduct := make(map[uuid.UUID]*productAcc)
	var order []uuid.UUID
	for _, s := range snapshots {
		acc, ok := byProduct[s.ProductID]
		if !ok {
			acc = &productAcc{queries: make(map[string]*queryAcc)}
			byProduct[s.ProductID] = acc
			order = append(order, s.ProductID)
		}

		var position float64
		if s.Position != nil {
			position = float64(*s.Position)
		}
		acc.sumPosition += position
		if s.Conversion != nil {
			acc.sumConversion += *s.Conversion
		}
		if s.CTR != nil {
			acc.sumCTR += *s.CTR
		}
		acc.count++

		q, ok := acc.queries[s.Query]
		if !ok {
			q = &queryAcc{}
			acc.queries[s.Query] = q
			acc.queryOrder = append(acc.queryOrder, s.Query)
		}
		q.avgPosition = (q.avgPosition*float64(q.count) + position) / float64(q.count+1)
		q.count++
	}

	summaries := make([]SeoProductSummary, 0, len(order))
	for _, id := range order {
		acc := byProduct[id]
		summary := SeoProductSummary{
			ProductID:     id,
			AvgPosition:   round2(safeDiv(acc.sumPosition, float64(acc.count))),
			AvgConversion: round2(safeDiv(acc.sumConversion, float64(acc.count))),
			AvgCTR:        round2(safeDiv(acc.sumCTR, float64(acc.count))),
			TotalQueries:  len(acc.queries),
		}
		if p, ok := productIndex[id]; ok {
			summary.SKU = p.SKU
			summary.Title = p.Title
		}

		top := make([]SeoQueryStat, 0, len(acc.queryOrder))
		for _, query := range acc.queryOrder {
			q := acc.queries[query]
			top = append(top, SeoQueryStat{
				Query:       query,
				AvgPosition: round2(q.avgPosition),
				Snapshots:   q.count,
			})
		}
		sort.SliceStable(top, func(i, j int) bool { return top[i].AvgPosition < top[j].AvgPosition })
		if len(top) > 10 {
			top = top[:10]
		}
		summary.TopQueries = top

		summaries = append(summaries, summary)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].AvgPosition < summaries[j].AvgPosition
	})
	return summaries
}
