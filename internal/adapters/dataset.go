package adapters

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"seller-analytics-service/internal/models"
)

// Dataset produces deterministic sandbox data for one seller account. Until a
// marketplace grants API access for an integration, its adapter serves records
// from here; the same account always yields the same catalog and time series,
// so repeated syncs are reproducible end to end. ExternalIDs are stable, which
// lets the store dedup overlapping sync windows.
type Dataset struct {
	marketplace models.MarketplaceType
	accountID   string
	seed        int64
}

// NewDataset creates a dataset bound to one marketplace account
func NewDataset(marketplace models.MarketplaceType, accountID string) *Dataset {
	h := fnv.New64a()
	h.Write([]byte(string(marketplace)))
	h.Write([]byte(accountID))
	return &Dataset{
		marketplace: marketplace,
		accountID:   accountID,
		seed:        int64(h.Sum64()),
	}
}

type catalogItem struct {
	sku       string
	title     string
	category  string
	costPrice float64
	price     float64
	// velocity is average units per day; 0 means the item never sells
	velocity float64
	// advertised items carry campaigns and ad spend
	campaigns []string
	queries   []string
}

var skuPrefix = map[models.MarketplaceType]string{
	models.MarketplaceWildberries:  "WB",
	models.MarketplaceOzon:         "OZ",
	models.MarketplaceYandexMarket: "YM",
}

// baseCatalog is the sandbox assortment. Velocities and price points are
// spread so every derived metric has populated and degenerate cases: items
// that never sell, items with ads but no orders, items with partial SEO data.
var baseCatalog = []catalogItem{
	{sku: "NB-ASUS-VB15", title: "Ноутбук ASUS VivoBook 15", category: "Ноутбуки", costPrice: 38500, price: 54990, velocity: 1.4,
		campaigns: []string{"ASUS VivoBook 15", "Ноутбуки ASUS"},
		queries:   []string{"ноутбук asus", "vivobook 15", "ноутбук для работы"}},
	{sku: "NB-LEN-IP3", title: "Ноутбук Lenovo IdeaPad 3", category: "Ноутбуки", costPrice: 29900, price: 42990, velocity: 0.9,
		campaigns: []string{"Lenovo IdeaPad распродажа"},
		queries:   []string{"ноутбук lenovo", "ideapad 3"}},
	{sku: "PH-SAM-A54", title: "Смартфон Samsung Galaxy A54", category: "Смартфоны", costPrice: 24100, price: 32990, velocity: 2.6,
		campaigns: []string{"Samsung Galaxy A54"},
		queries:   []string{"samsung a54", "смартфон samsung"}},
	{sku: "HP-APL-APP2", title: "Наушники Apple AirPods Pro 2", category: "Наушники", costPrice: 15800, price: 21990, velocity: 1.8,
		campaigns: []string{"AirPods Pro"},
		queries:   []string{"airpods pro", "наушники apple"}},
	{sku: "HP-SONY-WH5", title: "Наушники Sony WH-1000XM5", category: "Наушники", costPrice: 19400, price: 27990, velocity: 0.6,
		queries: []string{"sony wh-1000xm5", "наушники sony"}},
	{sku: "TV-LG-55UQ", title: "Телевизор LG 55UQ81006", category: "Телевизоры", costPrice: 31200, price: 44990, velocity: 0.3,
		queries: []string{"телевизор lg 55"}},
	{sku: "KT-POL-1kw", title: "Чайник Polaris PWK 1kW", category: "Бытовая техника", costPrice: 980, price: 1790, velocity: 3.2,
		queries: []string{"чайник электрический"}},
	{sku: "VC-DYS-V11", title: "Пылесос Dyson V11", category: "Бытовая техника", costPrice: 28700, price: 39990, velocity: 0.4,
		campaigns: []string{"Dyson уборка"},
		queries:   []string{"пылесос dyson", "беспроводной пылесос"}},
	// Slow and dead inventory
	{sku: "MN-AOC-24G2", title: "Монитор AOC 24G2U", category: "Мониторы", costPrice: 10900, price: 15990, velocity: 0.08,
		queries: []string{"монитор 144гц"}},
	{sku: "PR-CAN-G3420", title: "МФУ Canon PIXMA G3420", category: "Оргтехника", costPrice: 13600, price: 18990, velocity: 0},
	{sku: "WT-CAS-GS100", title: "Часы Casio G-Shock GA-100", category: "Часы", costPrice: 5400, price: 8990, velocity: 0},
	{sku: "SP-JBL-FLIP6", title: "Колонка JBL Flip 6", category: "Акустика", costPrice: 6300, price: 9490, velocity: 1.1,
		campaigns: []string{"JBL Flip 6", "Колонки JBL"},
		queries:   []string{"jbl flip 6", "портативная колонка"}},
}

// rng returns a rand source deterministic in the account seed plus the given
// discriminators, so any record can be regenerated independently.
func (d *Dataset) rng(parts ...string) *rand.Rand {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return rand.New(rand.NewSource(d.seed ^ int64(h.Sum64())))
}

func (d *Dataset) sku(item catalogItem) string {
	return skuPrefix[d.marketplace] + "-" + item.sku
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Products returns the current catalog snapshot
func (d *Dataset) Products() []models.Product {
	products := make([]models.Product, 0, len(baseCatalog))
	for _, item := range baseCatalog {
		r := d.rng("product", item.sku)
		category := item.category
		stock := r.Intn(120)
		if item.velocity == 0 && stock == 0 {
			stock = 5 + r.Intn(40) // dead stock stays on hand
		}
		weight := 0.2 + r.Float64()*9
		length := 10 + r.Float64()*60
		width := 10 + r.Float64()*40
		height := 2 + r.Float64()*30
		products = append(products, models.Product{
			SKU:       d.sku(item),
			Title:     item.title,
			Category:  &category,
			CostPrice: item.costPrice,
			Price:     item.price,
			Stock:     stock,
			Weight:    &weight,
			Length:    &length,
			Width:     &width,
			Height:    &height,
		})
	}
	return products
}

// Sales returns sale events with dates in [from, to]
func (d *Dataset) Sales(from, to time.Time) []models.Sale {
	var sales []models.Sale
	for _, item := range baseCatalog {
		if item.velocity == 0 {
			continue
		}
		for day := from.UTC().Truncate(24 * time.Hour); !day.After(to); day = day.AddDate(0, 0, 1) {
			r := d.rng("sale", item.sku, dayKey(day))
			qty := poisson(r, item.velocity)
			if qty == 0 {
				continue
			}
			refundQty := 0
			refundAmount := 0.0
			if r.Float64() < 0.06 {
				refundQty = 1
				if refundQty > qty {
					refundQty = qty
				}
				refundAmount = item.price * float64(refundQty)
			}
			sales = append(sales, models.Sale{
				SKU:          d.sku(item),
				Date:         day,
				Qty:          qty,
				Revenue:      item.price * float64(qty),
				RefundQty:    refundQty,
				RefundAmount: refundAmount,
				ExternalID:   fmt.Sprintf("sale-%s-%s", d.sku(item), dayKey(day)),
			})
		}
	}
	return sales
}

// Fees returns marketplace charges with dates in [from, to]
func (d *Dataset) Fees(from, to time.Time) []models.Fee {
	var fees []models.Fee
	for _, item := range baseCatalog {
		for day := from.UTC().Truncate(24 * time.Hour); !day.After(to); day = day.AddDate(0, 0, 1) {
			r := d.rng("fee", item.sku, dayKey(day))

			// Commission and logistics track sales volume
			qty := 0
			if item.velocity > 0 {
				qty = poisson(d.rng("sale", item.sku, dayKey(day)), item.velocity)
			}
			if qty > 0 {
				fees = append(fees,
					models.Fee{
						SKU:        d.sku(item),
						Date:       day,
						Type:       models.FeeCommission,
						Amount:     round2(item.price * float64(qty) * (0.05 + r.Float64()*0.15)),
						ExternalID: fmt.Sprintf("fee-comm-%s-%s", d.sku(item), dayKey(day)),
					},
					models.Fee{
						SKU:        d.sku(item),
						Date:       day,
						Type:       models.FeeLogistics,
						Amount:     round2(float64(qty) * (40 + r.Float64()*120)),
						ExternalID: fmt.Sprintf("fee-log-%s-%s", d.sku(item), dayKey(day)),
					},
				)
			}

			// Storage accrues daily on anything in the warehouse
			fees = append(fees, models.Fee{
				SKU:        d.sku(item),
				Date:       day,
				Type:       models.FeeStorage,
				Amount:     round2(1 + r.Float64()*22),
				ExternalID: fmt.Sprintf("fee-stor-%s-%s", d.sku(item), dayKey(day)),
			})

			if r.Float64() < 0.02 {
				fees = append(fees, models.Fee{
					SKU:        d.sku(item),
					Date:       day,
					Type:       models.FeePenalty,
					Amount:     round2(100 + r.Float64()*900),
					Meta:       models.JSONB{"reason": "late shipment"},
					ExternalID: fmt.Sprintf("fee-pen-%s-%s", d.sku(item), dayKey(day)),
				})
			}
		}
	}
	return fees
}

// AdsStats returns daily campaign performance with dates in [from, to]
func (d *Dataset) AdsStats(from, to time.Time) []models.AdStat {
	var stats []models.AdStat
	for _, item := range baseCatalog {
		for _, campaign := range item.campaigns {
			for day := from.UTC().Truncate(24 * time.Hour); !day.After(to); day = day.AddDate(0, 0, 1) {
				r := d.rng("ads", item.sku, campaign, dayKey(day))
				impressions := 400 + r.Intn(8000)
				clicks := int(float64(impressions) * (0.005 + r.Float64()*0.05))
				orders := int(float64(clicks) * r.Float64() * 0.2)
				c := campaign
				stats = append(stats, models.AdStat{
					SKU:         d.sku(item),
					Date:        day,
					Platform:    string(d.marketplace),
					Campaign:    &c,
					Impressions: impressions,
					Clicks:      clicks,
					Spend:       round2(float64(clicks) * (4 + r.Float64()*30)),
					Orders:      orders,
					Revenue:     round2(item.price * float64(orders)),
					ExternalID:  fmt.Sprintf("ads-%s-%s-%s", d.sku(item), campaign, dayKey(day)),
				})
			}
		}
	}
	return stats
}

// SeoSnapshots returns ranking observations with dates in [from, to]
func (d *Dataset) SeoSnapshots(from, to time.Time) []models.SeoSnapshot {
	var snapshots []models.SeoSnapshot
	for _, item := range baseCatalog {
		for _, query := range item.queries {
			for day := from.UTC().Truncate(24 * time.Hour); !day.After(to); day = day.AddDate(0, 0, 1) {
				r := d.rng("seo", item.sku, query, dayKey(day))
				snapshot := models.SeoSnapshot{
					SKU:        d.sku(item),
					Date:       day,
					Query:      query,
					ExternalID: fmt.Sprintf("seo-%s-%s-%s", d.sku(item), query, dayKey(day)),
				}
				// Rank trackers miss fields on some days; those stay nil
				if r.Float64() < 0.9 {
					pos := 1 + r.Intn(120)
					snapshot.Position = &pos
				}
				if r.Float64() < 0.7 {
					conv := r.Float64() * 0.2
					snapshot.Conversion = &conv
				}
				if r.Float64() < 0.7 {
					ctr := r.Float64() * 0.3
					snapshot.CTR = &ctr
				}
				snapshots = append(snapshots, snapshot)
			}
		}
	}
	return snapshots
}

// Alerts returns platform-reported issues for the account
func (d *Dataset) Alerts() []models.Alert {
	var alerts []models.Alert
	now := time.Now().UTC().Truncate(24 * time.Hour)
	for _, item := range baseCatalog {
		r := d.rng("alert", item.sku, dayKey(now))
		if r.Float64() < 0.08 {
			alerts = append(alerts, models.Alert{
				SKU:      d.sku(item),
				Type:     models.AlertMarketplace,
				Severity: models.SeverityMedium,
				Message:  fmt.Sprintf("Маркетплейс сообщил о проблеме с карточкой %s", item.title),
				Date:     now,
				Meta:     models.JSONB{"source": string(d.marketplace)},
			})
		}
	}
	return alerts
}

// poisson draws a Poisson-distributed count via Knuth's method; lambda here
// is small so the loop stays short.
func poisson(r *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	threshold := math.Exp(-lambda)
	l := 1.0
	for i := 0; i < 50; i++ {
		l *= r.Float64()
		if l < threshold {
			return i
		}
	}
	return 0
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
