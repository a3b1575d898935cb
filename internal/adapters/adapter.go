package adapters

import (
	"context"
	"time"

	"seller-analytics-service/internal/models"
)

// MarketplaceAdapter is the capability every marketplace integration must
// implement. Adapters return records already translated into the normalized
// schema; SKU linkage to stored products is the orchestrator's job.
type MarketplaceAdapter interface {
	// Type returns the marketplace type
	Type() models.MarketplaceType

	// GetProducts returns the current catalog snapshot
	GetProducts(ctx context.Context) ([]models.Product, error)

	// Time-series fetches, from/to inclusive
	GetSales(ctx context.Context, from, to time.Time) ([]models.Sale, error)
	GetFees(ctx context.Context, from, to time.Time) ([]models.Fee, error)
	GetAdsStats(ctx context.Context, from, to time.Time) ([]models.AdStat, error)
	GetSeoSnapshots(ctx context.Context, from, to time.Time) ([]models.SeoSnapshot, error)

	// GetAlerts returns marketplace-native alerts (platform-reported issues)
	GetAlerts(ctx context.Context) ([]models.Alert, error)

	// ValidateToken is a side-effect-free credential check. It never returns
	// an error: any failure reads as false.
	ValidateToken(ctx context.Context) bool
}

// AdapterFetchError is returned when talking to a marketplace fails
// (transport, auth, timeout). One fetch error is fatal to that integration's
// sync pass but not to others.
type AdapterFetchError struct {
	Marketplace models.MarketplaceType
	Op          string
	Err         error
}

func (e *AdapterFetchError) Error() string {
	return "adapter fetch failed: " + string(e.Marketplace) + " " + e.Op + ": " + e.Err.Error()
}

func (e *AdapterFetchError) Unwrap() error {
	return e.Err
}

// UnsupportedMarketplaceError is returned when a marketplace type is not supported
type UnsupportedMarketplaceError struct {
	MarketplaceType string
}

func (e *UnsupportedMarketplaceError) Error() string {
	return "unsupported marketplace: " + e.MarketplaceType
}
