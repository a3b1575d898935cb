package services

import (
	"seller-analytics-service/internal/adapters"
	"seller-analytics-service/internal/adapters/ozon"
	"seller-analytics-service/internal/adapters/wildberries"
	"seller-analytics-service/internal/adapters/yandexmarket"
	"seller-analytics-service/internal/models"
)

// NewAdapter constructs the marketplace adapter matching the given type,
// bound to the supplied credentials. The switch is the single place a new
// marketplace gets registered.
func NewAdapter(marketplace models.MarketplaceType, credentials map[string]interface{}) (adapters.MarketplaceAdapter, error) {
	switch marketplace {
	case models.MarketplaceWildberries:
		return wildberries.New(credentials)
	case models.MarketplaceOzon:
		return ozon.New(credentials)
	case models.MarketplaceYandexMarket:
		return yandexmarket.New(credentials)
	default:
		return nil, &adapters.UnsupportedMarketplaceError{MarketplaceType: string(marketplace)}
	}
}
