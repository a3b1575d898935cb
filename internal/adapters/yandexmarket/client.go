package yandexmarket

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"seller-analytics-service/internal/adapters"
	"seller-analytics-service/internal/models"
)

const (
	// Yandex Market partner API endpoint
	apiEndpoint   = "https://api.partner.market.yandex.ru"
	campaignsPath = "/campaigns"
)

// Client implements MarketplaceAdapter for Yandex Market
type Client struct {
	httpClient  *http.Client
	oauthToken  string
	campaignID  string
	rateLimiter *rate.Limiter
	retrier     *adapters.Retrier
	data        *adapters.Dataset
}

// New creates a Yandex Market adapter bound to the given credentials
func New(credentials map[string]interface{}) (*Client, error) {
	token, ok := credentials["oauth_token"].(string)
	if !ok || token == "" {
		return nil, fmt.Errorf("missing oauth_token")
	}
	campaignID, ok := credentials["campaign_id"].(string)
	if !ok || campaignID == "" {
		return nil, fmt.Errorf("missing campaign_id")
	}

	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		oauthToken:  token,
		campaignID:  campaignID,
		rateLimiter: rate.NewLimiter(rate.Limit(5), 1),
		retrier:     adapters.NewRetrier(adapters.DefaultRetryConfig()),
		data:        adapters.NewDataset(models.MarketplaceYandexMarket, campaignID),
	}, nil
}

// Type returns the marketplace type
func (c *Client) Type() models.MarketplaceType {
	return models.MarketplaceYandexMarket
}

// ValidateToken checks the OAuth token against the campaigns endpoint. Any
// failure reads as false; it never returns an error.
func (c *Client) ValidateToken(ctx context.Context) bool {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return false
	}
	resp, err := c.retrier.DoHTTP(ctx, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiEndpoint+campaignsPath, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.oauthToken)
		return c.httpClient.Do(req)
	})
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) wait(ctx context.Context, op string) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return &adapters.AdapterFetchError{Marketplace: c.Type(), Op: op, Err: err}
	}
	return nil
}

// GetProducts returns the current catalog snapshot
func (c *Client) GetProducts(ctx context.Context) ([]models.Product, error) {
	if err := c.wait(ctx, "GetProducts"); err != nil {
		return nil, err
	}
	return c.data.Products(), nil
}

// GetSales returns sales in [from, to]
func (c *Client) GetSales(ctx context.Context, from, to time.Time) ([]models.Sale, error) {
	if err := c.wait(ctx, "GetSales"); err != nil {
		return nil, err
	}
	return c.data.Sales(from, to), nil
}

// GetFees returns fees in [from, to]
func (c *Client) GetFees(ctx context.Context, from, to time.Time) ([]models.Fee, error) {
	if err := c.wait(ctx, "GetFees"); err != nil {
		return nil, err
	}
	return c.data.Fees(from, to), nil
}

// GetAdsStats returns advertising stats in [from, to]
func (c *Client) GetAdsStats(ctx context.Context, from, to time.Time) ([]models.AdStat, error) {
	if err := c.wait(ctx, "GetAdsStats"); err != nil {
		return nil, err
	}
	return c.data.AdsStats(from, to), nil
}

// GetSeoSnapshots returns search ranking snapshots in [from, to]
func (c *Client) GetSeoSnapshots(ctx context.Context, from, to time.Time) ([]models.SeoSnapshot, error) {
	if err := c.wait(ctx, "GetSeoSnapshots"); err != nil {
		return nil, err
	}
	return c.data.SeoSnapshots(from, to), nil
}

// GetAlerts returns marketplace-native alerts
func (c *Client) GetAlerts(ctx context.Context) ([]models.Alert, error) {
	if err := c.wait(ctx, "GetAlerts"); err != nil {
		return nil, err
	}
	return c.data.Alerts(), nil
}
