package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"seller-analytics-service/internal/models"
	"seller-analytics-service/internal/services"
)

// AnalyticsHandler serves the aggregation reports
type AnalyticsHandler struct {
	service *services.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(service *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// parseDateRange reads the from/to query parameters (YYYY-MM-DD, inclusive),
// defaulting to the trailing 30 days
func parseDateRange(c *gin.Context) (time.Time, time.Time, error) {
	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -30)

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date: %s", v)
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date: %s", v)
		}
		to = parsed
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("to date precedes from date")
	}
	return from, to, nil
}

// parseMarketplace reads the optional marketplace query parameter
func parseMarketplace(c *gin.Context) (*models.MarketplaceType, error) {
	v := c.Query("marketplace")
	if v == "" {
		return nil, nil
	}
	mp := models.MarketplaceType(v)
	switch mp {
	case models.MarketplaceWildberries, models.MarketplaceOzon, models.MarketplaceYandexMarket:
		return &mp, nil
	default:
		return nil, fmt.Errorf("unknown marketplace: %s", v)
	}
}

// GetKPI returns the headline metrics
func (h *AnalyticsHandler) GetKPI(c *gin.Context) {
	userID := c.GetString("userId")
	from, to, err := parseDateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	marketplace, err := parseMarketplace(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kpi, err := h.service.GetKPI(c.Request.Context(), userID, from, to, marketplace)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": kpi})
}

// GetPnL returns the profit-and-loss report
func (h *AnalyticsHandler) GetPnL(c *gin.Context) {
	userID := c.GetString("userId")
	from, to, err := parseDateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	marketplace, err := parseMarketplace(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := h.service.GetPnL(c.Request.Context(), userID, from, to, marketplace, services.PnLGroupBy(c.Query("groupBy")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "total": len(rows)})
}

// GetDeadStock returns the dead-stock report
func (h *AnalyticsHandler) GetDeadStock(c *gin.Context) {
	userID := c.GetString("userId")
	marketplace, err := parseMarketplace(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, err := h.service.GetDeadStock(c.Request.Context(), userID, marketplace)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "total": len(items)})
}

// GetHiddenLosses returns the hidden-loss report
func (h *AnalyticsHandler) GetHiddenLosses(c *gin.Context) {
	userID := c.GetString("userId")
	from, to, err := parseDateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	marketplace, err := parseMarketplace(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, err := h.service.GetHiddenLosses(c.Request.Context(), userID, from, to, marketplace)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "total": len(items)})
}

// GetAdPerformance returns the advertising report
func (h *AnalyticsHandler) GetAdPerformance(c *gin.Context) {
	userID := c.GetString("userId")
	from, to, err := parseDateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	marketplace, err := parseMarketplace(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := h.service.GetAdPerformance(c.Request.Context(), userID, from, to, marketplace)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "total": len(rows)})
}

// GetSeoSummary returns the search-ranking report
func (h *AnalyticsHandler) GetSeoSummary(c *gin.Context) {
	userID := c.GetString("userId")
	from, to, err := parseDateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	marketplace, err := parseMarketplace(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summaries, err := h.service.GetSeoSummary(c.Request.Context(), userID, from, to, marketplace)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summaries, "total": len(summaries)})
}
