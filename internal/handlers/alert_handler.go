package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"seller-analytics-service/internal/repository"
	"seller-analytics-service/internal/services"
)

// AlertHandler handles alert endpoints
type AlertHandler struct {
	alertRepo    repository.AlertRepositoryInterface
	alertService *services.AlertService
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(alertRepo repository.AlertRepositoryInterface, alertService *services.AlertService) *AlertHandler {
	return &AlertHandler{
		alertRepo:    alertRepo,
		alertService: alertService,
	}
}

// List returns the caller's alerts with pagination and filtering
func (h *AlertHandler) List(c *gin.Context) {
	opts := repository.AlertListOptions{
		UserID: c.GetString("userId"),
		Type:   c.Query("type"),
		Limit:  50,
	}

	if v := c.Query("integrationId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid integration id"})
			return
		}
		opts.IntegrationID = &id
	}
	if v := c.Query("resolved"); v != "" {
		resolved, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid resolved filter"})
			return
		}
		opts.Resolved = &resolved
	}
	if v := c.Query("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			opts.Limit = limit
		}
	}
	if v := c.Query("offset"); v != "" {
		if offset, err := strconv.Atoi(v); err == nil && offset > 0 {
			opts.Offset = offset
		}
	}

	alerts, total, err := h.alertRepo.List(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": alerts, "total": total})
}

// Resolve marks one alert resolved
func (h *AlertHandler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	if _, err := h.alertRepo.GetByID(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	if err := h.alertRepo.Resolve(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}

// Generate runs the alert rules for the caller's active integrations
func (h *AlertHandler) Generate(c *gin.Context) {
	userID := c.GetString("userId")

	created, err := h.alertService.GenerateForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "created": created})
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}
