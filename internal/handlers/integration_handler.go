package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"seller-analytics-service/internal/adapters"
	"seller-analytics-service/internal/services"
)

// IntegrationHandler handles integration lifecycle endpoints
type IntegrationHandler struct {
	service *services.IntegrationService
}

// NewIntegrationHandler creates a new integration handler
func NewIntegrationHandler(service *services.IntegrationService) *IntegrationHandler {
	return &IntegrationHandler{service: service}
}

func integrationErrorStatus(err error) int {
	var unsupported *adapters.UnsupportedMarketplaceError
	switch {
	case errors.As(err, &unsupported):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotOwned), services.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Create registers a new integration
func (h *IntegrationHandler) Create(c *gin.Context) {
	userID := c.GetString("userId")

	var req services.CreateIntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	integration, err := h.service.Create(c.Request.Context(), userID, &req)
	if err != nil {
		c.JSON(integrationErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": integration})
}

// List returns the caller's integrations
func (h *IntegrationHandler) List(c *gin.Context) {
	userID := c.GetString("userId")

	integrations, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": integrations, "total": len(integrations)})
}

// Get returns one integration
func (h *IntegrationHandler) Get(c *gin.Context) {
	userID := c.GetString("userId")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid integration id"})
		return
	}

	integration, err := h.service.Get(c.Request.Context(), userID, id)
	if err != nil {
		c.JSON(integrationErrorStatus(err), gin.H{"error": "integration not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": integration})
}

// Update modifies one integration
func (h *IntegrationHandler) Update(c *gin.Context) {
	userID := c.GetString("userId")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid integration id"})
		return
	}

	var req services.UpdateIntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	integration, err := h.service.Update(c.Request.Context(), userID, id, &req)
	if err != nil {
		c.JSON(integrationErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": integration})
}

// Delete removes one integration
func (h *IntegrationHandler) Delete(c *gin.Context) {
	userID := c.GetString("userId")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid integration id"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		c.JSON(integrationErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Test runs a live connection check
func (h *IntegrationHandler) Test(c *gin.Context) {
	userID := c.GetString("userId")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid integration id"})
		return
	}

	ok, err := h.service.TestConnection(c.Request.Context(), userID, id)
	if err != nil {
		c.JSON(integrationErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": ok})
}
