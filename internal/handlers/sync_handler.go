package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"seller-analytics-service/internal/services"
)

// SyncHandler handles sync trigger endpoints
type SyncHandler struct {
	syncService        *services.SyncService
	integrationService *services.IntegrationService
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(syncService *services.SyncService, integrationService *services.IntegrationService) *SyncHandler {
	return &SyncHandler{
		syncService:        syncService,
		integrationService: integrationService,
	}
}

// triggerSyncRequest optionally narrows the sync to one integration
type triggerSyncRequest struct {
	IntegrationID *uuid.UUID `json:"integrationId"`
}

// syncResultResponse is SyncResult with the error flattened to a string
type syncResultResponse struct {
	services.SyncResult
	Error string `json:"error,omitempty"`
}

func toResponse(result services.SyncResult) syncResultResponse {
	resp := syncResultResponse{SyncResult: result}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	return resp
}

// TriggerSync runs a sync pass for one integration or for all of the caller's
// integrations
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	userID := c.GetString("userId")

	var req triggerSyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if req.IntegrationID != nil {
		if _, err := h.integrationService.Get(c.Request.Context(), userID, *req.IntegrationID); err != nil {
			status := http.StatusInternalServerError
			if services.IsNotFound(err) || errors.Is(err, services.ErrNotOwned) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": "integration not found"})
			return
		}

		result := h.syncService.SyncIntegration(c.Request.Context(), *req.IntegrationID)
		if result.Err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"data": toResponse(result)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": toResponse(result)})
		return
	}

	results, err := h.syncService.SyncAllIntegrations(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	responses := make([]syncResultResponse, 0, len(results))
	for _, result := range results {
		responses = append(responses, toResponse(result))
	}
	c.JSON(http.StatusOK, gin.H{"data": responses, "total": len(responses)})
}
