package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shelflife-service/internal/middleware"
	"shelflife-service/internal/services"
)

// SyncHandler handles catalog reconciliation HTTP requests
type SyncHandler struct {
	syncService *services.SyncService
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(syncService *services.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// Sync runs a reconciliation pass for the shop
func (h *SyncHandler) Sync(c *gin.Context) {
	shop := middleware.GetShop(c)

	result, err := h.syncService.Sync(c.Request.Context(), shop)
	if errors.Is(err, services.ErrPassInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		// A page failure still carries the partial result
		if result != nil {
			c.JSON(http.StatusBadGateway, result)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
