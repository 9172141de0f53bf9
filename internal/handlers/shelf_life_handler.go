package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"shelflife-service/internal/middleware"
	"shelflife-service/internal/models"
	"shelflife-service/internal/repository"
)

// ShelfLifeHandler handles shelf-life item HTTP requests
type ShelfLifeHandler struct {
	itemRepo   repository.ShelfLifeRepository
	ledgerRepo repository.PriceChangeRepository
}

// NewShelfLifeHandler creates a new shelf-life handler
func NewShelfLifeHandler(itemRepo repository.ShelfLifeRepository, ledgerRepo repository.PriceChangeRepository) *ShelfLifeHandler {
	return &ShelfLifeHandler{itemRepo: itemRepo, ledgerRepo: ledgerRepo}
}

// List retrieves shelf-life items with optional filters
func (h *ShelfLifeHandler) List(c *gin.Context) {
	shop := middleware.GetShop(c)

	opts := parseListOptions(c)
	filter := repository.ShelfLifeFilter{
		SyncStatus: models.SyncStatus(c.Query("syncStatus")),
	}
	if days, err := strconv.Atoi(c.Query("expiringInDays")); err == nil && days > 0 {
		filter.ExpiringInDays = days
	}

	items, total, err := h.itemRepo.List(c.Request.Context(), shop, filter, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   items,
		"total":  total,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

// Get retrieves one shelf-life item by ID
func (h *ShelfLifeHandler) Get(c *gin.Context) {
	shop := middleware.GetShop(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ID"})
		return
	}

	item, err := h.itemRepo.GetByID(c.Request.Context(), shop, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, item)
}

// Delete removes one shelf-life item. Its price history stays in the ledger.
func (h *ShelfLifeHandler) Delete(c *gin.Context) {
	shop := middleware.GetShop(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ID"})
		return
	}

	err = h.itemRepo.Delete(c.Request.Context(), shop, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "item deleted"})
}

// BulkDeleteRequest is the body for bulk deletion
type BulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required,min=1"`
}

// BulkDelete removes a set of items by ID
func (h *ShelfLifeHandler) BulkDelete(c *gin.Context) {
	shop := middleware.GetShop(c)

	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deleted, err := h.itemRepo.DeleteBulk(c.Request.Context(), shop, req.IDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// DeleteAll removes every item for the shop
func (h *ShelfLifeHandler) DeleteAll(c *gin.Context) {
	shop := middleware.GetShop(c)

	deleted, err := h.itemRepo.DeleteAll(c.Request.Context(), shop)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// PriceHistory retrieves the full price ledger for one item
func (h *ShelfLifeHandler) PriceHistory(c *gin.Context) {
	shop := middleware.GetShop(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ID"})
		return
	}

	if _, err := h.itemRepo.GetByID(c.Request.Context(), shop, id); errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	changes, err := h.ledgerRepo.ListForItem(c.Request.Context(), shop, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": changes})
}

// parseListOptions reads limit/offset query params with sane bounds
func parseListOptions(c *gin.Context) repository.ListOptions {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return repository.ListOptions{Limit: limit, Offset: offset}
}
