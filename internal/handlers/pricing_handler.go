package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shelflife-service/internal/middleware"
	"shelflife-service/internal/models"
	"shelflife-service/internal/repository"
	"shelflife-service/internal/services"
)

// PricingHandler handles discount and price-change HTTP requests
type PricingHandler struct {
	pricingService *services.PricingService
	ledgerRepo     repository.PriceChangeRepository
}

// NewPricingHandler creates a new pricing handler
func NewPricingHandler(pricingService *services.PricingService, ledgerRepo repository.PriceChangeRepository) *PricingHandler {
	return &PricingHandler{pricingService: pricingService, ledgerRepo: ledgerRepo}
}

// ApplyDiscounts runs an automatic discount pass for the shop
func (h *PricingHandler) ApplyDiscounts(c *gin.Context) {
	shop := middleware.GetShop(c)

	result, err := h.pricingService.ApplyAutomaticDiscounts(c.Request.Context(), shop)
	if errors.Is(err, services.ErrPassInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// RevertDiscounts reverts all active automatic discounts for the shop
func (h *PricingHandler) RevertDiscounts(c *gin.Context) {
	shop := middleware.GetShop(c)

	result, err := h.pricingService.RevertAutomaticDiscounts(c.Request.Context(), shop)
	if errors.Is(err, services.ErrPassInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListActiveDiscounts retrieves all automatic discounts still in APPLIED state
func (h *PricingHandler) ListActiveDiscounts(c *gin.Context) {
	shop := middleware.GetShop(c)

	changes, err := h.ledgerRepo.ListActiveAutomatic(c.Request.Context(), shop)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": changes})
}

// UpdatePrice applies a manual price change to one variant
func (h *PricingHandler) UpdatePrice(c *gin.Context) {
	shop := middleware.GetShop(c)
	variantID := c.Param("variantId")

	var req services.ManualPriceUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	change, err := h.pricingService.UpdateSinglePrice(c.Request.Context(), shop, variantID, req)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "applied",
		"message": "price updated",
		"data":    change,
	})
}

// ListPriceChanges retrieves the price ledger with optional filters
func (h *PricingHandler) ListPriceChanges(c *gin.Context) {
	shop := middleware.GetShop(c)

	opts := parseListOptions(c)
	filter := repository.PriceChangeFilter{
		VariantID: c.Query("variantId"),
		Reason:    models.PriceChangeReason(c.Query("reason")),
		Status:    models.PriceChangeStatus(c.Query("status")),
	}

	changes, total, err := h.ledgerRepo.List(c.Request.Context(), shop, filter, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   changes,
		"total":  total,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}
