package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shelflife-service/internal/middleware"
	"shelflife-service/internal/repository"
	"shelflife-service/internal/services"
)

// DailyDiscountHandler handles random daily discount HTTP requests
type DailyDiscountHandler struct {
	dailyService *services.DailyDiscountService
	logRepo      repository.DailyDiscountRepository
}

// NewDailyDiscountHandler creates a new daily discount handler
func NewDailyDiscountHandler(dailyService *services.DailyDiscountService, logRepo repository.DailyDiscountRepository) *DailyDiscountHandler {
	return &DailyDiscountHandler{dailyService: dailyService, logRepo: logRepo}
}

// ApplyRequest optionally overrides how many variants to discount
type ApplyRequest struct {
	Count int `json:"count" binding:"omitempty,gte=1,lte=100"`
}

// Apply runs a daily discount pass for the shop
func (h *DailyDiscountHandler) Apply(c *gin.Context) {
	shop := middleware.GetShop(c)

	var req ApplyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	result, err := h.dailyService.Apply(c.Request.Context(), shop, req.Count)
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

// Revert restores original prices for all active daily discounts
func (h *DailyDiscountHandler) Revert(c *gin.Context) {
	shop := middleware.GetShop(c)

	result, err := h.dailyService.Revert(c.Request.Context(), shop)
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

// Logs retrieves the daily discount history
func (h *DailyDiscountHandler) Logs(c *gin.Context) {
	shop := middleware.GetShop(c)

	opts := parseListOptions(c)
	logs, total, err := h.logRepo.List(c.Request.Context(), shop, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   logs,
		"total":  total,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}
