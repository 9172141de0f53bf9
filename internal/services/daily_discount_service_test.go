package services

import (
	"context"
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"shelflife-service/internal/clients"
	"shelflife-service/internal/config"
	"shelflife-service/internal/events"
	"shelflife-service/internal/models"
)

func newTestDailyDiscountService(logRepo *MockDailyDiscountRepository, catalog *MockCatalogClient) *DailyDiscountService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	cfg := &config.Config{
		SyncPageSize:           100,
		DailyDiscountCount:     2,
		DailyDiscountMinMargin: 0.10,
		DailyDiscountMaxMargin: 0.25,
	}
	rng := rand.New(rand.NewSource(42))
	return NewDailyDiscountService(logRepo, catalog, events.NewNoopPublisher(), NewShopSemaphore(), cfg, logger, rng)
}

func eligibleProduct(id, variantID string, price, cost float64) clients.CatalogProduct {
	return clients.CatalogProduct{
		ID:       id,
		Title:    "Product " + id,
		HasImage: true,
		Variants: []clients.CatalogVariant{
			{ID: variantID, Title: "Default", SKU: "SKU-" + variantID, Price: price, InventoryQuantity: 5, UnitCost: &cost},
		},
	}
}

func TestRoundTo99(t *testing.T) {
	assert.InDelta(t, 17.99, roundTo99(18.40), 0.0001)
	assert.InDelta(t, 17.99, roundTo99(18.00), 0.0001)
	assert.InDelta(t, 0.99, roundTo99(1.50), 0.0001)
}

func TestDailyDiscountApply(t *testing.T) {
	logRepo := new(MockDailyDiscountRepository)
	catalog := new(MockCatalogClient)
	svc := newTestDailyDiscountService(logRepo, catalog)

	page := &clients.ProductsPage{
		Products: []clients.CatalogProduct{
			eligibleProduct("p1", "v1", 30.00, 10.00),
			eligibleProduct("p2", "v2", 25.00, 12.00),
			eligibleProduct("p3", "v3", 40.00, 15.00),
		},
	}

	catalog.On("GetProducts", mock.Anything, "shop.example.com", "", 100).Return(page, nil)
	catalog.On("UpdateVariantPrice", mock.Anything, "shop.example.com", mock.Anything, mock.Anything,
		mock.MatchedBy(func(price float64) bool {
			// every discounted price ends in .99
			cents := price - float64(int(price))
			return cents > 0.985 && cents < 0.995
		}), mock.Anything).Return(nil)
	logRepo.On("Create", mock.Anything, mock.MatchedBy(func(entry *models.DailyDiscountLog) bool {
		return entry.Shop == "shop.example.com" &&
			entry.Status == models.DailyDiscountActive &&
			entry.DiscountedPrice < entry.OriginalPrice &&
			entry.MarginDiscount >= 0.10 && entry.MarginDiscount <= 0.25
	})).Return(nil)

	result, err := svc.Apply(context.Background(), "shop.example.com", 0)

	assert.NoError(t, err)
	assert.Equal(t, 2, result.TotalItems)
	assert.Equal(t, 2, result.ItemsDiscounted)
	assert.Empty(t, result.Errors)
	logRepo.AssertNumberOfCalls(t, "Create", 2)
}

func TestDailyDiscountApplyCountOverride(t *testing.T) {
	logRepo := new(MockDailyDiscountRepository)
	catalog := new(MockCatalogClient)
	svc := newTestDailyDiscountService(logRepo, catalog)

	page := &clients.ProductsPage{
		Products: []clients.CatalogProduct{
			eligibleProduct("p1", "v1", 30.00, 10.00),
			eligibleProduct("p2", "v2", 25.00, 12.00),
			eligibleProduct("p3", "v3", 40.00, 15.00),
		},
	}

	catalog.On("GetProducts", mock.Anything, "shop.example.com", "", 100).Return(page, nil)
	catalog.On("UpdateVariantPrice", mock.Anything, "shop.example.com", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	logRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.Apply(context.Background(), "shop.example.com", 1)

	assert.NoError(t, err)
	assert.Equal(t, 1, result.TotalItems)
	assert.Equal(t, 1, result.ItemsDiscounted)
	logRepo.AssertNumberOfCalls(t, "Create", 1)
}

func TestDailyDiscountApplySkipsIneligibleVariants(t *testing.T) {
	logRepo := new(MockDailyDiscountRepository)
	catalog := new(MockCatalogClient)
	svc := newTestDailyDiscountService(logRepo, catalog)

	cost := 10.00
	underwater := 12.00
	page := &clients.ProductsPage{
		Products: []clients.CatalogProduct{
			{ID: "p1", HasImage: false, Variants: []clients.CatalogVariant{
				{ID: "v1", Price: 30.00, InventoryQuantity: 5, UnitCost: &cost},
			}},
			{ID: "p2", HasImage: true, Variants: []clients.CatalogVariant{
				{ID: "v2", Price: 30.00, InventoryQuantity: 0, UnitCost: &cost},
				{ID: "v3", Price: 30.00, InventoryQuantity: 5, UnitCost: nil},
				{ID: "v4", Price: 10.00, InventoryQuantity: 5, UnitCost: &underwater},
			}},
		},
	}

	catalog.On("GetProducts", mock.Anything, "shop.example.com", "", 100).Return(page, nil)

	result, err := svc.Apply(context.Background(), "shop.example.com", 0)

	assert.NoError(t, err)
	assert.Equal(t, 0, result.TotalItems)
	assert.Equal(t, 0, result.ItemsDiscounted)
	catalog.AssertNotCalled(t, "UpdateVariantPrice", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDailyDiscountApplyPagesThroughCatalog(t *testing.T) {
	logRepo := new(MockDailyDiscountRepository)
	catalog := new(MockCatalogClient)
	svc := newTestDailyDiscountService(logRepo, catalog)

	firstPage := &clients.ProductsPage{
		Products:    []clients.CatalogProduct{eligibleProduct("p1", "v1", 30.00, 10.00)},
		HasNextPage: true,
		EndCursor:   "cursor-1",
	}
	secondPage := &clients.ProductsPage{
		Products: []clients.CatalogProduct{eligibleProduct("p2", "v2", 25.00, 12.00)},
	}

	catalog.On("GetProducts", mock.Anything, "shop.example.com", "", 100).Return(firstPage, nil)
	catalog.On("GetProducts", mock.Anything, "shop.example.com", "cursor-1", 100).Return(secondPage, nil)
	catalog.On("UpdateVariantPrice", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	logRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.Apply(context.Background(), "shop.example.com", 0)

	assert.NoError(t, err)
	assert.Equal(t, 2, result.ItemsDiscounted)
	catalog.AssertExpectations(t)
}

func TestDailyDiscountApplyLogFailureReported(t *testing.T) {
	logRepo := new(MockDailyDiscountRepository)
	catalog := new(MockCatalogClient)
	svc := newTestDailyDiscountService(logRepo, catalog)

	page := &clients.ProductsPage{
		Products: []clients.CatalogProduct{eligibleProduct("p1", "v1", 30.00, 10.00)},
	}

	catalog.On("GetProducts", mock.Anything, "shop.example.com", "", 100).Return(page, nil)
	catalog.On("UpdateVariantPrice", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	logRepo.On("Create", mock.Anything, mock.Anything).Return(assert.AnError)

	result, err := svc.Apply(context.Background(), "shop.example.com", 0)

	// The price change went out; the missing audit row must be surfaced
	assert.NoError(t, err)
	assert.Equal(t, 0, result.ItemsDiscounted)
	if assert.Len(t, result.Errors, 1) {
		assert.Contains(t, result.Errors[0].Reason, "log write failed")
	}
}

func TestDailyDiscountRevert(t *testing.T) {
	logRepo := new(MockDailyDiscountRepository)
	catalog := new(MockCatalogClient)
	svc := newTestDailyDiscountService(logRepo, catalog)

	active := []models.DailyDiscountLog{
		{Shop: "shop.example.com", ShopifyProductID: "p1", ShopifyVariantID: "v1", OriginalPrice: 30.00, DiscountedPrice: 25.99, Status: models.DailyDiscountActive},
		{Shop: "shop.example.com", ShopifyProductID: "p2", ShopifyVariantID: "v2", OriginalPrice: 25.00, DiscountedPrice: 21.99, Status: models.DailyDiscountActive},
	}

	logRepo.On("ListActive", mock.Anything, "shop.example.com").Return(active, nil)
	catalog.On("UpdateVariantPrice", mock.Anything, "shop.example.com", "p1", "v1", 30.00, (*float64)(nil)).Return(nil)
	catalog.On("UpdateVariantPrice", mock.Anything, "shop.example.com", "p2", "v2", 25.00, (*float64)(nil)).Return(nil)
	logRepo.On("Update", mock.Anything, mock.MatchedBy(func(entry *models.DailyDiscountLog) bool {
		return entry.Status == models.DailyDiscountReverted
	})).Return(nil).Twice()

	result, err := svc.Revert(context.Background(), "shop.example.com")

	assert.NoError(t, err)
	assert.Equal(t, 2, result.TotalItems)
	assert.Equal(t, 2, result.ItemsReverted)
	logRepo.AssertExpectations(t)
	catalog.AssertExpectations(t)
}

func TestDailyDiscountRevertExternalFailureKeepsLogActive(t *testing.T) {
	logRepo := new(MockDailyDiscountRepository)
	catalog := new(MockCatalogClient)
	svc := newTestDailyDiscountService(logRepo, catalog)

	active := []models.DailyDiscountLog{
		{Shop: "shop.example.com", ShopifyProductID: "p1", ShopifyVariantID: "v1", OriginalPrice: 30.00, Status: models.DailyDiscountActive},
	}

	logRepo.On("ListActive", mock.Anything, "shop.example.com").Return(active, nil)
	catalog.On("UpdateVariantPrice", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	result, err := svc.Revert(context.Background(), "shop.example.com")

	assert.NoError(t, err)
	assert.Equal(t, 0, result.ItemsReverted)
	assert.Len(t, result.Errors, 1)
	logRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}
