package repository

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"shelflife-service/internal/database"
	"shelflife-service/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(":memory:", "test")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.ShelfLifeItem{},
		&models.ShelfLifeItemPriceChange{},
		&models.DailyDiscountLog{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newTestShelfLifeRepository(t *testing.T) (ShelfLifeRepository, *gorm.DB) {
	db := newTestDB(t)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewShelfLifeRepository(db, nil, logger), db
}

func testItem(shop, productID, batchID string) *models.ShelfLifeItem {
	return &models.ShelfLifeItem{
		Shop:           shop,
		ProductID:      productID,
		BatchID:        batchID,
		ExpirationDate: time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		Quantity:       24,
		SyncStatus:     models.SyncPending,
	}
}

func TestUpsertRefreshesExistingBatch(t *testing.T) {
	repo, db := newTestShelfLifeRepository(t)
	ctx := context.Background()

	item := testItem("shop.example.com", "SKU-1001", "20260101")
	assert.NoError(t, repo.Upsert(ctx, item))

	// Stamp catalog data the way a reconciliation pass does
	variantID := "gid://shopify/ProductVariant/1"
	stamped, err := repo.GetByID(ctx, "shop.example.com", item.ID)
	assert.NoError(t, err)
	stamped.SyncStatus = models.SyncMatched
	stamped.ShopifyVariantID = &variantID
	stamped.Version = 3
	assert.NoError(t, repo.Update(ctx, stamped))

	// Re-uploading the same natural key refreshes upload columns only
	reupload := testItem("shop.example.com", "SKU-1001", "20260101")
	reupload.Quantity = 12
	assert.NoError(t, repo.Upsert(ctx, reupload))

	var count int64
	assert.NoError(t, db.Model(&models.ShelfLifeItem{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	kept, err := repo.GetByID(ctx, "shop.example.com", item.ID)
	assert.NoError(t, err)
	assert.Equal(t, 12, kept.Quantity)
	assert.Equal(t, models.SyncMatched, kept.SyncStatus)
	assert.Equal(t, &variantID, kept.ShopifyVariantID)
	assert.Equal(t, 3, kept.Version)
}

func TestUpdateWithVersionRejectsStaleItem(t *testing.T) {
	repo, _ := newTestShelfLifeRepository(t)
	ctx := context.Background()

	item := testItem("shop.example.com", "SKU-1001", "20260101")
	assert.NoError(t, repo.Upsert(ctx, item))

	fresh, err := repo.GetByID(ctx, "shop.example.com", item.ID)
	assert.NoError(t, err)
	stale, err := repo.GetByID(ctx, "shop.example.com", item.ID)
	assert.NoError(t, err)

	price := 19.99
	fresh.VariantPrice = &price
	assert.NoError(t, repo.UpdateWithVersion(ctx, fresh))
	assert.Equal(t, 2, fresh.Version)

	lostPrice := 15.99
	stale.VariantPrice = &lostPrice
	err = repo.UpdateWithVersion(ctx, stale)
	assert.ErrorIs(t, err, ErrStaleItem)
	assert.Equal(t, 1, stale.Version)

	kept, err := repo.GetByID(ctx, "shop.example.com", item.ID)
	assert.NoError(t, err)
	assert.Equal(t, 19.99, *kept.VariantPrice)
	assert.Equal(t, 2, kept.Version)
}

func TestLedgerSurvivesItemDeletion(t *testing.T) {
	repo, db := newTestShelfLifeRepository(t)
	ledger := NewPriceChangeRepository(db)
	ctx := context.Background()

	item := testItem("shop.example.com", "SKU-1001", "20260101")
	assert.NoError(t, repo.Upsert(ctx, item))
	other := testItem("shop.example.com", "SKU-1002", "20260101")
	assert.NoError(t, repo.Upsert(ctx, other))

	change := &models.ShelfLifeItemPriceChange{
		Shop:             "shop.example.com",
		ShelfLifeItemID:  &item.ID,
		ShopifyProductID: "gid://shopify/Product/1",
		ShopifyVariantID: "gid://shopify/ProductVariant/1",
		OriginalPrice:    20.00,
		NewPrice:         14.00,
		Reason:           models.ReasonAutomaticDiscount,
		Status:           models.PriceChangeApplied,
	}
	assert.NoError(t, ledger.Create(ctx, change))

	assert.NoError(t, repo.Delete(ctx, "shop.example.com", item.ID))

	history, err := ledger.ListForItem(ctx, "shop.example.com", item.ID)
	assert.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, 14.00, history[0].NewPrice)

	deleted, err := repo.DeleteAll(ctx, "shop.example.com")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	history, err = ledger.ListForItem(ctx, "shop.example.com", item.ID)
	assert.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestMarkRevertedExcludesReversionRow(t *testing.T) {
	db := newTestDB(t)
	ledger := NewPriceChangeRepository(db)
	ctx := context.Background()

	variantID := "gid://shopify/ProductVariant/1"
	discount := &models.ShelfLifeItemPriceChange{
		Shop:             "shop.example.com",
		ShopifyProductID: "gid://shopify/Product/1",
		ShopifyVariantID: variantID,
		OriginalPrice:    20.00,
		NewPrice:         14.00,
		Reason:           models.ReasonAutomaticDiscount,
		Status:           models.PriceChangeApplied,
	}
	assert.NoError(t, ledger.Create(ctx, discount))

	reversion := &models.ShelfLifeItemPriceChange{
		Shop:             "shop.example.com",
		ShopifyProductID: "gid://shopify/Product/1",
		ShopifyVariantID: variantID,
		OriginalPrice:    14.00,
		NewPrice:         20.00,
		Reason:           models.ReasonReversion,
		Status:           models.PriceChangeApplied,
	}
	assert.NoError(t, ledger.Create(ctx, reversion))

	assert.NoError(t, ledger.MarkReverted(ctx, "shop.example.com", variantID, reversion.ID))

	active, err := ledger.ListActiveAutomatic(ctx, "shop.example.com")
	assert.NoError(t, err)
	assert.Empty(t, active)

	latest, err := ledger.LatestForVariant(ctx, "shop.example.com", variantID)
	assert.NoError(t, err)
	assert.Equal(t, models.ReasonReversion, latest.Reason)
	assert.Equal(t, models.PriceChangeApplied, latest.Status)

	history, total, err := ledger.List(ctx, "shop.example.com", PriceChangeFilter{VariantID: variantID}, ListOptions{})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, history, 2)
}

func TestListScopesToShop(t *testing.T) {
	repo, _ := newTestShelfLifeRepository(t)
	ctx := context.Background()

	assert.NoError(t, repo.Upsert(ctx, testItem("shop-a.example.com", "SKU-1001", "20260101")))
	assert.NoError(t, repo.Upsert(ctx, testItem("shop-b.example.com", "SKU-1001", "20260101")))
	assert.NoError(t, repo.Upsert(ctx, testItem("shop-b.example.com", "SKU-1002", "20260101")))

	items, total, err := repo.List(ctx, "shop-b.example.com", ShelfLifeFilter{}, ListOptions{})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, "shop-b.example.com", item.Shop)
	}

	deleted, err := repo.DeleteAll(ctx, "shop-a.example.com")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, total, err = repo.List(ctx, "shop-b.example.com", ShelfLifeFilter{}, ListOptions{})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
