package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"shelflife-service/internal/clients"
	"shelflife-service/internal/events"
	"shelflife-service/internal/models"
	"shelflife-service/internal/repository"
)

// ErrPassInProgress is returned when another pricing or sync pass already
// holds the shop's slot
var ErrPassInProgress = errors.New("another pass is already running for this shop")

// PricingService applies and reverts expiration-driven discounts
type PricingService struct {
	itemRepo    repository.ShelfLifeRepository
	ledgerRepo  repository.PriceChangeRepository
	catalog     clients.CatalogClient
	publisher   events.Publisher
	concurrency *ShopSemaphore
	log         *logrus.Logger

	// now is injectable for deterministic bucket tests
	now func() time.Time
}

// NewPricingService creates a new pricing service
func NewPricingService(
	itemRepo repository.ShelfLifeRepository,
	ledgerRepo repository.PriceChangeRepository,
	catalog clients.CatalogClient,
	publisher events.Publisher,
	concurrency *ShopSemaphore,
	log *logrus.Logger,
) *PricingService {
	return &PricingService{
		itemRepo:    itemRepo,
		ledgerRepo:  ledgerRepo,
		catalog:     catalog,
		publisher:   publisher,
		concurrency: concurrency,
		log:         log,
		now:         time.Now,
	}
}

// ItemError is one per-item failure inside a batch pass
type ItemError struct {
	ProductID string `json:"productId"`
	Reason    string `json:"reason"`
}

// DiscountResult summarizes one apply pass
type DiscountResult struct {
	TotalItems      int         `json:"totalItems"`
	ItemsDiscounted int         `json:"itemsDiscounted"`
	Skipped         int         `json:"skipped"`
	Errors          []ItemError `json:"errors,omitempty"`
}

// RevertResult summarizes one revert pass
type RevertResult struct {
	TotalItems    int         `json:"totalItems"`
	ItemsReverted int         `json:"itemsReverted"`
	Errors        []ItemError `json:"errors,omitempty"`
}

// ApplyAutomaticDiscounts walks all matched items expiring inside the
// discount window and pushes margin-retention prices to the catalog. Each
// successful update is recorded in the price ledger before moving on, so a
// mid-pass failure leaves prior items fully accounted for.
func (s *PricingService) ApplyAutomaticDiscounts(ctx context.Context, shop string) (*DiscountResult, error) {
	release, ok := s.concurrency.TryAcquire(shop)
	if !ok {
		return nil, ErrPassInProgress
	}
	defer release()

	now := s.now()
	maxWindow := discountSchedule[len(discountSchedule)-1].MaxDaysLeft
	cutoff := now.AddDate(0, 0, maxWindow+1)

	items, err := s.itemRepo.ListMatchedExpiringBy(ctx, shop, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring items: %w", err)
	}

	result := &DiscountResult{TotalItems: len(items)}
	for i := range items {
		item := &items[i]

		if !item.IsMatched() {
			result.Skipped++
			continue
		}
		if item.VariantPrice == nil {
			result.Errors = append(result.Errors, ItemError{ProductID: item.ProductID, Reason: "missing variant price"})
			continue
		}
		if item.VariantCost == nil {
			result.Errors = append(result.Errors, ItemError{ProductID: item.ProductID, Reason: "missing unit cost"})
			continue
		}

		daysLeft := DaysUntil(now, item.ExpirationDate)
		bucket := BucketFor(daysLeft)
		if bucket == nil {
			result.Skipped++
			continue
		}

		if err := s.applyDiscountToItem(ctx, item, bucket, result); err != nil {
			result.Errors = append(result.Errors, ItemError{ProductID: item.ProductID, Reason: err.Error()})
			s.log.WithError(err).WithFields(logrus.Fields{
				"shop":      shop,
				"productId": item.ProductID,
				"batchId":   item.BatchID,
			}).Error("Failed to apply automatic discount")
		}
	}

	s.log.WithFields(logrus.Fields{
		"shop":       shop,
		"totalItems": result.TotalItems,
		"discounted": result.ItemsDiscounted,
		"skipped":    result.Skipped,
		"failed":     len(result.Errors),
	}).Info("Automatic discount pass completed")

	return result, nil
}

func (s *PricingService) applyDiscountToItem(ctx context.Context, item *models.ShelfLifeItem, bucket *DiscountBucket, result *DiscountResult) error {
	variantID := *item.ShopifyVariantID

	// The current selling price is the latest ledger price when the variant
	// has history, otherwise the price captured at sync time. The base price
	// for the discount is the pre-discount original so repeated passes do not
	// compound.
	currentPrice := *item.VariantPrice
	originalPrice := currentPrice
	var originalCompareAt *float64
	latest, err := s.ledgerRepo.LatestForVariant(ctx, item.Shop, variantID)
	if err != nil {
		return fmt.Errorf("failed to read ledger: %w", err)
	}
	if latest != nil {
		currentPrice = latest.NewPrice
		originalCompareAt = latest.NewCompareAt
		if latest.Reason == models.ReasonAutomaticDiscount && latest.Status == models.PriceChangeApplied {
			originalPrice = latest.OriginalPrice
		} else {
			originalPrice = latest.NewPrice
		}
	}

	newPrice := ComputeDiscountedPrice(originalPrice, *item.VariantCost, bucket)
	if newPrice == currentPrice {
		result.Skipped++
		return nil
	}

	compareAt := originalPrice
	if err := s.catalog.UpdateVariantPrice(ctx, item.Shop, *item.ShopifyProductID, variantID, newPrice, &compareAt); err != nil {
		return err
	}

	notes := DiscountNotes(bucket)
	change := &models.ShelfLifeItemPriceChange{
		Shop:              item.Shop,
		ShelfLifeItemID:   &item.ID,
		ShopifyProductID:  *item.ShopifyProductID,
		ShopifyVariantID:  variantID,
		OriginalPrice:     originalPrice,
		OriginalCompareAt: originalCompareAt,
		NewPrice:          newPrice,
		NewCompareAt:      &compareAt,
		CurrencyCode:      item.CurrencyCode,
		Reason:            models.ReasonAutomaticDiscount,
		Status:            models.PriceChangeApplied,
		Notes:             &notes,
	}
	if err := s.ledgerRepo.Create(ctx, change); err != nil {
		// The external price already changed; the pass continues and the gap
		// is surfaced instead of rolled back.
		return fmt.Errorf("price updated but ledger write failed: %w", err)
	}

	item.VariantPrice = &newPrice
	if err := s.itemRepo.UpdateWithVersion(ctx, item); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"shop":      item.Shop,
			"productId": item.ProductID,
		}).Warn("Failed to refresh item price after discount")
	}

	result.ItemsDiscounted++
	s.publisher.PublishPriceApplied(item.Shop, variantID, currentPrice, newPrice, string(models.ReasonAutomaticDiscount))
	return nil
}

// RevertAutomaticDiscounts restores the original price for every variant
// carrying an APPLIED automatic discount. The external update happens first;
// the ledger is only touched once the catalog reflects the restored price.
func (s *PricingService) RevertAutomaticDiscounts(ctx context.Context, shop string) (*RevertResult, error) {
	release, ok := s.concurrency.TryAcquire(shop)
	if !ok {
		return nil, ErrPassInProgress
	}
	defer release()

	active, err := s.ledgerRepo.ListActiveAutomatic(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to list active discounts: %w", err)
	}

	result := &RevertResult{}
	seen := make(map[string]bool)

	// Rows arrive most recent first, so the first row per variant carries the
	// price to restore.
	for i := range active {
		change := &active[i]
		if seen[change.ShopifyVariantID] {
			continue
		}
		seen[change.ShopifyVariantID] = true
		result.TotalItems++

		if err := s.revertVariant(ctx, change); err != nil {
			result.Errors = append(result.Errors, ItemError{ProductID: change.ShopifyVariantID, Reason: err.Error()})
			s.log.WithError(err).WithFields(logrus.Fields{
				"shop":      shop,
				"variantId": change.ShopifyVariantID,
			}).Error("Failed to revert automatic discount")
			continue
		}
		result.ItemsReverted++
	}

	s.log.WithFields(logrus.Fields{
		"shop":       shop,
		"totalItems": result.TotalItems,
		"reverted":   result.ItemsReverted,
		"failed":     len(result.Errors),
	}).Info("Automatic discount revert completed")

	return result, nil
}

func (s *PricingService) revertVariant(ctx context.Context, change *models.ShelfLifeItemPriceChange) error {
	if err := s.catalog.UpdateVariantPrice(ctx, change.Shop, change.ShopifyProductID, change.ShopifyVariantID, change.OriginalPrice, nil); err != nil {
		return err
	}

	notes := "Reverted automatic discount"
	reversion := &models.ShelfLifeItemPriceChange{
		Shop:              change.Shop,
		ShelfLifeItemID:   change.ShelfLifeItemID,
		ShopifyProductID:  change.ShopifyProductID,
		ShopifyVariantID:  change.ShopifyVariantID,
		OriginalPrice:     change.NewPrice,
		OriginalCompareAt: change.NewCompareAt,
		NewPrice:          change.OriginalPrice,
		CurrencyCode:      change.CurrencyCode,
		Reason:            models.ReasonReversion,
		Status:            models.PriceChangeApplied,
		Notes:             &notes,
	}
	if err := s.ledgerRepo.Create(ctx, reversion); err != nil {
		return fmt.Errorf("price restored but ledger write failed: %w", err)
	}

	if err := s.ledgerRepo.MarkReverted(ctx, change.Shop, change.ShopifyVariantID, reversion.ID); err != nil {
		return fmt.Errorf("failed to mark prior discounts reverted: %w", err)
	}

	if change.ShelfLifeItemID != nil {
		if item, err := s.itemRepo.GetByID(ctx, change.Shop, *change.ShelfLifeItemID); err == nil {
			restored := change.OriginalPrice
			item.VariantPrice = &restored
			if err := s.itemRepo.UpdateWithVersion(ctx, item); err != nil {
				s.log.WithError(err).WithField("shop", change.Shop).Warn("Failed to refresh item price after revert")
			}
		}
	}

	s.publisher.PublishPriceReverted(change.Shop, change.ShopifyVariantID, change.OriginalPrice)
	return nil
}

// ManualPriceUpdate is the request for a manual single-variant price change.
// When CompareAt is omitted, the variant's most recent compare-at price from
// the ledger is preserved.
type ManualPriceUpdate struct {
	Price     float64  `json:"price" binding:"required,gt=0"`
	CompareAt *float64 `json:"compareAt,omitempty"`
	Notes     *string  `json:"notes,omitempty"`
	UserID    *string  `json:"userId,omitempty"`
}

// UpdateSinglePrice pushes a manual price to the catalog and records it in
// the ledger with the MANUAL_PRICE_CHANGE reason
func (s *PricingService) UpdateSinglePrice(ctx context.Context, shop, variantID string, req ManualPriceUpdate) (*models.ShelfLifeItemPriceChange, error) {
	productID, itemID, oldPrice, latest, err := s.resolveVariant(ctx, shop, variantID)
	if err != nil {
		return nil, err
	}

	compareAt := req.CompareAt
	var originalCompareAt *float64
	if latest != nil {
		originalCompareAt = latest.NewCompareAt
		if compareAt == nil {
			compareAt = latest.NewCompareAt
		}
	}

	if err := s.catalog.UpdateVariantPrice(ctx, shop, productID, variantID, req.Price, compareAt); err != nil {
		return nil, err
	}

	change := &models.ShelfLifeItemPriceChange{
		Shop:              shop,
		ShelfLifeItemID:   itemID,
		ShopifyProductID:  productID,
		ShopifyVariantID:  variantID,
		OriginalPrice:     oldPrice,
		OriginalCompareAt: originalCompareAt,
		NewPrice:          req.Price,
		NewCompareAt:      compareAt,
		Reason:            models.ReasonManualPriceChange,
		Status:            models.PriceChangeApplied,
		Notes:             req.Notes,
		AppliedByUserID:   req.UserID,
	}
	if err := s.ledgerRepo.Create(ctx, change); err != nil {
		return nil, fmt.Errorf("price updated but ledger write failed: %w", err)
	}

	s.publisher.PublishPriceApplied(shop, variantID, oldPrice, req.Price, string(models.ReasonManualPriceChange))
	return change, nil
}

// LatestPriceForItem returns the most recent ledger price for an item,
// falling back to the price captured at sync time
func (s *PricingService) LatestPriceForItem(ctx context.Context, shop string, itemID uuid.UUID) (float64, error) {
	latest, err := s.ledgerRepo.LatestForItem(ctx, shop, itemID)
	if err != nil {
		return 0, err
	}
	if latest != nil {
		return latest.NewPrice, nil
	}

	item, err := s.itemRepo.GetByID(ctx, shop, itemID)
	if err != nil {
		return 0, err
	}
	if item.VariantPrice == nil {
		return 0, fmt.Errorf("item has no known price")
	}
	return *item.VariantPrice, nil
}

// resolveVariant finds the product ID, owning item, current price and latest
// ledger row for a variant, preferring the shelf-life store over the ledger
func (s *PricingService) resolveVariant(ctx context.Context, shop, variantID string) (string, *uuid.UUID, float64, *models.ShelfLifeItemPriceChange, error) {
	latest, err := s.ledgerRepo.LatestForVariant(ctx, shop, variantID)
	if err != nil {
		return "", nil, 0, nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	item, err := s.itemRepo.GetByVariantID(ctx, shop, variantID)
	if err == nil && item.ShopifyProductID != nil {
		price := 0.0
		if item.VariantPrice != nil {
			price = *item.VariantPrice
		}
		if latest != nil {
			price = latest.NewPrice
		}
		return *item.ShopifyProductID, &item.ID, price, latest, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, 0, nil, fmt.Errorf("failed to look up variant: %w", err)
	}

	if latest == nil {
		return "", nil, 0, nil, fmt.Errorf("variant %s is not tracked", variantID)
	}
	return latest.ShopifyProductID, latest.ShelfLifeItemID, latest.NewPrice, latest, nil
}
