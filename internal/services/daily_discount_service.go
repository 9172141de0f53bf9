package services

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"shelflife-service/internal/clients"
	"shelflife-service/internal/config"
	"shelflife-service/internal/events"
	"shelflife-service/internal/models"
	"shelflife-service/internal/repository"
)

// DailyDiscountService picks random eligible variants and applies a
// margin-bounded discount for the day
type DailyDiscountService struct {
	logRepo     repository.DailyDiscountRepository
	catalog     clients.CatalogClient
	publisher   events.Publisher
	concurrency *ShopSemaphore
	config      *config.Config
	log         *logrus.Logger

	// rng is injectable for deterministic selection tests
	rng *rand.Rand
}

// NewDailyDiscountService creates a new daily discount service
func NewDailyDiscountService(
	logRepo repository.DailyDiscountRepository,
	catalog clients.CatalogClient,
	publisher events.Publisher,
	concurrency *ShopSemaphore,
	cfg *config.Config,
	log *logrus.Logger,
	rng *rand.Rand,
) *DailyDiscountService {
	return &DailyDiscountService{
		logRepo:     logRepo,
		catalog:     catalog,
		publisher:   publisher,
		concurrency: concurrency,
		config:      cfg,
		log:         log,
		rng:         rng,
	}
}

type discountCandidate struct {
	product clients.CatalogProduct
	variant clients.CatalogVariant
}

// Apply selects up to count random eligible variants, discounts each by a
// margin fraction drawn uniformly from the configured range, and logs every
// applied discount. A count of zero or less falls back to the configured
// default.
func (s *DailyDiscountService) Apply(ctx context.Context, shop string, count int) (*DiscountResult, error) {
	release, ok := s.concurrency.TryAcquire(shop)
	if !ok {
		return nil, ErrPassInProgress
	}
	defer release()

	candidates, err := s.collectEligible(ctx, shop)
	if err != nil {
		return nil, err
	}

	// Fisher-Yates for uniform selection
	for i := len(candidates) - 1; i > 0; i-- {
		j := s.rng.Intn(i + 1)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}

	if count <= 0 {
		count = s.config.DailyDiscountCount
	}
	if count > len(candidates) {
		count = len(candidates)
	}

	result := &DiscountResult{TotalItems: count}
	for _, candidate := range candidates[:count] {
		if err := s.applyToCandidate(ctx, shop, candidate); err != nil {
			result.Errors = append(result.Errors, ItemError{ProductID: candidate.variant.SKU, Reason: err.Error()})
			s.log.WithError(err).WithFields(logrus.Fields{
				"shop":      shop,
				"variantId": candidate.variant.ID,
			}).Error("Failed to apply daily discount")
			continue
		}
		result.ItemsDiscounted++
	}

	s.log.WithFields(logrus.Fields{
		"shop":       shop,
		"eligible":   len(candidates),
		"discounted": result.ItemsDiscounted,
		"failed":     len(result.Errors),
	}).Info("Daily discount pass completed")

	return result, nil
}

// collectEligible pages through the whole catalog and keeps variants of
// products that have an image and positive inventory
func (s *DailyDiscountService) collectEligible(ctx context.Context, shop string) ([]discountCandidate, error) {
	var candidates []discountCandidate

	cursor := ""
	for {
		page, err := s.catalog.GetProducts(ctx, shop, cursor, s.config.SyncPageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch catalog: %w", err)
		}

		for _, product := range page.Products {
			if !product.HasImage {
				continue
			}
			for _, variant := range product.Variants {
				if variant.InventoryQuantity <= 0 || variant.UnitCost == nil {
					continue
				}
				if variant.Price <= *variant.UnitCost {
					continue
				}
				candidates = append(candidates, discountCandidate{product: product, variant: variant})
			}
		}

		if !page.HasNextPage {
			break
		}
		cursor = page.EndCursor
	}

	return candidates, nil
}

func (s *DailyDiscountService) applyToCandidate(ctx context.Context, shop string, candidate discountCandidate) error {
	variant := candidate.variant

	minMargin := s.config.DailyDiscountMinMargin
	maxMargin := s.config.DailyDiscountMaxMargin
	fraction := minMargin + s.rng.Float64()*(maxMargin-minMargin)

	margin := variant.Price - *variant.UnitCost
	discounted := roundTo99(variant.Price - margin*fraction)
	if discounted >= variant.Price || discounted <= 0 {
		return fmt.Errorf("margin too thin to discount")
	}

	compareAt := variant.Price
	if err := s.catalog.UpdateVariantPrice(ctx, shop, candidate.product.ID, variant.ID, discounted, &compareAt); err != nil {
		return err
	}

	entry := &models.DailyDiscountLog{
		Shop:             shop,
		ShopifyProductID: candidate.product.ID,
		ShopifyVariantID: variant.ID,
		ProductTitle:     candidate.product.Title,
		VariantTitle:     variant.Title,
		OriginalPrice:    variant.Price,
		DiscountedPrice:  discounted,
		MarginDiscount:   fraction,
		Status:           models.DailyDiscountActive,
	}
	if err := s.logRepo.Create(ctx, entry); err != nil {
		return fmt.Errorf("price updated but log write failed: %w", err)
	}

	s.publisher.PublishPriceApplied(shop, variant.ID, variant.Price, discounted, "DAILY_DISCOUNT")
	return nil
}

// Revert restores the original price for every active daily discount
func (s *DailyDiscountService) Revert(ctx context.Context, shop string) (*RevertResult, error) {
	release, ok := s.concurrency.TryAcquire(shop)
	if !ok {
		return nil, ErrPassInProgress
	}
	defer release()

	active, err := s.logRepo.ListActive(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to list active daily discounts: %w", err)
	}

	result := &RevertResult{TotalItems: len(active)}
	for i := range active {
		entry := &active[i]

		if err := s.catalog.UpdateVariantPrice(ctx, shop, entry.ShopifyProductID, entry.ShopifyVariantID, entry.OriginalPrice, nil); err != nil {
			result.Errors = append(result.Errors, ItemError{ProductID: entry.ShopifyVariantID, Reason: err.Error()})
			s.log.WithError(err).WithFields(logrus.Fields{
				"shop":      shop,
				"variantId": entry.ShopifyVariantID,
			}).Error("Failed to revert daily discount")
			continue
		}

		entry.Status = models.DailyDiscountReverted
		if err := s.logRepo.Update(ctx, entry); err != nil {
			result.Errors = append(result.Errors, ItemError{ProductID: entry.ShopifyVariantID, Reason: err.Error()})
			continue
		}

		result.ItemsReverted++
		s.publisher.PublishPriceReverted(shop, entry.ShopifyVariantID, entry.OriginalPrice)
	}

	s.log.WithFields(logrus.Fields{
		"shop":     shop,
		"reverted": result.ItemsReverted,
		"failed":   len(result.Errors),
	}).Info("Daily discount revert completed")

	return result, nil
}

// roundTo99 floors a price to the nearest x.99 ending below it
func roundTo99(price float64) float64 {
	return math.Floor(price) - 0.01
}
