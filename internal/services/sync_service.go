package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"shelflife-service/internal/clients"
	"shelflife-service/internal/config"
	"shelflife-service/internal/events"
	"shelflife-service/internal/models"
	"shelflife-service/internal/repository"
)

// SyncService reconciles shelf-life items against the store catalog by SKU
type SyncService struct {
	itemRepo    repository.ShelfLifeRepository
	catalog     clients.CatalogClient
	publisher   events.Publisher
	concurrency *ShopSemaphore
	config      *config.Config
	log         *logrus.Logger
}

// NewSyncService creates a new sync service
func NewSyncService(
	itemRepo repository.ShelfLifeRepository,
	catalog clients.CatalogClient,
	publisher events.Publisher,
	concurrency *ShopSemaphore,
	cfg *config.Config,
	log *logrus.Logger,
) *SyncService {
	return &SyncService{
		itemRepo:    itemRepo,
		catalog:     catalog,
		publisher:   publisher,
		concurrency: concurrency,
		config:      cfg,
		log:         log,
	}
}

// UnmatchedItem describes one item that found no catalog match
type UnmatchedItem struct {
	ProductID string `json:"productId"`
	Reason    string `json:"reason"`
}

// SyncResult summarizes one reconciliation pass
type SyncResult struct {
	Success        bool            `json:"success"`
	Pending        int             `json:"pending"`
	MatchedCount   int             `json:"matchedCount"`
	Pages          int             `json:"pages"`
	Message        string          `json:"message,omitempty"`
	UnmatchedItems []UnmatchedItem `json:"unmatchedItems,omitempty"`
	FailedItems    []UnmatchedItem `json:"failedItems,omitempty"`
}

// Sync matches every PENDING item's SKU against the catalog, stamping matched
// items with variant data page by page. Matches found before a page failure
// are kept; a failed page aborts the pass and leaves unseen items PENDING.
func (s *SyncService) Sync(ctx context.Context, shop string) (*SyncResult, error) {
	release, ok := s.concurrency.TryAcquire(shop)
	if !ok {
		return nil, ErrPassInProgress
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.config.SyncTimeout)
	defer cancel()

	pending, err := s.itemRepo.ListPending(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending items: %w", err)
	}

	result := &SyncResult{Pending: len(pending)}
	if len(pending) == 0 {
		result.Success = true
		result.Message = "no pending items"
		return result, nil
	}

	// Items keyed by normalized SKU. Multiple batches of the same product
	// share one SKU and all match the same variant.
	bySKU := make(map[string][]*models.ShelfLifeItem)
	for i := range pending {
		sku := normalizeSKU(pending[i].ProductID)
		bySKU[sku] = append(bySKU[sku], &pending[i])
	}

	cursor := ""
	for {
		page, err := s.catalog.GetProducts(ctx, shop, cursor, s.config.SyncPageSize)
		if err != nil {
			result.Message = fmt.Sprintf("sync aborted after %d pages: %v", result.Pages, err)
			s.log.WithError(err).WithFields(logrus.Fields{
				"shop":  shop,
				"pages": result.Pages,
			}).Error("Catalog page fetch failed, aborting sync")
			return result, fmt.Errorf("sync aborted after %d pages: %w", result.Pages, err)
		}
		result.Pages++

		for _, product := range page.Products {
			for _, variant := range product.Variants {
				if variant.SKU == "" {
					continue
				}
				key := normalizeSKU(variant.SKU)
				items, ok := bySKU[key]
				if !ok {
					continue
				}
				for _, item := range items {
					if err := s.stampMatch(ctx, item, product, variant); err != nil {
						s.log.WithError(err).WithFields(logrus.Fields{
							"shop":      shop,
							"productId": item.ProductID,
							"batchId":   item.BatchID,
						}).Error("Failed to save matched item")
						result.FailedItems = append(result.FailedItems, UnmatchedItem{
							ProductID: item.ProductID,
							Reason:    fmt.Sprintf("matched but failed to save: %v", err),
						})
						continue
					}
					result.MatchedCount++
				}
				delete(bySKU, key)
			}
		}

		if !page.HasNextPage {
			break
		}
		cursor = page.EndCursor
	}

	// Everything still keyed was never seen in the catalog
	for _, items := range bySKU {
		for _, item := range items {
			msg := "no variant with this SKU found in the catalog; check for a SKU mismatch, an archived product, or an API limit reached during the scan"
			item.SyncStatus = models.SyncUnmatched
			item.SyncMessage = &msg
			if err := s.itemRepo.Update(ctx, item); err != nil {
				s.log.WithError(err).WithFields(logrus.Fields{
					"shop":      shop,
					"productId": item.ProductID,
				}).Error("Failed to mark item unmatched")
				result.FailedItems = append(result.FailedItems, UnmatchedItem{
					ProductID: item.ProductID,
					Reason:    fmt.Sprintf("failed to mark unmatched: %v", err),
				})
				continue
			}
			result.UnmatchedItems = append(result.UnmatchedItems, UnmatchedItem{ProductID: item.ProductID, Reason: msg})
		}
	}

	result.Success = true
	result.Message = fmt.Sprintf("matched %d of %d items", result.MatchedCount, result.Pending)
	if len(result.FailedItems) > 0 {
		result.Message = fmt.Sprintf("%s; %d failed to save", result.Message, len(result.FailedItems))
	}

	s.publisher.PublishSyncCompleted(shop, result.MatchedCount, len(result.UnmatchedItems))
	s.log.WithFields(logrus.Fields{
		"shop":      shop,
		"pending":   result.Pending,
		"matched":   result.MatchedCount,
		"unmatched": len(result.UnmatchedItems),
		"failed":    len(result.FailedItems),
		"pages":     result.Pages,
	}).Info("Catalog sync completed")

	return result, nil
}

func (s *SyncService) stampMatch(ctx context.Context, item *models.ShelfLifeItem, product clients.CatalogProduct, variant clients.CatalogVariant) error {
	price := variant.Price
	item.ShopifyProductID = &product.ID
	item.ShopifyVariantID = &variant.ID
	item.ShopifyProductTitle = &product.Title
	item.ShopifyVariantTitle = &variant.Title
	item.VariantPrice = &price
	item.VariantCost = variant.UnitCost
	if variant.CurrencyCode != "" {
		code := variant.CurrencyCode
		item.CurrencyCode = &code
	}
	msg := "matched"
	item.SyncStatus = models.SyncMatched
	item.SyncMessage = &msg
	return s.itemRepo.Update(ctx, item)
}

// normalizeSKU makes SKU comparison tolerant of case and surrounding
// whitespace
func normalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}
