package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shelflife-service/internal/models"
)

// ListOptions holds pagination parameters for list queries
type ListOptions struct {
	Limit  int
	Offset int
}

// ShelfLifeFilter narrows list queries
type ShelfLifeFilter struct {
	SyncStatus     models.SyncStatus
	ExpiringInDays int // 0 means no expiration filter
}

// ShelfLifeRepository handles shelf-life item persistence
type ShelfLifeRepository interface {
	Upsert(ctx context.Context, item *models.ShelfLifeItem) error
	GetByID(ctx context.Context, shop string, id uuid.UUID) (*models.ShelfLifeItem, error)
	GetByVariantID(ctx context.Context, shop, variantID string) (*models.ShelfLifeItem, error)
	List(ctx context.Context, shop string, filter ShelfLifeFilter, opts ListOptions) ([]models.ShelfLifeItem, int64, error)
	ListPending(ctx context.Context, shop string) ([]models.ShelfLifeItem, error)
	ListMatchedExpiringBy(ctx context.Context, shop string, before time.Time) ([]models.ShelfLifeItem, error)
	Update(ctx context.Context, item *models.ShelfLifeItem) error
	UpdateWithVersion(ctx context.Context, item *models.ShelfLifeItem) error
	Delete(ctx context.Context, shop string, id uuid.UUID) error
	DeleteBulk(ctx context.Context, shop string, ids []uuid.UUID) (int64, error)
	DeleteAll(ctx context.Context, shop string) (int64, error)
}

type shelfLifeRepository struct {
	db    *gorm.DB
	cache *redis.Client
	log   *logrus.Logger
}

// NewShelfLifeRepository creates a new shelf-life repository. The cache
// client is optional; pass nil to disable list caching.
func NewShelfLifeRepository(db *gorm.DB, cache *redis.Client, log *logrus.Logger) ShelfLifeRepository {
	return &shelfLifeRepository{db: db, cache: cache, log: log}
}

const listCacheTTL = 60 * time.Second

func listCacheKey(shop string, filter ShelfLifeFilter, opts ListOptions) string {
	return fmt.Sprintf("shelflife:items:%s:%s:%d:%d:%d", shop, filter.SyncStatus, filter.ExpiringInDays, opts.Limit, opts.Offset)
}

// Upsert creates the item or, when the (shop, productId, batchId) key already
// exists, refreshes the upload-owned columns while preserving catalog data
// and the version counter.
func (r *shelfLifeRepository) Upsert(ctx context.Context, item *models.ShelfLifeItem) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shop"}, {Name: "product_id"}, {Name: "batch_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"expiration_date", "quantity", "batch_quantity", "location", "updated_at",
		}),
	}).Create(item).Error
	if err != nil {
		return err
	}
	r.invalidateListCache(ctx, item.Shop)
	return nil
}

// GetByID retrieves an item by ID scoped to a shop
func (r *shelfLifeRepository) GetByID(ctx context.Context, shop string, id uuid.UUID) (*models.ShelfLifeItem, error) {
	var item models.ShelfLifeItem
	if err := r.db.WithContext(ctx).Where("shop = ? AND id = ?", shop, id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// GetByVariantID retrieves the most recently updated item matched to a variant
func (r *shelfLifeRepository) GetByVariantID(ctx context.Context, shop, variantID string) (*models.ShelfLifeItem, error) {
	var item models.ShelfLifeItem
	if err := r.db.WithContext(ctx).
		Where("shop = ? AND shopify_variant_id = ?", shop, variantID).
		Order("updated_at DESC").
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// List retrieves items for a shop with optional filters and pagination
func (r *shelfLifeRepository) List(ctx context.Context, shop string, filter ShelfLifeFilter, opts ListOptions) ([]models.ShelfLifeItem, int64, error) {
	type cachedList struct {
		Items []models.ShelfLifeItem `json:"items"`
		Total int64                  `json:"total"`
	}

	key := listCacheKey(shop, filter, opts)
	if r.cache != nil {
		if raw, err := r.cache.Get(ctx, key).Result(); err == nil {
			var cached cachedList
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return cached.Items, cached.Total, nil
			}
		}
	}

	var items []models.ShelfLifeItem
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ShelfLifeItem{}).Where("shop = ?", shop)
	if filter.SyncStatus != "" {
		query = query.Where("sync_status = ?", filter.SyncStatus)
	}
	if filter.ExpiringInDays > 0 {
		query = query.Where("expiration_date <= ?", time.Now().AddDate(0, 0, filter.ExpiringInDays))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit).Offset(opts.Offset)
	}

	if err := query.Order("expiration_date ASC").Find(&items).Error; err != nil {
		return nil, 0, err
	}

	if r.cache != nil {
		if raw, err := json.Marshal(cachedList{Items: items, Total: total}); err == nil {
			if err := r.cache.Set(ctx, key, raw, listCacheTTL).Err(); err != nil {
				r.log.WithError(err).Warn("Failed to cache shelf-life list")
			}
		}
	}

	return items, total, nil
}

// ListPending retrieves all items awaiting catalog reconciliation
func (r *shelfLifeRepository) ListPending(ctx context.Context, shop string) ([]models.ShelfLifeItem, error) {
	var items []models.ShelfLifeItem
	if err := r.db.WithContext(ctx).
		Where("shop = ? AND sync_status = ?", shop, models.SyncPending).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListMatchedExpiringBy retrieves matched items whose expiration date falls
// on or before the given cutoff
func (r *shelfLifeRepository) ListMatchedExpiringBy(ctx context.Context, shop string, before time.Time) ([]models.ShelfLifeItem, error) {
	var items []models.ShelfLifeItem
	if err := r.db.WithContext(ctx).
		Where("shop = ? AND sync_status = ? AND expiration_date <= ?", shop, models.SyncMatched, before).
		Order("expiration_date ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Update saves an item without version checking
func (r *shelfLifeRepository) Update(ctx context.Context, item *models.ShelfLifeItem) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return err
	}
	r.invalidateListCache(ctx, item.Shop)
	return nil
}

// ErrStaleItem is returned when an optimistic-concurrency update loses the race
var ErrStaleItem = fmt.Errorf("shelf-life item was modified concurrently")

// UpdateWithVersion saves an item only if its version column is unchanged,
// incrementing it on success
func (r *shelfLifeRepository) UpdateWithVersion(ctx context.Context, item *models.ShelfLifeItem) error {
	currentVersion := item.Version
	item.Version = currentVersion + 1

	result := r.db.WithContext(ctx).
		Model(&models.ShelfLifeItem{}).
		Where("id = ? AND version = ?", item.ID, currentVersion).
		Updates(item)
	if result.Error != nil {
		item.Version = currentVersion
		return result.Error
	}
	if result.RowsAffected == 0 {
		item.Version = currentVersion
		return ErrStaleItem
	}
	r.invalidateListCache(ctx, item.Shop)
	return nil
}

// Delete removes an item scoped to a shop
func (r *shelfLifeRepository) Delete(ctx context.Context, shop string, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("shop = ?", shop).Delete(&models.ShelfLifeItem{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.invalidateListCache(ctx, shop)
	return nil
}

// DeleteBulk removes a set of items by ID. Ledger rows are left in place,
// price history outlives the item.
func (r *shelfLifeRepository) DeleteBulk(ctx context.Context, shop string, ids []uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("shop = ? AND id IN ?", shop, ids).Delete(&models.ShelfLifeItem{})
	if result.Error != nil {
		return 0, result.Error
	}
	r.invalidateListCache(ctx, shop)
	return result.RowsAffected, nil
}

// DeleteAll removes every item for a shop
func (r *shelfLifeRepository) DeleteAll(ctx context.Context, shop string) (int64, error) {
	result := r.db.WithContext(ctx).Where("shop = ?", shop).Delete(&models.ShelfLifeItem{})
	if result.Error != nil {
		return 0, result.Error
	}
	r.invalidateListCache(ctx, shop)
	return result.RowsAffected, nil
}

func (r *shelfLifeRepository) invalidateListCache(ctx context.Context, shop string) {
	if r.cache == nil {
		return
	}
	pattern := fmt.Sprintf("shelflife:items:%s:*", shop)
	iter := r.cache.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := r.cache.Del(ctx, iter.Val()).Err(); err != nil {
			r.log.WithError(err).Warn("Failed to invalidate shelf-life list cache")
		}
	}
	if err := iter.Err(); err != nil {
		r.log.WithError(err).Warn("Failed to scan shelf-life list cache keys")
	}
}
