package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shelflife-service/internal/models"
)

// PriceChangeFilter narrows ledger list queries
type PriceChangeFilter struct {
	VariantID string
	Reason    models.PriceChangeReason
	Status    models.PriceChangeStatus
}

// PriceChangeRepository handles the append-only price ledger
type PriceChangeRepository interface {
	Create(ctx context.Context, change *models.ShelfLifeItemPriceChange) error
	List(ctx context.Context, shop string, filter PriceChangeFilter, opts ListOptions) ([]models.ShelfLifeItemPriceChange, int64, error)
	ListForItem(ctx context.Context, shop string, itemID uuid.UUID) ([]models.ShelfLifeItemPriceChange, error)
	LatestForItem(ctx context.Context, shop string, itemID uuid.UUID) (*models.ShelfLifeItemPriceChange, error)
	LatestForVariant(ctx context.Context, shop, variantID string) (*models.ShelfLifeItemPriceChange, error)
	ListActiveAutomatic(ctx context.Context, shop string) ([]models.ShelfLifeItemPriceChange, error)
	MarkReverted(ctx context.Context, shop, variantID string, exceptID uuid.UUID) error
}

type priceChangeRepository struct {
	db *gorm.DB
}

// NewPriceChangeRepository creates a new price-change repository
func NewPriceChangeRepository(db *gorm.DB) PriceChangeRepository {
	return &priceChangeRepository{db: db}
}

// Create appends a ledger row
func (r *priceChangeRepository) Create(ctx context.Context, change *models.ShelfLifeItemPriceChange) error {
	return r.db.WithContext(ctx).Create(change).Error
}

// List retrieves ledger rows for a shop, most recent first
func (r *priceChangeRepository) List(ctx context.Context, shop string, filter PriceChangeFilter, opts ListOptions) ([]models.ShelfLifeItemPriceChange, int64, error) {
	var changes []models.ShelfLifeItemPriceChange
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ShelfLifeItemPriceChange{}).Where("shop = ?", shop)
	if filter.VariantID != "" {
		query = query.Where("shopify_variant_id = ?", filter.VariantID)
	}
	if filter.Reason != "" {
		query = query.Where("reason = ?", filter.Reason)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit).Offset(opts.Offset)
	}

	if err := query.Order("applied_at DESC").Find(&changes).Error; err != nil {
		return nil, 0, err
	}

	return changes, total, nil
}

// ListForItem retrieves the full price history of one item, most recent first
func (r *priceChangeRepository) ListForItem(ctx context.Context, shop string, itemID uuid.UUID) ([]models.ShelfLifeItemPriceChange, error) {
	var changes []models.ShelfLifeItemPriceChange
	if err := r.db.WithContext(ctx).
		Where("shop = ? AND shelf_life_item_id = ?", shop, itemID).
		Order("applied_at DESC").
		Find(&changes).Error; err != nil {
		return nil, err
	}
	return changes, nil
}

// LatestForItem retrieves the most recent ledger row for an item, or nil when
// the item has no history
func (r *priceChangeRepository) LatestForItem(ctx context.Context, shop string, itemID uuid.UUID) (*models.ShelfLifeItemPriceChange, error) {
	var change models.ShelfLifeItemPriceChange
	err := r.db.WithContext(ctx).
		Where("shop = ? AND shelf_life_item_id = ?", shop, itemID).
		Order("applied_at DESC").
		First(&change).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &change, nil
}

// LatestForVariant retrieves the most recent ledger row for a variant, or nil
// when the variant has no history
func (r *priceChangeRepository) LatestForVariant(ctx context.Context, shop, variantID string) (*models.ShelfLifeItemPriceChange, error) {
	var change models.ShelfLifeItemPriceChange
	err := r.db.WithContext(ctx).
		Where("shop = ? AND shopify_variant_id = ?", shop, variantID).
		Order("applied_at DESC").
		First(&change).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &change, nil
}

// ListActiveAutomatic retrieves all automatic discounts still in APPLIED
// state for a shop, most recent first
func (r *priceChangeRepository) ListActiveAutomatic(ctx context.Context, shop string) ([]models.ShelfLifeItemPriceChange, error) {
	var changes []models.ShelfLifeItemPriceChange
	if err := r.db.WithContext(ctx).
		Where("shop = ? AND reason = ? AND status = ?",
			shop, models.ReasonAutomaticDiscount, models.PriceChangeApplied).
		Order("applied_at DESC").
		Find(&changes).Error; err != nil {
		return nil, err
	}
	return changes, nil
}

// MarkReverted flips all APPLIED automatic rows for a variant to REVERTED,
// excluding the reversion row itself
func (r *priceChangeRepository) MarkReverted(ctx context.Context, shop, variantID string, exceptID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ShelfLifeItemPriceChange{}).
		Where("shop = ? AND shopify_variant_id = ? AND reason = ? AND status = ? AND id <> ?",
			shop, variantID, models.ReasonAutomaticDiscount, models.PriceChangeApplied, exceptID).
		Update("status", models.PriceChangeReverted).Error
}
