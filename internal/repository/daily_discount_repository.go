package repository

import (
	"context"

	"gorm.io/gorm"

	"shelflife-service/internal/models"
)

// DailyDiscountRepository handles daily discount log persistence
type DailyDiscountRepository interface {
	Create(ctx context.Context, log *models.DailyDiscountLog) error
	ListActive(ctx context.Context, shop string) ([]models.DailyDiscountLog, error)
	List(ctx context.Context, shop string, opts ListOptions) ([]models.DailyDiscountLog, int64, error)
	Update(ctx context.Context, log *models.DailyDiscountLog) error
}

type dailyDiscountRepository struct {
	db *gorm.DB
}

// NewDailyDiscountRepository creates a new daily discount repository
func NewDailyDiscountRepository(db *gorm.DB) DailyDiscountRepository {
	return &dailyDiscountRepository{db: db}
}

func (r *dailyDiscountRepository) Create(ctx context.Context, log *models.DailyDiscountLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// ListActive retrieves discounts not yet reverted
func (r *dailyDiscountRepository) ListActive(ctx context.Context, shop string) ([]models.DailyDiscountLog, error) {
	var logs []models.DailyDiscountLog
	if err := r.db.WithContext(ctx).
		Where("shop = ? AND status = ?", shop, models.DailyDiscountActive).
		Order("created_at DESC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// List retrieves discount logs for a shop with pagination, most recent first
func (r *dailyDiscountRepository) List(ctx context.Context, shop string, opts ListOptions) ([]models.DailyDiscountLog, int64, error) {
	var logs []models.DailyDiscountLog
	var total int64

	query := r.db.WithContext(ctx).Model(&models.DailyDiscountLog{}).Where("shop = ?", shop)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit).Offset(opts.Offset)
	}

	if err := query.Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

func (r *dailyDiscountRepository) Update(ctx context.Context, log *models.DailyDiscountLog) error {
	return r.db.WithContext(ctx).Save(log).Error
}
