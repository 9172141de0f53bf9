package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DailyDiscountStatus represents the lifecycle state of a daily discount
type DailyDiscountStatus string

const (
	DailyDiscountActive   DailyDiscountStatus = "ACTIVE"
	DailyDiscountReverted DailyDiscountStatus = "REVERTED"
)

// DailyDiscountLog records one randomly selected variant discounted for the
// day, with enough state to restore the original price on revert.
type DailyDiscountLog struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Shop string    `gorm:"type:varchar(255);not null;index:idx_daily_discounts_shop" json:"shop"`

	ShopifyProductID string `gorm:"type:varchar(255);not null" json:"shopifyProductId"`
	ShopifyVariantID string `gorm:"type:varchar(255);not null;index:idx_daily_discounts_variant" json:"shopifyVariantId"`
	ProductTitle     string `gorm:"type:varchar(500)" json:"productTitle"`
	VariantTitle     string `gorm:"type:varchar(500)" json:"variantTitle"`

	OriginalPrice   float64 `gorm:"not null" json:"originalPrice"`
	DiscountedPrice float64 `gorm:"not null" json:"discountedPrice"`
	MarginDiscount  float64 `gorm:"not null" json:"marginDiscount"`

	Status DailyDiscountStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index:idx_daily_discounts_status" json:"status"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for DailyDiscountLog
func (DailyDiscountLog) TableName() string {
	return "daily_discount_logs"
}

// BeforeCreate assigns an ID when the caller has not set one
func (d *DailyDiscountLog) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
