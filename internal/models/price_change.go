package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PriceChangeReason classifies why a price change was recorded
type PriceChangeReason string

const (
	ReasonAutomaticDiscount PriceChangeReason = "AUTOMATIC_DISCOUNT"
	ReasonManualPriceChange PriceChangeReason = "MANUAL_PRICE_CHANGE"
	ReasonReversion         PriceChangeReason = "REVERSION"
)

// PriceChangeStatus represents the lifecycle state of a ledger row
type PriceChangeStatus string

const (
	PriceChangeApplied  PriceChangeStatus = "APPLIED"
	PriceChangeReverted PriceChangeStatus = "REVERTED"
)

// ShelfLifeItemPriceChange is one row in the append-only price ledger.
// Rows are never updated except to flip Status from APPLIED to REVERTED
// when a reversion supersedes them.
type ShelfLifeItemPriceChange struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Shop string    `gorm:"type:varchar(255);not null;index:idx_price_changes_shop" json:"shop"`

	ShelfLifeItemID *uuid.UUID `gorm:"type:uuid;index:idx_price_changes_item" json:"shelfLifeItemId,omitempty"`

	ShopifyProductID string `gorm:"type:varchar(255);not null" json:"shopifyProductId"`
	ShopifyVariantID string `gorm:"type:varchar(255);not null;index:idx_price_changes_variant" json:"shopifyVariantId"`

	OriginalPrice     float64  `gorm:"not null" json:"originalPrice"`
	OriginalCompareAt *float64 `json:"originalCompareAt,omitempty"`
	NewPrice          float64  `gorm:"not null" json:"newPrice"`
	NewCompareAt      *float64 `json:"newCompareAt,omitempty"`
	CurrencyCode      *string  `gorm:"type:varchar(10)" json:"currencyCode,omitempty"`

	Reason PriceChangeReason `gorm:"type:varchar(32);not null;index:idx_price_changes_reason" json:"reason"`
	Status PriceChangeStatus `gorm:"type:varchar(20);not null;default:'APPLIED'" json:"status"`
	Notes  *string           `gorm:"type:text" json:"notes,omitempty"`

	AppliedAt       time.Time `gorm:"not null;index:idx_price_changes_applied" json:"appliedAt"`
	AppliedByUserID *string   `gorm:"type:varchar(255)" json:"appliedByUserId,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for ShelfLifeItemPriceChange
func (ShelfLifeItemPriceChange) TableName() string {
	return "shelf_life_item_price_changes"
}

// BeforeCreate assigns an ID and applied timestamp when the caller has not
// set them
func (c *ShelfLifeItemPriceChange) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.AppliedAt.IsZero() {
		c.AppliedAt = time.Now().UTC()
	}
	return nil
}
