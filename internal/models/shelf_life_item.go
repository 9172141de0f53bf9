package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncStatus represents the reconciliation state of a shelf-life item
type SyncStatus string

const (
	SyncPending   SyncStatus = "PENDING"
	SyncMatched   SyncStatus = "MATCHED"
	SyncUnmatched SyncStatus = "UNMATCHED"
)

// ShelfLifeItem represents one tracked batch of a product, keyed by
// (shop, productId, batchId). Items are created by CSV ingest and stamped
// with catalog data by the reconciliation pass.
type ShelfLifeItem struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Shop string    `gorm:"type:varchar(255);not null;index:idx_shelf_life_items_shop;uniqueIndex:idx_shelf_life_items_natural_key,priority:1" json:"shop"`

	// Natural key from the upload
	ProductID string `gorm:"type:varchar(255);not null;uniqueIndex:idx_shelf_life_items_natural_key,priority:2" json:"productId"`
	BatchID   string `gorm:"type:varchar(32);not null;uniqueIndex:idx_shelf_life_items_natural_key,priority:3" json:"batchId"`

	ExpirationDate time.Time `gorm:"not null;index:idx_shelf_life_items_expiration" json:"expirationDate"`
	Quantity       int       `gorm:"not null;default:0" json:"quantity"`
	BatchQuantity  *int      `json:"batchQuantity,omitempty"`
	Location       *string   `gorm:"type:varchar(255)" json:"location,omitempty"`

	// Catalog data, populated once the item is matched by SKU
	ShopifyProductID    *string  `gorm:"type:varchar(255)" json:"shopifyProductId,omitempty"`
	ShopifyVariantID    *string  `gorm:"type:varchar(255);index:idx_shelf_life_items_variant" json:"shopifyVariantId,omitempty"`
	ShopifyProductTitle *string  `gorm:"type:varchar(500)" json:"shopifyProductTitle,omitempty"`
	ShopifyVariantTitle *string  `gorm:"type:varchar(500)" json:"shopifyVariantTitle,omitempty"`
	VariantPrice        *float64 `json:"variantPrice,omitempty"`
	VariantCost         *float64 `json:"variantCost,omitempty"`
	CurrencyCode        *string  `gorm:"type:varchar(10)" json:"currencyCode,omitempty"`

	SyncStatus  SyncStatus `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_shelf_life_items_sync_status" json:"syncStatus"`
	SyncMessage *string    `gorm:"type:text" json:"syncMessage,omitempty"`

	// Optimistic concurrency guard for price-bearing updates
	Version int `gorm:"not null;default:1" json:"version"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`

	// Relationships
	PriceChanges []ShelfLifeItemPriceChange `gorm:"foreignKey:ShelfLifeItemID" json:"priceChanges,omitempty"`
}

// TableName specifies the table name for ShelfLifeItem
func (ShelfLifeItem) TableName() string {
	return "shelf_life_items"
}

// BeforeCreate assigns an ID when the caller has not set one
func (i *ShelfLifeItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// IsMatched reports whether the item carries the catalog data the pricing
// engine needs
func (i *ShelfLifeItem) IsMatched() bool {
	return i.SyncStatus == SyncMatched && i.ShopifyVariantID != nil && *i.ShopifyVariantID != ""
}
