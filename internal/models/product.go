package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnclassifiedCategory is the fallback category for products without a remote category
const UnclassifiedCategory = "Unclassified Magento Products"

// Category forms a tree through ParentID
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;index" json:"name"`
	ParentID  *uint     `gorm:"index" json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Category) TableName() string {
	return "categories"
}

// Product is a sellable local product. Code holds the storefront SKU.
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Code        string          `gorm:"index" json:"code"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	ListPrice   decimal.Decimal `gorm:"type:numeric(16,4);not null" json:"list_price"`
	CostPrice   decimal.Decimal `gorm:"type:numeric(16,4);not null" json:"cost_price"`
	Quantity    decimal.Decimal `gorm:"type:numeric(16,4);not null" json:"quantity"` // on hand
	CategoryID  *uint           `gorm:"index" json:"category_id,omitempty"`
	Category    *Category       `json:"category,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `gorm:"index" json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

// Remote product types, carried through unchanged from the storefront
const (
	ProductTypeSimple       = "simple"
	ProductTypeConfigurable = "configurable"
	ProductTypeGrouped      = "grouped"
	ProductTypeBundle       = "bundle"
	ProductTypeVirtual      = "virtual"
	ProductTypeDownloadable = "downloadable"
)

// ProductListing records that a product is sold on a channel
type ProductListing struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	ChannelID         uint        `gorm:"not null;uniqueIndex:idx_listing_channel_product" json:"channel_id"`
	ProductID         uint        `gorm:"not null;uniqueIndex:idx_listing_channel_product" json:"product_id"`
	Product           *Product    `json:"product,omitempty"`
	ProductIdentifier string      `gorm:"not null" json:"product_identifier"`
	RemoteProductType string      `json:"remote_product_type"`
	PriceTiers        []PriceTier `gorm:"foreignKey:ListingID" json:"price_tiers,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

func (ProductListing) TableName() string {
	return "product_listings"
}

// PriceTier is a quantity break for one listing
type PriceTier struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ListingID uint            `gorm:"not null;uniqueIndex:idx_price_tier_listing_qty" json:"listing_id"`
	Quantity  decimal.Decimal `gorm:"type:numeric(16,4);not null;uniqueIndex:idx_price_tier_listing_qty" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(16,4);not null" json:"price"`
}

func (PriceTier) TableName() string {
	return "price_tiers"
}
