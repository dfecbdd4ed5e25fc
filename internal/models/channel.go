package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrIncompleteChannel is returned when a channel lacks connection settings
var ErrIncompleteChannel = errors.New("storefront channel is not configured")

// DefaultOrderPrefix is prepended to remote increment ids to build sale references
const DefaultOrderPrefix = "mag_"

// Channel is one storefront connection. Remote ids are unique only within a channel.
type Channel struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	URL            string    `gorm:"not null" json:"url"`
	APIUser        string    `gorm:"not null" json:"api_user"`
	APIKey         string    `gorm:"not null" json:"-"`
	WebsiteID      int       `json:"website_id"`
	WebsiteCode    string    `json:"website_code"`
	WebsiteName    string    `json:"website_name"`
	StoreID        int       `json:"store_id"`
	StoreName      string    `json:"store_name"`
	RootCategoryID int       `gorm:"not null;default:1" json:"root_category_id"`
	AttributeSetID int       `gorm:"not null;default:4" json:"attribute_set_id"` // used when exporting new products
	OrderPrefix    string    `gorm:"not null;default:mag_" json:"order_prefix"`
	ExportTracking bool      `gorm:"not null" json:"export_tracking"`
	Active         bool      `gorm:"not null;index" json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	PriceTiers []ChannelPriceTier `gorm:"foreignKey:ChannelID" json:"price_tiers,omitempty"`
}

func (Channel) TableName() string {
	return "channels"
}

// Validate checks that the channel can open a storefront session
func (c *Channel) Validate() error {
	if c.URL == "" || c.APIUser == "" || c.APIKey == "" {
		return ErrIncompleteChannel
	}
	return nil
}

// SaleReference builds the local sale reference for a remote increment id
func (c *Channel) SaleReference(incrementID string) string {
	prefix := c.OrderPrefix
	if prefix == "" {
		prefix = DefaultOrderPrefix
	}
	return prefix + incrementID
}

// IncrementID recovers the remote increment id from a sale reference
func (c *Channel) IncrementID(reference string) string {
	prefix := c.OrderPrefix
	if prefix == "" {
		prefix = DefaultOrderPrefix
	}
	return strings.TrimPrefix(reference, prefix)
}

// ChannelPriceTier is a default tier quantity used when a listing has no tiers of its own
type ChannelPriceTier struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ChannelID uint            `gorm:"not null;uniqueIndex:idx_channel_price_tier" json:"channel_id"`
	Quantity  decimal.Decimal `gorm:"type:numeric(16,4);not null;uniqueIndex:idx_channel_price_tier" json:"quantity"`
}

func (ChannelPriceTier) TableName() string {
	return "channel_price_tiers"
}
