package models

import "time"

// Identity links map a storefront id within a channel to a local row.
// Each kind has its own table; all share the remote_id/channel_id/local_id layout.

// PartyLink links a storefront customer. Remote id 0 marks a guest and may repeat.
type PartyLink struct {
	ID        uint      `gorm:"primaryKey"`
	RemoteID  int       `gorm:"not null;uniqueIndex:idx_party_links_remote,where:remote_id <> 0"`
	ChannelID uint      `gorm:"not null;uniqueIndex:idx_party_links_remote,where:remote_id <> 0"`
	LocalID   uint      `gorm:"not null;index"`
	Channel   Channel   `gorm:"constraint:OnDelete:CASCADE"`
	Party     Party     `gorm:"foreignKey:LocalID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

func (PartyLink) TableName() string {
	return "party_links"
}

// CategoryLink links a storefront category
type CategoryLink struct {
	ID        uint      `gorm:"primaryKey"`
	RemoteID  int       `gorm:"not null;uniqueIndex:idx_category_links_remote"`
	ChannelID uint      `gorm:"not null;uniqueIndex:idx_category_links_remote"`
	LocalID   uint      `gorm:"not null;index"`
	Channel   Channel   `gorm:"constraint:OnDelete:CASCADE"`
	Category  Category  `gorm:"foreignKey:LocalID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

func (CategoryLink) TableName() string {
	return "category_links"
}

// ProductLink links a storefront product
type ProductLink struct {
	ID        uint      `gorm:"primaryKey"`
	RemoteID  int       `gorm:"not null;uniqueIndex:idx_product_links_remote"`
	ChannelID uint      `gorm:"not null;uniqueIndex:idx_product_links_remote"`
	LocalID   uint      `gorm:"not null;index"`
	Channel   Channel   `gorm:"constraint:OnDelete:CASCADE"`
	Product   Product   `gorm:"foreignKey:LocalID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

func (ProductLink) TableName() string {
	return "product_links"
}

// OrderLink links a storefront order to a sale
type OrderLink struct {
	ID        uint      `gorm:"primaryKey"`
	RemoteID  int       `gorm:"not null;uniqueIndex:idx_order_links_remote"`
	ChannelID uint      `gorm:"not null;uniqueIndex:idx_order_links_remote"`
	LocalID   uint      `gorm:"not null;index"`
	Channel   Channel   `gorm:"constraint:OnDelete:CASCADE"`
	Sale      Sale      `gorm:"foreignKey:LocalID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

func (OrderLink) TableName() string {
	return "order_links"
}
