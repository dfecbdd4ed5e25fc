package models

import "github.com/shopspring/decimal"

// Country is looked up by its ISO code
type Country struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"size:2;uniqueIndex;not null" json:"code"`
	Name string `gorm:"not null" json:"name"`
}

func (Country) TableName() string {
	return "countries"
}

// Subdivision is a state or region within a country
type Subdivision struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	CountryID uint   `gorm:"not null;index" json:"country_id"`
	Code      string `gorm:"index" json:"code"`
	Name      string `gorm:"not null" json:"name"`
}

func (Subdivision) TableName() string {
	return "subdivisions"
}

// Currency is looked up by its ISO code
type Currency struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"size:3;uniqueIndex;not null" json:"code"`
	Name string `json:"name"`
}

func (Currency) TableName() string {
	return "currencies"
}

// Tax is a local tax definition
type Tax struct {
	ID   uint            `gorm:"primaryKey" json:"id"`
	Name string          `gorm:"not null" json:"name"`
	Rate decimal.Decimal `gorm:"type:numeric(16,4);not null" json:"rate"`
}

func (Tax) TableName() string {
	return "taxes"
}

// ChannelTax maps a remote tax percentage to the local taxes applied on a channel
type ChannelTax struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	ChannelID  uint            `gorm:"not null;uniqueIndex:idx_channel_tax_percent" json:"channel_id"`
	TaxPercent decimal.Decimal `gorm:"type:numeric(16,4);not null;uniqueIndex:idx_channel_tax_percent" json:"tax_percent"`
	Taxes      []Tax           `gorm:"many2many:channel_tax_taxes" json:"taxes"`
}

func (ChannelTax) TableName() string {
	return "channel_taxes"
}
