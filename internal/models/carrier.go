package models

// Carrier is a local carrier. ProductID is the product billed on shipping lines.
type Carrier struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"not null" json:"name"`
	ProductID *uint  `json:"product_id,omitempty"`
}

func (Carrier) TableName() string {
	return "carriers"
}

// ChannelCarrier is a storefront shipping method, optionally mapped to a local carrier
type ChannelCarrier struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	ChannelID uint     `gorm:"not null;uniqueIndex:idx_channel_carrier_code" json:"channel_id"`
	Code      string   `gorm:"not null;uniqueIndex:idx_channel_carrier_code" json:"code"`
	Title     string   `json:"title"`
	CarrierID *uint    `json:"carrier_id,omitempty"`
	Carrier   *Carrier `json:"carrier,omitempty"`
}

func (ChannelCarrier) TableName() string {
	return "channel_carriers"
}

// OrderStateMapping maps a storefront order state to local workflow policy
type OrderStateMapping struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	ChannelID      uint   `gorm:"not null;uniqueIndex:idx_order_state_code" json:"channel_id"`
	Code           string `gorm:"not null;uniqueIndex:idx_order_state_code" json:"code"`
	Name           string `gorm:"not null" json:"name"`
	State          string `gorm:"not null" json:"state"`
	InvoiceMethod  string `gorm:"not null" json:"invoice_method"`
	ShipmentMethod string `gorm:"not null" json:"shipment_method"`
	UseForImport   bool   `gorm:"not null" json:"use_for_import"`
}

func (OrderStateMapping) TableName() string {
	return "order_state_mappings"
}
