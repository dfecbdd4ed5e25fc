package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shipment states
const (
	ShipmentDraft    = "draft"
	ShipmentWaiting  = "waiting"
	ShipmentAssigned = "assigned"
	ShipmentPacked   = "packed"
	ShipmentDone     = "done"
	ShipmentCancel   = "cancel"
)

// Shipment is an outgoing delivery for a sale
type Shipment struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	SaleID            uint           `gorm:"not null;index" json:"sale_id"`
	State             string         `gorm:"not null;default:draft" json:"state"`
	CarrierID         *uint          `json:"carrier_id,omitempty"`
	Carrier           *Carrier       `json:"carrier,omitempty"`
	TrackingNumber    string         `json:"tracking_number"`
	RemoteIncrementID string         `json:"remote_increment_id"`
	TrackingExported  bool           `gorm:"not null" json:"tracking_exported"`
	Moves             []ShipmentMove `gorm:"foreignKey:ShipmentID" json:"moves,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func (Shipment) TableName() string {
	return "shipments"
}

// ShipmentMove ships a quantity of one sale line
type ShipmentMove struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	ShipmentID uint            `gorm:"not null;index" json:"shipment_id"`
	SaleLineID uint            `gorm:"not null;index" json:"sale_line_id"`
	SaleLine   *SaleLine       `json:"sale_line,omitempty"`
	Quantity   decimal.Decimal `gorm:"type:numeric(16,4);not null" json:"quantity"`
}

func (ShipmentMove) TableName() string {
	return "shipment_moves"
}
