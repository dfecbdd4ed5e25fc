package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// SaleState is the local sale workflow state
type SaleState string

const (
	SaleDraft      SaleState = "draft"
	SaleQuotation  SaleState = "quotation"
	SaleConfirmed  SaleState = "confirmed"
	SaleProcessing SaleState = "processing"
	SaleDone       SaleState = "done"
	SaleCancelled  SaleState = "cancel"
)

// Invoice and shipment policies
const (
	MethodManual   = "manual"
	MethodOrder    = "order"
	MethodInvoice  = "invoice"
	MethodShipment = "shipment"
)

// Shipment states of a sale
const (
	ShipmentStateNone    = "none"
	ShipmentStateWaiting = "waiting"
	ShipmentStateSent    = "sent"
)

// Sale is a local sales order, usually imported from a storefront
type Sale struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Reference         string         `gorm:"index" json:"reference"`
	ChannelID         uint           `gorm:"not null;index;uniqueIndex:idx_sales_channel_remote,where:remote_order_id <> 0" json:"channel_id"`
	RemoteOrderID     int            `gorm:"not null;uniqueIndex:idx_sales_channel_remote,where:remote_order_id <> 0" json:"remote_order_id"`
	RemoteIncrementID string         `json:"remote_increment_id"`
	RemoteState       string         `json:"remote_state"`
	PartyID           uint           `gorm:"not null;index" json:"party_id"`
	Party             *Party         `json:"party,omitempty"`
	InvoiceAddressID  uint           `json:"invoice_address_id"`
	ShipmentAddressID uint           `json:"shipment_address_id"`
	CurrencyID        uint           `gorm:"not null" json:"currency_id"`
	SaleDate          time.Time      `json:"sale_date"`
	State             SaleState      `gorm:"not null;default:draft;index" json:"state"`
	InvoiceMethod     string         `gorm:"not null;default:order" json:"invoice_method"`
	ShipmentMethod    string         `gorm:"not null;default:order" json:"shipment_method"`
	ShipmentState     string         `gorm:"not null;default:none;index" json:"shipment_state"`
	HasException      bool           `gorm:"not null;index" json:"has_exception"`
	RawData           datatypes.JSON `json:"raw_data,omitempty"`
	Lines             []SaleLine     `gorm:"foreignKey:SaleID" json:"lines,omitempty"`
	Shipments         []Shipment     `gorm:"foreignKey:SaleID" json:"shipments,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`
}

func (Sale) TableName() string {
	return "sales"
}

// Sale line kinds
const (
	LineProduct  = "product"
	LineShipping = "shipping"
	LineDiscount = "discount"
)

// SaleLine is one line of a sale. ProductID is nil when the remote product could not be resolved.
type SaleLine struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	SaleID       uint            `gorm:"not null;index" json:"sale_id"`
	Sequence     int             `gorm:"not null" json:"sequence"`
	Kind         string          `gorm:"not null;default:product" json:"kind"`
	Description  string          `gorm:"type:text" json:"description"`
	ProductID    *uint           `gorm:"index" json:"product_id,omitempty"`
	Quantity     decimal.Decimal `gorm:"type:numeric(16,4);not null" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:numeric(16,4);not null" json:"unit_price"`
	RemoteItemID *int            `json:"remote_item_id,omitempty"`
	Taxes        []Tax           `gorm:"many2many:sale_line_taxes" json:"taxes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (SaleLine) TableName() string {
	return "sale_lines"
}
