package models

import "time"

// Export kinds tracked by watermarks
const (
	WatermarkOrderImport = "order_import"
	WatermarkOrderStatus = "order_status"
	WatermarkShipment    = "shipment"
	WatermarkInventory   = "inventory"
	WatermarkTierPrice   = "tier_price"
)

// ExportWatermark is the last run time of one export kind on one channel
type ExportWatermark struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	ChannelID uint       `gorm:"not null;uniqueIndex:idx_watermark_channel_kind" json:"channel_id"`
	Kind      string     `gorm:"not null;uniqueIndex:idx_watermark_channel_kind" json:"kind"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
}

func (ExportWatermark) TableName() string {
	return "export_watermarks"
}
