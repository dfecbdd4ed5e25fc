package models

import "time"

// Exception origins
const (
	OriginSale     = "sale"
	OriginSaleLine = "sale_line"
)

// ExceptionRecord is an append-only diagnostic attached to the sale or line that failed
type ExceptionRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OriginModel string    `gorm:"not null;index:idx_exception_origin" json:"origin_model"`
	OriginID    uint      `gorm:"not null;index:idx_exception_origin" json:"origin_id"`
	Log         string    `gorm:"type:text;not null" json:"log"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (ExceptionRecord) TableName() string {
	return "integration_exceptions"
}
