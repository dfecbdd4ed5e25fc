package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BOM is a bill of materials: a set of inputs producing one output
type BOM struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Name      string      `gorm:"not null" json:"name"`
	Inputs    []BOMInput  `gorm:"foreignKey:BOMID" json:"inputs"`
	Outputs   []BOMOutput `gorm:"foreignKey:BOMID" json:"outputs"`
	CreatedAt time.Time   `json:"created_at"`
}

func (BOM) TableName() string {
	return "boms"
}

// BOMInput is a component quantity per unit of output
type BOMInput struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	BOMID     uint            `gorm:"column:bom_id;not null;index" json:"bom_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Quantity  decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"quantity"`
}

func (BOMInput) TableName() string {
	return "bom_inputs"
}

// BOMOutput is the product a BOM produces
type BOMOutput struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	BOMID     uint            `gorm:"column:bom_id;not null;index" json:"bom_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Quantity  decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"quantity"`
}

func (BOMOutput) TableName() string {
	return "bom_outputs"
}

// ProductBOM attaches a BOM to the product it builds
type ProductBOM struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	ProductID uint `gorm:"not null;uniqueIndex:idx_product_bom" json:"product_id"`
	BOMID     uint `gorm:"column:bom_id;not null;uniqueIndex:idx_product_bom" json:"bom_id"`
	Sequence  int  `json:"sequence"`
}

func (ProductBOM) TableName() string {
	return "product_boms"
}
