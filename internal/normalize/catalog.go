package normalize

import (
	"github.com/shopspring/decimal"

	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/storefront"
)

// Category is one node of the storefront category tree
type Category struct {
	RemoteID int        `remote:"category_id" validate:"required"`
	Name     string     `remote:"name" validate:"required"`
	ParentID int        `remote:"parent_id"`
	Children []Category `validate:"-"`
}

// Size counts the node and all of its descendants
func (c Category) Size() int {
	n := 1
	for _, child := range c.Children {
		n += child.Size()
	}
	return n
}

// NewCategory normalizes a category payload, including nested children
func NewCategory(rec storefront.Record) (Category, error) {
	c := Category{
		RemoteID: integer(rec, "category_id"),
		Name:     text(rec, "name"),
		ParentID: integer(rec, "parent_id"),
	}
	if err := check("category", c); err != nil {
		return Category{}, err
	}

	children, _ := list(rec, "children")
	for _, childRec := range children {
		child, err := NewCategory(childRec)
		if err != nil {
			return Category{}, err
		}
		c.Children = append(c.Children, child)
	}
	return c, nil
}

// Product is a storefront catalog product
type Product struct {
	RemoteID    int             `remote:"product_id" validate:"required"`
	SKU         string          `remote:"sku" validate:"required"`
	Type        string          `remote:"type" validate:"required"`
	Name        string          `remote:"name"`
	Description string          `remote:"description"`
	ListPrice   decimal.Decimal `remote:"price"`
	CostPrice   decimal.Decimal `remote:"cost"`
	CategoryID  int             `remote:"categories"` // 0 means use the fallback category
}

// IsKnownType reports whether Type is one of the storefront's standard product types
func (p Product) IsKnownType() bool {
	switch p.Type {
	case models.ProductTypeSimple, models.ProductTypeConfigurable, models.ProductTypeGrouped,
		models.ProductTypeBundle, models.ProductTypeVirtual, models.ProductTypeDownloadable:
		return true
	}
	return false
}

// NewProduct normalizes a catalog_product payload.
// Name falls back to "SKU: <sku>"; price prefers special_price over price and defaults to zero.
func NewProduct(rec storefront.Record) (Product, error) {
	p := Product{
		RemoteID:    integer(rec, "product_id"),
		SKU:         text(rec, "sku"),
		Type:        text(rec, "type"),
		Name:        text(rec, "name"),
		Description: text(rec, "description"),
		CostPrice:   numberOr(rec, "cost", decimal.Zero),
		CategoryID:  firstInt(rec, "categories"),
	}
	if err := check("product", p); err != nil {
		return Product{}, err
	}

	if p.Name == "" {
		p.Name = "SKU: " + p.SKU
	}
	if price, ok := number(rec, "special_price"); ok {
		p.ListPrice = price
	} else {
		p.ListPrice = numberOr(rec, "price", decimal.Zero)
	}
	if p.CategoryID == 0 {
		p.CategoryID = firstInt(rec, "category_ids")
	}
	return p, nil
}
