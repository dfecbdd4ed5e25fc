package normalize

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/storefront"
)

// Order is a storefront sales order as returned by sales_order.info
type Order struct {
	RemoteID            int             `remote:"order_id" validate:"required"`
	IncrementID         string          `remote:"increment_id" validate:"required"`
	State               string          `remote:"state" validate:"required"`
	CurrencyCode        string          `remote:"order_currency_code" validate:"required"`
	Customer            Customer        `validate:"-"`
	Billing             Address         `validate:"-"`
	Shipping            *Address        `validate:"-"` // nil for orders without a physical delivery
	Items               []OrderItem     `validate:"-"`
	ShippingAmount      decimal.Decimal `remote:"shipping_amount"`
	ShippingDescription string          `remote:"shipping_description"`
	ShippingMethod      string          `remote:"shipping_method"`
	DiscountAmount      decimal.Decimal `remote:"discount_amount"`
	DiscountDescription string          `remote:"discount_description"`
	CreatedAt           time.Time       `remote:"created_at"`
	UpdatedAt           time.Time       `remote:"updated_at"`
}

// OrderItem is one line item of a storefront order
type OrderItem struct {
	ItemID       int              `remote:"item_id" validate:"required"`
	ProductID    int              `remote:"product_id"`
	SKU          string           `remote:"sku" validate:"required"`
	Name         string           `remote:"name"`
	ProductType  string           `remote:"product_type"`
	ParentItemID int              `remote:"parent_item_id"`
	Quantity     decimal.Decimal  `remote:"qty_ordered"`
	Price        decimal.Decimal  `remote:"price"`
	TaxPercent   *decimal.Decimal `remote:"tax_percent"`
	BundleOption bool             `remote:"product_options"`
}

// IsBundleParent reports whether the item is a top-level bundle
func (i OrderItem) IsBundleParent() bool {
	return i.ProductType == models.ProductTypeBundle && i.ParentItemID == 0
}

// IsBundleChild reports whether the item is a component of a bundle line
func (i OrderItem) IsBundleChild() bool {
	return i.ProductType != models.ProductTypeBundle && i.BundleOption && i.ParentItemID != 0
}

// Description is the line description shown on the sale
func (i OrderItem) Description() string {
	if i.Name != "" {
		return i.Name
	}
	return i.SKU
}

// NewOrder normalizes a full order payload including addresses, customer and items
func NewOrder(rec storefront.Record) (Order, error) {
	o := Order{
		RemoteID:            integer(rec, "order_id"),
		IncrementID:         text(rec, "increment_id"),
		State:               text(rec, "state"),
		CurrencyCode:        text(rec, "order_currency_code"),
		ShippingAmount:      numberOr(rec, "shipping_amount", decimal.Zero),
		ShippingDescription: text(rec, "shipping_description"),
		ShippingMethod:      text(rec, "shipping_method"),
		DiscountAmount:      numberOr(rec, "discount_amount", decimal.Zero),
		DiscountDescription: text(rec, "discount_description"),
		CreatedAt:           timestamp(rec, "created_at"),
		UpdatedAt:           timestamp(rec, "updated_at"),
	}
	if err := check("order", o); err != nil {
		return Order{}, err
	}

	billingRec, ok := nested(rec, "billing_address")
	if !ok {
		return Order{}, missing("order", "billing_address")
	}
	billing, err := NewAddress(billingRec)
	if err != nil {
		return Order{}, err
	}
	o.Billing = billing

	if shippingRec, ok := nested(rec, "shipping_address"); ok && hasLocation(shippingRec) {
		shipping, err := NewAddress(shippingRec)
		if err != nil {
			return Order{}, err
		}
		o.Shipping = &shipping
	}

	o.Customer, err = orderCustomer(rec, billing)
	if err != nil {
		return Order{}, err
	}

	itemRecs, ok := list(rec, "items")
	if !ok {
		return Order{}, missing("order", "items")
	}
	for _, itemRec := range itemRecs {
		item, err := NewOrderItem(itemRec)
		if err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, item)
	}
	return o, nil
}

// hasLocation tells a real address apart from the empty shell some virtual orders carry
func hasLocation(rec storefront.Record) bool {
	return text(rec, "street") != "" || text(rec, "city") != ""
}

// orderCustomer extracts the customer embedded in an order.
// Guests get their name and email from the billing address when the order lacks them.
func orderCustomer(rec storefront.Record, billing Address) (Customer, error) {
	c := Customer{
		RemoteID:  integer(rec, "customer_id"),
		FirstName: text(rec, "customer_firstname"),
		LastName:  text(rec, "customer_lastname"),
		Email:     text(rec, "customer_email"),
	}
	if flag(rec, "customer_is_guest") {
		c.RemoteID = 0
	}
	if c.FirstName == "" && c.LastName == "" {
		c.FirstName, c.LastName = billing.FirstName, billing.LastName
	}
	if c.Email == "" {
		c.Email = billing.Email
	}
	if err := check("order customer", c); err != nil {
		return Customer{}, err
	}
	return c, nil
}

// NewOrderItem normalizes one order line item
func NewOrderItem(rec storefront.Record) (OrderItem, error) {
	i := OrderItem{
		ItemID:       integer(rec, "item_id"),
		ProductID:    integer(rec, "product_id"),
		SKU:          text(rec, "sku"),
		Name:         text(rec, "name"),
		ProductType:  text(rec, "product_type"),
		ParentItemID: integer(rec, "parent_item_id"),
		Quantity:     numberOr(rec, "qty_ordered", decimal.Zero),
		Price:        numberOr(rec, "price", decimal.Zero),
		BundleOption: hasBundleOption(rec["product_options"]),
	}
	if pct, ok := number(rec, "tax_percent"); ok {
		i.TaxPercent = &pct
	}
	if err := check("order item", i); err != nil {
		return OrderItem{}, err
	}
	return i, nil
}

// hasBundleOption looks for the bundle marker in product_options,
// which arrives either as a serialized string or as a struct
func hasBundleOption(v interface{}) bool {
	switch opts := v.(type) {
	case string:
		return strings.Contains(opts, "bundle_option")
	case map[string]interface{}:
		_, ok := opts["bundle_option"]
		return ok
	case storefront.Record:
		_, ok := opts["bundle_option"]
		return ok
	}
	return false
}

// OrderRef is an order summary as returned by sales_order.list
type OrderRef struct {
	RemoteID    int       `remote:"order_id" validate:"required"`
	IncrementID string    `remote:"increment_id" validate:"required"`
	State       string    `remote:"state"`
	UpdatedAt   time.Time `remote:"updated_at"`
}

// NewOrderRef normalizes an order list entry
func NewOrderRef(rec storefront.Record) (OrderRef, error) {
	r := OrderRef{
		RemoteID:    integer(rec, "order_id"),
		IncrementID: text(rec, "increment_id"),
		State:       text(rec, "state"),
		UpdatedAt:   timestamp(rec, "updated_at"),
	}
	if err := check("order summary", r); err != nil {
		return OrderRef{}, err
	}
	return r, nil
}
