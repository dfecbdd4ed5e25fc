package storefront

import (
	"context"

	"github.com/shopspring/decimal"
)

// API is the part of the storefront the integration talks to.
// Mutators return *Fault for remote rejections.
type API interface {
	Ping(ctx context.Context) error
	Websites(ctx context.Context) ([]Record, error)
	StoreGroups(ctx context.Context, websiteID int) ([]Record, error)

	ListOrders(ctx context.Context, filter Filter) ([]Record, error)
	OrderInfo(ctx context.Context, incrementID string) (Record, error)
	CancelOrder(ctx context.Context, incrementID string) error
	AddOrderComment(ctx context.Context, incrementID, status, comment string, notify bool) error
	OrderStates(ctx context.Context) (map[string]string, error)
	ShippingMethods(ctx context.Context) ([]Record, error)

	CustomerInfo(ctx context.Context, customerID int) (Record, error)

	ListProducts(ctx context.Context, filter Filter) ([]Record, error)
	ProductInfo(ctx context.Context, productID int) (Record, error)
	CreateProduct(ctx context.Context, productType string, attributeSetID int, sku string, data Record) (int, error)
	CategoryTree(ctx context.Context, parentID int) (Record, error)
	CategoryInfo(ctx context.Context, categoryID int) (Record, error)

	UpdateStock(ctx context.Context, productIdentifier string, stock Stock) error
	UpdateTierPrices(ctx context.Context, productIdentifier string, tiers []TierPrice) error

	CreateShipment(ctx context.Context, orderIncrementID string, itemsQty map[string]decimal.Decimal) (string, error)
	AddTrack(ctx context.Context, shipmentIncrementID, carrierCode, title, trackNumber string) error
}

// Stock is an inventory update for one product
type Stock struct {
	Qty     decimal.Decimal
	InStock bool
}

// TierPrice is one quantity break
type TierPrice struct {
	Qty   decimal.Decimal
	Price decimal.Decimal
}
