// Package storefronttest provides an in-memory storefront for tests.
package storefronttest

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/xelth-com/magebridge/internal/storefront"
)

// Call is one recorded API invocation
type Call struct {
	Method string
	Args   []interface{}
}

// Fake implements storefront.API from in-memory fixtures.
// Errors registered with Fail are returned for every call to that method;
// ProductErrors fails individual product lookups.
type Fake struct {
	mu sync.Mutex

	Orders        map[string]storefront.Record // by increment id
	OrderList     []storefront.Record
	Customers     map[int]storefront.Record
	Products      map[int]storefront.Record
	ProductErrors map[int]error
	Categories    map[int]storefront.Record
	Tree          storefront.Record
	States        map[string]string
	Methods       []storefront.Record
	WebsiteList   []storefront.Record
	Groups        map[int][]storefront.Record

	errors    map[string]error
	calls     []Call
	nextID    int
	shipments int
}

// NewFake returns an empty fake storefront
func NewFake() *Fake {
	return &Fake{
		Orders:        map[string]storefront.Record{},
		Customers:     map[int]storefront.Record{},
		Products:      map[int]storefront.Record{},
		ProductErrors: map[int]error{},
		Categories:    map[int]storefront.Record{},
		States:        map[string]string{},
		Groups:        map[int][]storefront.Record{},
		errors:        map[string]error{},
		nextID:        1000,
	}
}

// NotFound builds the fault the storefront returns for a missing entity
func NotFound(what string) error {
	return &storefront.Fault{Code: storefront.FaultNotFound, Message: what + " not exists."}
}

// Fail makes every call to method return err
func (f *Fake) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[method] = err
}

// CallsTo returns the recorded calls of one method
func (f *Fake) CallsTo(method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) record(method string, args ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: method, Args: args})
	return f.errors[method]
}

func (f *Fake) Ping(ctx context.Context) error {
	if err := f.record("login"); err != nil {
		return fmt.Errorf("%w: %v", storefront.ErrConnection, err)
	}
	return nil
}

func (f *Fake) Websites(ctx context.Context) ([]storefront.Record, error) {
	if err := f.record("ol_websites.list"); err != nil {
		return nil, err
	}
	return f.WebsiteList, nil
}

func (f *Fake) StoreGroups(ctx context.Context, websiteID int) ([]storefront.Record, error) {
	if err := f.record("ol_groups.list", websiteID); err != nil {
		return nil, err
	}
	return f.Groups[websiteID], nil
}

func (f *Fake) ListOrders(ctx context.Context, filter storefront.Filter) ([]storefront.Record, error) {
	if err := f.record("sales_order.list", filter); err != nil {
		return nil, err
	}
	return f.OrderList, nil
}

func (f *Fake) OrderInfo(ctx context.Context, incrementID string) (storefront.Record, error) {
	if err := f.record("sales_order.info", incrementID); err != nil {
		return nil, err
	}
	rec, ok := f.Orders[incrementID]
	if !ok {
		return nil, NotFound("Order")
	}
	return rec, nil
}

func (f *Fake) CancelOrder(ctx context.Context, incrementID string) error {
	return f.record("sales_order.cancel", incrementID)
}

func (f *Fake) AddOrderComment(ctx context.Context, incrementID, status, comment string, notify bool) error {
	return f.record("sales_order.addComment", incrementID, status, comment, notify)
}

func (f *Fake) OrderStates(ctx context.Context) (map[string]string, error) {
	if err := f.record("sales_order.get_order_states"); err != nil {
		return nil, err
	}
	return f.States, nil
}

func (f *Fake) ShippingMethods(ctx context.Context) ([]storefront.Record, error) {
	if err := f.record("sales_order.shipping_methods"); err != nil {
		return nil, err
	}
	return f.Methods, nil
}

func (f *Fake) CustomerInfo(ctx context.Context, customerID int) (storefront.Record, error) {
	if err := f.record("customer.info", customerID); err != nil {
		return nil, err
	}
	rec, ok := f.Customers[customerID]
	if !ok {
		return nil, NotFound("Customer")
	}
	return rec, nil
}

func (f *Fake) ListProducts(ctx context.Context, filter storefront.Filter) ([]storefront.Record, error) {
	if err := f.record("catalog_product.list", filter); err != nil {
		return nil, err
	}
	out := make([]storefront.Record, 0, len(f.Products))
	for _, rec := range f.Products {
		out = append(out, rec)
	}
	return out, nil
}

func (f *Fake) ProductInfo(ctx context.Context, productID int) (storefront.Record, error) {
	if err := f.record("catalog_product.info", productID); err != nil {
		return nil, err
	}
	if err := f.ProductErrors[productID]; err != nil {
		return nil, err
	}
	rec, ok := f.Products[productID]
	if !ok {
		return nil, NotFound("Product")
	}
	return rec, nil
}

func (f *Fake) CreateProduct(ctx context.Context, productType string, attributeSetID int, sku string, data storefront.Record) (int, error) {
	if err := f.record("ol_catalog_product.create", productType, attributeSetID, sku, data); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	rec := storefront.Record{"product_id": strconv.Itoa(f.nextID), "sku": sku, "type": productType}
	for k, v := range data {
		rec[k] = v
	}
	f.Products[f.nextID] = rec
	return f.nextID, nil
}

func (f *Fake) CategoryTree(ctx context.Context, parentID int) (storefront.Record, error) {
	if err := f.record("catalog_category.tree", parentID); err != nil {
		return nil, err
	}
	return f.Tree, nil
}

func (f *Fake) CategoryInfo(ctx context.Context, categoryID int) (storefront.Record, error) {
	if err := f.record("catalog_category.info", categoryID); err != nil {
		return nil, err
	}
	rec, ok := f.Categories[categoryID]
	if !ok {
		return nil, NotFound("Category")
	}
	return rec, nil
}

func (f *Fake) UpdateStock(ctx context.Context, productIdentifier string, stock storefront.Stock) error {
	return f.record("cataloginventory_stock_item.update", productIdentifier, stock)
}

func (f *Fake) UpdateTierPrices(ctx context.Context, productIdentifier string, tiers []storefront.TierPrice) error {
	return f.record("product_attribute_tier_price.update", productIdentifier, tiers)
}

func (f *Fake) CreateShipment(ctx context.Context, orderIncrementID string, itemsQty map[string]decimal.Decimal) (string, error) {
	if err := f.record("sales_order_shipment.create", orderIncrementID, itemsQty); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shipments++
	return fmt.Sprintf("2000000%02d", f.shipments), nil
}

func (f *Fake) AddTrack(ctx context.Context, shipmentIncrementID, carrierCode, title, trackNumber string) error {
	return f.record("sales_order_shipment.addTrack", shipmentIncrementID, carrierCode, title, trackNumber)
}

var _ storefront.API = (*Fake)(nil)
