package storefront

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kolo/xmlrpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xelth-com/magebridge/internal/config"
	"github.com/xelth-com/magebridge/internal/models"
)

// Client talks to a Magento 1 style XML-RPC API
type Client struct {
	Endpoint  string
	User      string
	Key       string
	Transport http.RoundTripper

	limiter *rate.Limiter
	log     *zap.Logger

	mu      sync.Mutex
	session string
}

// NewClient creates a storefront client for a channel
func NewClient(ch *models.Channel, cfg config.StorefrontConfig, log *zap.Logger) (*Client, error) {
	if err := ch.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		Endpoint:  endpointFor(ch.URL),
		User:      ch.APIUser,
		Key:       ch.APIKey,
		Transport: &http.Transport{ResponseHeaderTimeout: cfg.Timeout},
		log:       log.Named("storefront").With(zap.Uint("channel_id", ch.ID)),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c, nil
}

// Connector opens an API for a channel
type Connector func(ch *models.Channel) (API, error)

// NewConnector returns a Connector producing XML-RPC clients
func NewConnector(cfg config.StorefrontConfig, log *zap.Logger) Connector {
	return func(ch *models.Channel) (API, error) {
		return NewClient(ch, cfg, log)
	}
}

func endpointFor(url string) string {
	url = strings.TrimRight(url, "/")
	if strings.HasSuffix(url, "/api/xmlrpc") {
		return url
	}
	return url + "/index.php/api/xmlrpc"
}

// login returns the cached session or opens a new one
func (c *Client) login(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != "" {
		return c.session, nil
	}

	rpc, err := xmlrpc.NewClient(c.Endpoint, c.Transport)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer rpc.Close()

	var session string
	if err := rpc.Call("login", []interface{}{c.User, c.Key}, &session); err != nil {
		return "", fmt.Errorf("%w: login: %v", ErrConnection, asFault(err))
	}

	c.session = session
	return session, nil
}

// Close ends the remote session, if one is open
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == "" {
		return nil
	}

	rpc, err := xmlrpc.NewClient(c.Endpoint, c.Transport)
	if err != nil {
		return err
	}
	defer rpc.Close()

	var ok bool
	err = rpc.Call("endSession", []interface{}{c.session}, &ok)
	c.session = ""
	return asFault(err)
}

// Call invokes a resource method, e.g. "sales_order.info", with positional arguments
func (c *Client) Call(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	reply, err := c.call(ctx, method, args)
	if IsFault(err, FaultSessionExpired) {
		c.mu.Lock()
		c.session = ""
		c.mu.Unlock()
		reply, err = c.call(ctx, method, args)
	}
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (c *Client) call(ctx context.Context, method string, args []interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	session, err := c.login(ctx)
	if err != nil {
		return nil, err
	}

	rpc, err := xmlrpc.NewClient(c.Endpoint, c.Transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer rpc.Close()

	if args == nil {
		args = []interface{}{}
	}

	start := time.Now()
	var reply interface{}
	err = rpc.Call("call", []interface{}{session, method, args}, &reply)
	c.log.Debug("storefront call",
		zap.String("method", method),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
	if err != nil {
		return nil, asFault(err)
	}
	return reply, nil
}

func (c *Client) callRecord(ctx context.Context, method string, args ...interface{}) (Record, error) {
	reply, err := c.Call(ctx, method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return toRecord(reply)
}

func (c *Client) callRecords(ctx context.Context, method string, args ...interface{}) ([]Record, error) {
	reply, err := c.Call(ctx, method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return toRecords(reply)
}

func (c *Client) callVoid(ctx context.Context, method string, args ...interface{}) error {
	if _, err := c.Call(ctx, method, args...); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// Ping opens a session, proving URL and credentials work
func (c *Client) Ping(ctx context.Context) error {
	c.mu.Lock()
	c.session = ""
	c.mu.Unlock()
	_, err := c.login(ctx)
	return err
}

func (c *Client) Websites(ctx context.Context) ([]Record, error) {
	return c.callRecords(ctx, "ol_websites.list")
}

func (c *Client) StoreGroups(ctx context.Context, websiteID int) ([]Record, error) {
	return c.callRecords(ctx, "ol_groups.list", map[string]interface{}{
		"website_id": map[string]interface{}{"=": websiteID},
	})
}

func (c *Client) ListOrders(ctx context.Context, filter Filter) ([]Record, error) {
	return c.callRecords(ctx, "sales_order.list", encodeFilter(filter))
}

func (c *Client) OrderInfo(ctx context.Context, incrementID string) (Record, error) {
	return c.callRecord(ctx, "sales_order.info", incrementID)
}

func (c *Client) CancelOrder(ctx context.Context, incrementID string) error {
	return c.callVoid(ctx, "sales_order.cancel", incrementID)
}

func (c *Client) AddOrderComment(ctx context.Context, incrementID, status, comment string, notify bool) error {
	return c.callVoid(ctx, "sales_order.addComment", incrementID, status, comment, notify)
}

func (c *Client) OrderStates(ctx context.Context) (map[string]string, error) {
	rec, err := c.callRecord(ctx, "sales_order.get_order_states")
	if err != nil {
		return nil, err
	}
	states := make(map[string]string, len(rec))
	for code, label := range rec {
		states[code] = fmt.Sprint(label)
	}
	return states, nil
}

func (c *Client) ShippingMethods(ctx context.Context) ([]Record, error) {
	return c.callRecords(ctx, "sales_order.shipping_methods")
}

func (c *Client) CustomerInfo(ctx context.Context, customerID int) (Record, error) {
	return c.callRecord(ctx, "customer.info", customerID)
}

func (c *Client) ListProducts(ctx context.Context, filter Filter) ([]Record, error) {
	return c.callRecords(ctx, "catalog_product.list", encodeFilter(filter))
}

func (c *Client) ProductInfo(ctx context.Context, productID int) (Record, error) {
	return c.callRecord(ctx, "catalog_product.info", productID)
}

func (c *Client) CreateProduct(ctx context.Context, productType string, attributeSetID int, sku string, data Record) (int, error) {
	reply, err := c.Call(ctx, "ol_catalog_product.create", productType, attributeSetID, sku, map[string]interface{}(data))
	if err != nil {
		return 0, fmt.Errorf("ol_catalog_product.create: %w", err)
	}
	switch v := reply.(type) {
	case int64:
		return int(v), nil
	case int:
		return v, nil
	case string:
		return strconv.Atoi(v)
	}
	return 0, fmt.Errorf("unexpected product id %T", reply)
}

func (c *Client) CategoryTree(ctx context.Context, parentID int) (Record, error) {
	return c.callRecord(ctx, "catalog_category.tree", parentID)
}

func (c *Client) CategoryInfo(ctx context.Context, categoryID int) (Record, error) {
	return c.callRecord(ctx, "catalog_category.info", categoryID)
}

func (c *Client) UpdateStock(ctx context.Context, productIdentifier string, stock Stock) error {
	inStock := "0"
	if stock.InStock {
		inStock = "1"
	}
	return c.callVoid(ctx, "cataloginventory_stock_item.update", productIdentifier, map[string]interface{}{
		"qty":         stock.Qty.String(),
		"is_in_stock": inStock,
	})
}

func (c *Client) UpdateTierPrices(ctx context.Context, productIdentifier string, tiers []TierPrice) error {
	data := make([]interface{}, 0, len(tiers))
	for _, t := range tiers {
		data = append(data, map[string]interface{}{
			"qty":   t.Qty.InexactFloat64(),
			"price": t.Price.InexactFloat64(),
		})
	}
	return c.callVoid(ctx, "product_attribute_tier_price.update", productIdentifier, data)
}

func (c *Client) CreateShipment(ctx context.Context, orderIncrementID string, itemsQty map[string]decimal.Decimal) (string, error) {
	items := make(map[string]interface{}, len(itemsQty))
	for id, qty := range itemsQty {
		items[id] = qty.InexactFloat64()
	}
	reply, err := c.Call(ctx, "sales_order_shipment.create", orderIncrementID, items)
	if err != nil {
		return "", fmt.Errorf("sales_order_shipment.create: %w", err)
	}
	return fmt.Sprint(reply), nil
}

func (c *Client) AddTrack(ctx context.Context, shipmentIncrementID, carrierCode, title, trackNumber string) error {
	return c.callVoid(ctx, "sales_order_shipment.addTrack", shipmentIncrementID, carrierCode, title, trackNumber)
}

func encodeFilter(filter Filter) map[string]interface{} {
	out := make(map[string]interface{}, len(filter))
	for field, cond := range filter {
		out[field] = map[string]interface{}(cond)
	}
	return out
}

var _ API = (*Client)(nil)
