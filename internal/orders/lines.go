package orders

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xelth-com/magebridge/internal/exceptions"
	"github.com/xelth-com/magebridge/internal/logger"
	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/normalize"
)

// addLines attaches product, shipping and discount lines to a freshly created sale.
// Each line is written in its own transaction; failures flag the sale instead of aborting.
func (im *Importer) addLines(ctx context.Context, ch *models.Channel, sale *models.Sale, order normalize.Order) {
	taxes, err := im.channelTaxes(ctx, ch)
	if err != nil {
		im.flag(ctx, sale, fmt.Sprintf("Failed to load channel taxes: %v", err))
	}

	seq := 0
	for _, item := range order.Items {
		// bundle components are covered by the bundle line and its BOM
		if item.IsBundleChild() {
			continue
		}
		seq++

		itemID := item.ItemID
		line := models.SaleLine{
			SaleID:       sale.ID,
			Sequence:     seq,
			Kind:         models.LineProduct,
			Description:  item.Description(),
			Quantity:     item.Quantity,
			UnitPrice:    item.Price,
			RemoteItemID: &itemID,
			Taxes:        matchTaxes(taxes, item.TaxPercent),
		}
		product, problem := im.lineProduct(ctx, ch, item)
		if product != nil {
			line.ProductID = &product.ID
		}
		if err := im.insertLine(ctx, &line); err != nil {
			im.flag(ctx, sale, fmt.Sprintf("Failed to add line for item %d (%s): %v", item.ItemID, item.SKU, err))
			continue
		}
		if problem != "" {
			im.flagAt(ctx, sale, exceptions.LineOrigin(line.ID), problem)
		}
	}

	if _, err := im.boms.Resolve(ctx, ch, order.Items); err != nil {
		im.flag(ctx, sale, fmt.Sprintf("Failed to resolve bundle: %v", err))
	}

	if !order.ShippingAmount.IsZero() {
		seq++
		line := models.SaleLine{
			SaleID:      sale.ID,
			Sequence:    seq,
			Kind:        models.LineShipping,
			Description: orDefault(order.ShippingDescription, "Shipping"),
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   order.ShippingAmount,
			ProductID:   im.shippingProduct(ctx, ch, order.ShippingMethod),
		}
		if err := im.insertLine(ctx, &line); err != nil {
			im.flag(ctx, sale, fmt.Sprintf("Failed to add shipping line: %v", err))
		}
	}

	// the storefront's sign is kept as is
	if !order.DiscountAmount.IsZero() {
		seq++
		line := models.SaleLine{
			SaleID:      sale.ID,
			Sequence:    seq,
			Kind:        models.LineDiscount,
			Description: orDefault(order.DiscountDescription, "Discount"),
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   order.DiscountAmount,
		}
		if err := im.insertLine(ctx, &line); err != nil {
			im.flag(ctx, sale, fmt.Sprintf("Failed to add discount line: %v", err))
		}
	}
}

// lineProduct resolves the product of an order item. When it cannot, problem says why.
func (im *Importer) lineProduct(ctx context.Context, ch *models.Channel, item normalize.OrderItem) (*models.Product, string) {
	if item.ProductID == 0 {
		p, found, err := im.res.Product.FindBySKU(ctx, item.SKU)
		if err != nil {
			return nil, fmt.Sprintf("Product with SKU %s could not be looked up: %v", item.SKU, err)
		}
		if !found {
			return nil, fmt.Sprintf("Product with SKU %s does not exist", item.SKU)
		}
		return p, ""
	}

	p, found, err := im.res.Product.ResolveByRemoteID(ctx, ch, item.ProductID)
	if err != nil {
		return nil, fmt.Sprintf("Product %d (SKU %s) could not be resolved: %v", item.ProductID, item.SKU, err)
	}
	if !found {
		return nil, fmt.Sprintf("Product %d (SKU %s) does not exist on the storefront", item.ProductID, item.SKU)
	}
	return p, ""
}

func (im *Importer) shippingProduct(ctx context.Context, ch *models.Channel, method string) *uint {
	if method == "" {
		return nil
	}
	cc, found, err := im.res.Carrier.FindByCode(ctx, ch, method)
	if err != nil {
		logger.FromContext(ctx, im.log).Warn("Carrier lookup failed",
			zap.String("shipping_method", method),
			zap.Error(err))
		return nil
	}
	if !found || cc.Carrier == nil {
		return nil
	}
	return cc.Carrier.ProductID
}

func (im *Importer) insertLine(ctx context.Context, line *models.SaleLine) error {
	return im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(line).Error
	})
}

func (im *Importer) channelTaxes(ctx context.Context, ch *models.Channel) ([]models.ChannelTax, error) {
	var taxes []models.ChannelTax
	err := im.db.WithContext(ctx).Preload("Taxes").Where("channel_id = ?", ch.ID).Find(&taxes).Error
	return taxes, err
}

// matchTaxes returns the taxes configured for exactly this percentage
func matchTaxes(taxes []models.ChannelTax, percent *decimal.Decimal) []models.Tax {
	if percent == nil {
		return nil
	}
	for _, t := range taxes {
		if t.TaxPercent.Equal(*percent) {
			return t.Taxes
		}
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
