package export

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xelth-com/magebridge/internal/logger"
	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/storefront"
)

// Inventory sends the stock level of every listed product changed since the last run
func (e *Exporter) Inventory(ctx context.Context, ch *models.Channel) (Summary, error) {
	since, err := e.watermarks.Advance(ctx, ch.ID, models.WatermarkInventory)
	if err != nil {
		return Summary{}, err
	}
	listings, err := e.changedListings(ctx, ch, since)
	if err != nil {
		return Summary{}, err
	}

	log := logger.FromContext(ctx, e.log)
	var sum Summary
	for _, l := range listings {
		qty := l.Product.Quantity
		err := e.api.UpdateStock(ctx, l.ProductIdentifier, storefront.Stock{Qty: qty, InStock: qty.IsPositive()})
		if err != nil {
			sum.Failed++
			log.Error("Stock update failed",
				zap.String("product_identifier", l.ProductIdentifier),
				zap.Error(err))
			continue
		}
		sum.Exported++
	}
	e.finish(ctx, models.WatermarkInventory, ch.ID, sum)
	return sum, nil
}

// changedListings loads the channel's listings whose product or listing changed since the watermark
func (e *Exporter) changedListings(ctx context.Context, ch *models.Channel, since *time.Time) ([]models.ProductListing, error) {
	q := e.db.WithContext(ctx).
		Preload("Product").
		Preload("PriceTiers", func(tx *gorm.DB) *gorm.DB { return tx.Order("quantity") }).
		Joins("JOIN products ON products.id = product_listings.product_id").
		Where("product_listings.channel_id = ?", ch.ID)
	if since != nil {
		q = q.Where("products.updated_at >= ? OR product_listings.updated_at >= ?", *since, *since)
	}

	var listings []models.ProductListing
	if err := q.Order("product_listings.id").Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to load listings: %w", err)
	}
	return listings, nil
}
