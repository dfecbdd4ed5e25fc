package export

import (
	"context"

	"go.uber.org/zap"

	"github.com/xelth-com/magebridge/internal/logger"
	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/storefront"
)

// TierPrices sends the quantity breaks of every listed product changed since the last run.
// A listing without tiers of its own gets the channel's default tier quantities at list price.
func (e *Exporter) TierPrices(ctx context.Context, ch *models.Channel) (Summary, error) {
	since, err := e.watermarks.Advance(ctx, ch.ID, models.WatermarkTierPrice)
	if err != nil {
		return Summary{}, err
	}
	listings, err := e.changedListings(ctx, ch, since)
	if err != nil {
		return Summary{}, err
	}
	var defaults []models.ChannelPriceTier
	if err := e.db.WithContext(ctx).Where("channel_id = ?", ch.ID).Order("quantity").Find(&defaults).Error; err != nil {
		return Summary{}, err
	}

	log := logger.FromContext(ctx, e.log)
	var sum Summary
	for _, l := range listings {
		tiers := tiersFor(l, defaults)
		if len(tiers) == 0 {
			sum.Skipped++
			continue
		}
		if err := e.api.UpdateTierPrices(ctx, l.ProductIdentifier, tiers); err != nil {
			sum.Failed++
			log.Error("Tier price update failed",
				zap.String("product_identifier", l.ProductIdentifier),
				zap.Error(err))
			continue
		}
		sum.Exported++
	}
	e.finish(ctx, models.WatermarkTierPrice, ch.ID, sum)
	return sum, nil
}

func tiersFor(l models.ProductListing, defaults []models.ChannelPriceTier) []storefront.TierPrice {
	if len(l.PriceTiers) > 0 {
		out := make([]storefront.TierPrice, 0, len(l.PriceTiers))
		for _, t := range l.PriceTiers {
			out = append(out, storefront.TierPrice{Qty: t.Quantity, Price: t.Price})
		}
		return out
	}
	if l.Product == nil {
		return nil
	}
	out := make([]storefront.TierPrice, 0, len(defaults))
	for _, t := range defaults {
		out = append(out, storefront.TierPrice{Qty: t.Quantity, Price: l.Product.ListPrice})
	}
	return out
}
