package channels

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xelth-com/magebridge/internal/logger"
	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/normalize"
)

// ImportProducts links every storefront product to a local product, creating missing ones.
// A product that fails is logged and counted; the rest of the catalog still imports.
func (s *Service) ImportProducts(ctx context.Context, ch *models.Channel) (Summary, error) {
	recs, err := s.api.ListProducts(ctx, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list products: %w", err)
	}

	log := logger.FromContext(ctx, s.log)
	var sum Summary
	for _, rec := range recs {
		data, err := normalize.NewProduct(rec)
		if err == nil {
			_, err = s.res.Product.ResolveByRemoteData(ctx, ch, data)
		}
		if err != nil {
			sum.Failed++
			log.Error("Product import failed", zap.Any("product_id", rec["product_id"]), zap.Error(err))
			continue
		}
		sum.Processed++
	}
	log.Info("Products imported",
		zap.Uint("channel_id", ch.ID),
		zap.Int("processed", sum.Processed),
		zap.Int("failed", sum.Failed))
	return sum, nil
}

// UpdateCatalog refreshes every product listed on the channel from the storefront
func (s *Service) UpdateCatalog(ctx context.Context, ch *models.Channel) (Summary, error) {
	var listings []models.ProductListing
	err := s.db.WithContext(ctx).
		Preload("Product").
		Where("channel_id = ?", ch.ID).
		Order("id").
		Find(&listings).Error
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load listings: %w", err)
	}

	log := logger.FromContext(ctx, s.log)
	var sum Summary
	for _, l := range listings {
		if l.Product == nil {
			continue
		}
		if _, err := s.res.Product.UpdateFromRemote(ctx, ch, l.Product); err != nil {
			sum.Failed++
			log.Error("Product update failed", zap.Uint("product_id", l.ProductID), zap.Error(err))
			continue
		}
		sum.Processed++
	}
	return sum, nil
}

// ExportCatalog creates the given local products on the storefront under a linked category
func (s *Service) ExportCatalog(ctx context.Context, ch *models.Channel, categoryID uint, productIDs []uint) (Summary, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, categoryID).Error; err != nil {
		return Summary{}, fmt.Errorf("failed to load category %d: %w", categoryID, err)
	}
	var products []models.Product
	if err := s.db.WithContext(ctx).Where("id IN ?", productIDs).Order("id").Find(&products).Error; err != nil {
		return Summary{}, fmt.Errorf("failed to load products: %w", err)
	}

	log := logger.FromContext(ctx, s.log)
	var sum Summary
	for i := range products {
		if _, err := s.exporter.ExportProduct(ctx, ch, &products[i], &category); err != nil {
			sum.Failed++
			log.Error("Product export failed", zap.Uint("product_id", products[i].ID), zap.Error(err))
			continue
		}
		sum.Processed++
	}
	return sum, nil
}
