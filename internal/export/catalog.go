package export

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xelth-com/magebridge/internal/logger"
	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/registry"
	"github.com/xelth-com/magebridge/internal/storefront"
)

var (
	ErrCategoryNotLinked = errors.New("category is not linked to the channel")
	ErrAlreadyListed     = errors.New("product is already listed on the channel")
	ErrMissingCode       = errors.New("product has no code")
)

// Remote attribute values for a new, enabled, fully visible product
const (
	statusEnabled        = "1"
	visibilityEverywhere = "4"
	defaultTaxClass      = "1"
)

// ExportProduct creates product on the storefront under category and lists it on the channel.
// The remote product id is linked so later imports find the local product.
func (e *Exporter) ExportProduct(ctx context.Context, ch *models.Channel, product *models.Product, category *models.Category) (*models.ProductListing, error) {
	if product.Code == "" {
		return nil, ErrMissingCode
	}
	remoteCategory, ok, err := e.reg.RemoteID(ctx, registry.Category, category.ID, ch.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCategoryNotLinked, category.Name)
	}

	var count int64
	err = e.db.WithContext(ctx).Model(&models.ProductListing{}).
		Where("channel_id = ? AND product_id = ?", ch.ID, product.ID).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrAlreadyListed
	}

	data := storefront.Record{
		"categories":        []string{strconv.Itoa(remoteCategory)},
		"websites":          []string{strconv.Itoa(ch.WebsiteID)},
		"name":              product.Name,
		"description":       product.Description,
		"short_description": product.Description,
		"status":            statusEnabled,
		"visibility":        visibilityEverywhere,
		"price":             product.ListPrice.StringFixed(2),
		"tax_class_id":      defaultTaxClass,
	}
	remoteID, err := e.api.CreateProduct(ctx, models.ProductTypeSimple, ch.AttributeSetID, product.Code, data)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote product %s: %w", product.Code, err)
	}

	listing := &models.ProductListing{
		ChannelID:         ch.ID,
		ProductID:         product.ID,
		ProductIdentifier: strconv.Itoa(remoteID),
		RemoteProductType: models.ProductTypeSimple,
	}
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(listing).Error; err != nil {
			return err
		}
		return registry.New(tx).Link(ctx, registry.Product, remoteID, ch.ID, product.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list exported product %s: %w", product.Code, err)
	}

	logger.FromContext(ctx, e.log).Info("Product exported",
		zap.Uint("product_id", product.ID),
		zap.String("code", product.Code),
		zap.Int("remote_id", remoteID))
	return listing, nil
}
