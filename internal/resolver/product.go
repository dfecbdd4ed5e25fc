package resolver

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/normalize"
	"github.com/xelth-com/magebridge/internal/registry"
	"github.com/xelth-com/magebridge/internal/storefront"
)

// ErrNotListed is returned when a product has no listing on the channel
var ErrNotListed = errors.New("product is not listed on channel")

// ProductResolver maps storefront products to local products and channel listings
type ProductResolver struct {
	db         *gorm.DB
	reg        *registry.Registry
	api        storefront.API
	categories *CategoryResolver
	log        *zap.Logger
}

// ResolveByRemoteID returns the product linked to productID, fetching it on a miss.
// found is false when the storefront no longer knows the product.
func (r *ProductResolver) ResolveByRemoteID(ctx context.Context, ch *models.Channel, productID int) (*models.Product, bool, error) {
	id, found, err := r.reg.Find(ctx, registry.Product, productID, ch.ID)
	if err != nil {
		return nil, false, err
	}
	if found {
		p, err := r.load(ctx, id)
		return p, err == nil, err
	}

	rec, err := r.api.ProductInfo(ctx, productID)
	if storefront.IsFault(err, storefront.FaultNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch product %d: %w", productID, err)
	}
	data, err := normalize.NewProduct(rec)
	if err != nil {
		return nil, false, err
	}

	p, err := r.ResolveByRemoteData(ctx, ch, data)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// ResolveByRemoteData returns the product for already fetched data.
// A local product with the same code is adopted rather than duplicated.
func (r *ProductResolver) ResolveByRemoteData(ctx context.Context, ch *models.Channel, data normalize.Product) (*models.Product, error) {
	// categories resolve in their own transaction
	category, err := r.category(ctx, ch, data)
	if err != nil {
		return nil, err
	}

	adopted := false
	id, created, err := r.reg.Resolve(ctx, registry.Product, data.RemoteID, ch.ID, func(tx *gorm.DB) (uint, error) {
		var existing []models.Product
		if err := tx.Where("code = ?", data.SKU).Order("id").Limit(1).Find(&existing).Error; err != nil {
			return 0, err
		}

		var p models.Product
		if len(existing) > 0 {
			p = existing[0]
			adopted = true
		} else {
			p = models.Product{
				Code:        data.SKU,
				Name:        data.Name,
				Description: data.Description,
				ListPrice:   data.ListPrice,
				CostPrice:   data.CostPrice,
				CategoryID:  &category.ID,
			}
			if err := tx.Create(&p).Error; err != nil {
				return 0, err
			}
		}
		return p.ID, ensureListing(tx, ch.ID, p.ID, data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve product %d: %w", data.RemoteID, err)
	}
	if created {
		contextLogger(ctx, r.log).Info("Product linked",
			zap.Int("remote_id", data.RemoteID),
			zap.String("sku", data.SKU),
			zap.Bool("adopted", adopted))
	}
	return r.load(ctx, id)
}

func (r *ProductResolver) category(ctx context.Context, ch *models.Channel, data normalize.Product) (*models.Category, error) {
	if data.CategoryID == 0 {
		return r.categories.Unclassified(ctx)
	}
	return r.categories.ResolveByRemoteID(ctx, ch, data.CategoryID)
}

func ensureListing(tx *gorm.DB, channelID, productID uint, data normalize.Product) error {
	listing := models.ProductListing{
		ChannelID:         channelID,
		ProductID:         productID,
		ProductIdentifier: strconv.Itoa(data.RemoteID),
		RemoteProductType: data.Type,
	}
	return tx.Where(models.ProductListing{ChannelID: channelID, ProductID: productID}).
		Attrs(listing).
		FirstOrCreate(&listing).Error
}

// UpdateFromRemote refreshes a listed product from the storefront
func (r *ProductResolver) UpdateFromRemote(ctx context.Context, ch *models.Channel, product *models.Product) (*models.Product, error) {
	var listing models.ProductListing
	err := r.db.WithContext(ctx).
		Where("channel_id = ? AND product_id = ?", ch.ID, product.ID).
		First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: product %d", ErrNotListed, product.ID)
	}
	if err != nil {
		return nil, err
	}

	remoteID, err := strconv.Atoi(listing.ProductIdentifier)
	if err != nil {
		return nil, fmt.Errorf("listing %d has invalid identifier %q", listing.ID, listing.ProductIdentifier)
	}
	rec, err := r.api.ProductInfo(ctx, remoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product %d: %w", remoteID, err)
	}
	data, err := normalize.NewProduct(rec)
	if err != nil {
		return nil, err
	}
	return r.UpdateFromData(ctx, product, data)
}

// UpdateFromData writes the storefront's name, code, description and prices onto product
func (r *ProductResolver) UpdateFromData(ctx context.Context, product *models.Product, data normalize.Product) (*models.Product, error) {
	err := r.db.WithContext(ctx).Model(product).Updates(map[string]interface{}{
		"code":        data.SKU,
		"name":        data.Name,
		"description": data.Description,
		"list_price":  data.ListPrice,
		"cost_price":  data.CostPrice,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", product.ID, err)
	}
	return r.load(ctx, product.ID)
}

// FindBySKU returns the local product with the given code, if any
func (r *ProductResolver) FindBySKU(ctx context.Context, sku string) (*models.Product, bool, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("code = ?", sku).Order("id").Limit(1).Find(&products).Error; err != nil {
		return nil, false, err
	}
	if len(products) == 0 {
		return nil, false, nil
	}
	return &products[0], true, nil
}

func (r *ProductResolver) load(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load product %d: %w", id, err)
	}
	return &p, nil
}
