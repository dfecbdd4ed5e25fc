package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/normalize"
	"github.com/xelth-com/magebridge/internal/registry"
	"github.com/xelth-com/magebridge/internal/storefront"
)

// CategoryResolver maps storefront categories to local categories
type CategoryResolver struct {
	db  *gorm.DB
	reg *registry.Registry
	api storefront.API
	log *zap.Logger
}

// ResolveByRemoteID returns the category linked to categoryID, fetching it on a miss.
// A fetched category is attached to its parent when the parent is already linked.
func (r *CategoryResolver) ResolveByRemoteID(ctx context.Context, ch *models.Channel, categoryID int) (*models.Category, error) {
	id, found, err := r.reg.Find(ctx, registry.Category, categoryID, ch.ID)
	if err != nil {
		return nil, err
	}
	if found {
		return r.load(ctx, id)
	}

	rec, err := r.api.CategoryInfo(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch category %d: %w", categoryID, err)
	}
	c, err := normalize.NewCategory(rec)
	if err != nil {
		return nil, err
	}

	var parent *models.Category
	if c.ParentID != 0 {
		parentID, found, err := r.reg.Find(ctx, registry.Category, c.ParentID, ch.ID)
		if err != nil {
			return nil, err
		}
		if found {
			if parent, err = r.load(ctx, parentID); err != nil {
				return nil, err
			}
		}
	}
	return r.ResolveByRemoteData(ctx, ch, c, parent)
}

// ResolveByRemoteData returns the category for already fetched data. Children are not touched.
func (r *CategoryResolver) ResolveByRemoteData(ctx context.Context, ch *models.Channel, c normalize.Category, parent *models.Category) (*models.Category, error) {
	id, created, err := r.reg.Resolve(ctx, registry.Category, c.RemoteID, ch.ID, func(tx *gorm.DB) (uint, error) {
		cat := models.Category{Name: c.Name}
		if parent != nil {
			cat.ParentID = &parent.ID
		}
		if err := tx.Create(&cat).Error; err != nil {
			return 0, err
		}
		return cat.ID, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve category %d: %w", c.RemoteID, err)
	}
	if created {
		contextLogger(ctx, r.log).Debug("Category created",
			zap.Int("remote_id", c.RemoteID),
			zap.String("name", c.Name))
	}
	return r.load(ctx, id)
}

// ImportTree mirrors a remote category tree locally and returns the number of nodes visited
func (r *CategoryResolver) ImportTree(ctx context.Context, ch *models.Channel, tree normalize.Category) (int, error) {
	return r.importNode(ctx, ch, tree, nil)
}

func (r *CategoryResolver) importNode(ctx context.Context, ch *models.Channel, node normalize.Category, parent *models.Category) (int, error) {
	cat, err := r.ResolveByRemoteData(ctx, ch, node, parent)
	if err != nil {
		return 0, err
	}
	n := 1
	for _, child := range node.Children {
		m, err := r.importNode(ctx, ch, child, cat)
		if err != nil {
			return n, err
		}
		n += m
	}
	return n, nil
}

// Unclassified returns the fallback category for products without one, creating it on first use
func (r *CategoryResolver) Unclassified(ctx context.Context) (*models.Category, error) {
	var cat models.Category
	err := r.db.WithContext(ctx).
		Where(models.Category{Name: models.UnclassifiedCategory}).
		Where("parent_id IS NULL").
		FirstOrCreate(&cat).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve fallback category: %w", err)
	}
	return &cat, nil
}

func (r *CategoryResolver) load(ctx context.Context, id uint) (*models.Category, error) {
	var cat models.Category
	if err := r.db.WithContext(ctx).First(&cat, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load category %d: %w", id, err)
	}
	return &cat, nil
}
