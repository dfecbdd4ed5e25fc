// Package channels configures storefront channels and imports their reference data:
// order states, shipping methods, the category tree and the product catalog.
package channels

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xelth-com/magebridge/internal/export"
	"github.com/xelth-com/magebridge/internal/logger"
	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/normalize"
	"github.com/xelth-com/magebridge/internal/resolver"
	"github.com/xelth-com/magebridge/internal/storefront"
)

var (
	ErrUnknownWebsite = errors.New("website not found on storefront")
	ErrUnknownStore   = errors.New("store not found on website")
)

// Summary counts the outcome of a catalog run
type Summary struct {
	Processed int
	Failed    int
}

// Service runs channel setup operations against one storefront session
type Service struct {
	db       *gorm.DB
	api      storefront.API
	res      *resolver.Set
	exporter *export.Exporter
	log      *zap.Logger
}

// New creates a channel service
func New(db *gorm.DB, api storefront.API, log *zap.Logger) *Service {
	return &Service{
		db:       db,
		api:      api,
		res:      resolver.New(db, api, log),
		exporter: export.New(db, api, log),
		log:      log.Named("channels"),
	}
}

// TestConnection checks that the storefront accepts the channel credentials
func (s *Service) TestConnection(ctx context.Context) error {
	if err := s.api.Ping(ctx); err != nil {
		if errors.Is(err, storefront.ErrConnection) {
			return err
		}
		return fmt.Errorf("%w: %v", storefront.ErrConnection, err)
	}
	return nil
}

// Websites lists the storefront's websites
func (s *Service) Websites(ctx context.Context) ([]normalize.Website, error) {
	recs, err := s.api.Websites(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list websites: %w", err)
	}
	out := make([]normalize.Website, 0, len(recs))
	for _, rec := range recs {
		w, err := normalize.NewWebsite(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// Stores lists the store groups of a website
func (s *Service) Stores(ctx context.Context, websiteID int) ([]normalize.StoreGroup, error) {
	recs, err := s.api.StoreGroups(ctx, websiteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores of website %d: %w", websiteID, err)
	}
	out := make([]normalize.StoreGroup, 0, len(recs))
	for _, rec := range recs {
		g, err := normalize.NewStoreGroup(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// Configure points the channel at a website and one of its store groups
func (s *Service) Configure(ctx context.Context, ch *models.Channel, websiteID, groupID int) error {
	websites, err := s.Websites(ctx)
	if err != nil {
		return err
	}
	var website *normalize.Website
	for i := range websites {
		if websites[i].RemoteID == websiteID {
			website = &websites[i]
			break
		}
	}
	if website == nil {
		return fmt.Errorf("%w: %d", ErrUnknownWebsite, websiteID)
	}

	groups, err := s.Stores(ctx, websiteID)
	if err != nil {
		return err
	}
	var group *normalize.StoreGroup
	for i := range groups {
		if groups[i].RemoteID == groupID {
			group = &groups[i]
			break
		}
	}
	if group == nil {
		return fmt.Errorf("%w: %d", ErrUnknownStore, groupID)
	}

	updates := map[string]interface{}{
		"website_id":   website.RemoteID,
		"website_code": website.Code,
		"website_name": website.Name,
		"store_id":     group.DefaultStoreID,
		"store_name":   group.Name,
	}
	if group.RootCategoryID != 0 {
		updates["root_category_id"] = group.RootCategoryID
	}
	if err := s.db.WithContext(ctx).Model(ch).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to configure channel %d: %w", ch.ID, err)
	}

	logger.FromContext(ctx, s.log).Info("Channel configured",
		zap.Uint("channel_id", ch.ID),
		zap.String("website", website.Name),
		zap.String("store", group.Name))
	return nil
}

// ImportOrderStates stores the storefront's order states with their translated policy
func (s *Service) ImportOrderStates(ctx context.Context, ch *models.Channel) (int, error) {
	states, err := s.api.OrderStates(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch order states: %w", err)
	}
	return s.res.OrderState.ImportAll(ctx, ch, normalize.NewOrderStates(states))
}

// ImportCarriers stores the storefront's shipping methods
func (s *Service) ImportCarriers(ctx context.Context, ch *models.Channel) (int, error) {
	recs, err := s.api.ShippingMethods(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch shipping methods: %w", err)
	}
	methods := make([]normalize.ShippingMethod, 0, len(recs))
	for _, rec := range recs {
		m, err := normalize.NewShippingMethod(rec)
		if err != nil {
			return 0, err
		}
		methods = append(methods, m)
	}
	return s.res.Carrier.ImportAll(ctx, ch, methods)
}

// ImportCategories mirrors the category tree under the channel's root category
func (s *Service) ImportCategories(ctx context.Context, ch *models.Channel) (int, error) {
	rec, err := s.api.CategoryTree(ctx, ch.RootCategoryID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch category tree: %w", err)
	}
	tree, err := normalize.NewCategory(rec)
	if err != nil {
		return 0, err
	}
	return s.res.Category.ImportTree(ctx, ch, tree)
}
