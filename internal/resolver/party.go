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

// PartyResolver maps storefront customers to parties
type PartyResolver struct {
	db  *gorm.DB
	reg *registry.Registry
	api storefront.API
	log *zap.Logger
}

// ResolveByRemoteID returns the party linked to customerID, fetching the customer on a miss
func (r *PartyResolver) ResolveByRemoteID(ctx context.Context, ch *models.Channel, customerID int) (*models.Party, error) {
	id, found, err := r.reg.Find(ctx, registry.Party, customerID, ch.ID)
	if err != nil {
		return nil, err
	}
	if found {
		return r.load(ctx, id)
	}

	rec, err := r.api.CustomerInfo(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch customer %d: %w", customerID, err)
	}
	c, err := normalize.NewCustomer(rec)
	if err != nil {
		return nil, err
	}
	return r.ResolveByRemoteData(ctx, ch, c)
}

// ResolveByRemoteData returns the party for an already fetched customer. Guests get a new party every time.
func (r *PartyResolver) ResolveByRemoteData(ctx context.Context, ch *models.Channel, c normalize.Customer) (*models.Party, error) {
	if c.IsGuest() {
		return r.CreateGuest(ctx, ch, c)
	}

	id, created, err := r.reg.Resolve(ctx, registry.Party, c.RemoteID, ch.ID, func(tx *gorm.DB) (uint, error) {
		return createParty(tx, c)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve customer %d: %w", c.RemoteID, err)
	}
	if created {
		contextLogger(ctx, r.log).Info("Party created",
			zap.Int("customer_id", c.RemoteID),
			zap.Uint("party_id", id))
	}
	return r.load(ctx, id)
}

// CreateGuest creates a one-off party for a guest checkout and links it to the guest id
func (r *PartyResolver) CreateGuest(ctx context.Context, ch *models.Channel, c normalize.Customer) (*models.Party, error) {
	var id uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if id, err = createParty(tx, c); err != nil {
			return err
		}
		return r.reg.WithTx(tx).Link(ctx, registry.Party, registry.GuestID, ch.ID, id)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create guest party: %w", err)
	}
	contextLogger(ctx, r.log).Debug("Guest party created", zap.Uint("party_id", id))
	return r.load(ctx, id)
}

func createParty(tx *gorm.DB, c normalize.Customer) (uint, error) {
	p := models.Party{Name: c.Name()}
	if c.Email != "" {
		p.ContactMechanisms = []models.ContactMechanism{{Type: models.ContactEmail, Value: c.Email}}
	}
	if err := tx.Create(&p).Error; err != nil {
		return 0, err
	}
	return p.ID, nil
}

func (r *PartyResolver) load(ctx context.Context, id uint) (*models.Party, error) {
	var p models.Party
	if err := r.db.WithContext(ctx).Preload("ContactMechanisms").First(&p, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load party %d: %w", id, err)
	}
	return &p, nil
}
