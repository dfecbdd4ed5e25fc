// Package resolver finds or creates local records for storefront entities.
//
// Registry-backed resolvers (party, category, product) check the identity
// registry first and create the record and its link in one transaction.
// Addresses are matched structurally, carriers and order states by code.
package resolver

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xelth-com/magebridge/internal/logger"
	"github.com/xelth-com/magebridge/internal/registry"
	"github.com/xelth-com/magebridge/internal/storefront"
)

var (
	ErrUnknownCountry     = errors.New("unknown country code")
	ErrUnknownSubdivision = errors.New("unknown subdivision")
)

// Set bundles the resolvers of one channel run
type Set struct {
	Party      *PartyResolver
	Address    *AddressResolver
	Category   *CategoryResolver
	Product    *ProductResolver
	Carrier    *CarrierResolver
	OrderState *OrderStateResolver
}

// New creates every resolver over db, fetching missing records through api
func New(db *gorm.DB, api storefront.API, log *zap.Logger) *Set {
	reg := registry.New(db)
	log = log.Named("resolver")

	categories := &CategoryResolver{db: db, reg: reg, api: api, log: log}
	return &Set{
		Party:      &PartyResolver{db: db, reg: reg, api: api, log: log},
		Address:    &AddressResolver{db: db, log: log},
		Category:   categories,
		Product:    &ProductResolver{db: db, reg: reg, api: api, categories: categories, log: log},
		Carrier:    &CarrierResolver{db: db, log: log},
		OrderState: &OrderStateResolver{db: db, log: log},
	}
}

func contextLogger(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	return logger.FromContext(ctx, fallback)
}
