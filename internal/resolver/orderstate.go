package resolver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/normalize"
	"github.com/xelth-com/magebridge/internal/orderstate"
)

// OrderStateResolver keeps the channel's order state mappings
type OrderStateResolver struct {
	db  *gorm.DB
	log *zap.Logger
}

// ImportAll stores states that are not known yet. Only the label comes from the storefront;
// the policy is always taken from the translation table.
func (r *OrderStateResolver) ImportAll(ctx context.Context, ch *models.Channel, states []normalize.OrderState) (int, error) {
	added := 0
	for _, s := range states {
		t := orderstate.Translate(s.Code)
		row := models.OrderStateMapping{
			ChannelID:      ch.ID,
			Code:           s.Code,
			Name:           s.Label,
			State:          t.State,
			InvoiceMethod:  t.InvoiceMethod,
			ShipmentMethod: t.ShipmentMethod,
			UseForImport:   true,
		}
		res := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "channel_id"}, {Name: "code"}}, DoNothing: true}).
			Create(&row)
		if res.Error != nil {
			return added, fmt.Errorf("failed to import order state %s: %w", s.Code, res.Error)
		}
		added += int(res.RowsAffected)
	}
	contextLogger(ctx, r.log).Info("Order states imported",
		zap.Uint("channel_id", ch.ID),
		zap.Int("received", len(states)),
		zap.Int("added", added))
	return added, nil
}

// ImportableCodes returns the state codes whose orders are imported
func (r *OrderStateResolver) ImportableCodes(ctx context.Context, ch *models.Channel) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).Model(&models.OrderStateMapping{}).
		Where("channel_id = ? AND use_for_import = ?", ch.ID, true).
		Order("code").
		Pluck("code", &codes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list import states: %w", err)
	}
	return codes, nil
}

// Policy returns the stored policy for a state code, or the translation table's when the code is unmapped
func (r *OrderStateResolver) Policy(ctx context.Context, ch *models.Channel, code string) (orderstate.Translation, error) {
	var m models.OrderStateMapping
	err := r.db.WithContext(ctx).Where("channel_id = ? AND code = ?", ch.ID, code).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return orderstate.Translate(code), nil
	}
	if err != nil {
		return orderstate.Translation{}, fmt.Errorf("failed to load order state %s: %w", code, err)
	}
	return orderstate.Translation{State: m.State, InvoiceMethod: m.InvoiceMethod, ShipmentMethod: m.ShipmentMethod}, nil
}
