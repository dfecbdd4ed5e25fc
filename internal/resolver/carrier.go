package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/normalize"
)

// CarrierResolver keeps the channel's shipping methods
type CarrierResolver struct {
	db  *gorm.DB
	log *zap.Logger
}

// ImportAll stores shipping methods that are not known yet and returns how many were added.
// Existing rows keep their title and carrier mapping.
func (r *CarrierResolver) ImportAll(ctx context.Context, ch *models.Channel, methods []normalize.ShippingMethod) (int, error) {
	added := 0
	for _, m := range methods {
		row := models.ChannelCarrier{ChannelID: ch.ID, Code: m.Code, Title: m.Label}
		res := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "channel_id"}, {Name: "code"}}, DoNothing: true}).
			Create(&row)
		if res.Error != nil {
			return added, fmt.Errorf("failed to import carrier %s: %w", m.Code, res.Error)
		}
		added += int(res.RowsAffected)
	}
	contextLogger(ctx, r.log).Info("Carriers imported",
		zap.Uint("channel_id", ch.ID),
		zap.Int("received", len(methods)),
		zap.Int("added", added))
	return added, nil
}

// FindByCode returns the channel carrier for a shipping method code with its local carrier loaded
func (r *CarrierResolver) FindByCode(ctx context.Context, ch *models.Channel, code string) (*models.ChannelCarrier, bool, error) {
	var rows []models.ChannelCarrier
	err := r.db.WithContext(ctx).
		Preload("Carrier").
		Where("channel_id = ? AND code = ?", ch.ID, code).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, false, fmt.Errorf("failed to find carrier %s: %w", code, err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return &rows[0], true, nil
}
