package export

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xelth-com/magebridge/internal/logger"
	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/orderstate"
	"github.com/xelth-com/magebridge/internal/storefront"
)

// OrderStatus pushes cancellations and completions of sales changed since the last run
func (e *Exporter) OrderStatus(ctx context.Context, ch *models.Channel) (Summary, error) {
	since, err := e.watermarks.Advance(ctx, ch.ID, models.WatermarkOrderStatus)
	if err != nil {
		return Summary{}, err
	}

	q := e.db.WithContext(ctx).
		Where("channel_id = ? AND remote_order_id <> 0", ch.ID).
		Where("state IN ?", []models.SaleState{models.SaleCancelled, models.SaleDone})
	if since != nil {
		q = q.Where("updated_at >= ?", *since)
	}
	var sales []models.Sale
	if err := q.Order("id").Find(&sales).Error; err != nil {
		return Summary{}, fmt.Errorf("failed to load sales: %w", err)
	}

	log := logger.FromContext(ctx, e.log)
	var sum Summary
	for i := range sales {
		sale := &sales[i]
		action := orderstate.ExportAction(sale.State)
		inc := orderIncrementID(ch, sale)

		var err error
		switch action {
		case orderstate.ActionCancel:
			err = e.api.CancelOrder(ctx, inc)
		case orderstate.ActionComplete:
			err = e.api.AddOrderComment(ctx, inc, orderstate.CompleteStatus, "", false)
		default:
			sum.Skipped++
			continue
		}

		switch {
		case err == nil:
			sum.Exported++
		case storefront.IsFault(err, storefront.FaultRejected):
			sum.Skipped++
			log.Info("Storefront rejected status change",
				zap.String("increment_id", inc),
				zap.String("action", action.String()))
		default:
			sum.Failed++
			log.Error("Status export failed",
				zap.String("increment_id", inc),
				zap.String("action", action.String()),
				zap.Error(err))
		}
	}
	e.finish(ctx, models.WatermarkOrderStatus, ch.ID, sum)
	return sum, nil
}
