package export

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xelth-com/magebridge/internal/logger"
	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/storefront"
)

// Shipments creates remote shipments for sent sales changed since the last run,
// attaching tracking numbers when the channel exports them.
func (e *Exporter) Shipments(ctx context.Context, ch *models.Channel) (Summary, error) {
	since, err := e.watermarks.Advance(ctx, ch.ID, models.WatermarkShipment)
	if err != nil {
		return Summary{}, err
	}

	q := e.db.WithContext(ctx).
		Preload("Shipments", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		Preload("Shipments.Moves.SaleLine").
		Where("channel_id = ? AND shipment_state = ? AND remote_order_id <> 0", ch.ID, models.ShipmentStateSent).
		Where("EXISTS (SELECT 1 FROM shipments WHERE shipments.sale_id = sales.id)")
	if since != nil {
		q = q.Where("sales.updated_at >= ?", *since)
	}
	var sales []models.Sale
	if err := q.Order("id").Find(&sales).Error; err != nil {
		return Summary{}, fmt.Errorf("failed to load shipped sales: %w", err)
	}

	log := logger.FromContext(ctx, e.log)
	var sum Summary
	for i := range sales {
		sale := &sales[i]
		for j := range sale.Shipments {
			sh := &sale.Shipments[j]
			if !exportable(ch, sh) {
				continue
			}
			switch err := e.exportShipment(ctx, ch, sale, sh); {
			case err == nil:
				sum.Exported++
			case errors.Is(err, errSkipped):
				sum.Skipped++
			default:
				sum.Failed++
				log.Error("Shipment export failed",
					zap.Uint("sale_id", sale.ID),
					zap.Uint("shipment_id", sh.ID),
					zap.Error(err))
			}
		}
	}
	e.finish(ctx, models.WatermarkShipment, ch.ID, sum)
	return sum, nil
}

var errSkipped = errors.New("skipped")

// exportable reports whether sh still needs a remote shipment or its tracking number
func exportable(ch *models.Channel, sh *models.Shipment) bool {
	if sh.TrackingExported {
		return false
	}
	if sh.RemoteIncrementID != "" && !trackingPending(ch, sh) {
		return false
	}
	return sh.State == models.ShipmentPacked || sh.State == models.ShipmentDone
}

func trackingPending(ch *models.Channel, sh *models.Shipment) bool {
	return ch.ExportTracking && sh.TrackingNumber != "" && sh.CarrierID != nil
}

func (e *Exporter) exportShipment(ctx context.Context, ch *models.Channel, sale *models.Sale, sh *models.Shipment) error {
	created := false
	if sh.RemoteIncrementID == "" {
		items := shippedItems(sh)
		if len(items) == 0 {
			return errSkipped
		}
		remoteID, err := e.api.CreateShipment(ctx, orderIncrementID(ch, sale), items)
		if storefront.IsFault(err, storefront.FaultAlreadyExists) {
			logger.FromContext(ctx, e.log).Info("Shipment already exists remotely",
				zap.Uint("sale_id", sale.ID),
				zap.Uint("shipment_id", sh.ID))
			return errSkipped
		}
		if err != nil {
			return err
		}
		// without tracking export there is nothing left to send for this shipment
		updates := map[string]interface{}{
			"remote_increment_id": remoteID,
			"tracking_exported":   !ch.ExportTracking,
		}
		if err := e.db.WithContext(ctx).Model(sh).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to store remote shipment id: %w", err)
		}
		sh.RemoteIncrementID = remoteID
		sh.TrackingExported = !ch.ExportTracking
		created = true
	}

	if !trackingPending(ch, sh) {
		return nil
	}
	err := e.exportTracking(ctx, ch, sh)
	if errors.Is(err, errSkipped) && created {
		return nil
	}
	return err
}

func (e *Exporter) exportTracking(ctx context.Context, ch *models.Channel, sh *models.Shipment) error {
	var carriers []models.ChannelCarrier
	err := e.db.WithContext(ctx).
		Where("channel_id = ? AND carrier_id = ?", ch.ID, *sh.CarrierID).
		Order("id").
		Limit(1).
		Find(&carriers).Error
	if err != nil {
		return err
	}
	if len(carriers) == 0 {
		logger.FromContext(ctx, e.log).Warn("Carrier has no shipping method on channel, tracking not sent",
			zap.Uint("shipment_id", sh.ID),
			zap.Uint("carrier_id", *sh.CarrierID))
		return errSkipped
	}
	cc := carriers[0]
	if err := e.api.AddTrack(ctx, sh.RemoteIncrementID, cc.Code, cc.Title, sh.TrackingNumber); err != nil {
		return fmt.Errorf("failed to add tracking: %w", err)
	}
	if err := e.db.WithContext(ctx).Model(sh).Update("tracking_exported", true).Error; err != nil {
		return fmt.Errorf("failed to mark tracking exported: %w", err)
	}
	sh.TrackingExported = true
	return nil
}

// shippedItems sums move quantities per remote order item
func shippedItems(sh *models.Shipment) map[string]decimal.Decimal {
	items := map[string]decimal.Decimal{}
	for _, m := range sh.Moves {
		if m.SaleLine == nil || m.SaleLine.RemoteItemID == nil {
			continue
		}
		key := strconv.Itoa(*m.SaleLine.RemoteItemID)
		items[key] = items[key].Add(m.Quantity)
	}
	return items
}

func orderIncrementID(ch *models.Channel, sale *models.Sale) string {
	if sale.RemoteIncrementID != "" {
		return sale.RemoteIncrementID
	}
	return ch.IncrementID(sale.Reference)
}
