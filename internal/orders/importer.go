// Package orders imports storefront orders as local sales and drives them
// through the local sale workflow.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xelth-com/magebridge/internal/bom"
	"github.com/xelth-com/magebridge/internal/exceptions"
	"github.com/xelth-com/magebridge/internal/logger"
	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/normalize"
	"github.com/xelth-com/magebridge/internal/orderstate"
	"github.com/xelth-com/magebridge/internal/registry"
	"github.com/xelth-com/magebridge/internal/resolver"
	"github.com/xelth-com/magebridge/internal/storefront"
	"github.com/xelth-com/magebridge/internal/watermark"
)

var (
	ErrUnknownCurrency = errors.New("unknown currency code")
	ErrNoImportStates  = errors.New("no order states are enabled for import")
)

const remoteTimeLayout = "2006-01-02 15:04:05"

// Importer turns storefront orders into local sales
type Importer struct {
	db         *gorm.DB
	api        storefront.API
	reg        *registry.Registry
	res        *resolver.Set
	boms       *bom.Resolver
	sink       *exceptions.Sink
	workflow   *Workflow
	watermarks *watermark.Store
	log        *zap.Logger
}

// NewImporter creates an importer for one channel session. db must not be a transaction.
func NewImporter(db *gorm.DB, api storefront.API, sink *exceptions.Sink, log *zap.Logger) *Importer {
	log = log.Named("orders")
	res := resolver.New(db, api, log)
	return &Importer{
		db:         db,
		api:        api,
		reg:        registry.New(db),
		res:        res,
		boms:       bom.NewResolver(db, res.Product, log),
		sink:       sink,
		workflow:   NewWorkflow(db),
		watermarks: watermark.NewStore(db),
		log:        log,
	}
}

// Summary counts the outcome of a batch run
type Summary struct {
	Listed   int
	Imported int
	Failed   int
}

// ImportOrders imports every order in an importable state changed since the last run.
// The watermark moves before listing. One failing order never stops the batch.
func (im *Importer) ImportOrders(ctx context.Context, ch *models.Channel) (Summary, error) {
	log := logger.FromContext(ctx, im.log).With(zap.Uint("channel_id", ch.ID))

	codes, err := im.res.OrderState.ImportableCodes(ctx, ch)
	if err != nil {
		return Summary{}, err
	}
	if len(codes) == 0 {
		return Summary{}, ErrNoImportStates
	}

	since, err := im.watermarks.Advance(ctx, ch.ID, models.WatermarkOrderImport)
	if err != nil {
		return Summary{}, err
	}

	filter := storefront.Filter{
		"store_id": {"eq": ch.StoreID},
		"state":    {"in": codes},
	}
	if since != nil {
		filter["updated_at"] = map[string]interface{}{"gteq": since.UTC().Format(remoteTimeLayout)}
	}
	recs, err := im.api.ListOrders(ctx, filter)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list orders: %w", err)
	}

	sum := Summary{Listed: len(recs)}
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		ref, err := normalize.NewOrderRef(rec)
		if err != nil {
			sum.Failed++
			log.Error("Skipping malformed order summary", zap.Error(err))
			continue
		}

		full, err := im.api.OrderInfo(ctx, ref.IncrementID)
		if err == nil {
			_, err = im.FindOrCreate(ctx, ch, full)
		}
		if err != nil {
			sum.Failed++
			log.Error("Order import failed",
				zap.String("increment_id", ref.IncrementID),
				zap.Error(err))
			continue
		}
		sum.Imported++
	}

	log.Info("Order import finished",
		zap.Int("listed", sum.Listed),
		zap.Int("imported", sum.Imported),
		zap.Int("failed", sum.Failed))
	return sum, nil
}

// FindOrCreate returns the sale of an already imported order unchanged, or imports it.
func (im *Importer) FindOrCreate(ctx context.Context, ch *models.Channel, rec storefront.Record) (*models.Sale, error) {
	order, err := normalize.NewOrder(rec)
	if err != nil {
		return nil, err
	}

	id, found, err := im.reg.Find(ctx, registry.Order, order.RemoteID, ch.ID)
	if err != nil {
		return nil, err
	}
	if found {
		return im.load(ctx, id)
	}
	return im.create(ctx, ch, order, rec)
}

func (im *Importer) create(ctx context.Context, ch *models.Channel, order normalize.Order, rec storefront.Record) (*models.Sale, error) {
	log := logger.FromContext(ctx, im.log).With(
		zap.Uint("channel_id", ch.ID),
		zap.String("increment_id", order.IncrementID))

	var currency models.Currency
	err := im.db.WithContext(ctx).Where("code = ?", order.CurrencyCode).First(&currency).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCurrency, order.CurrencyCode)
	}
	if err != nil {
		return nil, err
	}

	party, err := im.res.Party.ResolveByRemoteData(ctx, ch, order.Customer)
	if err != nil {
		return nil, err
	}
	billing, err := im.res.Address.FindOrCreateForParty(ctx, party, order.Billing)
	if err != nil {
		return nil, err
	}
	shipping := billing
	if order.Shipping != nil {
		if shipping, err = im.res.Address.FindOrCreateForParty(ctx, party, *order.Shipping); err != nil {
			return nil, err
		}
	}

	policy, err := im.res.OrderState.Policy(ctx, ch, order.State)
	if err != nil {
		return nil, err
	}
	if order.Shipping == nil {
		policy.ShipmentMethod = models.MethodManual
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order payload: %w", err)
	}
	saleDate := order.CreatedAt
	if saleDate.IsZero() {
		saleDate = time.Now().UTC()
	}

	saleID, created, err := im.reg.Resolve(ctx, registry.Order, order.RemoteID, ch.ID, func(tx *gorm.DB) (uint, error) {
		sale := models.Sale{
			Reference:         ch.SaleReference(order.IncrementID),
			ChannelID:         ch.ID,
			RemoteOrderID:     order.RemoteID,
			RemoteIncrementID: order.IncrementID,
			RemoteState:       order.State,
			PartyID:           party.ID,
			InvoiceAddressID:  billing.ID,
			ShipmentAddressID: shipping.ID,
			CurrencyID:        currency.ID,
			SaleDate:          saleDate,
			State:             models.SaleDraft,
			InvoiceMethod:     policy.InvoiceMethod,
			ShipmentMethod:    policy.ShipmentMethod,
			ShipmentState:     models.ShipmentStateNone,
			RawData:           raw,
		}
		if err := tx.Create(&sale).Error; err != nil {
			return 0, err
		}
		return sale.ID, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sale for order %s: %w", order.IncrementID, err)
	}
	if !created {
		// imported concurrently by another run
		return im.load(ctx, saleID)
	}
	log.Info("Sale created", zap.Uint("sale_id", saleID))

	sale, err := im.load(ctx, saleID)
	if err != nil {
		return nil, err
	}
	im.addLines(ctx, ch, sale, order)
	im.transition(ctx, sale, order.State, policy)
	return im.load(ctx, saleID)
}

// flag records an exception on the sale and marks it
func (im *Importer) flag(ctx context.Context, sale *models.Sale, message string) {
	im.flagAt(ctx, sale, exceptions.SaleOrigin(sale.ID), message)
}

// flagAt records message against origin and sets the exception flag of sale
func (im *Importer) flagAt(ctx context.Context, sale *models.Sale, origin exceptions.Origin, message string) {
	im.sink.Record(ctx, origin, message)
	err := im.db.WithContext(ctx).Model(&models.Sale{}).
		Where("id = ?", sale.ID).
		Update("has_exception", true).Error
	if err != nil {
		logger.FromContext(ctx, im.log).Error("Failed to flag sale",
			zap.Uint("sale_id", sale.ID),
			zap.Error(err))
		return
	}
	sale.HasException = true
}

type step struct {
	target models.SaleState
	apply  func(context.Context, *models.Sale) error
}

// transition applies the translated remote state. Failures are recorded on the sale and never returned.
func (im *Importer) transition(ctx context.Context, sale *models.Sale, remoteState string, policy orderstate.Translation) {
	if policy.Cancels() {
		if err := im.workflow.Cancel(ctx, sale); err != nil {
			im.sink.Recordf(ctx, exceptions.SaleOrigin(sale.ID), "Failed to move sale to %s: %v", models.SaleCancelled, err)
		}
		return
	}

	steps := []step{{models.SaleQuotation, im.workflow.Quote}}
	if policy.Confirms() {
		steps = append(steps, step{models.SaleConfirmed, im.workflow.Confirm})
	}
	if policy.Processes() {
		steps = append(steps, step{models.SaleProcessing, im.workflow.Process})
	}

	for _, step := range steps {
		if err := step.apply(ctx, sale); err != nil {
			im.sink.Recordf(ctx, exceptions.SaleOrigin(sale.ID),
				"Failed to move sale from %s to %s for remote state %q: %v", sale.State, step.target, remoteState, err)
			return
		}
	}
}

func (im *Importer) load(ctx context.Context, id uint) (*models.Sale, error) {
	var sale models.Sale
	err := im.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("sequence, id") }).
		Preload("Lines.Taxes").
		First(&sale, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load sale %d: %w", id, err)
	}
	return &sale, nil
}
