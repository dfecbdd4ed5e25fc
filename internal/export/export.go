// Package export pushes local changes back to the storefront: stock levels,
// tier prices, shipments with tracking, order status and new products.
//
// Every incremental export advances its watermark before it starts, so a
// crashed run skips records rather than sending them twice.
package export

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xelth-com/magebridge/internal/logger"
	"github.com/xelth-com/magebridge/internal/registry"
	"github.com/xelth-com/magebridge/internal/storefront"
	"github.com/xelth-com/magebridge/internal/watermark"
)

// Summary counts the outcome of one export run
type Summary struct {
	Exported int
	Skipped  int
	Failed   int
}

// Exporter runs exports for one channel session
type Exporter struct {
	db         *gorm.DB
	api        storefront.API
	reg        *registry.Registry
	watermarks *watermark.Store
	log        *zap.Logger
}

// New creates an exporter. db must not be a transaction.
func New(db *gorm.DB, api storefront.API, log *zap.Logger) *Exporter {
	return &Exporter{
		db:         db,
		api:        api,
		reg:        registry.New(db),
		watermarks: watermark.NewStore(db),
		log:        log.Named("export"),
	}
}

func (e *Exporter) finish(ctx context.Context, kind string, channelID uint, sum Summary) {
	logger.FromContext(ctx, e.log).Info("Export finished",
		zap.String("kind", kind),
		zap.Uint("channel_id", channelID),
		zap.Int("exported", sum.Exported),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed))
}
