// Package exceptions stores diagnostics for sales and sale lines that an
// import could not process cleanly. Records are append-only.
package exceptions

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xelth-com/magebridge/internal/logger"
	"github.com/xelth-com/magebridge/internal/models"
)

// Origin identifies the record an exception belongs to
type Origin struct {
	Model string
	ID    uint
}

// SaleOrigin is the origin of an exception raised for a whole sale
func SaleOrigin(id uint) Origin {
	return Origin{Model: models.OriginSale, ID: id}
}

// LineOrigin is the origin of an exception raised for one sale line
func LineOrigin(id uint) Origin {
	return Origin{Model: models.OriginSaleLine, ID: id}
}

func (o Origin) String() string {
	return fmt.Sprintf("%s:%d", o.Model, o.ID)
}

// Filter narrows List results. Zero fields are ignored.
type Filter struct {
	Model string
	Since time.Time
	Limit int
}

// Sink writes exception records
type Sink struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewSink creates a sink. db must not be a transaction handle.
func NewSink(db *gorm.DB, log *zap.Logger) *Sink {
	return &Sink{db: db, log: log.Named("exceptions")}
}

// Record appends an exception for origin. It never fails; write errors are logged.
func (s *Sink) Record(ctx context.Context, origin Origin, message string) {
	log := logger.FromContext(ctx, s.log)
	rec := models.ExceptionRecord{
		OriginModel: origin.Model,
		OriginID:    origin.ID,
		Log:         message,
	}
	// detached so a cancelled run still leaves its diagnostics behind
	if err := s.db.WithContext(context.WithoutCancel(ctx)).Create(&rec).Error; err != nil {
		log.Error("Failed to record exception",
			zap.Stringer("origin", origin),
			zap.String("message", message),
			zap.Error(err))
		return
	}
	log.Warn("Exception recorded",
		zap.Stringer("origin", origin),
		zap.String("message", message))
}

// Recordf formats the message and records it
func (s *Sink) Recordf(ctx context.Context, origin Origin, format string, args ...interface{}) {
	s.Record(ctx, origin, fmt.Sprintf(format, args...))
}

// ForOrigin returns the exceptions of one record, oldest first
func (s *Sink) ForOrigin(ctx context.Context, origin Origin) ([]models.ExceptionRecord, error) {
	var recs []models.ExceptionRecord
	err := s.db.WithContext(ctx).
		Where("origin_model = ? AND origin_id = ?", origin.Model, origin.ID).
		Order("id").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load exceptions for %s: %w", origin, err)
	}
	return recs, nil
}

// List returns exceptions newest first
func (s *Sink) List(ctx context.Context, f Filter) ([]models.ExceptionRecord, error) {
	q := s.db.WithContext(ctx).Model(&models.ExceptionRecord{})
	if f.Model != "" {
		q = q.Where("origin_model = ?", f.Model)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var recs []models.ExceptionRecord
	if err := q.Order("id DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list exceptions: %w", err)
	}
	return recs, nil
}
