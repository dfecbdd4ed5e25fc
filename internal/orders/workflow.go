package orders

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/xelth-com/magebridge/internal/models"
)

var (
	ErrInvalidTransition = errors.New("invalid sale state transition")
	ErrSaleHasException  = errors.New("sale has unresolved exceptions")
)

// Workflow moves sales through draft, quotation, confirmed, processing and done.
// Any state before done may be cancelled.
type Workflow struct {
	db *gorm.DB
}

// NewWorkflow creates a workflow over db
func NewWorkflow(db *gorm.DB) *Workflow {
	return &Workflow{db: db}
}

// Quote turns a draft into a quotation
func (w *Workflow) Quote(ctx context.Context, sale *models.Sale) error {
	return w.transition(ctx, sale, models.SaleQuotation, false, models.SaleDraft)
}

// Confirm confirms a quotation. Sales flagged with an exception are refused.
func (w *Workflow) Confirm(ctx context.Context, sale *models.Sale) error {
	return w.transition(ctx, sale, models.SaleConfirmed, true, models.SaleQuotation)
}

// Process starts processing a confirmed sale
func (w *Workflow) Process(ctx context.Context, sale *models.Sale) error {
	return w.transition(ctx, sale, models.SaleProcessing, true, models.SaleConfirmed)
}

// Complete marks a processing sale as done
func (w *Workflow) Complete(ctx context.Context, sale *models.Sale) error {
	return w.transition(ctx, sale, models.SaleDone, false, models.SaleProcessing)
}

// Cancel cancels a sale that is not done yet
func (w *Workflow) Cancel(ctx context.Context, sale *models.Sale) error {
	return w.transition(ctx, sale, models.SaleCancelled, false,
		models.SaleDraft, models.SaleQuotation, models.SaleConfirmed, models.SaleProcessing)
}

// ClearException resets the exception flag after an operator has fixed the sale
func (w *Workflow) ClearException(ctx context.Context, sale *models.Sale) error {
	err := w.db.WithContext(ctx).Model(&models.Sale{}).
		Where("id = ?", sale.ID).
		Update("has_exception", false).Error
	if err != nil {
		return fmt.Errorf("failed to clear exception on sale %d: %w", sale.ID, err)
	}
	sale.HasException = false
	return nil
}

// transition updates the state only if the stored sale is still in one of from,
// so concurrent callers cannot both apply the same step
func (w *Workflow) transition(ctx context.Context, sale *models.Sale, to models.SaleState, guarded bool, from ...models.SaleState) error {
	q := w.db.WithContext(ctx).Model(&models.Sale{}).Where("id = ? AND state IN ?", sale.ID, from)
	if guarded {
		q = q.Where("has_exception = ?", false)
	}
	res := q.Update("state", to)
	if res.Error != nil {
		return fmt.Errorf("failed to move sale %d to %s: %w", sale.ID, to, res.Error)
	}
	if res.RowsAffected == 1 {
		sale.State = to
		return nil
	}

	var current models.Sale
	if err := w.db.WithContext(ctx).Select("id", "state", "has_exception").First(&current, sale.ID).Error; err != nil {
		return fmt.Errorf("failed to load sale %d: %w", sale.ID, err)
	}
	sale.State, sale.HasException = current.State, current.HasException
	if guarded && current.HasException && stateIn(current.State, from) {
		return fmt.Errorf("%w: cannot move sale %d to %s", ErrSaleHasException, sale.ID, to)
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.State, to)
}

func stateIn(s models.SaleState, states []models.SaleState) bool {
	for _, st := range states {
		if s == st {
			return true
		}
	}
	return false
}
