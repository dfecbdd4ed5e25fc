package orders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelth-com/magebridge/internal/database"
	"github.com/xelth-com/magebridge/internal/database/dbtest"
	"github.com/xelth-com/magebridge/internal/models"
)

func draftSale(t *testing.T, db *database.DB) *models.Sale {
	t.Helper()
	ch := dbtest.Channel(t, db)
	sale := &models.Sale{Reference: "S1", ChannelID: ch.ID, PartyID: 1, CurrencyID: 1, State: models.SaleDraft}
	require.NoError(t, db.Create(sale).Error)
	return sale
}

func storedState(t *testing.T, db *database.DB, id uint) models.SaleState {
	t.Helper()
	var s models.Sale
	require.NoError(t, db.First(&s, id).Error)
	return s.State
}

func TestWorkflowHappyPath(t *testing.T) {
	db := dbtest.New(t)
	sale := draftSale(t, db)
	wf := NewWorkflow(db.DB)
	ctx := context.Background()

	require.NoError(t, wf.Quote(ctx, sale))
	require.NoError(t, wf.Confirm(ctx, sale))
	require.NoError(t, wf.Process(ctx, sale))
	require.NoError(t, wf.Complete(ctx, sale))

	assert.Equal(t, models.SaleDone, sale.State)
	assert.Equal(t, models.SaleDone, storedState(t, db, sale.ID))

	err := wf.Cancel(ctx, sale)
	assert.ErrorIs(t, err, ErrInvalidTransition, "done sales cannot be cancelled")
}

func TestWorkflowInvalidTransition(t *testing.T) {
	db := dbtest.New(t)
	sale := draftSale(t, db)
	wf := NewWorkflow(db.DB)

	err := wf.Confirm(context.Background(), sale)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.SaleDraft, storedState(t, db, sale.ID))
}

func TestWorkflowExceptionGuard(t *testing.T) {
	db := dbtest.New(t)
	sale := draftSale(t, db)
	wf := NewWorkflow(db.DB)
	ctx := context.Background()

	require.NoError(t, wf.Quote(ctx, sale))
	require.NoError(t, db.Model(sale).Update("has_exception", true).Error)

	err := wf.Confirm(ctx, sale)
	assert.ErrorIs(t, err, ErrSaleHasException)
	assert.Equal(t, models.SaleQuotation, sale.State)
	assert.True(t, sale.HasException)

	require.NoError(t, wf.ClearException(ctx, sale))
	require.NoError(t, wf.Confirm(ctx, sale))
	assert.Equal(t, models.SaleConfirmed, storedState(t, db, sale.ID))
}

func TestWorkflowCancelFromAnyOpenState(t *testing.T) {
	db := dbtest.New(t)
	wf := NewWorkflow(db.DB)
	ctx := context.Background()

	for _, steps := range [][]func(context.Context, *models.Sale) error{
		nil,
		{wf.Quote},
		{wf.Quote, wf.Confirm},
		{wf.Quote, wf.Confirm, wf.Process},
	} {
		sale := draftSale(t, db)
		for _, step := range steps {
			require.NoError(t, step(ctx, sale))
		}
		require.NoError(t, wf.Cancel(ctx, sale))
		assert.Equal(t, models.SaleCancelled, storedState(t, db, sale.ID))
	}
}
