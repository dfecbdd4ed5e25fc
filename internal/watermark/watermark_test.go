package watermark

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelth-com/magebridge/internal/database/dbtest"
	"github.com/xelth-com/magebridge/internal/models"
)

func TestAdvance(t *testing.T) {
	db := dbtest.New(t)
	ch := dbtest.Channel(t, db)
	store := NewStore(db.DB)
	ctx := context.Background()

	t1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	clock := t1
	store.now = func() time.Time { return clock }

	prev, err := store.Advance(ctx, ch.ID, models.WatermarkInventory)
	require.NoError(t, err)
	assert.Nil(t, prev, "first run has no watermark")

	clock = t2
	prev, err = store.Advance(ctx, ch.ID, models.WatermarkInventory)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.True(t, t1.Equal(*prev))

	cur, err := store.Get(ctx, ch.ID, models.WatermarkInventory)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.True(t, t2.Equal(*cur))

	t3 := t2.Add(time.Hour)
	clock = t3
	prev, err = store.Advance(ctx, ch.ID, models.WatermarkInventory)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.True(t, t2.Equal(*prev), "each run sees the previous run's time, got %s", prev)

	other, err := store.Get(ctx, ch.ID, models.WatermarkShipment)
	require.NoError(t, err)
	assert.Nil(t, other, "kinds are tracked separately")

	require.NoError(t, store.Reset(ctx, ch.ID, models.WatermarkInventory))
	cur, err = store.Get(ctx, ch.ID, models.WatermarkInventory)
	require.NoError(t, err)
	assert.Nil(t, cur)
}
