package exceptions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xelth-com/magebridge/internal/database/dbtest"
	"github.com/xelth-com/magebridge/internal/models"
)

func TestRecordAndQuery(t *testing.T) {
	db := dbtest.New(t)
	sink := NewSink(db.DB, zap.NewNop())
	ctx := context.Background()

	sink.Record(ctx, SaleOrigin(1), "product 7 not found")
	sink.Recordf(ctx, SaleOrigin(1), "confirm failed: %s", "has exception")
	sink.Record(ctx, LineOrigin(1), "line level")
	sink.Record(ctx, SaleOrigin(2), "other sale")

	recs, err := sink.ForOrigin(ctx, SaleOrigin(1))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "product 7 not found", recs[0].Log)
	assert.Equal(t, "confirm failed: has exception", recs[1].Log)

	all, err := sink.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "other sale", all[0].Log, "newest first")

	lines, err := sink.List(ctx, Filter{Model: models.OriginSaleLine})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, uint(1), lines[0].OriginID)

	limited, err := sink.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecordSurvivesCancelledContext(t *testing.T) {
	db := dbtest.New(t)
	sink := NewSink(db.DB, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink.Record(ctx, SaleOrigin(3), "run aborted")

	recs, err := sink.ForOrigin(context.Background(), SaleOrigin(3))
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestRecordNeverFails(t *testing.T) {
	db := dbtest.New(t)
	require.NoError(t, db.Migrator().DropTable(&models.ExceptionRecord{}))

	core, logs := observer.New(zap.ErrorLevel)
	sink := NewSink(db.DB, zap.New(core))

	assert.NotPanics(t, func() {
		sink.Record(context.Background(), SaleOrigin(1), "lost")
	})
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Failed to record exception", logs.All()[0].Message)
}
