package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xelth-com/magebridge/internal/config"
)

func exercise(t *testing.T, l Locker) {
	t.Helper()
	ctx := context.Background()
	name := "orders:" + uuid.NewString()

	release, ok, err := l.TryLock(ctx, name)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, name)
	require.NoError(t, err)
	assert.False(t, ok, "lock is held")

	other, ok, err := l.TryLock(ctx, name+":other")
	require.NoError(t, err)
	assert.True(t, ok, "names are independent")
	other()

	release()
	release()

	again, ok, err := l.TryLock(ctx, name)
	require.NoError(t, err)
	assert.True(t, ok)
	again()
}

func TestLocal(t *testing.T) {
	exercise(t, NewLocal())
}

func TestNewWithoutRedis(t *testing.T) {
	l, err := New(context.Background(), config.RedisConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.IsType(t, &Local{}, l)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	r := NewRedis(client, time.Minute, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = r.Close() })

	exercise(t, r)
}
