// Package lock keeps two runs of the same channel job from overlapping.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xelth-com/magebridge/internal/config"
)

const keyPrefix = "magebridge:run:"

// Locker hands out named run locks. Release must be called once the run is over.
type Locker interface {
	TryLock(ctx context.Context, name string) (release func(), ok bool, err error)
}

// New returns a Redis-backed locker when an address is configured, otherwise an in-process one
func New(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (Locker, error) {
	if cfg.Addr == "" {
		log.Info("Redis not configured, using in-process run locks")
		return NewLocal(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedis(client, cfg.LockTTL, log), nil
}

// Local is a locker for a single process
type Local struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocal creates an empty in-process locker
func NewLocal() *Local {
	return &Local{held: map[string]bool{}}
}

func (l *Local) TryLock(ctx context.Context, name string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		return nil, false, nil
	}
	l.held[name] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
	}, true, nil
}

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a locker shared by every process using the same Redis.
// Locks expire after ttl so a crashed holder cannot block a channel forever.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedis creates a Redis locker over an existing client
func NewRedis(client *redis.Client, ttl time.Duration, log *zap.Logger) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Redis{client: client, ttl: ttl, log: log.Named("lock")}
}

func (r *Redis) TryLock(ctx context.Context, name string) (func(), bool, error) {
	key := keyPrefix + name
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
				r.log.Warn("Failed to release lock", zap.String("lock", name), zap.Error(err))
			}
		})
	}, true, nil
}

// Close closes the Redis client
func (r *Redis) Close() error {
	return r.client.Close()
}
