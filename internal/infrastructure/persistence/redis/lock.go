package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mercadotiendas/storefront/internal/application/ports"
	"github.com/mercadotiendas/storefront/internal/infrastructure/monitoring"
)

const releaseLockLuaScript = `
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`

// Locker is a SETNX lock with an owner token, so a holder whose lock
// already expired cannot release someone else's.
type Locker struct {
	client  *redis.Client
	release *redis.Script
}

var _ ports.Locker = (*Locker)(nil)

func NewLocker(conn *Connection) *Locker {
	return &Locker{client: conn.GetClient(), release: redis.NewScript(releaseLockLuaScript)}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	metrics := monitoring.NewDistributedLockMetrics(key)
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		metrics.RecordFailure("redis_error")
		return "", false, err
	}
	if !acquired {
		metrics.RecordFailure("already_locked")
		return "", false, nil
	}

	metrics.RecordSuccess()
	return token, true, nil
}

func (l *Locker) Unlock(ctx context.Context, key, token string) error {
	return l.release.Run(ctx, l.client, []string{key}, token).Err()
}
