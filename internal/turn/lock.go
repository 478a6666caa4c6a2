package turn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"empires-server/internal/shared/errors"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Locker guards turn advancement so only one caller advances a game at a
// time. Acquire fails with a conflict error while the lock is held.
type Locker interface {
	Acquire(ctx context.Context, gameID int64, ttl time.Duration) (release func(context.Context) error, err error)
}

func lockKey(gameID int64) string {
	return fmt.Sprintf("empires:game:%d:advance", gameID)
}

// MemoryLocker is a process-local Locker.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[int64]memoryLease
	clock func() time.Time
}

type memoryLease struct {
	token   string
	expires time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[int64]memoryLease), clock: time.Now}
}

func (m *MemoryLocker) Acquire(_ context.Context, gameID int64, ttl time.Duration) (func(context.Context) error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	if lease, ok := m.held[gameID]; ok && now.Before(lease.expires) {
		return nil, errors.Conflictf("turn advancement for game %d is already in progress", gameID)
	}
	token := uuid.NewString()
	m.held[gameID] = memoryLease{token: token, expires: now.Add(ttl)}

	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if lease, ok := m.held[gameID]; ok && lease.token == token {
			delete(m.held, gameID)
		}
		return nil
	}, nil
}

// unlockScript deletes the key only if it still holds our token.
var unlockScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker shares the advancement lock across server instances.
type RedisLocker struct {
	client *goredis.Client
}

func NewRedisLocker(client *goredis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (r *RedisLocker) Acquire(ctx context.Context, gameID int64, ttl time.Duration) (func(context.Context) error, error) {
	key := lockKey(gameID)
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, errors.WrapExternal("failed to acquire turn lock", err)
	}
	if !ok {
		return nil, errors.Conflictf("turn advancement for game %d is already in progress", gameID)
	}

	return func(ctx context.Context) error {
		if err := unlockScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
			return errors.WrapExternal("failed to release turn lock", err)
		}
		return nil
	}, nil
}
