package turn

import (
	"context"
	"os"
	"testing"
	"time"

	"empires-server/internal/shared/errors"

	goredis "github.com/redis/go-redis/v9"
)

// redisClient connects to REDIS_TEST_ADDR or skips the test.
func redisClient(t *testing.T) *goredis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis at %s unreachable: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLockerIsExclusive(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	gameID := time.Now().UnixNano()
	t.Cleanup(func() { client.Del(ctx, lockKey(gameID)) })

	a, b := NewRedisLocker(client), NewRedisLocker(client)
	release, err := a.Acquire(ctx, gameID, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Acquire(ctx, gameID, time.Minute); !errors.Is(err, errors.ErrorTypeConflict) {
		t.Fatalf("expected conflict from a second instance, got %v", err)
	}
	if err := release(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Acquire(ctx, gameID, time.Minute); err != nil {
		t.Fatalf("released lock must be acquirable: %v", err)
	}
}

func TestRedisLockerStaleReleaseKeepsNewLease(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	gameID := time.Now().UnixNano()
	t.Cleanup(func() { client.Del(ctx, lockKey(gameID)) })

	l := NewRedisLocker(client)
	stale, err := l.Acquire(ctx, gameID, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(120 * time.Millisecond)
	if _, err := l.Acquire(ctx, gameID, time.Minute); err != nil {
		t.Fatalf("expired lease must be taken over: %v", err)
	}
	if err := stale(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Acquire(ctx, gameID, time.Minute); !errors.Is(err, errors.ErrorTypeConflict) {
		t.Fatalf("stale release must not free the new lease, got %v", err)
	}
}
