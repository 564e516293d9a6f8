package counter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(client), mr, func() {
		client.Close()
		mr.Close()
	}
}

func TestRedisIncrSetsTTLOnCreate(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	n, err := store.IncrWithTTL(ctx, "quota:test", time.Hour)
	if err != nil {
		t.Fatalf("incr: %v", err)
	}
	if n != 1 {
		t.Fatalf("first incr = %d, want 1", n)
	}
	if ttl := mr.TTL("quota:test"); ttl != time.Hour {
		t.Fatalf("ttl = %v, want 1h", ttl)
	}

	// a second increment must not reset the TTL
	mr.FastForward(30 * time.Minute)
	n, err = store.IncrWithTTL(ctx, "quota:test", time.Hour)
	if err != nil || n != 2 {
		t.Fatalf("second incr = %d, %v", n, err)
	}
	if ttl := mr.TTL("quota:test"); ttl != 30*time.Minute {
		t.Fatalf("ttl after second incr = %v, want 30m", ttl)
	}
}

func TestRedisWindowExpiry(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	store.IncrWithTTL(ctx, "quota:test", time.Hour)
	store.IncrWithTTL(ctx, "quota:test", time.Hour)
	mr.FastForward(61 * time.Minute)

	if got, err := store.Get(ctx, "quota:test"); err != nil || got != 0 {
		t.Fatalf("after expiry = %d, %v; want 0", got, err)
	}
	if n, _ := store.IncrWithTTL(ctx, "quota:test", time.Hour); n != 1 {
		t.Fatalf("new window = %d, want 1", n)
	}
}

func TestRedisDecrDoesNotResurrect(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	store.IncrWithTTL(ctx, "quota:test", time.Hour)
	mr.FastForward(2 * time.Hour)

	// rollback racing the window expiry: nothing to decrement
	if err := store.Decr(ctx, "quota:test"); err != nil {
		t.Fatalf("decr: %v", err)
	}
	if got, _ := store.Get(ctx, "quota:test"); got != 0 {
		t.Fatalf("resurrected key = %d, want 0", got)
	}
}

func TestRedisDecrRollsBack(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	store.IncrWithTTL(ctx, "quota:test", time.Hour)
	store.IncrWithTTL(ctx, "quota:test", time.Hour)
	store.IncrWithTTL(ctx, "quota:test", time.Hour)
	store.Decr(ctx, "quota:test")

	if got, _ := store.Get(ctx, "quota:test"); got != 2 {
		t.Fatalf("after rollback = %d, want 2", got)
	}
}

func TestRedisSetNX(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "lock:archiver", "host-a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first setnx = %v, %v", ok, err)
	}
	ok, _ = store.SetNX(ctx, "lock:archiver", "host-b", time.Minute)
	if ok {
		t.Fatal("second setnx should lose while lock is held")
	}

	mr.FastForward(2 * time.Minute)
	ok, _ = store.SetNX(ctx, "lock:archiver", "host-b", time.Minute)
	if !ok {
		t.Fatal("setnx should win after the lock expires")
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	cleanup() // connection is gone
	ctx := context.Background()

	if _, err := store.IncrWithTTL(ctx, "quota:test", time.Hour); err == nil {
		t.Fatal("expected error from a closed backend")
	}
}
