package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

func newTestRedisBackend(t *testing.T) *RedisBackend {
	t.Helper()
	addr := os.Getenv("INKWELL_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available, skipping: %v", err)
	}
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return NewRedisBackend(client)
}

func TestRedisBackendTake(t *testing.T) {
	r := newTestRedisBackend(t)
	now := time.Unix(5000, 0)
	r.now = func() time.Time { return now }
	ctx := context.Background()
	b := Bucket{Capacity: 3, RefillPerSecond: 1}

	for i, wantRemaining := range []int{2, 1, 0} {
		ok, remaining, err := r.Take(ctx, Key(ClassLike, "1.2.3.4"), b, 1)
		if err != nil {
			t.Fatalf("Take %d: %v", i, err)
		}
		if !ok || remaining != wantRemaining {
			t.Fatalf("Take %d = %v %d, want true %d", i, ok, remaining, wantRemaining)
		}
	}
	if ok, _, _ := r.Take(ctx, Key(ClassLike, "1.2.3.4"), b, 1); ok {
		t.Fatal("empty bucket must deny")
	}
	if ok, _, _ := r.Take(ctx, Key(ClassComment, "1.2.3.4"), b, 1); !ok {
		t.Fatal("write classes must not share a bucket")
	}

	now = now.Add(2 * time.Second)
	if ok, remaining, _ := r.Take(ctx, Key(ClassLike, "1.2.3.4"), b, 1); !ok || remaining != 1 {
		t.Fatalf("after refill = %v %d, want true 1", ok, remaining)
	}
}

func TestRedisBackendSetsExpiry(t *testing.T) {
	r := newTestRedisBackend(t)
	ctx := context.Background()
	if _, _, err := r.Take(ctx, "ttl", Bucket{Capacity: 10, RefillPerSecond: 1}, 1); err != nil {
		t.Fatalf("Take: %v", err)
	}
	ttl, err := r.client.PTTL(ctx, r.prefix+"ttl").Result()
	if err != nil {
		t.Fatalf("PTTL: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl = %v, want (0, 1m]", ttl)
	}
}
