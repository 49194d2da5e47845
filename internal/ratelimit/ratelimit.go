// Package ratelimit throttles write requests with a token bucket per client
// and write class. Buckets live in Redis so every replica shares them; when
// Redis is unreachable the limiter degrades to process-local buckets.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Bucket is the shape of one token bucket.
type Bucket struct {
	Capacity        int
	RefillPerSecond float64
}

// ttl is how long an idle bucket is worth keeping: twice the time it takes
// to refill from empty, and never under a minute.
func (b Bucket) ttl() time.Duration {
	full := time.Duration(float64(b.Capacity) / b.RefillPerSecond * float64(time.Second))
	return max(2*full, time.Minute)
}

// Backend debits n tokens from the bucket stored under key.
type Backend interface {
	Take(ctx context.Context, key string, b Bucket, n int) (allowed bool, remaining int, err error)
}

// Config holds the bucket shape shared by all clients
type Config struct {
	RequestsPerSecond float64
	BurstSize         int
}

// Limiter applies one bucket shape to per-key buckets held by a Backend
type Limiter struct {
	backend Backend
	bucket  Bucket
}

func New(backend Backend, cfg Config) *Limiter {
	b := Bucket{Capacity: cfg.BurstSize, RefillPerSecond: cfg.RequestsPerSecond}
	if b.Capacity < 1 {
		b.Capacity = 1
	}
	if b.RefillPerSecond <= 0 {
		b.RefillPerSecond = 1
	}
	return &Limiter{backend: backend, bucket: b}
}

// Result is the outcome of one check. RetryAfter is zero when Allowed.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	return l.AllowN(ctx, key, 1)
}

func (l *Limiter) AllowN(ctx context.Context, key string, n int) (Result, error) {
	allowed, remaining, err := l.backend.Take(ctx, key, l.bucket, n)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit %s: %w", key, err)
	}
	res := Result{Allowed: allowed, Remaining: remaining}
	if !allowed {
		missing := float64(n - remaining)
		res.RetryAfter = time.Duration(math.Ceil(missing/l.bucket.RefillPerSecond)) * time.Second
	}
	return res, nil
}

// Write classes. Each class has its own bucket per client, so a burst of
// likes does not block commenting.
const (
	ClassPost    = "post"
	ClassComment = "comment"
	ClassLike    = "like"
)

// Key returns the bucket key for a client in a write class.
func Key(class, client string) string {
	return class + ":" + client
}
