package ratelimit

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oriys/inkwell/internal/logging"
)

// retryPrimaryAfter is how long the fallback stays local after a primary error.
const retryPrimaryAfter = 5 * time.Second

// FallbackBackend answers from the primary (Redis) until it fails, then from
// local buckets until retryPrimaryAfter has passed. Local answers are per
// process, so the effective limit is looser while degraded.
type FallbackBackend struct {
	primary Backend
	local   *LocalBackend
	// retryAt is the unix-nano time after which the primary is tried again;
	// zero means healthy.
	retryAt atomic.Int64
	now     func() time.Time
}

func NewFallbackBackend(primary Backend) *FallbackBackend {
	return &FallbackBackend{primary: primary, local: NewLocalBackend(), now: time.Now}
}

func (f *FallbackBackend) Take(ctx context.Context, key string, b Bucket, n int) (bool, int, error) {
	now := f.now()
	if at := f.retryAt.Load(); at != 0 && now.UnixNano() < at {
		return f.local.Take(ctx, key, b, n)
	}

	allowed, remaining, err := f.primary.Take(ctx, key, b, n)
	if err != nil {
		if f.retryAt.Swap(now.Add(retryPrimaryAfter).UnixNano()) == 0 {
			logging.FromContext(ctx).Warn("rate limit backend unavailable, using local buckets", "error", err)
		}
		return f.local.Take(ctx, key, b, n)
	}
	if f.retryAt.Swap(0) != 0 {
		logging.FromContext(ctx).Info("rate limit backend recovered")
	}
	return allowed, remaining, nil
}

// Degraded reports whether answers currently come from local buckets.
func (f *FallbackBackend) Degraded() bool {
	return f.retryAt.Load() != 0
}

// LocalBackend keeps buckets in process memory.
type LocalBackend struct {
	mu      sync.Mutex
	buckets map[string]*localBucket
	now     func() time.Time
}

type localBucket struct {
	tokens float64
	at     time.Time
}

func NewLocalBackend() *LocalBackend {
	return &LocalBackend{buckets: make(map[string]*localBucket), now: time.Now}
}

func (l *LocalBackend) Take(_ context.Context, key string, b Bucket, n int) (bool, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	lb, ok := l.buckets[key]
	if !ok {
		lb = &localBucket{tokens: float64(b.Capacity), at: now}
		l.buckets[key] = lb
	}
	if now.After(lb.at) {
		lb.tokens = math.Min(float64(b.Capacity), lb.tokens+now.Sub(lb.at).Seconds()*b.RefillPerSecond)
		lb.at = now
	}

	if lb.tokens < float64(n) {
		return false, int(lb.tokens), nil
	}
	lb.tokens -= float64(n)
	return true, int(lb.tokens), nil
}
