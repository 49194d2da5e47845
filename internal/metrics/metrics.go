package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects in-process counters for the engine. They back the /stats
// endpoint and are kept regardless of whether Prometheus is enabled.
type Metrics struct {
	StoreOperations   atomic.Int64
	StoreFailures     atomic.Int64
	ConsistencyFaults atomic.Int64
	CommentCacheHits  atomic.Int64
	CommentCacheMiss  atomic.Int64
	CommentCacheLoads atomic.Int64
	Searches          atomic.Int64

	// Latency metrics (in milliseconds)
	TotalStoreLatencyMs atomic.Int64
	MaxStoreLatencyMs   atomic.Int64

	opFailures sync.Map // op -> *atomic.Int64

	startTime time.Time
}

// Global metrics instance
var global = &Metrics{startTime: time.Now()}

// Global returns the global metrics instance
func Global() *Metrics {
	return global
}

// StartTime returns the time when the metrics system was initialized
func StartTime() time.Time {
	return global.startTime
}

func (m *Metrics) recordStore(op string, d time.Duration, failed bool) {
	m.StoreOperations.Add(1)
	ms := d.Milliseconds()
	m.TotalStoreLatencyMs.Add(ms)
	updateMax(&m.MaxStoreLatencyMs, ms)
	if failed {
		m.StoreFailures.Add(1)
		v, _ := m.opFailures.LoadOrStore(op, new(atomic.Int64))
		v.(*atomic.Int64).Add(1)
	}
}

// Snapshot returns a JSON-friendly view of the counters.
func (m *Metrics) Snapshot() map[string]interface{} {
	ops := m.StoreOperations.Load()
	var avg float64
	if ops > 0 {
		avg = float64(m.TotalStoreLatencyMs.Load()) / float64(ops)
	}
	failures := map[string]int64{}
	m.opFailures.Range(func(k, v any) bool {
		failures[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	return map[string]interface{}{
		"uptime_seconds": int64(time.Since(m.startTime).Seconds()),
		"store": map[string]interface{}{
			"operations":     ops,
			"failures":       m.StoreFailures.Load(),
			"failures_by_op": failures,
			"avg_latency_ms": avg,
			"max_latency_ms": m.MaxStoreLatencyMs.Load(),
		},
		"comment_cache": map[string]interface{}{
			"hits":   m.CommentCacheHits.Load(),
			"misses": m.CommentCacheMiss.Load(),
			"loads":  m.CommentCacheLoads.Load(),
		},
		"consistency_faults": m.ConsistencyFaults.Load(),
		"searches":           m.Searches.Load(),
	}
}

func updateMax(target *atomic.Int64, value int64) {
	for {
		current := target.Load()
		if value <= current {
			return
		}
		if target.CompareAndSwap(current, value) {
			return
		}
	}
}
