package metrics

import (
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// =============================================================================
// Refresh Outcomes
// =============================================================================

// Outcomes counts how refresh attempts ended.
type Outcomes struct {
	queried   atomic.Int64
	throttled atomic.Int64
	failed    atomic.Int64
}

func (o *Outcomes) Queried()   { o.queried.Add(1) }
func (o *Outcomes) Throttled() { o.throttled.Add(1) }
func (o *Outcomes) Failed()    { o.failed.Add(1) }

func (o *Outcomes) ToMap() map[string]any {
	return map[string]any{
		"queried":   o.queried.Load(),
		"throttled": o.throttled.Load(),
		"failed":    o.failed.Load(),
	}
}

// =============================================================================
// Redis Pool Health
// =============================================================================

type PoolHealthStatus string

const (
	PoolHealthy   PoolHealthStatus = "healthy"
	PoolDegraded  PoolHealthStatus = "degraded"
	PoolUnhealthy PoolHealthStatus = "unhealthy"
)

// PoolHealth is the assessment of a redis connection pool.
type PoolHealth struct {
	Status     PoolHealthStatus `json:"status"`
	TotalConns uint32           `json:"total_conns"`
	IdleConns  uint32           `json:"idle_conns"`
	Timeouts   uint32           `json:"timeouts"`
	HitRatio   float64          `json:"hit_ratio"`
	Message    string           `json:"message,omitempty"`
}

// AssessRedisPool grades a pool from its stats. Timeouts mean callers waited
// for a connection longer than PoolTimeout.
func AssessRedisPool(stats *redis.PoolStats) PoolHealth {
	if stats == nil {
		return PoolHealth{Status: PoolHealthy, Message: "not configured"}
	}

	h := PoolHealth{
		Status:     PoolHealthy,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		Timeouts:   stats.Timeouts,
		Message:    "pool operating normally",
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		h.HitRatio = float64(stats.Hits) / float64(total)
	}

	switch {
	case stats.Timeouts > 10:
		h.Status, h.Message = PoolUnhealthy, "connection wait timeouts"
	case stats.Timeouts > 0:
		h.Status, h.Message = PoolDegraded, "elevated connection wait times"
	}
	return h
}
