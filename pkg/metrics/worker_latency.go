// Package metrics tracks refresh latency and outcome counters for the
// readiness endpoint.
package metrics

import (
	"slices"
	"sync"
	"time"
)

// =============================================================================
// Latency Window
// =============================================================================

// LatencyTracker keeps the last N samples in a ring and reports percentiles.
type LatencyTracker struct {
	mu      sync.Mutex
	ring    []time.Duration
	next    int
	full    bool
	scratch []time.Duration
}

// NewLatencyTracker creates a tracker holding at most windowSize samples.
func NewLatencyTracker(windowSize int) *LatencyTracker {
	if windowSize <= 0 {
		windowSize = 500
	}
	return &LatencyTracker{ring: make([]time.Duration, windowSize)}
}

// Record adds a sample, overwriting the oldest once the window is full.
func (lt *LatencyTracker) Record(d time.Duration) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	lt.ring[lt.next] = d
	lt.next++
	if lt.next == len(lt.ring) {
		lt.next = 0
		lt.full = true
	}
}

func (lt *LatencyTracker) len() int {
	if lt.full {
		return len(lt.ring)
	}
	return lt.next
}

// Stats returns min, max, mean and nearest-rank percentiles of the window.
func (lt *LatencyTracker) Stats() LatencyStats {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	n := lt.len()
	if n == 0 {
		return LatencyStats{}
	}

	lt.scratch = append(lt.scratch[:0], lt.ring[:n]...)
	slices.Sort(lt.scratch)

	var sum time.Duration
	for _, v := range lt.scratch {
		sum += v
	}

	at := func(p float64) time.Duration {
		return lt.scratch[int(float64(n-1)*p)]
	}
	return LatencyStats{
		Samples: n,
		Min:     lt.scratch[0],
		Max:     lt.scratch[n-1],
		Avg:     sum / time.Duration(n),
		P50:     at(0.50),
		P95:     at(0.95),
		P99:     at(0.99),
	}
}

// Reset drops all samples.
func (lt *LatencyTracker) Reset() {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.next, lt.full = 0, false
}

// LatencyStats is a snapshot of one tracker.
type LatencyStats struct {
	Samples int
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	P50     time.Duration
	P95     time.Duration
	P99     time.Duration
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

// ToMap renders the stats in milliseconds.
func (s LatencyStats) ToMap() map[string]any {
	return map[string]any{
		"samples": s.Samples,
		"min_ms":  ms(s.Min),
		"max_ms":  ms(s.Max),
		"avg_ms":  ms(s.Avg),
		"p50_ms":  ms(s.P50),
		"p95_ms":  ms(s.P95),
		"p99_ms":  ms(s.P99),
	}
}

// =============================================================================
// Registry
// =============================================================================

// Registry holds one tracker and one outcome counter per operation name.
type Registry struct {
	mu       sync.RWMutex
	window   int
	latency  map[string]*LatencyTracker
	outcomes map[string]*Outcomes
}

func NewRegistry(windowSize int) *Registry {
	return &Registry{
		window:   windowSize,
		latency:  make(map[string]*LatencyTracker),
		outcomes: make(map[string]*Outcomes),
	}
}

func (r *Registry) tracker(op string) *LatencyTracker {
	r.mu.RLock()
	t, ok := r.latency[op]
	r.mu.RUnlock()
	if ok {
		return t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok = r.latency[op]; !ok {
		t = NewLatencyTracker(r.window)
		r.latency[op] = t
	}
	return t
}

// Outcomes returns the counter set for op, creating it on first use.
func (r *Registry) Outcomes(op string) *Outcomes {
	r.mu.RLock()
	o, ok := r.outcomes[op]
	r.mu.RUnlock()
	if ok {
		return o
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok = r.outcomes[op]; !ok {
		o = &Outcomes{}
		r.outcomes[op] = o
	}
	return o
}

// Record adds a latency sample for op.
func (r *Registry) Record(op string, d time.Duration) {
	r.tracker(op).Record(d)
}

// Stats returns the latency snapshot of op.
func (r *Registry) Stats(op string) LatencyStats {
	r.mu.RLock()
	t, ok := r.latency[op]
	r.mu.RUnlock()
	if !ok {
		return LatencyStats{}
	}
	return t.Stats()
}

// Snapshot renders every tracked operation for the readiness endpoint.
func (r *Registry) Snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]any, len(r.latency))
	for op, t := range r.latency {
		m := t.Stats().ToMap()
		if o, ok := r.outcomes[op]; ok {
			for k, v := range o.ToMap() {
				m[k] = v
			}
		}
		out[op] = m
	}
	return out
}
