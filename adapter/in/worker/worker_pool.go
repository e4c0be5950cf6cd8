package worker

import (
	"context"
	"sync/atomic"
	"time"

	"exchange_calendar/core/port/in"
	"exchange_calendar/pkg/metrics"

	"github.com/go-pkgz/pool"
	"github.com/rs/zerolog"
)

// =============================================================================
// go-pkgz/pool 기반 엔티티 refresh 풀
// =============================================================================

const metricRefresh = "refresh"

// PoolConfig holds refresh pool configuration.
type PoolConfig struct {
	Workers        int           // 동시 refresh 수
	JobTimeout     time.Duration // 엔티티당 타임아웃
	WorkerChanSize int           // 워커 채널 버퍼 크기
}

// DefaultPoolConfig returns default pool configuration.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		Workers:        4,
		JobTimeout:     2 * time.Minute,
		WorkerChanSize: 16,
	}
}

// Pool fans one refresh round out over the registered entities.
type Pool struct {
	service in.CalendarEntityService
	config  *PoolConfig
	metrics *metrics.Registry
	log     zerolog.Logger
}

// TickResult summarizes one refresh round.
type TickResult struct {
	Entities  int
	Queried   int64
	Throttled int64
	Failed    int64
}

// refreshWorker implements pool.Worker for entity ids.
type refreshWorker struct {
	pool   *Pool
	result *TickResult
}

// Do implements pool.Worker interface. Errors are counted, never returned,
// so one failing calendar does not cancel the round.
func (w *refreshWorker) Do(ctx context.Context, entityID string) error {
	w.pool.refreshOne(ctx, entityID, w.result)
	return nil
}

// NewPool creates a refresh pool. reg may be nil.
func NewPool(service in.CalendarEntityService, config *PoolConfig, reg *metrics.Registry, log zerolog.Logger) *Pool {
	if config == nil {
		config = DefaultPoolConfig()
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if reg == nil {
		reg = metrics.NewRegistry(0)
	}

	return &Pool{
		service: service,
		config:  config,
		metrics: reg,
		log:     log.With().Str("component", "refresh_pool").Logger(),
	}
}

// RefreshAll refreshes every entity once and waits for the round to finish.
func (p *Pool) RefreshAll(ctx context.Context) TickResult {
	calendars := p.service.ListCalendars(ctx)
	result := &TickResult{Entities: len(calendars)}
	if len(calendars) == 0 {
		return *result
	}

	wg := pool.New[string](p.config.Workers, &refreshWorker{pool: p, result: result}).
		WithWorkerChanSize(p.config.WorkerChanSize).
		WithContinueOnError()

	if err := wg.Go(ctx); err != nil {
		p.log.Error().Err(err).Msg("failed to start refresh pool")
		return *result
	}
	for _, c := range calendars {
		wg.Submit(c.EntityID)
	}
	if err := wg.Close(ctx); err != nil {
		p.log.Warn().Err(err).Msg("refresh round interrupted")
	}

	p.log.Debug().
		Int("entities", result.Entities).
		Int64("queried", atomic.LoadInt64(&result.Queried)).
		Int64("throttled", atomic.LoadInt64(&result.Throttled)).
		Int64("failed", atomic.LoadInt64(&result.Failed)).
		Msg("refresh round finished")

	return TickResult{
		Entities:  result.Entities,
		Queried:   atomic.LoadInt64(&result.Queried),
		Throttled: atomic.LoadInt64(&result.Throttled),
		Failed:    atomic.LoadInt64(&result.Failed),
	}
}

func (p *Pool) refreshOne(ctx context.Context, entityID string, result *TickResult) {
	jobCtx, cancel := context.WithTimeout(ctx, p.config.JobTimeout)
	defer cancel()

	start := time.Now()
	res, err := p.service.UpdateEntity(jobCtx, entityID)
	elapsed := time.Since(start)

	outcomes := p.metrics.Outcomes(metricRefresh)
	switch {
	case err != nil:
		atomic.AddInt64(&result.Failed, 1)
		outcomes.Failed()
		p.log.Error().
			Err(err).
			Str("entity_id", entityID).
			Dur("elapsed", elapsed).
			Msg("error refreshing calendar")
	case res.Updated:
		atomic.AddInt64(&result.Queried, 1)
		outcomes.Queried()
		p.metrics.Record(metricRefresh, elapsed)
	default:
		atomic.AddInt64(&result.Throttled, 1)
		outcomes.Throttled()
	}
}

// Metrics returns the registry refresh latency is recorded in.
func (p *Pool) Metrics() *metrics.Registry {
	return p.metrics
}
