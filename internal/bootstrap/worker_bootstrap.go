package bootstrap

import (
	"context"
	"sync"
	"time"

	"exchange_calendar/adapter/in/worker"
	"exchange_calendar/pkg/logger"

	"github.com/rs/zerolog"
)

const stopTimeout = 30 * time.Second

// Worker refreshes every registered entity on the configured cron schedule.
type Worker struct {
	pool      *worker.Pool
	scheduler *worker.RefreshScheduler
	deps      *Dependencies
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	zlog      zerolog.Logger
}

func NewWorker(deps *Dependencies) (*Worker, error) {
	cfg := deps.Config
	zlog := logger.Component("worker").With().Str("worker_id", cfg.WorkerID).Logger()

	poolConfig := worker.DefaultPoolConfig()
	poolConfig.Workers = cfg.RefreshWorkers
	if cfg.RefreshTimeout > 0 {
		poolConfig.JobTimeout = cfg.RefreshTimeout
	}

	pool := worker.NewPool(deps.Registry, poolConfig, deps.Metrics, zlog)

	scheduler, err := worker.NewRefreshScheduler(pool, cfg.RefreshCron, zlog)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		pool:      pool,
		scheduler: scheduler,
		deps:      deps,
		ctx:       ctx,
		cancel:    cancel,
		zlog:      zlog,
	}, nil
}

// Start runs one refresh round immediately, then starts the schedule, and
// blocks until Stop is called.
func (w *Worker) Start() {
	if !w.deps.Config.SchedulerEnabled {
		w.zlog.Warn().Msg("scheduler disabled, entities refresh only on demand")
		<-w.ctx.Done()
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		res := w.pool.RefreshAll(w.ctx)
		w.zlog.Info().
			Int("entities", res.Entities).
			Int64("queried", res.Queried).
			Int64("failed", res.Failed).
			Msg("initial refresh done")
	}()

	w.scheduler.Start()
	w.zlog.Info().Time("next", w.scheduler.Next()).Msg("refresh scheduler started")

	<-w.ctx.Done()
}

// Stop cancels the schedule and waits for running refreshes.
func (w *Worker) Stop() {
	w.cancel()
	w.scheduler.Stop()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.zlog.Info().Msg("worker stopped")
	case <-time.After(stopTimeout):
		w.zlog.Warn().Msg("worker stop timed out")
	}
}
