package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultRefreshSpec matches the host's one minute scan interval.
const DefaultRefreshSpec = "@every 1m"

// =============================================================================
// RefreshScheduler - 주기적 캘린더 refresh
// =============================================================================
//
// 매 tick마다 모든 엔티티를 refresh 풀에 넣는다. 원격 조회 빈도는
// CalendarData의 5분 throttle이 제한한다.

type RefreshScheduler struct {
	cron   *cron.Cron
	pool   *Pool
	spec   string
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger
}

// NewRefreshScheduler validates spec and registers the refresh job.
func NewRefreshScheduler(p *Pool, spec string, log zerolog.Logger) (*RefreshScheduler, error) {
	if spec == "" {
		spec = DefaultRefreshSpec
	}

	l := log.With().Str("component", "refresh_scheduler").Logger()
	cl := cronLogger{log: l}
	ctx, cancel := context.WithCancel(context.Background())

	s := &RefreshScheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		pool:   p,
		spec:   spec,
		ctx:    ctx,
		cancel: cancel,
		log:    l,
	}

	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start starts the cron loop.
func (s *RefreshScheduler) Start() {
	s.log.Info().Str("spec", s.spec).Msg("starting refresh scheduler")
	s.cron.Start()
}

// Stop cancels the running round and waits for it to return.
func (s *RefreshScheduler) Stop() {
	s.log.Info().Msg("stopping refresh scheduler...")
	s.cancel()
	<-s.cron.Stop().Done()
}

// Next returns the next scheduled run, zero before Start.
func (s *RefreshScheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *RefreshScheduler) tick() {
	if s.ctx.Err() != nil {
		return
	}
	s.pool.RefreshAll(s.ctx)
}

// cronLogger routes cron's logr-style output to zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
