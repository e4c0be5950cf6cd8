// Package resilience provides fault tolerance patterns for external service calls.
package resilience

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// Errors returned by the circuit breaker.
var (
	ErrCircuitOpen    = gobreaker.ErrOpenState
	ErrTooManyRequest = gobreaker.ErrTooManyRequests
)

// CircuitBreakerConfig holds configuration for a circuit breaker.
type CircuitBreakerConfig struct {
	Name                string        // Name for logging/metrics
	MaxRequests         uint32        // Half-open 상태에서 허용할 요청 수
	Interval            time.Duration // Closed 상태에서 카운터 리셋 간격
	Timeout             time.Duration // Open 상태 유지 시간 (이후 Half-open)
	ConsecutiveFailures uint32        // 연속 실패 임계값
	MinRequests         uint32        // 실패율 계산 최소 요청 수
	FailureRatio        float64       // 실패율 임계값
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig(name string) *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:                name,
		MaxRequests:         3,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
		MinRequests:         10,
		FailureRatio:        0.6,
	}
}

// NewCircuitBreaker creates a gobreaker circuit breaker that logs state changes.
func NewCircuitBreaker(cfg *CircuitBreakerConfig, log zerolog.Logger) *gobreaker.CircuitBreaker {
	if cfg == nil {
		cfg = DefaultCircuitBreakerConfig("default")
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// 연속 실패 또는 최소 요청 이후 실패율 초과
			if counts.ConsecutiveFailures > cfg.ConsecutiveFailures {
				return true
			}
			if counts.Requests < cfg.MinRequests || counts.Requests == 0 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotCounted)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
}

// ErrNotCounted marks errors that must not trip the breaker, such as
// caller cancellation. Wrap them with NotCounted.
var ErrNotCounted = errors.New("not counted by circuit breaker")

type notCountedError struct{ err error }

func (e *notCountedError) Error() string { return e.err.Error() }
func (e *notCountedError) Unwrap() []error {
	return []error{e.err, ErrNotCounted}
}

// NotCounted wraps err so the breaker treats the call as successful.
func NotCounted(err error) error {
	if err == nil {
		return nil
	}
	return &notCountedError{err: err}
}

// Execute runs fn through cb and returns its typed result.
func Execute[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	if cb == nil {
		return fn()
	}

	result, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	return result.(T), nil
}

// StateName returns the breaker state for health output.
func StateName(cb *gobreaker.CircuitBreaker) string {
	if cb == nil {
		return "disabled"
	}
	return cb.State().String()
}
