package http

import (
	"context"
	"time"

	"exchange_calendar/pkg/metrics"
	"exchange_calendar/pkg/resilience"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// BreakerSource exposes the circuit breaker guarding a backend. It may
// return nil before the backend has connected.
type BreakerSource interface {
	Breaker() *gobreaker.CircuitBreaker
}

type HealthHandler struct {
	redis   *redis.Client
	backend BreakerSource
	metrics *metrics.Registry
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// NewHealthHandlerWithDeps wires readiness checks. Every argument may be nil.
func NewHealthHandlerWithDeps(redis *redis.Client, backend BreakerSource, reg *metrics.Registry) *HealthHandler {
	return &HealthHandler{
		redis:   redis,
		backend: backend,
		metrics: reg,
	}
}

func (h *HealthHandler) Register(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	checks := make(map[string]any)
	allHealthy := true

	// Check Redis
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			checks["redis"] = metrics.AssessRedisPool(h.redis.PoolStats())
		}
	} else {
		checks["redis"] = "not configured"
	}

	// Check mail server circuit
	if h.backend != nil {
		state := resilience.StateName(h.backend.Breaker())
		checks["exchange"] = state
		if state == gobreaker.StateOpen.String() {
			allHealthy = false
		}
	} else {
		checks["exchange"] = "not configured"
	}

	status := "ready"
	statusCode := fiber.StatusOK
	if !allHealthy {
		status = "not ready"
		statusCode = fiber.StatusServiceUnavailable
	}

	body := fiber.Map{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.metrics != nil {
		body["latency"] = h.metrics.Snapshot()
	}
	return c.Status(statusCode).JSON(body)
}
