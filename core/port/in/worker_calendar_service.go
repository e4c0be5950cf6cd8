package in

import (
	"context"
	"errors"
	"time"

	"exchange_calendar/core/domain"
)

// ErrEntityNotFound is returned for an unknown entity id.
var ErrEntityNotFound = errors.New("entity not found")

type CalendarEntityService interface {
	// Entities
	ListCalendars(ctx context.Context) []*CalendarSummary
	GetEvents(ctx context.Context, entityID string, start, end time.Time) ([]*domain.CalendarEvent, error)

	// States
	States(ctx context.Context) []*domain.EntityState
	State(ctx context.Context, entityID string) (*domain.EntityState, error)

	// Refresh
	UpdateEntity(ctx context.Context, entityID string) (*UpdateResult, error)
}

type CalendarSummary struct {
	EntityID string `json:"entity_id"`
	Name     string `json:"name"`
}

type UpdateResult struct {
	Updated bool                `json:"updated"`
	State   *domain.EntityState `json:"state"`
}
