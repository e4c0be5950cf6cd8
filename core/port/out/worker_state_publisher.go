package out

import (
	"context"

	"exchange_calendar/core/domain"
)

// StatePublisher receives entity states that changed since the previous refresh.
type StatePublisher interface {
	PublishEntityState(ctx context.Context, state *domain.EntityState) error
}
