package stream

import (
	"context"
	"time"

	"exchange_calendar/core/domain"
	"exchange_calendar/core/port/out"

	"github.com/google/uuid"
)

const JobTypeStateChanged = "calendar.state_changed"

// Producer publishes entity state changes to a redis stream.
type Producer struct {
	stream *RedisStream
	name   string
	now    func() time.Time
}

var _ out.StatePublisher = (*Producer)(nil)

func NewProducer(stream *RedisStream, name string) *Producer {
	if name == "" {
		name = StreamCalendarState
	}
	return &Producer{stream: stream, name: name, now: time.Now}
}

type Job struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

func (p *Producer) PublishEntityState(ctx context.Context, state *domain.EntityState) error {
	payload := map[string]any{
		"entity_id":    state.EntityID,
		"name":         state.Name,
		"state":        state.State,
		"attributes":   state.Attributes,
		"last_updated": state.LastUpdated,
	}
	if state.Event != nil {
		payload["event"] = state.Event
	}

	job := &Job{
		ID:        uuid.New().String(),
		Type:      JobTypeStateChanged,
		Payload:   payload,
		CreatedAt: p.now(),
	}
	_, err := p.stream.Publish(ctx, p.name, job)
	return err
}
