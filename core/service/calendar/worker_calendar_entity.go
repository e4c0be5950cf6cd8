package calendar

import (
	"context"
	"sync"
	"time"

	"exchange_calendar/core/domain"

	"github.com/google/uuid"
)

// attrTimeFormat is the layout of start_time/end_time attributes.
const attrTimeFormat = "2006-01-02 15:04:05"

var entityNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("exchange-calendar.local"))

// Entity is one calendar entity exposed to the host. It mirrors the event
// of its fetcher after every update.
type Entity struct {
	entityID string
	name     string
	uniqueID string
	data     *CalendarData

	mu    sync.RWMutex
	event *domain.CalendarEvent
}

func NewEntity(entityID, name string, data *CalendarData) *Entity {
	return &Entity{
		entityID: entityID,
		name:     name,
		uniqueID: uuid.NewSHA1(entityNamespace, []byte(entityID)).String(),
		data:     data,
	}
}

func (e *Entity) EntityID() string { return e.entityID }
func (e *Entity) Name() string     { return e.name }
func (e *Entity) UniqueID() string { return e.uniqueID }

func (e *Entity) Data() *CalendarData { return e.data }

// Event returns the current event, or nil.
func (e *Entity) Event() *domain.CalendarEvent {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.event
}

// Update runs the fetcher's throttled refresh and copies its event.
func (e *Entity) Update(ctx context.Context) (bool, error) {
	updated, err := e.data.Update(ctx)
	if err != nil {
		return false, err
	}

	e.mu.Lock()
	e.event = e.data.Event()
	e.mu.Unlock()

	return updated, nil
}

// GetEvents is the range query of the entity.
func (e *Entity) GetEvents(ctx context.Context, start, end time.Time) ([]*domain.CalendarEvent, error) {
	return e.data.GetEvents(ctx, start, end)
}

// State is "on" while now is within the current event.
func (e *Entity) State(now time.Time) string {
	ev := e.Event()
	if ev == nil {
		return domain.EntityStateOff
	}
	loc := e.data.Location()
	start := ev.Start.Instant(loc)
	end := ev.End.Instant(loc)
	if !now.Before(start) && now.Before(end) {
		return domain.EntityStateOn
	}
	return domain.EntityStateOff
}

// StateAttributes returns the entity attributes at now.
func (e *Entity) StateAttributes(now time.Time) map[string]any {
	ev := e.Event()
	if ev == nil {
		return map[string]any{domain.AttrOffsetReached: false}
	}

	loc := e.data.Location()
	start := ev.Start.Instant(loc)
	end := ev.End.Instant(loc)

	return map[string]any{
		domain.AttrMessage:       ev.Summary,
		domain.AttrAllDay:        ev.AllDay(),
		domain.AttrStartTime:     start.In(loc).Format(attrTimeFormat),
		domain.AttrEndTime:       end.In(loc).Format(attrTimeFormat),
		domain.AttrLocation:      ev.Location,
		domain.AttrDescription:   ev.Description,
		domain.AttrOffsetReached: IsOffsetReached(start, e.data.Offset(), now),
	}
}

// Snapshot builds the published state of the entity at now.
func (e *Entity) Snapshot(now time.Time) *domain.EntityState {
	return &domain.EntityState{
		EntityID:    e.entityID,
		Name:        e.name,
		State:       e.State(now),
		Attributes:  e.StateAttributes(now),
		Event:       e.Event(),
		LastUpdated: now,
	}
}
