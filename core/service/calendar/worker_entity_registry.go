package calendar

import (
	"context"
	"errors"
	"sync"
	"time"

	"exchange_calendar/core/domain"
	"exchange_calendar/core/port/in"
	"exchange_calendar/core/port/out"

	"github.com/rs/zerolog"
)

var (
	ErrEntityNotFound  = in.ErrEntityNotFound
	ErrDuplicateEntity = errors.New("entity id already registered")
)

// EntitySink is the host side of platform setup.
type EntitySink interface {
	AddEntities(ctx context.Context, entities []*Entity, updateBeforeAdd bool) error
	HasEntityID(entityID string) bool
}

// Registry keeps the registered calendar entities and their last states.
type Registry struct {
	publisher out.StatePublisher
	now       func() time.Time
	log       zerolog.Logger

	mu       sync.RWMutex
	entities []*Entity
	byID     map[string]*Entity
	states   map[string]*domain.EntityState
}

var (
	_ EntitySink               = (*Registry)(nil)
	_ in.CalendarEntityService = (*Registry)(nil)
)

// NewRegistry creates an empty registry. publisher may be nil.
func NewRegistry(publisher out.StatePublisher, log zerolog.Logger) *Registry {
	return &Registry{
		publisher: publisher,
		now:       time.Now,
		log:       log.With().Str("component", "entity_registry").Logger(),
		byID:      make(map[string]*Entity),
		states:    make(map[string]*domain.EntityState),
	}
}

// SetClock replaces time.Now for state timestamps.
func (r *Registry) SetClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

func (r *Registry) HasEntityID(entityID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[entityID]
	return ok
}

// AddEntities registers entities in order. With updateBeforeAdd every entity
// is refreshed first and dropped, with an error log, if that refresh fails.
func (r *Registry) AddEntities(ctx context.Context, entities []*Entity, updateBeforeAdd bool) error {
	var errs []error

	for _, e := range entities {
		if e == nil {
			continue
		}
		if r.HasEntityID(e.EntityID()) {
			r.log.Error().Str("entity_id", e.EntityID()).Msg("entity id already registered")
			errs = append(errs, ErrDuplicateEntity)
			continue
		}

		if updateBeforeAdd {
			if _, err := e.Update(ctx); err != nil {
				r.log.Error().Err(err).Str("entity_id", e.EntityID()).Msg("initial update failed, entity not added")
				errs = append(errs, err)
				continue
			}
		}

		r.mu.Lock()
		r.entities = append(r.entities, e)
		r.byID[e.EntityID()] = e
		r.mu.Unlock()

		r.record(ctx, e)
		r.log.Info().Str("entity_id", e.EntityID()).Str("name", e.Name()).Msg("calendar entity added")
	}

	return errors.Join(errs...)
}

// Entities returns registered entities in registration order.
func (r *Registry) Entities() []*Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*Entity, len(r.entities))
	copy(list, r.entities)
	return list
}

func (r *Registry) Entity(entityID string) (*Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[entityID]
	if !ok {
		return nil, ErrEntityNotFound
	}
	return e, nil
}

// Refresh updates one entity and records its new state.
func (r *Registry) Refresh(ctx context.Context, e *Entity) (bool, error) {
	updated, err := e.Update(ctx)
	if err != nil {
		return false, err
	}
	r.record(ctx, e)
	return updated, nil
}

// record stores the entity snapshot and publishes it when it changed.
func (r *Registry) record(ctx context.Context, e *Entity) *domain.EntityState {
	snap := e.Snapshot(r.now())

	r.mu.Lock()
	prev := r.states[e.EntityID()]
	if prev != nil && prev.SameAs(snap) {
		r.mu.Unlock()
		return prev
	}
	r.states[e.EntityID()] = snap
	r.mu.Unlock()

	if r.publisher != nil {
		if err := r.publisher.PublishEntityState(ctx, snap); err != nil {
			r.log.Warn().Err(err).Str("entity_id", e.EntityID()).Msg("failed to publish state")
		}
	}
	return snap
}

// =============================================================================
// CalendarEntityService
// =============================================================================

func (r *Registry) ListCalendars(ctx context.Context) []*in.CalendarSummary {
	entities := r.Entities()
	list := make([]*in.CalendarSummary, 0, len(entities))
	for _, e := range entities {
		list = append(list, &in.CalendarSummary{EntityID: e.EntityID(), Name: e.Name()})
	}
	return list
}

func (r *Registry) GetEvents(ctx context.Context, entityID string, start, end time.Time) ([]*domain.CalendarEvent, error) {
	e, err := r.Entity(entityID)
	if err != nil {
		return nil, err
	}
	return e.GetEvents(ctx, start, end)
}

func (r *Registry) States(ctx context.Context) []*domain.EntityState {
	entities := r.Entities()

	r.mu.RLock()
	defer r.mu.RUnlock()
	states := make([]*domain.EntityState, 0, len(entities))
	for _, e := range entities {
		if s, ok := r.states[e.EntityID()]; ok {
			states = append(states, s)
		}
	}
	return states
}

func (r *Registry) State(ctx context.Context, entityID string) (*domain.EntityState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.states[entityID]
	if !ok {
		return nil, ErrEntityNotFound
	}
	return s, nil
}

func (r *Registry) UpdateEntity(ctx context.Context, entityID string) (*in.UpdateResult, error) {
	e, err := r.Entity(entityID)
	if err != nil {
		return nil, err
	}
	updated, err := r.Refresh(ctx, e)
	if err != nil {
		return nil, err
	}
	state, err := r.State(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return &in.UpdateResult{Updated: updated, State: state}, nil
}
