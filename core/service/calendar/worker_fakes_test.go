package calendar

import (
	"context"
	"errors"
	"sync"
	"time"

	"exchange_calendar/core/domain"
	"exchange_calendar/core/port/out"
)

// fakeFolder records queries and returns the configured items.
type fakeFolder struct {
	mu      sync.Mutex
	name    string
	items   []*domain.CandidateEvent
	err     error
	queries []out.CalendarQuery
	block   chan struct{}
}

func (f *fakeFolder) Name() string { return f.name }

func (f *fakeFolder) Filter(ctx context.Context, q out.CalendarQuery) ([]*domain.CandidateEvent, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func (f *fakeFolder) setItems(items ...*domain.CandidateEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = items
}

func (f *fakeFolder) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeFolder) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *fakeFolder) lastQuery() out.CalendarQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

// fakeClock is a controllable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeConnector struct {
	folder out.CalendarFolder
	err    error
	calls  int
}

func (c *fakeConnector) Connect(ctx context.Context) (out.CalendarFolder, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.folder, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	states []*domain.EntityState
	err    error
}

func (p *fakePublisher) PublishEntityState(ctx context.Context, state *domain.EntityState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, state)
	return p.err
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.states)
}

var errRemote = errors.New("remote unavailable")

// timed builds a timed candidate.
func timed(subject string, start, end time.Time) *domain.CandidateEvent {
	return &domain.CandidateEvent{
		UID:     subject,
		Subject: subject,
		Start:   domain.DateTimeOf(start),
		End:     domain.DateTimeOf(end),
	}
}

// allDay builds an all-day candidate spanning [day, day+days).
func allDay(subject string, day time.Time, days int) *domain.CandidateEvent {
	return &domain.CandidateEvent{
		UID:      subject,
		Subject:  subject,
		Start:    domain.DateOf(day),
		End:      domain.DateOf(day.AddDate(0, 0, days)),
		IsAllDay: true,
	}
}
