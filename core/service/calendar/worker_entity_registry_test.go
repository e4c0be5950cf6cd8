package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"exchange_calendar/core/domain"

	"github.com/rs/zerolog"
)

func TestEntity_StateAndAttributes(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	clock := newFakeClock(now)
	folder := &fakeFolder{name: "Calendar"}
	folder.setItems(&domain.CandidateEvent{
		Subject:  "Standup !!-15",
		Location: "Room 1",
		TextBody: "Daily",
		Start:    domain.DateTimeOf(now.Add(30 * time.Minute)),
		End:      domain.DateTimeOf(now.Add(45 * time.Minute)),
	})

	e := NewEntity("calendar.work", "Work", newTestData(t, folder, clock, true, ""))

	if got := e.StateAttributes(now); got[domain.AttrOffsetReached] != false || len(got) != 1 {
		t.Errorf("attributes without event = %v", got)
	}

	if _, err := e.Update(context.Background()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name          string
		at            time.Time
		wantState     string
		offsetReached bool
	}{
		{"before lead time", now, domain.EntityStateOff, false},
		{"within lead time", now.Add(20 * time.Minute), domain.EntityStateOff, true},
		{"at start", now.Add(30 * time.Minute), domain.EntityStateOn, true},
		{"at end", now.Add(45 * time.Minute), domain.EntityStateOff, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.State(tt.at); got != tt.wantState {
				t.Errorf("State() = %q, want %q", got, tt.wantState)
			}
			attrs := e.StateAttributes(tt.at)
			if attrs[domain.AttrOffsetReached] != tt.offsetReached {
				t.Errorf("offset_reached = %v, want %v", attrs[domain.AttrOffsetReached], tt.offsetReached)
			}
		})
	}

	attrs := e.StateAttributes(now)
	want := map[string]any{
		domain.AttrMessage:     "Standup",
		domain.AttrAllDay:      false,
		domain.AttrStartTime:   "2024-05-10 09:30:00",
		domain.AttrEndTime:     "2024-05-10 09:45:00",
		domain.AttrLocation:    "Room 1",
		domain.AttrDescription: "Daily",
	}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attribute %s = %v, want %v", k, attrs[k], v)
		}
	}
}

func TestEntity_OffsetNotReachedWithoutMarker(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	folder := &fakeFolder{name: "Calendar"}
	folder.setItems(timed("Standup", now.Add(-10*time.Minute), now.Add(20*time.Minute)))

	e := NewEntity("calendar.work", "Work", newTestData(t, folder, newFakeClock(now), true, ""))
	if _, err := e.Update(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := e.State(now); got != domain.EntityStateOn {
		t.Fatalf("State() = %q, want on", got)
	}
	if got := e.StateAttributes(now)[domain.AttrOffsetReached]; got != false {
		t.Errorf("offset_reached = %v, want false for an event without offset", got)
	}
}

func TestEntity_UniqueIDStable(t *testing.T) {
	d := newTestData(t, &fakeFolder{}, newFakeClock(time.Now()), true, "")
	a := NewEntity("calendar.work", "Work", d)
	b := NewEntity("calendar.work", "Work", d)
	c := NewEntity("calendar.home", "Home", d)

	if a.UniqueID() != b.UniqueID() {
		t.Error("unique id should be derived from the entity id")
	}
	if a.UniqueID() == c.UniqueID() {
		t.Error("different entity ids should give different unique ids")
	}
}

func TestRegistry_AddEntitiesUpdateBeforeAdd(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	clock := newFakeClock(now)

	good := &fakeFolder{name: "Calendar"}
	good.setItems(timed("Standup", now.Add(-time.Minute), now.Add(time.Hour)))
	bad := &fakeFolder{name: "Calendar", err: errRemote}

	pub := &fakePublisher{}
	r := NewRegistry(pub, zerolog.Nop())
	r.SetClock(clock.Now)

	err := r.AddEntities(context.Background(), []*Entity{
		NewEntity("calendar.good", "Good", newTestData(t, good, clock, true, "")),
		NewEntity("calendar.bad", "Bad", newTestData(t, bad, clock, true, "")),
	}, true)
	if !errors.Is(err, errRemote) {
		t.Errorf("AddEntities error = %v, want errRemote", err)
	}

	if got := len(r.Entities()); got != 1 {
		t.Fatalf("registered entities = %d, want 1", got)
	}
	if _, err := r.Entity("calendar.bad"); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("failed entity should not be registered, err = %v", err)
	}

	state, err := r.State(context.Background(), "calendar.good")
	if err != nil {
		t.Fatal(err)
	}
	if state.State != domain.EntityStateOn {
		t.Errorf("state = %q, want on", state.State)
	}
	if pub.count() != 1 {
		t.Errorf("published = %d, want 1", pub.count())
	}
}

func TestRegistry_RejectsDuplicateIDs(t *testing.T) {
	clock := newFakeClock(time.Now())
	r := NewRegistry(nil, zerolog.Nop())
	d := newTestData(t, &fakeFolder{}, clock, true, "")

	err := r.AddEntities(context.Background(), []*Entity{
		NewEntity("calendar.work", "Work", d),
		NewEntity("calendar.work", "Work again", d),
	}, false)
	if !errors.Is(err, ErrDuplicateEntity) {
		t.Errorf("error = %v, want ErrDuplicateEntity", err)
	}
	if len(r.Entities()) != 1 {
		t.Errorf("entities = %d, want 1", len(r.Entities()))
	}
}

func TestRegistry_PublishesOnlyChanges(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	clock := newFakeClock(now)
	folder := &fakeFolder{name: "Calendar"}
	folder.setItems(timed("Standup", now.Add(time.Hour), now.Add(2*time.Hour)))

	pub := &fakePublisher{err: errors.New("redis down")}
	r := NewRegistry(pub, zerolog.Nop())
	r.SetClock(clock.Now)

	e := NewEntity("calendar.work", "Work", newTestData(t, folder, clock, true, ""))
	if err := r.AddEntities(context.Background(), []*Entity{e}, true); err != nil {
		t.Fatal(err)
	}

	// throttled, nothing changed
	clock.Advance(time.Minute)
	updated, err := r.Refresh(context.Background(), e)
	if err != nil || updated {
		t.Fatalf("Refresh = %v, %v", updated, err)
	}
	if pub.count() != 1 {
		t.Errorf("published = %d, want 1", pub.count())
	}

	// event started, state flips on
	clock.Advance(time.Hour)
	if _, err := r.Refresh(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if pub.count() != 2 {
		t.Errorf("published = %d, want 2", pub.count())
	}
	state, _ := r.State(context.Background(), "calendar.work")
	if state.State != domain.EntityStateOn {
		t.Errorf("state = %q, want on", state.State)
	}
}

func TestRegistry_CalendarEntityService(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	clock := newFakeClock(now)
	folder := &fakeFolder{name: "Calendar"}
	folder.setItems(timed("Standup", now, now.Add(time.Hour)))

	r := NewRegistry(nil, zerolog.Nop())
	r.SetClock(clock.Now)
	e := NewEntity("calendar.work", "Work", newTestData(t, folder, clock, true, ""))
	if err := r.AddEntities(context.Background(), []*Entity{e}, false); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()

	list := r.ListCalendars(ctx)
	if len(list) != 1 || list[0].EntityID != "calendar.work" || list[0].Name != "Work" {
		t.Errorf("ListCalendars() = %+v", list)
	}

	events, err := r.GetEvents(ctx, "calendar.work", now, now.Add(24*time.Hour))
	if err != nil || len(events) != 1 {
		t.Errorf("GetEvents() = %v, %v", events, err)
	}
	if _, err := r.GetEvents(ctx, "calendar.nope", now, now); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("GetEvents unknown = %v", err)
	}

	res, err := r.UpdateEntity(ctx, "calendar.work")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Updated || res.State.State != domain.EntityStateOn {
		t.Errorf("UpdateEntity() = %+v", res)
	}

	res, err = r.UpdateEntity(ctx, "calendar.work")
	if err != nil || res.Updated {
		t.Errorf("second UpdateEntity() = %+v, %v; want throttled", res, err)
	}

	if len(r.States(ctx)) != 1 {
		t.Errorf("States() = %d, want 1", len(r.States(ctx)))
	}
	if _, err := r.UpdateEntity(ctx, "calendar.nope"); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("UpdateEntity unknown = %v", err)
	}
}
