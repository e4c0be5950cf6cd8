package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"exchange_calendar/core/domain"

	"github.com/redis/go-redis/v9"
)

type fakeWriter struct {
	args []*redis.XAddArgs
	err  error
}

func (f *fakeWriter) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = append(f.args, a)
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	return redis.NewStringResult("1700000000000-0", nil)
}

func TestProducer_PublishEntityState(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducer(NewRedisStream(w, 0), "")
	p.now = func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC) }

	state := &domain.EntityState{
		EntityID:   "calendar.standup",
		Name:       "Standup",
		State:      domain.EntityStateOn,
		Attributes: map[string]any{domain.AttrMessage: "Team Standup"},
	}
	if err := p.PublishEntityState(context.Background(), state); err != nil {
		t.Fatalf("PublishEntityState() error = %v", err)
	}

	if len(w.args) != 1 {
		t.Fatalf("XAdd calls = %d, want 1", len(w.args))
	}
	a := w.args[0]
	if a.Stream != StreamCalendarState || a.MaxLen != DefaultMaxLen || !a.Approx {
		t.Errorf("XAddArgs = %+v", a)
	}

	values, ok := a.Values.(map[string]any)
	if !ok {
		t.Fatalf("Values type = %T", a.Values)
	}
	raw, ok := values["data"].([]byte)
	if !ok {
		t.Fatalf("data type = %T", values["data"])
	}

	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		t.Fatalf("unmarshal job: %v", err)
	}
	if job.Type != JobTypeStateChanged || job.ID == "" {
		t.Errorf("job = %+v", job)
	}
	if job.Payload["entity_id"] != "calendar.standup" || job.Payload["state"] != "on" {
		t.Errorf("payload = %v", job.Payload)
	}
	if _, ok := job.Payload["event"]; ok {
		t.Error("payload should omit event when none is set")
	}
}

func TestProducer_PublishError(t *testing.T) {
	boom := errors.New("connection refused")
	p := NewProducer(NewRedisStream(&fakeWriter{err: boom}, 100), "custom:stream")

	err := p.PublishEntityState(context.Background(), &domain.EntityState{EntityID: "calendar.x"})
	if !errors.Is(err, boom) {
		t.Errorf("PublishEntityState() error = %v, want %v", err, boom)
	}
}
