// Package calendar implements the Exchange calendar entities: platform setup,
// the throttled event fetcher and the entity registry the host polls.
package calendar

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"time"

	"exchange_calendar/core/domain"
	"exchange_calendar/core/port/out"

	"github.com/rs/zerolog"
)

const (
	DefaultMinTimeBetweenUpdates = 5 * time.Minute
	DefaultLookahead             = 15 * 24 * time.Hour
)

var ErrNilFolder = errors.New("calendar folder is nil")

// Option configures a CalendarData.
type Option func(*CalendarData)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *CalendarData) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLocation sets the time zone used to resolve calendar dates.
func WithLocation(loc *time.Location) Option {
	return func(d *CalendarData) {
		if loc != nil {
			d.loc = loc
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(d *CalendarData) {
		d.log = log.With().Str("component", "calendar_data").Logger()
	}
}

func WithMinTimeBetweenUpdates(interval time.Duration) Option {
	return func(d *CalendarData) {
		if interval >= 0 {
			d.minInterval = interval
		}
	}
}

func WithLookahead(lookahead time.Duration) Option {
	return func(d *CalendarData) {
		if lookahead > 0 {
			d.lookahead = lookahead
		}
	}
}

// WithOffsetMarker sets the subject marker; an empty marker disables offsets.
func WithOffsetMarker(marker string) Option {
	return func(d *CalendarData) {
		d.offsetMarker = marker
	}
}

func WithIsOverPolicy(policy IsOverPolicy) Option {
	return func(d *CalendarData) {
		if policy != nil {
			d.selector.IsOver = policy
		}
	}
}

// CalendarData fetches events of one calendar folder and keeps the current
// or next event matching its search pattern.
type CalendarData struct {
	folder       out.CalendarFolder
	selector     Selector
	search       string
	offsetMarker string
	minInterval  time.Duration
	lookahead    time.Duration
	loc          *time.Location
	now          func() time.Time
	log          zerolog.Logger

	// refreshing serializes Update; a concurrent call returns immediately.
	refreshing sync.Mutex

	mu         sync.RWMutex
	event      *domain.CalendarEvent
	offset     time.Duration
	lastUpdate time.Time
}

// NewCalendarData creates a fetcher over folder. The search pattern is
// compiled here; an invalid pattern is returned as an error.
func NewCalendarData(folder out.CalendarFolder, includeAllDay bool, search string, opts ...Option) (*CalendarData, error) {
	if folder == nil {
		return nil, ErrNilFolder
	}

	pattern, err := CompilePattern(search)
	if err != nil {
		return nil, err
	}

	d := &CalendarData{
		folder: folder,
		selector: Selector{
			Pattern:       pattern,
			IncludeAllDay: includeAllDay,
			IsOver:        DateAwareIsOver,
		},
		search:       search,
		offsetMarker: DefaultOffsetMarker,
		minInterval:  DefaultMinTimeBetweenUpdates,
		lookahead:    DefaultLookahead,
		loc:          time.Local,
		now:          time.Now,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.selector.Location = d.loc

	return d, nil
}

// GetEvents returns every event overlapping [start, end], in server order.
// The remote call runs on its own goroutine; the caller waits for it or for ctx.
func (d *CalendarData) GetEvents(ctx context.Context, start, end time.Time) ([]*domain.CalendarEvent, error) {
	type result struct {
		items []*domain.CandidateEvent
		err   error
	}

	done := make(chan result, 1)
	go func() {
		items, err := d.folder.Filter(ctx, out.CalendarQuery{
			StartBefore: &end,
			EndAfter:    &start,
		})
		done <- result{items: items, err: err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return nil, res.err
	}

	events := make([]*domain.CalendarEvent, 0, len(res.items))
	for _, item := range res.items {
		if item == nil {
			continue
		}
		events = append(events, domain.NewCalendarEvent(item))
	}
	return events, nil
}

// Update refreshes the current event. It returns false without querying the
// folder when the last successful refresh is younger than the minimum
// interval, or when another refresh of this fetcher is in progress.
func (d *CalendarData) Update(ctx context.Context) (bool, error) {
	if !d.refreshing.TryLock() {
		d.log.Debug().Str("folder", d.folder.Name()).Msg("refresh already in progress")
		return false, nil
	}
	defer d.refreshing.Unlock()

	now := d.now()

	d.mu.RLock()
	last := d.lastUpdate
	d.mu.RUnlock()
	if !last.IsZero() && now.Sub(last) < d.minInterval {
		return false, nil
	}

	// 이미 시작된 이벤트도 받아오려면 start < now 조건이 필요하다
	until := now.Add(d.lookahead)
	results, err := d.folder.Filter(ctx, out.CalendarQuery{
		StartBefore: &now,
		EndAfter:    &now,
		EndBefore:   &until,
	})
	if err != nil {
		return false, err
	}

	selected := d.selector.SelectEvent(results, now)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastUpdate = now

	if selected == nil {
		d.log.Info().Msgf("No matching event found in the %d results for %s", len(results), d.folder.Name())
		d.event = nil
		d.offset = 0
		return true, nil
	}

	event := domain.NewCalendarEvent(selected)
	event.Summary, d.offset = ExtractOffset(event.Summary, d.offsetMarker)
	d.event = event

	d.log.Debug().
		Str("summary", event.Summary).
		Str("start", event.Start.ISO()).
		Str("end", event.End.ISO()).
		Msg("selected event")

	return true, nil
}

// Event returns the last selected event, or nil.
func (d *CalendarData) Event() *domain.CalendarEvent {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.event
}

// Offset returns the offset parsed from the last selected event's subject.
func (d *CalendarData) Offset() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.offset
}

func (d *CalendarData) LastUpdate() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastUpdate
}

func (d *CalendarData) Search() string {
	return d.search
}

func (d *CalendarData) Pattern() *regexp.Regexp {
	return d.selector.Pattern
}

func (d *CalendarData) IncludeAllDay() bool {
	return d.selector.IncludeAllDay
}

func (d *CalendarData) Location() *time.Location {
	return d.loc
}

// Now reads the fetcher's clock.
func (d *CalendarData) Now() time.Time {
	return d.now()
}
