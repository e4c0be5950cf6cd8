package exchange

import (
	"fmt"
	"time"

	"exchange_calendar/core/domain"
)

const ewsDateTimeLayout = "2006-01-02T15:04:05Z"

func formatDateTime(t time.Time) string {
	return t.UTC().Format(ewsDateTimeLayout)
}

// parseDateTime reads an EWS timestamp. Values without an offset are taken
// as wall-clock time in loc.
func parseDateTime(s string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		// 일부 서버는 오프셋 없이 로컬 시각을 돌려준다
		t, err = time.ParseInLocation("2006-01-02T15:04:05", s, loc)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("parse ews datetime %q: %w", s, err)
	}
	return t, nil
}

// toCandidate converts an EWS item. All-day items keep only their date in loc.
func toCandidate(item calendarItem, loc *time.Location) (*domain.CandidateEvent, error) {
	if loc == nil {
		loc = time.Local
	}

	start, err := parseDateTime(item.Start, loc)
	if err != nil {
		return nil, err
	}
	end, err := parseDateTime(item.End, loc)
	if err != nil {
		return nil, err
	}

	ev := &domain.CandidateEvent{
		UID:      item.UID,
		Subject:  item.Subject,
		Location: item.Location,
		IsAllDay: item.IsAllDayEvent,
	}
	if item.IsAllDayEvent {
		ev.Start = domain.DateOf(start.In(loc))
		ev.End = domain.DateOf(end.In(loc))
	} else {
		ev.Start = domain.DateTimeOf(start.In(loc))
		ev.End = domain.DateTimeOf(end.In(loc))
	}
	return ev, nil
}
