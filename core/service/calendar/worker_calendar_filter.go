package calendar

import (
	"fmt"
	"regexp"
	"time"

	"exchange_calendar/core/domain"
)

// =============================================================================
// Search Pattern
// =============================================================================

// CompilePattern compiles a search pattern anchored at the start of the
// tested string. An empty pattern means "no filter" and yields nil.
func CompilePattern(search string) (*regexp.Regexp, error) {
	if search == "" {
		return nil, nil
	}
	re, err := regexp.Compile("^(?:" + search + ")")
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern %q: %w", search, err)
	}
	return re, nil
}

// IsMatching reports whether the pattern matches the subject, the location
// or the text body, tested in that order and only when non-empty.
func IsMatching(ev *domain.CandidateEvent, pattern *regexp.Regexp) bool {
	if pattern == nil {
		return true
	}
	return ev.Subject != "" && pattern.MatchString(ev.Subject) ||
		ev.Location != "" && pattern.MatchString(ev.Location) ||
		ev.TextBody != "" && pattern.MatchString(ev.TextBody)
}

// =============================================================================
// Is-over Policies
// =============================================================================

// IsOverPolicy decides whether an event has ended at now. loc is the
// configured time zone used to resolve calendar dates.
type IsOverPolicy func(end domain.EventTime, now time.Time, loc *time.Location) bool

const (
	PolicyDateAware = "date_aware"
	PolicyInstant   = "instant"
)

// DateAwareIsOver compares instants for timed ends and today's date for
// date-only ends.
func DateAwareIsOver(end domain.EventTime, now time.Time, loc *time.Location) bool {
	if !end.DateOnly {
		return !now.Before(end.Time)
	}
	if loc == nil {
		loc = time.Local
	}
	today := domain.DateOf(now.In(loc))
	return today.ISO() >= end.ISO()
}

// InstantIsOver always compares now against the end value as an instant,
// whatever its shape. A date-only end counts from midnight in the zone the
// date was taken in; loc is ignored.
func InstantIsOver(end domain.EventTime, now time.Time, _ *time.Location) bool {
	return !now.Before(end.Time)
}

// IsOverPolicyByName resolves a configured policy name.
func IsOverPolicyByName(name string) (IsOverPolicy, error) {
	switch name {
	case "", PolicyDateAware:
		return DateAwareIsOver, nil
	case PolicyInstant:
		return InstantIsOver, nil
	default:
		return nil, fmt.Errorf("unknown is_over_policy %q", name)
	}
}

// =============================================================================
// Selection
// =============================================================================

// Selector applies the refresh selection policy to candidate events.
type Selector struct {
	Pattern       *regexp.Regexp
	IncludeAllDay bool
	IsOver        IsOverPolicy
	Location      *time.Location
}

// Admits reports whether ev passes all three filters at now.
func (s *Selector) Admits(ev *domain.CandidateEvent, now time.Time) bool {
	if !IsMatching(ev, s.Pattern) {
		return false
	}
	if ev.IsAllDay && !s.IncludeAllDay {
		return false
	}
	isOver := s.IsOver
	if isOver == nil {
		isOver = DateAwareIsOver
	}
	return !isOver(ev.End, now, s.Location)
}

// SelectEvent returns the first candidate, in input order, admitted at now.
func (s *Selector) SelectEvent(candidates []*domain.CandidateEvent, now time.Time) *domain.CandidateEvent {
	for _, ev := range candidates {
		if ev == nil {
			continue
		}
		if s.Admits(ev, now) {
			return ev
		}
	}
	return nil
}
