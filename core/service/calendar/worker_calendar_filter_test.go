package calendar

import (
	"testing"
	"time"

	"exchange_calendar/core/domain"
)

func mustPattern(t *testing.T, search string) *Selector {
	t.Helper()
	re, err := CompilePattern(search)
	if err != nil {
		t.Fatalf("CompilePattern(%q): %v", search, err)
	}
	return &Selector{Pattern: re, IncludeAllDay: true, IsOver: DateAwareIsOver, Location: time.UTC}
}

func TestIsMatching(t *testing.T) {
	tests := []struct {
		name   string
		search string
		event  domain.CandidateEvent
		want   bool
	}{
		{"no pattern matches everything", "", domain.CandidateEvent{}, true},
		{"subject prefix", "Team.*", domain.CandidateEvent{Subject: "Team Standup"}, true},
		{"anchored at start", "Team", domain.CandidateEvent{Subject: "My Team Standup"}, false},
		{"case sensitive", "team", domain.CandidateEvent{Subject: "Team Standup"}, false},
		{"location fallback", "Room", domain.CandidateEvent{Subject: "Standup", Location: "Room 42"}, true},
		{"body fallback", "#ha", domain.CandidateEvent{Subject: "Standup", TextBody: "#ha trigger"}, true},
		{"empty attributes skipped", ".*", domain.CandidateEvent{}, false},
		{"no attribute matches", "Foo", domain.CandidateEvent{Subject: "Bar", Location: "Baz", TextBody: "Qux"}, false},
		{"alternation anchored as a whole", "a|b", domain.CandidateEvent{Subject: "xb"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := mustPattern(t, tt.search)
			ev := tt.event
			if got := IsMatching(&ev, sel.Pattern); got != tt.want {
				t.Errorf("IsMatching() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompilePattern_Invalid(t *testing.T) {
	if _, err := CompilePattern("Team(["); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestIsOverPolicies(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, loc)

	tests := []struct {
		name          string
		end           domain.EventTime
		wantDateAware bool
		wantInstant   bool
	}{
		{"timed end in the past", domain.DateTimeOf(now.Add(-time.Minute)), true, true},
		{"timed end equals now", domain.DateTimeOf(now), true, true},
		{"timed end in the future", domain.DateTimeOf(now.Add(time.Minute)), false, false},
		{"date end today", domain.DateOf(now), true, true},
		{"date end tomorrow", domain.DateOf(now.AddDate(0, 0, 1)), false, false},
		{"date end yesterday", domain.DateOf(now.AddDate(0, 0, -1)), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DateAwareIsOver(tt.end, now, loc); got != tt.wantDateAware {
				t.Errorf("DateAwareIsOver() = %v, want %v", got, tt.wantDateAware)
			}
			if got := InstantIsOver(tt.end, now, loc); got != tt.wantInstant {
				t.Errorf("InstantIsOver() = %v, want %v", got, tt.wantInstant)
			}
		})
	}
}

func TestIsOverPolicies_DateTakenInOtherZone(t *testing.T) {
	// The end date was resolved in UTC, the configured zone is UTC-10.
	loc := time.FixedZone("UTC-10", -10*3600)
	end := domain.DateOf(time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC))
	now := time.Date(2024, 5, 11, 2, 0, 0, 0, time.UTC) // 2024-05-10 16:00 local

	if DateAwareIsOver(end, now, loc) {
		t.Error("date aware: local date is still the 10th, should not be over")
	}
	if !InstantIsOver(end, now, loc) {
		t.Error("instant: UTC midnight of the 11th has passed, should be over")
	}

	now = time.Date(2024, 5, 11, 10, 30, 0, 0, time.UTC) // 00:30 local on the 11th
	if !DateAwareIsOver(end, now, loc) {
		t.Error("date aware: should be over on the end date")
	}
}

func TestIsOverPolicyByName(t *testing.T) {
	for _, name := range []string{"", PolicyDateAware, PolicyInstant} {
		if _, err := IsOverPolicyByName(name); err != nil {
			t.Errorf("IsOverPolicyByName(%q) error: %v", name, err)
		}
	}
	if _, err := IsOverPolicyByName("lenient"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestSelectEvent(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)

	t.Run("first matching in input order", func(t *testing.T) {
		sel := mustPattern(t, "Team.*")
		got := sel.SelectEvent([]*domain.CandidateEvent{
			timed("Solo Sync", now, later),
			timed("Team Standup", now, later),
		}, now)
		if got == nil || got.Subject != "Team Standup" {
			t.Fatalf("SelectEvent() = %+v, want Team Standup", got)
		}
	})

	t.Run("all day excluded when flag false", func(t *testing.T) {
		sel := mustPattern(t, "")
		sel.IncludeAllDay = false
		got := sel.SelectEvent([]*domain.CandidateEvent{
			allDay("Holiday", now, 2),
			timed("X", now, later),
		}, now)
		if got == nil || got.Subject != "X" {
			t.Fatalf("SelectEvent() = %+v, want X", got)
		}
	})

	t.Run("all day included when flag true", func(t *testing.T) {
		sel := mustPattern(t, "")
		got := sel.SelectEvent([]*domain.CandidateEvent{
			allDay("Holiday", now, 2),
			timed("X", now, later),
		}, now)
		if got == nil || got.Subject != "Holiday" {
			t.Fatalf("SelectEvent() = %+v, want Holiday", got)
		}
	})

	t.Run("ended events never selected", func(t *testing.T) {
		sel := mustPattern(t, "")
		got := sel.SelectEvent([]*domain.CandidateEvent{
			timed("Past", now.Add(-2*time.Hour), now.Add(-time.Second)),
			timed("Next", now, later),
		}, now)
		if got == nil || got.Subject != "Next" {
			t.Fatalf("SelectEvent() = %+v, want Next", got)
		}
	})

	t.Run("order of non-matching events irrelevant", func(t *testing.T) {
		sel := mustPattern(t, "Team.*")
		a := timed("Solo A", now, later)
		b := timed("Solo B", now, later)
		target := timed("Team Sync", now, later)

		first := sel.SelectEvent([]*domain.CandidateEvent{a, b, target}, now)
		second := sel.SelectEvent([]*domain.CandidateEvent{b, target, a}, now)
		if first != target || second != target {
			t.Fatalf("selection changed with order: %v / %v", first, second)
		}
	})

	t.Run("none match", func(t *testing.T) {
		sel := mustPattern(t, "Nope")
		if got := sel.SelectEvent([]*domain.CandidateEvent{timed("Team", now, later)}, now); got != nil {
			t.Fatalf("SelectEvent() = %+v, want nil", got)
		}
	})
}
