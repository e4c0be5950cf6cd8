package calendar

import (
	"testing"
	"time"
)

func TestExtractOffset(t *testing.T) {
	tests := []struct {
		name        string
		summary     string
		marker      string
		wantSummary string
		wantOffset  time.Duration
	}{
		{"minutes", "Standup !!15", "!!", "Standup", 15 * time.Minute},
		{"negative minutes", "Standup !!-15", "!!", "Standup", -15 * time.Minute},
		{"positive sign", "Standup !!+5", "!!", "Standup", 5 * time.Minute},
		{"hours and minutes", "Flight !!-1:30", "!!", "Flight", -(time.Hour + 30*time.Minute)},
		{"marker in the middle", "Call !!10 Bob", "!!", "Call  Bob", 10 * time.Minute},
		{"no token", "Standup", "!!", "Standup", 0},
		{"marker without digits", "Wow!! great", "!!", "Wow!! great", 0},
		{"custom marker", "Gym ##-20", "##", "Gym", -20 * time.Minute},
		{"disabled marker", "Standup !!15", "", "Standup !!15", 0},
		{"hours only", "Trip !!2:", "!!", "Trip", 2 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, offset := ExtractOffset(tt.summary, tt.marker)
			if summary != tt.wantSummary {
				t.Errorf("summary = %q, want %q", summary, tt.wantSummary)
			}
			if offset != tt.wantOffset {
				t.Errorf("offset = %v, want %v", offset, tt.wantOffset)
			}
		})
	}
}

func TestIsOffsetReached(t *testing.T) {
	start := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		offset time.Duration
		now    time.Time
		want   bool
	}{
		{"before lead time", -15 * time.Minute, start.Add(-20 * time.Minute), false},
		{"at lead time", -15 * time.Minute, start.Add(-15 * time.Minute), true},
		{"within lead time", -15 * time.Minute, start.Add(-5 * time.Minute), true},
		{"zero offset at start", 0, start, false},
		{"zero offset after start", 0, start.Add(time.Hour), false},
		{"positive offset after start", 10 * time.Minute, start.Add(10 * time.Minute), true},
		{"zero offset before start", 0, start.Add(-time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOffsetReached(start, tt.offset, tt.now); got != tt.want {
				t.Errorf("IsOffsetReached() = %v, want %v", got, tt.want)
			}
		})
	}
}
