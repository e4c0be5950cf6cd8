package calendar

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultOffsetMarker prefixes the lead-time token in event subjects ("Standup !!-15").
const DefaultOffsetMarker = "!!"

var (
	offsetPatterns   = make(map[string]*regexp.Regexp)
	offsetPatternsMu sync.Mutex
)

func offsetPattern(marker string) *regexp.Regexp {
	offsetPatternsMu.Lock()
	defer offsetPatternsMu.Unlock()

	if re, ok := offsetPatterns[marker]; ok {
		return re
	}
	re := regexp.MustCompile(regexp.QuoteMeta(marker) + `([+-]?[0-9]{0,2}(:[0-9]{0,2})?)`)
	offsetPatterns[marker] = re
	return re
}

// ExtractOffset strips the marker token from summary and returns the offset
// it encodes. "MM" is minutes, "H:MM" hours and minutes, and a leading sign
// applies to the whole duration. Without a token the summary is unchanged.
func ExtractOffset(summary, marker string) (string, time.Duration) {
	if marker == "" {
		return summary, 0
	}

	loc := offsetPattern(marker).FindStringSubmatchIndex(summary)
	if loc == nil || loc[3] <= loc[2] {
		return summary, 0
	}

	token := summary[loc[2]:loc[3]]
	offset := parseOffsetToken(token)
	cleaned := strings.TrimSpace(summary[:loc[0]] + summary[loc[1]:])
	return cleaned, offset
}

func parseOffsetToken(token string) time.Duration {
	sign := time.Duration(1)
	switch token[0] {
	case '-':
		sign = -1
		token = token[1:]
	case '+':
		token = token[1:]
	}

	hours, minutes := "0", token
	if i := strings.IndexByte(token, ':'); i >= 0 {
		hours, minutes = token[:i], token[i+1:]
	}

	return sign * (time.Duration(atoiOrZero(hours))*time.Hour + time.Duration(atoiOrZero(minutes))*time.Minute)
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// IsOffsetReached reports whether start shifted by offset is at or before now.
// A zero offset is never reached: the event asked for no lead time.
func IsOffsetReached(start time.Time, offset time.Duration, now time.Time) bool {
	if offset == 0 {
		return false
	}
	return !start.Add(offset).After(now)
}
