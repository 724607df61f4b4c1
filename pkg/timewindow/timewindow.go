// Package timewindow decides whether a clock time falls inside a template's
// daily posting window. Everything here is pure: callers convert wall-clock
// to minutes-since-midnight once and pass the result in.
package timewindow

import (
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// ParseClock parses "HH:MM" or "HH:MM:SS" into minutes since midnight.
// The second return value is false for missing or malformed bounds.
func ParseClock(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, false
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return 0, false
		}
	}

	return hour*60 + minute, true
}

// Within reports whether nowMinutes falls inside the half-open window
// [start, end). A missing or unparseable bound leaves the window open.
// Equal bounds mean always open; start after end wraps past midnight.
func Within(start, end string, nowMinutes int) bool {
	s, okStart := ParseClock(start)
	e, okEnd := ParseClock(end)
	if !okStart || !okEnd {
		return true
	}

	nowMinutes = ((nowMinutes % minutesPerDay) + minutesPerDay) % minutesPerDay

	switch {
	case s == e:
		return true
	case s < e:
		return nowMinutes >= s && nowMinutes < e
	default:
		return nowMinutes >= s || nowMinutes < e
	}
}

// MinutesOfDay converts t to minutes since midnight in a fixed civil
// timezone offsetHours east of UTC, independent of the host timezone.
func MinutesOfDay(t time.Time, offsetHours int) int {
	shifted := t.UTC().Add(time.Duration(offsetHours) * time.Hour)
	return shifted.Hour()*60 + shifted.Minute()
}
