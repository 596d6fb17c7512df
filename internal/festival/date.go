package festival

import (
	"strconv"
	"strings"
	"time"
)

// State is the lifecycle position of a festival relative to a reference day.
// It is always recomputed, never stored.
type State int

const (
	Upcoming State = iota
	Ongoing
	Concluded
)

func (s State) String() string {
	switch s {
	case Upcoming:
		return "upcoming"
	case Ongoing:
		return "ongoing"
	case Concluded:
		return "concluded"
	default:
		return "unknown"
	}
}

// Date builds a civil date at UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf drops the clock and zone of t, keeping its wall-clock date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// Today is the current date as seen from loc. Nothing else in this package
// reads the wall clock.
func Today(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return DateOf(time.Now().In(loc))
}

// DaysBetween counts whole days from a to b; both must be civil dates.
// Spans beyond the range of time.Duration are counted exactly.
func DaysBetween(a, b time.Time) int {
	return int((b.Unix() - a.Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

// ParseDate reads a DD-MM-YYYY date. Each part may carry surrounding spaces.
// Out-of-range components are rejected rather than normalized.
func ParseDate(s string) (time.Time, error) {
	raw := strings.TrimSpace(s)
	parts := strings.Split(raw, "-")
	if len(parts) != 3 {
		return time.Time{}, invalid("date", raw, ErrInvalidDate)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, invalid("date", raw, ErrInvalidDate)
		}
		nums[i] = n
	}
	day, month, year := nums[0], nums[1], nums[2]
	if month < 1 || month > 12 || day < 1 || year < 1 {
		return time.Time{}, invalid("date", raw, ErrInvalidDate)
	}
	d := Date(year, time.Month(month), day)
	if d.Day() != day || int(d.Month()) != month {
		return time.Time{}, invalid("date", raw, ErrInvalidDate)
	}
	return d, nil
}

// FormatDate is the inverse of ParseDate.
func FormatDate(t time.Time) string {
	return t.Format("02-01-2006")
}
