package festival

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Separator closes every textual block produced for festivals and agendas.
const Separator = "------------------------------------------------------------"

const displayDateLayout = "2 Jan 2006"

// Event is one scheduled festival. Fields are fixed at construction except
// for the style set, which may only grow through AddStyle.
type Event struct {
	name     string
	location string
	start    time.Time
	duration int
	styles   StyleSet
}

// New validates and normalizes the fields of a festival. The name is
// title-cased, the location upper-cased and start truncated to its date.
func New(name, location string, start time.Time, durationDays int, styles ...Style) (*Event, error) {
	name = TitleCase(name)
	if name == "" {
		return nil, invalid("name", "", ErrBlank)
	}
	location = strings.ToUpper(strings.TrimSpace(location))
	if location == "" {
		return nil, invalid("location", "", ErrBlank)
	}
	if start.IsZero() {
		return nil, invalid("start date", "", ErrInvalidDate)
	}
	if durationDays < 0 {
		return nil, invalid("duration", fmt.Sprint(durationDays), ErrNegativeDuration)
	}
	set := NewStyleSet(styles...)
	for _, s := range styles {
		if !s.Valid() {
			return nil, invalid("style", s.String(), ErrUnknownStyle)
		}
	}
	if set.Empty() {
		return nil, invalid("styles", "", ErrNoStyles)
	}

	return &Event{
		name:     name,
		location: location,
		start:    DateOf(start),
		duration: durationDays,
		styles:   set,
	}, nil
}

func (e *Event) Name() string     { return e.name }
func (e *Event) Location() string { return e.location }
func (e *Event) Start() time.Time { return e.start }
func (e *Event) Duration() int    { return e.duration }
func (e *Event) Styles() StyleSet { return e.styles }

// End is the last day of the festival: start + duration days.
func (e *Event) End() time.Time {
	return e.start.AddDate(0, 0, e.duration)
}

// Month is the calendar month of the start date.
func (e *Event) Month() Month {
	return MonthOf(e.start)
}

// AddStyle tags the festival with s. Adding a style twice is a no-op.
func (e *Event) AddStyle(s Style) {
	e.styles = e.styles.With(s)
}

// HasStyle reports whether the festival is tagged with s.
func (e *Event) HasStyle(s Style) bool {
	return e.styles.Has(s)
}

// Equal reports value equality over every field.
func (e *Event) Equal(o *Event) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.name == o.name &&
		e.location == o.location &&
		e.start.Equal(o.start) &&
		e.duration == o.duration &&
		e.styles == o.styles
}

func (e *Event) StartsBefore(o *Event) bool {
	return e.start.Before(o.start)
}

func (e *Event) StartsAfter(o *Event) bool {
	return e.start.After(o.start)
}

// StateAt classifies the festival relative to today.
func (e *Event) StateAt(today time.Time) State {
	today = DateOf(today)
	switch {
	case today.After(e.End()):
		return Concluded
	case today.Before(e.start):
		return Upcoming
	default:
		return Ongoing
	}
}

func (e *Event) HasConcluded(today time.Time) bool { return e.StateAt(today) == Concluded }
func (e *Event) IsUpcoming(today time.Time) bool   { return e.StateAt(today) == Upcoming }
func (e *Event) IsOngoing(today time.Time) bool    { return e.StateAt(today) == Ongoing }

// DaysUntilStart is negative once the festival has started.
func (e *Event) DaysUntilStart(today time.Time) int {
	return DaysBetween(DateOf(today), e.start)
}

// Describe renders the multi-line text block used in agenda dumps.
func (e *Event) Describe(today time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", e.name, e.styles)
	b.WriteString(e.location)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "%s - %s (%s)\n",
		e.start.Format(displayDateLayout),
		e.End().Format(displayDateLayout),
		e.status(today),
	)
	b.WriteString(Separator)
	return b.String()
}

func (e *Event) status(today time.Time) string {
	switch e.StateAt(today) {
	case Concluded:
		return "concluded"
	case Upcoming:
		days := e.DaysUntilStart(today)
		if days == 1 {
			return "1 day left"
		}
		return fmt.Sprintf("%d days left", days)
	default:
		return "ON"
	}
}

// String renders the festival as of the current local date.
func (e *Event) String() string {
	return e.Describe(Today(time.Local))
}

// TitleCase upper-cases the first letter of every whitespace-separated word
// and lower-cases the rest. Runs of whitespace collapse to a single space.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}
