package ics

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"festagenda/internal/festival"
	appLog "festagenda/internal/log"
)

const defaultMaxEditionsPerEvent = 500

// ExpandConfig controls how VEVENTs become festivals.
type ExpandConfig struct {
	// RangeStart / RangeEnd bound the editions generated from an RRULE.
	// Non-recurring events are always kept.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxEditionsPerEvent caps a single RRULE. Zero means
	// defaultMaxEditionsPerEvent.
	MaxEditionsPerEvent int
}

// ExpandResult holds the festivals produced from a set of VEVENTs.
type ExpandResult struct {
	Festivals []*festival.Event
	// Rejected carries one error per VEVENT (or edition) that could not
	// become a festival.
	Rejected []error
	// TruncatedUIDs lists recurring events that hit the edition cap.
	TruncatedUIDs []string
}

// Expand turns parsed VEVENTs into festivals. A recurring VEVENT yields one
// festival per edition inside the range; RECURRENCE-ID overrides replace the
// matching edition and EXDATEs remove editions.
func Expand(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("ics: RangeEnd is before RangeStart")
	}
	if cfg.MaxEditionsPerEvent <= 0 {
		cfg.MaxEditionsPerEvent = defaultMaxEditionsPerEvent
	}

	// Base events keep file order; overrides are looked up by UID.
	var bases []ParsedEvent
	overridesByUID := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		bases = append(bases, ev)
	}

	for _, ev := range bases {
		editions, hitCap := expandEvent(ev, overridesByUID[ev.UID], cfg)
		if hitCap {
			result.TruncatedUIDs = append(result.TruncatedUIDs, ev.UID)
			appLog.Warn("ics: truncated editions for UID", "uid", ev.UID, "cap", cfg.MaxEditionsPerEvent)
		}
		for _, ed := range editions {
			f, err := toFestival(ed.event, ed.start, ed.end)
			if err != nil {
				result.Rejected = append(result.Rejected, fmt.Errorf("ics %s uid %s: %w", ev.SourceID, ev.UID, err))
				continue
			}
			result.Festivals = append(result.Festivals, f)
		}
	}

	return result, nil
}

type edition struct {
	event      ParsedEvent
	start, end time.Time
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]edition, bool) {
	if ev.RawRRule == "" {
		return []edition{applyOverride(ev, overrides, ev.Start, ev.End)}, false
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)

	// EXDATEs are matched by calendar day; festivals have no finer grain.
	starts := make([]time.Time, 0)
	for _, s := range set.Between(cfg.RangeStart.In(ev.Start.Location()), cfg.RangeEnd.In(ev.Start.Location()), true) {
		if !excluded(s, ev.ExDates) {
			starts = append(starts, s)
		}
	}
	hitCap := false
	if len(starts) > cfg.MaxEditionsPerEvent {
		starts = starts[:cfg.MaxEditionsPerEvent]
		hitCap = true
	}

	span := ev.End.Sub(ev.Start)
	if ev.End.IsZero() {
		span = 0
	}
	out := make([]edition, 0, len(starts))
	for _, s := range starts {
		out = append(out, applyOverride(ev, overrides, s, s.Add(span)))
	}
	return out, hitCap
}

func applyOverride(base ParsedEvent, overrides []ParsedEvent, start, end time.Time) edition {
	for _, ov := range overrides {
		if festival.DateOf(*ov.Recurrence).Equal(festival.DateOf(start)) {
			return edition{event: ov, start: ov.Start, end: ov.End}
		}
	}
	return edition{event: base, start: start, end: end}
}

func excluded(start time.Time, exDates []time.Time) bool {
	day := festival.DateOf(start)
	for _, ex := range exDates {
		if festival.DateOf(ex).Equal(day) {
			return true
		}
	}
	return false
}

// toFestival maps a VEVENT edition onto a festival. All-day DTEND is
// exclusive, so a one-day all-day event has duration 0. Categories outside
// the style vocabulary are ignored.
func toFestival(ev ParsedEvent, start, end time.Time) (*festival.Event, error) {
	startDate := festival.DateOf(start)
	duration := 0
	if !end.IsZero() {
		endDate := festival.DateOf(end)
		if ev.AllDay {
			endDate = endDate.AddDate(0, 0, -1)
		}
		if d := festival.DaysBetween(startDate, endDate); d > 0 {
			duration = d
		}
	}

	styles := make([]festival.Style, 0, len(ev.Categories))
	for _, c := range ev.Categories {
		s, err := festival.ParseStyle(c)
		if err != nil {
			appLog.Debug("ics: ignoring category", "uid", ev.UID, "category", c)
			continue
		}
		styles = append(styles, s)
	}

	return festival.New(ev.Summary, ev.Location, startDate, duration, styles...)
}
