// Package records reads and writes the colon-separated festival record
// format:
//
//	name : location : DD-MM-YYYY : durationDays : style [: style ...]
//
// Fields are whitespace-trimmed. Styles are matched case-insensitively.
package records

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"festagenda/internal/agenda"
	"festagenda/internal/festival"
	appLog "festagenda/internal/log"
)

const (
	fieldSep  = ":"
	minFields = 5
)

// ParseError wraps the failure to turn one record into a festival. Line is
// 1-based; it is 0 when the record did not come from a stream.
type ParseError struct {
	Line   int
	Record string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("records: line %d: %q: %v", e.Line, e.Record, e.Err)
	}
	return fmt.Sprintf("records: %q: %v", e.Record, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseLine converts one record into a festival.
func ParseLine(line string) (*festival.Event, error) {
	ev, err := parseFields(strings.TrimSpace(line))
	if err != nil {
		return nil, &ParseError{Record: line, Err: err}
	}
	return ev, nil
}

func parseFields(line string) (*festival.Event, error) {
	parts := strings.Split(line, fieldSep)
	if len(parts) < minFields {
		return nil, fmt.Errorf("expected at least %d fields, got %d", minFields, len(parts))
	}

	start, err := festival.ParseDate(parts[2])
	if err != nil {
		return nil, err
	}

	rawDuration := strings.TrimSpace(parts[3])
	duration, err := strconv.Atoi(rawDuration)
	if err != nil {
		return nil, &festival.ValidationError{Field: "duration", Value: rawDuration, Err: err}
	}

	styles := make([]festival.Style, 0, len(parts)-4)
	for _, tok := range parts[4:] {
		s, err := festival.ParseStyle(tok)
		if err != nil {
			return nil, err
		}
		styles = append(styles, s)
	}

	return festival.New(parts[0], parts[1], start, duration, styles...)
}

// Format renders ev as a record that ParseLine reads back to an equal
// festival.
func Format(ev *festival.Event) string {
	fields := []string{
		ev.Name(),
		ev.Location(),
		festival.FormatDate(ev.Start()),
		strconv.Itoa(ev.Duration()),
	}
	for _, s := range ev.Styles().Styles() {
		fields = append(fields, s.String())
	}
	return strings.Join(fields, fieldSep)
}

// LoadOptions controls how Load reacts to malformed records.
type LoadOptions struct {
	// Strict aborts the whole load on the first malformed record. When
	// false the record is logged and skipped.
	Strict bool

	// Source names the stream in log lines.
	Source string
}

// LoadStats summarizes a Load call.
type LoadStats struct {
	Added   int
	Skipped int
}

// Load reads records from r and adds each festival to ag in stream order.
// Blank lines and lines starting with '#' are ignored.
//
// In strict mode nothing is added to ag unless every record parses.
func Load(r io.Reader, ag *agenda.Agenda, opts LoadOptions) (LoadStats, error) {
	var (
		stats  LoadStats
		parsed []*festival.Event
	)

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ev, err := parseFields(line)
		if err != nil {
			perr := &ParseError{Line: lineNo, Record: raw, Err: err}
			if opts.Strict {
				return LoadStats{}, perr
			}
			appLog.Warn("skipping malformed record", "source", opts.Source, "line", lineNo, "err", err)
			stats.Skipped++
			continue
		}
		parsed = append(parsed, ev)
	}
	if err := sc.Err(); err != nil {
		return LoadStats{}, fmt.Errorf("records: read %s: %w", opts.Source, err)
	}

	for _, ev := range parsed {
		ag.Add(ev)
	}
	stats.Added = len(parsed)

	appLog.Debug("records loaded", "source", opts.Source, "added", stats.Added, "skipped", stats.Skipped)
	return stats, nil
}

// IsParseError reports whether err came from a malformed record.
func IsParseError(err error) bool {
	var perr *ParseError
	return errors.As(err, &perr)
}
