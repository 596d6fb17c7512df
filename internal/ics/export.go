package ics

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"

	"festagenda/internal/agenda"
	"festagenda/internal/festival"
)

const productID = "-//festagenda//festagenda//EN"

// ExportOptions tunes the generated VCALENDAR.
type ExportOptions struct {
	Name  string
	Stamp time.Time // DTSTAMP for every VEVENT; zero means now
}

// Export renders the agenda as an iCalendar document, one all-day VEVENT
// per festival in canonical agenda order. Styles become CATEGORIES.
func Export(ag *agenda.Agenda, opts ExportOptions) string {
	return build(ag, opts).Serialize()
}

// WriteExport is Export streamed to w.
func WriteExport(w io.Writer, ag *agenda.Agenda, opts ExportOptions) error {
	_, err := io.WriteString(w, Export(ag, opts))
	return err
}

func build(ag *agenda.Agenda, opts ExportOptions) *ical.Calendar {
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	ag.Each(func(_ festival.Month, f *festival.Event) bool {
		ve := cal.AddEvent(uidFor(f))
		ve.SetDtStampTime(stamp.UTC())
		ve.SetSummary(f.Name())
		ve.SetLocation(f.Location())
		ve.SetAllDayStartAt(f.Start())
		ve.SetAllDayEndAt(f.End().AddDate(0, 0, 1))
		for _, s := range f.Styles().Styles() {
			ve.AddProperty(ical.ComponentPropertyCategories, s.String())
		}
		return true
	})
	return cal
}

// uidFor derives a stable UID from the identifying fields of a festival.
func uidFor(f *festival.Event) string {
	h := sha256.New()
	io.WriteString(h, f.Name())
	io.WriteString(h, "\x00")
	io.WriteString(h, f.Location())
	io.WriteString(h, "\x00")
	io.WriteString(h, festival.FormatDate(f.Start()))
	io.WriteString(h, "\x00")
	io.WriteString(h, strconv.Itoa(f.Duration()))
	return hex.EncodeToString(h.Sum(nil)[:12]) + "@festagenda"
}
