package agenda

import (
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"festagenda/internal/festival"
)

// Agenda indexes festivals by the month they start in. Within a month the
// list is kept sorted by name; equal names keep their arrival order.
//
// A month is present only while it holds at least one festival.
//
// Agenda is not safe for concurrent use. Callers sharing one across
// goroutines must serialize access (see refresh.Store).
type Agenda struct {
	months map[festival.Month][]*festival.Event
}

// New returns an empty agenda.
func New() *Agenda {
	return &Agenda{
		months: make(map[festival.Month][]*festival.Event),
	}
}

// Add places ev in its month, after every festival whose name sorts before
// or equal to its own.
func (a *Agenda) Add(ev *festival.Event) {
	m := ev.Month()
	list, ok := a.months[m]
	if !ok {
		a.months[m] = []*festival.Event{ev}
		return
	}

	i := insertionIndex(list, ev.Name())
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = ev
	a.months[m] = list
}

// insertionIndex is the first position holding a name strictly greater
// than name.
func insertionIndex(list []*festival.Event, name string) int {
	return sort.Search(len(list), func(i int) bool {
		return list[i].Name() > name
	})
}

// CountInMonth returns the number of festivals in m, or 0 when m is absent.
func (a *Agenda) CountInMonth(m festival.Month) int {
	return len(a.months[m])
}

// Has reports whether m currently holds any festival.
func (a *Agenda) Has(m festival.Month) bool {
	_, ok := a.months[m]
	return ok
}

// Months lists the present months in calendar order.
func (a *Agenda) Months() []festival.Month {
	out := make([]festival.Month, 0, len(a.months))
	for _, m := range festival.AllMonths() {
		if _, ok := a.months[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Events returns a copy of the month's list in stored order.
func (a *Agenda) Events(m festival.Month) []*festival.Event {
	list := a.months[m]
	if len(list) == 0 {
		return nil
	}
	out := make([]*festival.Event, len(list))
	copy(out, list)
	return out
}

// Len is the total number of festivals across all months.
func (a *Agenda) Len() int {
	n := 0
	for _, list := range a.months {
		n += len(list)
	}
	return n
}

// Each visits every festival in canonical order: months in calendar order,
// festivals in stored order. Returning false stops the walk.
func (a *Agenda) Each(fn func(m festival.Month, ev *festival.Event) bool) {
	for _, m := range a.Months() {
		for _, ev := range a.months[m] {
			if !fn(m, ev) {
				return
			}
		}
	}
}

// Cancel removes the festivals of month held in any of locations that have
// not concluded by today, and returns how many were removed. It returns -1
// when month holds no festivals at all.
//
// Upcoming festivals are eligible as well as ongoing ones.
func (a *Agenda) Cancel(locations []string, month festival.Month, today time.Time) int {
	list, ok := a.months[month]
	if !ok {
		return -1
	}

	wanted := make(map[string]struct{}, len(locations))
	for _, loc := range locations {
		wanted[strings.ToUpper(strings.TrimSpace(loc))] = struct{}{}
	}

	kept := list[:0]
	removed := 0
	for _, ev := range list {
		_, hit := wanted[ev.Location()]
		if hit && !ev.HasConcluded(today) {
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	for i := len(kept); i < len(list); i++ {
		list[i] = nil
	}

	if len(kept) == 0 {
		delete(a.months, month)
	} else {
		a.months[month] = kept
	}
	return removed
}

// Render writes the textual dump of the agenda as of today.
func (a *Agenda) Render(w io.Writer, today time.Time) error {
	_, err := io.WriteString(w, a.Dump(today))
	return err
}

// Dump renders every month as "<MONTH>: <count>" followed by the text form
// of each festival and a separator line.
func (a *Agenda) Dump(today time.Time) string {
	var b strings.Builder
	for _, m := range a.Months() {
		list := a.months[m]
		b.WriteString(m.String())
		b.WriteString(": ")
		b.WriteString(strconv.Itoa(len(list)))
		b.WriteByte('\n')
		for _, ev := range list {
			b.WriteString(ev.Describe(today))
			b.WriteByte('\n')
		}
		b.WriteString(festival.Separator)
		b.WriteByte('\n')
	}
	return b.String()
}

func (a *Agenda) String() string {
	return a.Dump(festival.Today(time.Local))
}
