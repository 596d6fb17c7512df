package agenda

import (
	"festagenda/internal/festival"
)

// StyleGroup is the set of festival names carrying one style. Names keep the
// order in which the agenda's canonical traversal first met them.
type StyleGroup struct {
	Style festival.Style `json:"style"`
	Names []string       `json:"names"`
}

// Contains reports whether name is in the group.
func (g StyleGroup) Contains(name string) bool {
	for _, n := range g.Names {
		if n == name {
			return true
		}
	}
	return false
}

// GroupByStyle maps every style present in the agenda to the names of the
// festivals tagged with it. Groups are ordered by style; duplicate names
// within a group collapse.
func (a *Agenda) GroupByStyle() []StyleGroup {
	names := make(map[festival.Style][]string)
	seen := make(map[festival.Style]map[string]struct{})

	a.Each(func(_ festival.Month, ev *festival.Event) bool {
		for _, s := range ev.Styles().Styles() {
			if seen[s] == nil {
				seen[s] = make(map[string]struct{})
			}
			if _, dup := seen[s][ev.Name()]; dup {
				continue
			}
			seen[s][ev.Name()] = struct{}{}
			names[s] = append(names[s], ev.Name())
		}
		return true
	})

	out := make([]StyleGroup, 0, len(names))
	for _, s := range festival.AllStyles() {
		if len(names[s]) == 0 {
			continue
		}
		out = append(out, StyleGroup{Style: s, Names: names[s]})
	}
	return out
}

// Lookup finds the group for s in groups produced by GroupByStyle.
func Lookup(groups []StyleGroup, s festival.Style) (StyleGroup, bool) {
	for _, g := range groups {
		if g.Style == s {
			return g, true
		}
	}
	return StyleGroup{}, false
}
