package refresh

import (
	"sync"
	"time"

	"festagenda/internal/agenda"
	"festagenda/internal/festival"
	appLog "festagenda/internal/log"
)

// Store owns the current agenda and serializes every access to it. The
// agenda itself has no locking; readers go through View and the only
// mutation, Cancel, goes through the Store as well.
//
// Cancellations made through Cancel last for the life of the Store: every
// agenda installed by Replace has them applied again before it becomes
// visible.
type Store struct {
	mu        sync.RWMutex
	ag        *agenda.Agenda
	loadedAt  time.Time
	cancelled []cancellation
}

// cancellation is one Cancel call kept for replay.
type cancellation struct {
	locations []string
	month     festival.Month
	today     time.Time
}

// NewStore wraps ag, or an empty agenda when ag is nil.
func NewStore(ag *agenda.Agenda) *Store {
	if ag == nil {
		ag = agenda.New()
	}
	return &Store{ag: ag, loadedAt: time.Now()}
}

// View runs fn with shared access. fn must not retain or mutate ag.
func (s *Store) View(fn func(ag *agenda.Agenda)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.ag)
}

// Cancel runs agenda.Cancel on the current agenda and remembers the call so
// later reloads cannot bring the festivals back. The result is that of
// agenda.Cancel, including -1 for a month with no festivals.
func (s *Store) Cancel(locations []string, month festival.Month, today time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.ag.Cancel(locations, month, today)
	if n > 0 {
		s.cancelled = append(s.cancelled, cancellation{
			locations: append([]string(nil), locations...),
			month:     month,
			today:     today,
		})
	}
	return n
}

// Replace swaps in a freshly built agenda after replaying every recorded
// cancellation against it.
func (s *Store) Replace(ag *agenda.Agenda) {
	s.mu.Lock()
	defer s.mu.Unlock()

	replayed := 0
	for _, c := range s.cancelled {
		if n := ag.Cancel(c.locations, c.month, c.today); n > 0 {
			replayed += n
		}
	}
	if replayed > 0 {
		appLog.Debug("cancellations replayed", "records", len(s.cancelled), "removed", replayed)
	}

	s.ag = ag
	s.loadedAt = time.Now()
}

// LoadedAt is when the current agenda was installed.
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}
