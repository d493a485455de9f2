package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mr1hm/earthpulse/internal/alerts"
	"github.com/mr1hm/earthpulse/internal/facility"
	"github.com/mr1hm/earthpulse/internal/observability"
	"github.com/puzpuzpuz/xsync/v3"
)

var ErrNotFound = errors.New("session not found")

// EnricherFactory builds the enricher bound to a new session's cache.
type EnricherFactory func(cache *facility.DetailCache) *facility.Enricher

type Store struct {
	sessions    *xsync.MapOf[string, *Session]
	clock       clockwork.Clock
	historySize int
	newEnricher EnricherFactory
	metrics     *observability.Metrics
}

func NewStore(clock clockwork.Clock, historySize int, newEnricher EnricherFactory, metrics *observability.Metrics) *Store {
	return &Store{
		sessions:    xsync.NewMapOf[string, *Session](),
		clock:       clock,
		historySize: historySize,
		newEnricher: newEnricher,
		metrics:     metrics,
	}
}

// Create starts a session with its own detail cache and alert history.
func (st *Store) Create(notifications bool) *Session {
	s := newSession(
		uuid.NewString(),
		st.clock.Now(),
		notifications,
		st.newEnricher(facility.NewDetailCache()),
		alerts.NewHistory(st.historySize),
	)
	st.sessions.Store(s.ID, s)
	st.metrics.ActiveSessions.Set(float64(st.sessions.Size()))
	return s
}

// Get returns the session and marks it as recently used.
func (st *Store) Get(id string) (*Session, error) {
	s, ok := st.sessions.Load(id)
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(st.clock.Now())
	return s, nil
}

func (st *Store) Delete(id string) {
	st.sessions.Delete(id)
	st.metrics.ActiveSessions.Set(float64(st.sessions.Size()))
}

func (st *Store) Len() int {
	return st.sessions.Size()
}

// Prune removes sessions unused for longer than idle and returns how many
// were dropped.
func (st *Store) Prune(idle time.Duration) int {
	cutoff := st.clock.Now().Add(-idle)
	removed := 0
	st.sessions.Range(func(id string, s *Session) bool {
		if s.idleSince().Before(cutoff) {
			st.sessions.Delete(id)
			removed++
		}
		return true
	})
	st.metrics.ActiveSessions.Set(float64(st.sessions.Size()))
	return removed
}
