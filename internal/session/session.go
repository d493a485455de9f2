// Package session holds per-user map state: the selected location, the latest
// facility set, layer visibility, the detail cache and the alert history.
package session

import (
	"sync"
	"time"

	"github.com/mr1hm/earthpulse/internal/alerts"
	"github.com/mr1hm/earthpulse/internal/facility"
	"github.com/mr1hm/earthpulse/internal/models"
)

// Selection records who chose the current location.
type Selection string

const (
	SelectionAuto Selection = "auto"
	SelectionUser Selection = "user"
)

// Session is safe for concurrent use.
type Session struct {
	ID            string
	CreatedAt     time.Time
	Notifications bool

	mu         sync.RWMutex
	selection  Selection
	city       string
	coord      *models.Coordinate
	generation uint64
	picks      uint64
	facilities *models.FacilitySet
	visible    map[models.Category]bool
	lastSeen   time.Time

	enricher *facility.Enricher
	history  *alerts.History
}

func newSession(id string, now time.Time, notifications bool, enricher *facility.Enricher, history *alerts.History) *Session {
	visible := make(map[models.Category]bool, len(models.Layers))
	for _, c := range models.Layers {
		visible[c] = true
	}
	return &Session{
		ID:            id,
		CreatedAt:     now,
		Notifications: notifications,
		selection:     SelectionAuto,
		visible:       visible,
		lastSeen:      now,
		enricher:      enricher,
		history:       history,
	}
}

// BeginPick starts an explicit city pick and returns its number. Only the most
// recent pick can be bound with SelectCity.
func (s *Session) BeginPick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.picks++
	return s.picks
}

// SelectCity binds the outcome of pick. It moves the session to user selection
// and starts a new facility cycle, whose generation is returned. ok is false
// when a later pick or an accepted location fix superseded pick.
func (s *Session) SelectCity(pick uint64, city string, c models.Coordinate) (gen uint64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pick != s.picks {
		return s.generation, false
	}
	s.selection = SelectionUser
	s.city = city
	s.coord = &c
	s.generation++
	return s.generation, true
}

// UpdateLocation applies an automatic position fix. A user selection is kept
// unless override is set, in which case the session returns to auto. ok is
// false when the fix was ignored.
func (s *Session) UpdateLocation(c models.Coordinate, override bool) (gen uint64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selection == SelectionUser && !override {
		return s.generation, false
	}
	s.selection = SelectionAuto
	s.city = ""
	s.coord = &c
	s.generation++
	s.picks++
	return s.generation, true
}

// ApplyFacilities stores set if gen is still the current cycle. A stale set is
// dropped and false is returned.
func (s *Session) ApplyFacilities(gen uint64, set models.FacilitySet) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return false
	}
	s.facilities = &set
	return true
}

func (s *Session) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Location returns the current city and coordinate. ok is false before the
// first selection.
func (s *Session) Location() (city string, c models.Coordinate, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.coord == nil {
		return s.city, models.Coordinate{}, false
	}
	return s.city, *s.coord, true
}

func (s *Session) SetVisible(c models.Category, v bool) {
	s.mu.Lock()
	s.visible[c] = v
	s.mu.Unlock()
}

func (s *Session) SetAllVisible(v bool) {
	s.mu.Lock()
	for c := range s.visible {
		s.visible[c] = v
	}
	s.mu.Unlock()
}

func (s *Session) Visibility() map[models.Category]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[models.Category]bool, len(s.visible))
	for c, v := range s.visible {
		out[c] = v
	}
	return out
}

// VisibleFacilities returns the current facility set with hidden layers
// emptied. ok is false when no cycle has completed yet.
func (s *Session) VisibleFacilities() (models.FacilitySet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.facilities == nil {
		return models.FacilitySet{}, false
	}

	set := models.FacilitySet{
		Center:     s.facilities.Center,
		NGOs:       []models.MergedFacility{},
		Categories: make(map[models.Category][]models.ClassifiedFacility, len(s.facilities.Categories)),
		Other:      []models.ClassifiedFacility{},
	}
	if s.visible[models.LayerOther] {
		set.Other = s.facilities.Other
	}
	if s.visible[models.CategoryNGO] {
		set.NGOs = s.facilities.NGOs
	}
	for c, list := range s.facilities.Categories {
		if s.visible[c] {
			set.Categories[c] = list
		} else {
			set.Categories[c] = []models.ClassifiedFacility{}
		}
	}
	return set, true
}

// FindFacility looks a facility up by id among the merged NGOs and the open-data
// categories of the current set.
func (s *Session) FindFacility(id string) (models.MergedFacility, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.facilities == nil {
		return models.MergedFacility{}, false
	}
	for _, f := range s.facilities.NGOs {
		if f.ID == id {
			return f, true
		}
	}
	for _, list := range s.facilities.Categories {
		for _, cf := range list {
			if m := facility.FromOpenData(cf); m.ID == id {
				return m, true
			}
		}
	}
	return models.MergedFacility{}, false
}

func (s *Session) Enricher() *facility.Enricher {
	return s.enricher
}

func (s *Session) History() *alerts.History {
	return s.history
}

// ResetCache drops every cached place id and detail.
func (s *Session) ResetCache() {
	s.enricher.Cache().Reset()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// Snapshot is the externally visible state of a session.
type Snapshot struct {
	ID            string                   `json:"id"`
	Selection     Selection                `json:"selection"`
	City          string                   `json:"city,omitempty"`
	Coordinate    *models.Coordinate       `json:"coordinate,omitempty"`
	Generation    uint64                   `json:"generation"`
	Visibility    map[models.Category]bool `json:"visibility"`
	Notifications bool                     `json:"notifications"`
	CachedDetails int                      `json:"cached_details"`
	AlertCount    int                      `json:"alert_count"`
	CreatedAt     time.Time                `json:"created_at"`
}

func (s *Session) Snapshot() Snapshot {
	vis := s.Visibility()

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		ID:            s.ID,
		Selection:     s.selection,
		City:          s.city,
		Generation:    s.generation,
		Visibility:    vis,
		Notifications: s.Notifications,
		CachedDetails: s.enricher.Cache().Len(),
		AlertCount:    s.history.Len(),
		CreatedAt:     s.CreatedAt,
	}
	if s.coord != nil {
		c := *s.coord
		snap.Coordinate = &c
	}
	return snap
}
