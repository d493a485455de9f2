package alerts

import (
	"sync"

	"github.com/mr1hm/earthpulse/internal/models"
)

// History keeps the most recent alerts, newest first.
type History struct {
	limit  int
	alerts []models.Alert
	mu     sync.RWMutex
}

func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{limit: limit}
}

func (h *History) Add(a models.Alert) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.alerts = append([]models.Alert{a}, h.alerts...)
	if len(h.alerts) > h.limit {
		h.alerts = h.alerts[:h.limit]
	}
}

// List returns a copy of the history.
func (h *History) List() []models.Alert {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]models.Alert, len(h.alerts))
	copy(out, h.alerts)
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.alerts)
}

func (h *History) Clear() {
	h.mu.Lock()
	h.alerts = nil
	h.mu.Unlock()
}
