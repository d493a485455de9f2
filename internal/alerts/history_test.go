package alerts

import (
	"strconv"
	"testing"

	"github.com/mr1hm/earthpulse/internal/models"
)

func TestHistory_NewestFirstAndCapped(t *testing.T) {
	h := NewHistory(5)
	for i := 1; i <= 7; i++ {
		h.Add(models.Alert{ID: strconv.Itoa(i)})
	}

	got := h.List()
	if len(got) != 5 {
		t.Fatalf("expected 5 alerts, got %d", len(got))
	}
	for i, want := range []string{"7", "6", "5", "4", "3"} {
		if got[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, got[i].ID)
		}
	}
}

func TestHistory_ListIsCopy(t *testing.T) {
	h := NewHistory(2)
	h.Add(models.Alert{ID: "a"})

	list := h.List()
	list[0].ID = "changed"

	if h.List()[0].ID != "a" {
		t.Error("mutating the list should not affect history")
	}
}

func TestHistory_Clear(t *testing.T) {
	h := NewHistory(3)
	h.Add(models.Alert{ID: "a"})
	h.Clear()

	if h.Len() != 0 {
		t.Errorf("expected empty history, got %d", h.Len())
	}
}
