package recipes

import (
	"testing"
	"time"

	"github.com/Spok95/labstock/internal/domain/reservations"
)

func TestBuildReservations(t *testing.T) {
	date := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	items := []Item{
		{ID: 1, RecipeID: 9, MaterialID: 3, Quantity: 12.5, LotName: "batch-1"},
		{ID: 2, RecipeID: 9, MaterialID: 4, Quantity: 7},
	}
	params := ExpandParams{
		Requester:     "Иванова",
		Purpose:       "синтез №42",
		ScheduledDate: &date,
	}

	got := buildReservations(9, items, params)
	if len(got) != len(items) {
		t.Fatalf("got %d reservations, want %d", len(got), len(items))
	}

	for i, cp := range got {
		if cp.Type != reservations.TypeUse {
			t.Errorf("[%d] type = %q, want use", i, cp.Type)
		}
		if cp.MaterialID != items[i].MaterialID {
			t.Errorf("[%d] material = %d, want %d", i, cp.MaterialID, items[i].MaterialID)
		}
		if cp.Quantity != items[i].Quantity {
			t.Errorf("[%d] quantity = %v, want %v", i, cp.Quantity, items[i].Quantity)
		}
		if cp.LotName != items[i].LotName {
			t.Errorf("[%d] lot name = %q, want %q", i, cp.LotName, items[i].LotName)
		}
		// Общие атрибуты когорты одинаковы у всех позиций.
		if cp.RecipeID == nil || *cp.RecipeID != 9 {
			t.Errorf("[%d] recipe id = %v, want 9", i, cp.RecipeID)
		}
		if cp.Requester != params.Requester || cp.Purpose != params.Purpose {
			t.Errorf("[%d] requester/purpose = %q/%q", i, cp.Requester, cp.Purpose)
		}
		if cp.ScheduledDate == nil || !cp.ScheduledDate.Equal(date) {
			t.Errorf("[%d] scheduled date = %v, want %v", i, cp.ScheduledDate, date)
		}
	}
}

func TestBuildReservations_Empty(t *testing.T) {
	got := buildReservations(1, nil, ExpandParams{})
	if len(got) != 0 {
		t.Errorf("got %d reservations from empty recipe, want 0", len(got))
	}
}
