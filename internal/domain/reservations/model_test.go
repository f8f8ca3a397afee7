package reservations

import (
	"testing"
	"time"
)

func TestIsOverdue(t *testing.T) {
	today := time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC)
	yesterday := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	sameDay := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	tomorrow := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		r    Reservation
		want bool
	}{
		{"past_pending", Reservation{ScheduledDate: &yesterday}, true},
		{"past_executed", Reservation{ScheduledDate: &yesterday, Executed: true}, false},
		{"today_not_overdue", Reservation{ScheduledDate: &sameDay}, false},
		{"future", Reservation{ScheduledDate: &tomorrow}, false},
		{"undated", Reservation{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.IsOverdue(today); got != tt.want {
				t.Errorf("IsOverdue() = %v, want %v", got, tt.want)
			}
		})
	}
}
