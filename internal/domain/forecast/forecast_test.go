package forecast

import (
	"reflect"
	"testing"
	"time"

	"github.com/Spok95/labstock/internal/domain/reservations"
)

func day(n int) time.Time {
	return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func use(qty float64, scheduled *time.Time) reservations.Reservation {
	return reservations.Reservation{Type: reservations.TypeUse, Quantity: qty, ScheduledDate: scheduled}
}

func replenish(qty float64, scheduled *time.Time) reservations.Reservation {
	return reservations.Reservation{Type: reservations.TypeReplenish, Quantity: qty, ScheduledDate: scheduled}
}

func datePtr(t time.Time) *time.Time { return &t }

func TestPredicted(t *testing.T) {
	tests := []struct {
		name    string
		total   float64
		pending []reservations.Reservation
		want    float64
	}{
		{
			name:  "no_pending",
			total: 100,
			want:  100,
		},
		{
			name:    "use_and_replenish",
			total:   100,
			pending: []reservations.Reservation{use(90, nil), replenish(50, nil)},
			want:    60,
		},
		{
			name:  "executed_ignored",
			total: 100,
			pending: []reservations.Reservation{
				use(90, nil),
				{Type: reservations.TypeUse, Quantity: 40, Executed: true},
			},
			want: 10,
		},
		{
			name:    "can_go_negative",
			total:   30,
			pending: []reservations.Reservation{use(50, datePtr(day(3)))},
			want:    -20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Predicted(tt.total, tt.pending)
			if got != tt.want {
				t.Errorf("Predicted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCriticalPeriods_SingleOpenPeriod(t *testing.T) {
	// Одна партия 100 г, минимум 20 г, списание 90 г через 5 дней:
	// провал открывается в день списания и ничем не закрывается.
	pending := []reservations.Reservation{use(90, datePtr(day(5)))}

	periods := CriticalPeriods(100, 20, pending, day(0))
	if len(periods) != 1 {
		t.Fatalf("expected 1 period, got %d", len(periods))
	}

	p := periods[0]
	if !p.Start.Equal(day(5)) {
		t.Errorf("start = %v, want %v", p.Start, day(5))
	}
	if p.End != nil {
		t.Errorf("end = %v, want nil", *p.End)
	}
	if p.MinStock != 10 {
		t.Errorf("min stock = %v, want 10", p.MinStock)
	}
	if p.Shortage != 10 {
		t.Errorf("shortage = %v, want 10", p.Shortage)
	}
}

func TestCriticalPeriods_ReplenishClosesPeriod(t *testing.T) {
	pending := []reservations.Reservation{
		use(90, datePtr(day(5))),
		replenish(50, datePtr(day(10))),
	}

	periods := CriticalPeriods(100, 20, pending, day(0))
	if len(periods) != 1 {
		t.Fatalf("expected 1 period, got %d", len(periods))
	}

	p := periods[0]
	if !p.Start.Equal(day(5)) {
		t.Errorf("start = %v, want %v", p.Start, day(5))
	}
	if p.End == nil || !p.End.Equal(day(10)) {
		t.Errorf("end = %v, want %v", p.End, day(10))
	}
	if p.MinStock != 10 || p.Shortage != 10 {
		t.Errorf("min/shortage = %v/%v, want 10/10", p.MinStock, p.Shortage)
	}
}

func TestCriticalPeriods_AlreadyBelowFloor(t *testing.T) {
	now := day(0)
	periods := CriticalPeriods(5, 20, nil, now)
	if len(periods) != 1 {
		t.Fatalf("expected 1 period, got %d", len(periods))
	}
	p := periods[0]
	if !p.Start.Equal(now) {
		t.Errorf("start = %v, want now", p.Start)
	}
	if p.End != nil {
		t.Errorf("end = %v, want nil", *p.End)
	}
	if p.MinStock != 5 || p.Shortage != 15 {
		t.Errorf("min/shortage = %v/%v, want 5/15", p.MinStock, p.Shortage)
	}
}

func TestCriticalPeriods_IntermediateDipWithPositiveTotal(t *testing.T) {
	// Суммарный итог 110 >= минимума, но между списанием и пополнением
	// остаток проваливается — именно это не видно по одному Predicted.
	pending := []reservations.Reservation{
		use(90, datePtr(day(1))),
		replenish(100, datePtr(day(2))),
	}
	if got := Predicted(100, pending); got != 110 {
		t.Fatalf("Predicted() = %v, want 110", got)
	}

	periods := CriticalPeriods(100, 20, pending, day(0))
	if len(periods) != 1 {
		t.Fatalf("expected 1 period, got %d", len(periods))
	}
	if periods[0].End == nil || !periods[0].End.Equal(day(2)) {
		t.Errorf("end = %v, want %v", periods[0].End, day(2))
	}
}

func TestCriticalPeriods_MultiplePeriods(t *testing.T) {
	pending := []reservations.Reservation{
		use(90, datePtr(day(1))),
		replenish(80, datePtr(day(2))),
		use(85, datePtr(day(4))),
	}

	periods := CriticalPeriods(100, 20, pending, day(0))
	if len(periods) != 2 {
		t.Fatalf("expected 2 periods, got %d", len(periods))
	}
	if periods[0].End == nil {
		t.Errorf("first period must close at %v", day(2))
	}
	if periods[1].End != nil {
		t.Errorf("second period must stay open")
	}
	if periods[1].MinStock != 5 {
		t.Errorf("second period min = %v, want 5", periods[1].MinStock)
	}
}

func TestCriticalPeriods_UndatedIgnored(t *testing.T) {
	pending := []reservations.Reservation{
		use(500, nil), // без даты — в симуляции не участвует
		use(10, datePtr(day(1))),
	}
	periods := CriticalPeriods(100, 20, pending, day(0))
	if len(periods) != 0 {
		t.Fatalf("expected no periods, got %d", len(periods))
	}
}

func TestCriticalPeriods_SameDateInsertionOrder(t *testing.T) {
	// Одинаковая дата: применяется порядок добавления. Списание идёт
	// первым, значит провал есть и закрывается тем же днём.
	d := datePtr(day(3))
	pending := []reservations.Reservation{
		use(50, d),
		replenish(50, d),
	}

	periods := CriticalPeriods(60, 20, pending, day(0))
	if len(periods) != 1 {
		t.Fatalf("expected 1 period, got %d", len(periods))
	}
	p := periods[0]
	if !p.Start.Equal(day(3)) || p.End == nil || !p.End.Equal(day(3)) {
		t.Errorf("period = %v..%v, want both on %v", p.Start, p.End, day(3))
	}
	if p.MinStock != 10 {
		t.Errorf("min = %v, want 10", p.MinStock)
	}

	// Обратный порядок добавления: пополнение первым, провала нет.
	periods = CriticalPeriods(60, 20, []reservations.Reservation{
		replenish(50, d),
		use(50, d),
	}, day(0))
	if len(periods) != 0 {
		t.Fatalf("expected no periods with replenish first, got %d", len(periods))
	}
}

func TestCriticalPeriods_Idempotent(t *testing.T) {
	pending := []reservations.Reservation{
		use(90, datePtr(day(5))),
		replenish(50, datePtr(day(10))),
		use(70, datePtr(day(12))),
	}

	a := CriticalPeriods(100, 20, pending, day(0))
	b := CriticalPeriods(100, 20, pending, day(0))
	if !reflect.DeepEqual(a, b) {
		t.Errorf("two identical calls disagree: %v vs %v", a, b)
	}
}

func TestCriticalPeriods_ReplenishMonotonicity(t *testing.T) {
	base := []reservations.Reservation{use(90, datePtr(day(5)))}
	withFix := append(append([]reservations.Reservation{}, base...), replenish(50, datePtr(day(10))))

	before := CriticalPeriods(100, 20, base, day(0))
	after := CriticalPeriods(100, 20, withFix, day(0))

	if len(after) > len(before) {
		t.Fatalf("replenish added a period: %d -> %d", len(before), len(after))
	}
	if before[0].End != nil {
		t.Fatalf("base period should be open")
	}
	if after[0].End == nil {
		t.Errorf("replenish should have closed the period")
	}
}

func TestIsLowStockAlert(t *testing.T) {
	if IsLowStockAlert(100, 20, nil, day(0)) {
		t.Errorf("healthy stock must not alert")
	}
	if !IsLowStockAlert(100, 20, []reservations.Reservation{use(90, datePtr(day(5)))}, day(0)) {
		t.Errorf("future dip must alert")
	}
}
