package forecast

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/labstock/internal/domain/reservations"
)

// Period — непрерывный интервал, в котором симуляция по датам
// показывает остаток ниже минимума. End == nil значит, что ни одно
// запланированное пополнение провал не закрывает.
type Period struct {
	Start    time.Time
	End      *time.Time
	MinStock float64 // минимальный остаток внутри интервала
	Shortage float64 // floor - MinStock
}

// Predicted — худший суммарный итог: текущий остаток плюс все
// неисполненные пополнения минус все неисполненные списания.
// Даты здесь сознательно игнорируются.
func Predicted(total float64, pending []reservations.Reservation) float64 {
	sum := decimal.NewFromFloat(total)
	for _, r := range pending {
		if r.Executed {
			continue
		}
		q := decimal.NewFromFloat(r.Quantity)
		switch r.Type {
		case reservations.TypeReplenish:
			sum = sum.Add(q)
		case reservations.TypeUse:
			sum = sum.Sub(q)
		}
	}
	f, _ := sum.Float64()
	return f
}

// CriticalPeriods прогоняет датированные резервы в хронологическом
// порядке и собирает интервалы, где остаток опускается ниже floor.
//
// Резервы без даты в симуляции не участвуют; одинаковые даты
// применяются в порядке добавления (stable sort поверх входного
// порядка — это контракт, а не случайность реализации).
func CriticalPeriods(total, floor float64, pending []reservations.Reservation, now time.Time) []Period {
	events := make([]reservations.Reservation, 0, len(pending))
	for _, r := range pending {
		if r.Executed || r.ScheduledDate == nil {
			continue
		}
		events = append(events, r)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].ScheduledDate.Before(*events[j].ScheduledDate)
	})

	running := decimal.NewFromFloat(total)
	floorD := decimal.NewFromFloat(floor)

	var periods []Period
	var open *Period
	var min decimal.Decimal

	openPeriod := func(start time.Time) {
		open = &Period{Start: start}
		min = running
	}
	closePeriod := func(end time.Time) {
		e := end
		open.End = &e
		open.MinStock, _ = min.Float64()
		open.Shortage, _ = floorD.Sub(min).Float64()
		periods = append(periods, *open)
		open = nil
	}

	// Уже сейчас ниже минимума — интервал открыт с текущего момента.
	if running.LessThan(floorD) {
		openPeriod(now)
	}

	for _, ev := range events {
		q := decimal.NewFromFloat(ev.Quantity)
		switch ev.Type {
		case reservations.TypeUse:
			running = running.Sub(q)
			if open == nil && running.LessThan(floorD) {
				openPeriod(*ev.ScheduledDate)
			}
		case reservations.TypeReplenish:
			running = running.Add(q)
			if open != nil && running.GreaterThanOrEqual(floorD) {
				closePeriod(*ev.ScheduledDate)
				continue
			}
		}
		if open != nil && running.LessThan(min) {
			min = running
		}
	}

	// Остался открытым — значит, дефицит не закрывается ничем из
	// запланированного; это и есть сигнал к действию.
	if open != nil {
		open.MinStock, _ = min.Float64()
		open.Shortage, _ = floorD.Sub(min).Float64()
		periods = append(periods, *open)
	}
	return periods
}

// IsLowStockAlert — есть хотя бы одна точка известного будущего, где
// остаток ниже минимума. Строже, чем сравнение одного лишь Predicted:
// суммарно неотрицательный план может прятать промежуточный провал.
func IsLowStockAlert(total, floor float64, pending []reservations.Reservation, now time.Time) bool {
	return len(CriticalPeriods(total, floor, pending, now)) > 0
}
