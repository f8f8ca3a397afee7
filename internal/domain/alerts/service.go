package alerts

import (
	"context"

	"github.com/Spok95/labstock/internal/domain/forecast"
	"github.com/Spok95/labstock/internal/domain/lots"
	"github.com/Spok95/labstock/internal/domain/materials"
	"github.com/Spok95/labstock/internal/infra/metrics"
)

// Alert — материал, у которого известное будущее содержит хотя бы
// один провал ниже минимума.
type Alert struct {
	Material  materials.Material
	Current   float64
	Predicted float64
	Periods   []forecast.Period
}

// Shortage — самый глубокий дефицит среди критических интервалов.
func (a Alert) Shortage() float64 {
	var worst float64
	for _, p := range a.Periods {
		if p.Shortage > worst {
			worst = p.Shortage
		}
	}
	return worst
}

// Service обходит материалы и собирает текущие алерты по прогнозу.
// Только чтение: уведомления и выгрузки потребляют результат, но
// доставка — не его забота.
type Service struct {
	materials *materials.Repo
	lots      *lots.Repo
	forecast  *forecast.Service
}

func NewService(m *materials.Repo, l *lots.Repo, f *forecast.Service) *Service {
	return &Service{materials: m, lots: l, forecast: f}
}

func (s *Service) Scan(ctx context.Context) ([]Alert, error) {
	mats, err := s.materials.List(ctx)
	if err != nil {
		return nil, err
	}

	var out []Alert
	for _, m := range mats {
		periods, err := s.forecast.CriticalPeriods(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		if len(periods) == 0 {
			continue
		}
		current, err := s.lots.TotalQuantity(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		predicted, err := s.forecast.PredictedStock(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, Alert{Material: m, Current: current, Predicted: predicted, Periods: periods})
	}

	metrics.LowStockMaterials.Set(float64(len(out)))
	return out, nil
}
