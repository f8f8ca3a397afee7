package execution

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Spok95/labstock/internal/domain/lots"
)

func lotSnapshot() []lots.Lot {
	// Порядок FIFO: created_at по возрастанию.
	return []lots.Lot{
		{ID: 1, MaterialID: 7, Name: "L1", Qty: 30, CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 2, MaterialID: 7, Name: "L2", Qty: 20, CreatedAt: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)},
	}
}

func idPtr(v int64) *int64 { return &v }

func TestPlanUse_FIFO(t *testing.T) {
	tests := []struct {
		name          string
		qty           float64
		wantMuts      []Mutation
		wantApplied   float64
		wantShortfall float64
	}{
		{
			name:        "within_first_lot",
			qty:         25,
			wantMuts:    []Mutation{{Op: OpAdjust, LotID: 1, Delta: -25}},
			wantApplied: 25,
		},
		{
			name:        "drains_first_then_second",
			qty:         40,
			wantMuts:    []Mutation{{Op: OpAdjust, LotID: 1, Delta: -30}, {Op: OpAdjust, LotID: 2, Delta: -10}},
			wantApplied: 40,
		},
		{
			name:          "exhausts_everything_with_shortfall",
			qty:           55,
			wantMuts:      []Mutation{{Op: OpAdjust, LotID: 1, Delta: -30}, {Op: OpAdjust, LotID: 2, Delta: -20}},
			wantApplied:   50,
			wantShortfall: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := planUse(lotSnapshot(), tt.qty, Target{}, true)
			if err != nil {
				t.Fatalf("planUse() error = %v", err)
			}
			if len(plan.Mutations) != len(tt.wantMuts) {
				t.Fatalf("mutations = %v, want %v", plan.Mutations, tt.wantMuts)
			}
			for i, m := range plan.Mutations {
				if m != tt.wantMuts[i] {
					t.Errorf("mutation[%d] = %+v, want %+v", i, m, tt.wantMuts[i])
				}
			}
			if plan.Applied != tt.wantApplied {
				t.Errorf("applied = %v, want %v", plan.Applied, tt.wantApplied)
			}
			if plan.Shortfall != tt.wantShortfall {
				t.Errorf("shortfall = %v, want %v", plan.Shortfall, tt.wantShortfall)
			}
		})
	}
}

func TestPlanUse_FIFOSequence(t *testing.T) {
	// Сценарий: списали 40 FIFO, затем ещё 15 — доступно только 10,
	// недобор 5, обе партии в нуле.
	snapshot := lotSnapshot()

	plan, err := planUse(snapshot, 40, Target{}, true)
	if err != nil {
		t.Fatalf("first planUse() error = %v", err)
	}
	for _, m := range plan.Mutations {
		for i := range snapshot {
			if snapshot[i].ID == m.LotID {
				snapshot[i].Qty += m.Delta
			}
		}
	}
	if snapshot[0].Qty != 0 || snapshot[1].Qty != 10 {
		t.Fatalf("after first use: lots = %v/%v, want 0/10", snapshot[0].Qty, snapshot[1].Qty)
	}

	plan, err = planUse(snapshot, 15, Target{}, true)
	if err != nil {
		t.Fatalf("second planUse() error = %v", err)
	}
	if plan.Applied != 10 || plan.Shortfall != 5 {
		t.Errorf("applied/shortfall = %v/%v, want 10/5", plan.Applied, plan.Shortfall)
	}
	for _, m := range plan.Mutations {
		for i := range snapshot {
			if snapshot[i].ID == m.LotID {
				snapshot[i].Qty += m.Delta
			}
		}
	}
	if snapshot[0].Qty != 0 || snapshot[1].Qty != 0 {
		t.Errorf("after second use: lots = %v/%v, want 0/0", snapshot[0].Qty, snapshot[1].Qty)
	}
}

func TestPlanUse_StrictForbidsShortfall(t *testing.T) {
	_, err := planUse(lotSnapshot(), 55, Target{}, false)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("error = %v, want ErrInsufficientStock", err)
	}
}

func TestPlanUse_Targeted(t *testing.T) {
	tests := []struct {
		name    string
		qty     float64
		target  Target
		wantMut *Mutation
		wantErr error
	}{
		{
			name:    "by_id_enough",
			qty:     20,
			target:  Target{LotID: idPtr(2)},
			wantMut: &Mutation{Op: OpAdjust, LotID: 2, Delta: -20},
		},
		{
			name:    "by_name_enough",
			qty:     30,
			target:  Target{LotName: "L1"},
			wantMut: &Mutation{Op: OpAdjust, LotID: 1, Delta: -30},
		},
		{
			name:    "by_id_short",
			qty:     25,
			target:  Target{LotID: idPtr(2)},
			wantErr: ErrInsufficientStock,
		},
		{
			name:    "by_name_missing",
			qty:     5,
			target:  Target{LotName: "nope"},
			wantErr: ErrLotNotFound,
		},
		{
			name:    "by_id_missing",
			qty:     5,
			target:  Target{LotID: idPtr(99)},
			wantErr: ErrLotNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := planUse(lotSnapshot(), tt.qty, tt.target, true)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("planUse() error = %v", err)
			}
			// Именованная цель никогда не добирает из соседних партий.
			if len(plan.Mutations) != 1 || plan.Mutations[0] != *tt.wantMut {
				t.Errorf("mutations = %+v, want [%+v]", plan.Mutations, *tt.wantMut)
			}
			if plan.Shortfall != 0 {
				t.Errorf("shortfall = %v, want 0", plan.Shortfall)
			}
		})
	}
}

func TestPlanReplenish(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 30, 45, 0, time.UTC)

	tests := []struct {
		name      string
		requested float64
		actual    float64
		target    Target
		wantMut   Mutation
	}{
		{
			name:      "merge_by_existing_name",
			requested: 40,
			actual:    40,
			target:    Target{LotName: "L2"},
			wantMut:   Mutation{Op: OpAdjust, LotID: 2, Delta: 40},
		},
		{
			name:      "create_named_lot",
			requested: 25,
			actual:    25,
			target:    Target{LotName: "batch-7"},
			wantMut:   Mutation{Op: OpCreate, Name: "batch-7", Qty: 25},
		},
		{
			name:      "add_to_bound_lot",
			requested: 10,
			actual:    12,
			target:    Target{LotID: idPtr(1)},
			wantMut:   Mutation{Op: OpAdjust, LotID: 1, Delta: 12},
		},
		{
			name:      "fallback_keeps_requested_quantity",
			requested: 70,
			actual:    55, // фактическое без привязки игнорируется
			target:    Target{},
			wantMut:   Mutation{Op: OpCreate, Name: "replenish-20250610-123045", Qty: 70},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := planReplenish(lotSnapshot(), tt.requested, tt.actual, tt.target, now)
			if err != nil {
				t.Fatalf("planReplenish() error = %v", err)
			}
			if len(plan.Mutations) != 1 {
				t.Fatalf("mutations = %+v, want exactly one", plan.Mutations)
			}
			if plan.Mutations[0] != tt.wantMut {
				t.Errorf("mutation = %+v, want %+v", plan.Mutations[0], tt.wantMut)
			}
		})
	}
}

func TestPlanReplenish_MergeKeepsSingleLot(t *testing.T) {
	// Сценарий: партия "batch-7" уже существует с 12 г — пополнение
	// добавляет к ней, новая партия не создаётся.
	snapshot := []lots.Lot{
		{ID: 5, MaterialID: 3, Name: "batch-7", Qty: 12, CreatedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
	plan, err := planReplenish(snapshot, 8, 8, Target{LotName: "batch-7"}, time.Now())
	if err != nil {
		t.Fatalf("planReplenish() error = %v", err)
	}
	if len(plan.Mutations) != 1 || plan.Mutations[0].Op != OpAdjust {
		t.Fatalf("mutations = %+v, want single adjust", plan.Mutations)
	}
	if plan.Mutations[0].LotID != 5 || plan.Mutations[0].Delta != 8 {
		t.Errorf("mutation = %+v, want +8 on lot 5", plan.Mutations[0])
	}
}

func TestPlanReplenish_GeneratedNamePrefix(t *testing.T) {
	plan, err := planReplenish(nil, 30, 30, Target{}, time.Now())
	if err != nil {
		t.Fatalf("planReplenish() error = %v", err)
	}
	if !strings.HasPrefix(plan.Mutations[0].Name, "replenish-") {
		t.Errorf("generated lot name = %q, want replenish- prefix", plan.Mutations[0].Name)
	}
}

func TestPlanUse_FractionalDrainIsExact(t *testing.T) {
	// 0.1+0.2 в float64 не равно 0.3; планировщик считает в decimal,
	// поэтому партия обнуляется без пыли.
	snapshot := []lots.Lot{
		{ID: 1, Name: "A", Qty: 0.1, CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 2, Name: "B", Qty: 0.2, CreatedAt: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)},
	}
	plan, err := planUse(snapshot, 0.3, Target{}, true)
	if err != nil {
		t.Fatalf("planUse() error = %v", err)
	}
	if plan.Shortfall != 0 {
		t.Errorf("shortfall = %v, want exactly 0", plan.Shortfall)
	}
	if plan.Mutations[0].Delta != -0.1 || plan.Mutations[1].Delta != -0.2 {
		t.Errorf("deltas = %+v, want -0.1/-0.2", plan.Mutations)
	}
}
