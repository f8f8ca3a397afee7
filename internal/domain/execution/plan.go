package execution

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/labstock/internal/domain/lots"
)

var (
	// ErrInsufficientStock — запрошенное списание превышает доступное
	// количество при действующей политике (именованная партия короче
	// заявки либо FIFO при запрете недобора).
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrLotNotFound — целевая партия не разрешилась по id или имени.
	ErrLotNotFound = errors.New("lot not found")
	// ErrMissingLotSelection — в когорте рецепта каждая позиция обязана
	// иметь явный выбор партии, FIFO-фолбэк там запрещён.
	ErrMissingLotSelection = errors.New("missing lot selection")
)

// Target — явный выбор партии: по id либо по имени.
type Target struct {
	LotID   *int64
	LotName string
}

func (t Target) empty() bool { return t.LotID == nil && t.LotName == "" }

// Op — закрытый набор мутаций, которые умеет производить исполнение.
type Op int

const (
	// OpAdjust сдвигает количество существующей партии на Delta.
	OpAdjust Op = iota
	// OpCreate создаёт новую партию Name с количеством Qty.
	OpCreate
)

type Mutation struct {
	Op    Op
	LotID int64   // OpAdjust
	Delta float64 // OpAdjust, со знаком
	Name  string  // OpCreate
	Qty   float64 // OpCreate
}

// Plan — результат планирования одного резерва: список мутаций партий
// плюс недобор, если FIFO исчерпал запас.
type Plan struct {
	Mutations []Mutation
	Applied   float64
	Shortfall float64
}

// resolveTarget находит партию по явному выбору.
func resolveTarget(snapshot []lots.Lot, t Target) (*lots.Lot, error) {
	if t.LotID != nil {
		for i := range snapshot {
			if snapshot[i].ID == *t.LotID {
				return &snapshot[i], nil
			}
		}
		return nil, fmt.Errorf("lot id %d: %w", *t.LotID, ErrLotNotFound)
	}
	for i := range snapshot {
		if snapshot[i].Name == t.LotName {
			return &snapshot[i], nil
		}
	}
	return nil, fmt.Errorf("lot %q: %w", t.LotName, ErrLotNotFound)
}

// planUse планирует списание qty из снимка партий материала.
// Снимок должен быть отсортирован в порядке FIFO (created_at, id).
//
// С явной целью списание идёт только из неё и падает целиком, если
// партии не хватает — частичный добор из соседних партий при
// именованной цели запрещён. Без цели запас выбирается FIFO; при
// allowShortfall нехватка не фатальна: списывается всё доступное,
// остаток возвращается как Shortfall.
func planUse(snapshot []lots.Lot, qty float64, target Target, allowShortfall bool) (Plan, error) {
	need := decimal.NewFromFloat(qty)

	if !target.empty() {
		lot, err := resolveTarget(snapshot, target)
		if err != nil {
			return Plan{}, err
		}
		have := decimal.NewFromFloat(lot.Qty)
		if have.LessThan(need) {
			return Plan{}, fmt.Errorf("lot %q has %s of %s requested: %w",
				lot.Name, have, need, ErrInsufficientStock)
		}
		return Plan{
			Mutations: []Mutation{{Op: OpAdjust, LotID: lot.ID, Delta: -qty}},
			Applied:   qty,
		}, nil
	}

	var muts []Mutation
	remaining := need
	for i := range snapshot {
		if remaining.Sign() <= 0 {
			break
		}
		have := decimal.NewFromFloat(snapshot[i].Qty)
		if have.Sign() <= 0 {
			continue
		}
		take := decimal.Min(have, remaining)
		delta, _ := take.Neg().Float64()
		muts = append(muts, Mutation{Op: OpAdjust, LotID: snapshot[i].ID, Delta: delta})
		remaining = remaining.Sub(take)
	}

	if remaining.Sign() > 0 && !allowShortfall {
		return Plan{}, fmt.Errorf("%s short of %s requested: %w", remaining, need, ErrInsufficientStock)
	}

	applied, _ := need.Sub(remaining).Float64()
	shortfall, _ := remaining.Float64()
	return Plan{Mutations: muts, Applied: applied, Shortfall: shortfall}, nil
}

// planReplenish планирует пополнение. requested — заявленное
// количество, qty — фактическое (они различаются, когда при
// исполнении указали actual).
//
// Именованная партия дополняется, если существует, иначе создаётся
// (merge-by-name). Привязка по id просто дополняет партию. Без всякой
// привязки создаётся партия со сгенерированным именем и *заявленным*
// количеством: раз фактического уточнения не было, сохраняем как
// минимум запланированное.
func planReplenish(snapshot []lots.Lot, requested, qty float64, target Target, now time.Time) (Plan, error) {
	switch {
	case target.LotName != "":
		for i := range snapshot {
			if snapshot[i].Name == target.LotName {
				return Plan{
					Mutations: []Mutation{{Op: OpAdjust, LotID: snapshot[i].ID, Delta: qty}},
					Applied:   qty,
				}, nil
			}
		}
		return Plan{
			Mutations: []Mutation{{Op: OpCreate, Name: target.LotName, Qty: qty}},
			Applied:   qty,
		}, nil

	case target.LotID != nil:
		lot, err := resolveTarget(snapshot, target)
		if err != nil {
			return Plan{}, err
		}
		return Plan{
			Mutations: []Mutation{{Op: OpAdjust, LotID: lot.ID, Delta: qty}},
			Applied:   qty,
		}, nil

	default:
		name := "replenish-" + now.Format("20060102-150405")
		return Plan{
			Mutations: []Mutation{{Op: OpCreate, Name: name, Qty: requested}},
			Applied:   requested,
		}, nil
	}
}
