package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/labstock/internal/domain/lots"
	"github.com/Spok95/labstock/internal/domain/reservations"
	"github.com/Spok95/labstock/internal/infra/metrics"
)

// Engine применяет резервы к партиям. Единица атомарности — одно
// исполнение (или одна когорта рецепта): блокировки FOR UPDATE на
// резерве и партиях материала сериализуют конкурентные исполнения,
// любая ошибка откатывает всю единицу целиком.
type Engine struct {
	pool *pgxpool.Pool
	log  *slog.Logger
	now  func() time.Time
}

func NewEngine(pool *pgxpool.Pool, log *slog.Logger) *Engine {
	return &Engine{pool: pool, log: log, now: time.Now}
}

// Result — итог исполнения одного резерва.
type Result struct {
	Executed  bool
	Applied   float64
	Shortfall float64 // > 0 только при FIFO-списании без цели
}

// Execute исполняет один резерв. actualQty, если задан, замещает
// заявленное количество; choice, если задан, замещает привязку партии
// из самого резерва.
func (e *Engine) Execute(ctx context.Context, reservationID int64, actualQty *float64, choice *Target) (Result, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res, err := lockReservation(ctx, tx, reservationID)
	if err != nil {
		return Result{}, err
	}

	qty := res.Quantity
	if actualQty != nil {
		qty = *actualQty
	}
	if qty <= 0 {
		return Result{}, fmt.Errorf("actual quantity must be > 0")
	}

	target := Target{LotID: res.LotID, LotName: res.LotName}
	if choice != nil {
		target = *choice
	}

	snapshot, err := lockLots(ctx, tx, res.MaterialID)
	if err != nil {
		return Result{}, err
	}

	var plan Plan
	switch res.Type {
	case reservations.TypeUse:
		// Недобор не фатален только при FIFO без явной цели.
		plan, err = planUse(snapshot, qty, target, target.empty())
	case reservations.TypeReplenish:
		plan, err = planReplenish(snapshot, res.Quantity, qty, target, e.now())
	default:
		err = fmt.Errorf("unknown reservation type %q", res.Type)
	}
	if err != nil {
		metrics.RollbacksTotal.Inc()
		return Result{}, err
	}

	if err := applyMutations(ctx, tx, res.MaterialID, plan.Mutations); err != nil {
		metrics.RollbacksTotal.Inc()
		return Result{}, err
	}
	if err := markExecuted(ctx, tx, res.ID, qty); err != nil {
		metrics.RollbacksTotal.Inc()
		return Result{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Result{}, err
	}

	metrics.ExecutionsTotal.WithLabelValues(string(res.Type)).Inc()
	if plan.Shortfall > 0 {
		metrics.ShortfallGrams.Add(plan.Shortfall)
		e.log.Warn("reservation executed with shortfall",
			"reservation_id", res.ID, "material_id", res.MaterialID,
			"requested", qty, "shortfall", plan.Shortfall)
	}
	return Result{Executed: true, Applied: plan.Applied, Shortfall: plan.Shortfall}, nil
}

// ItemChoice — уточнения по одной позиции когорты на момент исполнения.
type ItemChoice struct {
	ActualQty *float64
	Target    *Target
}

// ExecuteRecipe исполняет все неисполненные резервы когорты рецепта
// одной транзакцией, всё-или-ничего. Каждая позиция обязана иметь
// явный выбор партии — когда одновременно расходуется несколько
// материалов, молчаливый FIFO недопустим; недобор тоже фатален.
func (e *Engine) ExecuteRecipe(ctx context.Context, recipeID int64, choices map[int64]ItemChoice) error {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cohort, err := lockCohort(ctx, tx, recipeID)
	if err != nil {
		return err
	}
	if len(cohort) == 0 {
		return fmt.Errorf("recipe %d has no pending reservations: %w", recipeID, reservations.ErrNotFound)
	}

	for _, res := range cohort {
		choice := choices[res.ID]

		qty := res.Quantity
		if choice.ActualQty != nil {
			qty = *choice.ActualQty
		}
		if qty <= 0 {
			metrics.RollbacksTotal.Inc()
			return fmt.Errorf("reservation %d: actual quantity must be > 0", res.ID)
		}

		target := Target{LotID: res.LotID, LotName: res.LotName}
		if choice.Target != nil {
			target = *choice.Target
		}
		if target.empty() {
			metrics.RollbacksTotal.Inc()
			return fmt.Errorf("reservation %d: %w", res.ID, ErrMissingLotSelection)
		}

		// Снимок читается внутри той же транзакции и видит мутации
		// предыдущих позиций когорты по тому же материалу.
		snapshot, err := lockLots(ctx, tx, res.MaterialID)
		if err != nil {
			return err
		}

		var plan Plan
		switch res.Type {
		case reservations.TypeUse:
			plan, err = planUse(snapshot, qty, target, false)
		case reservations.TypeReplenish:
			plan, err = planReplenish(snapshot, res.Quantity, qty, target, e.now())
		default:
			err = fmt.Errorf("unknown reservation type %q", res.Type)
		}
		if err != nil {
			metrics.RollbacksTotal.Inc()
			return fmt.Errorf("reservation %d: %w", res.ID, err)
		}

		if err := applyMutations(ctx, tx, res.MaterialID, plan.Mutations); err != nil {
			metrics.RollbacksTotal.Inc()
			return err
		}
		if err := markExecuted(ctx, tx, res.ID, qty); err != nil {
			metrics.RollbacksTotal.Inc()
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	for _, res := range cohort {
		metrics.ExecutionsTotal.WithLabelValues(string(res.Type)).Inc()
	}
	e.log.Info("recipe cohort executed", "recipe_id", recipeID, "items", len(cohort))
	return nil
}

func lockReservation(ctx context.Context, tx pgx.Tx, id int64) (*reservations.Reservation, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, material_id, type, quantity, actual_qty, lot_id, COALESCE(lot_name,''), executed
		FROM reservations
		WHERE id = $1
		FOR UPDATE
	`, id)

	var r reservations.Reservation
	err := row.Scan(&r.ID, &r.MaterialID, &r.Type, &r.Quantity, &r.ActualQty, &r.LotID, &r.LotName, &r.Executed)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("reservation %d: %w", id, reservations.ErrNotFound)
		}
		return nil, err
	}
	if r.Executed {
		return nil, fmt.Errorf("reservation %d: %w", id, reservations.ErrAlreadyExecuted)
	}
	return &r, nil
}

func lockCohort(ctx context.Context, tx pgx.Tx, recipeID int64) ([]reservations.Reservation, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, material_id, type, quantity, actual_qty, lot_id, COALESCE(lot_name,''), executed
		FROM reservations
		WHERE recipe_id = $1 AND executed = FALSE
		ORDER BY id ASC
		FOR UPDATE
	`, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reservations.Reservation
	for rows.Next() {
		var r reservations.Reservation
		if err := rows.Scan(&r.ID, &r.MaterialID, &r.Type, &r.Quantity, &r.ActualQty, &r.LotID, &r.LotName, &r.Executed); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func lockLots(ctx context.Context, tx pgx.Tx, materialID int64) ([]lots.Lot, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, material_id, lot_name, qty, created_at
		FROM lots
		WHERE material_id = $1
		ORDER BY created_at ASC, id ASC
		FOR UPDATE
	`, materialID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []lots.Lot
	for rows.Next() {
		var l lots.Lot
		if err := rows.Scan(&l.ID, &l.MaterialID, &l.Name, &l.Qty, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func applyMutations(ctx context.Context, tx pgx.Tx, materialID int64, muts []Mutation) error {
	for _, m := range muts {
		switch m.Op {
		case OpAdjust:
			tag, err := tx.Exec(ctx, `
				UPDATE lots SET qty = qty + $2
				WHERE id = $1 AND qty + $2 >= 0
			`, m.LotID, m.Delta)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("lot %d: %w", m.LotID, ErrInsufficientStock)
			}
		case OpCreate:
			if _, err := tx.Exec(ctx, `
				INSERT INTO lots (material_id, lot_name, qty)
				VALUES ($1,$2,$3)
			`, materialID, m.Name, m.Qty); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown mutation op %d", m.Op)
		}
	}
	return nil
}

func markExecuted(ctx context.Context, tx pgx.Tx, id int64, actualQty float64) error {
	_, err := tx.Exec(ctx, `
		UPDATE reservations
		SET executed = TRUE, executed_at = now(), actual_qty = $2
		WHERE id = $1
	`, id, actualQty)
	return err
}
