package reservations

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const cols = `id, material_id, type, quantity, actual_qty, lot_id, COALESCE(lot_name,''),
	recipe_id, COALESCE(requester,''), COALESCE(purpose,''), scheduled_date, created_at, executed, executed_at`

func scan(row pgx.Row) (*Reservation, error) {
	var r Reservation
	err := row.Scan(
		&r.ID,
		&r.MaterialID,
		&r.Type,
		&r.Quantity,
		&r.ActualQty,
		&r.LotID,
		&r.LotName,
		&r.RecipeID,
		&r.Requester,
		&r.Purpose,
		&r.ScheduledDate,
		&r.CreatedAt,
		&r.Executed,
		&r.ExecutedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

type CreateParams struct {
	MaterialID    int64
	Type          Type
	Quantity      float64
	LotID         *int64
	LotName       string
	RecipeID      *int64
	Requester     string
	Purpose       string
	ScheduledDate *time.Time
}

func (r *Repo) Create(ctx context.Context, p CreateParams) (*Reservation, error) {
	if p.Quantity <= 0 {
		return nil, fmt.Errorf("reservation quantity must be > 0")
	}
	if p.Type != TypeUse && p.Type != TypeReplenish {
		return nil, fmt.Errorf("unknown reservation type %q", p.Type)
	}
	var lotName *string
	if p.LotName != "" {
		lotName = &p.LotName
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO reservations (material_id, type, quantity, lot_id, lot_name, recipe_id, requester, purpose, scheduled_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING `+cols+`
	`, p.MaterialID, string(p.Type), p.Quantity, p.LotID, lotName, p.RecipeID, p.Requester, p.Purpose, p.ScheduledDate)
	return scan(row)
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Reservation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+cols+` FROM reservations WHERE id = $1`, id)
	res, err := scan(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return res, err
}

// ListPendingByMaterial возвращает неисполненные резервы материала в
// порядке создания. Этот порядок — контракт: прогноз использует его
// как tie-break для одинаковых дат.
func (r *Repo) ListPendingByMaterial(ctx context.Context, materialID int64) ([]Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+cols+`
		FROM reservations
		WHERE material_id = $1 AND executed = FALSE
		ORDER BY id ASC
	`, materialID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListPendingByType — очередь на исполнение, ближайшие даты сверху,
// недатированные в конце.
func (r *Repo) ListPendingByType(ctx context.Context, t Type) ([]Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+cols+`
		FROM reservations
		WHERE type = $1 AND executed = FALSE
		ORDER BY scheduled_date ASC NULLS LAST, created_at DESC
	`, string(t))
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *Repo) ListPendingByRecipe(ctx context.Context, recipeID int64) ([]Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+cols+`
		FROM reservations
		WHERE recipe_id = $1 AND executed = FALSE
		ORDER BY id ASC
	`, recipeID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// CountOverdue — сколько неисполненных резервов просрочено на today.
func (r *Repo) CountOverdue(ctx context.Context, today time.Time) (int, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE executed = FALSE AND scheduled_date IS NOT NULL AND scheduled_date < $1
	`, today)
	var n int
	err := row.Scan(&n)
	return n, err
}

// CountScheduledBetween — резервы с датой в интервале [from, to].
func (r *Repo) CountScheduledBetween(ctx context.Context, from, to time.Time) (int, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE executed = FALSE AND scheduled_date BETWEEN $1 AND $2
	`, from, to)
	var n int
	err := row.Scan(&n)
	return n, err
}

// Delete удаляет только неисполненный резерв: исполненные — история.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reservations WHERE id=$1 AND executed=FALSE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		res, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if res == nil {
			return fmt.Errorf("reservation %d: %w", id, ErrNotFound)
		}
		return fmt.Errorf("reservation %d: %w", id, ErrAlreadyExecuted)
	}
	return nil
}

func collect(rows pgx.Rows) ([]Reservation, error) {
	defer rows.Close()
	var out []Reservation
	for rows.Next() {
		res, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}
