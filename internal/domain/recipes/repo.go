package recipes

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/labstock/internal/domain/reservations"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Create(ctx context.Context, name, description string, items []Item) (*Recipe, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("recipe needs at least one item")
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("recipe item quantity must be > 0")
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var rec Recipe
	row := tx.QueryRow(ctx, `
		INSERT INTO recipes (name, description)
		VALUES ($1,$2)
		RETURNING id, name, COALESCE(description,''), created_at
	`, name, description)
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.CreatedAt); err != nil {
		return nil, err
	}

	for _, it := range items {
		var lotName *string
		if it.LotName != "" {
			lotName = &it.LotName
		}
		var saved Item
		row := tx.QueryRow(ctx, `
			INSERT INTO recipe_items (recipe_id, material_id, quantity, lot_name)
			VALUES ($1,$2,$3,$4)
			RETURNING id, recipe_id, material_id, quantity, COALESCE(lot_name,'')
		`, rec.ID, it.MaterialID, it.Quantity, lotName)
		if err := row.Scan(&saved.ID, &saved.RecipeID, &saved.MaterialID, &saved.Quantity, &saved.LotName); err != nil {
			return nil, err
		}
		rec.Items = append(rec.Items, saved)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Recipe, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(description,''), created_at FROM recipes WHERE id=$1
	`, id)
	var rec Recipe
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, recipe_id, material_id, quantity, COALESCE(lot_name,'')
		FROM recipe_items
		WHERE recipe_id=$1
		ORDER BY id ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.RecipeID, &it.MaterialID, &it.Quantity, &it.LotName); err != nil {
			return nil, err
		}
		rec.Items = append(rec.Items, it)
	}
	return &rec, rows.Err()
}

func (r *Repo) List(ctx context.Context) ([]Recipe, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, COALESCE(description,''), created_at
		FROM recipes
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Recipe
	for rows.Next() {
		var rec Recipe
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateItems заменяет состав рецепта целиком.
func (r *Repo) UpdateItems(ctx context.Context, id int64, name, description string, items []Item) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = tx.Exec(ctx, `UPDATE recipes SET name=$2, description=$3 WHERE id=$1`, id, name, description); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM recipe_items WHERE recipe_id=$1`, id); err != nil {
		return err
	}
	for _, it := range items {
		var lotName *string
		if it.LotName != "" {
			lotName = &it.LotName
		}
		if _, err = tx.Exec(ctx, `
			INSERT INTO recipe_items (recipe_id, material_id, quantity, lot_name)
			VALUES ($1,$2,$3,$4)
		`, id, it.MaterialID, it.Quantity, lotName); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Delete удаляет рецепт и его позиции. Резервы, созданные из рецепта,
// остаются: recipe_id у них — просто ссылка, не владение.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = tx.Exec(ctx, `DELETE FROM recipe_items WHERE recipe_id=$1`, id); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM recipes WHERE id=$1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Expand создаёт по одному use-резерву на каждую позицию рецепта,
// все с общим recipe_id, заявителем, целью и датой — одной транзакцией.
func (r *Repo) Expand(ctx context.Context, recipeID int64, p ExpandParams) ([]reservations.Reservation, error) {
	rec, err := r.GetByID(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("recipe %d: %w", recipeID, reservations.ErrNotFound)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var out []reservations.Reservation
	for _, cp := range buildReservations(rec.ID, rec.Items, p) {
		var lotName *string
		if cp.LotName != "" {
			lotName = &cp.LotName
		}
		row := tx.QueryRow(ctx, `
			INSERT INTO reservations (material_id, type, quantity, lot_name, recipe_id, requester, purpose, scheduled_date)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			RETURNING id, material_id, type, quantity, actual_qty, lot_id, COALESCE(lot_name,''),
				recipe_id, COALESCE(requester,''), COALESCE(purpose,''), scheduled_date, created_at, executed, executed_at
		`, cp.MaterialID, string(cp.Type), cp.Quantity, lotName, cp.RecipeID, cp.Requester, cp.Purpose, cp.ScheduledDate)

		var res reservations.Reservation
		if err := row.Scan(
			&res.ID, &res.MaterialID, &res.Type, &res.Quantity, &res.ActualQty,
			&res.LotID, &res.LotName, &res.RecipeID, &res.Requester, &res.Purpose,
			&res.ScheduledDate, &res.CreatedAt, &res.Executed, &res.ExecutedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, res)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}
