package lots

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Add(ctx context.Context, materialID int64, name string, qty float64) (*Lot, error) {
	if qty < 0 {
		return nil, fmt.Errorf("lot qty must be >= 0")
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO lots (material_id, lot_name, qty)
		VALUES ($1,$2,$3)
		RETURNING id, material_id, lot_name, qty, created_at
	`, materialID, name, qty)

	var l Lot
	if err := row.Scan(&l.ID, &l.MaterialID, &l.Name, &l.Qty, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Lot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, material_id, lot_name, qty, created_at
		FROM lots
		WHERE id = $1
	`, id)
	var l Lot
	if err := row.Scan(&l.ID, &l.MaterialID, &l.Name, &l.Qty, &l.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// Adjust сдвигает остаток партии на delta. Уход в минус запрещён
// CHECK-ограничением схемы; здесь проверяем заранее, чтобы вернуть
// понятную ошибку без отката транзакции пула.
func (r *Repo) Adjust(ctx context.Context, id int64, delta float64) (*Lot, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE lots SET qty = qty + $2
		WHERE id = $1 AND qty + $2 >= 0
		RETURNING id, material_id, lot_name, qty, created_at
	`, id, delta)
	var l Lot
	if err := row.Scan(&l.ID, &l.MaterialID, &l.Name, &l.Qty, &l.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("lot %d: insufficient stock or not found", id)
		}
		return nil, err
	}
	return &l, nil
}

func (r *Repo) Rename(ctx context.Context, id int64, name string) error {
	_, err := r.pool.Exec(ctx, `UPDATE lots SET lot_name=$2 WHERE id=$1`, id, name)
	return err
}

// Delete удаляет партию вместе с резервами, привязанными к ней.
// Уже применённые списания при этом не откатываются.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = tx.Exec(ctx, `DELETE FROM reservations WHERE lot_id=$1`, id); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM lots WHERE id=$1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// TotalQuantity — авторитетный остаток материала: сумма его партий.
func (r *Repo) TotalQuantity(ctx context.Context, materialID int64) (float64, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(qty), 0) FROM lots WHERE material_id = $1
	`, materialID)
	var total float64
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// ListByMaterial возвращает партии в порядке списания: старые первыми,
// при равном времени создания — по id.
func (r *Repo) ListByMaterial(ctx context.Context, materialID int64) ([]Lot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, material_id, lot_name, qty, created_at
		FROM lots
		WHERE material_id = $1
		ORDER BY created_at ASC, id ASC
	`, materialID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lot
	for rows.Next() {
		var l Lot
		if err := rows.Scan(&l.ID, &l.MaterialID, &l.Name, &l.Qty, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// FindByName ищет партию материала по имени. Имена уникальны по
// соглашению, не по схеме: при дублях берётся старейшая.
func (r *Repo) FindByName(ctx context.Context, materialID int64, name string) (*Lot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, material_id, lot_name, qty, created_at
		FROM lots
		WHERE material_id = $1 AND lot_name = $2
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`, materialID, name)
	var l Lot
	if err := row.Scan(&l.ID, &l.MaterialID, &l.Name, &l.Qty, &l.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}
