package materials

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Create(ctx context.Context, name string, minWeight float64, action ActionType, email, excelPath string) (*Material, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO materials (name, unit, min_weight, action_type, email, excel_path)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, name, unit, min_weight, action_type, email, excel_path, created_at
	`, name, string(UnitG), minWeight, string(action), email, excelPath)

	var m Material
	if err := row.Scan(&m.ID, &m.Name, &m.Unit, &m.MinWeight, &m.Action, &m.Email, &m.ExcelPath, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Material, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, unit, min_weight, action_type, email, excel_path, created_at
		FROM materials
		WHERE id = $1
	`, id)
	var m Material
	if err := row.Scan(&m.ID, &m.Name, &m.Unit, &m.MinWeight, &m.Action, &m.Email, &m.ExcelPath, &m.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *Repo) Update(ctx context.Context, id int64, name string, minWeight float64, action ActionType, email, excelPath string) (*Material, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE materials
		SET name=$2, min_weight=$3, action_type=$4, email=$5, excel_path=$6
		WHERE id=$1
		RETURNING id, name, unit, min_weight, action_type, email, excel_path, created_at
	`, id, name, minWeight, string(action), email, excelPath)
	var m Material
	if err := row.Scan(&m.ID, &m.Name, &m.Unit, &m.MinWeight, &m.Action, &m.Email, &m.ExcelPath, &m.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *Repo) List(ctx context.Context) ([]Material, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, unit, min_weight, action_type, email, excel_path, created_at
		FROM materials
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Material
	for rows.Next() {
		var m Material
		if err := rows.Scan(&m.ID, &m.Name, &m.Unit, &m.MinWeight, &m.Action, &m.Email, &m.ExcelPath, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SearchByName ищет материалы по части названия, без учёта регистра.
func (r *Repo) SearchByName(ctx context.Context, q string) ([]Material, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	like := "%" + strings.ToLower(q) + "%"

	rows, err := r.pool.Query(ctx, `
		SELECT id, name, unit, min_weight, action_type, email, excel_path, created_at
		FROM materials
		WHERE LOWER(name) LIKE $1
		ORDER BY name
	`, like)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Material
	for rows.Next() {
		var m Material
		if err := rows.Scan(&m.ID, &m.Name, &m.Unit, &m.MinWeight, &m.Action, &m.Email, &m.ExcelPath, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete удаляет материал вместе с его предысторией: сначала резервы,
// затем лоты, затем сам материал — всё в одной транзакции.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = tx.Exec(ctx, `DELETE FROM reservations WHERE material_id=$1`, id); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM lots WHERE material_id=$1`, id); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM materials WHERE id=$1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
