package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/labstock/internal/domain/reservations"
)

// Service считает прогноз по согласованному снимку: остаток партий и
// очередь резервов читаются в одной read-only транзакции с repeatable
// read, чтобы прогноз не увидел наполовину применённое исполнение.
type Service struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool, now: time.Now}
}

type snapshot struct {
	total   float64
	floor   float64
	pending []reservations.Reservation
}

func (s *Service) load(ctx context.Context, materialID int64) (*snapshot, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var snap snapshot
	row := tx.QueryRow(ctx, `SELECT min_weight FROM materials WHERE id=$1`, materialID)
	if err := row.Scan(&snap.floor); err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("material %d: %w", materialID, reservations.ErrNotFound)
		}
		return nil, err
	}

	row = tx.QueryRow(ctx, `SELECT COALESCE(SUM(qty),0) FROM lots WHERE material_id=$1`, materialID)
	if err := row.Scan(&snap.total); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, material_id, type, quantity, scheduled_date
		FROM reservations
		WHERE material_id = $1 AND executed = FALSE
		ORDER BY id ASC
	`, materialID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var r reservations.Reservation
		if err := rows.Scan(&r.ID, &r.MaterialID, &r.Type, &r.Quantity, &r.ScheduledDate); err != nil {
			return nil, err
		}
		snap.pending = append(snap.pending, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &snap, tx.Commit(ctx)
}

// PredictedStock пересчитывается заново при каждом вызове, без кешей.
func (s *Service) PredictedStock(ctx context.Context, materialID int64) (float64, error) {
	snap, err := s.load(ctx, materialID)
	if err != nil {
		return 0, err
	}
	return Predicted(snap.total, snap.pending), nil
}

func (s *Service) CriticalPeriods(ctx context.Context, materialID int64) ([]Period, error) {
	snap, err := s.load(ctx, materialID)
	if err != nil {
		return nil, err
	}
	return CriticalPeriods(snap.total, snap.floor, snap.pending, s.now()), nil
}

func (s *Service) IsLowStockAlert(ctx context.Context, materialID int64) (bool, error) {
	periods, err := s.CriticalPeriods(ctx, materialID)
	if err != nil {
		return false, err
	}
	return len(periods) > 0, nil
}
