package reservations

import (
	"errors"
	"time"
)

var (
	// ErrNotFound — идентификатор не разрешился в запись.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExecuted — попытка изменить или повторно исполнить
	// уже исполненный резерв. Единственные переходы: pending→executed
	// и pending→deleted.
	ErrAlreadyExecuted = errors.New("reservation already executed")
)

type Type string

const (
	TypeUse       Type = "use"
	TypeReplenish Type = "replenish"
)

// Reservation — запланированное движение остатка, ещё не применённое
// к партиям. После исполнения запись становится историей и больше
// не меняется.
type Reservation struct {
	ID         int64    `json:"id"`
	MaterialID int64    `json:"material_id"`
	Type       Type     `json:"type"`
	Quantity   float64  `json:"quantity"`             // заявленное количество, > 0
	ActualQty  *float64 `json:"actual_qty,omitempty"` // фактическое количество, ставится при исполнении

	LotID   *int64 `json:"lot_id,omitempty"`   // привязка к существующей партии
	LotName string `json:"lot_name,omitempty"` // либо имя партии (create-or-merge при пополнении)

	RecipeID  *int64 `json:"recipe_id,omitempty"`
	Requester string `json:"requester,omitempty"`
	Purpose   string `json:"purpose,omitempty"`

	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`

	Executed   bool       `json:"executed"`
	ExecutedAt *time.Time `json:"executed_at,omitempty"`
}

// IsOverdue — запланированная дата прошла, а резерв так и не исполнен.
// Производный факт, в базе не хранится.
func (r *Reservation) IsOverdue(today time.Time) bool {
	if r.ScheduledDate == nil || r.Executed {
		return false
	}
	y, m, d := today.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, today.Location())
	return r.ScheduledDate.Before(day)
}
