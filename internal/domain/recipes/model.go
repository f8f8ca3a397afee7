package recipes

import (
	"time"

	"github.com/Spok95/labstock/internal/domain/reservations"
)

// Recipe — шаблон из нескольких материалов. Раскрытие шаблона создаёт
// когорту связанных use-резервов с общим recipe_id.
type Recipe struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Items       []Item    `json:"items,omitempty"`
}

type Item struct {
	ID         int64   `json:"id"`
	RecipeID   int64   `json:"recipe_id"`
	MaterialID int64   `json:"material_id"`
	Quantity   float64 `json:"quantity"`
	LotName    string  `json:"lot_name,omitempty"` // опциональная привязка к партии по имени
}

// ExpandParams — общие атрибуты всей когорты.
type ExpandParams struct {
	Requester     string
	Purpose       string
	ScheduledDate *time.Time
}

// buildReservations переводит позиции рецепта в параметры резервов.
// Чистая функция: никаких проверок остатка на этом этапе нет, они
// выполняются при исполнении.
func buildReservations(recipeID int64, items []Item, p ExpandParams) []reservations.CreateParams {
	out := make([]reservations.CreateParams, 0, len(items))
	for _, it := range items {
		out = append(out, reservations.CreateParams{
			MaterialID:    it.MaterialID,
			Type:          reservations.TypeUse,
			Quantity:      it.Quantity,
			LotName:       it.LotName,
			RecipeID:      &recipeID,
			Requester:     p.Requester,
			Purpose:       p.Purpose,
			ScheduledDate: p.ScheduledDate,
		})
	}
	return out
}
