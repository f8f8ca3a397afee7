package lots

import "time"

// Lot — партия материала. Порядок списания определяется created_at
// (старые партии расходуются первыми).
type Lot struct {
	ID         int64     `json:"id"`
	MaterialID int64     `json:"material_id"`
	Name       string    `json:"name"`
	Qty        float64   `json:"qty"` // граммы, всегда >= 0
	CreatedAt  time.Time `json:"created_at"`
}
