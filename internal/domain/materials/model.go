package materials

import "time"

type Unit string

// Units are fixed to grams for now; the column exists so the schema does
// not need to change when other units arrive.
const UnitG Unit = "g"

type ActionType string

const (
	ActionNone  ActionType = "none"
	ActionEmail ActionType = "email"
	ActionExcel ActionType = "excel"
)

type Material struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Unit      Unit       `json:"unit"`
	MinWeight float64    `json:"min_weight"` // safety floor in grams
	Action    ActionType `json:"action_type"`
	Email     string     `json:"email"`      // purchasing contact, used when Action == email
	ExcelPath string     `json:"excel_path"` // order sheet location, used when Action == excel
	CreatedAt time.Time  `json:"created_at"`
}
