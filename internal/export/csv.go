package export

import (
	"encoding/csv"
	"io"
	"strconv"
)

// InventoryRow — строка выгрузки остатков: материал и его
// авторитетный остаток (сумма партий).
type InventoryRow struct {
	ID        int64
	Name      string
	Stock     float64
	Unit      string
	MinWeight float64
}

// WriteInventoryCSV пишет выгрузку с BOM, чтобы Excel не ломал
// не-ASCII имена материалов.
func WriteInventoryCSV(w io.Writer, rows []InventoryRow) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ID", "Name", "Stock", "Unit", "Min Weight"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.FormatInt(r.ID, 10),
			r.Name,
			strconv.FormatFloat(r.Stock, 'f', -1, 64),
			r.Unit,
			strconv.FormatFloat(r.MinWeight, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
