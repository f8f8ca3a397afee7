package export

import (
	"bytes"
	"time"

	"github.com/xuri/excelize/v2"
)

// OrderRow — материал в дефиците для листа заказа: текущее и
// прогнозное состояние плюс сколько нужно дозаказать.
type OrderRow struct {
	MaterialID int64
	Name       string
	Current    float64
	Predicted  float64
	MinWeight  float64
	Shortage   float64
	NeededBy   *time.Time // начало первого критического интервала
	Email      string
}

// OrderSheet собирает книгу заказа по всем материалам в дефиците.
func OrderSheet(rows []OrderRow) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{
		"material_id",
		"material_name",
		"current_g",
		"predicted_g",
		"min_weight_g",
		"shortage_g",
		"needed_by",
		"purchase_email",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	rowN := 2
	for _, r := range rows {
		neededBy := ""
		if r.NeededBy != nil {
			neededBy = r.NeededBy.Format("2006-01-02")
		}
		excelRow := []interface{}{
			r.MaterialID,
			r.Name,
			r.Current,
			r.Predicted,
			r.MinWeight,
			r.Shortage,
			neededBy,
			r.Email,
		}
		cell, err := excelize.CoordinatesToCellName(1, rowN)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
			return nil, err
		}
		rowN++
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// StockSheet — книга с остатками по партиям для ручной сверки.
type StockRow struct {
	MaterialID int64
	Material   string
	LotID      int64
	LotName    string
	Qty        float64
	CreatedAt  time.Time
}

func StockSheet(rows []StockRow) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{
		"material_id",
		"material_name",
		"lot_id",
		"lot_name",
		"qty_g",
		"created_at",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	rowN := 2
	for _, r := range rows {
		excelRow := []interface{}{
			r.MaterialID,
			r.Material,
			r.LotID,
			r.LotName,
			r.Qty,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		cell, err := excelize.CoordinatesToCellName(1, rowN)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
			return nil, err
		}
		rowN++
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
