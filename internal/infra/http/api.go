package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Spok95/labstock/internal/domain/alerts"
	"github.com/Spok95/labstock/internal/domain/execution"
	"github.com/Spok95/labstock/internal/domain/forecast"
	"github.com/Spok95/labstock/internal/domain/lots"
	"github.com/Spok95/labstock/internal/domain/materials"
	"github.com/Spok95/labstock/internal/domain/recipes"
	"github.com/Spok95/labstock/internal/domain/reservations"
	"github.com/Spok95/labstock/internal/export"
)

// API — тонкий слой поверх ядра: чтение для дашборда, выгрузки и
// мутации через репозитории и движок исполнения.
type API struct {
	materials    *materials.Repo
	lots         *lots.Repo
	reservations *reservations.Repo
	recipes      *recipes.Repo
	engine       *execution.Engine
	forecast     *forecast.Service
	alerts       *alerts.Service
	log          *slog.Logger
}

func NewAPI(
	m *materials.Repo,
	l *lots.Repo,
	r *reservations.Repo,
	rec *recipes.Repo,
	eng *execution.Engine,
	f *forecast.Service,
	a *alerts.Service,
	log *slog.Logger,
) *API {
	return &API{
		materials:    m,
		lots:         l,
		reservations: r,
		recipes:      rec,
		engine:       eng,
		forecast:     f,
		alerts:       a,
		log:          log,
	}
}

func (a *API) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stats", a.stats)
	mux.HandleFunc("GET /api/materials/{id}/forecast", a.materialForecast)
	mux.HandleFunc("GET /export/inventory.csv", a.inventoryCSV)
	mux.HandleFunc("GET /export/order.xlsx", a.orderSheet)
	mux.HandleFunc("GET /export/stock.xlsx", a.stockSheet)

	mux.HandleFunc("POST /api/materials", a.createMaterial)
	mux.HandleFunc("PUT /api/materials/{id}", a.updateMaterial)
	mux.HandleFunc("DELETE /api/materials/{id}", a.deleteMaterial)

	mux.HandleFunc("POST /api/materials/{id}/lots", a.addLot)
	mux.HandleFunc("POST /api/lots/{id}/adjust", a.adjustLot)
	mux.HandleFunc("PUT /api/lots/{id}", a.renameLot)
	mux.HandleFunc("DELETE /api/lots/{id}", a.deleteLot)

	mux.HandleFunc("GET /api/reservations", a.listReservations)
	mux.HandleFunc("POST /api/reservations", a.createReservation)
	mux.HandleFunc("DELETE /api/reservations/{id}", a.deleteReservation)
	mux.HandleFunc("POST /api/reservations/{id}/execute", a.executeReservation)

	mux.HandleFunc("POST /api/recipes", a.createRecipe)
	mux.HandleFunc("PUT /api/recipes/{id}", a.updateRecipe)
	mux.HandleFunc("DELETE /api/recipes/{id}", a.deleteRecipe)
	mux.HandleFunc("POST /api/recipes/{id}/expand", a.expandRecipe)
	mux.HandleFunc("POST /api/recipes/{id}/execute", a.executeRecipe)
}

func (a *API) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("response encode failed", "err", err)
	}
}

func (a *API) fail(w http.ResponseWriter, err error, code int) {
	a.log.Error("api error", "err", err)
	http.Error(w, http.StatusText(code), code)
}

type alertJSON struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Current    float64 `json:"current"`
	Predicted  float64 `json:"predicted"`
	MinWeight  float64 `json:"min_weight"`
	Unit       string  `json:"unit"`
	ActionType string  `json:"action_type"`
	Email      string  `json:"email,omitempty"`
	ExcelPath  string  `json:"excel_path,omitempty"`
}

type materialJSON struct {
	Name      string  `json:"name"`
	Current   float64 `json:"current"`
	Predicted float64 `json:"predicted"`
	MinWeight float64 `json:"min_weight"`
	Unit      string  `json:"unit"`
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mats, err := a.materials.List(ctx)
	if err != nil {
		a.fail(w, err, http.StatusInternalServerError)
		return
	}

	found, err := a.alerts.Scan(ctx)
	if err != nil {
		a.fail(w, err, http.StatusInternalServerError)
		return
	}
	alertList := make([]alertJSON, 0, len(found))
	for _, al := range found {
		alertList = append(alertList, alertJSON{
			ID:         al.Material.ID,
			Name:       al.Material.Name,
			Current:    al.Current,
			Predicted:  al.Predicted,
			MinWeight:  al.Material.MinWeight,
			Unit:       string(al.Material.Unit),
			ActionType: string(al.Material.Action),
			Email:      al.Material.Email,
			ExcelPath:  al.Material.ExcelPath,
		})
	}

	matList := make([]materialJSON, 0, len(mats))
	for _, m := range mats {
		current, err := a.lots.TotalQuantity(ctx, m.ID)
		if err != nil {
			a.fail(w, err, http.StatusInternalServerError)
			return
		}
		predicted, err := a.forecast.PredictedStock(ctx, m.ID)
		if err != nil {
			a.fail(w, err, http.StatusInternalServerError)
			return
		}
		matList = append(matList, materialJSON{
			Name:      m.Name,
			Current:   current,
			Predicted: predicted,
			MinWeight: m.MinWeight,
			Unit:      string(m.Unit),
		})
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	overdue, err := a.reservations.CountOverdue(ctx, today)
	if err != nil {
		a.fail(w, err, http.StatusInternalServerError)
		return
	}
	week, err := a.reservations.CountScheduledBetween(ctx, today, today.AddDate(0, 0, 7))
	if err != nil {
		a.fail(w, err, http.StatusInternalServerError)
		return
	}

	a.writeJSON(w, map[string]any{
		"total_materials":   len(mats),
		"low_stock_count":   len(found),
		"alert_materials":   alertList,
		"materials":         matList,
		"overdue_count":     overdue,
		"week_reservations": week,
	})
}

type periodJSON struct {
	Start    string  `json:"start"`
	End      *string `json:"end"`
	MinStock float64 `json:"min_stock"`
	Shortage float64 `json:"shortage"`
}

func (a *API) materialForecast(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "bad material id", http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	m, err := a.materials.GetByID(ctx, id)
	if err != nil {
		a.fail(w, err, http.StatusInternalServerError)
		return
	}
	if m == nil {
		http.Error(w, "material not found", http.StatusNotFound)
		return
	}

	predicted, err := a.forecast.PredictedStock(ctx, id)
	if err != nil {
		a.fail(w, err, http.StatusInternalServerError)
		return
	}
	periods, err := a.forecast.CriticalPeriods(ctx, id)
	if err != nil {
		a.fail(w, err, http.StatusInternalServerError)
		return
	}

	ps := make([]periodJSON, 0, len(periods))
	for _, p := range periods {
		var end *string
		if p.End != nil {
			s := p.End.Format("2006-01-02")
			end = &s
		}
		ps = append(ps, periodJSON{
			Start:    p.Start.Format("2006-01-02"),
			End:      end,
			MinStock: p.MinStock,
			Shortage: p.Shortage,
		})
	}

	a.writeJSON(w, map[string]any{
		"material_id":      m.ID,
		"name":             m.Name,
		"predicted":        predicted,
		"min_weight":       m.MinWeight,
		"critical_periods": ps,
		"low_stock_alert":  len(ps) > 0,
	})
}

func (a *API) inventoryCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	mats, err := a.materials.List(ctx)
	if err != nil {
		a.fail(w, err, http.StatusInternalServerError)
		return
	}

	rows := make([]export.InventoryRow, 0, len(mats))
	for _, m := range mats {
		total, err := a.lots.TotalQuantity(ctx, m.ID)
		if err != nil {
			a.fail(w, err, http.StatusInternalServerError)
			return
		}
		rows = append(rows, export.InventoryRow{
			ID:        m.ID,
			Name:      m.Name,
			Stock:     total,
			Unit:      string(m.Unit),
			MinWeight: m.MinWeight,
		})
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=inventory.csv")
	if err := export.WriteInventoryCSV(w, rows); err != nil {
		a.log.Error("csv export failed", "err", err)
	}
}

func (a *API) orderSheet(w http.ResponseWriter, r *http.Request) {
	found, err := a.alerts.Scan(r.Context())
	if err != nil {
		a.fail(w, err, http.StatusInternalServerError)
		return
	}

	rows := make([]export.OrderRow, 0, len(found))
	for _, al := range found {
		row := export.OrderRow{
			MaterialID: al.Material.ID,
			Name:       al.Material.Name,
			Current:    al.Current,
			Predicted:  al.Predicted,
			MinWeight:  al.Material.MinWeight,
			Shortage:   al.Shortage(),
			Email:      al.Material.Email,
		}
		if len(al.Periods) > 0 {
			start := al.Periods[0].Start
			row.NeededBy = &start
		}
		rows = append(rows, row)
	}

	data, err := export.OrderSheet(rows)
	if err != nil {
		a.fail(w, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=order.xlsx")
	_, _ = w.Write(data)
}

func (a *API) stockSheet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	mats, err := a.materials.List(ctx)
	if err != nil {
		a.fail(w, err, http.StatusInternalServerError)
		return
	}

	var rows []export.StockRow
	for _, m := range mats {
		ls, err := a.lots.ListByMaterial(ctx, m.ID)
		if err != nil {
			a.fail(w, err, http.StatusInternalServerError)
			return
		}
		for _, l := range ls {
			rows = append(rows, export.StockRow{
				MaterialID: m.ID,
				Material:   m.Name,
				LotID:      l.ID,
				LotName:    l.Name,
				Qty:        l.Qty,
				CreatedAt:  l.CreatedAt,
			})
		}
	}

	data, err := export.StockSheet(rows)
	if err != nil {
		a.fail(w, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=stock.xlsx")
	_, _ = w.Write(data)
}
