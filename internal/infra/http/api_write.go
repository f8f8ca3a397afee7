package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Spok95/labstock/internal/domain/execution"
	"github.com/Spok95/labstock/internal/domain/materials"
	"github.com/Spok95/labstock/internal/domain/recipes"
	"github.com/Spok95/labstock/internal/domain/reservations"
)

func (a *API) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return false
	}
	return true
}

// failDomain переводит доменные ошибки в HTTP-статусы: not found — 404,
// конфликты состояния (уже исполнен, не хватает остатка) — 409,
// недозаполненный запрос — 400, остальное — 500.
func (a *API) failDomain(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reservations.ErrNotFound), errors.Is(err, execution.ErrLotNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, reservations.ErrAlreadyExecuted), errors.Is(err, execution.ErrInsufficientStock):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, execution.ErrMissingLotSelection):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		a.fail(w, err, http.StatusInternalServerError)
	}
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type materialReq struct {
	Name      string  `json:"name"`
	MinWeight float64 `json:"min_weight"`
	Action    string  `json:"action_type"`
	Email     string  `json:"email"`
	ExcelPath string  `json:"excel_path"`
}

func (req materialReq) action() materials.ActionType {
	if req.Action == "" {
		return materials.ActionNone
	}
	return materials.ActionType(req.Action)
}

func (a *API) createMaterial(w http.ResponseWriter, r *http.Request) {
	var req materialReq
	if !a.decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	m, err := a.materials.Create(r.Context(), req.Name, req.MinWeight, req.action(), req.Email, req.ExcelPath)
	if err != nil {
		a.failDomain(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	a.writeJSON(w, m)
}

func (a *API) updateMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var req materialReq
	if !a.decode(w, r, &req) {
		return
	}

	m, err := a.materials.Update(r.Context(), id, req.Name, req.MinWeight, req.action(), req.Email, req.ExcelPath)
	if err != nil {
		a.failDomain(w, err)
		return
	}
	if m == nil {
		http.Error(w, "material not found", http.StatusNotFound)
		return
	}
	a.writeJSON(w, m)
}

func (a *API) deleteMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	if err := a.materials.Delete(r.Context(), id); err != nil {
		a.failDomain(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) addLot(w http.ResponseWriter, r *http.Request) {
	materialID, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string  `json:"name"`
		Qty  float64 `json:"qty"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		http.Error(w, "lot name is required", http.StatusBadRequest)
		return
	}

	l, err := a.lots.Add(r.Context(), materialID, req.Name, req.Qty)
	if err != nil {
		a.failDomain(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	a.writeJSON(w, l)
}

func (a *API) adjustLot(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Delta float64 `json:"delta"`
	}
	if !a.decode(w, r, &req) {
		return
	}

	l, err := a.lots.Adjust(r.Context(), id, req.Delta)
	if err != nil {
		a.failDomain(w, err)
		return
	}
	a.writeJSON(w, l)
}

func (a *API) renameLot(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		http.Error(w, "lot name is required", http.StatusBadRequest)
		return
	}
	if err := a.lots.Rename(r.Context(), id, req.Name); err != nil {
		a.failDomain(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) deleteLot(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	if err := a.lots.Delete(r.Context(), id); err != nil {
		a.failDomain(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listReservations(w http.ResponseWriter, r *http.Request) {
	t := reservations.Type(r.URL.Query().Get("type"))
	if t == "" {
		t = reservations.TypeUse
	}
	list, err := a.reservations.ListPendingByType(r.Context(), t)
	if err != nil {
		a.failDomain(w, err)
		return
	}
	a.writeJSON(w, list)
}

type reservationReq struct {
	MaterialID    int64   `json:"material_id"`
	Type          string  `json:"type"`
	Quantity      float64 `json:"quantity"`
	LotID         *int64  `json:"lot_id"`
	LotName       string  `json:"lot_name"`
	RecipeID      *int64  `json:"recipe_id"`
	Requester     string  `json:"requester"`
	Purpose       string  `json:"purpose"`
	ScheduledDate string  `json:"scheduled_date"`
}

func (a *API) createReservation(w http.ResponseWriter, r *http.Request) {
	var req reservationReq
	if !a.decode(w, r, &req) {
		return
	}
	date, err := parseDate(req.ScheduledDate)
	if err != nil {
		http.Error(w, "bad scheduled_date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	res, err := a.reservations.Create(r.Context(), reservations.CreateParams{
		MaterialID:    req.MaterialID,
		Type:          reservations.Type(req.Type),
		Quantity:      req.Quantity,
		LotID:         req.LotID,
		LotName:       req.LotName,
		RecipeID:      req.RecipeID,
		Requester:     req.Requester,
		Purpose:       req.Purpose,
		ScheduledDate: date,
	})
	if err != nil {
		a.failDomain(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	a.writeJSON(w, res)
}

func (a *API) deleteReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	if err := a.reservations.Delete(r.Context(), id); err != nil {
		a.failDomain(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type executeReq struct {
	ActualQty *float64 `json:"actual_qty"`
	LotID     *int64   `json:"lot_id"`
	LotName   string   `json:"lot_name"`
}

func (req executeReq) target() *execution.Target {
	if req.LotID == nil && req.LotName == "" {
		return nil
	}
	return &execution.Target{LotID: req.LotID, LotName: req.LotName}
}

func (a *API) executeReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var req executeReq
	if !a.decode(w, r, &req) {
		return
	}

	result, err := a.engine.Execute(r.Context(), id, req.ActualQty, req.target())
	if err != nil {
		a.failDomain(w, err)
		return
	}
	a.writeJSON(w, map[string]any{
		"executed":  result.Executed,
		"applied":   result.Applied,
		"shortfall": result.Shortfall,
	})
}

type recipeReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Items       []struct {
		MaterialID int64   `json:"material_id"`
		Quantity   float64 `json:"quantity"`
		LotName    string  `json:"lot_name"`
	} `json:"items"`
}

func (req recipeReq) items() []recipes.Item {
	out := make([]recipes.Item, 0, len(req.Items))
	for _, it := range req.Items {
		out = append(out, recipes.Item{
			MaterialID: it.MaterialID,
			Quantity:   it.Quantity,
			LotName:    it.LotName,
		})
	}
	return out
}

func (a *API) createRecipe(w http.ResponseWriter, r *http.Request) {
	var req recipeReq
	if !a.decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	rec, err := a.recipes.Create(r.Context(), req.Name, req.Description, req.items())
	if err != nil {
		a.failDomain(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	a.writeJSON(w, rec)
}

func (a *API) updateRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var req recipeReq
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.recipes.UpdateItems(r.Context(), id, req.Name, req.Description, req.items()); err != nil {
		a.failDomain(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) deleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	if err := a.recipes.Delete(r.Context(), id); err != nil {
		a.failDomain(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) expandRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Requester     string `json:"requester"`
		Purpose       string `json:"purpose"`
		ScheduledDate string `json:"scheduled_date"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	date, err := parseDate(req.ScheduledDate)
	if err != nil {
		http.Error(w, "bad scheduled_date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	created, err := a.recipes.Expand(r.Context(), id, recipes.ExpandParams{
		Requester:     req.Requester,
		Purpose:       req.Purpose,
		ScheduledDate: date,
	})
	if err != nil {
		a.failDomain(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	a.writeJSON(w, created)
}

func (a *API) executeRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	// Ключи — id резервов когорты, строками из-за JSON.
	var req struct {
		Items map[string]executeReq `json:"items"`
	}
	if !a.decode(w, r, &req) {
		return
	}

	choices := make(map[int64]execution.ItemChoice, len(req.Items))
	for k, v := range req.Items {
		resID, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			http.Error(w, "bad reservation id in items", http.StatusBadRequest)
			return
		}
		choices[resID] = execution.ItemChoice{ActualQty: v.ActualQty, Target: v.target()}
	}

	if err := a.engine.ExecuteRecipe(r.Context(), id, choices); err != nil {
		a.failDomain(w, err)
		return
	}
	a.writeJSON(w, map[string]any{"executed": true})
}
