package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"aparca/internal/apperr"
	"aparca/internal/auth"
	"aparca/internal/entities"
	"aparca/internal/money"
	"aparca/internal/service"

	"github.com/gorilla/mux"
)

type LotHandler struct {
	Service *service.LotService
}

func NewLotHandler(svc *service.LotService) *LotHandler {
	return &LotHandler{Service: svc}
}

func (h *LotHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())

	var req CreateLotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, apperr.Validation("%v", err))
		return
	}

	hourly, err := money.Parse(req.HourlyRate)
	if err != nil {
		writeError(w, apperr.Validation("invalid hourly rate %q", req.HourlyRate))
		return
	}
	dayRate, err := parseOptionalRate(req.DayRate)
	if err != nil {
		writeError(w, apperr.Validation("invalid day rate"))
		return
	}
	monthRate, err := parseOptionalRate(req.MonthRate)
	if err != nil {
		writeError(w, apperr.Validation("invalid month rate"))
		return
	}

	lot, err := h.Service.Create(r.Context(), actor, entities.CreateLotInput{
		OwnerID:     actor.UserID,
		Name:        req.Name,
		Address:     req.Address,
		HourlyRate:  hourly,
		DayRate:     dayRate,
		MonthRate:   monthRate,
		TotalSpaces: req.TotalSpaces,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lot)
}

func (h *LotHandler) List(w http.ResponseWriter, r *http.Request) {
	lots, err := h.Service.ListPublic(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lots)
}

func (h *LotHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := lotID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	lot, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lot)
}

func (h *LotHandler) Availability(w http.ResponseWriter, r *http.Request) {
	id, err := lotID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	availability, err := h.Service.Availability(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, availability)
}

func lotID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		return 0, apperr.Validation("invalid lot id")
	}
	return id, nil
}

func parseOptionalRate(raw *string) (*money.Amount, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	amount, err := money.Parse(*raw)
	if err != nil {
		return nil, err
	}
	return &amount, nil
}
