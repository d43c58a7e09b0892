package api

import (
	"encoding/json"
	"net/http"

	"aparca/internal/apperr"
	"aparca/internal/auth"
	"aparca/internal/entities"
	"aparca/internal/service"

	"github.com/gorilla/mux"
)

type ReservationHandler struct {
	Service *service.ReservationService
}

func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{Service: svc}
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())

	var req CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, apperr.Validation("%v", err))
		return
	}
	startTime, err := parseStartTime(req.StartTime)
	if err != nil {
		writeError(w, apperr.Validation("%v", err))
		return
	}
	kind, err := reservationKind(req.Kind)
	if err != nil {
		writeError(w, apperr.Validation("%v", err))
		return
	}

	res, err := h.Service.Create(r.Context(), entities.CreateReservationInput{
		UserID:          actor.UserID,
		UserEmail:       req.UserEmail,
		UserPhone:       req.UserPhone,
		VehicleID:       req.VehicleID,
		LotID:           req.LotID,
		Kind:            kind,
		StartTime:       startTime,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	list, err := h.Service.ListMine(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	res, err := h.Service.Get(r.Context(), actor, mux.Vars(r)["code"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	res, err := h.Service.Cancel(r.Context(), actor, mux.Vars(r)["code"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ReservationHandler) Extend(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())

	var req ExtendReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, apperr.Validation("%v", err))
		return
	}

	res, err := h.Service.Extend(r.Context(), actor, mux.Vars(r)["code"], req.ExtraMinutes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ReservationHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	res, err := h.Service.CheckIn(r.Context(), actor, mux.Vars(r)["code"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ReservationHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	res, err := h.Service.CheckOut(r.Context(), actor, mux.Vars(r)["code"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
