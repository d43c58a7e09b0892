package api

import (
	"net/http"
	"strconv"

	"aparca/internal/apperr"
	"aparca/internal/service"

	"github.com/gorilla/mux"
)

// AdminHandler serves the back office: lot moderation, the full reservation
// ledger, and revenue stats.
type AdminHandler struct {
	Lots         *service.LotService
	Reservations *service.ReservationService
	Payments     *service.PaymentService
}

func NewAdminHandler(lots *service.LotService, reservations *service.ReservationService, payments *service.PaymentService) *AdminHandler {
	return &AdminHandler{Lots: lots, Reservations: reservations, Payments: payments}
}

func (h *AdminHandler) ApproveLot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apperr.Validation("invalid lot id"))
		return
	}
	lot, err := h.Lots.Approve(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lot)
}

func (h *AdminHandler) DeleteLot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apperr.Validation("invalid lot id"))
		return
	}
	if err := h.Lots.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "lot deleted"})
}

func (h *AdminHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	list, err := h.Reservations.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) PaymentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Payments.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
