package api

import (
	"encoding/json"
	"net/http"

	"aparca/internal/apperr"
	"aparca/internal/auth"
	"aparca/internal/entities"
	"aparca/internal/money"
	"aparca/internal/service"

	"github.com/gorilla/mux"
)

type PaymentHandler struct {
	Service *service.PaymentService
}

func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{Service: svc}
}

func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())

	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, apperr.Validation("%v", err))
		return
	}

	resp, err := h.Service.Create(r.Context(), entities.CreatePaymentInput{
		UserID:        actor.UserID,
		ReservationID: req.ReservationID,
		Method:        req.Method,
		Token:         req.Token,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	resp, err := h.Service.Get(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PaymentHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	resp, err := h.Service.ListPending(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Process retries a pending or failed payment through its gateway.
func (h *PaymentHandler) Process(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())

	var req struct {
		Token string `json:"token"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	resp, err := h.Service.Process(r.Context(), actor, mux.Vars(r)["id"], req.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PaymentHandler) ConfirmCash(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())
	resp, err := h.Service.ConfirmCash(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())

	var req RefundRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	var amount *money.Amount
	if req.Amount != "" {
		parsed, err := money.Parse(req.Amount)
		if err != nil {
			writeError(w, apperr.Validation("invalid refund amount %q", req.Amount))
			return
		}
		amount = &parsed
	}

	resp, err := h.Service.Refund(r.Context(), actor, entities.RefundInput{
		UserID:    actor.UserID,
		PaymentID: mux.Vars(r)["id"],
		Amount:    amount,
		Reason:    req.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
