package api

import (
	"encoding/json"
	"net/http"

	"aparca/internal/apperr"
	"aparca/internal/service"
)

type AdminAuthHandler struct {
	Service *service.AdminAuthService
}

func NewAdminAuthHandler(svc *service.AdminAuthService) *AdminAuthHandler {
	return &AdminAuthHandler{Service: svc}
}

func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req AdminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, apperr.Validation("%v", err))
		return
	}

	token, err := h.Service.Login(req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
