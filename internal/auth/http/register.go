package http

import (
	"net/http"

	"github.com/studyroom/studyroom/internal/auth/domain"
	"github.com/studyroom/studyroom/internal/auth/service"
	"github.com/studyroom/studyroom/pkg/httpx"
)

// RegisterHandler handles POST /v1/register.
type RegisterHandler struct {
	AuthService *service.AuthService
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type registerResponse struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

func (h *RegisterHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}
	if len(req.Password) < 8 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "password must be at least 8 characters")
		return
	}

	role := domain.RoleLearner
	if req.Role != "" {
		parsed, err := domain.ParseRole(req.Role)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "unknown role")
			return
		}
		role = parsed
	}

	account, err := h.AuthService.Register(r.Context(), req.Email, req.Password, role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, registerResponse{
		AccountID: account.ID,
		Email:     account.Email,
		Role:      string(account.Role),
	})
}
