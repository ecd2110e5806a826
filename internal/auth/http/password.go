package http

import (
	"net/http"
	"strconv"

	"github.com/studyroom/studyroom/internal/auth/service"
	"github.com/studyroom/studyroom/pkg/httpx"
)

// PasswordHandler handles POST /v1/forgot-password and
// POST /v1/reset-password.
type PasswordHandler struct {
	AuthService *service.AuthService
	CodeService *service.CodeService
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

func (h *PasswordHandler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	if err := h.AuthService.ForgotPassword(r.Context(), req.Email); err != nil {
		if err == service.ErrTooSoon {
			w.Header().Set("Retry-After", strconv.Itoa(int(h.CodeService.Cooldown().Seconds())))
		}
		writeServiceError(w, r, err)
		return
	}

	// Accepted whether or not the address exists.
	w.WriteHeader(http.StatusAccepted)
}

func (h *PasswordHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Code == "" || req.NewPassword == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email, code and new_password are required")
		return
	}
	if len(req.NewPassword) < 8 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "password must be at least 8 characters")
		return
	}

	if err := h.AuthService.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "password_reset"})
}
