package http

import (
	"net/http"
	"strconv"

	"github.com/studyroom/studyroom/internal/auth/service"
	"github.com/studyroom/studyroom/pkg/httpx"
)

// VerifyHandler handles POST /v1/verify-otp and POST /v1/resend-otp.
type VerifyHandler struct {
	AuthService *service.AuthService
	CodeService *service.CodeService
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resendOTPRequest struct {
	Email string `json:"email"`
}

func (h *VerifyHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and code are required")
		return
	}

	proof, err := h.AuthService.VerifyEmail(r.Context(), req.Email, req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, proof)
}

func (h *VerifyHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	var req resendOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	if err := h.AuthService.ResendVerification(r.Context(), req.Email); err != nil {
		if err == service.ErrTooSoon {
			w.Header().Set("Retry-After", strconv.Itoa(int(h.CodeService.Cooldown().Seconds())))
		}
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
