package http

import (
	"net/http"

	"github.com/studyroom/studyroom/internal/auth/service"
	"github.com/studyroom/studyroom/pkg/httpx"
)

// LoginHandler handles POST /v1/login and POST /v1/mfa/verify-login.
type LoginHandler struct {
	AuthService    *service.AuthService
	SessionService *service.SessionService
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyLoginRequest struct {
	ElevationToken string `json:"elevation_token"`
	Code           string `json:"code,omitempty"`
	BackupCode     string `json:"backup_code,omitempty"`
}

func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	result, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if result.MFA != nil {
		httpx.WriteJSON(w, http.StatusOK, result.MFA)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result.Proof)
}

func (h *LoginHandler) HandleVerifyLogin(w http.ResponseWriter, r *http.Request) {
	var req verifyLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ElevationToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "elevation_token is required")
		return
	}
	if (req.Code == "") == (req.BackupCode == "") {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "exactly one of code or backup_code is required")
		return
	}

	code, backup := req.Code, false
	if req.BackupCode != "" {
		code, backup = req.BackupCode, true
	}

	proof, err := h.SessionService.RedeemElevation(r.Context(), req.ElevationToken, code, backup)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, proof)
}
