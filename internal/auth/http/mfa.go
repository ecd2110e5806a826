package http

import (
	"net/http"

	"github.com/studyroom/studyroom/internal/auth/service"
	"github.com/studyroom/studyroom/pkg/httpx"
)

// MFAHandler handles the authenticated MFA management endpoints. All of
// them sit behind AuthnMiddleware, so a full session proof is required;
// an elevation token never reaches these handlers.
type MFAHandler struct {
	MFAService *service.MFAService
}

type mfaActivateRequest struct {
	Code string `json:"code"`
}

func (h *MFAHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)
	if accountID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing account identity")
		return
	}

	setup, err := h.MFAService.BeginSetup(ctx, accountID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// The secret and backup codes appear in this response and nowhere
	// else.
	httpx.WriteJSON(w, http.StatusOK, setup)
}

func (h *MFAHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)
	if accountID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing account identity")
		return
	}

	var req mfaActivateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	if err := h.MFAService.Activate(ctx, accountID, req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "enabled"})
}

func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)
	if accountID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing account identity")
		return
	}

	if err := h.MFAService.Disable(ctx, accountID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
}
