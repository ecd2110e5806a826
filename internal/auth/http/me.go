package http

import (
	"net/http"
	"time"

	"github.com/studyroom/studyroom/internal/auth/domain"
	"github.com/studyroom/studyroom/internal/auth/service"
	"github.com/studyroom/studyroom/pkg/httpx"
	"github.com/studyroom/studyroom/pkg/slogx"
)

// MeHandler handles GET /v1/me.
type MeHandler struct {
	AccountService *service.AccountService
}

type meResponse struct {
	AccountID       string    `json:"account_id"`
	Email           string    `json:"email"`
	Role            string    `json:"role"`
	EmailVerified   bool      `json:"email_verified"`
	ProfileComplete bool      `json:"profile_complete"`
	MFAEnabled      bool      `json:"mfa_enabled"`
	CreatedAt       time.Time `json:"created_at"`
}

func (h *MeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)
	if accountID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing account identity")
		return
	}

	account, err := h.AccountService.Get(ctx, accountID)
	if err != nil {
		slogx.FromContext(ctx).Warn("failed to load account", "account_id", accountID, "error", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable, retry later")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, meResponse{
		AccountID:       account.ID,
		Email:           account.Email,
		Role:            string(account.Role),
		EmailVerified:   account.EmailVerified,
		ProfileComplete: account.ProfileComplete,
		MFAEnabled:      account.MFAState == domain.MFAEnabled,
		CreatedAt:       account.CreatedAt,
	})
}

// HandleCompleteProfile handles POST /v1/me/complete-profile.
func (h *MeHandler) HandleCompleteProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)
	if accountID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing account identity")
		return
	}

	if err := h.AccountService.CompleteProfile(ctx, accountID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "profile_complete"})
}

// HandleDeactivate handles POST /v1/me/deactivate. Deactivation bumps the
// account's valid-since, so every outstanding session proof dies with it.
func (h *MeHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)
	if accountID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing account identity")
		return
	}

	if err := h.AccountService.Deactivate(ctx, accountID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}
