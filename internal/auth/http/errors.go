package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/studyroom/studyroom/internal/auth/service"
	"github.com/studyroom/studyroom/pkg/httpx"
	"github.com/studyroom/studyroom/pkg/slogx"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a bounded JSON body into dst. A malformed or
// oversized body is the caller's fault, reported as invalid_request.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return false
	}
	return true
}

// writeServiceError translates service sentinels into HTTP responses.
// Anything outside the taxonomy is an internal fault: logged and
// reported as a retryable 503 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrDuplicateEmail):
		httpx.WriteError(w, http.StatusConflict, "duplicate_email", "email address already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, service.ErrEmailNotVerified):
		httpx.WriteError(w, http.StatusForbidden, "email_not_verified", "verify your email address first")
	case errors.Is(err, service.ErrAccountDeactivated):
		httpx.WriteError(w, http.StatusForbidden, "account_deactivated", "account has been deactivated")
	case errors.Is(err, service.ErrLocked):
		httpx.WriteError(w, http.StatusLocked, "account_locked", "too many failed attempts, try again later")
	case errors.Is(err, service.ErrTooSoon):
		httpx.WriteError(w, http.StatusTooManyRequests, "too_soon", "a code was sent recently, wait before requesting another")
	case errors.Is(err, service.ErrAttemptsExceeded):
		httpx.WriteError(w, http.StatusTooManyRequests, "attempts_exceeded", "attempt limit reached, request a new code")
	case errors.Is(err, service.ErrExpired):
		httpx.WriteError(w, http.StatusBadRequest, "expired", "code or token has expired")
	case errors.Is(err, service.ErrInvalidCode):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_code", "invalid code")
	case errors.Is(err, service.ErrAlreadyUsed):
		httpx.WriteError(w, http.StatusBadRequest, "already_used", "token has already been used")
	case errors.Is(err, service.ErrExhausted):
		httpx.WriteError(w, http.StatusBadRequest, "backup_codes_exhausted", "no backup codes remaining")
	case errors.Is(err, service.ErrMFAAlreadyEnabled):
		httpx.WriteError(w, http.StatusBadRequest, "mfa_already_enabled", "mfa is already enabled")
	case errors.Is(err, service.ErrMFANotPending):
		httpx.WriteError(w, http.StatusBadRequest, "mfa_not_pending", "no mfa setup in progress")
	case errors.Is(err, service.ErrMFANotEnabled):
		httpx.WriteError(w, http.StatusBadRequest, "mfa_not_enabled", "mfa is not enabled")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "error", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable, retry later")
	}
}
