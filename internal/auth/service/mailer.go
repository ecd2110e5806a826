package service

import (
	"context"
	"log/slog"
)

// Mailer delivers verification and reset codes to an account's email
// address. Implementations must not block on slow upstreams beyond the
// supplied context.
type Mailer interface {
	SendVerificationCode(ctx context.Context, email, code string) error
	SendPasswordResetCode(ctx context.Context, email, code string) error
}

// LogMailer writes outbound mail to the structured log instead of
// delivering it. Suitable for development and tests only.
type LogMailer struct {
	Log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{Log: log}
}

func (m *LogMailer) SendVerificationCode(ctx context.Context, email, code string) error {
	m.Log.InfoContext(ctx, "mail: verification code", "to", email, "code", code)
	return nil
}

func (m *LogMailer) SendPasswordResetCode(ctx context.Context, email, code string) error {
	m.Log.InfoContext(ctx, "mail: password reset code", "to", email, "code", code)
	return nil
}
