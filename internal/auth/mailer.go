package auth

import (
	"context"

	"github.com/rs/zerolog"
)

// LogMailer writes reset links to the log instead of sending email.
// Deployments with a real SMTP relay supply their own Mailer.
type LogMailer struct {
	log     *zerolog.Logger
	baseURL string
}

// NewLogMailer builds a mailer that logs reset URLs built from baseURL.
func NewLogMailer(logger *zerolog.Logger, baseURL string) *LogMailer {
	return &LogMailer{log: logger, baseURL: baseURL}
}

// SendPasswordReset logs the reset link for the given email.
func (m *LogMailer) SendPasswordReset(_ context.Context, email, token string) error {
	m.log.Info().
		Str("email", email).
		Str("reset_url", m.baseURL+"/reset-password?token="+token).
		Msg("password reset requested")
	return nil
}
