package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Mailer delivers transactional email through Resend. In development mode
// (or without an API key) it logs the message instead of sending.
type Mailer struct {
	client  *resend.Client
	from    string
	appName string
	isDev   bool
	logger  *slog.Logger
}

func New(apiKey, from, appName string, isDev bool, logger *slog.Logger) *Mailer {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}
	return &Mailer{
		client:  client,
		from:    from,
		appName: appName,
		isDev:   isDev,
		logger:  logger,
	}
}

func (m *Mailer) SendVerificationCode(ctx context.Context, email, username, code string) error {
	subject := fmt.Sprintf("Your %s verification code", m.appName)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour %s verification code is %s.\n\nIf you did not sign up, you can ignore this email.\n",
		username, m.appName, code,
	)
	return m.send(ctx, "verification", email, subject, body)
}

func (m *Mailer) SendOrgInvite(ctx context.Context, email, username, orgName, code string) error {
	subject := fmt.Sprintf("You have been invited to %s", orgName)
	body := fmt.Sprintf(
		"Hi %s,\n\nYou have been invited to join %s on %s.\n\nUse invite code %s to accept.\n",
		username, orgName, m.appName, code,
	)
	return m.send(ctx, "org_invite", email, subject, body)
}

func (m *Mailer) SendPasswordReset(ctx context.Context, email, username, code string) error {
	subject := fmt.Sprintf("Reset your %s password", m.appName)
	body := fmt.Sprintf(
		"Hi %s,\n\nUse this code to reset your %s password: %s\n\nIf you did not request a reset, you can ignore this email.\n",
		username, m.appName, code,
	)
	return m.send(ctx, "password_reset", email, subject, body)
}

func (m *Mailer) send(ctx context.Context, kind, to, subject, body string) error {
	if m.isDev || m.client == nil {
		m.logger.Info("email sent (dev mode)", "type", kind, "to", to, "subject", subject)
		return nil
	}

	_, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	})
	if err == nil {
		m.logger.Info("email sent", "type", kind, "to", to)
	}
	return err
}
