package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/alora-hq/alora/internal/mailer"
	"github.com/hibiken/asynq"
)

// Dispatcher enqueues transactional email onto the worker queue. Enqueue
// failures are logged and swallowed: a failed email must never fail the
// triggering request. Without a queue client (no Redis) it falls back to a
// best-effort inline send on a background goroutine.
type Dispatcher struct {
	client *asynq.Client
	mailer *mailer.Mailer
	logger *slog.Logger
}

func NewDispatcher(client *asynq.Client, m *mailer.Mailer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{client: client, mailer: m, logger: logger}
}

func (d *Dispatcher) SendVerificationCode(email, username, code string) {
	task, err := NewVerificationEmailTask(VerificationEmailPayload{
		Email:    email,
		Username: username,
		Code:     code,
	})
	if err != nil {
		d.logger.Error("failed to build verification email task", "error", err)
		return
	}
	d.dispatch(task, func(ctx context.Context) error {
		return d.mailer.SendVerificationCode(ctx, email, username, code)
	})
}

func (d *Dispatcher) SendOrgInvite(email, username, orgName, code string) {
	task, err := NewOrgInviteEmailTask(OrgInviteEmailPayload{
		Email:    email,
		Username: username,
		OrgName:  orgName,
		Code:     code,
	})
	if err != nil {
		d.logger.Error("failed to build invite email task", "error", err)
		return
	}
	d.dispatch(task, func(ctx context.Context) error {
		return d.mailer.SendOrgInvite(ctx, email, username, orgName, code)
	})
}

func (d *Dispatcher) SendPasswordReset(email, username, code string) {
	task, err := NewPasswordResetEmailTask(PasswordResetEmailPayload{
		Email:    email,
		Username: username,
		Code:     code,
	})
	if err != nil {
		d.logger.Error("failed to build password reset email task", "error", err)
		return
	}
	d.dispatch(task, func(ctx context.Context) error {
		return d.mailer.SendPasswordReset(ctx, email, username, code)
	})
}

func (d *Dispatcher) dispatch(task *asynq.Task, inline func(context.Context) error) {
	if d.client != nil {
		if _, err := d.client.Enqueue(task, asynq.MaxRetry(3), asynq.Queue("default")); err != nil {
			d.logger.Error("failed to enqueue email task", "type", task.Type(), "error", err)
		}
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := inline(ctx); err != nil {
			d.logger.Error("failed to send email inline", "type", task.Type(), "error", err)
		}
	}()
}
