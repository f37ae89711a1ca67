package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alora-hq/alora/internal/mailer"
	"github.com/hibiken/asynq"
)

type Handler struct {
	mailer *mailer.Mailer
	logger *slog.Logger
}

func NewHandler(m *mailer.Mailer, logger *slog.Logger) *Handler {
	return &Handler{mailer: m, logger: logger}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeVerificationEmail, h.HandleVerificationEmail)
	mux.HandleFunc(TypeOrgInviteEmail, h.HandleOrgInviteEmail)
	mux.HandleFunc(TypePasswordResetEmail, h.HandlePasswordResetEmail)
}

func (h *Handler) HandleVerificationEmail(ctx context.Context, t *asynq.Task) error {
	var payload VerificationEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshaling verification email payload: %w", err)
	}
	if err := h.mailer.SendVerificationCode(ctx, payload.Email, payload.Username, payload.Code); err != nil {
		h.logger.Error("failed to send verification email", "to", payload.Email, "error", err)
		return err
	}
	return nil
}

func (h *Handler) HandleOrgInviteEmail(ctx context.Context, t *asynq.Task) error {
	var payload OrgInviteEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshaling org invite email payload: %w", err)
	}
	if err := h.mailer.SendOrgInvite(ctx, payload.Email, payload.Username, payload.OrgName, payload.Code); err != nil {
		h.logger.Error("failed to send invite email", "to", payload.Email, "error", err)
		return err
	}
	return nil
}

func (h *Handler) HandlePasswordResetEmail(ctx context.Context, t *asynq.Task) error {
	var payload PasswordResetEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshaling password reset email payload: %w", err)
	}
	if err := h.mailer.SendPasswordReset(ctx, payload.Email, payload.Username, payload.Code); err != nil {
		h.logger.Error("failed to send password reset email", "to", payload.Email, "error", err)
		return err
	}
	return nil
}
