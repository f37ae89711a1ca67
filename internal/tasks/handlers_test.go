package tasks

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alora-hq/alora/internal/mailer"
)

func newTestHandler() *Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(mailer.New("", "Test <test@example.com>", "Test", true, logger), logger)
}

func TestHandleVerificationEmail(t *testing.T) {
	h := newTestHandler()

	task, err := NewVerificationEmailTask(VerificationEmailPayload{
		Email:    "user@example.com",
		Username: "user",
		Code:     "1234",
	})
	require.NoError(t, err)
	assert.Equal(t, TypeVerificationEmail, task.Type())

	assert.NoError(t, h.HandleVerificationEmail(context.Background(), task))
}

func TestHandleOrgInviteEmail(t *testing.T) {
	h := newTestHandler()

	task, err := NewOrgInviteEmailTask(OrgInviteEmailPayload{
		Email:    "user@example.com",
		Username: "user",
		OrgName:  "Acme",
		Code:     "3-x7k2pq",
	})
	require.NoError(t, err)

	assert.NoError(t, h.HandleOrgInviteEmail(context.Background(), task))
}

func TestHandleMalformedPayload(t *testing.T) {
	h := newTestHandler()

	task := asynq.NewTask(TypePasswordResetEmail, []byte("not json"))
	assert.Error(t, h.HandlePasswordResetEmail(context.Background(), task))
}
