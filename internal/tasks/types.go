package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeVerificationEmail  = "email:verification"
	TypeOrgInviteEmail     = "email:org_invite"
	TypePasswordResetEmail = "email:password_reset"
)

// VerificationEmailPayload carries the signup verification code.
type VerificationEmailPayload struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Code     string `json:"code"`
}

func NewVerificationEmailTask(payload VerificationEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeVerificationEmail, data), nil
}

// OrgInviteEmailPayload carries a directed invite notification.
type OrgInviteEmailPayload struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	OrgName  string `json:"org_name"`
	Code     string `json:"code"`
}

func NewOrgInviteEmailTask(payload OrgInviteEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOrgInviteEmail, data), nil
}

// PasswordResetEmailPayload carries the one-time reset code.
type PasswordResetEmailPayload struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Code     string `json:"code"`
}

func NewPasswordResetEmailTask(payload PasswordResetEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePasswordResetEmail, data), nil
}
