package dto

import "time"

type CreateOrgRequest struct {
	Name string `json:"name"`
}

func (r CreateOrgRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Name == "" {
		errors["name"] = "Name is required"
	} else if len(r.Name) > 100 {
		errors["name"] = "Name must be at most 100 characters"
	}
	return errors
}

type UpdateRolesRequest struct {
	Roles []string `json:"roles"`
}

type CreateInviteRequest struct {
	TargetUsername string     `json:"target_username,omitempty"`
	MaxUses        int        `json:"max_uses,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

type AcceptInviteRequest struct {
	Code string `json:"code"`
}

type AdminUpdateOrgRequest struct {
	Name string `json:"name"`
}

type AdminAddMemberRequest struct {
	UserID uint     `json:"user_id"`
	Roles  []string `json:"roles,omitempty"`
}
