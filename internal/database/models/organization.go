package models

import "time"

// Membership roles
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type Organization struct {
	Base
	Name            string `gorm:"uniqueIndex;not null" json:"name"`
	CreatedByUserID uint   `gorm:"index" json:"created_by_user_id"`

	// Relationships
	Members []OrganizationMember `gorm:"foreignKey:OrganizationID" json:"-"`
	Invites []OrganizationInvite `gorm:"foreignKey:OrgID" json:"-"`
}

func (Organization) TableName() string {
	return "organizations"
}

type OrganizationMember struct {
	Base
	UserID         uint    `gorm:"not null;uniqueIndex:idx_member_pair,priority:1" json:"user_id"`
	OrganizationID uint    `gorm:"not null;uniqueIndex:idx_member_pair,priority:2" json:"organization_id"`
	Roles          RoleSet `gorm:"type:text;not null" json:"roles"`
}

func (OrganizationMember) TableName() string {
	return "organization_members"
}

// OrganizationInvite is a redeemable, usage-bounded, optionally-expiring,
// optionally-directed code granting organization membership. The row is
// deleted once uses reaches max_uses.
type OrganizationInvite struct {
	Base
	OrgID        uint       `gorm:"index;not null" json:"org_id"`
	Code         string     `gorm:"uniqueIndex;not null" json:"code"`
	TargetUserID *uint      `gorm:"index" json:"target_user_id"`
	Uses         int        `gorm:"default:0" json:"uses"`
	MaxUses      int        `gorm:"default:1" json:"max_uses"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

func (OrganizationInvite) TableName() string {
	return "organization_invites"
}
