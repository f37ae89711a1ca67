// Package admin implements the global-admin management surface: user and
// organization moderation plus aggregate platform stats. All operations are
// gated by the caller's is_admin flag at the middleware layer.
package admin

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"github.com/alora-hq/alora/internal/database/models"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrOrgNotFound    = errors.New("organization not found")
	ErrSelfDemotion   = errors.New("admins cannot demote themselves")
	ErrOrgNameTaken   = errors.New("organization with this name already exists")
	ErrAlreadyMember  = errors.New("user is already a member")
	ErrMemberNotFound = errors.New("member not found")
	ErrInvalidRoles   = errors.New("roles must be a non-empty set of known roles")
)

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := s.db.WithContext(ctx).
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *Service) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("LinkedAccounts").First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UserPatch carries the moderation flags an admin can toggle; nil means
// unchanged. ClearPassword strips the local password, leaving only the
// account's linked providers as login paths.
type UserPatch struct {
	Verified      *bool
	IsAdmin       *bool
	ClearPassword bool
}

func (s *Service) UpdateUser(ctx context.Context, callerID, targetID uint, patch UserPatch) (*models.User, error) {
	if patch.IsAdmin != nil && !*patch.IsAdmin && callerID == targetID {
		return nil, ErrSelfDemotion
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	updates := map[string]any{}
	if patch.Verified != nil {
		updates["verified"] = *patch.Verified
	}
	if patch.IsAdmin != nil {
		updates["is_admin"] = *patch.IsAdmin
	}
	if patch.ClearPassword {
		// Leaves linked providers as the only way back in.
		updates["password_hash"] = nil
	}
	if len(updates) == 0 {
		return &user, nil
	}

	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes the account and everything hanging off it: linked
// accounts, memberships, directed invites and pending codes.
func (s *Service) DeleteUser(ctx context.Context, id uint) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.LinkedAccount{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.OrganizationMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("target_user_id = ?", id).Delete(&models.OrganizationInvite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("email = ?", user.Email).Delete(&models.VerificationCode{}).Error; err != nil {
			return err
		}
		if err := tx.Where("email = ?", user.Email).Delete(&models.PasswordReset{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
}

func (s *Service) ListOrgs(ctx context.Context, limit, offset int) ([]models.Organization, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Organization{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orgList []models.Organization
	err := s.db.WithContext(ctx).
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&orgList).Error
	if err != nil {
		return nil, 0, err
	}
	return orgList, total, nil
}

// OrgDetail is an organization with its membership rows, unscoped by any
// caller membership.
type OrgDetail struct {
	models.Organization
	MemberList []models.OrganizationMember `json:"members"`
}

func (s *Service) GetOrg(ctx context.Context, id uint) (*OrgDetail, error) {
	var org models.Organization
	if err := s.db.WithContext(ctx).First(&org, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrgNotFound
		}
		return nil, err
	}

	var members []models.OrganizationMember
	if err := s.db.WithContext(ctx).Where("organization_id = ?", id).Find(&members).Error; err != nil {
		return nil, err
	}
	return &OrgDetail{Organization: org, MemberList: members}, nil
}

// UpdateOrg renames the organization. The unique index on name backstops
// concurrent renames.
func (s *Service) UpdateOrg(ctx context.Context, id uint, name string) (*models.Organization, error) {
	var org models.Organization
	if err := s.db.WithContext(ctx).First(&org, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrgNotFound
		}
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&org).Update("name", name).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrOrgNameTaken
		}
		return nil, err
	}
	return &org, nil
}

// AddMember puts a user into an organization with the given roles,
// bypassing invites. Empty roles defaults to plain membership.
func (s *Service) AddMember(ctx context.Context, orgID, userID uint, roles models.RoleSet) (*models.OrganizationMember, error) {
	if len(roles) == 0 {
		roles = models.RoleSet{models.RoleMember}
	}
	for _, r := range roles {
		if r != models.RoleAdmin && r != models.RoleMember {
			return nil, ErrInvalidRoles
		}
	}

	var org models.Organization
	if err := s.db.WithContext(ctx).First(&org, orgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrgNotFound
		}
		return nil, err
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	member := models.OrganizationMember{
		UserID:         userID,
		OrganizationID: orgID,
		Roles:          roles,
	}
	if err := s.db.WithContext(ctx).Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}
	return &member, nil
}

// RemoveMember drops a membership without the org-admin gating the member
// endpoints apply.
func (s *Service) RemoveMember(ctx context.Context, orgID, userID uint) error {
	res := s.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Delete(&models.OrganizationMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// DeleteOrg removes the organization with its memberships and invites.
func (s *Service) DeleteOrg(ctx context.Context, id uint) error {
	var org models.Organization
	if err := s.db.WithContext(ctx).First(&org, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrgNotFound
		}
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("organization_id = ?", id).Delete(&models.OrganizationMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("org_id = ?", id).Delete(&models.OrganizationInvite{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Organization{}, id).Error
	})
}

// OrgStat is an organization ranked by member count.
type OrgStat struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	MemberCount int64  `json:"member_count"`
}

// TopOrgs returns the n largest organizations by membership.
func (s *Service) TopOrgs(ctx context.Context, n int) ([]OrgStat, error) {
	if n <= 0 || n > 50 {
		n = 10
	}

	var stats []OrgStat
	err := s.db.WithContext(ctx).
		Model(&models.OrganizationMember{}).
		Select("organizations.id, organizations.name, COUNT(organization_members.id) AS member_count").
		Joins("JOIN organizations ON organizations.id = organization_members.organization_id").
		Group("organizations.id, organizations.name").
		Order("member_count DESC").
		Limit(n).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Overview is the headline platform counters.
type Overview struct {
	TotalUsers    int64 `json:"total_users"`
	VerifiedUsers int64 `json:"verified_users"`
	TotalOrgs     int64 `json:"total_orgs"`
	OpenInvites   int64 `json:"open_invites"`
}

func (s *Service) Stats(ctx context.Context) (*Overview, error) {
	var out Overview
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.User{}).Count(&out.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.User{}).Where("verified = ?", true).Count(&out.VerifiedUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Organization{}).Count(&out.TotalOrgs).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.OrganizationInvite{}).Count(&out.OpenInvites).Error; err != nil {
		return nil, err
	}
	return &out, nil
}
