package orgs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alora-hq/alora/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrOrgNotFound       = errors.New("organization not found")
	ErrNameTaken         = errors.New("organization with this name already exists")
	ErrNotMember         = errors.New("not a member of this organization")
	ErrNotAdmin          = errors.New("not an admin of this organization")
	ErrAlreadyMember     = errors.New("already a member")
	ErrMemberNotFound    = errors.New("member not found")
	ErrAdminMustTransfer = errors.New("admins cannot leave without transferring authority")
	ErrInvalidRoles      = errors.New("roles must be a non-empty set of known roles")
)

// InviteNotifier dispatches the directed-invite email as a deferred,
// best-effort side effect.
type InviteNotifier interface {
	SendOrgInvite(email, username, orgName, code string)
}

type Service struct {
	db     *gorm.DB
	mail   InviteNotifier
	logger *slog.Logger
}

func NewService(db *gorm.DB, mail InviteNotifier, logger *slog.Logger) *Service {
	return &Service{db: db, mail: mail, logger: logger}
}

// Create makes the organization and the founding admin membership in one
// transaction; the unique index on name is the concurrency guard.
func (s *Service) Create(ctx context.Context, name string, creatorID uint) (*models.Organization, error) {
	var existing models.Organization
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&existing).Error; err == nil {
		return nil, ErrNameTaken
	}

	org := models.Organization{
		Name:            name,
		CreatedByUserID: creatorID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&org).Error; err != nil {
			return err
		}
		member := models.OrganizationMember{
			UserID:         creatorID,
			OrganizationID: org.ID,
			Roles:          models.RoleSet{models.RoleAdmin},
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrNameTaken
		}
		return nil, err
	}
	return &org, nil
}

// OrgWithRoles annotates an organization with the caller's own role set.
type OrgWithRoles struct {
	models.Organization
	UserRoles models.RoleSet `json:"user_roles"`
}

func (s *Service) ListMine(ctx context.Context, userID uint) ([]OrgWithRoles, error) {
	var memberships []models.OrganizationMember
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return []OrgWithRoles{}, nil
	}

	orgIDs := make([]uint, 0, len(memberships))
	rolesByOrg := make(map[uint]models.RoleSet, len(memberships))
	for _, m := range memberships {
		orgIDs = append(orgIDs, m.OrganizationID)
		rolesByOrg[m.OrganizationID] = m.Roles
	}

	var orgList []models.Organization
	if err := s.db.WithContext(ctx).Where("id IN ?", orgIDs).Find(&orgList).Error; err != nil {
		return nil, err
	}

	result := make([]OrgWithRoles, 0, len(orgList))
	for _, org := range orgList {
		result = append(result, OrgWithRoles{Organization: org, UserRoles: rolesByOrg[org.ID]})
	}
	return result, nil
}

// MemberInfo is a membership row joined with the member's public identity.
type MemberInfo struct {
	models.OrganizationMember
	Username string `json:"username"`
	Email    string `json:"email"`
}

// OrgDetail is an organization with its member list and the caller's roles.
type OrgDetail struct {
	models.Organization
	Members          []MemberInfo   `json:"members"`
	CurrentUserRoles models.RoleSet `json:"current_user_roles"`
}

func (s *Service) Get(ctx context.Context, orgID, callerID uint) (*OrgDetail, error) {
	membership, err := s.RequireMember(ctx, orgID, callerID)
	if err != nil {
		return nil, err
	}

	var org models.Organization
	if err := s.db.WithContext(ctx).First(&org, orgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrgNotFound
		}
		return nil, err
	}

	members, err := s.ListMembers(ctx, orgID, callerID)
	if err != nil {
		return nil, err
	}

	return &OrgDetail{
		Organization:     org,
		Members:          members,
		CurrentUserRoles: membership.Roles,
	}, nil
}

// List returns all organizations, or only those the caller has not yet
// joined when includeMine is false.
func (s *Service) List(ctx context.Context, callerID uint, includeMine bool) ([]models.Organization, error) {
	var orgList []models.Organization
	q := s.db.WithContext(ctx)
	if !includeMine {
		sub := s.db.Model(&models.OrganizationMember{}).
			Select("organization_id").
			Where("user_id = ?", callerID)
		q = q.Where("id NOT IN (?)", sub)
	}
	if err := q.Find(&orgList).Error; err != nil {
		return nil, err
	}
	return orgList, nil
}

func (s *Service) Join(ctx context.Context, orgID, userID uint) error {
	var org models.Organization
	if err := s.db.WithContext(ctx).First(&org, orgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrgNotFound
		}
		return err
	}

	var existing models.OrganizationMember
	if err := s.db.WithContext(ctx).Where("organization_id = ? AND user_id = ?", orgID, userID).First(&existing).Error; err == nil {
		return ErrAlreadyMember
	}

	member := models.OrganizationMember{
		UserID:         userID,
		OrganizationID: orgID,
		Roles:          models.RoleSet{models.RoleMember},
	}
	if err := s.db.WithContext(ctx).Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyMember
		}
		return err
	}
	return nil
}

func (s *Service) ListMembers(ctx context.Context, orgID, callerID uint) ([]MemberInfo, error) {
	if _, err := s.RequireMember(ctx, orgID, callerID); err != nil {
		return nil, err
	}

	var members []models.OrganizationMember
	if err := s.db.WithContext(ctx).Where("organization_id = ?", orgID).Find(&members).Error; err != nil {
		return nil, err
	}

	userIDs := make([]uint, 0, len(members))
	for _, m := range members {
		userIDs = append(userIDs, m.UserID)
	}
	var users []models.User
	if len(userIDs) > 0 {
		if err := s.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			return nil, err
		}
	}
	usersByID := make(map[uint]models.User, len(users))
	for _, u := range users {
		usersByID[u.ID] = u
	}

	result := make([]MemberInfo, 0, len(members))
	for _, m := range members {
		info := MemberInfo{OrganizationMember: m}
		if u, ok := usersByID[m.UserID]; ok {
			info.Username = u.Username
			info.Email = u.Email
		}
		result = append(result, info)
	}
	return result, nil
}

// UpdateMemberRoles replaces a member's role set. Admin-gated.
func (s *Service) UpdateMemberRoles(ctx context.Context, orgID, callerID, targetUserID uint, roles models.RoleSet) error {
	if _, err := s.RequireAdmin(ctx, orgID, callerID); err != nil {
		return err
	}
	if err := validateRoles(roles); err != nil {
		return err
	}

	var member models.OrganizationMember
	if err := s.db.WithContext(ctx).Where("organization_id = ? AND user_id = ?", orgID, targetUserID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return err
	}

	return s.db.WithContext(ctx).Model(&member).Update("roles", roles).Error
}

func (s *Service) RemoveMember(ctx context.Context, orgID, callerID, targetUserID uint) error {
	if _, err := s.RequireAdmin(ctx, orgID, callerID); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, targetUserID).
		Delete(&models.OrganizationMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// Leave removes the caller's own membership. There is no automatic admin
// succession: a caller whose role set still contains admin must hand the
// role off first.
func (s *Service) Leave(ctx context.Context, orgID, userID uint) error {
	membership, err := s.RequireMember(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if membership.Roles.Contains(models.RoleAdmin) {
		return ErrAdminMustTransfer
	}
	return s.db.WithContext(ctx).Delete(membership).Error
}

// RequireMember returns the caller's membership row or ErrNotMember.
func (s *Service) RequireMember(ctx context.Context, orgID, userID uint) (*models.OrganizationMember, error) {
	var membership models.OrganizationMember
	err := s.db.WithContext(ctx).Where("organization_id = ? AND user_id = ?", orgID, userID).First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}
	return &membership, nil
}

// RequireAdmin returns the caller's membership row if its role set
// intersects {admin}, else ErrNotAdmin.
func (s *Service) RequireAdmin(ctx context.Context, orgID, userID uint) (*models.OrganizationMember, error) {
	membership, err := s.RequireMember(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, ErrNotMember) {
			return nil, ErrNotAdmin
		}
		return nil, err
	}
	if !membership.Roles.Contains(models.RoleAdmin) {
		return nil, ErrNotAdmin
	}
	return membership, nil
}

func validateRoles(roles models.RoleSet) error {
	if len(roles) == 0 {
		return ErrInvalidRoles
	}
	for _, r := range roles {
		if r != models.RoleAdmin && r != models.RoleMember {
			return ErrInvalidRoles
		}
	}
	return nil
}
