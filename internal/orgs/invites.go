package orgs

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/alora-hq/alora/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrInviteNotFound  = errors.New("invite not found")
	ErrInviteExpired   = errors.New("invite expired")
	ErrNotYourInvite   = errors.New("this invite is not for you")
	ErrInviteExhausted = errors.New("invite has reached max uses")
	ErrTargetNotFound  = errors.New("no user found with the given username")
	ErrCodeGeneration  = errors.New("failed to generate unique invite code")
)

const (
	inviteCodeLength   = 6
	inviteCodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	inviteCodeRetries  = 5
)

type CreateInviteInput struct {
	TargetUsername string
	MaxUses        int
	ExpiresAt      *time.Time
}

// CreateInvite makes a new invite code for the organization. Admin-gated.
// Directed invites resolve the target username up front and notify the
// target by email; a failed notification never rolls back the invite.
func (s *Service) CreateInvite(ctx context.Context, orgID, callerID uint, input CreateInviteInput) (*models.OrganizationInvite, error) {
	if _, err := s.RequireAdmin(ctx, orgID, callerID); err != nil {
		return nil, err
	}

	var org models.Organization
	if err := s.db.WithContext(ctx).First(&org, orgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrgNotFound
		}
		return nil, err
	}

	var target *models.User
	if input.TargetUsername != "" {
		var user models.User
		if err := s.db.WithContext(ctx).Where("username = ?", input.TargetUsername).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTargetNotFound
			}
			return nil, err
		}
		target = &user
	}

	maxUses := input.MaxUses
	if maxUses <= 0 {
		maxUses = 1
	}

	invite := models.OrganizationInvite{
		OrgID:     orgID,
		MaxUses:   maxUses,
		ExpiresAt: input.ExpiresAt,
	}
	if target != nil {
		invite.TargetUserID = &target.ID
	}

	// The unique index on code is the real collision guard; the retry bound
	// keeps the call from looping indefinitely.
	var created bool
	for attempt := 0; attempt < inviteCodeRetries; attempt++ {
		code, err := generateInviteCode(orgID)
		if err != nil {
			return nil, err
		}
		invite.Code = code
		err = s.db.WithContext(ctx).Create(&invite).Error
		if err == nil {
			created = true
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
	}
	if !created {
		return nil, ErrCodeGeneration
	}

	if target != nil {
		s.mail.SendOrgInvite(target.Email, target.Username, org.Name, invite.Code)
	}

	return &invite, nil
}

// ListOrgInvites returns all invites for the organization. Admin-gated.
func (s *Service) ListOrgInvites(ctx context.Context, orgID, callerID uint) ([]models.OrganizationInvite, error) {
	if _, err := s.RequireAdmin(ctx, orgID, callerID); err != nil {
		return nil, err
	}
	var invites []models.OrganizationInvite
	if err := s.db.WithContext(ctx).Where("org_id = ?", orgID).Find(&invites).Error; err != nil {
		return nil, err
	}
	return invites, nil
}

// ListUserInvites returns the directed invites addressed to the caller.
func (s *Service) ListUserInvites(ctx context.Context, userID uint) ([]models.OrganizationInvite, error) {
	var invites []models.OrganizationInvite
	if err := s.db.WithContext(ctx).Where("target_user_id = ?", userID).Find(&invites).Error; err != nil {
		return nil, err
	}
	return invites, nil
}

// RevokeInvite deletes an invite. Admin-gated.
func (s *Service) RevokeInvite(ctx context.Context, orgID, callerID, inviteID uint) error {
	if _, err := s.RequireAdmin(ctx, orgID, callerID); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Where("id = ? AND org_id = ?", inviteID, orgID).
		Delete(&models.OrganizationInvite{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInviteNotFound
	}
	return nil
}

// AcceptInvite redeems an invite code for the caller. All checks run before
// any mutation; the membership insert, the guarded uses increment and the
// exhaustion delete commit as one transaction, so two concurrent
// redemptions of a max_uses=1 invite cannot both succeed.
func (s *Service) AcceptInvite(ctx context.Context, code string, userID uint) (*models.Organization, error) {
	code = strings.TrimSpace(code)

	var invite models.OrganizationInvite
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&invite).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}

	// Expiry is checked lazily at redemption, never swept proactively.
	if invite.ExpiresAt != nil && time.Now().After(*invite.ExpiresAt) {
		return nil, ErrInviteExpired
	}
	if invite.TargetUserID != nil && *invite.TargetUserID != userID {
		return nil, ErrNotYourInvite
	}
	if invite.Uses >= invite.MaxUses {
		return nil, ErrInviteExhausted
	}

	var existing models.OrganizationMember
	if err := s.db.WithContext(ctx).Where("organization_id = ? AND user_id = ?", invite.OrgID, userID).First(&existing).Error; err == nil {
		return nil, ErrAlreadyMember
	}

	var org models.Organization
	if err := s.db.WithContext(ctx).First(&org, invite.OrgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrgNotFound
		}
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member := models.OrganizationMember{
			UserID:         userID,
			OrganizationID: invite.OrgID,
			Roles:          models.RoleSet{models.RoleMember},
		}
		if err := tx.Create(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyMember
			}
			return err
		}

		// Guarded read-modify-write: the WHERE clause makes the increment
		// lose cleanly if a concurrent redemption got there first.
		res := tx.Model(&models.OrganizationInvite{}).
			Where("id = ? AND uses < max_uses", invite.ID).
			Update("uses", gorm.Expr("uses + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInviteExhausted
		}

		// The delete is guarded the same way: the snapshot read before the
		// transaction may undercount concurrent redemptions.
		return tx.Where("id = ? AND uses >= max_uses", invite.ID).
			Delete(&models.OrganizationInvite{}).Error
	})
	if err != nil {
		return nil, err
	}

	return &org, nil
}

func generateInviteCode(orgID uint) (string, error) {
	suffix := make([]byte, inviteCodeLength)
	alphabet := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, alphabet)
		if err != nil {
			return "", err
		}
		suffix[i] = inviteCodeAlphabet[n.Int64()]
	}
	return fmt.Sprintf("%d-%s", orgID, suffix), nil
}
