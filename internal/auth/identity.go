package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alora-hq/alora/internal/database/models"
	"gorm.io/gorm"
)

// LoginWithGoogle verifies a signed Google ID token and resolves it to a
// canonical user, returning a 24h bearer token.
func (s *Service) LoginWithGoogle(ctx context.Context, idToken string) (*AuthResponse, error) {
	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	user, _, err := s.resolveIdentity(ctx, models.ProviderGoogle, identity)
	if err != nil {
		return nil, err
	}
	return s.issueToken(user)
}

// LoginWithGitHub exchanges an OAuth authorization code and resolves the
// resulting profile to a canonical user.
func (s *Service) LoginWithGitHub(ctx context.Context, code string) (*AuthResponse, error) {
	identity, err := s.github.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	user, _, err := s.resolveIdentity(ctx, models.ProviderGitHub, identity)
	if err != nil {
		return nil, err
	}
	return s.issueToken(user)
}

// resolveIdentity maps a verified provider identity to a canonical user,
// creating or linking as needed. It never creates two users for the same
// external identity:
//
//  1. An existing linked account for (provider, email) resolves directly.
//  2. A bare-email match attaches a new linked account to that user —
//     except for legacy provider-tagged accounts of a different provider,
//     which are rejected rather than silently merged.
//  3. Otherwise a new user plus its linked account are created together;
//     an orphaned user with no login path would be unrecoverable.
func (s *Service) resolveIdentity(ctx context.Context, provider string, identity *ProviderIdentity) (*models.User, bool, error) {
	email := normalizeEmail(identity.Email)

	var link models.LinkedAccount
	err := s.db.WithContext(ctx).Where("provider = ? AND email = ?", provider, email).First(&link).Error
	if err == nil {
		var user models.User
		if err := s.db.WithContext(ctx).First(&user, link.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, false, ErrOrphanedLink
			}
			return nil, false, err
		}
		return &user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	// Backward-compatibility path: accounts created before linking existed.
	var user models.User
	err = s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		if !user.HasPassword() && user.IsSocial() && user.AuthProvider != provider {
			return nil, false, ErrProviderConflict
		}
		newLink := models.LinkedAccount{
			UserID:     user.ID,
			Provider:   provider,
			Email:      email,
			PictureURL: identity.PictureURL,
		}
		if err := s.db.WithContext(ctx).Create(&newLink).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, err
		}
		return &user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	// OAuth signup implies a provider-verified identity.
	user = models.User{
		Email:        email,
		Username:     s.availableUsername(ctx, usernameFor(identity)),
		FullName:     identity.Name,
		PictureURL:   identity.PictureURL,
		AuthProvider: provider,
		Verified:     true,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&models.LinkedAccount{
			UserID:     user.ID,
			Provider:   provider,
			Email:      email,
			PictureURL: identity.PictureURL,
		}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, ErrEmailTaken
		}
		return nil, false, err
	}

	return &user, true, nil
}

// LinkedAccounts lists the secondary login identities attached to a user.
func (s *Service) LinkedAccounts(ctx context.Context, userID uint) ([]models.LinkedAccount, error) {
	var links []models.LinkedAccount
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// UnlinkAccount removes a provider identity. A social-only account keeps its
// last link so it always has a login path.
func (s *Service) UnlinkAccount(ctx context.Context, userID uint, provider string) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	var links []models.LinkedAccount
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&links).Error; err != nil {
		return err
	}

	var target *models.LinkedAccount
	for i := range links {
		if links[i].Provider == provider {
			target = &links[i]
			break
		}
	}
	if target == nil {
		return ErrLinkNotFound
	}
	if !user.HasPassword() && len(links) == 1 {
		return ErrNoPassword
	}

	return s.db.WithContext(ctx).Delete(target).Error
}

func usernameFor(identity *ProviderIdentity) string {
	if identity.Username != "" {
		return identity.Username
	}
	return strings.SplitN(identity.Email, "@", 2)[0]
}

// availableUsername appends a numeric suffix until the username is free.
func (s *Service) availableUsername(ctx context.Context, base string) string {
	candidate := base
	for i := 1; ; i++ {
		var existing models.User
		err := s.db.WithContext(ctx).Where("username = ?", candidate).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return candidate
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
}
