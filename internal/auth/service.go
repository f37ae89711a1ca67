package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/alora-hq/alora/internal/database/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmailDispatcher sends transactional mail as a deferred, best-effort side
// effect. Implementations must never fail the triggering request.
type EmailDispatcher interface {
	SendVerificationCode(email, username, code string)
	SendPasswordReset(email, username, code string)
}

type Service struct {
	db     *gorm.DB
	jwt    *JWTService
	google googleVerifier
	github githubExchanger
	mail   EmailDispatcher
	logger *slog.Logger

	verificationTTL time.Duration
	resetTTL        time.Duration
}

type googleVerifier interface {
	Verify(ctx context.Context, token string) (*ProviderIdentity, error)
}

type githubExchanger interface {
	Exchange(ctx context.Context, code string) (*ProviderIdentity, error)
}

type ServiceConfig struct {
	DB              *gorm.DB
	JWT             *JWTService
	Google          googleVerifier
	GitHub          githubExchanger
	Mail            EmailDispatcher
	Logger          *slog.Logger
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

func NewService(cfg ServiceConfig) *Service {
	return &Service{
		db:              cfg.DB,
		jwt:             cfg.JWT,
		google:          cfg.Google,
		github:          cfg.GitHub,
		mail:            cfg.Mail,
		logger:          cfg.Logger,
		verificationTTL: cfg.VerificationTTL,
		resetTTL:        cfg.ResetTTL,
	}
}

type SignupInput struct {
	Email    string
	FullName string
	Username string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Signup provisionally creates the user (verified=false) together with its
// pending verification code in one transaction, then dispatches the code by
// email. The unique constraints on email and username are the real
// concurrency guard; the pre-checks just produce friendlier errors.
func (s *Service) Signup(ctx context.Context, input SignupInput) (*models.User, error) {
	input.Email = normalizeEmail(input.Email)

	var existing models.User
	if err := s.db.WithContext(ctx).Where("email = ?", input.Email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	}
	if err := s.db.WithContext(ctx).Where("username = ?", input.Username).First(&existing).Error; err == nil {
		return nil, ErrUsernameTaken
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        input.Email,
		Username:     input.Username,
		FullName:     input.FullName,
		PasswordHash: &hash,
		AuthProvider: models.ProviderLocal,
		Verified:     false,
	}

	var code string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		code, err = s.pendingVerificationCode(tx, input.Email)
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.signupConflict(ctx, input.Email)
		}
		return nil, err
	}

	s.mail.SendVerificationCode(user.Email, user.Username, code)

	return &user, nil
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(input.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.HasPassword() || !CheckPassword(input.Password, *user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	// Password correctness is checked first, but an unverified account is
	// rejected regardless.
	if !user.Verified {
		return nil, ErrNotVerified
	}

	return s.issueToken(&user)
}

// VerifyEmail flips the account to verified on an exact (email, code) match
// and consumes the code row.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)

	var pending models.VerificationCode
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&pending).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCode
		}
		return err
	}
	if pending.Code != code {
		return ErrInvalidCode
	}
	if s.verificationTTL > 0 && time.Since(pending.CreatedAt) > s.verificationTTL {
		return ErrCodeExpired
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("email = ?", email).Update("verified", true).Error; err != nil {
			return err
		}
		return tx.Delete(&pending).Error
	})
}

// ResendVerification re-sends the pending code for an unverified account,
// regenerating it if it has aged out.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.Verified {
		return ErrAlreadyVerified
	}

	var code string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		code, err = s.pendingVerificationCode(tx, email)
		return err
	})
	if err != nil {
		return err
	}

	s.mail.SendVerificationCode(user.Email, user.Username, code)
	return nil
}

// pendingVerificationCode returns the active code for the email, creating
// one if none is pending or replacing one that has aged out. Codes are
// idempotent per email, not per signup attempt.
func (s *Service) pendingVerificationCode(tx *gorm.DB, email string) (string, error) {
	var pending models.VerificationCode
	err := tx.Where("email = ?", email).First(&pending).Error
	if err == nil {
		if s.verificationTTL == 0 || time.Since(pending.CreatedAt) <= s.verificationTTL {
			return pending.Code, nil
		}
		if err := tx.Delete(&pending).Error; err != nil {
			return "", err
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	code, err := numericCode(4)
	if err != nil {
		return "", err
	}
	row := models.VerificationCode{Email: email, Code: code}
	if err := tx.Create(&row).Error; err != nil {
		return "", err
	}
	return code, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !user.HasPassword() {
		return ErrNoPassword
	}
	if !CheckPassword(oldPassword, *user.PasswordHash) {
		return ErrWrongPassword
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&user).Update("password_hash", hash).Error
}

// RequestPasswordReset issues (or reuses) the pending one-time code for the
// email and dispatches it out-of-band. The response is identical whether or
// not the account exists, to avoid account enumeration.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Debug("password reset requested for unknown email", "email", email)
			return nil
		}
		return err
	}

	var pending models.PasswordReset
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&pending).Error
	switch {
	case err == nil:
		if s.resetTTL > 0 && time.Since(pending.CreatedAt) > s.resetTTL {
			pending.Code = uuid.NewString()
			pending.CreatedAt = time.Now()
			if err := s.db.WithContext(ctx).Save(&pending).Error; err != nil {
				return err
			}
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		pending = models.PasswordReset{Email: email, Code: uuid.NewString()}
		if err := s.db.WithContext(ctx).Create(&pending).Error; err != nil {
			return translateDuplicate(err)
		}
	default:
		return err
	}

	s.mail.SendPasswordReset(user.Email, user.Username, pending.Code)
	return nil
}

// ResetPassword redeems a pending reset code, consuming the row and
// replacing the stored digest in one transaction.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)

	var pending models.PasswordReset
	if err := s.db.WithContext(ctx).Where("email = ? AND code = ?", email, code).First(&pending).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCodeNotFound
		}
		return err
	}
	if s.resetTTL > 0 && time.Since(pending.CreatedAt) > s.resetTTL {
		return ErrCodeExpired
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("email = ?", email).Update("password_hash", hash).Error; err != nil {
			return err
		}
		return tx.Delete(&pending).Error
	})
}

type EmailStatus struct {
	Exists       bool `json:"exists"`
	IsSocialUser bool `json:"is_social_user"`
}

func (s *Service) CheckEmail(ctx context.Context, email string) (*EmailStatus, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &EmailStatus{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &EmailStatus{Exists: true, IsSocialUser: user.IsSocial()}, nil
}

// UpdateInfoInput carries the optional profile fields; nil means unchanged.
type UpdateInfoInput struct {
	FullName    *string
	Email       *string
	PhoneNumber *string
	Gender      *string
	Language    *string
	Timezone    *string
	DateOfBirth *time.Time
}

// UpdateInfo merges the patch into the user record field by field. An email
// change re-checks uniqueness.
func (s *Service) UpdateInfo(ctx context.Context, userID uint, input UpdateInfoInput) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email != user.Email {
			var other models.User
			if err := s.db.WithContext(ctx).Where("email = ?", email).First(&other).Error; err == nil {
				return nil, ErrEmailTaken
			}
			user.Email = email
		}
	}
	if input.FullName != nil {
		user.FullName = *input.FullName
	}
	if input.PhoneNumber != nil {
		user.PhoneNumber = input.PhoneNumber
	}
	if input.Gender != nil {
		user.Gender = input.Gender
	}
	if input.Language != nil {
		user.Language = input.Language
	}
	if input.Timezone != nil {
		user.Timezone = input.Timezone
	}
	if input.DateOfBirth != nil {
		user.DateOfBirth = input.DateOfBirth
	}

	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return nil, translateDuplicate(err)
	}
	return &user, nil
}

func (s *Service) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Service) issueToken(user *models.User) (*AuthResponse, error) {
	token, err := s.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// translateDuplicate maps a commit-time unique violation on email to the
// same conflict error a pre-check would have produced, so a race loser is
// indistinguishable from an ordinary validation failure.
func translateDuplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	return err
}

// signupConflict reports which unique field a commit-time duplicate hit.
// The driver's translated error does not say which constraint fired, so
// re-check the email; the only other unique field on signup is username.
func (s *Service) signupConflict(ctx context.Context, email string) error {
	var existing models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return ErrEmailTaken
	}
	return ErrUsernameTaken
}

func numericCode(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
