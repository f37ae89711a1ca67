package models

import "time"

// Auth providers
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

type User struct {
	Base
	Email        string  `gorm:"uniqueIndex;not null" json:"email"`
	Username     string  `gorm:"uniqueIndex;not null" json:"username"`
	FullName     string  `json:"full_name"`
	PasswordHash *string `json:"-"`
	PictureURL   string  `json:"picture_url"`
	AuthProvider string  `gorm:"default:'local'" json:"auth_provider"` // local, google, github
	Verified     bool    `gorm:"default:false" json:"verified"`
	IsAdmin      bool    `gorm:"default:false" json:"is_admin"`

	// Optional profile fields
	PhoneNumber *string    `json:"phone_number"`
	Gender      *string    `json:"gender"`
	Language    *string    `json:"language"`
	Timezone    *string    `json:"timezone"`
	DateOfBirth *time.Time `json:"date_of_birth"`

	// Relationships
	LinkedAccounts []LinkedAccount `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// HasPassword reports whether the user can log in with a local password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// IsSocial reports whether the account was created via an OAuth provider.
func (u *User) IsSocial() bool {
	return u.AuthProvider != ProviderLocal
}

// LinkedAccount is a secondary login identity (provider + external email)
// attached to one canonical user. A (provider, email) pair maps to at most
// one user.
type LinkedAccount struct {
	Base
	UserID     uint   `gorm:"index;not null" json:"user_id"`
	Provider   string `gorm:"not null;uniqueIndex:idx_provider_email,priority:1" json:"provider"`
	Email      string `gorm:"not null;uniqueIndex:idx_provider_email,priority:2" json:"email"`
	PictureURL string `json:"picture_url"`
}

func (LinkedAccount) TableName() string {
	return "linked_accounts"
}

// VerificationCode holds the single pending email-verification code per
// address. Deleted once consumed.
type VerificationCode struct {
	Base
	Email string `gorm:"uniqueIndex;not null" json:"email"`
	Code  string `gorm:"not null" json:"-"`
}

func (VerificationCode) TableName() string {
	return "verification_codes"
}

// PasswordReset holds the single pending reset code per address. Deleted
// once consumed.
type PasswordReset struct {
	Base
	Email string `gorm:"uniqueIndex;not null" json:"email"`
	Code  string `gorm:"not null" json:"-"`
}

func (PasswordReset) TableName() string {
	return "password_resets"
}
