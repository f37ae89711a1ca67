package dto

import (
	"time"

	"github.com/alora-hq/alora/internal/api/validation"
	"github.com/alora-hq/alora/internal/database/models"
)

type SignupRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r SignupRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(r.Email) {
		errors["email"] = "Email is not valid"
	}
	if r.Username == "" {
		errors["username"] = "Username is required"
	} else if !validation.IsValidUsername(r.Username) {
		errors["username"] = "Username must be 3-39 characters of letters, digits, dots, dashes or underscores"
	}
	if r.FullName == "" {
		errors["full_name"] = "Full name is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if ok, msg := validation.IsValidPassword(r.Password); !ok {
		errors["password"] = msg
	}

	return errors
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

type GoogleAuthRequest struct {
	Token string `json:"token"`
}

type GitHubAuthRequest struct {
	Code string `json:"code"`
}

type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ResendVerificationRequest struct {
	Email string `json:"email"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type UpdateInfoRequest struct {
	FullName    *string    `json:"full_name"`
	Email       *string    `json:"email"`
	PhoneNumber *string    `json:"phone_number"`
	Gender      *string    `json:"gender"`
	Language    *string    `json:"language"`
	Timezone    *string    `json:"timezone"`
	DateOfBirth *time.Time `json:"date_of_birth"`
}

type AdminUpdateUserRequest struct {
	Verified      *bool `json:"verified"`
	IsAdmin       *bool `json:"is_admin"`
	ClearPassword bool  `json:"clear_password"`
}

type AuthResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

type UserDTO struct {
	ID           uint    `json:"id"`
	Email        string  `json:"email"`
	Username     string  `json:"username"`
	FullName     string  `json:"full_name"`
	PictureURL   string  `json:"picture_url"`
	AuthProvider string  `json:"auth_provider"`
	Verified     bool    `json:"verified"`
	PhoneNumber  *string `json:"phone_number"`
	Gender       *string `json:"gender"`
	Language     *string `json:"language"`
	Timezone     *string `json:"timezone"`
	DateOfBirth  *string `json:"date_of_birth"`
}

type LinkedAccountDTO struct {
	Provider   string `json:"provider"`
	Email      string `json:"email"`
	PictureURL string `json:"picture_url"`
}

func NewLinkedAccountDTO(link *models.LinkedAccount) LinkedAccountDTO {
	return LinkedAccountDTO{
		Provider:   link.Provider,
		Email:      link.Email,
		PictureURL: link.PictureURL,
	}
}

// NewUserDTO maps the storage model to the response shape. Date of birth is
// rendered as YYYY-MM-DD for the frontend.
func NewUserDTO(user *models.User) UserDTO {
	dto := UserDTO{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		FullName:     user.FullName,
		PictureURL:   user.PictureURL,
		AuthProvider: user.AuthProvider,
		Verified:     user.Verified,
		PhoneNumber:  user.PhoneNumber,
		Gender:       user.Gender,
		Language:     user.Language,
		Timezone:     user.Timezone,
	}
	if user.DateOfBirth != nil {
		formatted := user.DateOfBirth.Format("2006-01-02")
		dto.DateOfBirth = &formatted
	}
	return dto
}
