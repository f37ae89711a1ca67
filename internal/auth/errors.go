package auth

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("email not verified")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrCodeNotFound       = errors.New("reset code not found")
	ErrCodeExpired        = errors.New("code has expired")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrNoPassword         = errors.New("account has no local password")

	// Provider resolution errors
	ErrInvalidAssertion    = errors.New("provider assertion invalid")
	ErrMissingEmail        = errors.New("provider did not disclose an email")
	ErrProviderConflict    = errors.New("account exists with a different provider")
	ErrProviderUnavailable = errors.New("provider exchange failed")
	ErrOrphanedLink        = errors.New("linked account references a missing user")
	ErrLinkNotFound        = errors.New("linked account not found")
)
