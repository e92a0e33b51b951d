package usecase

import "errors"

var (
	// ErrEmailExists indicates the normalized email is already registered.
	ErrEmailExists = errors.New("email already registered")
	// ErrUsernameExists indicates the normalized username is already taken.
	ErrUsernameExists = errors.New("username already taken")
	// ErrInvalidCredentials indicates the identifier/password pair does not match.
	// Unknown identifier and wrong password are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailNotVerified indicates the account exists but the email address
	// has not been confirmed yet.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrInvalidPassword indicates the supplied current password is wrong.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrPasswordPolicyViolation indicates the password does not satisfy complexity requirements.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
	// ErrProfileInvalid indicates a profile field is empty after trimming or
	// exceeds its length bound.
	ErrProfileInvalid = errors.New("invalid profile field")
	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrTokenNotFound indicates no token matches the provided value.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenAlreadyUsed indicates the token was consumed before.
	ErrTokenAlreadyUsed = errors.New("token already used")
	// ErrTokenExpired indicates the token exists but is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenTypeMismatch indicates the token exists but serves a different flow.
	ErrTokenTypeMismatch = errors.New("token type mismatch")
	// ErrSessionNotFound indicates the session does not exist or has expired.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnknownRole indicates the role name is not recognized.
	ErrUnknownRole = errors.New("unknown role")
	// ErrDispatchThrottled indicates too many emails were requested within the window.
	ErrDispatchThrottled = errors.New("email dispatch throttled")
)
