package auth

import (
	"errors"
	"fmt"
	"time"
)

// Domain failure taxonomy. Handlers map these to HTTP statuses; nothing
// here is retried automatically.
var (
	ErrDuplicateUser      = errors.New("user already exists with this mobile number or email")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrInvalidRequest     = errors.New("invalid verification request")
	ErrInvalidReset       = errors.New("invalid reset request")
	ErrTooManyAttempts    = errors.New("too many attempts")
	ErrOTPExpired         = errors.New("otp has expired")
	ErrInvalidOTP         = errors.New("invalid otp")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
)

// ValidationError reports a malformed request body. The message is safe
// to show to clients.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// LockedError reports an active lockout. Tripped is true when this very
// attempt exhausted the allowance, which changes the client-facing message.
type LockedError struct {
	Until   time.Time
	Tripped bool
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.Format(time.RFC3339))
}

func (e *LockedError) Unwrap() error { return ErrAccountLocked }

// CredentialsError reports a failed password check along with how many
// attempts remain before lockout.
type CredentialsError struct {
	AttemptsRemaining int
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials, %d attempts remaining", e.AttemptsRemaining)
}

func (e *CredentialsError) Unwrap() error { return ErrInvalidCredentials }
