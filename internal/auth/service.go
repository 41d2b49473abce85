package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/medipass/medipass/internal/config"
	"github.com/medipass/medipass/internal/notification"
	"github.com/medipass/medipass/internal/otp"
	"github.com/medipass/medipass/internal/user"
)

// Service orchestrates registration, OTP verification, login and password
// reset. Every operation completes within its request; failed notification
// sends are logged by the dispatcher and never fail the caller.
type Service struct {
	users      user.Repository
	tokens     *TokenService
	dispatcher *notification.Dispatcher
	logger     *slog.Logger

	otpLength int
	otpTTL    time.Duration
	maxFails  int
	lockFor   time.Duration
}

// NewService wires the authentication service.
func NewService(cfg config.Config, users user.Repository, tokens *TokenService, dispatcher *notification.Dispatcher, logger *slog.Logger) *Service {
	return &Service{
		users:      users,
		tokens:     tokens,
		dispatcher: dispatcher,
		logger:     logger,
		otpLength:  cfg.OTPLength,
		otpTTL:     cfg.OTPTTL,
		maxFails:   cfg.MaxLoginFails,
		lockFor:    cfg.LockoutDuration,
	}
}

// RegisterInput carries the registration profile.
type RegisterInput struct {
	FullName         string
	MobileNumber     string
	Email            string
	Password         string
	PIN              string
	DateOfBirth      string
	Gender           string
	Address          user.Address
	BloodGroup       string
	EmergencyContact string
}

func (in RegisterInput) validate() error {
	switch {
	case in.FullName == "":
		return &ValidationError{Msg: "fullName is required"}
	case in.MobileNumber == "":
		return &ValidationError{Msg: "mobileNumber is required"}
	case in.Password == "":
		return &ValidationError{Msg: "password is required"}
	case len(in.PIN) < 4:
		return &ValidationError{Msg: "pin must be at least 4 digits"}
	case in.EmergencyContact == "":
		return &ValidationError{Msg: "emergencyContact is required"}
	}
	if _, err := time.Parse("2006-01-02", in.DateOfBirth); err != nil {
		return &ValidationError{Msg: "dateOfBirth must be YYYY-MM-DD"}
	}
	return nil
}

// Register creates an unverified record, attaches a fresh OTP challenge
// and dispatches it. It returns the public Medipass ID only; tokens are
// withheld until the mobile number is verified.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	if err := in.validate(); err != nil {
		return "", err
	}

	if _, err := s.users.FindByMobile(ctx, in.MobileNumber); err == nil {
		return "", ErrDuplicateUser
	}
	if in.Email != "" {
		if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
			return "", ErrDuplicateUser
		}
	}

	passwordHash, err := user.HashSecret(in.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	pinHash, err := user.HashSecret(in.PIN)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	dob, _ := time.Parse("2006-01-02", in.DateOfBirth)

	now := time.Now()
	u := user.User{
		ID:               uuid.NewString(),
		MedipassID:       user.NewMedipassID(),
		FullName:         in.FullName,
		MobileNumber:     in.MobileNumber,
		Email:            in.Email,
		PasswordHash:     passwordHash,
		PINHash:          pinHash,
		DateOfBirth:      dob,
		Gender:           in.Gender,
		Address:          in.Address,
		BloodGroup:       in.BloodGroup,
		EmergencyContact: in.EmergencyContact,
		Role:             user.RolePatient,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	code := s.attachChallenge(&u)

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			return "", ErrDuplicateUser
		}
		return "", err
	}

	s.dispatcher.OTP(ctx, u.MobileNumber, u.Email, code)
	return u.MedipassID, nil
}

// VerifyOTP consumes a pending challenge. On match the mobile number is
// marked verified, the challenge is cleared (single use), a token pair is
// issued and the refresh token persisted.
func (s *Service) VerifyOTP(ctx context.Context, medipassID, code string) (user.User, Pair, error) {
	u, err := s.users.FindByMedipassID(ctx, medipassID)
	if err != nil {
		return user.User{}, Pair{}, ErrInvalidRequest
	}

	if err := s.checkChallenge(ctx, &u, code); err != nil {
		return user.User{}, Pair{}, err
	}

	firstVerification := !u.MobileVerified
	now := time.Now()
	u.MobileVerified = true
	u.OTP = nil
	u.LastLogin = &now

	pair, err := s.tokens.Issue(u.ID)
	if err != nil {
		return user.User{}, Pair{}, err
	}
	u.RefreshToken = pair.RefreshToken

	if err := s.users.Update(ctx, u); err != nil {
		return user.User{}, Pair{}, err
	}

	if firstVerification {
		s.dispatcher.Welcome(ctx, u.MobileNumber, u.Email, u.FullName)
	}
	return u, pair, nil
}

// LoginResult reports a password-verified login pending its second factor.
type LoginResult struct {
	MedipassID string
	Pair       Pair
}

// Login checks the password, enforces the lockout policy and, on success,
// attaches a fresh OTP challenge for the second factor. The token pair is
// issued alongside the challenge, mirroring the portal's existing
// contract.
func (s *Service) Login(ctx context.Context, mobile, password string) (LoginResult, error) {
	u, err := s.users.FindByMobile(ctx, mobile)
	if err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	now := time.Now()
	if user.Locked(u, now) {
		return LoginResult{}, &LockedError{Until: *u.LockUntil}
	}

	if !user.CompareSecret(u.PasswordHash, password) {
		user.RecordFailedLogin(&u, now, s.maxFails, s.lockFor)
		if err := s.users.Update(ctx, u); err != nil {
			return LoginResult{}, err
		}
		if user.Locked(u, now) {
			return LoginResult{}, &LockedError{Until: *u.LockUntil, Tripped: true}
		}
		return LoginResult{}, &CredentialsError{AttemptsRemaining: s.maxFails - u.LoginAttempts}
	}

	user.ResetLoginState(&u)
	code := s.attachChallenge(&u)
	if err := s.users.Update(ctx, u); err != nil {
		return LoginResult{}, err
	}

	s.dispatcher.OTP(ctx, u.MobileNumber, u.Email, code)

	pair, err := s.tokens.Issue(u.ID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{MedipassID: u.MedipassID, Pair: pair}, nil
}

// ResetPasswordRequest attaches an OTP challenge for a password reset and
// dispatches it. Returns the Medipass ID the client must echo back.
func (s *Service) ResetPasswordRequest(ctx context.Context, mobile string) (string, error) {
	u, err := s.users.FindByMobile(ctx, mobile)
	if err != nil {
		return "", ErrUserNotFound
	}

	code := s.attachChallenge(&u)
	if err := s.users.Update(ctx, u); err != nil {
		return "", err
	}

	s.dispatcher.OTP(ctx, u.MobileNumber, u.Email, code)
	return u.MedipassID, nil
}

// ResetPasswordConfirm validates the reset challenge and stores the new
// password hash.
func (s *Service) ResetPasswordConfirm(ctx context.Context, medipassID, code, newPassword string) error {
	if newPassword == "" {
		return &ValidationError{Msg: "newPassword is required"}
	}
	u, err := s.users.FindByMedipassID(ctx, medipassID)
	if err != nil {
		return ErrInvalidReset
	}

	if err := s.checkChallenge(ctx, &u, code); err != nil {
		// A missing challenge reads differently in the reset flow.
		if errors.Is(err, ErrInvalidRequest) {
			return ErrInvalidReset
		}
		return err
	}

	hash, err := user.HashSecret(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	u.OTP = nil
	return s.users.Update(ctx, u)
}

// Refresh exchanges a valid refresh token for a new access token. The
// presented token must match the one stored on the record, so logout and
// rotation invalidate older refresh tokens.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", 0, err
	}

	u, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		return "", 0, ErrInvalidToken
	}
	if u.RefreshToken == "" || u.RefreshToken != refreshToken {
		return "", 0, ErrInvalidToken
	}

	access, err := s.tokens.IssueAccess(u.ID)
	if err != nil {
		return "", 0, err
	}
	return access, s.tokens.AccessTTL(), nil
}

// Logout clears the stored refresh token so it can no longer be redeemed.
func (s *Service) Logout(ctx context.Context, userID string) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}
	u.RefreshToken = ""
	return s.users.Update(ctx, u)
}

// attachChallenge replaces any pending challenge with a fresh code and
// returns the plaintext code for dispatch.
func (s *Service) attachChallenge(u *user.User) string {
	code := otp.Generate(s.otpLength)
	u.OTP = &user.Challenge{Code: code, ExpiresAt: otp.Expiry(s.otpTTL)}
	return code
}

// checkChallenge applies the shared OTP policy: attempts are checked
// before expiry and before the code itself, so a burned challenge rejects
// even a correct code.
func (s *Service) checkChallenge(ctx context.Context, u *user.User, code string) error {
	if u.OTP == nil {
		return ErrInvalidRequest
	}
	if u.OTP.Attempts >= user.MaxChallengeAttempts {
		return ErrTooManyAttempts
	}
	if otp.IsExpired(u.OTP.ExpiresAt) {
		return ErrOTPExpired
	}
	if u.OTP.Code != code {
		u.OTP.Attempts++
		if err := s.users.Update(ctx, *u); err != nil {
			s.logger.Error("persist otp attempt", "medipassId", u.MedipassID, "error", err)
		}
		return ErrInvalidOTP
	}
	return nil
}
