package auth

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/medipass/medipass/internal/config"
	"github.com/medipass/medipass/internal/logging"
	"github.com/medipass/medipass/internal/notification"
	"github.com/medipass/medipass/internal/user"
)

func testConfig() config.Config {
	return config.Config{
		AppEnv:             "test",
		AccessTokenSecret:  "test-access-secret",
		RefreshTokenSecret: "test-refresh-secret",
		AccessTokenTTL:     time.Hour,
		RefreshTokenTTL:    7 * 24 * time.Hour,
		OTPLength:          6,
		OTPTTL:             5 * time.Minute,
		MaxLoginFails:      5,
		LockoutDuration:    30 * time.Minute,
	}
}

func newTestService(t *testing.T) (*Service, user.Repository) {
	t.Helper()
	logger := logging.Discard()
	dispatcher := notification.NewDispatcher(
		notification.NewLogNotifier(logger, "sms"),
		notification.NewLogNotifier(logger, "email"),
		logger,
	)
	users := user.NewMemoryRepository()
	svc := NewService(testConfig(), users, NewTokenService(testConfig()), dispatcher, logger)
	return svc, users
}

func registerInput(mobile string) RegisterInput {
	return RegisterInput{
		FullName:         "Asha Rao",
		MobileNumber:     mobile,
		Email:            mobile + "@example.com",
		Password:         "s3cret-pass",
		PIN:              "4321",
		DateOfBirth:      "1991-04-23",
		Gender:           "female",
		Address:          user.Address{Street: "12 Lake Rd", City: "Pune", State: "MH", Pincode: "411001"},
		BloodGroup:       "O+",
		EmergencyContact: "9876500000",
	}
}

// pendingCode reads the challenge code straight off the stored record.
func pendingCode(t *testing.T, users user.Repository, medipassID string) string {
	t.Helper()
	u, err := users.FindByMedipassID(context.Background(), medipassID)
	if err != nil {
		t.Fatalf("FindByMedipassID(%q): %v", medipassID, err)
	}
	if u.OTP == nil {
		t.Fatalf("no pending challenge on %q", medipassID)
	}
	return u.OTP.Code
}

func TestRegisterCreatesUnverifiedRecordWithChallenge(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	medipassID, err := svc.Register(ctx, registerInput("9876543210"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !regexp.MustCompile(`^MED-\d{9}$`).MatchString(medipassID) {
		t.Fatalf("medipass id %q does not match MED-\\d{9}", medipassID)
	}

	u, err := users.FindByMobile(ctx, "9876543210")
	if err != nil {
		t.Fatalf("FindByMobile: %v", err)
	}
	if u.MobileVerified {
		t.Fatal("record verified before OTP submission")
	}
	if u.OTP == nil || len(u.OTP.Code) != 6 {
		t.Fatalf("expected a 6-digit challenge, got %+v", u.OTP)
	}
	if string(u.PasswordHash) == "s3cret-pass" {
		t.Fatal("password stored in plaintext")
	}
	if !user.CompareSecret(u.PasswordHash, "s3cret-pass") {
		t.Fatal("stored hash does not match the password")
	}
	if u.Role != user.RolePatient {
		t.Fatalf("role = %q, want %q", u.Role, user.RolePatient)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, registerInput("9876543210")); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	if _, err := svc.Register(ctx, registerInput("9876543210")); !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("duplicate mobile: got %v, want ErrDuplicateUser", err)
	}

	in := registerInput("9876500001")
	in.Email = "9876543210@example.com"
	if _, err := svc.Register(ctx, in); !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("duplicate email: got %v, want ErrDuplicateUser", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	in := registerInput("9876543210")
	in.PIN = "12"
	_, err := svc.Register(ctx, in)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("short pin: got %v, want *ValidationError", err)
	}

	in = registerInput("9876543210")
	in.DateOfBirth = "23-04-1991"
	if _, err := svc.Register(ctx, in); !errors.As(err, &verr) {
		t.Fatalf("bad date: got %v, want *ValidationError", err)
	}
}

func TestVerifyOTPSingleUse(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	medipassID, err := svc.Register(ctx, registerInput("9876543210"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	code := pendingCode(t, users, medipassID)

	u, pair, err := svc.VerifyOTP(ctx, medipassID, code)
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if !u.MobileVerified {
		t.Fatal("mobile not marked verified")
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}

	stored, err := users.FindByMedipassID(ctx, medipassID)
	if err != nil {
		t.Fatalf("FindByMedipassID: %v", err)
	}
	if stored.OTP != nil {
		t.Fatal("challenge not cleared after successful verification")
	}
	if stored.RefreshToken != pair.RefreshToken {
		t.Fatal("refresh token not persisted")
	}
	if stored.LastLogin == nil {
		t.Fatal("last login not recorded")
	}

	// The code was consumed; replaying it must fail.
	if _, _, err := svc.VerifyOTP(ctx, medipassID, code); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("replayed code: got %v, want ErrInvalidRequest", err)
	}
}

func TestVerifyOTPUnknownID(t *testing.T) {
	svc, _ := newTestService(t)
	if _, _, err := svc.VerifyOTP(context.Background(), "MED-000000000", "123456"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("got %v, want ErrInvalidRequest", err)
	}
}

func TestVerifyOTPBurnsAfterThreeWrongCodes(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	medipassID, err := svc.Register(ctx, registerInput("9876543210"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	code := pendingCode(t, users, medipassID)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	for i := 1; i <= 3; i++ {
		if _, _, err := svc.VerifyOTP(ctx, medipassID, wrong); !errors.Is(err, ErrInvalidOTP) {
			t.Fatalf("wrong code %d: got %v, want ErrInvalidOTP", i, err)
		}
	}

	// Fourth submission is rejected before the code is even compared.
	if _, _, err := svc.VerifyOTP(ctx, medipassID, code); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("correct code after burn: got %v, want ErrTooManyAttempts", err)
	}
}

func TestVerifyOTPExpired(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	medipassID, err := svc.Register(ctx, registerInput("9876543210"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	u, err := users.FindByMedipassID(ctx, medipassID)
	if err != nil {
		t.Fatalf("FindByMedipassID: %v", err)
	}
	code := u.OTP.Code
	u.OTP.ExpiresAt = time.Now().Add(-time.Second)
	if err := users.Update(ctx, u); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, _, err := svc.VerifyOTP(ctx, medipassID, code); !errors.Is(err, ErrOTPExpired) {
		t.Fatalf("got %v, want ErrOTPExpired", err)
	}
}

func TestLoginLockoutAfterFiveFailures(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, registerInput("9876543210")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	for i := 1; i <= 4; i++ {
		_, err := svc.Login(ctx, "9876543210", "wrong-pass")
		var cerr *CredentialsError
		if !errors.As(err, &cerr) {
			t.Fatalf("failure %d: got %v, want *CredentialsError", i, err)
		}
		if cerr.AttemptsRemaining != 5-i {
			t.Fatalf("failure %d: attemptsRemaining = %d, want %d", i, cerr.AttemptsRemaining, 5-i)
		}
	}

	// The fifth failure trips the lock.
	_, err := svc.Login(ctx, "9876543210", "wrong-pass")
	var lerr *LockedError
	if !errors.As(err, &lerr) || !lerr.Tripped {
		t.Fatalf("fifth failure: got %v, want tripped *LockedError", err)
	}
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatal("LockedError must unwrap to ErrAccountLocked")
	}

	// While locked even the correct password is rejected, without the
	// tripped flag, and the attempt counter does not move.
	_, err = svc.Login(ctx, "9876543210", "s3cret-pass")
	lerr = nil
	if !errors.As(err, &lerr) || lerr.Tripped {
		t.Fatalf("locked login: got %v, want non-tripped *LockedError", err)
	}

	// Expire the lock and the correct password gets back in, resetting
	// the counter.
	u, err := users.FindByMobile(ctx, "9876543210")
	if err != nil {
		t.Fatalf("FindByMobile: %v", err)
	}
	past := time.Now().Add(-time.Minute)
	u.LockUntil = &past
	if err := users.Update(ctx, u); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, err := svc.Login(ctx, "9876543210", "s3cret-pass"); err != nil {
		t.Fatalf("login after lock expiry: %v", err)
	}
	u, _ = users.FindByMobile(ctx, "9876543210")
	if u.LoginAttempts != 0 || u.LockUntil != nil {
		t.Fatalf("login state not reset: attempts=%d lockUntil=%v", u.LoginAttempts, u.LockUntil)
	}
}

func TestLoginUnknownMobile(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Login(context.Background(), "0000000000", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginIssuesChallengeAndTokens(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	medipassID, err := svc.Register(ctx, registerInput("9876543210"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	res, err := svc.Login(ctx, "9876543210", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.MedipassID != medipassID {
		t.Fatalf("MedipassID = %q, want %q", res.MedipassID, medipassID)
	}
	if res.Pair.AccessToken == "" || res.Pair.RefreshToken == "" {
		t.Fatal("expected a token pair alongside the challenge")
	}

	u, err := users.FindByMobile(ctx, "9876543210")
	if err != nil {
		t.Fatalf("FindByMobile: %v", err)
	}
	if u.OTP == nil {
		t.Fatal("login did not attach a second-factor challenge")
	}

	// Completing the challenge finishes the login.
	if _, _, err := svc.VerifyOTP(ctx, medipassID, u.OTP.Code); err != nil {
		t.Fatalf("VerifyOTP after login: %v", err)
	}
}

func TestResetPasswordFlow(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	if _, err := svc.ResetPasswordRequest(ctx, "0000000000"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown mobile: got %v, want ErrUserNotFound", err)
	}

	if _, err := svc.Register(ctx, registerInput("9876543210")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	medipassID, err := svc.ResetPasswordRequest(ctx, "9876543210")
	if err != nil {
		t.Fatalf("ResetPasswordRequest: %v", err)
	}
	code := pendingCode(t, users, medipassID)

	if err := svc.ResetPasswordConfirm(ctx, "MED-000000000", code, "brand-new-pass"); !errors.Is(err, ErrInvalidReset) {
		t.Fatalf("unknown medipass id: got %v, want ErrInvalidReset", err)
	}
	if err := svc.ResetPasswordConfirm(ctx, medipassID, code, ""); err == nil {
		t.Fatal("empty new password accepted")
	}
	if err := svc.ResetPasswordConfirm(ctx, medipassID, code, "brand-new-pass"); err != nil {
		t.Fatalf("ResetPasswordConfirm: %v", err)
	}

	// The challenge was consumed; confirming again reads as a stale reset.
	if err := svc.ResetPasswordConfirm(ctx, medipassID, code, "another-pass"); !errors.Is(err, ErrInvalidReset) {
		t.Fatalf("consumed challenge: got %v, want ErrInvalidReset", err)
	}

	if _, err := svc.Login(ctx, "9876543210", "s3cret-pass"); err == nil {
		t.Fatal("old password still accepted after reset")
	}
	if _, err := svc.Login(ctx, "9876543210", "brand-new-pass"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestRefreshRequiresStoredToken(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	medipassID, err := svc.Register(ctx, registerInput("9876543210"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	code := pendingCode(t, users, medipassID)
	u, pair, err := svc.VerifyOTP(ctx, medipassID, code)
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}

	access, expiresIn, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if access == "" || expiresIn != int64(time.Hour.Seconds()) {
		t.Fatalf("access=%q expiresIn=%d", access, expiresIn)
	}

	if _, _, err := svc.Refresh(ctx, "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token: got %v, want ErrInvalidToken", err)
	}

	// Logout clears the stored token, so the old refresh token dies.
	if err := svc.Logout(ctx, u.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh after logout: got %v, want ErrInvalidToken", err)
	}
}
