package user

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
)

var medipassIDPattern = regexp.MustCompile(`^MED-\d{9}$`)

func TestNewMedipassIDFormat(t *testing.T) {
	for i := 0; i < 20; i++ {
		id := NewMedipassID()
		if !medipassIDPattern.MatchString(id) {
			t.Fatalf("medipass id %q does not match MED-\\d{9}", id)
		}
	}
}

func TestHashAndCompareSecret(t *testing.T) {
	hash, err := HashSecret("Sup3rSecret!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if string(hash) == "Sup3rSecret!" {
		t.Fatal("secret stored in plaintext")
	}
	if !CompareSecret(hash, "Sup3rSecret!") {
		t.Fatal("matching secret rejected")
	}
	if CompareSecret(hash, "wrong") {
		t.Fatal("wrong secret accepted")
	}
}

func TestRecordFailedLoginTripsLockAtThreshold(t *testing.T) {
	now := time.Now()
	u := User{}
	for i := 0; i < 4; i++ {
		RecordFailedLogin(&u, now, 5, 30*time.Minute)
		if u.LockUntil != nil {
			t.Fatalf("locked after %d attempts", i+1)
		}
	}
	RecordFailedLogin(&u, now, 5, 30*time.Minute)
	if u.LoginAttempts != 5 {
		t.Fatalf("expected 5 attempts, got %d", u.LoginAttempts)
	}
	if u.LockUntil == nil {
		t.Fatal("expected lockout after 5th failure")
	}
	if got, want := *u.LockUntil, now.Add(30*time.Minute); !got.Equal(want) {
		t.Fatalf("expected lock until %v, got %v", want, got)
	}

	// Further failures while locked must not extend the lock.
	RecordFailedLogin(&u, now, 5, 30*time.Minute)
	if u.LoginAttempts != 5 {
		t.Fatalf("locked record accumulated attempts: %d", u.LoginAttempts)
	}
}

func TestResetLoginStateClearsLock(t *testing.T) {
	until := time.Now().Add(time.Hour)
	u := User{LoginAttempts: 5, LockUntil: &until}
	ResetLoginState(&u)
	if u.LoginAttempts != 0 || u.LockUntil != nil {
		t.Fatal("expected counter and lock cleared")
	}
}

func TestMemoryRepositoryUniqueness(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first := User{ID: uuid.NewString(), MedipassID: NewMedipassID(), MobileNumber: "9999999999", Email: "a@example.com"}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}

	dupMobile := User{ID: uuid.NewString(), MedipassID: NewMedipassID(), MobileNumber: "9999999999"}
	if err := repo.Create(ctx, dupMobile); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate for mobile, got %v", err)
	}

	dupEmail := User{ID: uuid.NewString(), MedipassID: NewMedipassID(), MobileNumber: "8888888888", Email: "a@example.com"}
	if err := repo.Create(ctx, dupEmail); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate for email, got %v", err)
	}

	// Sparse uniqueness: two records without email are fine.
	noEmail1 := User{ID: uuid.NewString(), MedipassID: NewMedipassID(), MobileNumber: "7777777777"}
	noEmail2 := User{ID: uuid.NewString(), MedipassID: NewMedipassID(), MobileNumber: "6666666666"}
	if err := repo.Create(ctx, noEmail1); err != nil {
		t.Fatalf("create without email: %v", err)
	}
	if err := repo.Create(ctx, noEmail2); err != nil {
		t.Fatalf("second create without email: %v", err)
	}
}

func TestMemoryRepositoryCloneIsolation(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	u := User{
		ID:           uuid.NewString(),
		MedipassID:   NewMedipassID(),
		MobileNumber: "5555555555",
		OTP:          &Challenge{Code: "123456", ExpiresAt: time.Now().Add(5 * time.Minute)},
	}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}

	fetched, err := repo.FindByMobile(ctx, "5555555555")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	fetched.OTP.Attempts = 99

	again, err := repo.FindByMobile(ctx, "5555555555")
	if err != nil {
		t.Fatalf("find again: %v", err)
	}
	if again.OTP.Attempts != 0 {
		t.Fatal("stored challenge mutated through returned copy")
	}
}
