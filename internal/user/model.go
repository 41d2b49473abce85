// Package user holds the credential record and its persistence contracts.
package user

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role classifies the account holder.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// Address is the postal address captured at registration.
type Address struct {
	Street  string
	City    string
	State   string
	Pincode string
}

// Challenge is a pending one-time-code verification attached to a record.
// At most MaxChallengeAttempts wrong submissions invalidate it.
type Challenge struct {
	Code      string
	ExpiresAt time.Time
	Attempts  int
}

// MaxChallengeAttempts is the number of wrong OTP submissions tolerated
// before the challenge is considered burned.
const MaxChallengeAttempts = 3

// User is the persisted credential record. Password and PIN exist only as
// bcrypt hashes.
type User struct {
	ID               string
	MedipassID       string
	FullName         string
	MobileNumber     string
	Email            string
	PasswordHash     []byte
	PINHash          []byte
	DateOfBirth      time.Time
	Gender           string
	Address          Address
	BloodGroup       string
	EmergencyContact string
	Role             Role
	EmailVerified    bool
	MobileVerified   bool
	LoginAttempts    int
	LockUntil        *time.Time
	LastLogin        *time.Time
	RefreshToken     string
	OTP              *Challenge
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HashSecret bcrypt-hashes a password or PIN.
func HashSecret(secret string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
}

// CompareSecret reports whether the candidate matches the stored hash.
func CompareSecret(hash []byte, candidate string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(candidate)) == nil
}

// NewMedipassID builds the public-facing identifier: "MED-" followed by the
// last six digits of the current unix-millisecond clock and three random
// digits, nine digits total.
func NewMedipassID() string {
	millis := strconv.FormatInt(time.Now().UnixMilli(), 10)
	suffix := millis[len(millis)-6:]
	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("MED-%s%03d", suffix, n.Int64())
}

// Locked reports whether the record is under an active login lockout.
func Locked(u User, now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// RecordFailedLogin increments the failure counter and trips the lockout
// once the counter reaches maxFails. An already active lock is left as is.
func RecordFailedLogin(u *User, now time.Time, maxFails int, lockFor time.Duration) {
	if Locked(*u, now) {
		return
	}
	u.LoginAttempts++
	if u.LoginAttempts >= maxFails {
		until := now.Add(lockFor)
		u.LockUntil = &until
	}
}

// ResetLoginState clears the failure counter and any lockout after a
// successful password check.
func ResetLoginState(u *User) {
	u.LoginAttempts = 0
	u.LockUntil = nil
}
