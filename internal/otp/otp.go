// Package otp generates numeric one-time codes and their expiry deadlines.
package otp

import (
	"crypto/rand"
	"math/big"
	"time"
)

// DefaultLength is the number of digits in a standard verification code.
const DefaultLength = 6

var ten = big.NewInt(10)

// Generate returns a numeric code of the requested length. Each digit is
// drawn independently and uniformly from 0-9. A non-positive length falls
// back to DefaultLength.
func Generate(length int) string {
	if length <= 0 {
		length = DefaultLength
	}
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			// crypto/rand failing means the process has no entropy source
			// at all; nothing sensible can be issued.
			panic(err)
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code)
}

// Expiry returns the absolute deadline for a code issued now.
func Expiry(ttl time.Duration) time.Time {
	return time.Now().Add(ttl)
}

// IsExpired reports whether the deadline has passed.
func IsExpired(deadline time.Time) bool {
	return time.Now().After(deadline)
}
