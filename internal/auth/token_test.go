package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenPairRoundTrip(t *testing.T) {
	svc := NewTokenService(testConfig())

	pair, err := svc.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := svc.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Fatalf("access subject = %q, want user-123", claims.Subject)
	}

	claims, err = svc.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Fatalf("refresh subject = %q, want user-123", claims.Subject)
	}
}

func TestTokenSecretsAreNotInterchangeable(t *testing.T) {
	svc := NewTokenService(testConfig())

	pair, err := svc.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := svc.VerifyAccess(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token verified as access: %v", err)
	}
	if _, err := svc.VerifyRefresh(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token verified as refresh: %v", err)
	}
}

func TestTokenRejectsForeignSecret(t *testing.T) {
	svc := NewTokenService(testConfig())

	other := testConfig()
	other.AccessTokenSecret = "someone-elses-secret"
	forged, err := NewTokenService(other).IssueAccess("user-123")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	if _, err := svc.VerifyAccess(forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign signature accepted: %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTokenTTL = -time.Minute
	svc := NewTokenService(cfg)

	token, err := svc.IssueAccess("user-123")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := svc.VerifyAccess(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("got %v, want ErrExpiredToken", err)
	}
}

func TestTokenGarbageInput(t *testing.T) {
	svc := NewTokenService(testConfig())
	for _, token := range []string{"", "abc", "a.b.c"} {
		if _, err := svc.VerifyAccess(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("VerifyAccess(%q): got %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestAccessTTLSeconds(t *testing.T) {
	svc := NewTokenService(testConfig())
	if got := svc.AccessTTL(); got != 3600 {
		t.Fatalf("AccessTTL = %d, want 3600", got)
	}
}
